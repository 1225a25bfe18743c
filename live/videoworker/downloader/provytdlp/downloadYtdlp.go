package provytdlp

import (
	"time"

	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader/provbase"
	"github.com/nekomirai/Tik_Record/live/videoworker/supervisor"
	log "github.com/sirupsen/logrus"
)

// yt-dlp resolves the page itself before any bytes flow, so it gets a
// little longer than ffmpeg to fail fast.
const graceWindow = 2 * time.Second

// DownloaderYtdlp records from the live page URL, letting yt-dlp do its own
// extraction. It is the fallback when no direct stream URL is known.
type DownloaderYtdlp struct {
	provbase.Downloader
}

func (d *DownloaderYtdlp) Name() string {
	return "yt-dlp"
}

func (d *DownloaderYtdlp) Available() bool {
	return provbase.ToolAvailable("yt-dlp")
}

func (d *DownloaderYtdlp) StartCapture(video *interfaces.VideoInfo, proxy string, cookiesFile string, rawPath string) (*supervisor.Process, error) {
	if !d.Available() {
		return nil, provbase.ErrToolMissing
	}
	arg := []string{"--no-part", "--no-mtime", "--no-warnings"}
	if cookiesFile != "" {
		arg = append(arg, "--cookies", cookiesFile)
	}
	if proxy != "" {
		arg = append(arg, "--proxy", "socks5://"+proxy)
	}
	arg = append(arg, "-o", rawPath, video.Target)
	log.WithField("video", video).Debugf("yt-dlp command %v", arg)
	proc, err := supervisor.Spawn("yt-dlp", arg...)
	if err != nil {
		return nil, err
	}
	if err := proc.WaitStarted(graceWindow); err != nil {
		return nil, err
	}
	return proc, nil
}
