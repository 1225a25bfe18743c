package provffmpeg

import (
	"errors"
	"time"

	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader/provbase"
	"github.com/nekomirai/Tik_Record/live/videoworker/supervisor"
	log "github.com/sirupsen/logrus"
)

// ffmpeg fails near-instantly on a dead URL, so a short window suffices.
const graceWindow = 1500 * time.Millisecond

// DownloaderFfmpeg copies the direct stream into an FLV container without
// touching the codecs. It needs a resolved stream URL.
type DownloaderFfmpeg struct {
	provbase.Downloader
}

func (d *DownloaderFfmpeg) Name() string {
	return "ffmpeg"
}

func (d *DownloaderFfmpeg) Available() bool {
	return provbase.ToolAvailable("ffmpeg")
}

func (d *DownloaderFfmpeg) StartCapture(video *interfaces.VideoInfo, proxy string, cookiesFile string, rawPath string) (*supervisor.Process, error) {
	if video.StreamUrl == "" {
		return nil, errors.New("no direct stream url resolved")
	}
	if !d.Available() {
		return nil, provbase.ErrToolMissing
	}
	arg := []string{
		"-y", "-loglevel", "warning",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", video.StreamUrl,
		"-c", "copy",
		"-f", "flv",
		rawPath,
	}
	log.WithField("video", video).Debugf("ffmpeg command %v", arg)
	proc, err := supervisor.Spawn("ffmpeg", arg...)
	if err != nil {
		return nil, err
	}
	if err := proc.WaitStarted(graceWindow); err != nil {
		return nil, err
	}
	return proc, nil
}
