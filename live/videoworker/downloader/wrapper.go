package downloader

import (
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader/provbase"
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader/provffmpeg"
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader/provytdlp"
	log "github.com/sirupsen/logrus"
)

type Downloader = provbase.Downloader

// GetProviders returns the capture chain for a module. The default chain
// tries the direct stream-copy first and falls back to page-based capture
// when that can't start.
func GetProviders(providerName string) []*Downloader {
	switch providerName {
	case "", "ffmpeg":
		return []*Downloader{
			{Prov: &provffmpeg.DownloaderFfmpeg{}},
			{Prov: &provytdlp.DownloaderYtdlp{}},
		}
	case "ytdlp", "yt-dlp":
		return []*Downloader{
			{Prov: &provytdlp.DownloaderYtdlp{}},
		}
	default:
		log.Fatalf("Unknown download provider %s", providerName)
		return nil
	}
}
