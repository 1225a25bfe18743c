package provbase

/*
	Contains common types for the capture providers
*/

import (
	"errors"
	"os/exec"

	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/videoworker/supervisor"
	log "github.com/sirupsen/logrus"
)

// ErrToolMissing means the provider's executable is not installed; the
// caller moves on to the next provider in the chain.
var ErrToolMissing = errors.New("capture tool not installed")

// DownloadProvider spawns an external tool writing the raw stream to
// rawPath. StartCapture returns once the tool has survived its startup
// grace window; supervising the returned process is the caller's job.
type DownloadProvider interface {
	Name() string
	Available() bool
	StartCapture(video *interfaces.VideoInfo, proxy string, cookiesFile string, rawPath string) (*supervisor.Process, error)
}

// Downloader wraps a provider with per-video logging.
type Downloader struct {
	Prov DownloadProvider
}

func (d *Downloader) StartCapture(video *interfaces.VideoInfo, proxy string, cookiesFile string, rawPath string) (*supervisor.Process, error) {
	logger := log.WithField("video", video)
	logger.Infof("starting %s capture to %s", d.Prov.Name(), rawPath)
	proc, err := d.Prov.StartCapture(video, proxy, cookiesFile, rawPath)
	if err != nil {
		logger.WithError(err).Warnf("%s capture did not start", d.Prov.Name())
		return nil, err
	}
	logger.Infof("%s capture running, pid %d", d.Prov.Name(), proc.Pid())
	return proc, nil
}

func (d *Downloader) Name() string {
	return d.Prov.Name()
}

func (d *Downloader) Available() bool {
	return d.Prov.Available()
}

// ToolAvailable reports whether the executable is reachable via PATH.
func ToolAvailable(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}
