package plugins

import (
	"encoding/json"

	"github.com/nekomirai/Tik_Record/live/videoworker"
	"github.com/nekomirai/Tik_Record/utils"
	log "github.com/sirupsen/logrus"
)

type RecordDict struct {
	Title        string
	Filename     string
	Date         string
	Path         string
	User         string
	Size         int64
	Duration     string
	OriginTarget string `json:"originTarget"`
}

// PluginPublisher mirrors lifecycle events onto Redis pub/sub so external
// collaborators (uploaders, chat bots) can react without polling. A no-op
// when Redis is not configured.
type PluginPublisher struct{}

func (p *PluginPublisher) LiveStart(s *videoworker.RecordingSession) error {
	video := s.Video
	data, _ := json.Marshal(map[string]string{
		"User":   video.UsersConfig.Name,
		"Title":  video.Title,
		"Target": video.Target,
		"Date":   video.Date,
	})
	utils.Publish(data, "live")
	return nil
}

func (p *PluginPublisher) RecordStart(s *videoworker.RecordingSession) error {
	return nil
}

func (p *PluginPublisher) RecordEnd(s *videoworker.RecordingSession) error {
	res := s.Result()
	if res.FilePath == "" {
		return nil
	}
	video := s.Video
	u := RecordDict{
		Title:        video.Title,
		Filename:     video.FileName,
		Date:         video.Date,
		Path:         res.FilePath,
		User:         video.UsersConfig.Name,
		Size:         res.FileSize,
		Duration:     res.Duration,
		OriginTarget: video.Target,
	}
	data, _ := json.Marshal(u)
	log.Debug(string(data))
	utils.Publish(data, "recordings")
	return nil
}
