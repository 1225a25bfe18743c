package plugins

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/nekomirai/Tik_Record/live/videoworker"
	"github.com/nekomirai/Tik_Record/utils"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type NotifyJsonConfig struct {
	NeedNotify bool
	WebhookUrl string
	Token      string
}

type NotifyMsg struct {
	Event    string `json:"event"`
	User     string `json:"user"`
	Title    string `json:"title"`
	Target   string `json:"target"`
	File     string `json:"file,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Duration string `json:"duration,omitempty"`
	Time     string `json:"time"`
}

// PluginNotifier posts lifecycle events to a per-user webhook. The live
// notice for one (user, title) pair is sent at most once, restarts of the
// same broadcast stay quiet.
type PluginNotifier struct {
	mu      sync.Mutex
	sentMsg map[string]int
	limiter ratelimit.Limiter
}

func (p *PluginNotifier) notifyConfig(s *videoworker.RecordingSession) *NotifyJsonConfig {
	raw, ok := s.Video.UsersConfig.ExtraConfig["NotifyConfig"]
	if !ok {
		return nil
	}
	conf := NotifyJsonConfig{}
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	if err := utils.MapToStruct(rawMap, &conf); err != nil {
		log.WithError(err).Warn("bad NotifyConfig")
		return nil
	}
	if !conf.NeedNotify || conf.WebhookUrl == "" {
		log.Tracef(s.Video.UsersConfig.Name + " needn't notify")
		return nil
	}
	return &conf
}

func (p *PluginNotifier) send(conf *NotifyJsonConfig, msg *NotifyMsg) {
	p.mu.Lock()
	if p.limiter == nil {
		p.limiter = ratelimit.New(1)
	}
	limiter := p.limiter
	p.mu.Unlock()
	limiter.Take()

	jsonMsg, _ := json.Marshal(msg)
	client := &http.Client{Timeout: 10 * time.Second}
	req, _ := http.NewRequest("POST", conf.WebhookUrl, bytes.NewBuffer(jsonMsg))
	req.Header.Set("Content-Type", "application/json")
	if conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+conf.Token)
	}
	res, err := client.Do(req)
	if err != nil {
		log.WithError(err).Warn("webhook error")
		return
	}
	res.Body.Close()
	log.Infof("%s notified: %s", msg.User, msg.Event)
}

func (p *PluginNotifier) LiveStart(s *videoworker.RecordingSession) error {
	conf := p.notifyConfig(s)
	if conf == nil {
		return nil
	}
	video := s.Video
	key := "live|" + video.UsersConfig.Name + "|" + video.Title

	p.mu.Lock()
	if p.sentMsg == nil {
		p.sentMsg = make(map[string]int)
	}
	if _, ok := p.sentMsg[key]; ok {
		p.mu.Unlock()
		log.Infof("%s|%s live notice already sent", video.Provider, video.UsersConfig.Name)
		return nil
	}
	p.sentMsg[key] = 1
	p.mu.Unlock()

	p.send(conf, &NotifyMsg{
		Event:  "live",
		User:   video.UsersConfig.Name,
		Title:  video.Title,
		Target: video.Target,
		Time:   utils.GetTimeNow(),
	})
	return nil
}

func (p *PluginNotifier) RecordStart(s *videoworker.RecordingSession) error {
	return nil
}

func (p *PluginNotifier) RecordEnd(s *videoworker.RecordingSession) error {
	conf := p.notifyConfig(s)
	if conf == nil {
		return nil
	}
	res := s.Result()
	if res.FilePath == "" {
		return nil
	}
	p.send(conf, &NotifyMsg{
		Event:    "recorded",
		User:     res.Username,
		Title:    res.Title,
		Target:   s.Video.Target,
		File:     res.FilePath,
		Size:     res.FileSize,
		Duration: res.Duration,
		Time:     utils.GetTimeNow(),
	})
	return nil
}
