package monitor

import (
	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
)

// Mock is a canned monitor for tests.
type Mock struct {
	Ctx       base.MonitorCtx
	Info      *base.LiveInfo
	Err       error
	Video     *interfaces.VideoInfo
	Provider  string
	CheckFunc func(usersConfig config.UsersConfig) (*base.LiveInfo, error)
}

func (m *Mock) CheckLive(usersConfig config.UsersConfig) (*base.LiveInfo, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(usersConfig)
	}
	return m.Info, m.Err
}

func (m *Mock) CreateVideo(usersConfig config.UsersConfig, info *base.LiveInfo) *interfaces.VideoInfo {
	if m.Video != nil {
		return m.Video
	}
	return &interfaces.VideoInfo{
		Title:       info.Title,
		Provider:    "Mock",
		Target:      "https://example.com/@" + info.Handle + "/live",
		StreamUrl:   info.StreamUrl,
		UsersConfig: usersConfig,
	}
}

func (m *Mock) GetCtx() *base.MonitorCtx {
	return &m.Ctx
}

func (m *Mock) DownloadProvider() string {
	return m.Provider
}
