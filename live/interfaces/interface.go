package interfaces

import (
	"fmt"

	"github.com/nekomirai/Tik_Record/config"
	"github.com/sirupsen/logrus"
)

// VideoInfoLogHook flattens a "video" log field into user/title entries so
// every line about a recording names who and what it belongs to.
type VideoInfoLogHook struct {
}

func (h *VideoInfoLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *VideoInfoLogHook) Fire(entry *logrus.Entry) error {
	_ret, ok := entry.Data["video"]
	if !ok {
		return nil
	}
	v, ok := _ret.(*VideoInfo)
	if !ok {
		return nil
	}
	delete(entry.Data, "video")
	entry.Data["user"] = fmt.Sprintf("%s|%s", v.Provider, v.UsersConfig.Name)
	entry.Data["title"] = v.Title
	return nil
}

func init() {
	logrus.AddHook(&VideoInfoLogHook{})
}

// VideoInfo describes one live being captured: where it streams from and
// where its recording lands.
type VideoInfo struct {
	Title       string
	Date        string
	Target      string // live page URL
	StreamUrl   string // resolved direct media URL, empty when only the page is known
	Provider    string
	FileName    string
	FilePath    string
	UsersConfig config.UsersConfig
}
