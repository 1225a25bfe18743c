package monitor

import (
	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
	"github.com/nekomirai/Tik_Record/live/monitor/tiktok"
)

// VideoMonitor is re-exported so callers outside the monitor tree don't
// need the base package for the common case.
type VideoMonitor = base.VideoMonitor

func CreateVideoMonitor(module config.ModuleConfig) VideoMonitor {
	var monitor VideoMonitor
	switch module.Name {
	case "TikTok", "tiktok":
		monitor = tiktok.NewTikTok(module)
	default:
		return nil
	}
	return monitor
}
