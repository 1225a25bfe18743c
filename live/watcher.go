package live

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live/monitor"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
	"github.com/nekomirai/Tik_Record/live/videoworker"
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader"
	log "github.com/sirupsen/logrus"
)

// userSpacing keeps consecutive checks within one module apart so a long
// watchlist does not burst the platform.
var userSpacing = 3 * time.Second

// HandleStatus is the last resolution outcome for one watched handle.
type HandleStatus struct {
	Handle      string    `json:"handle"`
	Username    string    `json:"username"`
	Module      string    `json:"module"`
	IsLive      bool      `json:"is_live"`
	Recording   bool      `json:"recording"`
	Title       string    `json:"title,omitempty"`
	ViewerCount int       `json:"viewer_count,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Watcher polls every enabled module's users and starts a recording session
// when a watched user goes live. One Watcher owns the whole watchlist.
type Watcher struct {
	Registry *videoworker.Registry
	Plugins  *videoworker.PluginManager

	// swappable for tests, default to the module factory and provider chain
	NewMonitor   func(module config.ModuleConfig) base.VideoMonitor
	ProvidersFor func(providerName string) []*downloader.Downloader

	mu       sync.RWMutex
	statuses map[string]*HandleStatus

	cycles        int64
	resolveErrors int64
}

func NewWatcher(registry *videoworker.Registry, plugins *videoworker.PluginManager) *Watcher {
	return &Watcher{
		Registry:     registry,
		Plugins:      plugins,
		NewMonitor:   monitor.CreateVideoMonitor,
		ProvidersFor: downloader.GetProviders,
		statuses:     make(map[string]*HandleStatus),
	}
}

// Run polls until ctx is cancelled. Config edits are picked up between
// sleep steps, so a changed watchlist never waits out a full interval.
func (w *Watcher) Run(ctx context.Context) {
	log.Printf("Arrange watch tasks...")
	for {
		w.RunCycle(ctx)
		if ctx.Err() != nil {
			return
		}
		interval := 60
		if config.Config != nil && config.Config.CheckIntervalSec > 0 {
			interval = config.Config.CheckIntervalSec
		}
		for i := 0; i < interval; i++ {
			if config.ConfigChanged {
				if ret, err := config.ReloadConfig(); ret {
					if err == nil {
						log.Infof("Config changed! New config: %v", config.Config)
					} else {
						log.Warnf("Config changed but loading failed: %s", err)
					}
				}
			}
			if !sleepCtx(ctx, time.Second) {
				return
			}
		}
	}
}

// RunCycle checks every watched user once. A failing user never blocks the
// rest of the cycle.
func (w *Watcher) RunCycle(ctx context.Context) {
	atomic.AddInt64(&w.cycles, 1)
	if config.Config == nil {
		return
	}
	for _, module := range config.Config.Module {
		if !module.Enable {
			continue
		}
		mon := w.NewMonitor(module)
		if mon == nil {
			log.Warnf("Module %s has no monitor", module.Name)
			continue
		}
		for i, usersConfig := range module.Users {
			if ctx.Err() != nil {
				return
			}
			if i > 0 && !sleepCtx(ctx, userSpacing) {
				return
			}
			w.checkUser(mon, module, usersConfig)
		}
	}
}

func (w *Watcher) checkUser(mon base.VideoMonitor, module config.ModuleConfig, usersConfig config.UsersConfig) {
	handle := base.NormalizeHandle(usersConfig.TargetId)
	if handle == "" {
		return
	}
	logger := log.WithField("user", module.Name+"|"+usersConfig.Name)

	info, err := mon.CheckLive(usersConfig)
	w.storeStatus(handle, module, usersConfig, info, err)
	if err != nil {
		if errors.Is(err, base.ErrNotLive) {
			logger.Debugf("%s is not live", handle)
		} else {
			atomic.AddInt64(&w.resolveErrors, 1)
			logger.WithError(err).Warn("live check failed")
		}
		return
	}
	if info == nil || !info.IsLive || !usersConfig.NeedDownload {
		return
	}
	if w.Registry.IsRecording(handle) {
		return
	}
	_, err = w.Registry.StartSession(handle, func() *videoworker.RecordingSession {
		return w.buildSession(mon, usersConfig, info, handle)
	})
	if err != nil && !errors.Is(err, videoworker.ErrAlreadyRecording) {
		logger.WithError(err).Error("recording session failed to start")
	}
}

func (w *Watcher) buildSession(mon base.VideoMonitor, usersConfig config.UsersConfig, info *base.LiveInfo, handle string) *videoworker.RecordingSession {
	if usersConfig.DownloadDir == "" && config.Config != nil {
		usersConfig.DownloadDir = config.Config.DownloadDir
	}
	video := mon.CreateVideo(usersConfig, info)
	s := videoworker.NewSession(handle, video, w.ProvidersFor(mon.DownloadProvider()), w.Plugins)
	if config.Config != nil {
		s.FilenamePattern = config.Config.FilenamePattern
		s.ArchiveDir = config.Config.ArchiveDir
		s.CookiesFile = config.Config.CookiesFile
	}
	if proxy, ok := mon.GetCtx().GetProxy(); ok {
		s.Proxy = proxy
	}
	return s
}

func (w *Watcher) storeStatus(handle string, module config.ModuleConfig, usersConfig config.UsersConfig, info *base.LiveInfo, err error) {
	st := &HandleStatus{
		Handle:    handle,
		Username:  usersConfig.Name,
		Module:    module.Name,
		CheckedAt: time.Now(),
		Recording: w.Registry.IsRecording(handle),
	}
	if info != nil {
		st.IsLive = info.IsLive
		st.Title = info.Title
		st.ViewerCount = info.ViewerCount
	}
	if err != nil && !errors.Is(err, base.ErrNotLive) {
		st.LastError = err.Error()
	}
	w.mu.Lock()
	w.statuses[handle] = st
	w.mu.Unlock()
}

// Statuses returns the last outcome per handle, sorted for stable output.
func (w *Watcher) Statuses() []*HandleStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*HandleStatus, 0, len(w.statuses))
	for _, st := range w.statuses {
		copied := *st
		copied.Recording = w.Registry.IsRecording(st.Handle)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (w *Watcher) Cycles() int64 {
	return atomic.LoadInt64(&w.cycles)
}

func (w *Watcher) ResolveErrors() int64 {
	return atomic.LoadInt64(&w.resolveErrors)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
