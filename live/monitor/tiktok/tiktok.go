package tiktok

import (
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
	"github.com/nekomirai/Tik_Record/utils"
	"github.com/patrickmn/go-cache"
)

// negativeCache remembers handles that resolved to a dead end. A handle that
// does not exist or points at a private room will not change within the TTL,
// so pollers skip the network round trip entirely. Plain "not live" results
// are never cached here.
var negativeCache = cache.New(5*time.Minute, 10*time.Minute)

// roomIdCache memoizes handle to room id, so resolutions served by the
// extractor probe keep the id learned from an earlier page scrape.
var roomIdCache, _ = lru.New(128)

type TikTok struct {
	base.BaseMonitor
}

func NewTikTok(module config.ModuleConfig) *TikTok {
	return &TikTok{
		BaseMonitor: base.BaseMonitor{
			Ctx:      base.CreateMonitorCtx(module),
			Provider: module.DownloadProvider,
		},
	}
}

func liveUrl(handle string) string {
	return "https://www.tiktok.com/@" + handle + "/live"
}

func (t *TikTok) quality() base.QualityTier {
	if config.Config == nil || config.Config.DownloadQuality == "" {
		return base.QualityBest
	}
	return base.QualityTier(config.Config.DownloadQuality)
}

func (t *TikTok) cookiesFile() string {
	if config.Config == nil {
		return ""
	}
	return config.Config.CookiesFile
}

func (t *TikTok) CheckLive(usersConfig config.UsersConfig) (*base.LiveInfo, error) {
	handle := base.NormalizeHandle(usersConfig.TargetId)
	if handle == "" {
		return nil, base.ErrNotFound
	}
	if cached, ok := negativeCache.Get(handle); ok {
		return nil, cached.(error)
	}

	info, err := t.resolve(handle, usersConfig.UserHeaders)
	if err != nil {
		if errors.Is(err, base.ErrNotFound) || errors.Is(err, base.ErrPrivateStream) {
			negativeCache.Set(handle, err, cache.DefaultExpiration)
		}
		return nil, err
	}

	// strategies are not trusted to fill the handle themselves
	info.Handle = handle
	if info.RoomId == "" {
		if id, ok := roomIdCache.Get(handle); ok {
			info.RoomId = id.(string)
		}
	} else {
		roomIdCache.Add(handle, info.RoomId)
	}
	if info.StreamUrl != "" {
		info.StreamUrl = t.refineHLSVariant(info.StreamUrl)
	}
	return info, nil
}

// resolve tries the extractor probe first and falls back to scraping the
// live page. When both come up empty the probe's error wins, it is the more
// precise of the two.
func (t *TikTok) resolve(handle string, userHeaders map[string]string) (*base.LiveInfo, error) {
	infoA, errA := t.probeExtractor(handle)
	if errA == nil {
		return infoA, nil
	}
	if errors.Is(errA, errProbeUnavailable) {
		errA = nil
	}
	infoB, errB := t.scrapeLivePage(handle, userHeaders)
	if errB == nil {
		return infoB, nil
	}
	if errA != nil {
		return nil, errA
	}
	return nil, errB
}

func (t *TikTok) CreateVideo(usersConfig config.UsersConfig, info *base.LiveInfo) *interfaces.VideoInfo {
	return &interfaces.VideoInfo{
		Title:       info.Title,
		Date:        utils.GetTimeNow(),
		Target:      liveUrl(info.Handle),
		StreamUrl:   info.StreamUrl,
		Provider:    "TikTok",
		UsersConfig: usersConfig,
	}
}
