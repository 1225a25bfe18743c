package base

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/utils"
	"golang.org/x/time/rate"
)

// LiveInfo is one resolution snapshot for a handle. StreamUrl may be empty
// even when IsLive is set; capture then falls back to the page URL.
type LiveInfo struct {
	Handle      string
	RoomId      string
	IsLive      bool
	Title       string
	ViewerCount int
	CoverUrl    string
	StreamUrl   string
	CheckedAt   time.Time
}

// NormalizeHandle maps the user-facing spellings of a handle ("@User ",
// "user") onto the canonical lowercase form used as registry key.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimLeft(handle, "@")
	return strings.ToLower(handle)
}

type MonitorCtx struct {
	Client         *http.Client
	Limiter        *rate.Limiter
	ExtraModConfig map[string]interface{}
}

// HttpGet wraps the raw HttpGet with the monitor's global headers and rate
// limit.
func (c *MonitorCtx) HttpGet(url string, header map[string]string) ([]byte, error) {
	finalHeaders := make(map[string]string, 10)
	for k, v := range c.GetHeaders() {
		finalHeaders[k] = v
	}
	for k, v := range header {
		finalHeaders[k] = v
	}
	c.waitLimit()
	return utils.HttpGet(c.Client, url, finalHeaders)
}

func (c *MonitorCtx) HttpPost(url string, header map[string]string, data []byte) ([]byte, error) {
	finalHeaders := make(map[string]string, 10)
	for k, v := range c.GetHeaders() {
		finalHeaders[k] = v
	}
	for k, v := range header {
		finalHeaders[k] = v
	}
	c.waitLimit()
	return utils.HttpPost(c.Client, url, finalHeaders, data)
}

func (c *MonitorCtx) waitLimit() {
	if c.Limiter != nil {
		_ = c.Limiter.Wait(context.Background())
	}
}

type HeadersConfig struct {
	HttpHeaders map[string]string
}

func (c *MonitorCtx) GetHeaders() map[string]string {
	headerConfig := HeadersConfig{}
	_ = utils.MapToStruct(c.ExtraModConfig, &headerConfig)
	return headerConfig.HttpHeaders
}

func (c *MonitorCtx) GetProxy() (string, bool) {
	enableProxy, ok1 := c.ExtraModConfig["EnableProxy"]
	proxy, ok2 := c.ExtraModConfig["Proxy"]
	if ok1 && ok2 && enableProxy == true {
		return proxy.(string), true
	} else {
		return "", false
	}
}

// VideoMonitor resolves the live state of a watched user and turns a
// positive result into a capture description.
type VideoMonitor interface {
	CheckLive(usersConfig config.UsersConfig) (*LiveInfo, error)
	CreateVideo(usersConfig config.UsersConfig, info *LiveInfo) *interfaces.VideoInfo
	GetCtx() *MonitorCtx
	DownloadProvider() string
}

type BaseMonitor struct {
	Ctx      MonitorCtx
	Provider string
}

func (b *BaseMonitor) CheckLive(usersConfig config.UsersConfig) (*LiveInfo, error) {
	return nil, ErrNotLive
}

func (b *BaseMonitor) CreateVideo(usersConfig config.UsersConfig, info *LiveInfo) *interfaces.VideoInfo {
	return nil
}

func (b *BaseMonitor) GetCtx() *MonitorCtx {
	return &b.Ctx
}

func (b *BaseMonitor) DownloadProvider() string {
	return b.Provider
}

// CreateMonitorCtx builds the module's http client from its extra config.
func CreateMonitorCtx(module config.ModuleConfig) MonitorCtx {
	ctx := MonitorCtx{
		ExtraModConfig: module.ExtraConfig,
		Limiter:        rate.NewLimiter(rate.Every(time.Second), 2),
	}
	var client *http.Client
	proxy, ok := ctx.GetProxy()
	if ok && proxy != "" {
		proxyUrl, _ := url.Parse("socks5://" + proxy)
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			Proxy:           http.ProxyURL(proxyUrl),
		}
		client = &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
		}
	} else {
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			Timeout: 60 * time.Second,
		}
	}
	ctx.Client = client
	return ctx
}

// get mod config & ctx statically
func GetMod(modName string) *config.ModuleConfig {
	for _, m := range config.Config.Module {
		if m.Name == modName {
			return &m
		}
	}
	return nil
}

func GetCtx(modName string) *MonitorCtx {
	ret := GetMod(modName)
	if ret == nil {
		return nil
	}
	_ctx := CreateMonitorCtx(*ret)
	return &_ctx
}
