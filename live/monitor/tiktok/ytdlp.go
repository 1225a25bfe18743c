package tiktok

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
	"github.com/nekomirai/Tik_Record/utils"
	"go.uber.org/ratelimit"
)

const probeTimeout = 15 * time.Second

// one probe per second across every watched handle, the extractor hits
// several signed endpoints per call and TikTok rate limits them hard
var probeLimiter = ratelimit.New(1)

var errProbeUnavailable = errors.New("yt-dlp is not installed")

// probeExtractor resolves the live state with `yt-dlp -j`, which knows the
// signed API endpoints the public page no longer exposes. The stderr text is
// the only machine-readable failure signal the tool gives us.
func (t *TikTok) probeExtractor(handle string) (*base.LiveInfo, error) {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		return nil, errProbeUnavailable
	}
	probeLimiter.Take()

	arg := []string{"-j", "--no-warnings"}
	if f := t.cookiesFile(); f != "" {
		arg = append(arg, "--cookies", f)
	}
	if proxy, ok := t.Ctx.GetProxy(); ok && proxy != "" {
		arg = append(arg, "--proxy", "socks5://"+proxy)
	}
	arg = append(arg, liveUrl(handle))

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	stdout, stderr, err := utils.ExecShellCtx(ctx, "yt-dlp", arg...)
	if err != nil {
		if clsErr := base.ClassifyExtractorError(stderr); clsErr != nil {
			return nil, clsErr
		}
		msg := strings.TrimSpace(stderr)
		return nil, fmt.Errorf("yt-dlp probe: %v: %s", err, msg[:utils.Min(len(msg), 100)])
	}

	infoJson, err := simplejson.NewJson([]byte(stdout))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata unparseable: %w", err)
	}
	return &base.LiveInfo{
		Handle:      handle,
		IsLive:      true,
		Title:       infoJson.Get("title").MustString(),
		ViewerCount: infoJson.Get("concurrent_view_count").MustInt(),
		CoverUrl:    infoJson.Get("thumbnail").MustString(),
		StreamUrl:   pickFormat(infoJson, t.quality()),
		CheckedAt:   time.Now(),
	}, nil
}

// pickFormat chooses among the extractor's formats the same way the page
// scrape picks among its source map, by tier substring on the format id.
func pickFormat(infoJson *simplejson.Json, tier base.QualityTier) string {
	formats, err := infoJson.Get("formats").Array()
	if err != nil {
		return ""
	}
	streams := make(map[string]string, len(formats))
	for i := range formats {
		f := infoJson.Get("formats").GetIndex(i)
		id := f.Get("format_id").MustString()
		if streamUrl := f.Get("url").MustString(); id != "" && streamUrl != "" {
			streams[id] = streamUrl
		}
	}
	streamUrl, _ := base.PickStreamURL(streams, tier)
	return streamUrl
}
