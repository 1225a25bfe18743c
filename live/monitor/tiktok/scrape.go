package tiktok

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/nekomirai/Tik_Record/live/monitor/base"
	"github.com/nekomirai/Tik_Record/utils"
	"github.com/tidwall/gjson"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/semaphore"
)

// ScrapeSemaphore bounds concurrent live-page fetches across every TikTok
// monitor. The page weighs a couple of megabytes and the bot wall comes down
// fast on parallel bursts.
var ScrapeSemaphore = semaphore.NewWeighted(3)

var pageBufPool bytebufferpool.Pool

var (
	sigiStateRe = regexp.MustCompile(`(?s)<script id="SIGI_STATE"[^>]*>(.+?)</script>`)
	nextDataRe  = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__"[^>]*>(.+?)</script>`)
)

// scrapeLivePage resolves the live state from the hydration JSON embedded in
// the public live page. Works unauthenticated until TikTok serves a
// verification wall.
func (t *TikTok) scrapeLivePage(handle string, userHeaders map[string]string) (*base.LiveInfo, error) {
	_ = ScrapeSemaphore.Acquire(context.Background(), 1)
	defer ScrapeSemaphore.Release(1)

	buf, err := t.fetchPage(liveUrl(handle), userHeaders)
	if err != nil {
		return nil, err
	}
	defer pageBufPool.Put(buf)
	body := buf.B

	if info, ok := parseSigiState(handle, body, t.quality()); ok {
		return info, nil
	}
	if info, ok := parseNextData(handle, body, t.quality()); ok {
		return info, nil
	}
	if err := classifyPage(body); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no live state in page for %s", handle)
}

// classifyPage names the reason a page carried no parseable state. The
// offline banner is checked first: live-page JSON mentions verification in
// passing, the wall page never mentions hosting.
func classifyPage(body []byte) error {
	lower := bytes.ToLower(body)
	if bytes.Contains(body, []byte("isn't hosting a LIVE")) ||
		bytes.Contains(lower, []byte("currently not hosting")) {
		return base.ErrNotLive
	}
	if bytes.Contains(lower, []byte("captcha")) || bytes.Contains(lower, []byte("verify")) {
		return base.ErrNeedCookies
	}
	return nil
}

// fetchPage pulls the page into a pooled buffer. The caller owns the buffer
// and must return it to pageBufPool. Per-user headers override the module's.
func (t *TikTok) fetchPage(pageUrl string, userHeaders map[string]string) (*bytebufferpool.ByteBuffer, error) {
	req, err := http.NewRequest("GET", pageUrl, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range t.Ctx.GetHeaders() {
		req.Header.Set(k, v)
	}
	for k, v := range userHeaders {
		req.Header.Set(k, v)
	}
	if f := t.cookiesFile(); f != "" {
		if cookies, err := utils.ParseCookiesFile(f); err == nil && len(cookies) > 0 {
			req.Header.Set("Cookie", utils.CookieHeader(cookies))
		}
	}
	if t.Ctx.Limiter != nil {
		_ = t.Ctx.Limiter.Wait(context.Background())
	}
	res, err := t.Ctx.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, base.ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live page returned %s", res.Status)
	}
	buf := pageBufPool.Get()
	if _, err := io.Copy(buf, res.Body); err != nil {
		pageBufPool.Put(buf)
		return nil, err
	}
	return buf, nil
}

// parseSigiState reads the hydration blob current page builds embed.
func parseSigiState(handle string, body []byte, tier base.QualityTier) (*base.LiveInfo, bool) {
	m := sigiStateRe.FindSubmatch(body)
	if len(m) < 2 {
		return nil, false
	}
	userInfo := gjson.GetBytes(m[1], "LiveRoom.liveRoomUserInfo")
	room := userInfo.Get("liveRoom")
	if !room.Exists() {
		return nil, false
	}
	title := room.Get("title").String()
	if title == "" {
		title = userInfo.Get("user.nickname").String()
	}
	return &base.LiveInfo{
		Handle:      handle,
		RoomId:      userInfo.Get("user.roomId").String(),
		IsLive:      true,
		Title:       title,
		ViewerCount: int(room.Get("liveRoomStats.userCount").Int()),
		CoverUrl:    room.Get("coverUrl").String(),
		StreamUrl:   pickPageStream(room.Get("streamData"), tier),
		CheckedAt:   time.Now(),
	}, true
}

// parseNextData reads the legacy blob older page builds still ship.
func parseNextData(handle string, body []byte, tier base.QualityTier) (*base.LiveInfo, bool) {
	m := nextDataRe.FindSubmatch(body)
	if len(m) < 2 {
		return nil, false
	}
	room := gjson.GetBytes(m[1], "props.pageProps.liveRoom")
	if !room.Exists() {
		return nil, false
	}
	return &base.LiveInfo{
		Handle:      handle,
		IsLive:      true,
		Title:       room.Get("title").String(),
		ViewerCount: int(room.Get("liveRoomStats.userCount").Int()),
		CoverUrl:    room.Get("coverUrl").String(),
		StreamUrl:   pickPageStream(room.Get("streamData"), tier),
		CheckedAt:   time.Now(),
	}, true
}

func pickPageStream(streamData gjson.Result, tier base.QualityTier) string {
	streamUrl, _ := base.PickStreamURL(collectStreamSources(streamData), tier)
	return streamUrl
}

// collectStreamSources flattens the up-to-four places the room data hides
// stream addresses into one source map keyed by quality name.
func collectStreamSources(streamData gjson.Result) map[string]string {
	streams := make(map[string]string)
	if !streamData.Exists() {
		return streams
	}

	// pull_data.stream_data is a JSON document packed inside a JSON string
	inner := gjson.Parse(streamData.Get("pull_data.stream_data").String())
	inner.Get("data").ForEach(func(key, val gjson.Result) bool {
		main := val.Get("main")
		if flv := main.Get("flv").String(); flv != "" {
			streams[key.String()] = flv
		} else if hls := main.Get("hls").String(); hls != "" {
			streams[key.String()+"_hls"] = hls
		}
		return true
	})

	streamData.Get("pull_data.options.qualities").ForEach(func(_, q gjson.Result) bool {
		if streamUrl := q.Get("url").String(); streamUrl != "" {
			streams[q.Get("sdk_key").String()] = streamUrl
		}
		return true
	})

	flv := streamData.Get("flv_pull_url")
	if flv.IsObject() {
		flv.ForEach(func(key, val gjson.Result) bool {
			streams[key.String()] = val.String()
			return true
		})
	} else if flv.Type == gjson.String && flv.String() != "" {
		streams["flv"] = flv.String()
	}

	if hls := streamData.Get("hls_pull_url").String(); hls != "" {
		streams["hls"] = hls
	}
	return streams
}
