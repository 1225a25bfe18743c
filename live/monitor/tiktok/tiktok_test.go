package tiktok

import (
	"testing"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/grafov/m3u8"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
	"github.com/tidwall/gjson"
)

// The "verified":false field is part of the fixture on purpose: the real
// page always carries it and it must not be mistaken for a verification
// wall.
const liveSigiPage = `<html><body>
<script id="SIGI_STATE" type="application/json">{"LiveRoom":{"liveRoomUserInfo":{"user":{"nickname":"Alice Streams","roomId":"7318296342186412247","uniqueId":"alice","verified":false},"liveRoom":{"title":"cooking night","coverUrl":"https://cdn.example.com/cover.jpg","liveRoomStats":{"userCount":1342},"streamData":{"pull_data":{"options":{"qualities":[{"sdk_key":"origin","url":"https://pull.example.com/live/origin.flv"},{"sdk_key":"hd","url":"https://pull.example.com/live/hd.flv"},{"sdk_key":"sd","url":"https://pull.example.com/live/sd.flv"}]}}}}}}}</script>
</body></html>`

const untitledSigiPage = `<html><body>
<script id="SIGI_STATE" type="application/json">{"LiveRoom":{"liveRoomUserInfo":{"user":{"nickname":"Alice Streams","roomId":"42"},"liveRoom":{"title":"","liveRoomStats":{"userCount":7}}}}}</script>
</body></html>`

const offlineSigiPage = `<html><body>
<script id="SIGI_STATE" type="application/json">{"LiveRoom":{},"UserModule":{"users":{"alice":{"verified":false}}}}</script>
<div>alice isn't hosting a LIVE right now.</div>
</body></html>`

const liveNextDataPage = `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"liveRoom":{"title":"night drive","coverUrl":"https://cdn.example.com/nd.jpg","liveRoomStats":{"userCount":88},"streamData":{"hls_pull_url":"https://pull.example.com/live/stream.m3u8"}}}}}</script>
</body></html>`

const captchaPage = `<html><body><div class="secsdk-captcha-wrapper">Please verify to continue</div></body></html>`

func TestParseSigiState(t *testing.T) {
	info, ok := parseSigiState("alice", []byte(liveSigiPage), base.QualityBest)
	if !ok {
		t.Fatal("parseSigiState() failed on the live fixture")
	}
	if !info.IsLive {
		t.Error("IsLive = false, want true")
	}
	if info.Title != "cooking night" {
		t.Errorf("Title = %q, want %q", info.Title, "cooking night")
	}
	if info.RoomId != "7318296342186412247" {
		t.Errorf("RoomId = %q, want %q", info.RoomId, "7318296342186412247")
	}
	if info.ViewerCount != 1342 {
		t.Errorf("ViewerCount = %d, want 1342", info.ViewerCount)
	}
	if info.CoverUrl != "https://cdn.example.com/cover.jpg" {
		t.Errorf("CoverUrl = %q", info.CoverUrl)
	}
	if info.StreamUrl != "https://pull.example.com/live/origin.flv" {
		t.Errorf("StreamUrl = %q, want the origin source", info.StreamUrl)
	}
}

func TestParseSigiStateTitleFallback(t *testing.T) {
	info, ok := parseSigiState("alice", []byte(untitledSigiPage), base.QualityBest)
	if !ok {
		t.Fatal("parseSigiState() failed on the untitled fixture")
	}
	if info.Title != "Alice Streams" {
		t.Errorf("Title = %q, want the nickname fallback", info.Title)
	}
}

func TestParseSigiStateOffline(t *testing.T) {
	if _, ok := parseSigiState("alice", []byte(offlineSigiPage), base.QualityBest); ok {
		t.Error("parseSigiState() = ok on a page without live room data")
	}
	if _, ok := parseSigiState("alice", []byte("<html></html>"), base.QualityBest); ok {
		t.Error("parseSigiState() = ok on a page without the blob")
	}
}

func TestParseNextData(t *testing.T) {
	info, ok := parseNextData("bob", []byte(liveNextDataPage), base.QualityBest)
	if !ok {
		t.Fatal("parseNextData() failed on the live fixture")
	}
	if info.Title != "night drive" {
		t.Errorf("Title = %q, want %q", info.Title, "night drive")
	}
	if info.ViewerCount != 88 {
		t.Errorf("ViewerCount = %d, want 88", info.ViewerCount)
	}
	if info.StreamUrl != "https://pull.example.com/live/stream.m3u8" {
		t.Errorf("StreamUrl = %q", info.StreamUrl)
	}
	if _, ok := parseNextData("bob", []byte(liveSigiPage), base.QualityBest); ok {
		t.Error("parseNextData() = ok on a page without the blob")
	}
}

func TestClassifyPage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"offline banner", offlineSigiPage, base.ErrNotLive},
		{"offline lowercase wording", "<p>user is Currently Not Hosting</p>", base.ErrNotLive},
		{"captcha wall", captchaPage, base.ErrNeedCookies},
		{"offline banner beats verification noise", offlineSigiPage + `{"verified":true}`, base.ErrNotLive},
		{"unrelated page", "<html><body>hello</body></html>", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPage([]byte(tt.body)); got != tt.want {
				t.Errorf("classifyPage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectStreamSources(t *testing.T) {
	streamData := gjson.Parse(`{
		"pull_data": {
			"stream_data": "{\"data\":{\"origin\":{\"main\":{\"flv\":\"https://pull.example.com/origin.flv\",\"hls\":\"https://pull.example.com/origin.m3u8\"}},\"hd\":{\"main\":{\"hls\":\"https://pull.example.com/hd.m3u8\"}}}}",
			"options": {"qualities": [
				{"sdk_key": "uhd", "url": "https://pull.example.com/uhd.flv"},
				{"sdk_key": "empty", "url": ""}
			]}
		},
		"flv_pull_url": {"FULL_HD1": "https://pull.example.com/full.flv", "HD1": "https://pull.example.com/hd1.flv"},
		"hls_pull_url": "https://pull.example.com/fallback.m3u8"
	}`)
	want := map[string]string{
		"origin":   "https://pull.example.com/origin.flv",
		"hd_hls":   "https://pull.example.com/hd.m3u8",
		"uhd":      "https://pull.example.com/uhd.flv",
		"FULL_HD1": "https://pull.example.com/full.flv",
		"HD1":      "https://pull.example.com/hd1.flv",
		"hls":      "https://pull.example.com/fallback.m3u8",
	}
	got := collectStreamSources(streamData)
	if len(got) != len(want) {
		t.Fatalf("collectStreamSources() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("streams[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestCollectStreamSourcesStringFlv(t *testing.T) {
	streamData := gjson.Parse(`{"flv_pull_url": "https://pull.example.com/only.flv"}`)
	got := collectStreamSources(streamData)
	if got["flv"] != "https://pull.example.com/only.flv" {
		t.Errorf("streams = %v, want the flv key", got)
	}
	if len(collectStreamSources(gjson.Parse(`{}`))) != 0 {
		t.Error("collectStreamSources() on empty data should be empty")
	}
}

func TestPickFormat(t *testing.T) {
	doc, err := simplejson.NewJson([]byte(`{
		"title": "x",
		"formats": [
			{"format_id": "sd", "url": "https://e/sd"},
			{"format_id": "hd", "url": "https://e/hd"},
			{"format_id": "origin", "url": "https://e/origin"}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		tier base.QualityTier
		want string
	}{
		{"best takes origin", base.QualityBest, "https://e/origin"},
		{"high takes hd", base.QualityHigh, "https://e/hd"},
		{"low takes sd", base.QualityLow, "https://e/sd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickFormat(doc, tt.tier); got != tt.want {
				t.Errorf("pickFormat() = %q, want %q", got, tt.want)
			}
		})
	}
	empty, _ := simplejson.NewJson([]byte(`{"title": "x"}`))
	if got := pickFormat(empty, base.QualityBest); got != "" {
		t.Errorf("pickFormat() without formats = %q, want empty", got)
	}
}

func TestPickVariant(t *testing.T) {
	variants := []*m3u8.Variant{
		{URI: "mid.m3u8", VariantParams: m3u8.VariantParams{Bandwidth: 1500000}},
		{URI: "low.m3u8", VariantParams: m3u8.VariantParams{Bandwidth: 500000}},
		{URI: "top.m3u8", VariantParams: m3u8.VariantParams{Bandwidth: 4000000}},
		nil,
	}
	tests := []struct {
		name string
		tier base.QualityTier
		want string
	}{
		{"best", base.QualityBest, "top.m3u8"},
		{"high", base.QualityHigh, "top.m3u8"},
		{"medium", base.QualityMedium, "mid.m3u8"},
		{"low", base.QualityLow, "low.m3u8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickVariant(variants, tt.tier); got != tt.want {
				t.Errorf("pickVariant() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := pickVariant(nil, base.QualityBest); got != "" {
		t.Errorf("pickVariant(nil) = %q, want empty", got)
	}
}

func TestAbsoluteUrl(t *testing.T) {
	got := absoluteUrl("https://pull.example.com/live/master.m3u8", "hd/index.m3u8")
	if got != "https://pull.example.com/live/hd/index.m3u8" {
		t.Errorf("absoluteUrl() = %q", got)
	}
	abs := "https://other.example.com/x.m3u8"
	if got := absoluteUrl("https://pull.example.com/live/master.m3u8", abs); got != abs {
		t.Errorf("absoluteUrl() rewrote an absolute url to %q", got)
	}
}
