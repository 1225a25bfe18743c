package tiktok

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/nekomirai/Tik_Record/live/monitor/base"
	log "github.com/sirupsen/logrus"
)

// refineHLSVariant resolves an HLS master playlist down to the single
// variant matching the configured quality. Any failure keeps the original
// URL, ffmpeg can open a master playlist on its own.
func (t *TikTok) refineHLSVariant(streamUrl string) string {
	if !strings.Contains(streamUrl, ".m3u8") {
		return streamUrl
	}
	data, err := t.Ctx.HttpGet(streamUrl, nil)
	if err != nil {
		log.WithError(err).Debug("hls master fetch failed")
		return streamUrl
	}
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), true)
	if err != nil || listType != m3u8.MASTER {
		return streamUrl
	}
	master := playlist.(*m3u8.MasterPlaylist)
	picked := pickVariant(master.Variants, t.quality())
	if picked == "" {
		return streamUrl
	}
	return absoluteUrl(streamUrl, picked)
}

func pickVariant(variants []*m3u8.Variant, tier base.QualityTier) string {
	usable := make([]*m3u8.Variant, 0, len(variants))
	for _, v := range variants {
		if v != nil && v.URI != "" {
			usable = append(usable, v)
		}
	}
	if len(usable) == 0 {
		return ""
	}
	sort.Slice(usable, func(i, j int) bool {
		return usable[i].Bandwidth > usable[j].Bandwidth
	})
	switch tier {
	case base.QualityLow:
		return usable[len(usable)-1].URI
	case base.QualityMedium:
		return usable[len(usable)/2].URI
	default:
		return usable[0].URI
	}
}

func absoluteUrl(baseUrl, ref string) string {
	refUrl, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refUrl.IsAbs() {
		return ref
	}
	masterUrl, err := url.Parse(baseUrl)
	if err != nil {
		return ref
	}
	return masterUrl.ResolveReference(refUrl).String()
}
