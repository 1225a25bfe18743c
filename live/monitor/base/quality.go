package base

import (
	"sort"
	"strings"
)

type QualityTier string

const (
	QualityBest   QualityTier = "best"
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// qualityRanks maps a tier to the platform's source names, most preferred
// first. "origin" is the untranscoded ingest.
var qualityRanks = map[QualityTier][]string{
	QualityBest:   {"origin", "uhd", "hd", "sd"},
	QualityHigh:   {"hd", "sd"},
	QualityMedium: {"sd"},
	QualityLow:    {"sd", "ld"},
}

func QualityRanks(tier QualityTier) []string {
	ranks, ok := qualityRanks[tier]
	if !ok {
		return qualityRanks[QualityBest]
	}
	return ranks
}

// PickStreamURL selects a stream from the available sources by substring
// match against the tier's preference list. When no source matches, any
// stream beats none: the first key in sorted order is returned so repeated
// resolutions stay stable.
func PickStreamURL(streams map[string]string, tier QualityTier) (string, bool) {
	if len(streams) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(streams))
	for k := range streams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, want := range QualityRanks(tier) {
		for _, k := range keys {
			if strings.Contains(strings.ToLower(k), want) && streams[k] != "" {
				return streams[k], true
			}
		}
	}
	for _, k := range keys {
		if streams[k] != "" {
			return streams[k], true
		}
	}
	return "", false
}
