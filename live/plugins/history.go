package plugins

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"sync"

	"github.com/nekomirai/Tik_Record/live/videoworker"
	"github.com/nekomirai/Tik_Record/utils"
	log "github.com/sirupsen/logrus"
)

const historyLimit = 100

type HistoryEntry struct {
	Username string `json:"username"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Time     string `json:"time"`
}

type persistedStats struct {
	Recordings int64 `json:"recordings"`
	Bytes      int64 `json:"bytes"`
	Seconds    int64 `json:"seconds"`
}

// PluginHistory persists the recording log and the cumulative statistics
// under DataDir. Newest entries first, capped so the file never grows
// unbounded.
type PluginHistory struct {
	mu      sync.Mutex
	dataDir string
	entries []HistoryEntry
}

func NewPluginHistory(dataDir string) *PluginHistory {
	p := &PluginHistory{dataDir: dataDir}
	p.load()
	return p
}

func (p *PluginHistory) historyPath() string { return filepath.Join(p.dataDir, "history.json") }
func (p *PluginHistory) statsPath() string   { return filepath.Join(p.dataDir, "stats.json") }

func (p *PluginHistory) load() {
	if p.dataDir == "" {
		return
	}
	if _, err := utils.MakeDir(p.dataDir); err != nil {
		log.WithError(err).Warn("history dir not creatable")
		return
	}
	if data, err := ioutil.ReadFile(p.historyPath()); err == nil {
		if err := json.Unmarshal(data, &p.entries); err != nil {
			log.WithError(err).Warn("history file unreadable, starting fresh")
			p.entries = nil
		}
	}
	if data, err := ioutil.ReadFile(p.statsPath()); err == nil {
		st := persistedStats{}
		if err := json.Unmarshal(data, &st); err == nil {
			videoworker.Stats.Seed(st.Recordings, st.Bytes, st.Seconds)
		}
	}
}

func (p *PluginHistory) add(entry HistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append([]HistoryEntry{entry}, p.entries...)
	if len(p.entries) > historyLimit {
		p.entries = p.entries[:historyLimit]
	}
	p.save()
}

// save runs with mu held.
func (p *PluginHistory) save() {
	if p.dataDir == "" {
		return
	}
	if data, err := json.MarshalIndent(p.entries, "", "  "); err == nil {
		if err := ioutil.WriteFile(p.historyPath(), data, 0644); err != nil {
			log.WithError(err).Warn("history write failed")
		}
	}
	recordings, bytes, seconds := videoworker.Stats.Snapshot()
	st := persistedStats{Recordings: recordings, Bytes: bytes, Seconds: seconds}
	if data, err := json.MarshalIndent(st, "", "  "); err == nil {
		if err := ioutil.WriteFile(p.statsPath(), data, 0644); err != nil {
			log.WithError(err).Warn("stats write failed")
		}
	}
}

// Entries returns the log newest first.
func (p *PluginHistory) Entries() []HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HistoryEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *PluginHistory) LiveStart(s *videoworker.RecordingSession) error {
	return nil
}

func (p *PluginHistory) RecordStart(s *videoworker.RecordingSession) error {
	return nil
}

func (p *PluginHistory) RecordEnd(s *videoworker.RecordingSession) error {
	res := s.Result()
	if res.FilePath == "" {
		return nil
	}
	p.add(HistoryEntry{
		Username: res.Username,
		Title:    res.Title,
		Duration: res.Duration,
		Path:     res.FilePath,
		Size:     res.FileSize,
		Time:     utils.GetTimeNow(),
	})
	return nil
}
