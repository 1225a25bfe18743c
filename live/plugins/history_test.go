package plugins

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/nekomirai/Tik_Record/live/videoworker"
)

func preserveStats(t *testing.T) {
	t.Helper()
	recordings, bytes, seconds := videoworker.Stats.Snapshot()
	t.Cleanup(func() { videoworker.Stats.Seed(recordings, bytes, seconds) })
}

func TestPluginHistoryCapAndOrder(t *testing.T) {
	preserveStats(t)
	dir := t.TempDir()
	p := NewPluginHistory(dir)
	for i := 0; i < historyLimit+5; i++ {
		p.add(HistoryEntry{
			Username: "alice",
			Title:    fmt.Sprintf("t%03d", i),
			Path:     "/downloads/x.mp4",
			Size:     1,
		})
	}
	entries := p.Entries()
	if len(entries) != historyLimit {
		t.Fatalf("history holds %d entries, want the cap %d", len(entries), historyLimit)
	}
	wantNewest := fmt.Sprintf("t%03d", historyLimit+4)
	if entries[0].Title != wantNewest {
		t.Errorf("entries[0].Title = %q, want the newest %q", entries[0].Title, wantNewest)
	}

	// a fresh plugin must pick the log back up from disk
	p2 := NewPluginHistory(dir)
	reloaded := p2.Entries()
	if len(reloaded) != historyLimit {
		t.Fatalf("reloaded history holds %d entries, want %d", len(reloaded), historyLimit)
	}
	if reloaded[0].Title != wantNewest {
		t.Errorf("reloaded entries[0].Title = %q, want %q", reloaded[0].Title, wantNewest)
	}
}

func TestPluginHistorySeedsStats(t *testing.T) {
	preserveStats(t)
	dir := t.TempDir()
	stats := `{"recordings": 7, "bytes": 123456, "seconds": 7890}`
	if err := ioutil.WriteFile(filepath.Join(dir, "stats.json"), []byte(stats), 0644); err != nil {
		t.Fatal(err)
	}

	NewPluginHistory(dir)

	recordings, bytes, seconds := videoworker.Stats.Snapshot()
	if recordings != 7 || bytes != 123456 || seconds != 7890 {
		t.Errorf("Stats = (%d, %d, %d), want the persisted totals", recordings, bytes, seconds)
	}
}

func TestPluginHistoryIgnoresGarbage(t *testing.T) {
	preserveStats(t)
	dir := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(dir, "history.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	p := NewPluginHistory(dir)
	if got := len(p.Entries()); got != 0 {
		t.Fatalf("garbage history produced %d entries", got)
	}
}
