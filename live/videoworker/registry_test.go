package videoworker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nekomirai/Tik_Record/live/videoworker/downloader"
)

func buildSession(t *testing.T, script string) func() *RecordingSession {
	return func() *RecordingSession {
		s, _, _ := newTestSession(t, downloader.Downloader{Prov: &fakeProvider{
			name:   "fake",
			script: script,
		}})
		return s
	}
}

func TestRegistryRejectsSecondStart(t *testing.T) {
	r := NewRegistry()
	s, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 10"))
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	defer s.Stop()

	if _, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 10")); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second StartSession() error = %v, want ErrAlreadyRecording", err)
	}
	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount() = %v, want 1", got)
	}
}

func TestRegistryConcurrentStartsAdmitOne(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 10")); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if admitted != 1 {
		t.Fatalf("admitted = %v sessions for one handle, want 1", admitted)
	}
	r.StopAll()
}

func TestRegistryReleasesSlotOnFailedStart(t *testing.T) {
	r := NewRegistry()
	failing := func() *RecordingSession {
		s, _, _ := newTestSession(t, downloader.Downloader{Prov: &fakeProvider{name: "fake", fail: true}})
		return s
	}
	if _, err := r.StartSession("alice", failing); err == nil {
		t.Fatal("StartSession() succeeded with a failing provider")
	}
	if _, ok := r.Get("alice"); ok {
		t.Error("failed session still occupies the slot")
	}
	s, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 5"))
	if err != nil {
		t.Fatalf("StartSession() after failure error = %v", err)
	}
	s.Stop()
}

func TestRegistryRestartAfterStop(t *testing.T) {
	r := NewRegistry()
	s, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 5"))
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	s.Stop()
	if s.Active() {
		t.Fatal("session still active after Stop()")
	}
	s2, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 5"))
	if err != nil {
		t.Fatalf("StartSession() after settle error = %v", err)
	}
	s2.Stop()
}

func TestRegistryStopAll(t *testing.T) {
	r := NewRegistry()
	for _, handle := range []string{"alice", "bob", "carol"} {
		if _, err := r.StartSession(handle, buildSession(t, "head -c 102400 /dev/zero > %s; sleep 30")); err != nil {
			t.Fatalf("StartSession(%v) error = %v", handle, err)
		}
	}
	if got := r.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount() = %v, want 3", got)
	}

	start := time.Now()
	r.StopAll()
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("StopAll() took %v, sessions should stop concurrently", elapsed)
	}
	if got := r.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() after StopAll = %v, want 0", got)
	}
	if got := len(r.Sessions()); got != 0 {
		t.Errorf("Sessions() after StopAll = %v entries, want 0", got)
	}
}

func TestRegistryIsRecording(t *testing.T) {
	r := NewRegistry()
	if r.IsRecording("alice") {
		t.Error("IsRecording() = true on an empty registry")
	}
	s, err := r.StartSession("alice", buildSession(t, "head -c 102400 /dev/zero > %s; sleep 10"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsRecording("alice") {
		t.Error("IsRecording() = false while a session runs")
	}
	s.Stop()
	if r.IsRecording("alice") {
		t.Error("IsRecording() = true after the session settled")
	}
}
