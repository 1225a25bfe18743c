package plugins

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nekomirai/Tik_Record/config"
	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/videoworker"
)

type webhookRecorder struct {
	mu   sync.Mutex
	hits int
	last NotifyMsg
}

func (r *webhookRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.hits++
		_ = json.NewDecoder(req.Body).Decode(&r.last)
	}
}

func (r *webhookRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

func notifySession(t *testing.T, webhookUrl string, title string) *videoworker.RecordingSession {
	t.Helper()
	video := &interfaces.VideoInfo{
		Title:    title,
		Target:   "https://www.tiktok.com/@alice/live",
		Provider: "TikTok",
		UsersConfig: config.UsersConfig{
			Name:     "alice",
			TargetId: "alice",
			ExtraConfig: map[string]interface{}{
				"NotifyConfig": map[string]interface{}{
					"NeedNotify": true,
					"WebhookUrl": webhookUrl,
				},
			},
		},
	}
	return videoworker.NewSession("alice", video, nil, &videoworker.PluginManager{})
}

func TestPluginNotifierLiveStartDedup(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	p := &PluginNotifier{}
	s := notifySession(t, srv.URL, "morning show")
	if err := p.LiveStart(s); err != nil {
		t.Fatal(err)
	}
	if err := p.LiveStart(s); err != nil {
		t.Fatal(err)
	}
	if got := rec.count(); got != 1 {
		t.Fatalf("webhook hit %d times for the same broadcast, want 1", got)
	}
	rec.mu.Lock()
	last := rec.last
	rec.mu.Unlock()
	if last.Event != "live" || last.User != "alice" || last.Title != "morning show" {
		t.Errorf("unexpected message %+v", last)
	}

	s2 := notifySession(t, srv.URL, "evening show")
	if err := p.LiveStart(s2); err != nil {
		t.Fatal(err)
	}
	if got := rec.count(); got != 2 {
		t.Fatalf("a new title should notify again, got %d hits", got)
	}
}

func TestPluginNotifierDisabled(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	p := &PluginNotifier{}

	video := &interfaces.VideoInfo{
		Title:       "t",
		UsersConfig: config.UsersConfig{Name: "bob"},
	}
	s := videoworker.NewSession("bob", video, nil, &videoworker.PluginManager{})
	if err := p.LiveStart(s); err != nil {
		t.Fatal(err)
	}

	video.UsersConfig.ExtraConfig = map[string]interface{}{
		"NotifyConfig": map[string]interface{}{
			"NeedNotify": false,
			"WebhookUrl": srv.URL,
		},
	}
	if err := p.LiveStart(s); err != nil {
		t.Fatal(err)
	}
	if got := rec.count(); got != 0 {
		t.Fatalf("disabled notifier hit the webhook %d times", got)
	}
}

func TestPluginNotifierRecordEndNeedsResult(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	p := &PluginNotifier{}
	s := notifySession(t, srv.URL, "t")
	// the session never produced a file, nothing to announce
	if err := p.RecordEnd(s); err != nil {
		t.Fatal(err)
	}
	if got := rec.count(); got != 0 {
		t.Fatalf("RecordEnd without a result hit the webhook %d times", got)
	}
}
