package videoworker

import (
	"errors"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrAlreadyRecording means the handle's slot is held by a session that has
// not settled yet.
var ErrAlreadyRecording = errors.New("an active session already holds this handle")

// Registry owns the at-most-one-active-session-per-handle rule. Terminal
// sessions stay queryable until the next session for the handle replaces
// them.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*RecordingSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*RecordingSession)}
}

// StartSession admits a new session for the handle and starts it. The slot
// is reserved under the lock before the capture spawns, so two concurrent
// starts for one handle cannot both win; the loser gets
// ErrAlreadyRecording. A failed start releases the slot.
func (r *Registry) StartSession(handle string, build func() *RecordingSession) (*RecordingSession, error) {
	r.mu.Lock()
	if cur, ok := r.sessions[handle]; ok && cur.Active() {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	s := build()
	r.sessions[handle] = s
	r.mu.Unlock()

	if err := s.Start(); err != nil {
		r.mu.Lock()
		if r.sessions[handle] == s {
			delete(r.sessions, handle)
		}
		r.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (r *Registry) Get(handle string) (*RecordingSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[handle]
	return s, ok
}

// IsRecording reports whether the handle's slot is held by an active
// session.
func (r *Registry) IsRecording(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[handle]
	return ok && s.Active()
}

// Sessions returns a stable-ordered snapshot.
func (r *Registry) Sessions() []*RecordingSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*RecordingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.Active() {
			n++
		}
	}
	return n
}

// StopSession stops the handle's session and waits for it to settle.
func (r *Registry) StopSession(handle string) error {
	r.mu.Lock()
	s, ok := r.sessions[handle]
	r.mu.Unlock()
	if !ok {
		return errors.New("no session for handle")
	}
	s.Stop()
	return nil
}

// StopAll stops every active session concurrently, waits for all of them to
// settle and clears the registry.
func (r *Registry) StopAll() {
	r.mu.Lock()
	snapshot := make([]*RecordingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range snapshot {
		if !s.Active() {
			continue
		}
		wg.Add(1)
		go func(s *RecordingSession) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()

	r.mu.Lock()
	r.sessions = make(map[string]*RecordingSession)
	r.mu.Unlock()
	log.Info("all sessions stopped")
}
