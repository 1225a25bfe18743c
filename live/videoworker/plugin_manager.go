package videoworker

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// PluginCallback observes a session's lifecycle. LiveStart fires when the
// session begins, RecordStart once the capture tool is confirmed running,
// RecordEnd exactly once when the session settles.
type PluginCallback interface {
	LiveStart(s *RecordingSession) error
	RecordStart(s *RecordingSession) error
	RecordEnd(s *RecordingSession) error
}

type PluginManager struct {
	plugins []PluginCallback
}

func (p *PluginManager) AddPlugin(plug PluginCallback) {
	p.plugins = append(p.plugins, plug)
}

func (p *PluginManager) OnLiveStart(s *RecordingSession) {
	p.fanout(s, func(plug PluginCallback, s *RecordingSession) error {
		return plug.LiveStart(s)
	})
}

func (p *PluginManager) OnRecordStart(s *RecordingSession) {
	p.fanout(s, func(plug PluginCallback, s *RecordingSession) error {
		return plug.RecordStart(s)
	})
}

func (p *PluginManager) OnRecordEnd(s *RecordingSession) {
	p.fanout(s, func(plug PluginCallback, s *RecordingSession) error {
		return plug.RecordEnd(s)
	})
}

// fanout runs one callback on every plugin concurrently and waits for all
// of them. A plugin error is logged, never propagated: collaborators cannot
// break the pipeline.
func (p *PluginManager) fanout(s *RecordingSession, call func(PluginCallback, *RecordingSession) error) {
	if p == nil {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(p.plugins))
	for _, plug := range p.plugins {
		go func(plug PluginCallback) {
			defer wg.Done()
			if err := call(plug, s); err != nil {
				log.WithError(err).Warn("plugin callback failed")
			}
		}(plug)
	}
	wg.Wait()
}
