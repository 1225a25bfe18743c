package videoworker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nekomirai/Tik_Record/live/interfaces"
	"github.com/nekomirai/Tik_Record/live/videoworker/downloader"
	"github.com/nekomirai/Tik_Record/live/videoworker/supervisor"
	"github.com/nekomirai/Tik_Record/utils"
	log "github.com/sirupsen/logrus"
)

// Session phases. Terminal phases are Completed and Failed; everything
// before them counts as active.
const (
	PhaseIdle int32 = iota
	PhaseStarting
	PhaseRecording
	PhaseStopping
	PhaseFinalizing
	PhaseCompleted
	PhaseFailed
)

var phaseNames = map[int32]string{
	PhaseIdle:       "idle",
	PhaseStarting:   "starting",
	PhaseRecording:  "recording",
	PhaseStopping:   "stopping",
	PhaseFinalizing: "finalizing",
	PhaseCompleted:  "completed",
	PhaseFailed:     "failed",
}

func PhaseName(phase int32) string {
	if name, ok := phaseNames[phase]; ok {
		return name
	}
	return "unknown"
}

const (
	monitorInterval = 500 * time.Millisecond
	// consecutive no-growth ticks before the session reports a stall
	stallThreshold = 60
)

// Extensions a capture tool may pick when it ignores the asked-for name.
var captureExts = []string{".flv", ".mp4", ".ts", ".mkv", ".webm"}

// SessionResult is the settled outcome of a session. Err may be set even on
// a completed session, e.g. when the conversion ladder failed and the raw
// capture was kept as the artifact.
type SessionResult struct {
	Handle   string
	Username string
	Title    string
	Duration string
	FilePath string
	FileSize int64
	Err      error
}

// SessionStatus is a point-in-time view for the status surface.
type SessionStatus struct {
	Handle    string    `json:"handle"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Phase     string    `json:"phase"`
	Provider  string    `json:"provider"`
	Output    string    `json:"output"`
	Size      int64     `json:"size"`
	Stalled   bool      `json:"stalled"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// RecordingSession drives one capture from spawn to finalized file. The
// phase moves strictly forward; a session is used once and discarded.
type RecordingSession struct {
	Handle  string
	Video   *interfaces.VideoInfo
	Plugins *PluginManager

	Providers       []*downloader.Downloader
	Finalize        func(rawPath, targetPath string) (string, error)
	FilenamePattern string
	ArchiveDir      string
	CookiesFile     string
	Proxy           string

	phase   int32
	stopReq int32
	proc    *supervisor.Process

	mu         sync.Mutex
	provName   string
	startTime  time.Time
	targetPath string
	rawPath    string
	actualPath string
	lastSize   int64
	result     SessionResult

	stallTicks int32

	finalOnce sync.Once
	done      chan struct{}
}

func NewSession(handle string, video *interfaces.VideoInfo, providers []*downloader.Downloader, plugins *PluginManager) *RecordingSession {
	return &RecordingSession{
		Handle:    handle,
		Video:     video,
		Plugins:   plugins,
		Providers: providers,
		Finalize:  NewFinalizer().Finalize,
		done:      make(chan struct{}),
	}
}

// Start runs the provider chain until one capture tool survives its grace
// window. On return the session is either Recording with its monitor loop
// running, or Failed with the last provider error.
func (s *RecordingSession) Start() error {
	if !atomic.CompareAndSwapInt32(&s.phase, PhaseIdle, PhaseStarting) {
		return fmt.Errorf("session for %s already started", s.Handle)
	}
	logger := log.WithField("video", s.Video)

	dir := s.Video.UsersConfig.DownloadDir
	if _, err := utils.MakeDir(dir); err != nil {
		s.closeFailed(err)
		return err
	}
	target := GenerateFilename(dir, s.pattern(), s.Video.UsersConfig.Name, s.Video.Title, time.Now())
	s.mu.Lock()
	s.targetPath = target
	s.rawPath = RawPathFor(target)
	s.mu.Unlock()
	s.Video.FileName = filepath.Base(target)
	s.Video.FilePath = target

	go s.Plugins.OnLiveStart(s)

	var lastErr error
	var provName string
	for _, prov := range s.Providers {
		proc, err := prov.StartCapture(s.Video, s.Proxy, s.CookiesFile, s.rawPath)
		if err != nil {
			lastErr = err
			continue
		}
		s.proc = proc
		provName = prov.Name()
		break
	}
	if s.proc == nil {
		if lastErr == nil {
			lastErr = errors.New("no capture provider configured")
		}
		logger.WithError(lastErr).Warn("no capture tool could start")
		s.closeFailed(lastErr)
		return lastErr
	}

	s.mu.Lock()
	s.provName = provName
	s.startTime = time.Now()
	s.mu.Unlock()
	atomic.StoreInt32(&s.phase, PhaseRecording)
	logger.Infof("recording with %s into %s", provName, s.rawPath)
	go s.Plugins.OnRecordStart(s)
	go s.monitor(logger)
	return nil
}

// Stop requests a graceful end and blocks until the session has settled,
// finalization included. Stops that lose the race still wait; callers never
// return to a half-dead session.
func (s *RecordingSession) Stop() {
	if atomic.LoadInt32(&s.phase) == PhaseIdle {
		return
	}
	atomic.StoreInt32(&s.stopReq, 1)
	if atomic.CompareAndSwapInt32(&s.phase, PhaseRecording, PhaseStopping) {
		log.WithField("video", s.Video).Info("stop requested")
		s.proc.Stop()
	}
	<-s.done
}

// Wait blocks until the session settles.
func (s *RecordingSession) Wait() {
	<-s.done
}

func (s *RecordingSession) Phase() int32 {
	return atomic.LoadInt32(&s.phase)
}

// Active reports whether the session still owns its handle slot.
func (s *RecordingSession) Active() bool {
	phase := s.Phase()
	return phase != PhaseCompleted && phase != PhaseFailed
}

// Stalled reports whether the capture output has stopped growing for the
// stall threshold. Informational only; the session never stops itself over
// a stall, lives pause and resume.
func (s *RecordingSession) Stalled() bool {
	return atomic.LoadInt32(&s.stallTicks) >= stallThreshold
}

// Result is the settled outcome. Valid once the session is terminal;
// callers other than RecordEnd plugins should Wait first.
func (s *RecordingSession) Result() SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *RecordingSession) Status() SessionStatus {
	s.mu.Lock()
	output := s.actualPath
	size := s.lastSize
	provider := s.provName
	startedAt := s.startTime
	resDuration := s.result.Duration
	s.mu.Unlock()
	duration := resDuration
	if duration == "" && !startedAt.IsZero() {
		duration = utils.FormatDuration(time.Since(startedAt))
	}
	return SessionStatus{
		Handle:    s.Handle,
		Username:  s.Video.UsersConfig.Name,
		Title:     s.Video.Title,
		Phase:     PhaseName(s.Phase()),
		Provider:  provider,
		Output:    output,
		Size:      size,
		Stalled:   s.Stalled(),
		StartedAt: startedAt,
		Duration:  duration,
	}
}

func (s *RecordingSession) pattern() string {
	if s.FilenamePattern == "" {
		return "{username}_{datetime}"
	}
	return s.FilenamePattern
}

// monitor watches the capture until the tool exits, keeping the output
// bookkeeping fresh on the way.
func (s *RecordingSession) monitor(logger *log.Entry) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.proc.Done():
			s.finalizeAndClose(logger)
			return
		case <-ticker.C:
		}
		if atomic.LoadInt32(&s.stopReq) == 1 &&
			atomic.CompareAndSwapInt32(&s.phase, PhaseRecording, PhaseStopping) {
			s.proc.Stop()
			continue
		}
		s.observeOutput(logger)
	}
}

func (s *RecordingSession) observeOutput(logger *log.Entry) {
	path := s.findActualFile()
	if path == "" {
		s.countStall(logger, 0)
		return
	}
	size := utils.FileSize(path)
	s.mu.Lock()
	last := s.lastSize
	s.actualPath = path
	s.lastSize = size
	s.mu.Unlock()
	if size > last {
		if atomic.SwapInt32(&s.stallTicks, 0) >= stallThreshold {
			logger.Infof("capture resumed growing, now %s", utils.FormatSize(size))
		}
		return
	}
	s.countStall(logger, size)
}

func (s *RecordingSession) countStall(logger *log.Entry, size int64) {
	if ticks := atomic.AddInt32(&s.stallTicks, 1); ticks == stallThreshold {
		logger.Warnf("capture has not grown for %v, still at %s",
			time.Duration(stallThreshold)*monitorInterval, utils.FormatSize(size))
	}
}

// findActualFile locates the file the capture tool is really writing.
// Tools don't always honor the asked-for name: yt-dlp picks its own
// extension when the page offers a different container.
func (s *RecordingSession) findActualFile() string {
	s.mu.Lock()
	rawPath, targetPath, cached := s.rawPath, s.targetPath, s.actualPath
	s.mu.Unlock()
	if utils.IsFileExist(rawPath) {
		return rawPath
	}
	if cached != "" && utils.IsFileExist(cached) {
		return cached
	}
	if utils.IsFileExist(targetPath) {
		return targetPath
	}
	stem := strings.TrimSuffix(rawPath, filepath.Ext(rawPath))
	for _, ext := range captureExts {
		if p := stem + ext; utils.IsFileExist(p) {
			return p
		}
	}
	dir := filepath.Dir(targetPath)
	prefix := strings.TrimSuffix(filepath.Base(targetPath), filepath.Ext(targetPath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, ".txt") {
			return filepath.Join(dir, name)
		}
	}
	return ""
}

// finalizeAndClose settles the session: convert, verify, account, archive,
// notify. Runs exactly once no matter how the capture ended. RecordEnd
// plugins run before waiters are released so shutdown cannot outrun them.
func (s *RecordingSession) finalizeAndClose(logger *log.Entry) {
	s.finalOnce.Do(func() {
		atomic.StoreInt32(&s.phase, PhaseFinalizing)
		duration := time.Since(s.startTime)
		if err := s.proc.ExitErr(); err != nil {
			logger.Infof("capture tool exited: %v (%s)", err, s.proc.OutputSnippet())
		}

		raw := s.findActualFile()
		var finalPath string
		var err error
		if raw == "" {
			err = errors.New("capture produced no output file")
		} else {
			s.mu.Lock()
			target := s.targetPath
			s.mu.Unlock()
			finalPath, err = s.Finalize(raw, target)
		}

		size := utils.FileSize(finalPath)
		completed := finalPath != "" && size > statsFloorSize
		if completed {
			Stats.Add(size, int64(duration.Seconds()))
			if s.ArchiveDir != "" {
				if moved, mvErr := s.archive(finalPath); mvErr != nil {
					logger.WithError(mvErr).Warn("archive move failed, keeping the local file")
				} else {
					finalPath = moved
				}
			}
			logger.Infof("recording finished: %s (%s, %s)",
				finalPath, utils.FormatSize(size), utils.FormatDuration(duration))
		} else {
			if err == nil {
				err = fmt.Errorf("final output too small (%s)", utils.FormatSize(size))
			}
			logger.WithError(err).Warn("recording failed")
		}

		s.Video.FilePath = finalPath
		s.mu.Lock()
		s.result = SessionResult{
			Handle:   s.Handle,
			Username: s.Video.UsersConfig.Name,
			Title:    s.Video.Title,
			Duration: utils.FormatDuration(duration),
			FilePath: finalPath,
			FileSize: size,
			Err:      err,
		}
		s.mu.Unlock()
		if completed {
			atomic.StoreInt32(&s.phase, PhaseCompleted)
		} else {
			atomic.StoreInt32(&s.phase, PhaseFailed)
		}
		s.Plugins.OnRecordEnd(s)
		close(s.done)
	})
}

// closeFailed settles a session that never got a capture running.
func (s *RecordingSession) closeFailed(err error) {
	s.finalOnce.Do(func() {
		s.mu.Lock()
		s.result = SessionResult{
			Handle:   s.Handle,
			Username: s.Video.UsersConfig.Name,
			Title:    s.Video.Title,
			Err:      err,
		}
		s.mu.Unlock()
		atomic.StoreInt32(&s.phase, PhaseFailed)
		close(s.done)
	})
}

// archive relocates the finished file under ArchiveDir/username/.
func (s *RecordingSession) archive(finalPath string) (string, error) {
	destDir := filepath.Join(s.ArchiveDir, s.Video.UsersConfig.Name)
	if _, err := utils.MakeDir(destDir); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filepath.Base(finalPath))
	if err := utils.MoveFiles(finalPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}
