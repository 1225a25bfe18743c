package videoworker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nekomirai/Tik_Record/utils"
	log "github.com/sirupsen/logrus"
)

const (
	// Raw captures below this size carry no recoverable video; the ladder
	// is skipped and the raw file kept as-is.
	minConvertSize = 50 * 1024
	// Finished files at or below this size don't count as recordings.
	statsFloorSize = 10 * 1024
	// Bound for a single conversion attempt.
	convertTimeout = 1800 * time.Second
)

// ErrConvertFailed reports that every rung of the conversion ladder was
// rejected; the raw capture file is retained.
var ErrConvertFailed = errors.New("all conversion attempts failed")

type convertStep struct {
	name     string
	args     []string // codec args between input and output
	minRatio float64  // accept only when output/input reaches this
	minBytes int64    // accept only when output exceeds this
}

// The ladder runs cheapest-first. Acceptance thresholds catch conversions
// that "succeed" while silently dropping most of the stream: a remux that
// halves the file lost data, a transcode shrinking it far below the codec's
// usual ratio did too.
var convertSteps = []convertStep{
	{
		name:     "remux",
		args:     []string{"-c", "copy", "-movflags", "+faststart"},
		minRatio: 0.5,
	},
	{
		name:     "aac",
		args:     []string{"-c:v", "copy", "-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart"},
		minRatio: 0.3,
	},
	{
		name:     "x264",
		args:     []string{"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart"},
		minBytes: 10000,
	},
}

// Finalizer turns a raw capture into the final artifact. Run is the command
// executor, swappable in tests.
type Finalizer struct {
	Run func(ctx context.Context, name string, arg ...string) (string, string, error)
}

func NewFinalizer() *Finalizer {
	return &Finalizer{Run: utils.ExecShellCtx}
}

// Finalize walks the conversion ladder. Each rung writes its own candidate
// file; a rejected candidate is deleted before the next rung runs. The raw
// file is removed only after a candidate has been verified and renamed onto
// the target. When every rung fails the raw file is kept and
// ErrConvertFailed returned alongside its path.
func (f *Finalizer) Finalize(rawPath string, targetPath string) (string, error) {
	inSize := utils.FileSize(rawPath)
	if inSize == 0 {
		return "", fmt.Errorf("raw capture %s is missing or empty", rawPath)
	}
	logger := log.WithField("raw", rawPath)
	if inSize < minConvertSize {
		logger.Infof("capture is only %s, keeping it as-is", utils.FormatSize(inSize))
		return rawPath, nil
	}
	if rawPath == targetPath {
		// capture tool already wrote the target name; finalize beside it
		targetPath = utils.AddSuffix(targetPath, "converted")
	}

	for _, step := range convertSteps {
		candidate := utils.AddSuffix(targetPath, step.name)
		ctx, cancel := context.WithTimeout(context.Background(), convertTimeout)
		args := append([]string{"-y", "-loglevel", "error", "-i", rawPath}, step.args...)
		args = append(args, candidate)
		_, errOut, err := f.Run(ctx, "ffmpeg", args...)
		cancel()

		outSize := utils.FileSize(candidate)
		if err != nil || !accepted(step, inSize, outSize) {
			logger.WithError(err).Warnf("%s attempt rejected, output %s of %s input: %s",
				step.name, utils.FormatSize(outSize), utils.FormatSize(inSize), firstLine(errOut))
			_ = os.Remove(candidate)
			continue
		}

		if err := os.Rename(candidate, targetPath); err != nil {
			logger.WithError(err).Warnf("cannot move %s candidate into place", step.name)
			_ = os.Remove(candidate)
			continue
		}
		if rawPath != targetPath {
			_ = os.Remove(rawPath)
		}
		logger.Infof("%s accepted: %s (%s)", step.name, targetPath, utils.FormatSize(outSize))
		return targetPath, nil
	}

	logger.Warnf("every conversion attempt failed, raw capture retained")
	return rawPath, ErrConvertFailed
}

func accepted(step convertStep, inSize, outSize int64) bool {
	if outSize == 0 {
		return false
	}
	if step.minRatio > 0 && float64(outSize) < float64(inSize)*step.minRatio {
		return false
	}
	if step.minBytes > 0 && outSize <= step.minBytes {
		return false
	}
	return true
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
