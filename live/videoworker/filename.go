package videoworker

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nekomirai/Tik_Record/utils"
)

const titleMaxLen = 30

// GenerateFilename expands the configured pattern for one recording and
// probes dir until the name is free. The returned path carries the .mp4
// extension of the finished artifact; the raw capture file derives its own
// name from it.
//
// Placeholders: {username} {date} {time} {datetime} {title}. A millisecond
// component is always appended so captures restarted within one second
// cannot collide, and a counter handles whatever still does.
func GenerateFilename(dir string, pattern string, username string, title string, now time.Time) string {
	name := pattern
	name = strings.ReplaceAll(name, "{username}", username)
	name = strings.ReplaceAll(name, "{date}", now.Format("20060102"))
	name = strings.ReplaceAll(name, "{time}", now.Format("150405"))
	name = strings.ReplaceAll(name, "{datetime}", now.Format("20060102_150405"))
	if strings.Contains(name, "{title}") {
		name = strings.ReplaceAll(name, "{title}", cleanTitle(title))
	}
	name = fmt.Sprintf("%s_%03d", name, now.Nanosecond()/int(time.Millisecond))

	base := filepath.Join(dir, name)
	aFilepath := base + ".mp4"
	if !utils.IsFileExist(aFilepath) {
		return aFilepath
	}
	for counter := 1; counter <= 999; counter++ {
		aFilepath = fmt.Sprintf("%s_%03d.mp4", base, counter)
		if !utils.IsFileExist(aFilepath) {
			return aFilepath
		}
	}
	// 999 collisions means the counter scheme lost; fall back to a
	// timestamp suffix.
	return utils.ChangeName(base + ".mp4")
}

// cleanTitle makes a live title safe for a filename. Titles made entirely
// of emoji clean down to nothing, hence the fallback.
func cleanTitle(title string) string {
	t := utils.RemoveIllegalChar(title)
	if runes := []rune(t); len(runes) > titleMaxLen {
		t = string(runes[:titleMaxLen])
	}
	t = strings.TrimSpace(t)
	if t == "" {
		t = "live"
	}
	return t
}

// RawPathFor names the in-progress capture file next to its final target.
func RawPathFor(targetPath string) string {
	return strings.TrimSuffix(targetPath, filepath.Ext(targetPath)) + "_raw.flv"
}
