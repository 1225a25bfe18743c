package base

import (
	"errors"
	"strings"
)

// Resolution failures the rest of the pipeline branches on. ErrNotLive is
// the confirmed-offline answer, not a failure to find out.
var (
	ErrNotLive       = errors.New("user is not live")
	ErrNotFound      = errors.New("user does not exist")
	ErrPrivateStream = errors.New("account is private, login required")
	ErrNeedCookies   = errors.New("verification page hit, configure cookies")
)

// ClassifyExtractorError maps extractor output onto the error values above.
// Returns nil when the text matches nothing known; callers keep their
// original error in that case. The offline check runs first: extractor
// messages for offline users often also mention the word "private".
func ClassifyExtractorError(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "not currently live"), strings.Contains(m, "offline"):
		return ErrNotLive
	case strings.Contains(m, "captcha"), strings.Contains(m, "verify"):
		return ErrNeedCookies
	case strings.Contains(m, "private"):
		return ErrPrivateStream
	case strings.Contains(m, "not exist"), strings.Contains(m, "404"):
		return ErrNotFound
	}
	return nil
}
