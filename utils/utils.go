package utils

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	emoji "github.com/fzxiao233/Go-Emoji-Utils"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
)

// MapToStruct decodes the free-form maps we carry around (per-user and
// per-module ExtraConfig) into concrete option structs.
func MapToStruct(mapVal map[string]interface{}, structVal interface{}) error {
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           structVal,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	decoder.Decode(mapVal)
	return nil
}

func HttpGetBuffer(client *http.Client, url string, header map[string]string, buf *bytes.Buffer) (*bytes.Buffer, error) {
	return HttpDoWithBufferEx(context.Background(), client, "GET", url, header, nil, buf)
}

// HttpDoWithBufferEx is the shared HTTP helper. Passing a non-nil buf reuses
// its storage, so callers polling in a loop can hand in pooled buffers.
func HttpDoWithBufferEx(ctx context.Context, client *http.Client, meth string, url string, header map[string]string, data []byte, buf *bytes.Buffer) (*bytes.Buffer, error) {
	if client == nil {
		client = &http.Client{}
	}
	var dataReader io.Reader
	if data != nil {
		dataReader = bytes.NewReader(data)
	}
	req, _ := http.NewRequestWithContext(ctx, meth, url, dataReader)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/75.0.3770.142 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if res != nil {
		defer res.Body.Close()
	}
	if err != nil || res == nil {
		err = fmt.Errorf("HttpDo error %w", err)
		return nil, err
	}

	if res.StatusCode != 200 && res.StatusCode != 206 {
		if res.StatusCode == 404 {
			err = fmt.Errorf("HttpDo status error %d", res.StatusCode)
			return nil, err
		} else {
			err = fmt.Errorf("HttpDo status error %d with header %v", res.StatusCode, req.Header)
			return nil, err
		}
	}

	if res.ContentLength >= 0 {
		if buf == nil {
			buf = bytes.NewBuffer(make([]byte, res.ContentLength))
		}
		buf.Reset()
		if int64(buf.Cap()) < res.ContentLength {
			buf.Grow(int(res.ContentLength) - buf.Cap())
		}
		n, err := io.Copy(buf, res.Body)
		if err != nil {
			return nil, err
		}
		if n != res.ContentLength {
			return nil, fmt.Errorf("Got unexpected payload: expected: %v, got %v", res.ContentLength, n)
		}
	} else {
		if buf == nil {
			buf = bytes.NewBuffer(make([]byte, 2048))
		}
		buf.Reset()
		_, err := io.Copy(buf, res.Body)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func HttpGet(client *http.Client, url string, header map[string]string) ([]byte, error) {
	buf, err := HttpGetBuffer(client, url, header, nil)
	if err != nil {
		return nil, err
	} else {
		return buf.Bytes(), nil
	}
}

func HttpPost(client *http.Client, url string, header map[string]string, data []byte) ([]byte, error) {
	buf, err := HttpDoWithBufferEx(context.Background(), client, "POST", url, header, data, nil)
	if buf == nil {
		return nil, err
	} else {
		return buf.Bytes(), err
	}
}

func IsFileExist(aFilepath string) bool {
	if _, err := os.Stat(aFilepath); err == nil {
		return true
	} else {
		return false
	}
}

func FileSize(aFilepath string) int64 {
	fi, err := os.Stat(aFilepath)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func MakeDir(dirPath string) (ret string, err error) {
	err = MkdirAll(dirPath)
	if err != nil {
		log.Errorf("mkdir error: %s, err: %s", dirPath, err)
		ret = ""
		return
	}
	return dirPath, nil
}

// AddSuffix inserts suffix before the extension: a/b.mp4 + "remux" -> a/b_remux.mp4.
func AddSuffix(aFilepath string, suffix string) string {
	dir, file := filepath.Split(aFilepath)
	ext := path.Ext(file)
	filename := strings.TrimSuffix(path.Base(file), ext)
	filename += "_"
	filename += suffix
	return dir + filename + ext
}

// ChangeName derives a collision-free variant of aFilepath by appending the
// current unix millisecond timestamp.
func ChangeName(aFilepath string) string {
	return AddSuffix(aFilepath, strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10))
}

func GetTimeNow() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// RemoveIllegalChar strips characters that break filenames on common
// filesystems, plus emojis. Live titles are frequently pure emoji, so the
// result may well be empty; callers substitute their own fallback.
func RemoveIllegalChar(Title string) string {
	illegalChars := []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*"}
	Title = emoji.RemoveAll(Title)
	for _, char := range illegalChars {
		Title = strings.ReplaceAll(Title, char, "")
	}
	return strings.TrimSpace(Title)
}

// FormatDuration renders elapsed wall clock as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatSize renders a byte count in the largest unit that keeps the number
// readable.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func RPartition(s string, sep string) (string, string, string) {
	parts := strings.SplitAfter(s, sep)
	if len(parts) == 1 {
		return "", "", parts[0]
	}
	return strings.Join(parts[0:len(parts)-1], ""), sep, parts[len(parts)-1]
}

// ParseCookiesFile reads a Netscape-format cookies.txt and returns the
// name=value pairs. Comment and malformed lines are skipped.
func ParseCookiesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cookies := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		cookies[fields[5]] = fields[6]
	}
	return cookies, scanner.Err()
}

// CookieHeader flattens parsed cookies into a Cookie header value.
func CookieHeader(cookies map[string]string) string {
	pairs := make([]string, 0, len(cookies))
	for k, v := range cookies {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, "; ")
}
