package utils

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRemoveIllegalChar(t *testing.T) {
	type args struct {
		Title string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"1", args{Title: "👿1"}, "1"},
		{"slashes", args{Title: "a/b\\c"}, "abc"},
		{"windows reserved", args{Title: "so:me|ti?tle*"}, "sometitle"},
		{"angle quotes", args{Title: "<live> \"stream\""}, "live stream"},
		{"all emoji", args{Title: "🎤🎶"}, ""},
		{"plain", args{Title: "morning show"}, "morning show"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveIllegalChar(tt.args.Title); got != tt.want {
				t.Errorf("RemoveIllegalChar() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddSuffix(t *testing.T) {
	type args struct {
		aFilepath string
		suffix    string
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"plain", args{"/tmp/rec/vid.mp4", "remux"}, "/tmp/rec/vid_remux.mp4"},
		{"no ext", args{"/tmp/rec/vid", "raw"}, "/tmp/rec/vid_raw"},
		{"dotted dir", args{"/tmp/re.c/vid.flv", "x"}, "/tmp/re.c/vid_x.flv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddSuffix(tt.args.aFilepath, tt.args.suffix); got != tt.want {
				t.Errorf("AddSuffix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00:00"},
		{"seconds", 42 * time.Second, "00:00:42"},
		{"hours", 2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
		{"subsecond truncates", 1500 * time.Millisecond, "00:00:01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"bytes", 512, "512 B"},
		{"kib", 51200, "50.00 KiB"},
		{"mib", 5 * 1024 * 1024, "5.00 MiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSize(tt.bytes); got != tt.want {
				t.Errorf("FormatSize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRPartition(t *testing.T) {
	type args struct {
		s   string
		sep string
	}
	tests := []struct {
		name  string
		args  args
		want  string
		want1 string
		want2 string
	}{
		{"found", args{"a/b/c", "/"}, "a/b/", "/", "c"},
		{"missing", args{"abc", "/"}, "", "", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, got1, got2 := RPartition(tt.args.s, tt.args.sep)
			if got != tt.want || got1 != tt.want1 || got2 != tt.want2 {
				t.Errorf("RPartition() = (%v, %v, %v), want (%v, %v, %v)",
					got, got1, got2, tt.want, tt.want1, tt.want2)
			}
		})
	}
}

func TestParseCookiesFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "cookies")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	data := "# Netscape HTTP Cookie File\n" +
		"\n" +
		".example.com\tTRUE\t/\tTRUE\t0\tsessionid\tabc123\n" +
		".example.com\tTRUE\t/\tTRUE\t0\ttt_csrf\txyz\n" +
		"malformed line\n"
	path := filepath.Join(dir, "cookies.txt")
	if err := ioutil.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ParseCookiesFile(path)
	if err != nil {
		t.Fatalf("ParseCookiesFile() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseCookiesFile() len = %v, want 2", len(got))
	}
	if got["sessionid"] != "abc123" {
		t.Errorf("sessionid = %v, want abc123", got["sessionid"])
	}
	if got["tt_csrf"] != "xyz" {
		t.Errorf("tt_csrf = %v, want xyz", got["tt_csrf"])
	}
}
