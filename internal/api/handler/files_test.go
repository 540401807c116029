package handler

import (
	"testing"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	testCases := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantOK    bool
	}{
		{name: "no header means full object", header: "", wantStart: -1, wantEnd: -1, wantOK: true},
		{name: "open-ended", header: "bytes=200-", wantStart: 200, wantEnd: 999, wantOK: true},
		{name: "bounded", header: "bytes=0-499", wantStart: 0, wantEnd: 499, wantOK: true},
		{name: "end clamped to size", header: "bytes=900-2000", wantStart: 900, wantEnd: 999, wantOK: true},
		{name: "suffix range", header: "bytes=-100", wantStart: 900, wantEnd: 999, wantOK: true},
		{name: "suffix larger than object", header: "bytes=-5000", wantStart: 0, wantEnd: 999, wantOK: true},
		{name: "multi-range falls back to full", header: "bytes=0-1,5-6", wantStart: -1, wantEnd: -1, wantOK: true},
		{name: "non-bytes unit falls back to full", header: "items=0-1", wantStart: -1, wantEnd: -1, wantOK: true},
		{name: "start past end of object", header: "bytes=1000-", wantOK: false},
		{name: "inverted range", header: "bytes=500-100", wantOK: false},
		{name: "negative suffix", header: "bytes=-0", wantOK: false},
		{name: "garbage", header: "bytes=abc-def", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := parseRange(tc.header, size)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if !tc.wantOK {
				return
			}
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("got [%d, %d], want [%d, %d]", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestParseRangeEmptyObject(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantOK    bool
	}{
		{name: "no header serves the empty object", header: "", wantStart: -1, wantEnd: -1, wantOK: true},
		{name: "suffix range is unsatisfiable", header: "bytes=-100", wantOK: false},
		{name: "open-ended range is unsatisfiable", header: "bytes=0-", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := parseRange(tc.header, 0)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if !tc.wantOK {
				return
			}
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("got [%d, %d], want [%d, %d]", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain file", in: "song_123.mp3", want: "song_123.mp3"},
		{name: "traversal rejected", in: "../etc/passwd", want: ""},
		{name: "nested path rejected", in: "a/b.mp3", want: ""},
		{name: "empty rejected", in: "", want: ""},
		{name: "whitespace rejected", in: "   ", want: ""},
		{name: "dots inside name allowed", in: "clip.v2.mp4", want: "clip.v2.mp4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeKey(tc.in); got != tc.want {
				t.Errorf("sanitizeKey(%q): got %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
