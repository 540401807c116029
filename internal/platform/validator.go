package platform

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// Validation errors. These map to the INVALID_URL and UNSUPPORTED_PLATFORM
// API codes; both are non-retryable.
var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Result is the outcome of validating an input URL. Validation is a pure
// function of the URL: no network, no storage.
type Result struct {
	Platform      string
	VideoID       string
	NormalizedURL string
}

// matcher extracts a video id from a parsed URL for one platform.
type matcher struct {
	platform string
	hosts    []string
	extract  func(u *url.URL) string
}

var numericIDRe = regexp.MustCompile(`^\d+$`)

var matchers = []matcher{
	{
		platform: "youtube",
		hosts:    []string{"youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be"},
		extract: func(u *url.URL) string {
			host := stripWWW(u.Host)
			if host == "youtu.be" {
				return firstPathSegment(u.Path)
			}
			switch {
			case strings.HasPrefix(u.Path, "/watch"):
				return u.Query().Get("v")
			case strings.HasPrefix(u.Path, "/shorts/"):
				return segmentAfter(u.Path, "shorts")
			case strings.HasPrefix(u.Path, "/embed/"):
				return segmentAfter(u.Path, "embed")
			}
			return ""
		},
	},
	{
		platform: "tiktok",
		hosts:    []string{"tiktok.com", "vm.tiktok.com"},
		extract: func(u *url.URL) string {
			if stripWWW(u.Host) == "vm.tiktok.com" {
				return firstPathSegment(u.Path)
			}
			if id := segmentAfter(u.Path, "video"); id != "" && numericIDRe.MatchString(id) {
				return id
			}
			return ""
		},
	},
	{
		platform: "instagram",
		hosts:    []string{"instagram.com"},
		extract: func(u *url.URL) string {
			for _, kind := range []string{"reel", "reels", "p", "tv"} {
				if id := segmentAfter(u.Path, kind); id != "" {
					return id
				}
			}
			return ""
		},
	},
	{
		platform: "twitter",
		hosts:    []string{"twitter.com", "x.com"},
		extract: func(u *url.URL) string {
			if id := segmentAfter(u.Path, "status"); id != "" && numericIDRe.MatchString(id) {
				return id
			}
			return ""
		},
	},
	{
		platform: "vimeo",
		hosts:    []string{"vimeo.com", "player.vimeo.com"},
		extract: func(u *url.URL) string {
			for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
				if numericIDRe.MatchString(seg) {
					return seg
				}
			}
			return ""
		},
	},
}

// Validate maps an input URL to a supported platform and extracted video id.
// Returns ErrInvalidURL for malformed input and ErrUnsupportedPlatform when
// no platform claims the host.
func Validate(raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidURL
	}

	host := stripWWW(strings.ToLower(u.Host))
	for _, m := range matchers {
		if !hostMatches(host, m.hosts) {
			continue
		}
		id := m.extract(u)
		if id == "" {
			return nil, ErrInvalidURL
		}
		return &Result{
			Platform:      m.platform,
			VideoID:       id,
			NormalizedURL: normalize(u),
		}, nil
	}

	return nil, ErrUnsupportedPlatform
}

func hostMatches(host string, hosts []string) bool {
	for _, h := range hosts {
		if host == h {
			return true
		}
	}
	return false
}

func stripWWW(host string) string {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i != -1 {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}

func firstPathSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func segmentAfter(path, name string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == name && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return ""
}

// normalize strips query noise and fragments, keeping only what identifies
// the video.
func normalize(u *url.URL) string {
	clean := url.URL{
		Scheme: "https",
		Host:   stripWWW(u.Host),
		Path:   strings.TrimSuffix(u.Path, "/"),
	}
	if v := u.Query().Get("v"); v != "" {
		q := url.Values{}
		q.Set("v", v)
		clean.RawQuery = q.Encode()
	}
	return clean.String()
}
