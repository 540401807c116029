package platform

import (
	"errors"
	"testing"
)

func TestValidateSupportedURLs(t *testing.T) {
	testCases := []struct {
		name           string
		url            string
		wantPlatform   string
		wantVideoID    string
		wantNormalized string
	}{
		{
			name:           "youtube watch",
			url:            "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantPlatform:   "youtube",
			wantVideoID:    "dQw4w9WgXcQ",
			wantNormalized: "https://youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:           "youtube watch with tracking params",
			url:            "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s&list=PLx",
			wantPlatform:   "youtube",
			wantVideoID:    "dQw4w9WgXcQ",
			wantNormalized: "https://youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:         "youtube short link",
			url:          "https://youtu.be/dQw4w9WgXcQ",
			wantPlatform: "youtube",
			wantVideoID:  "dQw4w9WgXcQ",
		},
		{
			name:         "youtube shorts",
			url:          "https://www.youtube.com/shorts/abc123XYZ_-",
			wantPlatform: "youtube",
			wantVideoID:  "abc123XYZ_-",
		},
		{
			name:         "youtube embed",
			url:          "https://www.youtube.com/embed/dQw4w9WgXcQ",
			wantPlatform: "youtube",
			wantVideoID:  "dQw4w9WgXcQ",
		},
		{
			name:         "scheme-less input",
			url:          "youtube.com/watch?v=dQw4w9WgXcQ",
			wantPlatform: "youtube",
			wantVideoID:  "dQw4w9WgXcQ",
		},
		{
			name:         "tiktok video",
			url:          "https://www.tiktok.com/@someuser/video/7123456789012345678",
			wantPlatform: "tiktok",
			wantVideoID:  "7123456789012345678",
		},
		{
			name:         "tiktok short link",
			url:          "https://vm.tiktok.com/ZMabcdef/",
			wantPlatform: "tiktok",
			wantVideoID:  "ZMabcdef",
		},
		{
			name:         "instagram reel",
			url:          "https://www.instagram.com/reel/Cabc123Def/",
			wantPlatform: "instagram",
			wantVideoID:  "Cabc123Def",
		},
		{
			name:         "instagram post",
			url:          "https://instagram.com/p/Cabc123Def",
			wantPlatform: "instagram",
			wantVideoID:  "Cabc123Def",
		},
		{
			name:         "twitter status",
			url:          "https://twitter.com/someone/status/1234567890123456789",
			wantPlatform: "twitter",
			wantVideoID:  "1234567890123456789",
		},
		{
			name:         "x.com status",
			url:          "https://x.com/someone/status/1234567890123456789",
			wantPlatform: "twitter",
			wantVideoID:  "1234567890123456789",
		},
		{
			name:         "vimeo",
			url:          "https://vimeo.com/123456789",
			wantPlatform: "vimeo",
			wantVideoID:  "123456789",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Validate(tc.url)
			if err != nil {
				t.Fatalf("Validate(%q) returned error: %v", tc.url, err)
			}
			if result.Platform != tc.wantPlatform {
				t.Errorf("platform: got %q, want %q", result.Platform, tc.wantPlatform)
			}
			if result.VideoID != tc.wantVideoID {
				t.Errorf("video id: got %q, want %q", result.VideoID, tc.wantVideoID)
			}
			if tc.wantNormalized != "" && result.NormalizedURL != tc.wantNormalized {
				t.Errorf("normalized: got %q, want %q", result.NormalizedURL, tc.wantNormalized)
			}
		})
	}
}

func TestValidateRejectsInvalidURLs(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "empty", url: "", wantErr: ErrInvalidURL},
		{name: "whitespace only", url: "   ", wantErr: ErrInvalidURL},
		{name: "ftp scheme", url: "ftp://youtube.com/watch?v=abc", wantErr: ErrInvalidURL},
		{name: "youtube without video id", url: "https://www.youtube.com/watch", wantErr: ErrInvalidURL},
		{name: "tiktok non-numeric id", url: "https://www.tiktok.com/@user/video/notanumber", wantErr: ErrInvalidURL},
		{name: "twitter profile page", url: "https://twitter.com/someone", wantErr: ErrInvalidURL},
		{name: "unknown host", url: "https://dailymotion.com/video/x123", wantErr: ErrUnsupportedPlatform},
		{name: "plain website", url: "https://example.com/page", wantErr: ErrUnsupportedPlatform},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.url)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate(%q): got error %v, want %v", tc.url, err, tc.wantErr)
			}
		})
	}
}

func TestValidateNormalizationIsStable(t *testing.T) {
	variants := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=dQw4w9WgXcQ&feature=share",
		"youtube.com/watch?v=dQw4w9WgXcQ",
	}

	var first string
	for i, v := range variants {
		result, err := Validate(v)
		if err != nil {
			t.Fatalf("Validate(%q) returned error: %v", v, err)
		}
		if i == 0 {
			first = result.NormalizedURL
			continue
		}
		if result.NormalizedURL != first {
			t.Errorf("variant %q normalized to %q, want %q", v, result.NormalizedURL, first)
		}
	}
}
