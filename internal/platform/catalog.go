package platform

import "github.com/kaito/tubegrab/internal/domain"

// DefaultCatalog returns the seed platform catalog. Entries already present
// in the database are not overwritten on startup.
func DefaultCatalog() []domain.Platform {
	audioVideo := domain.StringArray{"mp3", "mp4"}
	qualities := domain.QualityMap{
		"mp3": {"low", "medium", "high"},
		"mp4": {"360p", "720p", "1080p"},
	}

	return []domain.Platform{
		{
			Name:             "youtube",
			DisplayName:      "YouTube",
			Domain:           "youtube.com",
			SupportedFormats: audioVideo,
			MaxDurationSecs:  3 * 3600,
			Qualities:        qualities,
			Enabled:          true,
		},
		{
			Name:             "tiktok",
			DisplayName:      "TikTok",
			Domain:           "tiktok.com",
			SupportedFormats: audioVideo,
			MaxDurationSecs:  600,
			Qualities:        qualities,
			Enabled:          true,
		},
		{
			Name:             "instagram",
			DisplayName:      "Instagram",
			Domain:           "instagram.com",
			SupportedFormats: audioVideo,
			MaxDurationSecs:  3600,
			Qualities:        qualities,
			Enabled:          true,
		},
		{
			Name:             "twitter",
			DisplayName:      "Twitter/X",
			Domain:           "x.com",
			SupportedFormats: audioVideo,
			MaxDurationSecs:  1200,
			Qualities:        qualities,
			Enabled:          true,
		},
		{
			Name:             "vimeo",
			DisplayName:      "Vimeo",
			Domain:           "vimeo.com",
			SupportedFormats: audioVideo,
			MaxDurationSecs:  2 * 3600,
			Qualities:        qualities,
			Enabled:          true,
		},
	}
}
