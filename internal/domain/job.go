package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus represents the lifecycle state of a conversion job.
// Values include JobStatusQueued, JobStatusProcessing, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ConversionFormat is the requested output container.
type ConversionFormat string

const (
	FormatMP3 ConversionFormat = "mp3"
	FormatMP4 ConversionFormat = "mp4"
)

// VideoMetadata holds video details captured mid-pipeline from the
// processing service.
type VideoMetadata struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Uploader  string  `json:"uploader,omitempty"`
}

// Value implements the driver.Valuer interface for database serialization.
func (m VideoMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *VideoMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = VideoMetadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan VideoMetadata")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// ConversionJob represents one conversion request and its tracked lifecycle.
// Request parameters (url, platform, format, quality) are immutable after
// creation; progress is monotonically non-decreasing while processing.
type ConversionJob struct {
	ID           string           `gorm:"type:text;primaryKey" json:"id"`
	URL          string           `gorm:"type:text;not null" json:"url"`
	VideoID      string           `gorm:"type:text" json:"video_id,omitempty"`
	Platform     string           `gorm:"type:text;not null;index:idx_jobs_platform" json:"platform"`
	Format       ConversionFormat `gorm:"type:text;not null" json:"format"`
	Quality      string           `gorm:"type:text" json:"quality"`
	Status       JobStatus        `gorm:"type:text;index:idx_jobs_status;default:queued" json:"status"`
	Progress     int              `gorm:"default:0" json:"progress"`
	DownloadURL  string           `gorm:"type:text" json:"download_url,omitempty"`
	FilePath     string           `gorm:"type:text;index:idx_jobs_file_path" json:"file_path,omitempty"`
	Metadata     *VideoMetadata   `gorm:"type:text" json:"metadata,omitempty"`
	ErrorMessage string           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	ExpiresAt    time.Time        `gorm:"index:idx_jobs_expires" json:"expires_at"`
}

// TableName returns the database table name for ConversionJob.
func (ConversionJob) TableName() string {
	return "conversion_jobs"
}

// StatusSnapshot is the point-in-time view of a job served to clients by
// the status endpoint and the push channel. The polled snapshot is the
// ground truth when the two sources disagree.
type StatusSnapshot struct {
	JobID        string         `json:"jobId"`
	Status       JobStatus      `json:"status"`
	Progress     int            `json:"progress"`
	DownloadURL  string         `json:"downloadUrl,omitempty"`
	Metadata     *VideoMetadata `json:"metadata,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

// Snapshot builds the client-facing view of the job.
func (j *ConversionJob) Snapshot() *StatusSnapshot {
	return &StatusSnapshot{
		JobID:        j.ID,
		Status:       j.Status,
		Progress:     j.Progress,
		DownloadURL:  j.DownloadURL,
		Metadata:     j.Metadata,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		ExpiresAt:    j.ExpiresAt,
	}
}
