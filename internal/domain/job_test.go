package domain

import (
	"testing"
)

func TestJobStatusIsTerminal(t *testing.T) {
	testCases := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusQueued, false},
		{JobStatusProcessing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
	}
	for _, tc := range testCases {
		if got := tc.status.IsTerminal(); got != tc.want {
			t.Errorf("%s.IsTerminal(): got %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestVideoMetadataScanRoundTrip(t *testing.T) {
	meta := VideoMetadata{Title: "clip", Duration: 212.5, Uploader: "someone"}

	val, err := meta.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var fromString VideoMetadata
	if err := fromString.Scan(val); err != nil {
		t.Fatalf("Scan(string) returned error: %v", err)
	}
	if fromString != meta {
		t.Errorf("string round trip: got %+v, want %+v", fromString, meta)
	}

	var fromBytes VideoMetadata
	if err := fromBytes.Scan([]byte(val.(string))); err != nil {
		t.Fatalf("Scan([]byte) returned error: %v", err)
	}
	if fromBytes != meta {
		t.Errorf("bytes round trip: got %+v, want %+v", fromBytes, meta)
	}

	var fromNil VideoMetadata
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) returned error: %v", err)
	}
	if fromNil != (VideoMetadata{}) {
		t.Errorf("nil scan: got %+v, want zero value", fromNil)
	}

	if err := fromNil.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestSnapshotMirrorsJob(t *testing.T) {
	job := &ConversionJob{
		ID:          "job_1",
		Status:      JobStatusProcessing,
		Progress:    40,
		DownloadURL: "",
		Metadata:    &VideoMetadata{Title: "clip"},
	}

	snap := job.Snapshot()
	if snap.JobID != job.ID || snap.Status != job.Status || snap.Progress != job.Progress {
		t.Errorf("snapshot diverges from job: %+v", snap)
	}
	if snap.Metadata != job.Metadata {
		t.Error("snapshot should share the metadata pointer")
	}
}
