package models

import (
	"time"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one translation request. It lives only as long as the request,
// apart from the metadata kept by the status cache and ledger.
type Job struct {
	ID               string
	TraceID          string
	OriginalFilename string
	InputPath        string
	Speed            string
	Mode             string
	WordCount        int
	TargetLanguage   string
	Model            string
	Status           JobStatus
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}
