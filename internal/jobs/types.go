// Package jobs defines the background job contract used to deliver ticket
// transcripts after closure.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/exchange-desk/internal/domain"
)

// ErrQueueFull is returned by a publisher that has no room for another job.
var ErrQueueFull = errors.New("queue full")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeDeliverTranscript delivers the transcript of a closed ticket to every sink.
	JobTypeDeliverTranscript JobType = "deliver_transcript"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates every sink accepted the transcript.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates at least one sink failed. Jobs are never retried.
	JobStatusFailed JobStatus = "failed"
)

// SinkResult is the outcome of one delivery target.
type SinkResult struct {
	Sink     string `json:"sink"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TranscriptJob delivers the transcript of a closed ticket.
type TranscriptJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Ticket is the closed ticket record. It exists nowhere else once closed.
	Ticket domain.Ticket `json:"ticket"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error summarizes the failed sinks.
	Error string `json:"error,omitempty"`

	// Results holds one entry per sink once the job has run.
	Results []SinkResult `json:"results,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *TranscriptJob) GetID() string { return j.JobID }

// GetType implements the Job interface.
func (j *TranscriptJob) GetType() JobType { return JobTypeDeliverTranscript }

// GetStatus implements the Job interface.
func (j *TranscriptJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishTranscript enqueues a transcript delivery job.
	PublishTranscript(ctx context.Context, job *TranscriptJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may record per-sink results on the job
// before returning; a non-nil error marks the job failed.
type JobHandler func(ctx context.Context, job *TranscriptJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *TranscriptJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*TranscriptJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*TranscriptJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// TicketKey filters jobs by the ticket they deliver.
	TicketKey string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
