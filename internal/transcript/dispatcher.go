package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/jobs"
	"github.com/dvloznov/exchange-desk/internal/logger"
	"github.com/dvloznov/exchange-desk/internal/metrics"
)

// Dispatcher hands closed tickets to the job queue.
type Dispatcher struct {
	publisher jobs.Publisher
}

// NewDispatcher returns a dispatcher publishing to p.
func NewDispatcher(p jobs.Publisher) *Dispatcher {
	return &Dispatcher{publisher: p}
}

// Dispatch enqueues delivery of t and returns the job id. It never waits for
// delivery. A job refused by the queue still returns its id so its failure
// can be looked up.
func (d *Dispatcher) Dispatch(ctx context.Context, t domain.Ticket) (string, error) {
	job := &jobs.TranscriptJob{Ticket: t}
	if err := d.publisher.PublishTranscript(ctx, job); err != nil {
		return job.JobID, fmt.Errorf("enqueue transcript for %s: %w", t.Key, err)
	}
	return job.JobID, nil
}

// Handler renders the transcript once and offers it to every sink. Each sink
// is attempted regardless of earlier failures; the job fails if any did.
func Handler(sinks []Sink, now func() time.Time) jobs.JobHandler {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, job *jobs.TranscriptJob) error {
		log := logger.FromContext(ctx).With().
			Str("job_id", job.JobID).
			Str("ticket", job.Ticket.Key).
			Logger()

		html, err := Render(job.Ticket, now())
		if err != nil {
			log.Error().Err(err).Msg("Failed to render transcript")
			return err
		}

		var failed []string
		job.Results = job.Results[:0]
		for _, s := range sinks {
			loc, err := s.Deliver(ctx, job.Ticket, html)
			res := jobs.SinkResult{Sink: s.Name(), Location: loc}
			if err != nil {
				res.Error = err.Error()
				failed = append(failed, s.Name())
				log.Error().Err(err).Str("sink", s.Name()).Msg("Transcript delivery failed")
			} else {
				log.Info().Str("sink", s.Name()).Str("location", loc).Msg("Transcript delivered")
			}
			job.Results = append(job.Results, res)
		}

		if len(failed) > 0 {
			return fmt.Errorf("delivery failed for %s", strings.Join(failed, ", "))
		}
		return nil
	}
}

// Counted records the outcome of every job handled by h. m may be nil.
func Counted(h jobs.JobHandler, m *metrics.Metrics) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.TranscriptJob) error {
		err := h(ctx, job)
		if err != nil {
			m.TranscriptJob(string(jobs.JobStatusFailed))
		} else {
			m.TranscriptJob(string(jobs.JobStatusCompleted))
		}
		return err
	}
}
