package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/MATHILDEdemariable/jourj/internal/notify"
	"github.com/MATHILDEdemariable/jourj/internal/planner"
	"github.com/MATHILDEdemariable/jourj/internal/queue"
	"github.com/MATHILDEdemariable/jourj/internal/services/ai"
)

// Suggester processes suggestion jobs: it asks the AI provider for tasks
// matching a planning's scenario and merges the usable ones into the
// timeline.
type Suggester struct {
	aiProvider ai.SuggestionProvider
	planner    *planner.Service
	notifier   notify.Notifier
	jobQueue   queue.JobQueue // For re-enqueueing jobs with delays
}

// NewSuggester creates a new suggester
func NewSuggester(
	aiProvider ai.SuggestionProvider,
	plannerService *planner.Service,
	notifier notify.Notifier,
	jobQueue queue.JobQueue,
) *Suggester {
	return &Suggester{
		aiProvider: aiProvider,
		planner:    plannerService,
		notifier:   notifier,
		jobQueue:   jobQueue,
	}
}

// ProcessSuggestionsJob runs one suggestion job end to end
func (s *Suggester) ProcessSuggestionsJob(ctx context.Context, job *queue.Job) error {
	if job.Scenario == "" {
		return fmt.Errorf("scenario is required for suggestions job")
	}

	// Load current timeline so the provider does not repeat planned activities
	current, err := s.planner.Timeline(ctx, job.PlanningID)
	if err != nil {
		return fmt.Errorf("failed to load timeline: %w", err)
	}

	existingTitles := make([]string, 0, len(current))
	for i := range current {
		existingTitles = append(existingTitles, current[i].Title)
	}

	ctx = context.WithValue(ctx, ai.PlanningIDContextKey(), job.PlanningID)
	ctx = context.WithValue(ctx, ai.JobIDContextKey(), job.ID)

	tasks, dropped, err := s.aiProvider.Suggest(ctx, ai.SuggestionRequest{
		Scenario:       job.Scenario,
		AnchorTime:     job.AnchorTime,
		ExistingTitles: existingTitles,
	})
	if err != nil {
		return fmt.Errorf("failed to get suggestions: %w", err)
	}

	if dropped > 0 {
		log.Printf("Dropped %d malformed suggestion(s) for planning %s", dropped, job.PlanningID)
	}

	if len(tasks) == 0 {
		log.Printf("No usable suggestions for planning %s", job.PlanningID)
		s.notifier.Notify(ctx, job.PlanningID, notify.KindWarning,
			"Aucune suggestion exploitable pour ce scénario.")
		return nil
	}

	if _, err := s.planner.MergeSuggestions(ctx, job.PlanningID, tasks); err != nil {
		return fmt.Errorf("failed to merge suggestions: %w", err)
	}

	log.Printf("Merged %d suggestion(s) into planning %s (dropped %d)", len(tasks), job.PlanningID, dropped)
	s.notifier.Notify(ctx, job.PlanningID, notify.KindSuccess,
		fmt.Sprintf("%d suggestion(s) ajoutées à votre planning.", len(tasks)))
	return nil
}

// ProcessJob processes a job based on its type
func (s *Suggester) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeSuggestions:
		if err := s.ProcessSuggestionsJob(ctx, job); err != nil {
			return s.handleJobError(ctx, msg, job, err, "suggestions")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError handles errors from job processing with intelligent retry logic
func (s *Suggester) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error, jobType string) error {
	// Check if it's a quota error (should not retry immediately)
	if ai.IsQuotaError(err) {
		log.Printf("Quota exceeded for %s job %s: %v", jobType, job.ID, err)

		// For quota errors, re-enqueue with long delay (1 hour minimum)
		retryDelay := ai.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		log.Printf("Re-enqueueing %s job %s with NotBefore=%v (quota exhausted, retry in %v)",
			jobType, job.ID, notBefore, retryDelay)

		delayedJob := s.delayedRetry(job, notBefore)

		// Ack the current message
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		// Re-enqueue with delay using NotBefore (RabbitMQ delayed exchange will handle this)
		if s.jobQueue != nil {
			if enqueueErr := s.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue job %s with delay: %v", job.ID, enqueueErr)
				return fmt.Errorf("quota exhausted, failed to re-enqueue: %w", enqueueErr)
			}
			log.Printf("Successfully re-enqueued %s job %s for retry at %v", jobType, job.ID, notBefore)
			return nil // Successfully handled
		}

		// If no queue access, nack without requeue to prevent spam
		log.Printf("Warning: No queue access, cannot re-enqueue job with delay. Sending to DLQ.")
		if nackErr := msg.Nack(false); nackErr != nil {
			log.Printf("Failed to nack quota error job: %v", nackErr)
		}

		return fmt.Errorf("quota exhausted (job %s): %w", job.ID, err)
	}

	// Check if it's a rate limit error (should retry with backoff)
	if ai.IsRateLimitError(err) {
		log.Printf("Rate limited for %s job %s: %v", jobType, job.ID, err)

		retryDelay := ai.GetRetryDelay(err, job.RetryCount)

		// For rate limits, re-enqueue with delay using NotBefore
		if job.CanRetry() && s.jobQueue != nil {
			notBefore := time.Now().Add(retryDelay)
			delayedJob := s.delayedRetry(job, notBefore)

			// Ack the current message
			if ackErr := msg.Ack(); ackErr != nil {
				log.Printf("Failed to ack rate limited job: %v", ackErr)
			}

			// Re-enqueue with delay
			if enqueueErr := s.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
				log.Printf("Failed to re-enqueue rate limited job %s: %v", job.ID, enqueueErr)
				// Fall back to nack with requeue
				if nackErr := msg.Nack(true); nackErr != nil {
					log.Printf("Failed to nack rate limited job: %v", nackErr)
				}
				return fmt.Errorf("rate limited, failed to re-enqueue: %w", enqueueErr)
			}

			log.Printf("Rate limited: re-enqueued %s job %s for retry at %v (delay: %v)",
				jobType, job.ID, notBefore, retryDelay)
			return nil // Successfully handled
		}

		// Fallback: nack with requeue (immediate retry)
		if job.CanRetry() {
			job.IncrementRetry()
			log.Printf("Rate limit: will retry job %s immediately (attempt %d/%d)",
				job.ID, job.RetryCount, job.MaxRetries)
			if nackErr := msg.Nack(true); nackErr != nil {
				log.Printf("Failed to nack rate limited job: %v", nackErr)
			}
			// Return error to signal worker to wait before processing next job
			return fmt.Errorf("rate limited (will retry): %w", err)
		}
	}

	// For other errors, use standard retry logic
	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// delayedRetry clones a job for a delayed retry attempt
func (s *Suggester) delayedRetry(job *queue.Job, notBefore time.Time) *queue.Job {
	return &queue.Job{
		ID:         job.ID,
		Type:       job.Type,
		PlanningID: job.PlanningID,
		Scenario:   job.Scenario,
		AnchorTime: job.AnchorTime,
		NotBefore:  &notBefore,
		NotAfter:   job.NotAfter,
		Metadata:   job.Metadata,
		CreatedAt:  job.CreatedAt,
		RetryCount: job.RetryCount + 1,
		MaxRetries: job.MaxRetries,
	}
}
