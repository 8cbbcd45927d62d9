package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType discriminates what a queued job asks the worker to do.
type JobType string

const (
	// JobTypeSuggestions is a job generating task suggestions for a planning
	JobTypeSuggestions JobType = "timeline_suggestions"
)

// Job is the unit of work exchanged between the API and the worker.
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	PlanningID uuid.UUID      `json:"planning_id"`
	Scenario   string         `json:"scenario,omitempty"`    // Freeform scenario describing the couple's day
	AnchorTime *time.Time     `json:"anchor_time,omitempty"` // Ceremony anchor given to the provider for context
	NotBefore  *time.Time     `json:"not_before,omitempty"`  // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`   // Latest time to process job (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`    // Job-specific data
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a job with a fresh id and the default retry budget.
func NewJob(jobType JobType, planningID uuid.UUID, scenario string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		PlanningID: planningID,
		Scenario:   scenario,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess reports whether the job's processing window is open now.
// A nil bound means no constraint on that side.
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired reports whether the job is past its NotAfter deadline.
func (j *Job) IsExpired() bool {
	return j.NotAfter != nil && time.Now().After(*j.NotAfter)
}

// CanRetry reports whether the retry budget still has room.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry consumes one retry from the budget.
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
