package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestNewJob(t *testing.T) {
	t.Parallel()

	planningID := uuid.New()
	scenario := "mariage champêtre, 80 invités, cérémonie laïque en extérieur"

	job := NewJob(JobTypeSuggestions, planningID, scenario)

	if job.ID == uuid.Nil {
		t.Error("Expected a job id")
	}
	if job.Type != JobTypeSuggestions {
		t.Errorf("Type = %s, want %s", job.Type, JobTypeSuggestions)
	}
	if job.PlanningID != planningID {
		t.Errorf("PlanningID = %s, want %s", job.PlanningID, planningID)
	}
	if job.Scenario != scenario {
		t.Errorf("Scenario = %q, want %q", job.Scenario, scenario)
	}
	if job.Metadata == nil {
		t.Error("Expected metadata to be initialized")
	}
	if job.RetryCount != 0 || job.MaxRetries != 3 {
		t.Errorf("Retries = %d/%d, want 0/3", job.RetryCount, job.MaxRetries)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := timePtr(now.Add(-time.Hour))
	future := timePtr(now.Add(time.Hour))

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{"no constraints", nil, nil, true},
		{"not_before passed", past, nil, true},
		{"not_before pending", future, nil, false},
		{"not_after passed", nil, past, false},
		{"not_after pending", nil, future, true},
		{"inside window", past, future, true},
		{"window not open yet", future, timePtr(now.Add(2 * time.Hour)), false},
		{"window already closed", timePtr(now.Add(-2 * time.Hour)), past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := &Job{ID: uuid.New(), Type: JobTypeSuggestions, NotBefore: tt.notBefore, NotAfter: tt.notAfter}
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name     string
		notAfter *time.Time
		want     bool
	}{
		{"no expiration", nil, false},
		{"expired", timePtr(now.Add(-time.Hour)), true},
		{"still valid", timePtr(now.Add(time.Hour)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := &Job{ID: uuid.New(), NotAfter: tt.notAfter}
			if got := job.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_Retries(t *testing.T) {
	t.Parallel()

	job := &Job{ID: uuid.New(), MaxRetries: 3}

	for i := 0; i < 3; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false at retry %d of 3", i)
		}
		job.IncrementRetry()
	}

	if job.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", job.RetryCount)
	}
	if job.CanRetry() {
		t.Error("CanRetry() = true after exhausting retries")
	}
}
