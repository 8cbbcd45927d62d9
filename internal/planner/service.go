package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/database"
	"github.com/MATHILDEdemariable/jourj/internal/models"
	"github.com/MATHILDEdemariable/jourj/internal/notify"
	"github.com/MATHILDEdemariable/jourj/internal/questionnaire"
	"github.com/MATHILDEdemariable/jourj/internal/timeline"
)

// DebounceSaveDelay is how long a session waits after the last edit before
// persisting the timeline. Edits landing inside the window reset it; only the
// final state is written.
const DebounceSaveDelay = 500 * time.Millisecond

// saveTimeout bounds the background persistence write.
const saveTimeout = 10 * time.Second

// Service is the single edit path for planning timelines. It keeps the
// authoritative timeline for each planning in memory, applies every mutation
// through the recalculating mutator, and persists asynchronously: an edit is
// acknowledged from memory immediately, and a failed save notifies the user
// without rolling the timeline back.
type Service struct {
	builder  *timeline.Builder
	mutator  *timeline.Mutator
	repo     database.ActivityRepositoryInterface
	notifier notify.Notifier
	logger   *zap.Logger

	saveDelay time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// session is the live state for one planning.
type session struct {
	mu        sync.Mutex
	timeline  []models.Activity
	dual      bool
	saveTimer *time.Timer
}

// NewService creates the planner service.
func NewService(builder *timeline.Builder, repo database.ActivityRepositoryInterface, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{
		builder:   builder,
		mutator:   timeline.NewMutator(),
		repo:      repo,
		notifier:  notifier,
		logger:    logger,
		saveDelay: DebounceSaveDelay,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// WithSaveDelay overrides the debounce window. Used by tests.
func (s *Service) WithSaveDelay(d time.Duration) *Service {
	s.saveDelay = d
	return s
}

// Timeline returns a copy of the current in-memory timeline, loading it from
// storage on first access.
func (s *Service) Timeline(ctx context.Context, planningID uuid.UUID) ([]models.Activity, error) {
	sess, err := s.session(ctx, planningID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return cloneActivities(sess.timeline), nil
}

// Groups returns the timeline clustered into overlap groups for the parallel
// view. Grouping is read-only; the stored timeline is untouched.
func (s *Service) Groups(ctx context.Context, planningID uuid.UUID) ([]timeline.Group, error) {
	tl, err := s.Timeline(ctx, planningID)
	if err != nil {
		return nil, err
	}
	return timeline.GroupOverlapping(tl), nil
}

// BuildFromAnswers generates activities from the questionnaire answers,
// computes the full timeline, and replaces the planning's session with it.
func (s *Service) BuildFromAnswers(ctx context.Context, planningID uuid.UUID, catalog *questionnaire.Catalog, answers questionnaire.AnswerSet, eventDate time.Time) ([]models.Activity, error) {
	activities, dual, err := catalog.Generate(planningID, answers, eventDate)
	if err != nil {
		return nil, fmt.Errorf("failed to generate activities: %w", err)
	}

	built := s.builder.Build(activities, dual)

	sess, err := s.session(ctx, planningID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.timeline = built
	sess.dual = dual
	s.scheduleSaveLocked(planningID, sess)
	result := cloneActivities(sess.timeline)
	sess.mu.Unlock()

	s.logger.Info("timeline_built",
		zap.String("planning_id", planningID.String()),
		zap.Int("activity_count", len(result)),
		zap.Bool("dual_ceremony", dual),
	)
	return result, nil
}

// Rebuild recomputes the timeline from the session's current activity set,
// discarding accumulated drift. Pinned ceremonies re-anchor the result.
func (s *Service) Rebuild(ctx context.Context, planningID uuid.UUID) ([]models.Activity, error) {
	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		return s.builder.Build(sess.timeline, sess.dual), nil
	})
}

// Reorder moves one activity to a new position and recalculates times.
func (s *Service) Reorder(ctx context.Context, planningID uuid.UUID, from, to int) ([]models.Activity, error) {
	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		return s.mutator.Reorder(sess.timeline, from, to)
	})
}

// Insert adds a manual activity at the position hint and recalculates.
func (s *Service) Insert(ctx context.Context, planningID uuid.UUID, a models.Activity, at int) ([]models.Activity, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.PlanningID = planningID
	if a.Source == "" {
		a.Source = models.SourceManual
	}

	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		if a.Seq == 0 {
			a.Seq = nextSeq(sess.timeline)
		}
		return s.mutator.Insert(sess.timeline, a, at), nil
	})
}

// Delete removes one activity and closes the gap.
func (s *Service) Delete(ctx context.Context, planningID, activityID uuid.UUID) ([]models.Activity, error) {
	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		next, found := s.mutator.Delete(sess.timeline, activityID)
		if !found {
			return nil, fmt.Errorf("activity %s not in timeline", activityID)
		}
		return next, nil
	})
}

// DeleteMany removes a batch of activities in one recalculation. Unknown ids
// are skipped; the count of removed activities is reported alongside.
func (s *Service) DeleteMany(ctx context.Context, planningID uuid.UUID, activityIDs []uuid.UUID) ([]models.Activity, int, error) {
	removed := 0
	tl, err := s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		next := sess.timeline
		for _, id := range activityIDs {
			if after, found := s.mutator.Delete(next, id); found {
				next = after
				removed++
			}
		}
		return next, nil
	})
	return tl, removed, err
}

// UpdateField applies a partial edit to one activity. Duration changes
// recalculate from the edited activity forward.
func (s *Service) UpdateField(ctx context.Context, planningID, activityID uuid.UUID, patch timeline.FieldPatch) ([]models.Activity, error) {
	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		return s.mutator.UpdateField(sess.timeline, activityID, patch)
	})
}

// Rebase shifts the whole timeline so the anchor lands on the new time,
// preserving every relative offset.
func (s *Service) Rebase(ctx context.Context, planningID uuid.UUID, newAnchorTime time.Time) ([]models.Activity, error) {
	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		return s.mutator.RebaseAnchor(sess.timeline, newAnchorTime), nil
	})
}

// MergeSuggestions appends accepted suggestions to the end of the timeline.
// Suggestion durations below the edit floor are clamped up on entry.
func (s *Service) MergeSuggestions(ctx context.Context, planningID uuid.UUID, tasks []models.SuggestedTask) ([]models.Activity, error) {
	return s.edit(ctx, planningID, func(sess *session) ([]models.Activity, error) {
		next := sess.timeline
		seq := nextSeq(sess.timeline)
		for _, t := range tasks {
			category := t.Category
			if !category.Valid() {
				category = models.CategoryCustom
			}
			next = s.mutator.Insert(next, models.Activity{
				ID:          uuid.New(),
				PlanningID:  planningID,
				Title:       t.Title,
				Category:    category,
				Seq:         seq,
				Notes:       t.Description,
				DurationMin: t.DurationMin,
				Source:      models.SourceAI,
			}, len(next))
			seq++
		}
		return next, nil
	})
}

// Flush forces a pending save to run now and waits for it. Used on shutdown.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		sess := s.lookup(id)
		if sess == nil {
			continue
		}
		sess.mu.Lock()
		pending := sess.saveTimer != nil && sess.saveTimer.Stop()
		sess.saveTimer = nil
		snapshot := cloneActivities(sess.timeline)
		sess.mu.Unlock()

		if pending {
			s.persist(ctx, id, snapshot)
		}
	}
}

// edit loads the session, applies the mutation under its lock, schedules the
// debounced save, and returns a copy of the new timeline.
func (s *Service) edit(ctx context.Context, planningID uuid.UUID, fn func(*session) ([]models.Activity, error)) ([]models.Activity, error) {
	sess, err := s.session(ctx, planningID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	next, err := fn(sess)
	if err != nil {
		return nil, err
	}

	sess.timeline = next
	s.scheduleSaveLocked(planningID, sess)
	return cloneActivities(next), nil
}

// session returns the live session for a planning, hydrating it from storage
// on first access.
func (s *Service) session(ctx context.Context, planningID uuid.UUID) (*session, error) {
	if sess := s.lookup(planningID); sess != nil {
		return sess, nil
	}

	stored, err := s.repo.ListByPlanning(ctx, planningID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[planningID]; ok {
		return sess, nil
	}
	sess := &session{
		timeline: stored,
		dual:     inferDual(stored),
	}
	s.sessions[planningID] = sess
	return sess, nil
}

func (s *Service) lookup(planningID uuid.UUID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[planningID]
}

// scheduleSaveLocked arms the debounce timer; the caller holds sess.mu. A
// timer already running is reset, so bursts of edits collapse into one write
// carrying the final state.
func (s *Service) scheduleSaveLocked(planningID uuid.UUID, sess *session) {
	if sess.saveTimer != nil {
		sess.saveTimer.Stop()
	}
	sess.saveTimer = time.AfterFunc(s.saveDelay, func() {
		sess.mu.Lock()
		snapshot := cloneActivities(sess.timeline)
		sess.saveTimer = nil
		sess.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		s.persist(ctx, planningID, snapshot)
	})
}

// persist writes the snapshot. Failure is surfaced to the user and logged;
// the in-memory timeline stays authoritative either way.
func (s *Service) persist(ctx context.Context, planningID uuid.UUID, snapshot []models.Activity) {
	if err := s.repo.ReplaceForPlanning(ctx, planningID, snapshot); err != nil {
		s.logger.Warn("failed_to_persist_timeline",
			zap.String("planning_id", planningID.String()),
			zap.Int("activity_count", len(snapshot)),
			zap.Error(err),
		)
		s.notifier.Notify(ctx, planningID, notify.KindError,
			"Vos dernières modifications n'ont pas pu être enregistrées. Elles restent visibles, réessayez plus tard.")
		return
	}
	s.notifier.Notify(ctx, planningID, notify.KindSuccess, "Planning enregistré.")
}

// nextSeq returns a declaration sequence after every existing one, so a later
// rebuild keeps inserted activities behind the questionnaire set they joined.
func nextSeq(tl []models.Activity) int {
	highest := 0
	for i := range tl {
		if tl[i].Seq > highest {
			highest = tl[i].Seq
		}
	}
	return highest + 1
}

func inferDual(tl []models.Activity) bool {
	for i := range tl {
		if tl[i].Category == models.CategoryCeremony && tl[i].Block >= 2 {
			return true
		}
	}
	return false
}

func cloneActivities(tl []models.Activity) []models.Activity {
	next := make([]models.Activity, len(tl))
	copy(next, tl)
	return next
}
