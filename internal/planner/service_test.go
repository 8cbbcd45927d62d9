package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/models"
	"github.com/MATHILDEdemariable/jourj/internal/notify"
	"github.com/MATHILDEdemariable/jourj/internal/questionnaire"
	"github.com/MATHILDEdemariable/jourj/internal/timeline"
)

// mockRepo implements database.ActivityRepositoryInterface in memory.
type mockRepo struct {
	mu        sync.Mutex
	stored    map[uuid.UUID][]models.Activity
	listCalls int
	saves     int
	saveErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{stored: make(map[uuid.UUID][]models.Activity)}
}

func (m *mockRepo) ListByPlanning(ctx context.Context, planningID uuid.UUID) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return append([]models.Activity(nil), m.stored[planningID]...), nil
}

func (m *mockRepo) ReplaceForPlanning(ctx context.Context, planningID uuid.UUID, activities []models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.stored[planningID] = append([]models.Activity(nil), activities...)
	return nil
}

func (m *mockRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *mockRepo) savedTimeline(planningID uuid.UUID) []models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Activity(nil), m.stored[planningID]...)
}

// mockNotifier records notifications.
type mockNotifier struct {
	mu     sync.Mutex
	events []notify.Kind
}

func (m *mockNotifier) Notify(ctx context.Context, planningID uuid.UUID, kind notify.Kind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, kind)
}

func (m *mockNotifier) kinds() []notify.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Kind(nil), m.events...)
}

func newTestService(repo *mockRepo, notifier *mockNotifier) *Service {
	builder := timeline.NewBuilder(zap.NewNop())
	return NewService(builder, repo, notifier, zap.NewNop()).WithSaveDelay(20 * time.Millisecond)
}

func testCatalog() *questionnaire.Catalog {
	return &questionnaire.Catalog{Questions: []questionnaire.Question{
		{
			OptionName:  "coiffure",
			Label:       "Coiffure",
			Category:    models.CategoryPreparation,
			Type:        questionnaire.TypeFixed,
			DurationMin: 60,
		},
		{
			OptionName: "heure_ceremonie",
			Label:      "Cérémonie",
			Category:   models.CategoryCeremony,
			Type:       questionnaire.TypeTime,
		},
	}}
}

func waitForSaves(t *testing.T, repo *mockRepo, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if repo.saveCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d save(s), got %d", want, repo.saveCount())
}

func TestBuildFromAnswers(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	notifier := &mockNotifier{}
	svc := newTestService(repo, notifier)
	planningID := uuid.New()

	eventDate := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
	tl, err := svc.BuildFromAnswers(context.Background(), planningID, testCatalog(), questionnaire.AnswerSet{
		"heure_ceremonie": "15:00",
	}, eventDate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(tl) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(tl))
	}
	// Preparation schedules inside the window before the pinned ceremony
	if tl[0].Title != "Coiffure" || tl[1].Title != "Cérémonie" {
		t.Errorf("Unexpected order: %q, %q", tl[0].Title, tl[1].Title)
	}
	if !tl[1].StartTime.Equal(time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("Ceremony start = %v, want pinned 15:00", tl[1].StartTime)
	}

	// The debounced save eventually lands the built timeline
	waitForSaves(t, repo, 1)
	if got := repo.savedTimeline(planningID); len(got) != 2 {
		t.Errorf("Persisted %d activities, want 2", len(got))
	}
}

func TestTimeline_HydratesOnce(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	planningID := uuid.New()
	repo.stored[planningID] = []models.Activity{
		{ID: uuid.New(), PlanningID: planningID, Title: "Repas", Category: models.CategoryMeal, DurationMin: 180},
	}

	svc := newTestService(repo, &mockNotifier{})

	for i := 0; i < 3; i++ {
		tl, err := svc.Timeline(context.Background(), planningID)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(tl) != 1 || tl[0].Title != "Repas" {
			t.Fatalf("Unexpected timeline: %+v", tl)
		}
	}

	repo.mu.Lock()
	calls := repo.listCalls
	repo.mu.Unlock()
	if calls != 1 {
		t.Errorf("ListByPlanning called %d times, want 1", calls)
	}
}

func TestEditBurstCollapsesIntoOneSave(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	svc := newTestService(repo, &mockNotifier{})
	planningID := uuid.New()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Insert(ctx, planningID, models.Activity{
			Title:       "Discours",
			Category:    models.CategoryCustom,
			DurationMin: 10,
		}, -1); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	waitForSaves(t, repo, 1)
	// Let any stray timers fire before counting
	time.Sleep(60 * time.Millisecond)

	if got := repo.saveCount(); got != 1 {
		t.Errorf("Expected the burst to collapse into 1 save, got %d", got)
	}
	if got := repo.savedTimeline(planningID); len(got) != 5 {
		t.Errorf("Persisted %d activities, want the final 5", len(got))
	}
}

func TestPersistFailureNotifiesWithoutRollback(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	repo.saveErr = errors.New("connection refused")
	notifier := &mockNotifier{}
	svc := newTestService(repo, notifier)
	planningID := uuid.New()

	ctx := context.Background()
	if _, err := svc.Insert(ctx, planningID, models.Activity{
		Title:       "Discours",
		Category:    models.CategoryCustom,
		DurationMin: 10,
	}, -1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(notifier.kinds()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	kinds := notifier.kinds()
	if len(kinds) == 0 || kinds[0] != notify.KindError {
		t.Fatalf("Expected an error notification, got %v", kinds)
	}

	// The in-memory timeline stays authoritative
	tl, err := svc.Timeline(ctx, planningID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(tl) != 1 || tl[0].Title != "Discours" {
		t.Errorf("Expected edit to survive the failed save, got %+v", tl)
	}
}

func TestFlushPersistsPendingEdits(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	svc := newTestService(repo, &mockNotifier{}).WithSaveDelay(time.Hour)
	planningID := uuid.New()

	ctx := context.Background()
	if _, err := svc.Insert(ctx, planningID, models.Activity{
		Title:       "Brunch",
		Category:    models.CategoryMeal,
		DurationMin: 90,
	}, -1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if repo.saveCount() != 0 {
		t.Fatal("Save ran before the debounce window")
	}

	svc.Flush(ctx)

	if repo.saveCount() != 1 {
		t.Errorf("Expected Flush to persist once, got %d saves", repo.saveCount())
	}
	if got := repo.savedTimeline(planningID); len(got) != 1 || got[0].Title != "Brunch" {
		t.Errorf("Unexpected persisted timeline: %+v", got)
	}
}

func TestInsertAssignsIdentityAndSource(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	svc := newTestService(repo, &mockNotifier{})
	planningID := uuid.New()

	tl, err := svc.Insert(context.Background(), planningID, models.Activity{
		Title:       "Discours",
		Category:    models.CategoryCustom,
		DurationMin: 10,
	}, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if tl[0].ID == uuid.Nil {
		t.Error("Expected an id to be assigned")
	}
	if tl[0].PlanningID != planningID {
		t.Error("Expected planning id to be set")
	}
	if tl[0].Source != models.SourceManual {
		t.Errorf("Source = %s, want manual", tl[0].Source)
	}
}

func TestDelete_UnknownActivity(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockRepo(), &mockNotifier{})

	if _, err := svc.Delete(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Error("Expected error for unknown activity")
	}
}

func TestDeleteMany_ReportsRemovedCount(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	svc := newTestService(repo, &mockNotifier{})
	planningID := uuid.New()

	ctx := context.Background()
	var ids []uuid.UUID
	for _, title := range []string{"A", "B", "C"} {
		tl, err := svc.Insert(ctx, planningID, models.Activity{
			Title:       title,
			Category:    models.CategoryCustom,
			DurationMin: 10,
		}, -1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		ids = append(ids, tl[len(tl)-1].ID)
	}

	tl, removed, err := svc.DeleteMany(ctx, planningID, []uuid.UUID{ids[0], uuid.New(), ids[2]})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Removed = %d, want 2", removed)
	}
	if len(tl) != 1 || tl[0].Title != "B" {
		t.Errorf("Unexpected remaining timeline: %+v", tl)
	}
}

func TestMergeSuggestions(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	svc := newTestService(repo, &mockNotifier{})
	planningID := uuid.New()

	ctx := context.Background()
	if _, err := svc.Insert(ctx, planningID, models.Activity{
		Title:       "Cocktail",
		Category:    models.CategoryCocktail,
		DurationMin: 90,
	}, -1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tl, err := svc.MergeSuggestions(ctx, planningID, []models.SuggestedTask{
		{Title: "Lancer de bouquet", Category: models.CategoryParty, DurationMin: 15},
		{Title: "Photobooth", Category: models.Category("inconnu"), DurationMin: 2},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(tl) != 3 {
		t.Fatalf("Expected 3 activities, got %d", len(tl))
	}

	bouquet := tl[1]
	if bouquet.Title != "Lancer de bouquet" || bouquet.Source != models.SourceAI {
		t.Errorf("Unexpected merged suggestion: %+v", bouquet)
	}

	photobooth := tl[2]
	if photobooth.Category != models.CategoryCustom {
		t.Errorf("Category = %s, want coerced to custom", photobooth.Category)
	}
	if photobooth.DurationMin != timeline.MinDurationMin {
		t.Errorf("DurationMin = %d, want clamped to %d", photobooth.DurationMin, timeline.MinDurationMin)
	}

	// Merged activities extend the declaration sequence so rebuilds keep
	// their position
	if tl[0].Seq == 0 || bouquet.Seq <= tl[0].Seq || photobooth.Seq <= bouquet.Seq {
		t.Errorf("Seq = %d, %d, %d, want strictly increasing", tl[0].Seq, bouquet.Seq, photobooth.Seq)
	}
}

func TestRebuildReanchorsDrift(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	planningID := uuid.New()
	at := time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC)
	repo.stored[planningID] = []models.Activity{
		{
			ID: uuid.New(), PlanningID: planningID, Title: "Cérémonie",
			Category: models.CategoryCeremony, DurationMin: 60, PinnedStart: &at,
			StartTime: at.Add(2 * time.Hour), EndTime: at.Add(3 * time.Hour),
		},
		{
			ID: uuid.New(), PlanningID: planningID, Title: "Coiffure",
			Category: models.CategoryPreparation, DurationMin: 60,
			StartTime: at.Add(4 * time.Hour), EndTime: at.Add(5 * time.Hour),
		},
	}

	svc := newTestService(repo, &mockNotifier{})

	tl, err := svc.Rebuild(context.Background(), planningID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The rebuild discards drifted times: preparation moves back before the
	// pinned ceremony, which recovers its explicit start.
	if tl[0].Title != "Coiffure" {
		t.Errorf("First activity = %q, want Coiffure", tl[0].Title)
	}
	ceremony := tl[1]
	if !ceremony.StartTime.Equal(at) {
		t.Errorf("Ceremony start = %v, want re-anchored 15:00", ceremony.StartTime)
	}
}

func TestRebase(t *testing.T) {
	t.Parallel()

	repo := newMockRepo()
	svc := newTestService(repo, &mockNotifier{})
	planningID := uuid.New()

	ctx := context.Background()
	tl, err := svc.Insert(ctx, planningID, models.Activity{
		Title:       "Cocktail",
		Category:    models.CategoryCocktail,
		DurationMin: 90,
	}, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	target := tl[0].StartTime.Add(2 * time.Hour)
	moved, err := svc.Rebase(ctx, planningID, target)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !moved[0].StartTime.Equal(target) {
		t.Errorf("Start = %v, want %v", moved[0].StartTime, target)
	}
	if moved[0].DurationMin != 90 {
		t.Error("Rebase changed a duration")
	}
}
