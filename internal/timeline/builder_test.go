package timeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

func day(hour, minute int) time.Time {
	return time.Date(2026, 6, 20, hour, minute, 0, 0, time.UTC)
}

// seqCounter mimics the questionnaire: activities declared later carry a
// higher sequence.
var seqCounter int64

func activity(title string, category models.Category, durationMin int) models.Activity {
	return models.Activity{
		ID:          uuid.New(),
		Title:       title,
		Category:    category,
		Seq:         int(atomic.AddInt64(&seqCounter, 1)),
		DurationMin: durationMin,
		Source:      models.SourceQuestionnaire,
	}
}

func pinnedCeremony(title string, at time.Time, durationMin int) models.Activity {
	a := activity(title, models.CategoryCeremony, durationMin)
	a.PinnedStart = &at
	a.IsHighlight = true
	return a
}

func find(t *testing.T, tl []models.Activity, title string) models.Activity {
	t.Helper()
	for i := range tl {
		if tl[i].Title == title {
			return tl[i]
		}
	}
	t.Fatalf("activity %q not found in timeline", title)
	return models.Activity{}
}

func TestBuild_SingleCeremonyPrepWindow(t *testing.T) {
	t.Parallel()

	input := []models.Activity{
		pinnedCeremony("Cérémonie", day(15, 0), 60),
		activity("Coiffure", models.CategoryPreparation, 60),
		activity("Maquillage", models.CategoryPreparation, 45),
		activity("Habillage", models.CategoryPreparation, 30),
	}

	built := NewBuilder(nil).Build(input, false)

	if len(built) != 4 {
		t.Fatalf("Expected 4 activities, got %d", len(built))
	}

	// Preparation starts 180 minutes before the anchored ceremony
	coiffure := find(t, built, "Coiffure")
	if !coiffure.StartTime.Equal(day(12, 0)) || !coiffure.EndTime.Equal(day(13, 0)) {
		t.Errorf("Coiffure = [%v, %v], want [12:00, 13:00]", coiffure.StartTime, coiffure.EndTime)
	}

	maquillage := find(t, built, "Maquillage")
	if !maquillage.StartTime.Equal(day(13, 5)) || !maquillage.EndTime.Equal(day(13, 50)) {
		t.Errorf("Maquillage = [%v, %v], want [13:05, 13:50]", maquillage.StartTime, maquillage.EndTime)
	}

	habillage := find(t, built, "Habillage")
	if !habillage.StartTime.Equal(day(13, 55)) || !habillage.EndTime.Equal(day(14, 25)) {
		t.Errorf("Habillage = [%v, %v], want [13:55, 14:25]", habillage.StartTime, habillage.EndTime)
	}

	// The ceremony keeps its explicit time; the gap before it stays idle
	ceremony := find(t, built, "Cérémonie")
	if !ceremony.StartTime.Equal(day(15, 0)) || !ceremony.EndTime.Equal(day(16, 0)) {
		t.Errorf("Cérémonie = [%v, %v], want [15:00, 16:00]", ceremony.StartTime, ceremony.EndTime)
	}
}

func TestBuild_SameSlotKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	// Habillage comes after Maquillage in the questionnaire but before it
	// alphabetically; the declared sequence must win inside a slot.
	coiffure := activity("Coiffure", models.CategoryPreparation, 60)
	maquillage := activity("Maquillage", models.CategoryPreparation, 45)
	habillage := activity("Habillage", models.CategoryPreparation, 30)

	built := NewBuilder(nil).Build([]models.Activity{
		pinnedCeremony("Cérémonie", day(15, 0), 60),
		habillage, coiffure, maquillage,
	}, false)

	wantOrder := []string{"Coiffure", "Maquillage", "Habillage", "Cérémonie"}
	for i, want := range wantOrder {
		if built[i].Title != want {
			t.Fatalf("Position %d = %q, want %q (full order: %v)", i, built[i].Title, want, titles(built))
		}
	}
}

func TestBuild_PinnedTimeWinsOverCursor(t *testing.T) {
	t.Parallel()

	// Preparation overruns the 180-minute window: 200 minutes of work push
	// the cursor past the anchor, but the ceremony keeps its pinned time.
	input := []models.Activity{
		pinnedCeremony("Cérémonie", day(15, 0), 60),
		activity("Préparatifs", models.CategoryPreparation, 200),
	}

	built := NewBuilder(nil).Build(input, false)

	prep := find(t, built, "Préparatifs")
	if !prep.StartTime.Equal(day(12, 0)) || !prep.EndTime.Equal(day(15, 20)) {
		t.Errorf("Préparatifs = [%v, %v], want [12:00, 15:20]", prep.StartTime, prep.EndTime)
	}

	ceremony := find(t, built, "Cérémonie")
	if !ceremony.StartTime.Equal(day(15, 0)) {
		t.Errorf("Cérémonie start = %v, want pinned 15:00", ceremony.StartTime)
	}
}

func TestBuild_NoPinnedCeremonyDefaultsToClock(t *testing.T) {
	t.Parallel()

	now := day(9, 30)
	b := NewBuilder(nil).WithClock(func() time.Time { return now })

	built := b.Build([]models.Activity{
		activity("Cocktail", models.CategoryCocktail, 90),
	}, false)

	if !built[0].StartTime.Equal(now) {
		t.Errorf("Start = %v, want clock fallback %v", built[0].StartTime, now)
	}
}

func TestBuild_SingleCeremonyOrdering(t *testing.T) {
	t.Parallel()

	legOut := activity("Trajet aller", models.CategoryTravel, 30)
	legOut.Leg = 1
	legBack := activity("Trajet retour", models.CategoryTravel, 15)
	legBack.Leg = 2

	input := []models.Activity{
		activity("Soirée", models.CategoryParty, 240),
		activity("Repas", models.CategoryMeal, 180),
		legBack,
		activity("Cocktail", models.CategoryCocktail, 90),
		pinnedCeremony("Cérémonie", day(15, 0), 60),
		activity("Photos", models.CategoryPhotos, 30),
		legOut,
		activity("Coiffure", models.CategoryPreparation, 60),
	}

	built := NewBuilder(nil).Build(input, false)

	wantOrder := []string{
		"Coiffure", "Trajet aller", "Cérémonie", "Trajet retour",
		"Photos", "Cocktail", "Repas", "Soirée",
	}
	for i, want := range wantOrder {
		if built[i].Title != want {
			t.Fatalf("Position %d = %q, want %q (full order: %v)", i, built[i].Title, want, titles(built))
		}
	}

	// Travel chains without buffer, ceremony adds the 15-minute settle gap
	ceremony := find(t, built, "Cérémonie")
	back := find(t, built, "Trajet retour")
	if !back.StartTime.Equal(ceremony.EndTime.Add(15 * time.Minute)) {
		t.Errorf("Trajet retour start = %v, want ceremony end + 15min", back.StartTime)
	}
	photos := find(t, built, "Photos")
	if !photos.StartTime.Equal(back.EndTime) {
		t.Errorf("Photos start = %v, want travel end %v (no buffer after travel)", photos.StartTime, back.EndTime)
	}
}

func TestBuild_DualCeremonyOrdering(t *testing.T) {
	t.Parallel()

	prep1 := activity("Préparatifs", models.CategoryPreparation, 60)
	prep1.Block = 1
	prep2 := activity("Retouches", models.CategoryPreparation, 20)
	prep2.Block = 2

	legs := make([]models.Activity, 4)
	for i := range legs {
		legs[i] = activity("Trajet "+string(rune('1'+i)), models.CategoryTravel, 15)
		legs[i].Leg = i + 1
	}

	cer1 := pinnedCeremony("Cérémonie civile", day(11, 0), 45)
	cer1.Block = 1
	cer2 := pinnedCeremony("Cérémonie laïque", day(14, 0), 60)
	cer2.Block = 2

	input := []models.Activity{
		cer2, legs[3], prep2, legs[1], cer1, legs[2], prep1, legs[0],
		activity("Photos", models.CategoryPhotos, 30),
	}

	built := NewBuilder(nil).Build(input, true)

	wantOrder := []string{
		"Préparatifs", "Trajet 1", "Cérémonie civile", "Trajet 2", "Trajet 3",
		"Retouches", "Trajet 4", "Cérémonie laïque", "Photos",
	}
	for i, want := range wantOrder {
		if built[i].Title != want {
			t.Fatalf("Position %d = %q, want %q (full order: %v)", i, built[i].Title, want, titles(built))
		}
	}

	// Both ceremonies keep their pinned times
	if s := find(t, built, "Cérémonie civile").StartTime; !s.Equal(day(11, 0)) {
		t.Errorf("First ceremony start = %v, want 11:00", s)
	}
	if s := find(t, built, "Cérémonie laïque").StartTime; !s.Equal(day(14, 0)) {
		t.Errorf("Second ceremony start = %v, want 14:00", s)
	}
}

func TestBuild_DeterministicForShuffledInput(t *testing.T) {
	t.Parallel()

	a := activity("Animation A", models.CategoryCustom, 20)
	b := activity("Animation B", models.CategoryCustom, 20)
	c := activity("Animation C", models.CategoryCustom, 20)
	ceremony := pinnedCeremony("Cérémonie", day(15, 0), 60)

	first := NewBuilder(nil).Build([]models.Activity{a, b, c, ceremony}, false)
	second := NewBuilder(nil).Build([]models.Activity{c, a, ceremony, b}, false)

	if len(first) != len(second) {
		t.Fatalf("Rebuild changed length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Position %d differs across rebuilds: %q vs %q", i, first[i].Title, second[i].Title)
		}
		if !first[i].StartTime.Equal(second[i].StartTime) {
			t.Errorf("Position %d start differs across rebuilds: %v vs %v", i, first[i].StartTime, second[i].StartTime)
		}
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	t.Parallel()

	built := NewBuilder(nil).Build(nil, false)
	if len(built) != 0 {
		t.Errorf("Expected empty timeline, got %d activities", len(built))
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	input := []models.Activity{
		activity("Coiffure", models.CategoryPreparation, 60),
		pinnedCeremony("Cérémonie", day(15, 0), 60),
	}
	inputOrder := []string{input[0].Title, input[1].Title}

	_ = NewBuilder(nil).Build(input, false)

	if input[0].Title != inputOrder[0] || input[1].Title != inputOrder[1] {
		t.Error("Build reordered the input slice")
	}
	if !input[0].StartTime.IsZero() {
		t.Error("Build wrote times into the input slice")
	}
}

func titles(tl []models.Activity) []string {
	out := make([]string, len(tl))
	for i := range tl {
		out[i] = tl[i].Title
	}
	return out
}
