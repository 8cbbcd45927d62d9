package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/models"
	"github.com/MATHILDEdemariable/jourj/internal/planner"
	"github.com/MATHILDEdemariable/jourj/internal/questionnaire"
	"github.com/MATHILDEdemariable/jourj/internal/queue"
	"github.com/MATHILDEdemariable/jourj/internal/request"
	"github.com/MATHILDEdemariable/jourj/internal/services/sharetoken"
	"github.com/MATHILDEdemariable/jourj/internal/timeline"
	"github.com/MATHILDEdemariable/jourj/internal/validation"
)

const (
	// MaxTitleLength is the maximum length for activity titles
	MaxTitleLength = 500
	// MaxNotesLength is the maximum length for activity notes
	MaxNotesLength = 5000
	// MaxScenarioLength is the maximum length for suggestion scenarios
	MaxScenarioLength = 5000
	// MaxBulkDeleteIDs caps one bulk-delete request
	MaxBulkDeleteIDs = 100
)

// TimelineHandler handles planning timeline requests
type TimelineHandler struct {
	planner  *planner.Service
	catalog  *questionnaire.Catalog
	jobQueue queue.JobQueue
	tokens   *sharetoken.Manager
	logger   *zap.Logger
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(
	plannerService *planner.Service,
	catalog *questionnaire.Catalog,
	jobQueue queue.JobQueue,
	tokens *sharetoken.Manager,
	logger *zap.Logger,
) *TimelineHandler {
	return &TimelineHandler{
		planner:  plannerService,
		catalog:  catalog,
		jobQueue: jobQueue,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterRoutes registers timeline routes on the given router.
// The router should already have the /plannings/{planningID} prefix.
func (h *TimelineHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/timeline", h.GetTimeline).Methods("GET")
	r.HandleFunc("/timeline/build", h.BuildTimeline).Methods("POST")
	r.HandleFunc("/timeline/rebuild", h.RebuildTimeline).Methods("POST")
	r.HandleFunc("/timeline/reorder", h.ReorderTimeline).Methods("POST")
	r.HandleFunc("/timeline/rebase", h.RebaseTimeline).Methods("POST")
	r.HandleFunc("/activities", h.CreateActivity).Methods("POST")
	r.HandleFunc("/activities/bulk-delete", h.BulkDeleteActivities).Methods("POST")
	r.HandleFunc("/activities/{id}", h.UpdateActivity).Methods("PATCH")
	r.HandleFunc("/activities/{id}", h.DeleteActivity).Methods("DELETE")
	r.HandleFunc("/suggestions", h.RequestSuggestions).Methods("POST")
	r.HandleFunc("/share", h.CreateShareLink).Methods("POST")
}

// BuildTimelineRequest represents a timeline build request
type BuildTimelineRequest struct {
	Answers   map[string]any `json:"answers" validate:"required"`
	EventDate string         `json:"event_date" validate:"required,datetime=2006-01-02"`
}

// ReorderRequest represents a reorder request
type ReorderRequest struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}

// RebaseRequest represents an anchor rebase request
type RebaseRequest struct {
	AnchorTime time.Time `json:"anchor_time" validate:"required"`
}

// CreateActivityRequest represents a manual activity creation request
type CreateActivityRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=500"`
	Category    string   `json:"category" validate:"required,category"`
	DurationMin int      `json:"duration_min" validate:"gte=0"`
	Position    *int     `json:"position,omitempty"`
	Notes       string   `json:"notes,omitempty" validate:"max=5000"`
	AssignedTo  []string `json:"assigned_to,omitempty"`
	IsHighlight bool     `json:"is_highlight,omitempty"`
}

// UpdateActivityRequest represents a partial activity update
type UpdateActivityRequest struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	DurationMin *int      `json:"duration_min,omitempty" validate:"omitempty,gte=0"`
	Notes       *string   `json:"notes,omitempty" validate:"omitempty,max=5000"`
	AssignedTo  *[]string `json:"assigned_to,omitempty"`
	IsHighlight *bool     `json:"is_highlight,omitempty"`
}

// BulkDeleteRequest represents a bulk activity deletion request
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
}

// SuggestionsRequest represents a suggestions request
type SuggestionsRequest struct {
	Scenario   string     `json:"scenario" validate:"required,min=1,max=5000"`
	AnchorTime *time.Time `json:"anchor_time,omitempty"`
}

// ShareRequest represents a share link request
type ShareRequest struct {
	TTLHours int `json:"ttl_hours,omitempty" validate:"gte=0,lte=8760"`
}

// TimelineResponse wraps the flat timeline
type TimelineResponse struct {
	PlanningID uuid.UUID         `json:"planning_id"`
	Activities []models.Activity `json:"activities"`
}

// GroupedTimelineResponse wraps the parallel view
type GroupedTimelineResponse struct {
	PlanningID uuid.UUID        `json:"planning_id"`
	Groups     []timeline.Group `json:"groups"`
}

// GetTimeline returns the planning timeline, flat by default or grouped into
// overlap clusters with ?view=parallel
func (h *TimelineHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("view") == "parallel" {
		groups, err := h.planner.Groups(r.Context(), planningID)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load timeline")
			return
		}
		respondJSON(w, http.StatusOK, GroupedTimelineResponse{PlanningID: planningID, Groups: groups})
		return
	}

	activities, err := h.planner.Timeline(r.Context(), planningID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load timeline")
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// BuildTimeline generates the timeline from questionnaire answers
func (h *TimelineHandler) BuildTimeline(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req BuildTimelineRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	eventDate, err := time.ParseInLocation("2006-01-02", req.EventDate, time.Local)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid event_date")
		return
	}

	activities, err := h.planner.BuildFromAnswers(r.Context(), planningID, h.catalog, req.Answers, eventDate)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Failed to build timeline: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// RebuildTimeline recomputes the whole timeline from its current activity set
func (h *TimelineHandler) RebuildTimeline(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	activities, err := h.planner.Rebuild(r.Context(), planningID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to rebuild timeline")
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// ReorderTimeline moves one activity to a new position
func (h *TimelineHandler) ReorderTimeline(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req ReorderRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	activities, err := h.planner.Reorder(r.Context(), planningID, req.From, req.To)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// RebaseTimeline shifts the whole timeline onto a new anchor time
func (h *TimelineHandler) RebaseTimeline(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req RebaseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	activities, err := h.planner.Rebase(r.Context(), planningID, req.AnchorTime)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to rebase timeline")
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// CreateActivity inserts a manual activity into the timeline
func (h *TimelineHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	title := validation.SanitizeText(req.Title)
	if title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
		return
	}

	at := -1 // append by default
	if req.Position != nil {
		at = *req.Position
	}

	activities, err := h.planner.Insert(r.Context(), planningID, models.Activity{
		Title:       title,
		Category:    models.Category(req.Category),
		DurationMin: req.DurationMin,
		Notes:       validation.SanitizeText(req.Notes),
		AssignedTo:  req.AssignedTo,
		IsHighlight: req.IsHighlight,
		Source:      models.SourceManual,
	}, at)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to insert activity")
		return
	}
	respondJSON(w, http.StatusCreated, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// UpdateActivity applies a partial edit to one activity
func (h *TimelineHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}
	activityID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateActivityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	patch := timeline.FieldPatch{
		DurationMin: req.DurationMin,
		AssignedTo:  req.AssignedTo,
		IsHighlight: req.IsHighlight,
	}
	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		patch.Title = &title
	}
	if req.Notes != nil {
		notes := validation.SanitizeText(*req.Notes)
		patch.Notes = &notes
	}

	activities, err := h.planner.UpdateField(r.Context(), planningID, activityID, patch)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Activity not found")
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// DeleteActivity removes one activity and closes the gap
func (h *TimelineHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}
	activityID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	activities, err := h.planner.Delete(r.Context(), planningID, activityID)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Activity not found")
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{PlanningID: planningID, Activities: activities})
}

// BulkDeleteActivities removes a batch of activities in one recalculation
func (h *TimelineHandler) BulkDeleteActivities(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req BulkDeleteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	activities, removed, err := h.planner.DeleteMany(r.Context(), planningID, req.IDs)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete activities")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"planning_id": planningID,
		"removed":     removed,
		"activities":  activities,
	})
}

// RequestSuggestions enqueues an asynchronous suggestion job
func (h *TimelineHandler) RequestSuggestions(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req SuggestionsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	scenario := validation.SanitizeText(req.Scenario)
	if scenario == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Scenario cannot be empty")
		return
	}

	job := queue.NewJob(queue.JobTypeSuggestions, planningID, scenario)
	job.AnchorTime = req.AnchorTime

	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("failed_to_enqueue_suggestion_job",
			zap.String("planning_id", planningID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Suggestion service is unavailable")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"planning_id": planningID,
		"status":      "queued",
	})
}

// CreateShareLink mints a read-only share token for the planning
func (h *TimelineHandler) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	planningID, ok := h.planningID(w, r)
	if !ok {
		return
	}

	var req ShareRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	token, err := h.tokens.Mint(planningID, sharetoken.ScopeView, ttl)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create share link")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"planning_id": planningID,
		"token":       token,
	})
}

// planningID resolves the planning id for the request. The share auth
// middleware attaches the verified id to the context; the path variable is
// the fallback for routes mounted without it (tests, internal tooling).
func (h *TimelineHandler) planningID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if id := request.PlanningFromContext(r); id != uuid.Nil {
		return id, true
	}
	id, err := uuid.Parse(mux.Vars(r)["planningID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid planning id")
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses a uuid path variable
func (h *TimelineHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the JSON body into req and runs struct validation
func (h *TimelineHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(req); err != nil {
		// Check if error is due to request size limit
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return false
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}
