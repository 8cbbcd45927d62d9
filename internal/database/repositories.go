package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// ActivityRepositoryInterface defines the persistence collaborator for
// timelines. The interface enables mock implementations in tests.
type ActivityRepositoryInterface interface {
	ListByPlanning(ctx context.Context, planningID uuid.UUID) ([]models.Activity, error)
	ReplaceForPlanning(ctx context.Context, planningID uuid.UUID, activities []models.Activity) error
}

// Ensure the concrete type implements the interface
var _ ActivityRepositoryInterface = (*ActivityRepository)(nil)
