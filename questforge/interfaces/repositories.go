package interfaces

import (
	"context"
	"errors"

	"github.com/fablesmith/questforge/questforge/database/models"
)

//go:generate mockgen -source=repositories.go -destination=mock/repositories.go -package=mock

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion is returned when a guarded progress update carries a
	// version the row has already moved past.
	ErrStaleVersion = errors.New("progress version is stale")
)

type DefinitionRepository interface {
	GetByID(ctx context.Context, questID string) (*models.QuestDefinition, error)
	GetAll(ctx context.Context) ([]*models.QuestDefinition, error)
	Upsert(ctx context.Context, def *models.QuestDefinition) error
	Delete(ctx context.Context, questID string) error
}

type ProgressRepository interface {
	Get(ctx context.Context, userID, questID string) (*models.QuestProgress, error)
	GetActiveByUser(ctx context.Context, userID string) ([]*models.QuestProgress, error)
	Create(ctx context.Context, progress *models.QuestProgress) error
	// Update persists the row only if its stored version still equals
	// expectedVersion, bumping it by one; otherwise ErrStaleVersion.
	Update(ctx context.Context, progress *models.QuestProgress, expectedVersion int64) error
	CompletedQuestIDs(ctx context.Context, userID string) ([]string, error)
}

type HeroRepository interface {
	Get(ctx context.Context, userID string) (*models.Hero, error)
	Create(ctx context.Context, hero *models.Hero) error
	// Snapshot loads the hero with the completed-quest union (graph
	// progress rows plus imported legacy records).
	Snapshot(ctx context.Context, userID string) (*models.HeroSnapshot, error)
	// ApplyDelta folds a turn delta into the hero row in one transaction
	// and returns the resulting snapshot.
	ApplyDelta(ctx context.Context, userID string, delta *models.TurnDelta) (*models.HeroSnapshot, error)
}
