package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/fablesmith/questforge/questforge/interfaces"
)

type definitionRepository struct {
	db *bun.DB
}

func NewDefinitionRepository(db *bun.DB) interfaces.DefinitionRepository {
	return &definitionRepository{db: db}
}

func (r *definitionRepository) GetByID(ctx context.Context, questID string) (*models.QuestDefinition, error) {
	def := new(models.QuestDefinition)
	err := r.db.NewSelect().
		Model(def).
		Where("quest_id = ?", questID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}
	return def, nil
}

func (r *definitionRepository) GetAll(ctx context.Context) ([]*models.QuestDefinition, error) {
	var defs []*models.QuestDefinition
	err := r.db.NewSelect().
		Model(&defs).
		Order("quest_id ASC").
		Scan(ctx)

	return defs, err
}

func (r *definitionRepository) Upsert(ctx context.Context, def *models.QuestDefinition) error {
	now := time.Now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(def).
		On("CONFLICT (quest_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("summary = EXCLUDED.summary").
		Set("document = EXCLUDED.document").
		Set("source = EXCLUDED.source").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func (r *definitionRepository) Delete(ctx context.Context, questID string) error {
	res, err := r.db.NewDelete().
		Model((*models.QuestDefinition)(nil)).
		Where("quest_id = ?", questID).
		Exec(ctx)

	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}
