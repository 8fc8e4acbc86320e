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

type progressRepository struct {
	db *bun.DB
}

func NewProgressRepository(db *bun.DB) interfaces.ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID, questID string) (*models.QuestProgress, error) {
	progress := new(models.QuestProgress)
	err := r.db.NewSelect().
		Model(progress).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}
	return progress, nil
}

func (r *progressRepository) GetActiveByUser(ctx context.Context, userID string) ([]*models.QuestProgress, error) {
	var progress []*models.QuestProgress
	err := r.db.NewSelect().
		Model(&progress).
		Where("user_id = ?", userID).
		Where("status IN (?)", bun.In([]string{models.ProgressStatusActive, models.ProgressStatusPaused})).
		Order("quest_id ASC").
		Scan(ctx)

	return progress, err
}

func (r *progressRepository) Create(ctx context.Context, progress *models.QuestProgress) error {
	now := time.Now()
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now

	_, err := r.db.NewInsert().Model(progress).Exec(ctx)
	return err
}

// Update persists the row only while its stored version still equals
// expectedVersion, bumping it by one in the same statement. Zero affected
// rows means a concurrent writer committed first; the model's version is
// restored so the caller still holds what it loaded.
func (r *progressRepository) Update(ctx context.Context, progress *models.QuestProgress, expectedVersion int64) error {
	progress.UpdatedAt = time.Now()
	progress.Version = expectedVersion + 1

	res, err := r.db.NewUpdate().
		Model(progress).
		WherePK().
		Where("version = ?", expectedVersion).
		Exec(ctx)

	if err != nil {
		progress.Version = expectedVersion
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		progress.Version = expectedVersion
		return interfaces.ErrStaleVersion
	}
	return nil
}

func (r *progressRepository) CompletedQuestIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*models.QuestProgress)(nil)).
		Column("quest_id").
		Where("user_id = ?", userID).
		Where("status = ?", models.ProgressStatusCompleted).
		Order("quest_id ASC").
		Scan(ctx, &ids)

	return ids, err
}
