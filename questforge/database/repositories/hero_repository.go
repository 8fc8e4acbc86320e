package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/fablesmith/questforge/questforge/interfaces"
)

const defaultMaxHP = 100

type heroRepository struct {
	db *bun.DB
}

func NewHeroRepository(db *bun.DB) interfaces.HeroRepository {
	return &heroRepository{db: db}
}

func (r *heroRepository) Get(ctx context.Context, userID string) (*models.Hero, error) {
	hero := new(models.Hero)
	err := r.db.NewSelect().
		Model(hero).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}
	return hero, nil
}

func (r *heroRepository) Create(ctx context.Context, hero *models.Hero) error {
	now := time.Now()
	if hero.MaxHP == 0 {
		hero.MaxHP = defaultMaxHP
		hero.HP = defaultMaxHP
	}
	if hero.CreatedAt.IsZero() {
		hero.CreatedAt = now
	}
	hero.UpdatedAt = now

	_, err := r.db.NewInsert().Model(hero).Exec(ctx)
	return err
}

// Snapshot assembles the engine's view of a hero: the row plus the
// completed-quest union of graph progress rows and imported legacy records.
func (r *heroRepository) Snapshot(ctx context.Context, userID string) (*models.HeroSnapshot, error) {
	hero, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := r.completedQuests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return hero.Snapshot(completed), nil
}

// ApplyDelta folds a turn delta into the hero row inside one transaction,
// locking the row so concurrent turns serialize their merges.
func (r *heroRepository) ApplyDelta(ctx context.Context, userID string, delta *models.TurnDelta) (*models.HeroSnapshot, error) {
	hero := new(models.Hero)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(hero).
			Where("user_id = ?", userID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return interfaces.ErrNotFound
			}
			return err
		}

		working := hero.Snapshot(nil)
		delta.ApplyTo(working)
		hero.Absorb(working)
		hero.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().Model(hero).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	completed, err := r.completedQuests(ctx, userID)
	if err != nil {
		return nil, err
	}
	return hero.Snapshot(completed), nil
}

func (r *heroRepository) completedQuests(ctx context.Context, userID string) ([]string, error) {
	var graph []string
	err := r.db.NewSelect().
		Model((*models.QuestProgress)(nil)).
		Column("quest_id").
		Where("user_id = ?", userID).
		Where("status = ?", models.ProgressStatusCompleted).
		Scan(ctx, &graph)
	if err != nil {
		return nil, err
	}

	var legacy []string
	err = r.db.NewSelect().
		Model((*models.LegacyQuestRecord)(nil)).
		Column("quest_id").
		Where("user_id = ?", userID).
		Scan(ctx, &legacy)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(graph)+len(legacy))
	out := make([]string, 0, len(graph)+len(legacy))
	for _, id := range append(graph, legacy...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
