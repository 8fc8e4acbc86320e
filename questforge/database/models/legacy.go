package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LegacyQuestRecord is a completion imported from the pre-graph quest
// system. Records land here during migration and stay read-only; the hero
// repository unions them into CompletedQuests so old clears keep satisfying
// requirements and conditions.
type LegacyQuestRecord struct {
	bun.BaseModel `bun:"table:legacy_quest_records,alias:lqr"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      string    `bun:"user_id,notnull"`
	QuestID     string    `bun:"quest_id,notnull"`
	CompletedAt time.Time `bun:"completed_at,notnull"`
	ImportedAt  time.Time `bun:"imported_at,notnull"`
}
