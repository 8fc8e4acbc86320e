// types.go
package migration

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoHero represents a hero document in the legacy MongoDB store. The old
// system kept numeric fields as doubles, so everything lands as float64 and
// gets truncated during conversion.
type MongoHero struct {
	ID         primitive.ObjectID `bson:"_id"`
	UserID     string             `bson:"userid"`
	Name       string             `bson:"name"`
	HP         float64            `bson:"hp"`
	MaxHP      float64            `bson:"maxhp"`
	Attributes map[string]float64 `bson:"attributes"`
	Flags      map[string]any     `bson:"flags"`
	Reputation map[string]float64 `bson:"reputation"`
	Items      []MongoHeroItem    `bson:"items"`
	Joined     time.Time          `bson:"joined"`
}

// MongoHeroItem represents one inventory entry in the legacy hero document.
type MongoHeroItem struct {
	ID     string  `bson:"id"`
	Amount float64 `bson:"amount"`
}

// MongoQuestRecord represents a per-user quest row in the legacy MongoDB
// store. Only completed records survive the migration; declined and expired
// ones are skipped with a reason.
type MongoQuestRecord struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"userid"`
	QuestID   string             `bson:"questid"`
	Type      string             `bson:"type"`
	Completed bool               `bson:"completed"`
	Created   time.Time          `bson:"created"`
	Expiry    time.Time          `bson:"expiry"`
}

// MigrationStats tracks migration progress and issues
type MigrationStats struct {
	Tables         map[string]*TableStats `json:"tables"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	TotalErrors    int                    `json:"total_errors"`
	TotalSkipped   int                    `json:"total_skipped"`
	TotalProcessed int                    `json:"total_processed"`
}

// TableStats tracks stats for individual tables
type TableStats struct {
	TableName      string          `json:"table_name"`
	Processed      int             `json:"processed"`
	Successful     int             `json:"successful"`
	Skipped        int             `json:"skipped"`
	Errors         int             `json:"errors"`
	SkippedRecords []SkippedRecord `json:"skipped_records"`
	ErrorRecords   []ErrorRecord   `json:"error_records"`
}

// SkippedRecord tracks why a record was skipped
type SkippedRecord struct {
	Reason    string    `json:"reason"`
	Data      string    `json:"data"` // JSON representation of the record
	Timestamp time.Time `json:"timestamp"`
}

// ErrorRecord tracks migration errors
type ErrorRecord struct {
	Error     string    `json:"error"`
	Data      string    `json:"data"` // JSON representation of the record
	Timestamp time.Time `json:"timestamp"`
}
