package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const (
	ProgressStatusActive    = "active"
	ProgressStatusPaused    = "paused"
	ProgressStatusCompleted = "completed"
	ProgressStatusDeclined  = "declined"
)

const (
	BranchSuccess = "success"
	BranchFailure = "failure"
)

// QuestProgress is the single traversal position a user holds in one quest.
// The composite key enforces at most one row per (user, quest); restarting
// after a terminal status reuses the row. Version guards concurrent writers:
// updates carry the version they loaded and lose if the row moved on.
type QuestProgress struct {
	bun.BaseModel `bun:"table:quest_progresses,alias:qp"`

	UserID         string                  `bun:"user_id,pk"`
	QuestID        string                  `bun:"quest_id,pk"`
	CurrentNodeID  string                  `bun:"current_node_id,notnull"`
	Status         string                  `bun:"status,notnull"`
	VisitedNodes   []string                `bun:"visited_nodes,type:jsonb"`
	ResolvedEvents map[string]EventOutcome `bun:"resolved_events,type:jsonb"`
	Version        int64                   `bun:"version,notnull,default:0"`
	StartedAt      time.Time               `bun:"started_at,notnull"`
	CompletedAt    *time.Time              `bun:"completed_at"`
	CreatedAt      time.Time               `bun:"created_at,notnull"`
	UpdatedAt      time.Time               `bun:"updated_at,notnull"`
}

// EventOutcome is the recorded resolution of one node-entry event. Once a
// key is present the event never fires again for this traversal (unless the
// definition marks it repeatable), and the stored outcome is replayed.
type EventOutcome struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Branch     string    `json:"branch"`
	Text       string    `json:"text,omitempty"`
	Roll       int       `json:"roll,omitempty"`
	Total      int       `json:"total,omitempty"`
	Difficulty int       `json:"difficulty,omitempty"`
	Damage     int       `json:"damage,omitempty"`
	StoryKey   string    `json:"story_key,omitempty"`
	Faulted    bool      `json:"faulted,omitempty"`
	Replayed   bool      `json:"-"`
	ResolvedAt time.Time `json:"resolved_at"`
}

func (o EventOutcome) Succeeded() bool {
	return o.Branch == BranchSuccess
}

// EventKey builds the idempotency key an outcome is stored under.
func EventKey(questID, nodeID, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", questID, nodeID, eventID)
}

func (p *QuestProgress) Terminal() bool {
	return p.Status == ProgressStatusCompleted || p.Status == ProgressStatusDeclined
}

func (p *QuestProgress) Active() bool {
	return p.Status == ProgressStatusActive
}

func (p *QuestProgress) ResolvedOutcome(key string) (EventOutcome, bool) {
	if p.ResolvedEvents == nil {
		return EventOutcome{}, false
	}
	o, ok := p.ResolvedEvents[key]
	return o, ok
}

func (p *QuestProgress) RecordOutcome(key string, o EventOutcome) {
	if p.ResolvedEvents == nil {
		p.ResolvedEvents = make(map[string]EventOutcome)
	}
	p.ResolvedEvents[key] = o
}

func (p *QuestProgress) HasVisited(nodeID string) bool {
	for _, id := range p.VisitedNodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

func (p *QuestProgress) Visit(nodeID string) {
	if !p.HasVisited(nodeID) {
		p.VisitedNodes = append(p.VisitedNodes, nodeID)
	}
}

// Restart resets a terminal row for a fresh run. The version keeps
// increasing across runs so stale clients from the previous run still lose.
func (p *QuestProgress) Restart(startNodeID string, now time.Time) {
	p.CurrentNodeID = startNodeID
	p.Status = ProgressStatusActive
	p.VisitedNodes = nil
	p.ResolvedEvents = nil
	p.StartedAt = now
	p.CompletedAt = nil
}
