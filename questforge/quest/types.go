package quest

import (
	"github.com/fablesmith/questforge/questforge/database/models"
)

// CompiledQuest is the validated, traversable form of one quest document.
// It is built once per definition, cached by the store and treated as
// read-only everywhere; connection ids are final and per-node connection
// slices are pre-sorted by order then declaration index.
type CompiledQuest struct {
	ID          string
	Title       string
	Doc         *models.QuestDocument
	Start       *models.NodeDoc
	NodesByID   map[string]*models.NodeDoc
	ConnsByID   map[string]*models.ConnectionDoc
	ConnsByFrom map[string][]*models.ConnectionDoc
}

func (q *CompiledQuest) Node(id string) *models.NodeDoc {
	return q.NodesByID[id]
}

func (q *CompiledQuest) Connection(id string) *models.ConnectionDoc {
	return q.ConnsByID[id]
}

// Outgoing returns the connections leaving a node, sorted by order with
// declaration index breaking ties.
func (q *CompiledQuest) Outgoing(nodeID string) []*models.ConnectionDoc {
	return q.ConnsByFrom[nodeID]
}

// Choice is one selectable connection as shown to the player.
type Choice struct {
	ConnectionID string `json:"connection_id"`
	Text         string `json:"text,omitempty"`
	Default      bool   `json:"default,omitempty"`
}

// Snapshot is the display-ready result of one engine operation: where the
// traversal stands, what just happened and what can be chosen next.
type Snapshot struct {
	QuestID   string                `json:"quest_id"`
	Title     string                `json:"title"`
	NodeID    string                `json:"node_id"`
	NodeTitle string                `json:"node_title,omitempty"`
	NodeText  string                `json:"node_text,omitempty"`
	Status    string                `json:"status"`
	Visited   []string              `json:"visited"`
	Choices   []Choice              `json:"choices,omitempty"`
	Events    []models.EventOutcome `json:"events,omitempty"`
	Rewards   *models.TurnDelta     `json:"rewards,omitempty"`
	Hero      *models.HeroSnapshot  `json:"-"`
	IsFinal   bool                  `json:"is_final,omitempty"`
}

// MapView is the read-only overview of a traversal: every node with its
// visited marker, the current position and the live choices.
type MapView struct {
	QuestID string    `json:"quest_id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
	Current string    `json:"current"`
	Nodes   []MapNode `json:"nodes"`
	Choices []Choice  `json:"choices,omitempty"`
}

type MapNode struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Type    string `json:"type"`
	Visited bool   `json:"visited,omitempty"`
	Current bool   `json:"current,omitempty"`
	Final   bool   `json:"final,omitempty"`
}
