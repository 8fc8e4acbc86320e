package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	NodeTypeStart     = "start"
	NodeTypeChoice    = "choice"
	NodeTypeAction    = "action"
	NodeTypeCondition = "condition"
	NodeTypeEnd       = "end"

	ConnectionTypeChoice    = "choice"
	ConnectionTypeCondition = "condition"
	ConnectionTypeDefault   = "default"

	EventTypeStatCheck   = "stat_check"
	EventTypeTrap        = "trap"
	EventTypePuzzle      = "puzzle"
	EventTypeStoryMoment = "story_moment"
)

// QuestDefinition stores one authored quest document. The document is kept
// whole in a jsonb column; compilation into a traversable graph happens in
// memory and is never persisted.
type QuestDefinition struct {
	bun.BaseModel `bun:"table:quest_definitions,alias:qd"`

	ID        string        `bun:"quest_id,pk"`
	Title     string        `bun:"title,notnull"`
	Summary   string        `bun:"summary"`
	Document  QuestDocument `bun:"document,type:jsonb,notnull"`
	Source    string        `bun:"source"`
	CreatedAt time.Time     `bun:"created_at,notnull"`
	UpdatedAt time.Time     `bun:"updated_at,notnull"`
}

// QuestDocument is the authored form of a quest, decoded from TOML files or
// the jsonb column. Field tags carry both codecs so a document round-trips
// between the definitions directory and the database unchanged.
type QuestDocument struct {
	ID          string            `toml:"id" json:"id"`
	Title       string            `toml:"title" json:"title"`
	Description string            `toml:"description" json:"description,omitempty"`
	Requires    QuestRequirements `toml:"requires" json:"requires,omitempty"`
	Chain       *ChainRef         `toml:"chain" json:"chain,omitempty"`
	Nodes       []NodeDoc         `toml:"nodes" json:"nodes"`
	Connections []ConnectionDoc   `toml:"connections" json:"connections"`
}

// QuestRequirements gate visibility and starting. Unlike connection
// conditions they are a closed vocabulary, so unmet entries can be reported
// back as human-readable reasons.
type QuestRequirements struct {
	QuestsCompleted []string       `toml:"quests_completed" json:"quests_completed,omitempty"`
	Rep             map[string]int `toml:"rep" json:"rep,omitempty"`
	WorldFlags      FlagChecks     `toml:"world_flags" json:"world_flags,omitempty"`
}

func (r QuestRequirements) Empty() bool {
	return len(r.QuestsCompleted) == 0 && len(r.Rep) == 0 &&
		len(r.WorldFlags.Has) == 0 && len(r.WorldFlags.Missing) == 0
}

// FlagChecks lists world flags that must be present (and truthy) or absent.
type FlagChecks struct {
	Has     []string `toml:"has" json:"has,omitempty"`
	Missing []string `toml:"missing" json:"missing,omitempty"`
}

// ChainRef marks a quest as one step of a story chain. Completing the quest
// advances the chain cursor to Step, never backwards.
type ChainRef struct {
	ID   string `toml:"id" json:"id"`
	Step int    `toml:"step" json:"step"`
}

type NodeDoc struct {
	ID          string      `toml:"id" json:"id"`
	Type        string      `toml:"type" json:"type"`
	Title       string      `toml:"title" json:"title,omitempty"`
	Description string      `toml:"description" json:"description,omitempty"`
	IsStart     bool        `toml:"is_start" json:"is_start,omitempty"`
	IsFinal     bool        `toml:"is_final" json:"is_final,omitempty"`
	WorldFlags  *FlagOpsDoc `toml:"world_flags" json:"world_flags,omitempty"`
	Reward      *RewardDoc  `toml:"reward" json:"reward,omitempty"`
	Events      []EventDoc  `toml:"events" json:"events,omitempty"`
}

// Terminal reports whether entering the node closes the traversal. End nodes
// are terminal regardless of the is_final flag.
func (n NodeDoc) Terminal() bool {
	return n.IsFinal || n.Type == NodeTypeEnd
}

// FlagOpsDoc is the authored set/clear pair used by nodes, connection
// effects and rewards. Set keys apply in sorted order, then clears in
// declaration order.
type FlagOpsDoc struct {
	Set   map[string]any `toml:"set" json:"set,omitempty"`
	Clear []string       `toml:"clear" json:"clear,omitempty"`
}

type ConnectionDoc struct {
	ID         string         `toml:"id" json:"id,omitempty"`
	From       string         `toml:"from" json:"from"`
	To         string         `toml:"to" json:"to"`
	Type       string         `toml:"type" json:"type"`
	ChoiceText string         `toml:"choice_text" json:"choice_text,omitempty"`
	Order      int            `toml:"order" json:"order,omitempty"`
	Conditions map[string]any `toml:"conditions" json:"conditions,omitempty"`
	Effects    *FlagOpsDoc    `toml:"effects" json:"effects,omitempty"`
}

func (c ConnectionDoc) IsDefault() bool {
	return c.Type == ConnectionTypeDefault
}

// EventDoc is an authored node-entry event. Dice is a pointer so an absent
// value and an explicit zero stay distinct: absent means the standard die,
// zero means an attribute-only check.
type EventDoc struct {
	ID         string          `toml:"id" json:"id"`
	Type       string          `toml:"type" json:"type"`
	Attribute  string          `toml:"attribute" json:"attribute,omitempty"`
	Difficulty int             `toml:"difficulty" json:"difficulty,omitempty"`
	Dice       *int            `toml:"dice" json:"dice,omitempty"`
	Repeatable bool            `toml:"repeatable" json:"repeatable,omitempty"`
	StoryKey   string          `toml:"story_key" json:"story_key,omitempty"`
	Success    *EventBranchDoc `toml:"success" json:"success,omitempty"`
	Failure    *EventBranchDoc `toml:"failure" json:"failure,omitempty"`
}

// Checked reports whether the event type resolves through a dice roll.
func (e EventDoc) Checked() bool {
	return e.Type == EventTypeStatCheck || e.Type == EventTypeTrap
}

// BranchDoc returns the branch an outcome selected, or nil when the
// document does not author that branch.
func (e EventDoc) BranchDoc(branch string) *EventBranchDoc {
	if branch == BranchSuccess {
		return e.Success
	}
	return e.Failure
}

type EventBranchDoc struct {
	Text            string     `toml:"text" json:"text,omitempty"`
	Damage          int        `toml:"damage" json:"damage,omitempty"`
	RequireRecovery bool       `toml:"require_recovery" json:"require_recovery,omitempty"`
	Reward          *RewardDoc `toml:"reward" json:"reward,omitempty"`
}

// RewardDoc grants items, world-flag mutations and metric increments. The
// singular Metric field is an authoring shorthand for a by-one increment;
// compilation folds it into Metrics.
type RewardDoc struct {
	Items      []ItemGrant    `toml:"items" json:"items,omitempty"`
	WorldFlags *FlagOpsDoc    `toml:"world_flags" json:"world_flags,omitempty"`
	Metric     string         `toml:"metric" json:"metric,omitempty"`
	Metrics    map[string]int `toml:"metrics" json:"metrics,omitempty"`
}

type ItemGrant struct {
	Code     string `toml:"code" json:"code"`
	Quantity int    `toml:"quantity" json:"quantity"`
}
