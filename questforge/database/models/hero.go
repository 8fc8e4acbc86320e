package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	AttrStrength  = "str"
	AttrAgility   = "agi"
	AttrIntellect = "int"
	AttrCharisma  = "cha"
)

type Hero struct {
	bun.BaseModel `bun:"table:heroes,alias:h"`

	UserID     string         `bun:"user_id,pk"`
	Name       string         `bun:"name,notnull"`
	HP         int            `bun:"hp,notnull,default:100"`
	MaxHP      int            `bun:"max_hp,notnull,default:100"`
	Attributes map[string]int `bun:"attributes,type:jsonb"`
	WorldFlags map[string]any `bun:"world_flags,type:jsonb"`
	Reputation map[string]int `bun:"reputation,type:jsonb"`
	ChainSteps map[string]int `bun:"chain_steps,type:jsonb"`
	Items      map[string]int `bun:"items,type:jsonb"`
	Metrics    map[string]int `bun:"metrics,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at,notnull"`
	UpdatedAt  time.Time      `bun:"updated_at,notnull"`
}

// Snapshot builds the read-only view the engine evaluates against. The
// completed set is supplied by the repository (progress rows plus imported
// legacy records); the hero row itself never stores it.
func (h *Hero) Snapshot(completedQuests []string) *HeroSnapshot {
	snap := &HeroSnapshot{
		UserID:          h.UserID,
		Name:            h.Name,
		HP:              h.HP,
		MaxHP:           h.MaxHP,
		Attributes:      copyIntMap(h.Attributes),
		WorldFlags:      copyAnyMap(h.WorldFlags),
		Reputation:      copyIntMap(h.Reputation),
		ChainSteps:      copyIntMap(h.ChainSteps),
		Items:           copyIntMap(h.Items),
		Metrics:         copyIntMap(h.Metrics),
		CompletedQuests: make(map[string]bool, len(completedQuests)),
	}
	for _, id := range completedQuests {
		snap.CompletedQuests[id] = true
	}
	return snap
}

// Absorb copies the mutable fields of an applied snapshot back into the row.
func (h *Hero) Absorb(snap *HeroSnapshot) {
	h.HP = snap.HP
	h.WorldFlags = snap.WorldFlags
	h.Reputation = snap.Reputation
	h.ChainSteps = snap.ChainSteps
	h.Items = snap.Items
	h.Metrics = snap.Metrics
}

// HeroSnapshot is a per-request copy of hero state. The engine mutates its
// working copy while resolving a turn and persists the change as a TurnDelta,
// never by writing the hero row directly.
type HeroSnapshot struct {
	UserID          string
	Name            string
	HP              int
	MaxHP           int
	Attributes      map[string]int
	WorldFlags      map[string]any
	Reputation      map[string]int
	ChainSteps      map[string]int
	Items           map[string]int
	Metrics         map[string]int
	CompletedQuests map[string]bool
}

func (s *HeroSnapshot) Clone() *HeroSnapshot {
	clone := &HeroSnapshot{
		UserID:          s.UserID,
		Name:            s.Name,
		HP:              s.HP,
		MaxHP:           s.MaxHP,
		Attributes:      copyIntMap(s.Attributes),
		WorldFlags:      copyAnyMap(s.WorldFlags),
		Reputation:      copyIntMap(s.Reputation),
		ChainSteps:      copyIntMap(s.ChainSteps),
		Items:           copyIntMap(s.Items),
		Metrics:         copyIntMap(s.Metrics),
		CompletedQuests: make(map[string]bool, len(s.CompletedQuests)),
	}
	for id := range s.CompletedQuests {
		clone.CompletedQuests[id] = true
	}
	return clone
}

// FlagTruthy reports whether a world flag is present with a truthy value.
// Flags are open-typed jsonb values, so numbers arrive as float64.
func (s *HeroSnapshot) FlagTruthy(key string) bool {
	v, ok := s.WorldFlags[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func (s *HeroSnapshot) FlagPresent(key string) bool {
	_, ok := s.WorldFlags[key]
	return ok
}

func (s *HeroSnapshot) HasCompleted(questID string) bool {
	return s.CompletedQuests[questID]
}

func (s *HeroSnapshot) Attribute(name string) (int, bool) {
	v, ok := s.Attributes[name]
	return v, ok
}

func (s *HeroSnapshot) FullyHealed() bool {
	return s.HP >= s.MaxHP
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
