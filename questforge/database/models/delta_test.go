package models

import (
	"reflect"
	"testing"
	"time"
)

func TestTurnDeltaMergeFlagOps(t *testing.T) {
	d := NewTurnDelta()
	d.MergeFlagOps(&FlagOpsDoc{
		Set:   map[string]any{"zeta": 1, "alpha": true, "mid": "x"},
		Clear: []string{"old", "stale"},
	})

	want := []FlagOp{
		{Key: "alpha", Value: true},
		{Key: "mid", Value: "x"},
		{Key: "zeta", Value: 1},
		{Key: "old", Clear: true},
		{Key: "stale", Clear: true},
	}
	if !reflect.DeepEqual(d.FlagOps, want) {
		t.Errorf("MergeFlagOps() = %v, want %v", d.FlagOps, want)
	}
}

func TestTurnDeltaApplyTo(t *testing.T) {
	tests := []struct {
		name  string
		delta func() *TurnDelta
		snap  *HeroSnapshot
		check func(t *testing.T, snap *HeroSnapshot)
	}{
		{
			name: "flag ops apply in order",
			delta: func() *TurnDelta {
				d := NewTurnDelta()
				d.SetFlag("door.open", true)
				d.SetFlag("torch.lit", true)
				d.ClearFlag("door.open")
				return d
			},
			snap: &HeroSnapshot{WorldFlags: map[string]any{}},
			check: func(t *testing.T, snap *HeroSnapshot) {
				if _, ok := snap.WorldFlags["door.open"]; ok {
					t.Errorf("door.open survived a later clear")
				}
				if v := snap.WorldFlags["torch.lit"]; v != true {
					t.Errorf("torch.lit = %v, want true", v)
				}
			},
		},
		{
			name: "items and metrics are additive",
			delta: func() *TurnDelta {
				d := NewTurnDelta()
				d.AddItem("rope", 2)
				d.AddMetric("story.echo", 1)
				return d
			},
			snap: &HeroSnapshot{
				Items:   map[string]int{"rope": 1},
				Metrics: map[string]int{"story.echo": 3},
			},
			check: func(t *testing.T, snap *HeroSnapshot) {
				if snap.Items["rope"] != 3 {
					t.Errorf("rope = %d, want 3", snap.Items["rope"])
				}
				if snap.Metrics["story.echo"] != 4 {
					t.Errorf("story.echo = %d, want 4", snap.Metrics["story.echo"])
				}
			},
		},
		{
			name: "damage floors hp at zero",
			delta: func() *TurnDelta {
				d := NewTurnDelta()
				d.AddDamage(50)
				return d
			},
			snap: &HeroSnapshot{HP: 30, MaxHP: 100},
			check: func(t *testing.T, snap *HeroSnapshot) {
				if snap.HP != 0 {
					t.Errorf("HP = %d, want 0", snap.HP)
				}
			},
		},
		{
			name: "chain step never moves backwards",
			delta: func() *TurnDelta {
				d := NewTurnDelta()
				d.AdvanceChain("guild_path", 1)
				return d
			},
			snap: &HeroSnapshot{ChainSteps: map[string]int{"guild_path": 2}},
			check: func(t *testing.T, snap *HeroSnapshot) {
				if snap.ChainSteps["guild_path"] != 2 {
					t.Errorf("guild_path = %d, want 2", snap.ChainSteps["guild_path"])
				}
			},
		},
		{
			name: "chain step advances forward",
			delta: func() *TurnDelta {
				d := NewTurnDelta()
				d.AdvanceChain("guild_path", 3)
				return d
			},
			snap: &HeroSnapshot{ChainSteps: map[string]int{"guild_path": 2}},
			check: func(t *testing.T, snap *HeroSnapshot) {
				if snap.ChainSteps["guild_path"] != 3 {
					t.Errorf("guild_path = %d, want 3", snap.ChainSteps["guild_path"])
				}
			},
		},
		{
			name: "nil maps are created on demand",
			delta: func() *TurnDelta {
				d := NewTurnDelta()
				d.SetFlag("f", 1)
				d.AddItem("i", 1)
				d.AddMetric("m", 1)
				d.AdvanceChain("c", 1)
				return d
			},
			snap: &HeroSnapshot{},
			check: func(t *testing.T, snap *HeroSnapshot) {
				if snap.WorldFlags["f"] != 1 || snap.Items["i"] != 1 || snap.Metrics["m"] != 1 || snap.ChainSteps["c"] != 1 {
					t.Errorf("ApplyTo() on empty snapshot = %+v", snap)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.delta().ApplyTo(tt.snap)
			tt.check(t, tt.snap)
		})
	}
}

func TestTurnDeltaMerge(t *testing.T) {
	d := NewTurnDelta()
	d.SetFlag("first", 1)
	d.AddDamage(5)
	d.AdvanceChain("guild_path", 2)

	other := NewTurnDelta()
	other.SetFlag("second", 2)
	other.AddItem("rope", 1)
	other.AddDamage(3)
	other.AdvanceChain("guild_path", 1)

	d.Merge(other)

	wantOps := []FlagOp{{Key: "first", Value: 1}, {Key: "second", Value: 2}}
	if !reflect.DeepEqual(d.FlagOps, wantOps) {
		t.Errorf("Merge() flag ops = %v, want %v", d.FlagOps, wantOps)
	}
	if d.Damage != 8 {
		t.Errorf("Merge() damage = %d, want 8", d.Damage)
	}
	if d.Chain.Step != 2 {
		t.Errorf("Merge() chain step = %d, want 2", d.Chain.Step)
	}
	if d.Items["rope"] != 1 {
		t.Errorf("Merge() rope = %d, want 1", d.Items["rope"])
	}
}

func TestTurnDeltaEmpty(t *testing.T) {
	d := NewTurnDelta()
	if !d.Empty() {
		t.Errorf("fresh delta should be empty")
	}
	d.AddDamage(0)
	d.AddItem("rope", 0)
	d.AddMetric("m", 0)
	if !d.Empty() {
		t.Errorf("zero-value grants should keep the delta empty")
	}
	d.AddDamage(1)
	if d.Empty() {
		t.Errorf("delta with damage should not be empty")
	}
}

func TestEventKey(t *testing.T) {
	got := EventKey("guild_initiation", "trial_chamber", "pit_trap")
	want := "guild_initiation:trial_chamber:pit_trap"
	if got != want {
		t.Errorf("EventKey() = %q, want %q", got, want)
	}
}

func TestQuestProgressRestart(t *testing.T) {
	now := time.Now()
	completedAt := now.Add(-time.Hour)
	p := &QuestProgress{
		UserID:         "42",
		QuestID:        "gate_pass",
		CurrentNodeID:  "inside",
		Status:         ProgressStatusCompleted,
		VisitedNodes:   []string{"gate", "inside"},
		ResolvedEvents: map[string]EventOutcome{"k": {EventID: "e"}},
		Version:        7,
		CompletedAt:    &completedAt,
	}

	p.Restart("gate", now)

	if p.Status != ProgressStatusActive {
		t.Errorf("Restart() status = %q, want %q", p.Status, ProgressStatusActive)
	}
	if p.CurrentNodeID != "gate" {
		t.Errorf("Restart() node = %q, want gate", p.CurrentNodeID)
	}
	if len(p.VisitedNodes) != 0 || len(p.ResolvedEvents) != 0 {
		t.Errorf("Restart() should clear visited nodes and resolved events")
	}
	if p.CompletedAt != nil {
		t.Errorf("Restart() should clear completed_at")
	}
	if p.Version != 7 {
		t.Errorf("Restart() version = %d, want 7 (version only moves through guarded updates)", p.Version)
	}
	if !p.StartedAt.Equal(now) {
		t.Errorf("Restart() started_at = %v, want %v", p.StartedAt, now)
	}
}
