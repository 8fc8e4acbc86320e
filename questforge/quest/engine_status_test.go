package quest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/fablesmith/questforge/questforge/database/models"
)

func forkDoc() *models.QuestDocument {
	return &models.QuestDocument{
		ID:    "moor_fork",
		Title: "Fork on the Moor",
		Nodes: []models.NodeDoc{
			{ID: "fork", Type: models.NodeTypeStart},
			{ID: "bog", Type: models.NodeTypeAction},
			{ID: "heath", Type: models.NodeTypeAction},
			{ID: "road", Type: models.NodeTypeEnd},
		},
		Connections: []models.ConnectionDoc{
			{From: "fork", To: "bog", Type: models.ConnectionTypeCondition, Order: 1,
				Conditions: map[string]any{"world_flags.has": "moor.map"}},
			{From: "fork", To: "heath", Type: models.ConnectionTypeChoice, ChoiceText: "Cut across the heath", Order: 2,
				Conditions: map[string]any{"rep": map[string]any{"rangers": 20}}},
			{From: "fork", To: "road", Type: models.ConnectionTypeDefault, Order: 3},
		},
	}
}

func mireDoc() *models.QuestDocument {
	return &models.QuestDocument{
		ID:    "mire_cross",
		Title: "Crossing the Mire",
		Nodes: []models.NodeDoc{
			{
				ID:   "bank",
				Type: models.NodeTypeStart,
				Events: []models.EventDoc{
					{
						ID:         "sinkhole",
						Type:       models.EventTypeTrap,
						Attribute:  models.AttrStrength,
						Difficulty: 18,
						Failure: &models.EventBranchDoc{
							Text:            "The mire swallows you to the waist.",
							Damage:          4,
							RequireRecovery: true,
						},
					},
				},
			},
			{ID: "far_bank", Type: models.NodeTypeEnd},
		},
		Connections: []models.ConnectionDoc{
			{From: "bank", To: "far_bank", Type: models.ConnectionTypeDefault},
		},
	}
}

func lastStandDoc() *models.QuestDocument {
	return &models.QuestDocument{
		ID:    "last_stand",
		Title: "The Last Stand",
		Nodes: []models.NodeDoc{
			{ID: "rampart", Type: models.NodeTypeStart},
			{
				ID:   "breach",
				Type: models.NodeTypeEnd,
				Events: []models.EventDoc{
					{
						ID:         "collapse",
						Type:       models.EventTypeTrap,
						Attribute:  models.AttrAgility,
						Difficulty: 30,
						Failure:    &models.EventBranchDoc{Damage: 50},
					},
				},
			},
		},
		Connections: []models.ConnectionDoc{
			{From: "rampart", To: "breach", Type: models.ConnectionTypeDefault},
		},
	}
}

func hexDoc() *models.QuestDocument {
	return &models.QuestDocument{
		ID:    "hex_ward",
		Title: "The Hex Ward",
		Nodes: []models.NodeDoc{
			{
				ID:   "threshold",
				Type: models.NodeTypeStart,
				Events: []models.EventDoc{
					{
						ID:         "ward",
						Type:       models.EventTypeStatCheck,
						Attribute:  "luck",
						Difficulty: 5,
						Failure:    &models.EventBranchDoc{Text: "The ward flares.", Damage: 9},
					},
				},
			},
			{ID: "sanctum", Type: models.NodeTypeEnd},
		},
		Connections: []models.ConnectionDoc{
			{From: "threshold", To: "sanctum", Type: models.ConnectionTypeDefault},
		},
	}
}

func chainDoc(id string, step int) *models.QuestDocument {
	return &models.QuestDocument{
		ID:    id,
		Title: "Rite of the Guild",
		Chain: &models.ChainRef{ID: "guild_path", Step: step},
		Nodes: []models.NodeDoc{
			{ID: "hall", Type: models.NodeTypeStart},
			{ID: "seal", Type: models.NodeTypeEnd},
		},
		Connections: []models.ConnectionDoc{
			{From: "hall", To: "seal", Type: models.ConnectionTypeDefault},
		},
	}
}

func Test_Engine_ApplyChoice_Stale(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T) *engineFixture
		questID    string
		connection string
		wantReason string
	}{
		{
			name: "unknown connection",
			setup: func(t *testing.T) *engineFixture {
				f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
				if _, err := f.engine.StartQuest(context.Background(), testUserID, "ledge_trial"); err != nil {
					t.Fatalf("StartQuest() error = %v", err)
				}
				return f
			},
			questID:    "ledge_trial",
			connection: "cliff#9",
			wantReason: StaleUnknown,
		},
		{
			name: "connection leaves another node",
			setup: func(t *testing.T) *engineFixture {
				f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
				if _, err := f.engine.StartQuest(context.Background(), testUserID, "ledge_trial"); err != nil {
					t.Fatalf("StartQuest() error = %v", err)
				}
				return f
			},
			questID:    "ledge_trial",
			connection: "camp#2",
			wantReason: StaleWrongNode,
		},
		{
			name: "conditions no longer hold",
			setup: func(t *testing.T) *engineFixture {
				f := newEngineFixture(t, map[string]*models.QuestDocument{"moor_fork": forkDoc()}, testHero())
				if _, err := f.engine.StartQuest(context.Background(), testUserID, "moor_fork"); err != nil {
					t.Fatalf("StartQuest() error = %v", err)
				}
				return f
			},
			questID:    "moor_fork",
			connection: "fork#0",
			wantReason: StaleConditions,
		},
		{
			name: "traversal no longer active",
			setup: func(t *testing.T) *engineFixture {
				f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
				ctx := context.Background()
				if _, err := f.engine.StartQuest(ctx, testUserID, "ledge_trial"); err != nil {
					t.Fatalf("StartQuest() error = %v", err)
				}
				if _, err := f.engine.DeclineQuest(ctx, testUserID, "ledge_trial"); err != nil {
					t.Fatalf("DeclineQuest() error = %v", err)
				}
				return f
			},
			questID:    "ledge_trial",
			connection: "trail#0",
			wantReason: StaleStatus,
		},
		{
			name: "version race lost",
			setup: func(t *testing.T) *engineFixture {
				f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
				if _, err := f.engine.StartQuest(context.Background(), testUserID, "ledge_trial"); err != nil {
					t.Fatalf("StartQuest() error = %v", err)
				}
				f.staleNextUpdate = true
				return f
			},
			questID:    "ledge_trial",
			connection: "trail#0",
			wantReason: StaleVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.setup(t)
			heroBefore := f.hero.Clone()

			_, err := f.engine.ApplyChoice(context.Background(), testUserID, tt.questID, tt.connection)
			if !errors.Is(err, ErrStaleChoice) {
				t.Fatalf("ApplyChoice() error = %v, want ErrStaleChoice", err)
			}
			var stale *StaleChoiceError
			if !errors.As(err, &stale) {
				t.Fatalf("ApplyChoice() error type = %T", err)
			}
			if stale.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", stale.Reason, tt.wantReason)
			}
			if !reflect.DeepEqual(f.hero, heroBefore) {
				t.Errorf("rejected choice mutated the hero")
			}
		})
	}
}

func Test_Engine_ApplyChoice_ZeroHPPausesTraversal(t *testing.T) {
	hero := testHero()
	hero.HP = 5
	hero.Attributes[models.AttrAgility] = 3
	f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, hero)
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "ledge_trial"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	snap, err := f.engine.ApplyChoice(ctx, testUserID, "ledge_trial", "trail#0")
	if err != nil {
		t.Fatalf("ApplyChoice() error = %v", err)
	}

	if snap.Status != models.ProgressStatusPaused {
		t.Fatalf("status = %s, want paused", snap.Status)
	}
	if f.hero.HP != 0 {
		t.Errorf("hero HP = %d, want 0 (damage floors at zero)", f.hero.HP)
	}
	if len(snap.Choices) != 0 {
		t.Errorf("paused traversal offers choices: %v", snap.Choices)
	}

	// Wounded heroes cannot resume.
	_, err = f.engine.ResumeQuest(ctx, testUserID, "ledge_trial")
	var unavail *UnavailableError
	if !errors.As(err, &unavail) || unavail.Reason != ReasonRecovering {
		t.Fatalf("ResumeQuest() error = %v, want reason %q", err, ReasonRecovering)
	}

	f.hero.HP = f.hero.MaxHP
	snap, err = f.engine.ResumeQuest(ctx, testUserID, "ledge_trial")
	if err != nil {
		t.Fatalf("ResumeQuest() after healing error = %v", err)
	}
	if snap.Status != models.ProgressStatusActive || snap.NodeID != "ledge" {
		t.Errorf("resumed at %s/%s, want active at ledge", snap.NodeID, snap.Status)
	}
	if len(snap.Choices) == 0 {
		t.Errorf("resumed traversal has no choices")
	}
}

func Test_Engine_StartQuest_RecoveryBranchPauses(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"mire_cross": mireDoc()}, testHero())

	snap, err := f.engine.StartQuest(context.Background(), testUserID, "mire_cross")
	if err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	if snap.Status != models.ProgressStatusPaused {
		t.Errorf("status = %s, want paused on a require_recovery branch", snap.Status)
	}
	if f.hero.HP != 26 {
		t.Errorf("hero HP = %d, want 26 (paused while health remains)", f.hero.HP)
	}
}

func Test_Engine_ResumeQuest_NotPaused(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "ledge_trial"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	_, err := f.engine.ResumeQuest(ctx, testUserID, "ledge_trial")
	var unavail *UnavailableError
	if !errors.As(err, &unavail) || unavail.Reason != ReasonNotPaused {
		t.Errorf("ResumeQuest() error = %v, want reason %q", err, ReasonNotPaused)
	}
}

func Test_Engine_ApplyChoice_CompletionOutranksRecovery(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"last_stand": lastStandDoc()}, testHero())
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "last_stand"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	snap, err := f.engine.ApplyChoice(ctx, testUserID, "last_stand", "rampart#0")
	if err != nil {
		t.Fatalf("ApplyChoice() error = %v", err)
	}

	if snap.Status != models.ProgressStatusCompleted {
		t.Errorf("status = %s, want completed even at zero health", snap.Status)
	}
	if f.hero.HP != 0 {
		t.Errorf("hero HP = %d, want 0", f.hero.HP)
	}
	if snap.Events[0].Damage != 50 {
		t.Errorf("collapse outcome = %+v", snap.Events[0])
	}
}

func Test_Engine_StartQuest_FaultedEventHasNoEffects(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"hex_ward": hexDoc()}, testHero())

	snap, err := f.engine.StartQuest(context.Background(), testUserID, "hex_ward")
	if err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}

	ward := snap.Events[0]
	if !ward.Faulted || ward.Branch != models.BranchFailure {
		t.Fatalf("ward outcome = %+v, want faulted failure", ward)
	}
	if ward.Damage != 0 || ward.Text != "" {
		t.Errorf("faulted outcome carried branch effects: %+v", ward)
	}
	if f.hero.HP != 30 {
		t.Errorf("hero HP = %d, want 30 untouched", f.hero.HP)
	}
	if snap.Status != models.ProgressStatusActive {
		t.Errorf("status = %s, want active (faulted events do not pause)", snap.Status)
	}
	if snap.Rewards != nil {
		t.Errorf("faulted turn produced rewards: %+v", snap.Rewards)
	}

	// The fault is recorded, so the event will replay instead of re-firing.
	row := f.row("hex_ward")
	if _, ok := row.ResolvedEvents[models.EventKey("hex_ward", "threshold", "ward")]; !ok {
		t.Errorf("faulted outcome not recorded: %v", row.ResolvedEvents)
	}
}

func Test_Engine_CompleteQuest_ChainStepMaxMerges(t *testing.T) {
	hero := testHero()
	hero.ChainSteps["guild_path"] = 2
	docs := map[string]*models.QuestDocument{
		"guild_oath": chainDoc("guild_oath", 1),
		"guild_rite": chainDoc("guild_rite", 3),
	}
	f := newEngineFixture(t, docs, hero)
	ctx := context.Background()

	// Completing an earlier chain step never rolls the cursor back.
	if _, err := f.engine.StartQuest(ctx, testUserID, "guild_oath"); err != nil {
		t.Fatalf("StartQuest(guild_oath) error = %v", err)
	}
	if _, err := f.engine.ApplyChoice(ctx, testUserID, "guild_oath", "hall#0"); err != nil {
		t.Fatalf("ApplyChoice(guild_oath) error = %v", err)
	}
	if got := f.hero.ChainSteps["guild_path"]; got != 2 {
		t.Errorf("chain step = %d after step-1 quest, want 2", got)
	}

	// Completing a later step advances it.
	if _, err := f.engine.StartQuest(ctx, testUserID, "guild_rite"); err != nil {
		t.Fatalf("StartQuest(guild_rite) error = %v", err)
	}
	if _, err := f.engine.ApplyChoice(ctx, testUserID, "guild_rite", "hall#0"); err != nil {
		t.Fatalf("ApplyChoice(guild_rite) error = %v", err)
	}
	if got := f.hero.ChainSteps["guild_path"]; got != 3 {
		t.Errorf("chain step = %d after step-3 quest, want 3", got)
	}
}

func Test_Engine_StartQuest_RestartKeepsVersionRising(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"guild_oath": chainDoc("guild_oath", 1)}, testHero())
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "guild_oath"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	if _, err := f.engine.ApplyChoice(ctx, testUserID, "guild_oath", "hall#0"); err != nil {
		t.Fatalf("ApplyChoice() error = %v", err)
	}
	if row := f.row("guild_oath"); row.Status != models.ProgressStatusCompleted || row.Version != 1 {
		t.Fatalf("row after completion = %+v", row)
	}

	snap, err := f.engine.StartQuest(ctx, testUserID, "guild_oath")
	if err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if snap.Status != models.ProgressStatusActive || snap.NodeID != "hall" {
		t.Errorf("restart landed at %s/%s", snap.NodeID, snap.Status)
	}

	row := f.row("guild_oath")
	if row.Version != 2 {
		t.Errorf("row version = %d, want 2 (versions rise across runs)", row.Version)
	}
	if row.CompletedAt != nil || len(row.ResolvedEvents) != 0 {
		t.Errorf("restart kept terminal state: %+v", row)
	}
	if !reflect.DeepEqual(row.VisitedNodes, []string{"hall"}) {
		t.Errorf("restart visited = %v, want [hall]", row.VisitedNodes)
	}
}

func Test_Engine_ListConnections(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"moor_fork": forkDoc()}, testHero())
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "moor_fork"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}

	// Neither gated connection is satisfied, so only the default shows.
	got, err := f.engine.ListConnections(ctx, testUserID, "moor_fork")
	if err != nil {
		t.Fatalf("ListConnections() error = %v", err)
	}
	want := []Choice{{ConnectionID: "fork#2", Default: true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListConnections() = %v, want %v", got, want)
	}

	// Satisfied connections list ahead of the default, in declared order.
	f.hero.WorldFlags["moor.map"] = true
	f.hero.Reputation["rangers"] = 20
	got, err = f.engine.ListConnections(ctx, testUserID, "moor_fork")
	if err != nil {
		t.Fatalf("ListConnections() error = %v", err)
	}
	want = []Choice{
		{ConnectionID: "fork#0"},
		{ConnectionID: "fork#1", Text: "Cut across the heath"},
		{ConnectionID: "fork#2", Default: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListConnections() = %v, want %v", got, want)
	}
}

func Test_Engine_DeclineQuest(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "ledge_trial"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	snap, err := f.engine.DeclineQuest(ctx, testUserID, "ledge_trial")
	if err != nil {
		t.Fatalf("DeclineQuest() error = %v", err)
	}
	if snap.Status != models.ProgressStatusDeclined {
		t.Errorf("status = %s, want declined", snap.Status)
	}

	// Declined traversals have no live choices and cannot decline again.
	choices, err := f.engine.ListConnections(ctx, testUserID, "ledge_trial")
	if err != nil || choices != nil {
		t.Errorf("ListConnections() = %v, %v, want nil, nil", choices, err)
	}
	_, err = f.engine.DeclineQuest(ctx, testUserID, "ledge_trial")
	var unavail *UnavailableError
	if !errors.As(err, &unavail) || unavail.Reason != ReasonNotActive {
		t.Errorf("second DeclineQuest() error = %v, want reason %q", err, ReasonNotActive)
	}

	// Declined is terminal, so a fresh start reuses the row.
	if _, err := f.engine.StartQuest(ctx, testUserID, "ledge_trial"); err != nil {
		t.Errorf("StartQuest() after decline error = %v", err)
	}
}

func Test_Engine_ViewMap(t *testing.T) {
	f := newEngineFixture(t, map[string]*models.QuestDocument{"ledge_trial": trialDoc()}, testHero())
	ctx := context.Background()

	if _, err := f.engine.StartQuest(ctx, testUserID, "ledge_trial"); err != nil {
		t.Fatalf("StartQuest() error = %v", err)
	}
	if _, err := f.engine.ApplyChoice(ctx, testUserID, "ledge_trial", "trail#0"); err != nil {
		t.Fatalf("ApplyChoice() error = %v", err)
	}

	view, err := f.engine.ViewMap(ctx, testUserID, "ledge_trial")
	if err != nil {
		t.Fatalf("ViewMap() error = %v", err)
	}

	if view.QuestID != "ledge_trial" || view.Current != "ledge" || view.Status != models.ProgressStatusActive {
		t.Errorf("ViewMap() header = %+v", view)
	}
	wantNodes := []MapNode{
		{ID: "trail", Type: models.NodeTypeStart, Visited: true},
		{ID: "ledge", Type: models.NodeTypeAction, Visited: true, Current: true},
		{ID: "camp", Type: models.NodeTypeChoice},
		{ID: "summit", Type: models.NodeTypeEnd, Final: true},
	}
	if !reflect.DeepEqual(view.Nodes, wantNodes) {
		t.Errorf("ViewMap() nodes = %+v, want %+v", view.Nodes, wantNodes)
	}
	wantChoices := []Choice{
		{ConnectionID: "ledge#1", Text: "Drop to the camp"},
		{ConnectionID: "ledge#3", Text: "Push for the summit"},
	}
	if !reflect.DeepEqual(view.Choices, wantChoices) {
		t.Errorf("ViewMap() choices = %+v, want %+v", view.Choices, wantChoices)
	}

	_, err = f.engine.ViewMap(ctx, testUserID, "moor_fork")
	if !errors.Is(err, ErrQuestNotFound) {
		t.Errorf("ViewMap(unknown quest) error = %v, want ErrQuestNotFound", err)
	}
}
