package quest

import (
	"errors"
	"strings"
	"testing"

	"github.com/fablesmith/questforge/questforge/database/models"
)

func compilableDoc() *models.QuestDocument {
	return &models.QuestDocument{
		ID:    "ledge_trial",
		Title: "Trial of the Ledge",
		Chain: &models.ChainRef{ID: "guild_path", Step: 2},
		Nodes: []models.NodeDoc{
			{ID: "trail", Type: models.NodeTypeStart},
			{
				ID:     "ledge",
				Type:   models.NodeTypeAction,
				Reward: &models.RewardDoc{Metric: "ledges_braved", Metrics: map[string]int{"grit": 2}},
				Events: []models.EventDoc{
					{ID: "leap", Type: models.EventTypeStatCheck},
					{ID: "echo", Type: models.EventTypeStoryMoment},
				},
			},
			{ID: "summit", Type: models.NodeTypeEnd},
		},
		Connections: []models.ConnectionDoc{
			{From: "trail", To: "ledge", Type: models.ConnectionTypeChoice, ChoiceText: "Take the ledge", Order: 2},
			{ID: "shortcut", From: "trail", To: "summit", Type: models.ConnectionTypeCondition, Order: 1,
				Conditions: map[string]any{"world_flags.has": "rope.anchored"}},
			{From: "ledge", To: "summit", Type: models.ConnectionTypeDefault},
		},
	}
}

func TestCompile(t *testing.T) {
	doc := compilableDoc()
	cq, err := Compile(doc)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if cq.ID != "ledge_trial" || cq.Title != "Trial of the Ledge" {
		t.Errorf("Compile() id/title = %s/%s", cq.ID, cq.Title)
	}
	if cq.Start == nil || cq.Start.ID != "trail" || !cq.Start.IsStart {
		t.Errorf("Compile() start = %+v, want trail", cq.Start)
	}

	// Unset connection ids derive from the source node and the declaration
	// index across the whole document.
	for _, id := range []string{"trail#0", "shortcut", "ledge#2"} {
		if cq.Connection(id) == nil {
			t.Errorf("Compile() missing connection %s", id)
		}
	}

	out := cq.Outgoing("trail")
	if len(out) != 2 || out[0].ID != "shortcut" || out[1].ID != "trail#0" {
		ids := make([]string, len(out))
		for i, c := range out {
			ids[i] = c.ID
		}
		t.Errorf("Outgoing(trail) = %v, want [shortcut trail#0]", ids)
	}

	ledge := cq.Node("ledge")
	leap := &ledge.Events[0]
	if leap.Attribute != DefaultAttribute || leap.Difficulty != DefaultDifficulty {
		t.Errorf("event defaults not applied: %+v", leap)
	}
	if leap.Dice == nil || *leap.Dice != DefaultDice {
		t.Errorf("event dice default not applied: %v", leap.Dice)
	}
	if echo := &ledge.Events[1]; echo.StoryKey != "echo" {
		t.Errorf("story key fallback = %q, want echo", echo.StoryKey)
	}

	if ledge.Reward.Metric != "" {
		t.Errorf("metric shorthand not folded: %+v", ledge.Reward)
	}
	if ledge.Reward.Metrics["ledges_braved"] != 1 || ledge.Reward.Metrics["grit"] != 2 {
		t.Errorf("folded metrics = %v", ledge.Reward.Metrics)
	}
}

func TestCompileLeavesInputUntouched(t *testing.T) {
	doc := compilableDoc()
	if _, err := Compile(doc); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if doc.Connections[0].ID != "" {
		t.Errorf("derived id written back to input: %q", doc.Connections[0].ID)
	}
	if doc.Nodes[1].Events[0].Attribute != "" || doc.Nodes[1].Events[0].Dice != nil {
		t.Errorf("event defaults written back to input: %+v", doc.Nodes[1].Events[0])
	}
	if doc.Nodes[1].Reward.Metric != "ledges_braved" {
		t.Errorf("reward shorthand folded in place: %+v", doc.Nodes[1].Reward)
	}
	if doc.Nodes[0].IsStart {
		t.Errorf("start marker written back to input")
	}
}

func TestCompileRejections(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(doc *models.QuestDocument)
		wantProblem string
	}{
		{
			name:        "missing quest id",
			mutate:      func(doc *models.QuestDocument) { doc.ID = "" },
			wantProblem: "missing quest id",
		},
		{
			name:        "missing title",
			mutate:      func(doc *models.QuestDocument) { doc.Title = "" },
			wantProblem: "missing quest title",
		},
		{
			name:        "chain without id",
			mutate:      func(doc *models.QuestDocument) { doc.Chain.ID = "" },
			wantProblem: "chain reference missing id",
		},
		{
			name:        "chain step not positive",
			mutate:      func(doc *models.QuestDocument) { doc.Chain.Step = 0 },
			wantProblem: "chain step must be positive, got 0",
		},
		{
			name:        "no nodes",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes = nil },
			wantProblem: "no nodes declared",
		},
		{
			name:        "node without id",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].ID = "" },
			wantProblem: "node at index 1: missing id",
		},
		{
			name:        "duplicate node id",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[2].ID = "trail" },
			wantProblem: "node trail: duplicate id",
		},
		{
			name:        "unknown node type",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].Type = "puzzle" },
			wantProblem: `node ledge: unknown type "puzzle"`,
		},
		{
			name:        "no start node",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[0].Type = models.NodeTypeAction },
			wantProblem: "no start node declared",
		},
		{
			name:        "multiple start nodes",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].IsStart = true },
			wantProblem: "multiple start nodes declared",
		},
		{
			name:        "duplicate connection id",
			mutate:      func(doc *models.QuestDocument) { doc.Connections[2].ID = "shortcut" },
			wantProblem: "connection shortcut: duplicate id",
		},
		{
			name:        "unknown connection type",
			mutate:      func(doc *models.QuestDocument) { doc.Connections[0].Type = "teleport" },
			wantProblem: `connection trail#0: unknown type "teleport"`,
		},
		{
			name:        "unknown source node",
			mutate:      func(doc *models.QuestDocument) { doc.Connections[0].From = "nowhere" },
			wantProblem: `connection nowhere#0: unknown source node "nowhere"`,
		},
		{
			name:        "unknown target node",
			mutate:      func(doc *models.QuestDocument) { doc.Connections[0].To = "nowhere" },
			wantProblem: `connection trail#0: unknown target node "nowhere"`,
		},
		{
			name:        "connection back into the start node",
			mutate:      func(doc *models.QuestDocument) { doc.Connections[2].To = "trail" },
			wantProblem: "connection ledge#2: targets the start node",
		},
		{
			name:        "choice without text",
			mutate:      func(doc *models.QuestDocument) { doc.Connections[0].ChoiceText = "" },
			wantProblem: "connection trail#0: choice without choice_text",
		},
		{
			name:        "event without id",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].Events[0].ID = "" },
			wantProblem: "node ledge: event at index 0 missing id",
		},
		{
			name:        "duplicate event id",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].Events[1].ID = "leap" },
			wantProblem: "node ledge: duplicate event id leap",
		},
		{
			name:        "unknown event type",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].Events[0].Type = "ambush" },
			wantProblem: `node ledge: event leap: unknown type "ambush"`,
		},
		{
			name:        "negative dice",
			mutate:      func(doc *models.QuestDocument) { doc.Nodes[1].Events[0].Dice = intPtr(-1) },
			wantProblem: "node ledge: event leap: negative dice -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := compilableDoc()
			tt.mutate(doc)

			cq, err := Compile(doc)
			if cq != nil {
				t.Fatalf("Compile() returned a graph despite %s", tt.name)
			}
			if !errors.Is(err, ErrDefinitionInvalid) {
				t.Fatalf("Compile() error = %v, want ErrDefinitionInvalid", err)
			}
			var defErr *DefinitionError
			if !errors.As(err, &defErr) {
				t.Fatalf("Compile() error type = %T", err)
			}
			found := false
			for _, p := range defErr.Problems {
				if strings.Contains(p, tt.wantProblem) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Compile() problems = %v, want one containing %q", defErr.Problems, tt.wantProblem)
			}
		})
	}
}

func TestCompileCollectsEveryProblem(t *testing.T) {
	doc := compilableDoc()
	doc.Title = ""
	doc.Nodes[1].Type = "puzzle"
	doc.Connections[0].ChoiceText = ""

	_, err := Compile(doc)
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(defErr.Problems) != 3 {
		t.Errorf("Compile() collected %d problems, want 3: %v", len(defErr.Problems), defErr.Problems)
	}
	if defErr.QuestID != "ledge_trial" {
		t.Errorf("DefinitionError quest id = %q", defErr.QuestID)
	}
}
