package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fablesmith/questforge/questforge/database/models"
)

// InitializeQuestData seeds the starter quest documents so a fresh install
// has something to offer before the first definition sync runs.
func (db *DB) InitializeQuestData(ctx context.Context) error {
	var questCount int
	err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM quest_definitions").Scan(&questCount)
	if err == nil && questCount > 0 {
		slog.Info("Quest data already initialized, skipping",
			slog.Int("existing_quests", questCount))
		return nil
	}

	slog.Info("Initializing quest definitions...")

	defs := starterQuests()
	now := time.Now()
	for i := range defs {
		defs[i].Source = "seed"
		defs[i].CreatedAt = now
		defs[i].UpdatedAt = now
	}

	_, err = db.bunDB.NewInsert().
		Model(&defs).
		On("CONFLICT (quest_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert quest definitions: %w", err)
	}

	slog.Info("Quest definitions initialized", slog.Int("count", len(defs)))
	return nil
}

func starterQuests() []models.QuestDefinition {
	embers := models.QuestDocument{
		ID:          "first_embers",
		Title:       "First Embers",
		Description: "Wake by the cold campfire and make your way to Hollowbrook.",
		Nodes: []models.NodeDoc{
			{
				ID:      "awakening",
				Type:    models.NodeTypeStart,
				Title:   "A Cold Morning",
				IsStart: true,
				WorldFlags: &models.FlagOpsDoc{
					Set: map[string]any{"embers.awake": true},
				},
				Events: []models.EventDoc{
					{
						ID:       "dream_echo",
						Type:     models.EventTypeStoryMoment,
						StoryKey: "embers_dream",
					},
				},
			},
			{
				ID:    "crossroads",
				Type:  models.NodeTypeChoice,
				Title: "The Crossroads",
			},
			{
				ID:    "forest_path",
				Type:  models.NodeTypeAction,
				Title: "Through the Bramblewood",
				Events: []models.EventDoc{
					{
						ID:         "thicket_dash",
						Type:       models.EventTypeStatCheck,
						Attribute:  models.AttrAgility,
						Difficulty: 8,
						Failure: &models.EventBranchDoc{
							Text:   "Thorns tear at your cloak as you stumble through.",
							Damage: 5,
						},
						Success: &models.EventBranchDoc{
							Text: "You weave between the briars without a scratch.",
						},
					},
				},
			},
			{
				ID:    "kings_road",
				Type:  models.NodeTypeAction,
				Title: "The King's Road",
			},
			{
				ID:      "arrival",
				Type:    models.NodeTypeEnd,
				Title:   "Hollowbrook Gate",
				IsFinal: true,
				Reward: &models.RewardDoc{
					Items:  []models.ItemGrant{{Code: "travel_rations", Quantity: 2}},
					Metric: "quests.tutorial",
				},
			},
		},
		Connections: []models.ConnectionDoc{
			{From: "awakening", To: "crossroads", Type: models.ConnectionTypeDefault},
			{
				From: "crossroads", To: "forest_path",
				Type: models.ConnectionTypeChoice, ChoiceText: "Cut through the Bramblewood", Order: 1,
			},
			{
				From: "crossroads", To: "kings_road",
				Type: models.ConnectionTypeChoice, ChoiceText: "Follow the King's Road", Order: 2,
			},
			{From: "forest_path", To: "arrival", Type: models.ConnectionTypeDefault},
			{From: "kings_road", To: "arrival", Type: models.ConnectionTypeDefault},
		},
	}

	initiation := models.QuestDocument{
		ID:          "guild_initiation",
		Title:       "Guild Initiation",
		Description: "Prove yourself in the trial chamber of the Adventurers' Guild.",
		Requires: models.QuestRequirements{
			QuestsCompleted: []string{"first_embers"},
		},
		Chain: &models.ChainRef{ID: "guild_path", Step: 1},
		Nodes: []models.NodeDoc{
			{
				ID:      "guild_hall",
				Type:    models.NodeTypeStart,
				Title:   "The Guild Hall",
				IsStart: true,
				WorldFlags: &models.FlagOpsDoc{
					Set: map[string]any{"guild.visited": true},
				},
			},
			{
				ID:    "trial_chamber",
				Type:  models.NodeTypeAction,
				Title: "The Trial Chamber",
				Events: []models.EventDoc{
					{
						ID:         "pit_trap",
						Type:       models.EventTypeTrap,
						Attribute:  models.AttrAgility,
						Difficulty: 11,
						Failure: &models.EventBranchDoc{
							Text:            "The floor gives way beneath you.",
							Damage:          20,
							RequireRecovery: true,
						},
						Success: &models.EventBranchDoc{
							Text: "You leap aside as the flagstones drop into darkness.",
						},
					},
					{
						ID:         "sigil_lock",
						Type:       models.EventTypePuzzle,
						Difficulty: 10,
						Success: &models.EventBranchDoc{
							Text:   "The sigils align and the far door grinds open.",
							Reward: &models.RewardDoc{Metrics: map[string]int{"puzzles.solved": 1}},
						},
					},
				},
			},
			{
				ID:      "oath",
				Type:    models.NodeTypeEnd,
				Title:   "The Oath",
				IsFinal: true,
				Reward: &models.RewardDoc{
					WorldFlags: &models.FlagOpsDoc{
						Set:   map[string]any{"guild.member": true},
						Clear: []string{"guild.visited"},
					},
					Metrics: map[string]int{"guild.trials": 1},
				},
			},
		},
		Connections: []models.ConnectionDoc{
			{
				From: "guild_hall", To: "trial_chamber",
				Type: models.ConnectionTypeChoice, ChoiceText: "Enter the trial chamber", Order: 1,
			},
			{
				From: "guild_hall", To: "oath",
				Type: models.ConnectionTypeCondition, Order: 2,
				Conditions: map[string]any{
					"rep.atLeast": map[string]any{"faction": "adventurers_guild", "value": 20},
				},
			},
			{From: "trial_chamber", To: "oath", Type: models.ConnectionTypeDefault},
		},
	}

	pilgrimage := models.QuestDocument{
		ID:          "moonwell_pilgrimage",
		Title:       "Moonwell Pilgrimage",
		Description: "Carry the guild's offering to the Moonwell under a dark sky.",
		Requires: models.QuestRequirements{
			QuestsCompleted: []string{"guild_initiation"},
			WorldFlags:      models.FlagChecks{Has: []string{"guild.member"}},
		},
		Chain: &models.ChainRef{ID: "guild_path", Step: 2},
		Nodes: []models.NodeDoc{
			{
				ID:      "night_gate",
				Type:    models.NodeTypeStart,
				Title:   "The Night Gate",
				IsStart: true,
			},
			{
				ID:    "dark_ford",
				Type:  models.NodeTypeCondition,
				Title: "The Dark Ford",
				Events: []models.EventDoc{
					{
						ID:         "cold_current",
						Type:       models.EventTypeStatCheck,
						Attribute:  models.AttrStrength,
						Difficulty: 12,
						Dice:       intPtr(8),
						Failure: &models.EventBranchDoc{
							Text:   "The current drags you under before you claw ashore.",
							Damage: 10,
						},
						Success: &models.EventBranchDoc{
							Text: "You wade the ford with the offering held high.",
						},
					},
				},
			},
			{
				ID:    "lantern_bridge",
				Type:  models.NodeTypeAction,
				Title: "The Lantern Bridge",
				WorldFlags: &models.FlagOpsDoc{
					Set: map[string]any{"moonwell.lit_path": true},
				},
			},
			{
				ID:      "moonwell",
				Type:    models.NodeTypeEnd,
				Title:   "The Moonwell",
				IsFinal: true,
				Events: []models.EventDoc{
					{
						ID:       "offering",
						Type:     models.EventTypeStoryMoment,
						StoryKey: "moonwell_offering",
					},
				},
				Reward: &models.RewardDoc{
					Items:   []models.ItemGrant{{Code: "moonwell_charm", Quantity: 1}},
					Metrics: map[string]int{"pilgrimages": 1},
				},
			},
		},
		Connections: []models.ConnectionDoc{
			{
				From: "night_gate", To: "dark_ford",
				Type: models.ConnectionTypeChoice, ChoiceText: "Swim the dark ford", Order: 1,
			},
			{
				From: "night_gate", To: "lantern_bridge",
				Type: models.ConnectionTypeChoice, ChoiceText: "Cross the lantern bridge", Order: 2,
				Conditions: map[string]any{
					"world_flags.missing": []string{"bridge.collapsed"},
				},
			},
			{
				From: "dark_ford", To: "moonwell",
				Type: models.ConnectionTypeCondition,
				Conditions: map[string]any{
					"world_flags.has": []string{"embers.awake"},
				},
			},
			{From: "dark_ford", To: "moonwell", Type: models.ConnectionTypeDefault},
			{From: "lantern_bridge", To: "moonwell", Type: models.ConnectionTypeDefault},
		},
	}

	return []models.QuestDefinition{
		{ID: embers.ID, Title: embers.Title, Summary: embers.Description, Document: embers},
		{ID: initiation.ID, Title: initiation.Title, Summary: initiation.Description, Document: initiation},
		{ID: pilgrimage.ID, Title: pilgrimage.Title, Summary: pilgrimage.Description, Document: pilgrimage},
	}
}

func intPtr(v int) *int {
	return &v
}
