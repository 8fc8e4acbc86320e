package quest

import (
	"reflect"
	"testing"

	"github.com/fablesmith/questforge/questforge/database/models"
)

func TestCheckRequirements(t *testing.T) {
	snap := &models.HeroSnapshot{
		WorldFlags:      map[string]any{"cave.lit": true, "curse.mark": false},
		Reputation:      map[string]int{"mages_guild": 10},
		CompletedQuests: map[string]bool{"gate_pass": true},
	}

	tests := []struct {
		name string
		req  models.QuestRequirements
		want []string
	}{
		{
			name: "empty requirements pass",
			req:  models.QuestRequirements{},
			want: nil,
		},
		{
			name: "all satisfied",
			req: models.QuestRequirements{
				QuestsCompleted: []string{"gate_pass"},
				Rep:             map[string]int{"mages_guild": 10},
				WorldFlags:      models.FlagChecks{Has: []string{"cave.lit"}, Missing: []string{"torch.lit"}},
			},
			want: nil,
		},
		{
			name: "missing quest completion",
			req:  models.QuestRequirements{QuestsCompleted: []string{"cave_delve"}},
			want: []string{`complete quest "cave_delve" first`},
		},
		{
			name: "reputation short",
			req:  models.QuestRequirements{Rep: map[string]int{"mages_guild": 15}},
			want: []string{"requires 15 reputation with mages_guild (have 10)"},
		},
		{
			name: "unknown faction counts as zero",
			req:  models.QuestRequirements{Rep: map[string]int{"rangers": 1}},
			want: []string{"requires 1 reputation with rangers (have 0)"},
		},
		{
			name: "required flag falsy",
			req:  models.QuestRequirements{WorldFlags: models.FlagChecks{Has: []string{"curse.mark"}}},
			want: []string{`requires world flag "curse.mark"`},
		},
		{
			name: "blocking flag present even when falsy",
			req:  models.QuestRequirements{WorldFlags: models.FlagChecks{Missing: []string{"curse.mark"}}},
			want: []string{`blocked by world flag "curse.mark"`},
		},
		{
			name: "reputation reasons come out in faction order",
			req:  models.QuestRequirements{Rep: map[string]int{"rangers": 5, "harbor_watch": 2}},
			want: []string{
				"requires 2 reputation with harbor_watch (have 0)",
				"requires 5 reputation with rangers (have 0)",
			},
		},
		{
			name: "every unmet requirement is reported",
			req: models.QuestRequirements{
				QuestsCompleted: []string{"cave_delve"},
				Rep:             map[string]int{"mages_guild": 15},
				WorldFlags:      models.FlagChecks{Has: []string{"torch.lit"}, Missing: []string{"cave.lit"}},
			},
			want: []string{
				`complete quest "cave_delve" first`,
				"requires 15 reputation with mages_guild (have 10)",
				`requires world flag "torch.lit"`,
				`blocked by world flag "cave.lit"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckRequirements(tt.req, snap)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CheckRequirements() = %v, want %v", got, tt.want)
			}
		})
	}
}
