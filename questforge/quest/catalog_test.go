package quest

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/fablesmith/questforge/questforge/interfaces/mock"
)

func catalogFixture(t *testing.T) *Catalog {
	ctrl := gomock.NewController(t)

	defs := mock.NewMockDefinitionRepository(ctrl)
	defs.EXPECT().
		GetAll(gomock.Any()).
		Return([]*models.QuestDefinition{
			defRecord(gateDoc()),
			defRecord(trialDoc()),
			defRecord(chainDoc("guild_oath", 1)),
		}, nil).
		AnyTimes()

	hero := testHero()
	hero.CompletedQuests["guild_oath"] = true
	heroes := mock.NewMockHeroRepository(ctrl)
	heroes.EXPECT().
		Snapshot(gomock.Any(), testUserID.String()).
		Return(hero, nil).
		AnyTimes()

	progress := mock.NewMockProgressRepository(ctrl)
	progress.EXPECT().
		GetActiveByUser(gomock.Any(), testUserID.String()).
		Return([]*models.QuestProgress{
			{UserID: testUserID.String(), QuestID: "ledge_trial", Status: models.ProgressStatusPaused},
		}, nil).
		AnyTimes()

	return NewCatalog(NewStore(defs), progress, heroes)
}

func Test_Catalog_List(t *testing.T) {
	c := catalogFixture(t)

	offers, err := c.List(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("List() returned %d offers, want 3", len(offers))
	}

	// Offers follow the store's quest-id ordering.
	gate, oath, trial := offers[0], offers[1], offers[2]

	if gate.ID != "gate_pass" || gate.Available {
		t.Errorf("gate offer = %+v, want locked", gate)
	}
	if len(gate.LockedReasons) != 1 || gate.LockedReasons[0] != "requires 15 reputation with mages_guild (have 10)" {
		t.Errorf("gate locked reasons = %v", gate.LockedReasons)
	}

	if oath.ID != "guild_oath" || !oath.Available || !oath.Completed {
		t.Errorf("oath offer = %+v, want available and completed", oath)
	}
	if oath.Chain == nil || oath.Chain.ID != "guild_path" {
		t.Errorf("oath chain = %+v", oath.Chain)
	}

	if trial.ID != "ledge_trial" || !trial.InProgress || !trial.Paused || trial.Available {
		t.Errorf("trial offer = %+v, want paused in-progress", trial)
	}
}

func Test_Catalog_Search(t *testing.T) {
	c := catalogFixture(t)
	ctx := context.Background()

	got, err := c.Search(ctx, testUserID, "ledge")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "ledge_trial" {
		ids := make([]string, len(got))
		for i, offer := range got {
			ids[i] = offer.ID
		}
		t.Errorf("Search(ledge) = %v, want [ledge_trial]", ids)
	}

	all, err := c.Search(ctx, testUserID, "  ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Search(blank) returned %d offers, want the full list", len(all))
	}
}
