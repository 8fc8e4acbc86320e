package quest

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sahilm/fuzzy"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/fablesmith/questforge/questforge/interfaces"
)

// QuestOffer is one catalog entry: a quest a user could take, with the
// reasons it is locked when they cannot.
type QuestOffer struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Chain         *models.ChainRef `json:"chain,omitempty"`
	Available     bool             `json:"available"`
	LockedReasons []string         `json:"locked_reasons,omitempty"`
	InProgress    bool             `json:"in_progress,omitempty"`
	Paused        bool             `json:"paused,omitempty"`
	Completed     bool             `json:"completed,omitempty"`
}

// questOffers implements fuzzy.Source over offer titles.
type questOffers []QuestOffer

func (offers questOffers) Len() int {
	return len(offers)
}

func (offers questOffers) String(i int) string {
	return offers[i].Title
}

// Catalog lists the quests a user can see. Definitions that fail to
// compile are skipped by the store and never offered.
type Catalog struct {
	store    *Store
	progress interfaces.ProgressRepository
	heroes   interfaces.HeroRepository
}

func NewCatalog(store *Store, progress interfaces.ProgressRepository, heroes interfaces.HeroRepository) *Catalog {
	return &Catalog{
		store:    store,
		progress: progress,
		heroes:   heroes,
	}
}

// List returns an offer for every loadable quest, sorted by quest id. The
// availability check is the same one StartQuest enforces, so an offer
// marked available starts unless state moved in between.
func (c *Catalog) List(ctx context.Context, userID snowflake.ID) ([]QuestOffer, error) {
	uid := userID.String()

	compiled, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := c.heroes.Snapshot(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero %s: %w", uid, err)
	}
	open, err := c.progress.GetActiveByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load open quests: %w", err)
	}
	openByQuest := make(map[string]*models.QuestProgress, len(open))
	for _, prog := range open {
		openByQuest[prog.QuestID] = prog
	}

	offers := make([]QuestOffer, 0, len(compiled))
	for _, cq := range compiled {
		offer := QuestOffer{
			ID:          cq.ID,
			Title:       cq.Title,
			Description: cq.Doc.Description,
			Chain:       cq.Doc.Chain,
			Completed:   snap.HasCompleted(cq.ID),
		}
		if prog, ok := openByQuest[cq.ID]; ok {
			offer.InProgress = true
			offer.Paused = prog.Status == models.ProgressStatusPaused
			offer.LockedReasons = []string{"already in progress"}
		} else if missing := CheckRequirements(cq.Doc.Requires, snap); len(missing) > 0 {
			offer.LockedReasons = missing
		} else {
			offer.Available = true
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// Search fuzzy-matches the catalog by title, best matches first. An empty
// query returns the full list.
func (c *Catalog) Search(ctx context.Context, userID snowflake.ID, query string) ([]QuestOffer, error) {
	offers, err := c.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return offers, nil
	}

	matches := fuzzy.FindFrom(query, questOffers(offers))
	results := make([]QuestOffer, len(matches))
	for i, match := range matches {
		results[i] = offers[match.Index]
	}
	return results, nil
}
