package quest

import (
	"fmt"
	"sort"

	"github.com/fablesmith/questforge/questforge/database/models"
)

// CheckRequirements returns a human-readable reason for every unmet quest
// requirement. An empty result means the quest can be offered and started.
// Unlike connection conditions, requirements are a closed vocabulary, which
// is what makes reporting reasons possible.
func CheckRequirements(req models.QuestRequirements, snap *models.HeroSnapshot) []string {
	var missing []string

	for _, id := range req.QuestsCompleted {
		if !snap.HasCompleted(id) {
			missing = append(missing, fmt.Sprintf("complete quest %q first", id))
		}
	}

	factions := make([]string, 0, len(req.Rep))
	for faction := range req.Rep {
		factions = append(factions, faction)
	}
	sort.Strings(factions)
	for _, faction := range factions {
		need := req.Rep[faction]
		if have := snap.Reputation[faction]; have < need {
			missing = append(missing, fmt.Sprintf("requires %d reputation with %s (have %d)", need, faction, have))
		}
	}

	for _, key := range req.WorldFlags.Has {
		if !snap.FlagTruthy(key) {
			missing = append(missing, fmt.Sprintf("requires world flag %q", key))
		}
	}
	for _, key := range req.WorldFlags.Missing {
		if snap.FlagPresent(key) {
			missing = append(missing, fmt.Sprintf("blocked by world flag %q", key))
		}
	}

	return missing
}
