package quest

import (
	"github.com/fablesmith/questforge/questforge/database/models"
)

// MergeReward folds a reward grant into a delta: items and metrics
// additive, flag sets in sorted key order followed by clears. Compilation
// normalizes the singular metric shorthand, but the fold still honors it
// for documents applied without compiling.
func MergeReward(delta *models.TurnDelta, reward *models.RewardDoc) {
	if reward == nil {
		return
	}
	for _, grant := range reward.Items {
		delta.AddItem(grant.Code, grant.Quantity)
	}
	delta.MergeFlagOps(reward.WorldFlags)
	if reward.Metric != "" {
		delta.AddMetric(reward.Metric, 1)
	}
	for name, n := range reward.Metrics {
		delta.AddMetric(name, n)
	}
}

// Apply folds an accumulated delta into the working snapshot. The engine
// applies each staged step immediately so conditions evaluated later in the
// same turn see earlier writes; repositories run the identical merge when
// persisting.
func Apply(delta *models.TurnDelta, working *models.HeroSnapshot) {
	if delta == nil || working == nil {
		return
	}
	delta.ApplyTo(working)
}
