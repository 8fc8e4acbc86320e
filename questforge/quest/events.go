package quest

import (
	"math/rand"
	"sync"
	"time"

	"github.com/fablesmith/questforge/questforge/database/models"
)

// Defaults applied during compilation when an event omits a field.
const (
	DefaultAttribute  = models.AttrAgility
	DefaultDifficulty = 10
	DefaultDice       = 6
)

// storyMetricPrefix namespaces the per-key counter a story moment bumps.
const storyMetricPrefix = "story."

// Roller yields uniform rolls in [1, sides]. The engine takes it as a
// dependency so tests can pin outcomes.
type Roller interface {
	Roll(sides int) int
}

type randRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns the production roller, seeded once per process.
func NewRoller() Roller {
	return &randRoller{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *randRoller) Roll(sides int) int {
	if sides <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(sides) + 1
}

// FixedRoller always rolls the same value; test hook.
type FixedRoller int

func (f FixedRoller) Roll(sides int) int {
	return int(f)
}

// ResolveEvent resolves one node-entry event against the working snapshot
// and returns the outcome to record. Branch text and damage are filled from
// the selected branch document.
//
// stat_check and trap roll 1..dice and add the named attribute; the check
// succeeds when the total meets the difficulty. Zero dice means an
// attribute-only check. puzzle always succeeds; story_moment succeeds and
// carries its story key. A malformed event (unknown attribute, negative
// dice, out-of-range roll) resolves to a faulted failure: the traversal
// continues down the failure branch but no reward or damage applies.
func ResolveEvent(event *models.EventDoc, snap *models.HeroSnapshot, roller Roller) models.EventOutcome {
	outcome := models.EventOutcome{
		EventID: event.ID,
		Type:    event.Type,
	}

	switch event.Type {
	case models.EventTypePuzzle:
		outcome.Branch = models.BranchSuccess

	case models.EventTypeStoryMoment:
		outcome.Branch = models.BranchSuccess
		outcome.StoryKey = event.StoryKey
		if outcome.StoryKey == "" {
			outcome.StoryKey = event.ID
		}

	case models.EventTypeStatCheck, models.EventTypeTrap:
		outcome = resolveCheck(event, snap, roller)

	default:
		// Compilation rejects unknown types; fail closed if one slips
		// through a hand-built document.
		outcome.Branch = models.BranchFailure
		outcome.Faulted = true
	}

	if br := event.BranchDoc(outcome.Branch); br != nil && !outcome.Faulted {
		outcome.Text = br.Text
		if outcome.Branch == models.BranchFailure {
			outcome.Damage = br.Damage
		}
	}
	return outcome
}

func resolveCheck(event *models.EventDoc, snap *models.HeroSnapshot, roller Roller) models.EventOutcome {
	outcome := models.EventOutcome{
		EventID: event.ID,
		Type:    event.Type,
		Branch:  models.BranchFailure,
	}

	attr := event.Attribute
	if attr == "" {
		attr = DefaultAttribute
	}
	difficulty := event.Difficulty
	if difficulty <= 0 {
		difficulty = DefaultDifficulty
	}
	dice := DefaultDice
	if event.Dice != nil {
		dice = *event.Dice
	}
	outcome.Difficulty = difficulty

	if dice < 0 {
		outcome.Faulted = true
		return outcome
	}
	value, ok := snap.Attribute(attr)
	if !ok {
		outcome.Faulted = true
		return outcome
	}

	roll := 0
	if dice > 0 {
		roll = roller.Roll(dice)
		if roll < 1 || roll > dice {
			outcome.Faulted = true
			return outcome
		}
	}

	outcome.Roll = roll
	outcome.Total = roll + value
	if outcome.Total >= difficulty {
		outcome.Branch = models.BranchSuccess
	}
	return outcome
}
