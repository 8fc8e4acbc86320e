package quest

import (
	"github.com/fablesmith/questforge/questforge/database/models"
)

// Condition vocabulary understood by the evaluator. Anything outside it
// evaluates to false.
const (
	condFlagsHas        = "world_flags.has"
	condFlagsMissing    = "world_flags.missing"
	condQuestsCompleted = "quests_completed.has"
	condRepAtLeast      = "rep.atLeast"
	condRep             = "rep"
)

// EvaluateConditions reports whether every predicate in a connection's
// condition map holds for the snapshot. It is pure and total: an empty map
// is true, unknown predicate kinds and malformed shapes are false, and no
// input panics. Callers may re-evaluate freely; listing connections and
// applying a choice share this exact path.
func EvaluateConditions(conds map[string]any, snap *models.HeroSnapshot) bool {
	if len(conds) == 0 {
		return true
	}
	if snap == nil {
		return false
	}
	for kind, arg := range conds {
		if !evalCondition(kind, arg, snap) {
			return false
		}
	}
	return true
}

func evalCondition(kind string, arg any, snap *models.HeroSnapshot) bool {
	switch kind {
	case condFlagsHas:
		keys, ok := stringList(arg)
		if !ok {
			return false
		}
		for _, k := range keys {
			if !snap.FlagTruthy(k) {
				return false
			}
		}
		return true

	case condFlagsMissing:
		keys, ok := stringList(arg)
		if !ok {
			return false
		}
		for _, k := range keys {
			if snap.FlagPresent(k) {
				return false
			}
		}
		return true

	case condQuestsCompleted:
		ids, ok := stringList(arg)
		if !ok {
			return false
		}
		for _, id := range ids {
			if !snap.HasCompleted(id) {
				return false
			}
		}
		return true

	case condRepAtLeast, condRep:
		return evalReputation(arg, snap)

	default:
		return false
	}
}

// evalReputation accepts both authored shapes: the explicit
// {faction: name, value: n} pair and the {name: n} map form.
func evalReputation(arg any, snap *models.HeroSnapshot) bool {
	m, ok := anyMap(arg)
	if !ok || len(m) == 0 {
		return false
	}
	if faction, ok := m["faction"].(string); ok {
		need, ok := intValue(m["value"])
		if !ok {
			return false
		}
		return snap.Reputation[faction] >= need
	}
	for faction, raw := range m {
		need, ok := intValue(raw)
		if !ok {
			return false
		}
		if snap.Reputation[faction] < need {
			return false
		}
	}
	return true
}

// stringList accepts a single string or a homogeneous string list. TOML and
// JSON both decode arrays in open maps as []any.
func stringList(arg any) ([]string, bool) {
	switch v := arg.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func anyMap(arg any) (map[string]any, bool) {
	switch v := arg.(type) {
	case map[string]any:
		return v, true
	case map[string]int:
		out := make(map[string]any, len(v))
		for k, n := range v {
			out[k] = n
		}
		return out, true
	case map[string]int64:
		out := make(map[string]any, len(v))
		for k, n := range v {
			out[k] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// intValue converts the numeric shapes the decoders produce: TOML integers
// arrive as int64, JSON numbers as float64.
func intValue(arg any) (int, bool) {
	switch v := arg.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
