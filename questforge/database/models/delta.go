package models

import "sort"

// FlagOp is a single ordered world-flag mutation. Clear wins over Value when
// both are set; later ops on the same key win over earlier ones.
type FlagOp struct {
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Clear bool   `json:"clear,omitempty"`
}

// ChainAdvance moves a story-chain cursor. Steps only advance; merging a
// lower step than the stored one is a no-op.
type ChainAdvance struct {
	ChainID string `json:"chain_id"`
	Step    int    `json:"step"`
}

// TurnDelta accumulates every state change a turn produces. The engine fills
// one delta per turn and hands it to the hero repository, which applies it
// in a single transaction. Flag ops keep engine order; items and metrics are
// additive; damage floors HP at zero.
type TurnDelta struct {
	FlagOps []FlagOp       `json:"flag_ops,omitempty"`
	Items   map[string]int `json:"items,omitempty"`
	Metrics map[string]int `json:"metrics,omitempty"`
	Damage  int            `json:"damage,omitempty"`
	Chain   *ChainAdvance  `json:"chain,omitempty"`
}

func NewTurnDelta() *TurnDelta {
	return &TurnDelta{
		Items:   make(map[string]int),
		Metrics: make(map[string]int),
	}
}

func (d *TurnDelta) Empty() bool {
	return len(d.FlagOps) == 0 && len(d.Items) == 0 && len(d.Metrics) == 0 &&
		d.Damage == 0 && d.Chain == nil
}

func (d *TurnDelta) SetFlag(key string, value any) {
	d.FlagOps = append(d.FlagOps, FlagOp{Key: key, Value: value})
}

func (d *TurnDelta) ClearFlag(key string) {
	d.FlagOps = append(d.FlagOps, FlagOp{Key: key, Clear: true})
}

// MergeFlagOps appends an authored set/clear pair: set keys in sorted order
// for a stable result, then clears in declaration order.
func (d *TurnDelta) MergeFlagOps(ops *FlagOpsDoc) {
	if ops == nil {
		return
	}
	keys := make([]string, 0, len(ops.Set))
	for k := range ops.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.SetFlag(k, ops.Set[k])
	}
	for _, k := range ops.Clear {
		d.ClearFlag(k)
	}
}

func (d *TurnDelta) AddItem(code string, qty int) {
	if qty == 0 {
		return
	}
	if d.Items == nil {
		d.Items = make(map[string]int)
	}
	d.Items[code] += qty
}

func (d *TurnDelta) AddMetric(name string, n int) {
	if n == 0 {
		return
	}
	if d.Metrics == nil {
		d.Metrics = make(map[string]int)
	}
	d.Metrics[name] += n
}

func (d *TurnDelta) AddDamage(n int) {
	if n > 0 {
		d.Damage += n
	}
}

func (d *TurnDelta) AdvanceChain(chainID string, step int) {
	if d.Chain == nil || d.Chain.ChainID != chainID || step > d.Chain.Step {
		d.Chain = &ChainAdvance{ChainID: chainID, Step: step}
	}
}

// Merge appends another delta, preserving its flag-op order after this
// delta's own ops.
func (d *TurnDelta) Merge(other *TurnDelta) {
	if other == nil {
		return
	}
	d.FlagOps = append(d.FlagOps, other.FlagOps...)
	for code, qty := range other.Items {
		d.AddItem(code, qty)
	}
	for name, n := range other.Metrics {
		d.AddMetric(name, n)
	}
	d.AddDamage(other.Damage)
	if other.Chain != nil {
		d.AdvanceChain(other.Chain.ChainID, other.Chain.Step)
	}
}

// ApplyTo merges the delta into a snapshot. Repositories and the engine
// share this path so the working copy a turn was resolved against and the
// persisted hero end up identical.
func (d *TurnDelta) ApplyTo(snap *HeroSnapshot) {
	for _, op := range d.FlagOps {
		if op.Clear {
			delete(snap.WorldFlags, op.Key)
			continue
		}
		if snap.WorldFlags == nil {
			snap.WorldFlags = make(map[string]any)
		}
		snap.WorldFlags[op.Key] = op.Value
	}
	for code, qty := range d.Items {
		if snap.Items == nil {
			snap.Items = make(map[string]int)
		}
		snap.Items[code] += qty
	}
	for name, n := range d.Metrics {
		if snap.Metrics == nil {
			snap.Metrics = make(map[string]int)
		}
		snap.Metrics[name] += n
	}
	if d.Damage > 0 {
		snap.HP -= d.Damage
		if snap.HP < 0 {
			snap.HP = 0
		}
	}
	if d.Chain != nil {
		if snap.ChainSteps == nil {
			snap.ChainSteps = make(map[string]int)
		}
		if d.Chain.Step > snap.ChainSteps[d.Chain.ChainID] {
			snap.ChainSteps[d.Chain.ChainID] = d.Chain.Step
		}
	}
}
