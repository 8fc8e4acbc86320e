package quest

import (
	"fmt"
	"sort"

	"github.com/fablesmith/questforge/questforge/database/models"
)

// Compile validates a quest document wholesale and builds its immutable
// traversal graph. Every problem is collected before rejecting, so authors
// see the full diagnostic list; a document with any problem is never
// served. The input document is not mutated: normalization (derived
// connection ids, event defaults, reward shorthand folding) happens on
// copies owned by the compiled quest.
func Compile(doc *models.QuestDocument) (*CompiledQuest, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if doc.ID == "" {
		addf("missing quest id")
	}
	if doc.Title == "" {
		addf("missing quest title")
	}
	if doc.Chain != nil {
		if doc.Chain.ID == "" {
			addf("chain reference missing id")
		}
		if doc.Chain.Step < 1 {
			addf("chain step must be positive, got %d", doc.Chain.Step)
		}
	}
	if len(doc.Nodes) == 0 {
		addf("no nodes declared")
	}

	nodes := make([]models.NodeDoc, len(doc.Nodes))
	copy(nodes, doc.Nodes)

	nodesByID := make(map[string]*models.NodeDoc, len(nodes))
	var start *models.NodeDoc
	startCount := 0
	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			addf("node at index %d: missing id", i)
			continue
		}
		if _, dup := nodesByID[n.ID]; dup {
			addf("node %s: duplicate id", n.ID)
			continue
		}
		if !validNodeType(n.Type) {
			addf("node %s: unknown type %q", n.ID, n.Type)
		}
		if n.Type == models.NodeTypeStart {
			n.IsStart = true
		}
		if n.IsStart {
			startCount++
			start = n
		}
		n.Reward = normalizeReward(n.Reward)
		n.Events = normalizeEvents(n, addf)
		nodesByID[n.ID] = n
	}
	switch {
	case startCount == 0 && len(doc.Nodes) > 0:
		addf("no start node declared")
	case startCount > 1:
		addf("multiple start nodes declared")
		start = nil
	}

	conns := make([]models.ConnectionDoc, len(doc.Connections))
	copy(conns, doc.Connections)

	connsByID := make(map[string]*models.ConnectionDoc, len(conns))
	connsByFrom := make(map[string][]*models.ConnectionDoc)
	for i := range conns {
		c := &conns[i]
		if c.ID == "" {
			c.ID = fmt.Sprintf("%s#%d", c.From, i)
		}
		if _, dup := connsByID[c.ID]; dup {
			addf("connection %s: duplicate id", c.ID)
			continue
		}
		if !validConnectionType(c.Type) {
			addf("connection %s: unknown type %q", c.ID, c.Type)
		}
		if _, ok := nodesByID[c.From]; !ok {
			addf("connection %s: unknown source node %q", c.ID, c.From)
		}
		if _, ok := nodesByID[c.To]; !ok {
			addf("connection %s: unknown target node %q", c.ID, c.To)
		}
		if start != nil && c.To == start.ID {
			addf("connection %s: targets the start node", c.ID)
		}
		if c.Type == models.ConnectionTypeChoice && c.ChoiceText == "" {
			addf("connection %s: choice without choice_text", c.ID)
		}
		connsByID[c.ID] = c
		connsByFrom[c.From] = append(connsByFrom[c.From], c)
	}

	// Declaration index breaks order ties, so the sort must be stable.
	for from := range connsByFrom {
		out := connsByFrom[from]
		sort.SliceStable(out, func(a, b int) bool {
			return out[a].Order < out[b].Order
		})
	}

	if len(problems) > 0 {
		return nil, &DefinitionError{QuestID: doc.ID, Problems: problems}
	}

	normalized := *doc
	normalized.Nodes = nodes
	normalized.Connections = conns

	return &CompiledQuest{
		ID:          normalized.ID,
		Title:       normalized.Title,
		Doc:         &normalized,
		Start:       start,
		NodesByID:   nodesByID,
		ConnsByID:   connsByID,
		ConnsByFrom: connsByFrom,
	}, nil
}

func normalizeEvents(n *models.NodeDoc, addf func(string, ...any)) []models.EventDoc {
	if len(n.Events) == 0 {
		return nil
	}
	events := make([]models.EventDoc, len(n.Events))
	copy(events, n.Events)

	seen := make(map[string]bool, len(events))
	for j := range events {
		ev := &events[j]
		if ev.ID == "" {
			addf("node %s: event at index %d missing id", n.ID, j)
			continue
		}
		if seen[ev.ID] {
			addf("node %s: duplicate event id %s", n.ID, ev.ID)
			continue
		}
		seen[ev.ID] = true
		if !validEventType(ev.Type) {
			addf("node %s: event %s: unknown type %q", n.ID, ev.ID, ev.Type)
			continue
		}
		if ev.Dice != nil && *ev.Dice < 0 {
			addf("node %s: event %s: negative dice %d", n.ID, ev.ID, *ev.Dice)
		}
		if ev.Attribute == "" {
			ev.Attribute = DefaultAttribute
		}
		if ev.Difficulty <= 0 {
			ev.Difficulty = DefaultDifficulty
		}
		if ev.Dice == nil {
			d := DefaultDice
			ev.Dice = &d
		}
		if ev.Type == models.EventTypeStoryMoment && ev.StoryKey == "" {
			ev.StoryKey = ev.ID
		}
		ev.Success = normalizeBranch(ev.Success)
		ev.Failure = normalizeBranch(ev.Failure)
	}
	return events
}

func normalizeBranch(br *models.EventBranchDoc) *models.EventBranchDoc {
	if br == nil {
		return nil
	}
	out := *br
	if out.Damage < 0 {
		out.Damage = 0
	}
	out.Reward = normalizeReward(br.Reward)
	return &out
}

// normalizeReward folds the singular metric shorthand into the metrics map
// on a copy, leaving the authored document untouched.
func normalizeReward(r *models.RewardDoc) *models.RewardDoc {
	if r == nil {
		return nil
	}
	out := *r
	if out.Metric == "" {
		return &out
	}
	metrics := make(map[string]int, len(r.Metrics)+1)
	for name, n := range r.Metrics {
		metrics[name] = n
	}
	metrics[out.Metric]++
	out.Metric = ""
	out.Metrics = metrics
	return &out
}

func validNodeType(t string) bool {
	switch t {
	case models.NodeTypeStart, models.NodeTypeChoice, models.NodeTypeAction,
		models.NodeTypeCondition, models.NodeTypeEnd:
		return true
	}
	return false
}

func validConnectionType(t string) bool {
	switch t {
	case models.ConnectionTypeChoice, models.ConnectionTypeCondition, models.ConnectionTypeDefault:
		return true
	}
	return false
}

func validEventType(t string) bool {
	switch t {
	case models.EventTypeStatCheck, models.EventTypeTrap,
		models.EventTypePuzzle, models.EventTypeStoryMoment:
		return true
	}
	return false
}
