package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/fablesmith/questforge/questforge/interfaces"
	"github.com/fablesmith/questforge/questforge/logger"
)

// Engine drives quest traversals. Each operation loads the compiled graph
// and the hero snapshot, resolves the turn against a working copy, then
// commits the progress row under its optimistic version and hands the
// accumulated delta to the hero repository. A rejected commit leaves no
// visible mutation.
type Engine struct {
	store    *Store
	progress interfaces.ProgressRepository
	heroes   interfaces.HeroRepository
	roller   Roller
	now      func() time.Time
}

func NewEngine(store *Store, progress interfaces.ProgressRepository, heroes interfaces.HeroRepository, roller Roller) *Engine {
	if roller == nil {
		roller = NewRoller()
	}
	return &Engine{
		store:    store,
		progress: progress,
		heroes:   heroes,
		roller:   roller,
		now:      time.Now,
	}
}

// turnOutcome collects what happened while entering a node.
type turnOutcome struct {
	events       []models.EventOutcome
	completed    bool
	needRecovery bool
}

// StartQuest begins (or restarts) a traversal at the quest's start node and
// runs its entry effects. It fails with ErrQuestUnavailable when the quest
// requirements are unmet or a non-terminal traversal already exists;
// restarting after completion or decline resets the same row.
func (e *Engine) StartQuest(ctx context.Context, userID snowflake.ID, questID string) (*Snapshot, error) {
	began := time.Now()
	snap, err := e.startQuest(ctx, userID.String(), questID)
	logger.LogTurn("start_quest", userID.String(), questID, time.Since(began), err)
	return snap, err
}

func (e *Engine) startQuest(ctx context.Context, userID, questID string) (*Snapshot, error) {
	cq, err := e.store.Load(ctx, questID)
	if err != nil {
		return nil, err
	}

	existing, err := e.progress.Get(ctx, userID, questID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if existing != nil && !existing.Terminal() {
		return nil, unavailable(questID, ReasonInProgress)
	}

	snap, err := e.heroes.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero %s: %w", userID, err)
	}
	if missing := CheckRequirements(cq.Doc.Requires, snap); len(missing) > 0 {
		return nil, unavailable(questID, ReasonRequirements, missing...)
	}

	now := e.now()
	prog := existing
	restartFrom := int64(-1)
	if prog != nil {
		restartFrom = prog.Version
		prog.Restart(cq.Start.ID, now)
	} else {
		prog = &models.QuestProgress{
			UserID:        userID,
			QuestID:       questID,
			CurrentNodeID: cq.Start.ID,
			Status:        models.ProgressStatusActive,
			StartedAt:     now,
			CreatedAt:     now,
		}
	}
	prog.Visit(cq.Start.ID)

	working := snap.Clone()
	delta := models.NewTurnDelta()
	turn := e.enterNode(cq, prog, working, delta, cq.Start)
	e.applyStatus(prog, turn, now)
	prog.UpdatedAt = now

	if restartFrom >= 0 {
		if err := e.progress.Update(ctx, prog, restartFrom); err != nil {
			if errors.Is(err, interfaces.ErrStaleVersion) {
				return nil, unavailable(questID, ReasonInProgress)
			}
			return nil, fmt.Errorf("failed to save progress: %w", err)
		}
	} else if err := e.progress.Create(ctx, prog); err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}

	hero := working
	if !delta.Empty() {
		if hero, err = e.heroes.ApplyDelta(ctx, userID, delta); err != nil {
			return nil, fmt.Errorf("failed to apply turn delta: %w", err)
		}
	}
	return e.buildSnapshot(cq, prog, hero, turn.events, delta), nil
}

// ApplyChoice takes one listed connection out of the current node. The
// connection's legality is re-established from scratch: it must leave the
// current node of an active traversal and its conditions must still hold
// against fresh hero state. Any violation, including losing the version
// race, rejects with ErrStaleChoice and commits nothing.
func (e *Engine) ApplyChoice(ctx context.Context, userID snowflake.ID, questID, connectionID string) (*Snapshot, error) {
	began := time.Now()
	snap, err := e.applyChoice(ctx, userID.String(), questID, connectionID)
	logger.LogTurn("apply_choice", userID.String(), questID, time.Since(began), err)
	return snap, err
}

func (e *Engine) applyChoice(ctx context.Context, userID, questID, connectionID string) (*Snapshot, error) {
	cq, err := e.store.Load(ctx, questID)
	if err != nil {
		return nil, err
	}

	prog, err := e.progress.Get(ctx, userID, questID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("quest %s: %w", questID, ErrNoProgress)
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if !prog.Active() {
		return nil, staleChoice(questID, connectionID, StaleStatus)
	}

	conn := cq.Connection(connectionID)
	if conn == nil {
		return nil, staleChoice(questID, connectionID, StaleUnknown)
	}
	if conn.From != prog.CurrentNodeID {
		return nil, staleChoice(questID, connectionID, StaleWrongNode)
	}

	snap, err := e.heroes.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero %s: %w", userID, err)
	}

	working := snap.Clone()
	if !EvaluateConditions(conn.Conditions, working) {
		return nil, staleChoice(questID, connectionID, StaleConditions)
	}

	loadedVersion := prog.Version
	now := e.now()
	delta := models.NewTurnDelta()

	step := models.NewTurnDelta()
	step.MergeFlagOps(conn.Effects)
	e.stage(delta, working, step)

	target := cq.Node(conn.To)
	prog.CurrentNodeID = target.ID
	prog.Visit(target.ID)

	turn := e.enterNode(cq, prog, working, delta, target)
	e.applyStatus(prog, turn, now)
	prog.UpdatedAt = now

	if err := e.progress.Update(ctx, prog, loadedVersion); err != nil {
		if errors.Is(err, interfaces.ErrStaleVersion) {
			return nil, staleChoice(questID, connectionID, StaleVersion)
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	hero := working
	if !delta.Empty() {
		if hero, err = e.heroes.ApplyDelta(ctx, userID, delta); err != nil {
			return nil, fmt.Errorf("failed to apply turn delta: %w", err)
		}
	}
	return e.buildSnapshot(cq, prog, hero, turn.events, delta), nil
}

// ListConnections returns the traversable connections out of the current
// node: satisfied choice and condition connections in order, then default
// connections. A traversal that is not active has none.
func (e *Engine) ListConnections(ctx context.Context, userID snowflake.ID, questID string) ([]Choice, error) {
	uid := userID.String()

	cq, err := e.store.Load(ctx, questID)
	if err != nil {
		return nil, err
	}
	prog, err := e.progress.Get(ctx, uid, questID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("quest %s: %w", questID, ErrNoProgress)
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if !prog.Active() {
		return nil, nil
	}
	snap, err := e.heroes.Snapshot(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero %s: %w", uid, err)
	}
	return e.availableChoices(cq, prog.CurrentNodeID, snap), nil
}

// DeclineQuest abandons an active traversal. Declined is terminal; the
// quest can only be taken again through a fresh StartQuest.
func (e *Engine) DeclineQuest(ctx context.Context, userID snowflake.ID, questID string) (*Snapshot, error) {
	began := time.Now()
	snap, err := e.declineQuest(ctx, userID.String(), questID)
	logger.LogTurn("decline_quest", userID.String(), questID, time.Since(began), err)
	return snap, err
}

func (e *Engine) declineQuest(ctx context.Context, userID, questID string) (*Snapshot, error) {
	cq, err := e.store.Load(ctx, questID)
	if err != nil {
		return nil, err
	}
	prog, err := e.progress.Get(ctx, userID, questID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("quest %s: %w", questID, ErrNoProgress)
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if !prog.Active() {
		return nil, unavailable(questID, ReasonNotActive)
	}

	loadedVersion := prog.Version
	prog.Status = models.ProgressStatusDeclined
	prog.UpdatedAt = e.now()

	if err := e.progress.Update(ctx, prog, loadedVersion); err != nil {
		if errors.Is(err, interfaces.ErrStaleVersion) {
			return nil, staleChoice(questID, "", StaleVersion)
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return e.buildSnapshot(cq, prog, nil, nil, nil), nil
}

// ResumeQuest reactivates a paused traversal at its paused node. The hero
// must be back at full health first.
func (e *Engine) ResumeQuest(ctx context.Context, userID snowflake.ID, questID string) (*Snapshot, error) {
	began := time.Now()
	snap, err := e.resumeQuest(ctx, userID.String(), questID)
	logger.LogTurn("resume_quest", userID.String(), questID, time.Since(began), err)
	return snap, err
}

func (e *Engine) resumeQuest(ctx context.Context, userID, questID string) (*Snapshot, error) {
	cq, err := e.store.Load(ctx, questID)
	if err != nil {
		return nil, err
	}
	prog, err := e.progress.Get(ctx, userID, questID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("quest %s: %w", questID, ErrNoProgress)
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if prog.Status != models.ProgressStatusPaused {
		return nil, unavailable(questID, ReasonNotPaused)
	}

	snap, err := e.heroes.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hero %s: %w", userID, err)
	}
	if !snap.FullyHealed() {
		return nil, unavailable(questID, ReasonRecovering)
	}

	loadedVersion := prog.Version
	prog.Status = models.ProgressStatusActive
	prog.UpdatedAt = e.now()

	if err := e.progress.Update(ctx, prog, loadedVersion); err != nil {
		if errors.Is(err, interfaces.ErrStaleVersion) {
			return nil, staleChoice(questID, "", StaleVersion)
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return e.buildSnapshot(cq, prog, snap, nil, nil), nil
}

// ViewMap returns the read-only overview of a traversal: every node with
// its visited marker, the current position and the live choices.
func (e *Engine) ViewMap(ctx context.Context, userID snowflake.ID, questID string) (*MapView, error) {
	uid := userID.String()

	cq, err := e.store.Load(ctx, questID)
	if err != nil {
		return nil, err
	}
	prog, err := e.progress.Get(ctx, uid, questID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("quest %s: %w", questID, ErrNoProgress)
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	view := &MapView{
		QuestID: cq.ID,
		Title:   cq.Title,
		Status:  prog.Status,
		Current: prog.CurrentNodeID,
	}
	for i := range cq.Doc.Nodes {
		n := &cq.Doc.Nodes[i]
		view.Nodes = append(view.Nodes, MapNode{
			ID:      n.ID,
			Title:   n.Title,
			Type:    n.Type,
			Visited: prog.HasVisited(n.ID),
			Current: n.ID == prog.CurrentNodeID,
			Final:   n.Terminal(),
		})
	}
	if prog.Active() {
		snap, err := e.heroes.Snapshot(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("failed to load hero %s: %w", uid, err)
		}
		view.Choices = e.availableChoices(cq, prog.CurrentNodeID, snap)
	}
	return view, nil
}

// enterNode applies a node's entry effects to the working copy: world-flag
// ops and the node reward first, then events in declared order. A
// previously resolved non-repeatable event replays its recorded outcome
// with no new roll and no re-applied effects. Entering a terminal node
// completes the traversal and max-merges the chain step.
func (e *Engine) enterNode(cq *CompiledQuest, prog *models.QuestProgress, working *models.HeroSnapshot, delta *models.TurnDelta, node *models.NodeDoc) turnOutcome {
	var turn turnOutcome

	step := models.NewTurnDelta()
	step.MergeFlagOps(node.WorldFlags)
	MergeReward(step, node.Reward)
	e.stage(delta, working, step)

	for i := range node.Events {
		ev := &node.Events[i]
		key := models.EventKey(cq.ID, node.ID, ev.ID)
		if prior, ok := prog.ResolvedOutcome(key); ok && !ev.Repeatable {
			prior.Replayed = true
			turn.events = append(turn.events, prior)
			continue
		}

		outcome := ResolveEvent(ev, working, e.roller)
		outcome.ResolvedAt = e.now()
		prog.RecordOutcome(key, outcome)
		turn.events = append(turn.events, outcome)
		if outcome.Faulted {
			continue
		}

		step := models.NewTurnDelta()
		if br := ev.BranchDoc(outcome.Branch); br != nil {
			if outcome.Branch == models.BranchFailure {
				step.AddDamage(br.Damage)
			}
			MergeReward(step, br.Reward)
			if br.RequireRecovery {
				turn.needRecovery = true
			}
		}
		if outcome.StoryKey != "" {
			step.AddMetric(storyMetricPrefix+outcome.StoryKey, 1)
		}
		e.stage(delta, working, step)

		if working.HP <= 0 {
			turn.needRecovery = true
		}
	}

	if node.Terminal() {
		turn.completed = true
		if chain := cq.Doc.Chain; chain != nil {
			step := models.NewTurnDelta()
			step.AdvanceChain(chain.ID, chain.Step)
			e.stage(delta, working, step)
		}
	}
	return turn
}

// stage applies one step to the working copy and folds it into the turn
// delta, so conditions evaluated later in the same turn see earlier writes.
func (e *Engine) stage(delta *models.TurnDelta, working *models.HeroSnapshot, step *models.TurnDelta) {
	Apply(step, working)
	delta.Merge(step)
}

// applyStatus settles the post-turn status. Completion wins over recovery:
// reaching a terminal node closes the traversal even at zero health.
func (e *Engine) applyStatus(prog *models.QuestProgress, turn turnOutcome, now time.Time) {
	switch {
	case turn.completed:
		prog.Status = models.ProgressStatusCompleted
		completedAt := now
		prog.CompletedAt = &completedAt
	case turn.needRecovery:
		prog.Status = models.ProgressStatusPaused
	}
}

func (e *Engine) availableChoices(cq *CompiledQuest, nodeID string, snap *models.HeroSnapshot) []Choice {
	var satisfied, defaults []Choice
	for _, conn := range cq.Outgoing(nodeID) {
		if !EvaluateConditions(conn.Conditions, snap) {
			continue
		}
		choice := Choice{
			ConnectionID: conn.ID,
			Text:         conn.ChoiceText,
			Default:      conn.IsDefault(),
		}
		if conn.IsDefault() {
			defaults = append(defaults, choice)
		} else {
			satisfied = append(satisfied, choice)
		}
	}
	return append(satisfied, defaults...)
}

func (e *Engine) buildSnapshot(cq *CompiledQuest, prog *models.QuestProgress, hero *models.HeroSnapshot, events []models.EventOutcome, delta *models.TurnDelta) *Snapshot {
	snap := &Snapshot{
		QuestID: cq.ID,
		Title:   cq.Title,
		NodeID:  prog.CurrentNodeID,
		Status:  prog.Status,
		Visited: append([]string(nil), prog.VisitedNodes...),
		Events:  events,
		Hero:    hero,
	}
	if node := cq.Node(prog.CurrentNodeID); node != nil {
		snap.NodeTitle = node.Title
		snap.NodeText = node.Description
		snap.IsFinal = node.Terminal()
	}
	if delta != nil && !delta.Empty() {
		snap.Rewards = delta
	}
	if prog.Active() && hero != nil {
		snap.Choices = e.availableChoices(cq, prog.CurrentNodeID, hero)
	}
	return snap
}
