package quest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDefinitionInvalid matches any wholesale definition rejection.
	ErrDefinitionInvalid = errors.New("quest definition invalid")
	// ErrQuestUnavailable matches any refusal to start or resume a quest.
	ErrQuestUnavailable = errors.New("quest unavailable")
	// ErrStaleChoice matches any rejected choice; the traversal state the
	// caller saw no longer holds and the view should be refreshed.
	ErrStaleChoice = errors.New("stale choice")
	// ErrQuestNotFound is returned when no definition exists for an id.
	ErrQuestNotFound = errors.New("quest not found")
	// ErrNoProgress is returned when a user has no traversal in a quest.
	ErrNoProgress = errors.New("no quest progress")
)

// Unavailable reason codes.
const (
	ReasonRequirements = "requirements"
	ReasonInProgress   = "in_progress"
	ReasonRecovering   = "recovering"
	ReasonNotPaused    = "not_paused"
	ReasonNotActive    = "not_active"
)

// Stale reason codes.
const (
	StaleWrongNode  = "wrong_node"
	StaleConditions = "conditions"
	StaleVersion    = "version"
	StaleStatus     = "status"
	StaleUnknown    = "unknown_connection"
)

// DefinitionError reports every problem found while compiling a quest
// document. A definition with any problem is rejected wholesale.
type DefinitionError struct {
	QuestID  string
	Problems []string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("quest %s: definition invalid: %s", e.QuestID, strings.Join(e.Problems, "; "))
}

func (e *DefinitionError) Unwrap() error {
	return ErrDefinitionInvalid
}

// UnavailableError carries the reason code and, for requirement failures,
// the human-readable list of unmet requirements.
type UnavailableError struct {
	QuestID string
	Reason  string
	Missing []string
}

func (e *UnavailableError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("quest %s unavailable (%s): %s", e.QuestID, e.Reason, strings.Join(e.Missing, "; "))
	}
	return fmt.Sprintf("quest %s unavailable (%s)", e.QuestID, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return ErrQuestUnavailable
}

// StaleChoiceError rejects one ApplyChoice attempt. The quest remains in a
// consistent state; nothing was committed.
type StaleChoiceError struct {
	QuestID      string
	ConnectionID string
	Reason       string
}

func (e *StaleChoiceError) Error() string {
	return fmt.Sprintf("quest %s: choice %s rejected (%s)", e.QuestID, e.ConnectionID, e.Reason)
}

func (e *StaleChoiceError) Unwrap() error {
	return ErrStaleChoice
}

func staleChoice(questID, connectionID, reason string) error {
	return &StaleChoiceError{QuestID: questID, ConnectionID: connectionID, Reason: reason}
}

func unavailable(questID, reason string, missing ...string) error {
	return &UnavailableError{QuestID: questID, Reason: reason, Missing: missing}
}
