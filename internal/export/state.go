package export

import (
	"fmt"

	"go.uber.org/zap"
)

// State is a step in the life of one export request.
type State string

// Export lifecycle states.
const (
	StateValidated State = "validated"
	StateQueried   State = "queried"
	StateBuilt     State = "built"
	StateSent      State = "sent"
	StateCleaned   State = "cleaned"
	// StateFailed follows a failure once an artifact exists; cleanup still runs.
	StateFailed State = "failed"
	// StateFailedNoArtifact ends a request that failed before any artifact
	// was handed out, so there is nothing to clean.
	StateFailedNoArtifact State = "failed_no_artifact"
)

var transitions = map[State][]State{
	StateValidated: {StateQueried, StateFailedNoArtifact},
	StateQueried:   {StateBuilt, StateFailedNoArtifact},
	StateBuilt:     {StateSent, StateFailed},
	StateSent:      {StateCleaned},
	StateFailed:    {StateCleaned},
}

// CanTransition reports whether to may follow s.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no state follows s.
func (s State) Terminal() bool { return len(transitions[s]) == 0 }

// Lifecycle tracks and logs the states of one export request.
// It is owned by a single request and is not safe for concurrent use.
type Lifecycle struct {
	state  State
	logger *zap.Logger
}

// NewLifecycle starts a lifecycle in StateValidated.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Lifecycle{state: StateValidated, logger: logger}
	l.logger.Debug("Export state", zap.String("state", string(l.state)))
	return l
}

// State returns the current state.
func (l *Lifecycle) State() State { return l.state }

// Advance moves to the next state.
func (l *Lifecycle) Advance(to State) error {
	if !l.state.CanTransition(to) {
		return fmt.Errorf("export: illegal transition %s -> %s", l.state, to)
	}
	l.logger.Debug("Export state",
		zap.String("from", string(l.state)),
		zap.String("state", string(to)),
	)
	l.state = to
	return nil
}

// Fail moves to StateFailed once an artifact exists, or to the terminal
// StateFailedNoArtifact before that. It is a no-op where failing no
// longer applies.
func (l *Lifecycle) Fail(cause error) {
	to := StateFailedNoArtifact
	if l.state == StateBuilt {
		to = StateFailed
	}
	if !l.state.CanTransition(to) {
		return
	}
	l.logger.Debug("Export state",
		zap.String("from", string(l.state)),
		zap.String("state", string(to)),
		zap.Error(cause),
	)
	l.state = to
}
