package refresh

import (
	"context"
	"log/slog"

	"github.com/qmuntal/stateless"
)

// State is a step of a refresh run.
type State string

const (
	StateIdle       State = "idle"
	StatePreparing  State = "preparing"
	StateLoading    State = "loading"
	StatePromoting  State = "promoting"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

type trigger string

const (
	triggerPrepare trigger = "prepare"
	triggerLoad    trigger = "load"
	triggerPromote trigger = "promote"
	triggerCommit  trigger = "commit"
	triggerAbort   trigger = "abort"
)

// newMachine builds the run lifecycle. Transitions only move forward and
// the two terminal states accept no trigger.
func newMachine(log *slog.Logger) *stateless.StateMachine {
	m := stateless.NewStateMachine(StateIdle)

	m.Configure(StateIdle).
		Permit(triggerPrepare, StatePreparing)

	m.Configure(StatePreparing).
		Permit(triggerLoad, StateLoading).
		Permit(triggerAbort, StateRolledBack)

	m.Configure(StateLoading).
		Permit(triggerPromote, StatePromoting).
		Permit(triggerAbort, StateRolledBack)

	m.Configure(StatePromoting).
		Permit(triggerCommit, StateCommitted).
		Permit(triggerAbort, StateRolledBack)

	m.Configure(StateCommitted)
	m.Configure(StateRolledBack)

	m.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		log.DebugContext(ctx, "state changed",
			slog.Any("from", t.Source),
			slog.Any("to", t.Destination),
			slog.Any("trigger", t.Trigger),
		)
	})

	return m
}

func currentState(m *stateless.StateMachine) State {
	return m.MustState().(State)
}
