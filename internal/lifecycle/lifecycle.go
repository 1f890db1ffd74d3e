// Package lifecycle governs position state transitions and the guard
// conditions around withdrawal.
package lifecycle

import (
	"errors"
	"time"

	"savings-vault-engine/internal/ledger"
)

// State is a position lifecycle state. Matured is derived from time and
// never stored; the ledger only knows Active, Withdrawn, and
// EmergencyWithdrawn.
type State uint8

const (
	StateActive State = iota
	StateMatured
	StateWithdrawn
	StateEmergencyWithdrawn
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateMatured:
		return "matured"
	case StateWithdrawn:
		return "withdrawn"
	case StateEmergencyWithdrawn:
		return "emergency_withdrawn"
	default:
		return "unknown"
	}
}

// Terminal reports whether the record is immutable history.
func (s State) Terminal() bool {
	return s == StateWithdrawn || s == StateEmergencyWithdrawn
}

var (
	// ErrAlreadyWithdrawn indicates a second exit from a closed position.
	ErrAlreadyWithdrawn = errors.New("position already withdrawn")
	// ErrNotYetMatured indicates a normal withdrawal before maturity.
	ErrNotYetMatured = errors.New("position not yet matured")
	// ErrCannotEmergencyWithdrawMatured indicates an emergency exit after
	// maturity; normal withdrawal must be used instead.
	ErrCannotEmergencyWithdrawMatured = errors.New("cannot emergency withdraw a matured position")
)

// FromLedger maps an on-chain state code onto a State.
func FromLedger(code uint8) State {
	switch code {
	case ledger.StateCodeWithdrawn:
		return StateWithdrawn
	case ledger.StateCodeEmergencyWithdrawn:
		return StateEmergencyWithdrawn
	default:
		return StateActive
	}
}

// Observe derives the effective state at now. An active position at or
// past maturity is observed as matured; this is informational
// derivation, not a ledger write.
func Observe(stored State, now, maturity time.Time) State {
	if stored == StateActive && !now.Before(maturity) {
		return StateMatured
	}
	return stored
}

// CanWithdraw checks the normal-withdrawal guard: legal only once the
// position is observed as matured.
func CanWithdraw(stored State, now, maturity time.Time) error {
	switch Observe(stored, now, maturity) {
	case StateWithdrawn, StateEmergencyWithdrawn:
		return ErrAlreadyWithdrawn
	case StateActive:
		return ErrNotYetMatured
	default:
		return nil
	}
}

// CanEmergencyWithdraw checks the early-exit guard: legal only while the
// position is active and strictly before maturity.
func CanEmergencyWithdraw(stored State, now, maturity time.Time) error {
	switch Observe(stored, now, maturity) {
	case StateWithdrawn, StateEmergencyWithdrawn:
		return ErrAlreadyWithdrawn
	case StateMatured:
		return ErrCannotEmergencyWithdrawMatured
	default:
		return nil
	}
}
