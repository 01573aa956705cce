// Package session coordinates client side checks of whether the stored
// credential is still valid.
//
// A Coordinator answers Validate calls from a short-lived verdict cache,
// collapses concurrent checks of the same kind into one, and fans out an
// Expiry to every subscribed Listener when a check definitively fails. A
// Poller drives periodic checks while anyone is subscribed, and Transport
// reports 401/403 responses from ordinary API calls.
package session

import (
	"errors"
	"time"

	"github.com/spec-kit/exim-session/internal/domain"
)

// Kind selects the validation strategy.
type Kind = domain.CredentialKind

const (
	KindNone  = domain.KindNone
	KindUser  = domain.KindUser
	KindAdmin = domain.KindAdmin
)

var (
	// ErrDefinitive marks a check that proved the credential invalid.
	ErrDefinitive = errors.New("credential invalid")
	// ErrTransient marks a check that could not determine validity.
	ErrTransient = errors.New("credential check unavailable")
)

// Verdict is the outcome of the last completed check for a kind.
type Verdict struct {
	Valid     bool
	CheckedAt time.Time
}

// Expiry is delivered to listeners when a credential stops being valid.
type Expiry struct {
	Kind   Kind
	Reason string
	At     time.Time
}

// Outcome labels a Validate call for metrics.
type Outcome string

const (
	OutcomeCached      Outcome = "cached"
	OutcomeValid       Outcome = "valid"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeTransient   Outcome = "transient"
	OutcomeWaitTimeout Outcome = "wait_timeout"
	OutcomeRejected    Outcome = "rejected"
)

// Recorder receives coordinator metrics.
type Recorder interface {
	Validation(kind Kind, outcome Outcome)
	Broadcast(kind Kind, listeners int)
	ListenerFailure()
}

type nopRecorder struct{}

func (nopRecorder) Validation(Kind, Outcome) {}
func (nopRecorder) Broadcast(Kind, int) {}
func (nopRecorder) ListenerFailure() {}

// KindSource reports which credential kind is currently stored.
type KindSource interface {
	ActiveKind() Kind
}

// TokenSource reads the admin token slot.
type TokenSource interface {
	AdminToken() string
}
