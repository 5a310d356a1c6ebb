// Package circuitbreaker guards calls to the Forge authorization endpoint
// with a breaker whose state is shared through Redis.
package circuitbreaker

import (
	"context"
	"errors"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultFailureThreshold = 5
	defaultFailWindow       = 10
	defaultOpenCooldown     = 30
	defaultHalfOpenLease    = 5
	defaultFailOpen         = true
	defaultPrefix           = "cb:"
)

type Breaker interface {
	Allow(ctx context.Context) error
	OnSuccess(ctx context.Context)
	OnFailure(ctx context.Context)
}

type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

var stateName = map[State]string{
	Closed:   "CLOSED",
	HalfOpen: "HALF_OPEN",
	Open:     "OPEN",
}

func (s State) String() string {
	return stateName[s]
}

type Options struct {
	// Number of failures inside FailWindow that opens the circuit.
	FailureThreshold int
	// Failures older than this are forgotten.
	FailWindow time.Duration
	// How long the circuit stays open before a trial request is let through.
	OpenCoolDown time.Duration
	// Only one caller across all instances may try the endpoint while half-open; the lease bounds how long it holds that right.
	HalfOpenLease time.Duration
	// Behaviour of Allow while Redis cannot be reached.
	// TRUE: let requests through
	// FALSE: block them with ErrCircuitOpen
	FailOpen bool
	// Key prefix to prevent name clashing.
	Prefix string
}

func DefaultOptions() Options {
	return Options{
		FailureThreshold: defaultFailureThreshold,
		FailWindow:       defaultFailWindow * time.Second,
		OpenCoolDown:     defaultOpenCooldown * time.Second,
		HalfOpenLease:    defaultHalfOpenLease * time.Second,
		FailOpen:         defaultFailOpen,
		Prefix:           defaultPrefix,
	}
}

// withDefaults fills every unset field from DefaultOptions. FailOpen is kept
// as given since its zero value is meaningful.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = def.FailureThreshold
	}
	if o.FailWindow <= 0 {
		o.FailWindow = def.FailWindow
	}
	if o.OpenCoolDown <= 0 {
		o.OpenCoolDown = def.OpenCoolDown
	}
	if o.HalfOpenLease <= 0 {
		o.HalfOpenLease = def.HalfOpenLease
	}
	if o.Prefix == "" {
		o.Prefix = def.Prefix
	}
	return o
}
