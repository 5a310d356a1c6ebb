package circuitbreaker

import (
	"context"
	"errors"
	"net/http"
)

// Doer is the client side of an HTTP exchange; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport wraps a Doer so that every request passes through a Breaker.
// Requests rejected by the breaker return ErrCircuitOpen without reaching
// Base.
type Transport struct {
	Base    Doer
	Breaker Breaker
	// IsFailure decides which outcomes count against the circuit.
	// DefaultIsFailure is used when nil.
	IsFailure func(resp *http.Response, err error) bool
}

func NewTransport(base Doer, breaker Breaker) *Transport {
	return &Transport{Base: base, Breaker: breaker}
}

func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if err := t.Breaker.Allow(ctx); err != nil {
		return nil, err
	}

	resp, err := t.Base.Do(req)

	isFailure := t.IsFailure
	if isFailure == nil {
		isFailure = DefaultIsFailure
	}

	// The caller's cancellation says nothing about the endpoint's health.
	if err != nil && errors.Is(err, context.Canceled) {
		return resp, err
	}

	if isFailure(resp, err) {
		t.Breaker.OnFailure(context.WithoutCancel(ctx))
	} else {
		t.Breaker.OnSuccess(context.WithoutCancel(ctx))
	}

	return resp, err
}

// DefaultIsFailure counts transport errors, 5xx and 429 responses. Other 4xx
// answers are the caller's problem and leave the circuit alone.
func DefaultIsFailure(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
}
