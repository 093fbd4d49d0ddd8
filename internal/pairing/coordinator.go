// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package pairing bridges internal/handshake's synchronous
// PairingPrompt callback, invoked from the accept loop's goroutine
// while a headset waits mid-handshake, with the operator's asynchronous
// confirmation over the HTTP control plane (spec.md section 4.D step 3:
// "a 6-digit PIN shown on both screens").
package pairing

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned to the accept loop when no operator confirms
// or rejects the PIN before the ceremony's deadline.
var ErrTimeout = errors.New("pairing: confirmation timed out")

// confirmTimeout bounds how long a headset's handshake goroutine blocks
// waiting for an operator to act on a pending PIN.
const confirmTimeout = 2 * time.Minute

// Pending describes one in-progress pairing ceremony awaiting operator
// confirmation.
type Pending struct {
	PIN       string
	StartedAt time.Time
}

type request struct {
	pin      string
	response chan response
}

type response struct {
	displayName string
	accept      bool
}

// Coordinator holds at most one pending pairing request at a time,
// matching spec.md section 4.D's single-ceremony-at-a-time model.
type Coordinator struct {
	mu      sync.Mutex
	pending *request
	started time.Time
}

// New returns an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// Prompt implements internal/handshake.PairingPrompt. It blocks the
// calling handshake goroutine until Confirm is called or confirmTimeout
// elapses.
func (c *Coordinator) Prompt(pin string) (string, bool) {
	req := &request{pin: pin, response: make(chan response, 1)}

	c.mu.Lock()
	c.pending = req
	c.started = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending == req {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	select {
	case resp := <-req.response:
		return resp.displayName, resp.accept
	case <-time.After(confirmTimeout):
		return "", false
	}
}

// Current returns the pending ceremony, if any.
func (c *Coordinator) Current() (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Pending{}, false
	}
	return Pending{PIN: c.pending.pin, StartedAt: c.started}, true
}

// Confirm resolves the pending ceremony matching pin, waking the
// blocked handshake goroutine with the operator's decision. It returns
// ErrTimeout if no ceremony for that PIN is pending.
func (c *Coordinator) Confirm(_ context.Context, pin, displayName string, accept bool) error {
	c.mu.Lock()
	req := c.pending
	c.mu.Unlock()

	if req == nil || req.pin != pin {
		return ErrTimeout
	}

	select {
	case req.response <- response{displayName: displayName, accept: accept}:
		return nil
	default:
		return ErrTimeout
	}
}
