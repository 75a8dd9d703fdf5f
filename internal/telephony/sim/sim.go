// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package sim implements internal/telephony.Transport over a
// pre-scripted line of utterances, for tests and the shelterctl
// simulate-call command. It never touches a network or an audio
// codec.
package sim

import (
	"context"
	"strings"
	"sync"

	shelerrors "github.com/shelterops/bedhold/pkg/errors"
)

// Transport replays a fixed script of caller utterances and records
// everything the session spoke back, so a test or CLI run can assert
// on the whole conversation after the fact.
type Transport struct {
	mu sync.Mutex

	call     Call
	script   []string
	cursor   int
	spoken   []string
	hungUp   bool
	language string
}

// Call mirrors telephony.Call; kept distinct so sim has no import-cycle
// dependency on the parent package beyond the Transport interface it
// satisfies.
type Call struct {
	ID       string
	From     string
	Language string
}

// New builds a Transport that will yield each line of script in order
// as a separate Inbound utterance.
func New(call Call, script []string) *Transport {
	return &Transport{call: call, script: script, language: call.Language}
}

// Inbound returns the next scripted line. Once the script is
// exhausted, or the call has been hung up, it returns a not_found
// error so the caller stops driving the session instead of looping.
func (t *Transport) Inbound(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", shelerrors.Wrap(shelerrors.KindTimeout, "simulated call context done", ctx.Err())
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hungUp || t.cursor >= len(t.script) {
		return "", shelerrors.New(shelerrors.KindNotFound, "simulated script exhausted")
	}
	line := t.script[t.cursor]
	t.cursor++
	return line, nil
}

// Speak records phrase as spoken so a test can assert on the
// transcript; it never fails.
func (t *Transport) Speak(ctx context.Context, phrase string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spoken = append(t.spoken, phrase)
	return nil
}

// Hangup marks the call ended; subsequent Inbound calls report the
// script as exhausted even if lines remain.
func (t *Transport) Hangup(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hungUp = true
	return nil
}

// Transcript returns every phrase spoken back to the caller, in order.
func (t *Transport) Transcript() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.spoken))
	copy(out, t.spoken)
	return out
}

// LastSpoken returns the most recent phrase spoken, or "" if none yet.
func (t *Transport) LastSpoken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spoken) == 0 {
		return ""
	}
	return t.spoken[len(t.spoken)-1]
}

// JoinedTranscript is a convenience for test assertions that want to
// grep the whole conversation for a substring.
func (t *Transport) JoinedTranscript() string {
	return strings.Join(t.Transcript(), "\n")
}
