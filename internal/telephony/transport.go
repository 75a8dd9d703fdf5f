// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package telephony defines the boundary between a call session and
// the speech transport that carries it (spec §4.6: STT/TTS and the
// phone bridge are out of scope, but the session still needs a small
// interface to drive and be driven by one). internal/telephony/sim
// provides an in-memory implementation for tests and the
// simulate-call CLI path.
package telephony

import "context"

// Call is one inbound phone call, identified by the transport's own
// call ID (e.g. a SIP call-ID or a Twilio CallSid).
type Call struct {
	ID       string
	From     string
	Language string
}

// Transport is the minimal surface a call session needs from whatever
// carries audio in and out: hear the next utterance, speak a phrase
// back, and end the call. A real implementation wraps an STT/TTS
// provider and a SIP or WebRTC leg; sim wraps a line-oriented script.
type Transport interface {
	// Inbound blocks until the next transcribed utterance arrives, or
	// ctx is done, or the call has ended.
	Inbound(ctx context.Context) (utterance string, err error)

	// Speak renders phrase back to the caller. It does not block on
	// playback completion.
	Speak(ctx context.Context, phrase string) error

	// Hangup ends the call from the session's side.
	Hangup(ctx context.Context) error
}
