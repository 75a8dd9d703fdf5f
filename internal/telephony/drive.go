// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package telephony

import (
	"context"

	shelerrors "github.com/shelterops/bedhold/pkg/errors"
)

// Session is the subset of internal/session.Session the driver needs,
// kept as an interface so telephony has no import-cycle dependency on
// the session package.
type Session interface {
	HandleUtterance(ctx context.Context, utterance, language string) (string, error)

	// Ended reports whether the session has reached a terminal state
	// (spec §4.7 end_call), at which point Drive hangs up the call.
	Ended() bool
}

// Drive pumps utterances from t into sess and speaks each reply back,
// until t reports its script exhausted (not_found), ctx is done, sess
// reaches a terminal state (in which case Drive hangs up the call),
// or sess returns a non-recoverable error. It is the shared loop
// between a real phone bridge's per-call goroutine and the
// simulate-call CLI path.
func Drive(ctx context.Context, t Transport, sess Session, language string) error {
	for {
		utterance, err := t.Inbound(ctx)
		if err != nil {
			if shelerrors.As(err).Kind == shelerrors.KindNotFound {
				return nil
			}
			return err
		}

		reply, err := sess.HandleUtterance(ctx, utterance, language)
		if err != nil {
			return err
		}
		if err := t.Speak(ctx, reply); err != nil {
			return err
		}
		if sess.Ended() {
			return t.Hangup(ctx)
		}
	}
}
