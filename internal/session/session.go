// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package session implements the per-call state machine that drives
// the intent router and reservation tools through a single phone call
// (spec §4.6 Call Session).
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shelterops/bedhold/internal/intent"
	shelctx "github.com/shelterops/bedhold/pkg/context"
	shelerrors "github.com/shelterops/bedhold/pkg/errors"
	"golang.org/x/text/language"
)

// State is the closed set of call session states (spec §4.6 state
// diagram).
type State string

const (
	StateGreeting             State = "greeting"
	StateClassifyIntent       State = "classify_intent"
	StateBedCheckAvailability State = "bed_check_availability"
	StateBedGatherSlots       State = "bed_gather_slots"
	StateBedConfirm           State = "bed_confirm"
	StateBedAllocate          State = "bed_allocate"
	StateChapelGatherSlots    State = "chapel_gather_slots"
	StateChapelSchedule       State = "chapel_schedule"
	StateVolunteerGatherSlots State = "volunteer_gather_slots"
	StateVolunteerRegister    State = "volunteer_register"
	StateDonationProvideInfo  State = "donation_provide_info"
	StateCrisisProvideHotline State = "crisis_provide_hotline"
	StateDeliverConfirmation  State = "deliver_confirmation"
	StateFarewell             State = "farewell"
)

// Slots accumulates the information gathered from the caller across
// utterances (spec §3 Call Session attributes).
type Slots struct {
	CallerName string
	Situation  string
	Needs      string

	ChapelDate    string
	ChapelTime    string
	ChapelGroup   string
	ChapelContact string

	VolunteerName         string
	VolunteerPhone        string
	VolunteerEmail        string
	VolunteerAvailability string
	VolunteerInterests    string
}

var farewellPhrases = []string{
	"goodbye", "bye", "that's all", "hang up", "adiós", "au revoir", "tchau",
}

var affirmativePhrases = []string{
	"yes", "yeah", "yep", "sure", "correct", "that's right", "sí", "si", "oui", "sim",
}

// Session is one phone call's state machine. It is not safe for
// concurrent use from more than one goroutine driving utterances; the
// telephony transport owns exactly one goroutine per call.
type Session struct {
	mu sync.Mutex

	Token            string
	State            State
	DetectedLanguage string
	Slots            Slots

	// ToolCommitted records that ALLOCATE/SCHEDULE/REGISTER has already
	// returned success once; a later utterance that would re-issue the
	// same tool in this session is ignored instead of re-invoked (spec
	// §4.6 exactly-once side effects, property 6).
	ToolCommitted bool

	ReservationCode string

	router *intent.Router
	tools  *intent.Tools

	toolCallDeadline time.Duration
	toolRetryMax     int

	createdAt  time.Time
	lastActive time.Time
}

// New builds a Session bound to token, ready to receive its first
// utterance from StateGreeting.
func New(token string, router *intent.Router, tools *intent.Tools, toolCallDeadline time.Duration, toolRetryMax int) *Session {
	now := time.Now()
	return &Session{
		Token:            token,
		State:            StateGreeting,
		router:           router,
		tools:            tools,
		toolCallDeadline: toolCallDeadline,
		toolRetryMax:     toolRetryMax,
		createdAt:        now,
		lastActive:       now,
	}
}

// LastActive reports when the session last received an utterance. No
// code in this module reads it: an idle session is not ended on a
// timer.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Ended reports whether the session has reached a terminal state, so
// the owning telephony transport knows to hang up (spec §4.7
// end_call).
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State == StateFarewell
}

// HandleUtterance advances the state machine on one transcribed
// utterance, detecting language on the first substantive one (spec
// §4.6 language routing) and returning the phrase the session should
// speak back.
func (s *Session) HandleUtterance(ctx context.Context, utterance, language string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	if s.DetectedLanguage == "" && language != "" {
		s.DetectedLanguage = normalizeLanguage(language)
	}

	if isFarewell(utterance) && s.State != StateCrisisProvideHotline {
		s.State = StateFarewell
		s.tools.EndCall()
		return farewellPhrase(s.DetectedLanguage), nil
	}

	// CRISIS_FLOW preempts any state on trigger (spec §4.6 state
	// diagram), not just the initial classify step — an explicit
	// self-harm phrase mid-flow must not be swallowed as slot text.
	if s.State != StateCrisisProvideHotline && s.State != StateFarewell {
		if s.router.Classify(utterance, s.DetectedLanguage) == intent.IntentCrisis {
			s.State = StateCrisisProvideHotline
			return hotlinePhrase(s.DetectedLanguage), nil
		}
	}

	switch s.State {
	case StateGreeting, StateClassifyIntent:
		return s.classify(ctx, utterance)
	case StateBedGatherSlots:
		return s.continueBedFlow(ctx, utterance)
	case StateBedConfirm:
		return s.continueBedConfirm(ctx, utterance)
	case StateChapelGatherSlots:
		return s.continueChapelFlow(utterance)
	case StateVolunteerGatherSlots:
		return s.continueVolunteerFlow(utterance)
	case StateCrisisProvideHotline, StateDonationProvideInfo, StateFarewell:
		return s.farewellOrRepeat(utterance)
	default:
		return "", shelerrors.Newf(shelerrors.KindInternal, "session %s: no handler for state %s", s.Token, s.State)
	}
}

func (s *Session) classify(ctx context.Context, utterance string) (string, error) {
	switch s.router.Classify(utterance, s.DetectedLanguage) {
	case intent.IntentBedInquiry:
		s.State = StateBedCheckAvailability
		available := s.tools.CheckAvailability()
		s.State = StateBedGatherSlots
		return availabilityPhrase(available), nil
	case intent.IntentChapel:
		s.State = StateChapelGatherSlots
		return "What date and time would you like to schedule a chapel service?", nil
	case intent.IntentVolunteer:
		s.State = StateVolunteerGatherSlots
		return "What's your name and the best way to reach you?", nil
	case intent.IntentDonation:
		s.State = StateDonationProvideInfo
		return donationInfoPhrase(), nil
	default:
		return "I'm not sure I understand — are you looking for a bed, a chapel service, or to volunteer?", nil
	}
}

// continueBedFlow gathers caller name/situation/needs, then moves to
// StateBedConfirm to read them back before allocating (spec §4.6
// BED_FLOW: GATHER_SLOTS → CONFIRM → ALLOCATE).
func (s *Session) continueBedFlow(ctx context.Context, utterance string) (string, error) {
	if s.Slots.CallerName == "" {
		s.Slots.CallerName = utterance
		return "Can you tell me a bit about your situation?", nil
	}
	if s.Slots.Situation == "" {
		s.Slots.Situation = utterance
		return "Do you have any specific needs we should know about? You can say 'none'.", nil
	}
	if s.Slots.Needs == "" {
		s.Slots.Needs = utterance
	}

	s.State = StateBedConfirm
	return s.confirmPrompt(), nil
}

func (s *Session) confirmPrompt() string {
	return fmt.Sprintf("Let me confirm: %s, %s, needs: %s. Should I reserve a bed for you?",
		s.Slots.CallerName, s.Slots.Situation, s.Slots.Needs)
}

// continueBedConfirm reads the gathered slots back to the caller and
// only allocates on an affirmative reply; anything else sends the
// caller back to re-state their needs rather than allocating on a
// misheard utterance.
func (s *Session) continueBedConfirm(ctx context.Context, utterance string) (string, error) {
	if !isAffirmative(utterance) {
		s.Slots.Needs = ""
		s.State = StateBedGatherSlots
		return "No problem — do you have any specific needs we should know about? You can say 'none'.", nil
	}

	s.State = StateBedAllocate
	return s.allocate(ctx)
}

func (s *Session) allocate(ctx context.Context) (string, error) {
	if s.ToolCommitted {
		return s.deliverConfirmation(), nil
	}

	var lastErr error
	for attempt := 0; attempt <= s.toolRetryMax; attempt++ {
		toolCtx, cancel := shelctx.WithTimeout(ctx, shelctx.OpToolCall, &shelctx.TimeoutConfig{ToolCall: s.toolCallDeadline})
		r, err := s.tools.ReserveBed(toolCtx, s.Slots.CallerName, s.Slots.Situation, s.Slots.Needs, s.DetectedLanguage)
		cancel()
		if err == context.DeadlineExceeded {
			err = shelerrors.Wrap(shelerrors.KindTimeout, "reserve_bed timed out", shelctx.WrapOpError(err, "reserve_bed", s.toolCallDeadline))
		}
		if err == nil {
			s.ToolCommitted = true
			s.ReservationCode = r.Code
			s.State = StateDeliverConfirmation
			return s.deliverConfirmation(), nil
		}
		lastErr = err
		if shelerrors.As(err).Kind != shelerrors.KindTimeout {
			break
		}
	}

	s.State = StateFarewell
	s.tools.EndCall()
	return apologyPhrase(lastErr), nil
}

func (s *Session) continueChapelFlow(utterance string) (string, error) {
	if s.Slots.ChapelDate == "" {
		s.Slots.ChapelDate = utterance
		return "What time: 10:00, 13:00, or 19:00?", nil
	}
	if s.Slots.ChapelTime == "" {
		s.Slots.ChapelTime = utterance
		return "Which group is this for, and a contact number?", nil
	}
	if s.Slots.ChapelGroup == "" {
		s.Slots.ChapelGroup = utterance
		return "And a contact number or name?", nil
	}
	s.Slots.ChapelContact = utterance

	if s.ToolCommitted {
		return s.deliverConfirmation(), nil
	}

	_, err := s.tools.ScheduleChapelService(s.Slots.ChapelDate, s.Slots.ChapelTime, s.Slots.ChapelGroup, s.Slots.ChapelContact)
	if err != nil {
		s.State = StateFarewell
		s.tools.EndCall()
		return apologyPhrase(err), nil
	}
	s.ToolCommitted = true
	s.State = StateDeliverConfirmation
	return s.deliverConfirmation(), nil
}

func (s *Session) continueVolunteerFlow(utterance string) (string, error) {
	if s.Slots.VolunteerName == "" {
		s.Slots.VolunteerName = utterance
		return "What's the best phone number or email to reach you?", nil
	}
	if s.Slots.VolunteerPhone == "" && s.Slots.VolunteerEmail == "" {
		s.Slots.VolunteerPhone = utterance
		return "When are you available, and what are you interested in helping with?", nil
	}
	if s.Slots.VolunteerAvailability == "" {
		s.Slots.VolunteerAvailability = utterance
		return "And what would you like to help with?", nil
	}
	s.Slots.VolunteerInterests = utterance

	if s.ToolCommitted {
		return s.deliverConfirmation(), nil
	}

	_, err := s.tools.RegisterVolunteer(s.Slots.VolunteerName, s.Slots.VolunteerPhone, s.Slots.VolunteerEmail, s.Slots.VolunteerAvailability, s.Slots.VolunteerInterests)
	if err != nil {
		s.State = StateFarewell
		s.tools.EndCall()
		return apologyPhrase(err), nil
	}
	s.ToolCommitted = true
	s.State = StateDeliverConfirmation
	return s.deliverConfirmation(), nil
}

func (s *Session) farewellOrRepeat(utterance string) (string, error) {
	ending := s.State != StateFarewell
	s.State = StateFarewell
	if ending {
		s.tools.EndCall()
	}
	return farewellPhrase(s.DetectedLanguage), nil
}

func (s *Session) deliverConfirmation() string {
	if s.ReservationCode != "" {
		return "You're all set. Your reservation code is " + s.ReservationCode + ". " + farewellPhrase(s.DetectedLanguage)
	}
	return "You're all set. " + farewellPhrase(s.DetectedLanguage)
}

// normalizeLanguage reduces a BCP-47 tag (e.g. "es-MX", "ES") to its
// base language code so it lines up with the crisis keyword map's
// "en"/"es"/"pt"/"fr" keys. An unparseable tag is passed through
// unchanged rather than dropped, since the crisis fallback scan in
// intent.Router still covers it.
func normalizeLanguage(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, _ := parsed.Base()
	return base.String()
}

func isFarewell(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, n := range farewellPhrases {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func isAffirmative(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, p := range affirmativePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
