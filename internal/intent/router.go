// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package intent classifies caller utterances into a closed intent set
// and exposes the tool table the call session drives (spec §4.7 Intent
// & Tool Router).
package intent

import "strings"

// Intent is the closed set of classifications a call session can route
// on.
type Intent string

const (
	IntentBedInquiry Intent = "bed_inquiry"
	IntentChapel     Intent = "chapel"
	IntentVolunteer  Intent = "volunteer"
	IntentDonation   Intent = "donation"
	IntentCrisis     Intent = "crisis"
	IntentOther      Intent = "other"
)

var bedInquiryKeywords = []string{
	"bed", "shelter", "homeless", "sin hogar", "cama", "stay the night",
	"somewhere to sleep", "need a place",
}

var chapelKeywords = []string{"chapel", "service", "worship", "prayer", "mass"}

var volunteerKeywords = []string{"volunteer", "voluntari"}

var donationKeywords = []string{"donat", "donación", "give clothes", "drop off"}

// Router classifies utterances into the closed Intent set.
// Crisis keywords are loaded once at construction (spec §6: additions
// require redeploy).
type Router struct {
	crisisKeywords map[string][]string
}

// NewRouter builds a Router over the given per-language crisis keyword
// lists (see pkg/config.DefaultCrisisKeywords / LoadCrisisKeywords).
func NewRouter(crisisKeywords map[string][]string) *Router {
	return &Router{crisisKeywords: crisisKeywords}
}

// Classify returns the Intent for utterance, given the session's
// detected language (a key into the crisis keyword map; an unknown
// language falls back to scanning every list since self-harm detection
// must never regress to "other" on a language miss).
//
// Classification is strict: only an explicit self-harm/suicide phrase
// yields crisis. Statements of homelessness, hunger, or urgency always
// map to bed_inquiry, never crisis (spec §4.7).
func (r *Router) Classify(utterance, language string) Intent {
	lower := strings.ToLower(utterance)

	if r.matchesCrisis(lower, language) {
		return IntentCrisis
	}
	if containsAny(lower, bedInquiryKeywords) {
		return IntentBedInquiry
	}
	if containsAny(lower, chapelKeywords) {
		return IntentChapel
	}
	if containsAny(lower, volunteerKeywords) {
		return IntentVolunteer
	}
	if containsAny(lower, donationKeywords) {
		return IntentDonation
	}
	return IntentOther
}

func (r *Router) matchesCrisis(lower, language string) bool {
	if phrases, ok := r.crisisKeywords[language]; ok && containsAny(lower, phrases) {
		return true
	}
	// Fall back to every configured language: a caller's detected
	// language can lag their actual speech, and a missed crisis phrase
	// is far costlier than a false positive bed_inquiry.
	for lang, phrases := range r.crisisKeywords {
		if lang == language {
			continue
		}
		if containsAny(lower, phrases) {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
