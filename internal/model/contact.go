package model

import "strings"

// Confidence is the certainty attached to an email address.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence maps a free-form label to a Confidence. Unknown labels
// map to ConfidenceNone.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Rank orders confidences from none (0) to high (3).
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Cap returns c, lowered to max if c is stronger.
func (c Confidence) Cap(max Confidence) Confidence {
	if c.Rank() > max.Rank() {
		return max
	}
	if c == "" {
		return ConfidenceNone
	}
	return c
}

// CandidateContact is one contact suggestion produced by one source.
type CandidateContact struct {
	Name             string     `json:"name,omitempty"`
	Title            string     `json:"title,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	SocialProfileURL string     `json:"social_profile_url,omitempty"`
	EmailConfidence  Confidence `json:"email_confidence"`
	Provenance       string     `json:"provenance"`
}

// ContactSlot is one ranked position of a MergedContact.
type ContactSlot struct {
	Name             string     `json:"name,omitempty"`
	Title            string     `json:"title,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	SocialProfileURL string     `json:"social_profile_url,omitempty"`
	EmailConfidence  Confidence `json:"email_confidence,omitempty"`
	Provenance       string     `json:"provenance,omitempty"`
}

// Empty reports whether the slot holds no contact.
func (s ContactSlot) Empty() bool {
	return s.Name == "" && s.Title == "" && s.Email == "" && s.Phone == "" && s.SocialProfileURL == ""
}

// SlotFromCandidate copies a candidate into a slot.
func SlotFromCandidate(c CandidateContact) ContactSlot {
	return ContactSlot{
		Name:             c.Name,
		Title:            c.Title,
		Email:            c.Email,
		Phone:            c.Phone,
		SocialProfileURL: c.SocialProfileURL,
		EmailConfidence:  c.EmailConfidence,
		Provenance:       c.Provenance,
	}
}

// MaxSlots is the number of ranked contact slots per business.
const MaxSlots = 3

// MergedContact is the canonical contact output for one business.
type MergedContact struct {
	Slots       [MaxSlots]ContactSlot `json:"slots"`
	Primary     ContactSlot           `json:"primary"` // always equal to Slots[0]
	DataSources []string              `json:"data_sources,omitempty"`
}

// Filled returns how many slots hold a contact.
func (m MergedContact) Filled() int {
	n := 0
	for _, s := range m.Slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}
