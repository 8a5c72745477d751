/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// OfferStatus is the state of a job offer.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

// Terminal reports whether s is absorbing.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferRejected || s == OfferExpired
}

// JobOffer moves pending(unsent) -> pending(sent) -> accepted|rejected|expired.
// Every transition is a conditional update guarded by the source state.
type JobOffer struct {
	ID                  string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	ApplicationID       string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_job_offers_application" json:"application_id"`
	Status              OfferStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_job_offers_status" json:"status"`
	OfferSent           bool        `gorm:"not null;default:false" json:"offer_sent"`
	OfferSentTime       *time.Time  `json:"offer_sent_time,omitempty"`
	// DispatchAttemptedAt is the last failed send. Nil until one fails.
	DispatchAttemptedAt *time.Time  `json:"dispatch_attempted_at,omitempty"`
	RespondedAt         *time.Time  `json:"responded_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (JobOffer) TableName() string {
	return "job_offers"
}

// AcceptedCandidate records a hire. One row per application.
type AcceptedCandidate struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ApplicationID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_accepted_candidates_application" json:"application_id"`
	OfferID        string    `gorm:"type:varchar(36);not null" json:"offer_id"`
	ApplicantName  string    `gorm:"type:varchar(255)" json:"applicant_name"`
	ApplicantEmail string    `gorm:"type:varchar(255)" json:"applicant_email"`
	AcceptedAt     time.Time `json:"accepted_at"`
}

// TableName returns the table name for GORM.
func (AcceptedCandidate) TableName() string {
	return "accepted_candidates"
}

// ReplyDecision is what was done with an inbound offer reply.
type ReplyDecision string

const (
	ReplyAccepted  ReplyDecision = "accepted"
	ReplyRejected  ReplyDecision = "rejected"
	ReplyAmbiguous ReplyDecision = "ambiguous"
	ReplyIgnored   ReplyDecision = "ignored"
)

// OfferReply is the audit and dedup record of a processed inbound reply.
type OfferReply struct {
	ID          string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	MessageID   string        `gorm:"type:varchar(512);not null;uniqueIndex:idx_offer_replies_message" json:"message_id"`
	OfferID     *string       `gorm:"type:varchar(36);index:idx_offer_replies_offer" json:"offer_id,omitempty"`
	FromEmail   string        `gorm:"type:varchar(255)" json:"from_email"`
	CleanedBody string        `gorm:"type:text" json:"cleaned_body"`
	Decision    ReplyDecision `gorm:"type:varchar(16);not null" json:"decision"`
	ReceivedAt  time.Time     `json:"received_at"`
}

// TableName returns the table name for GORM.
func (OfferReply) TableName() string {
	return "offer_replies"
}
