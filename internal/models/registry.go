/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&Application{},
		&Slot{},
		&InterviewSchedule{},
		&Feedback{},
		&JobOffer{},
		&AcceptedCandidate{},
		&OfferReply{},
		&Notification{},
		&AuditLog{},
	}
}
