/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ApplicationStatus is the pipeline position of an applicant.
type ApplicationStatus string

const (
	ApplicationPending            ApplicationStatus = "Pending"
	ApplicationAccepted           ApplicationStatus = "Accepted"
	ApplicationInterviewScheduled ApplicationStatus = "Interview Scheduled"
	ApplicationRejected           ApplicationStatus = "Rejected"
	ApplicationHired              ApplicationStatus = "Hired"
	ApplicationOfferExpired       ApplicationStatus = "Offer Expired"
)

// Application is a candidate's application to a job. Scoring happens
// upstream; the scores are stored as opaque numbers.
type Application struct {
	ID                 string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	JobID              string            `gorm:"type:varchar(36);index:idx_applications_job" json:"job_id"`
	Company            string            `gorm:"type:varchar(255)" json:"company"`
	Role               string            `gorm:"type:varchar(255)" json:"role"`
	ApplicantName      string            `gorm:"type:varchar(255);not null" json:"applicant_name"`
	ApplicantEmail     string            `gorm:"type:varchar(255);not null;index:idx_applications_email" json:"applicant_email"`
	EligibilityScore   float64           `json:"eligibility_score"`
	AssessmentScore    float64           `json:"assessment_score"`
	Status             ApplicationStatus `gorm:"type:varchar(32);not null;default:'Pending';index:idx_applications_status" json:"status"`
	RejectionEmailSent bool              `gorm:"not null;default:false" json:"rejection_email_sent"`
	AppliedAt          time.Time         `gorm:"autoCreateTime" json:"applied_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Application) TableName() string {
	return "applications"
}
