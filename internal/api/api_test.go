/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/applications"
	"github.com/friendsincode/recruitd/internal/audit"
	"github.com/friendsincode/recruitd/internal/auth"
	"github.com/friendsincode/recruitd/internal/classify"
	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/db/dbtest"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/notifications/notificationstest"
	"github.com/friendsincode/recruitd/internal/offers"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

var (
	testSecret = []byte("api-test-secret")
	testNow    = time.Date(2026, 4, 13, 10, 0, 0, 0, time.UTC)
)

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
	alloc   *scheduling.Allocator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := dbtest.Open(t)
	clk := clock.NewFake(testNow)
	bus := events.NewBus()
	notifier := notifications.NewService(database, notificationstest.NewSender(), clk, zerolog.Nop())
	alloc := scheduling.NewAllocator(database, notifier, bus, clk, zerolog.Nop())

	auditSvc := audit.NewService(database, bus, clk, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	auditSvc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		auditSvc.Wait()
	})

	a := New(Deps{
		Allocator:    alloc,
		Feedback:     scheduling.NewFeedbackService(database, notifier, bus, clk, zerolog.Nop()),
		Offers:       offers.NewWorkflow(database, notifier, nil, classify.NewKeywordClassifier(classify.DefaultKeywords()), bus, clk, offers.DefaultConfig(), zerolog.Nop()),
		Applications: applications.NewService(database, notifier, bus, zerolog.Nop()),
		Audit:        auditSvc,
		JWTSecret:    testSecret,
		Logger:       zerolog.Nop(),
	})
	r := chi.NewRouter()
	a.Routes(r)
	return &testServer{t: t, db: database, handler: r, alloc: alloc}
}

func (s *testServer) token(roles ...auth.Role) string {
	s.t.Helper()
	tok, err := auth.Issue(testSecret, auth.Claims{UserID: "u1", Roles: roles}, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) application(id string, status models.ApplicationStatus) {
	s.t.Helper()
	require.NoError(s.t, s.db.Create(&models.Application{
		ID: id, Company: "Acme", Role: "Engineer", ApplicantName: id, ApplicantEmail: id + "@candidates.test", Status: status,
	}).Error)
}

func (s *testServer) slot(interviewer string) *models.Slot {
	s.t.Helper()
	slot, err := s.alloc.CreateSlot(context.Background(), scheduling.SlotInput{
		Company: "Acme", Role: "Engineer", InterviewerName: "Kim", InterviewerEmail: interviewer,
		StartTime: testNow.Add(48 * time.Hour), Mode: models.ModeOnline, MeetingLink: "https://meet.example/r",
	})
	require.NoError(s.t, err)
	return slot
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBookingConflictsMapTo409(t *testing.T) {
	s := newTestServer(t)
	recruiter := s.token(auth.RoleRecruiter)
	s.application("a1", models.ApplicationAccepted)
	s.application("a2", models.ApplicationAccepted)
	slot := s.slot("kim@acme.test")

	rr := s.do(http.MethodPost, "/api/v1/bookings", recruiter, bookingRequest{ApplicationID: "a1", SlotID: slot.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var iv models.InterviewSchedule
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &iv))
	assert.Equal(t, "a1", iv.ApplicationID)

	rr = s.do(http.MethodPost, "/api/v1/bookings", recruiter, bookingRequest{ApplicationID: "a2", SlotID: slot.ID})
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "slot_already_booked", body["error"])
	assert.NotEmpty(t, body["message"])

	other := s.slot("lee@acme.test")
	rr = s.do(http.MethodPost, "/api/v1/bookings", recruiter, bookingRequest{ApplicationID: "a1", SlotID: other.ID})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "candidate_already_scheduled", decodeError(t, rr)["error"])

	rr = s.do(http.MethodDelete, "/api/v1/slots/"+slot.ID, recruiter, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "slot_booked", decodeError(t, rr)["error"])

	rr = s.do(http.MethodPost, "/api/v1/slots/"+slot.ID+"/release", recruiter, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "slot_in_use", decodeError(t, rr)["error"])

	rr = s.do(http.MethodDelete, "/api/v1/interviews/"+iv.ID, recruiter, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodPost, "/api/v1/bookings", recruiter, bookingRequest{ApplicationID: "a2", SlotID: slot.ID})
	assert.Equal(t, http.StatusCreated, rr.Code, "released slot is bookable again")
}

func TestNotFoundAndValidation(t *testing.T) {
	s := newTestServer(t)
	recruiter := s.token(auth.RoleRecruiter)
	s.application("a1", models.ApplicationPending)
	open := s.slot("kim@acme.test")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown slot", http.MethodPost, "/api/v1/bookings", bookingRequest{ApplicationID: "a1", SlotID: "nope"}, http.StatusNotFound, "slot_not_found"},
		{"pending application not bookable", http.MethodPost, "/api/v1/bookings", bookingRequest{ApplicationID: "a1", SlotID: open.ID}, http.StatusConflict, "not_schedulable"},
		{"missing fields", http.MethodPost, "/api/v1/bookings", bookingRequest{ApplicationID: "a1"}, http.StatusBadRequest, "missing_fields"},
		{"unknown json field", http.MethodPost, "/api/v1/offers", map[string]string{"app": "a1"}, http.StatusBadRequest, "invalid_json"},
		{"offer not eligible", http.MethodPost, "/api/v1/offers", offerRequest{ApplicationID: "a1"}, http.StatusConflict, "not_eligible"},
		{"offer for unknown application", http.MethodPost, "/api/v1/offers", offerRequest{ApplicationID: "zz"}, http.StatusNotFound, "application_not_found"},
		{"unknown offer", http.MethodGet, "/api/v1/offers/zz", nil, http.StatusNotFound, "offer_not_found"},
		{"bad offer filter", http.MethodGet, "/api/v1/offers?status=maybe", nil, http.StatusBadRequest, "invalid_status"},
		{"invalid slot", http.MethodPost, "/api/v1/slots", scheduling.SlotInput{Company: "Acme"}, http.StatusBadRequest, "invalid_slot"},
		{"bad slot limit", http.MethodGet, "/api/v1/slots?limit=-1", nil, http.StatusBadRequest, "invalid_limit"},
		{"derived status", http.MethodPut, "/api/v1/applications/a1/status", statusRequest{Status: models.ApplicationHired}, http.StatusBadRequest, "invalid_status"},
		{"unknown interview", http.MethodPost, "/api/v1/interviews/zz/feedback", scheduling.FeedbackInput{Decision: models.FeedbackAccepted}, http.StatusNotFound, "interview_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(tt.method, tt.path, recruiter, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rr)["error"])
		})
	}
}

func TestRoles(t *testing.T) {
	s := newTestServer(t)
	interviewer := s.token(auth.RoleInterviewer)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/slots", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/slots", interviewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/offers", interviewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/bookings", interviewer, bookingRequest{}).Code)

	rr := s.do(http.MethodPost, "/api/v1/slots", interviewer, scheduling.SlotInput{
		Company: "Acme", Role: "Engineer", InterviewerName: "Kim", InterviewerEmail: "kim@acme.test",
		StartTime: testNow.Add(time.Hour), Mode: models.ModeOffline, Address: "1 Main St",
	})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestOfferAndApplicationFlow(t *testing.T) {
	s := newTestServer(t)
	recruiter := s.token(auth.RoleRecruiter)
	s.application("a1", models.ApplicationPending)

	rr := s.do(http.MethodPut, "/api/v1/applications/a1/status", recruiter, statusRequest{Status: models.ApplicationAccepted})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/v1/offers", recruiter, offerRequest{ApplicationID: "a1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var offer models.JobOffer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &offer))
	assert.Equal(t, models.OfferPending, offer.Status)

	rr = s.do(http.MethodPost, "/api/v1/offers", recruiter, offerRequest{ApplicationID: "a1"})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "offer_exists", decodeError(t, rr)["error"])

	rr = s.do(http.MethodPut, "/api/v1/applications/a1/status", recruiter, statusRequest{Status: models.ApplicationRejected})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "status_locked", decodeError(t, rr)["error"])

	rr = s.do(http.MethodGet, "/api/v1/offers?status=pending", recruiter, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []models.JobOffer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rr = s.do(http.MethodGet, "/api/v1/applications/a1", recruiter, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"Accepted"`)
}

func TestApplicationHistory(t *testing.T) {
	s := newTestServer(t)
	recruiter := s.token(auth.RoleRecruiter)
	s.application("a1", models.ApplicationPending)

	rr := s.do(http.MethodPut, "/api/v1/applications/a1/status", recruiter, statusRequest{Status: models.ApplicationAccepted})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, "/api/v1/offers", recruiter, offerRequest{ApplicationID: "a1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	type page struct {
		AuditLogs []models.AuditLog `json:"audit_logs"`
		Total     int64             `json:"total"`
	}
	require.Eventually(t, func() bool {
		rr := s.do(http.MethodGet, "/api/v1/applications/a1/history", recruiter, nil)
		var p page
		return rr.Code == http.StatusOK && json.Unmarshal(rr.Body.Bytes(), &p) == nil && p.Total == 2
	}, 2*time.Second, 10*time.Millisecond)

	rr = s.do(http.MethodGet, "/api/v1/audit?action=offer.created", recruiter, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var p page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Len(t, p.AuditLogs, 1)
	assert.Equal(t, "offer", p.AuditLogs[0].ResourceType)
	assert.Equal(t, "a1", p.AuditLogs[0].ApplicationID)

	rr = s.do(http.MethodGet, "/api/v1/audit?limit=0", recruiter, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_limit", decodeError(t, rr)["error"])

	rr = s.do(http.MethodGet, "/api/v1/audit", s.token(auth.RoleInterviewer), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
