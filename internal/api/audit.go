/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/recruitd/internal/audit"
)

// handleAuditList returns a page of audit entries, most recent first.
func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseAuditFilters(w, r)
	if !ok {
		return
	}
	a.writeAuditPage(w, r, filters)
}

// handleApplicationHistory returns the audit trail of one application.
func (a *API) handleApplicationHistory(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseAuditFilters(w, r)
	if !ok {
		return
	}
	filters.ApplicationID = chi.URLParam(r, "applicationID")
	a.writeAuditPage(w, r, filters)
}

func (a *API) writeAuditPage(w http.ResponseWriter, r *http.Request, filters audit.QueryFilters) {
	logs, total, err := a.audit.Query(r.Context(), filters)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"audit_logs": logs,
		"total":      total,
		"limit":      filters.Limit,
		"offset":     filters.Offset,
	})
}

// parseAuditFilters extracts query filters from the request.
func parseAuditFilters(w http.ResponseWriter, r *http.Request) (audit.QueryFilters, bool) {
	q := r.URL.Query()
	filters := audit.QueryFilters{
		ApplicationID: q.Get("application_id"),
		Action:        q.Get("action"),
		Limit:         100,
	}

	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since", "since must be an RFC 3339 timestamp")
			return filters, false
		}
		filters.Since = &t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return filters, false
		}
		filters.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be a non-negative integer")
			return filters, false
		}
		filters.Offset = n
	}
	return filters, true
}
