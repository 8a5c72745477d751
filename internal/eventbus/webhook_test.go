/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/recruitd/internal/events"
)

type capturedRequest struct {
	header http.Header
	body   []byte
}

func TestWebhookSinkSignsEnvelope(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	f := NewForwarder(events.NewBus(), []Sink{NewWebhookSink(ts.URL, "s3cret")}, "node-1", zerolog.Nop())
	f.Publish(events.EventOfferExpired, events.Payload{"offer_id": "o9"})
	require.NoError(t, f.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 1)
	got := reqs[0]
	assert.Equal(t, "offer.expired", got.header.Get(HeaderEvent))
	assert.NotEmpty(t, got.header.Get(HeaderTimestamp))
	assert.Equal(t, Sign(got.body, "s3cret"), got.header.Get(HeaderSignature))

	var env Envelope
	require.NoError(t, json.Unmarshal(got.body, &env))
	assert.Equal(t, "o9", env.Payload["offer_id"])
}

func TestWebhookSinkStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"accepted", http.StatusAccepted, false},
		{"client error", http.StatusBadRequest, true},
		{"server error", http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Empty(t, r.Header.Get(HeaderSignature), "unsigned without a secret")
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			err := NewWebhookSink(ts.URL, "").Send(context.Background(), events.EventOfferSent, []byte(`{}`))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
