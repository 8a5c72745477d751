/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/recruitd/internal/models"
	"github.com/friendsincode/recruitd/internal/scheduling"
)

func validInput() scheduling.SlotInput {
	return scheduling.SlotInput{
		Company:          "Acme",
		Role:             "Engineer",
		InterviewerName:  "Kim",
		InterviewerEmail: "kim@acme.test",
		StartTime:        epoch.Add(24 * time.Hour),
		Mode:             models.ModeOffline,
		Address:          "1 Main St",
	}
}

func TestCreateSlotValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		mutate   func(*scheduling.SlotInput)
		wantHint string
	}{
		{"missing company", func(in *scheduling.SlotInput) { in.Company = " " }, "company is required"},
		{"bad email", func(in *scheduling.SlotInput) { in.InterviewerEmail = "Kim <kim@acme.test>" }, "plain email"},
		{"past start", func(in *scheduling.SlotInput) { in.StartTime = epoch.Add(-time.Minute) }, "future"},
		{"negative duration", func(in *scheduling.SlotInput) { in.DurationMinutes = -5 }, "duration_minutes"},
		{"unknown mode", func(in *scheduling.SlotInput) { in.Mode = "Phone" }, "mode must be"},
		{"online without link", func(in *scheduling.SlotInput) { in.Mode = models.ModeOnline }, "meeting_link"},
		{"online relative link", func(in *scheduling.SlotInput) {
			in.Mode = models.ModeOnline
			in.MeetingLink = "/room/1"
		}, "absolute URL"},
		{"offline without address", func(in *scheduling.SlotInput) { in.Address = "" }, "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := f.alloc.CreateSlot(context.Background(), in)
			require.ErrorIs(t, err, scheduling.ErrInvalidSlot)
			assert.Contains(t, errors.FlattenHints(err), tt.wantHint)
		})
	}
}

func TestCreateSlotDefaults(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.StartTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	in.MeetingLink = "ignored for offline"

	slot, err := f.alloc.CreateSlot(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 60, slot.DurationMinutes)
	assert.Equal(t, time.UTC, slot.StartTime.Location())
	assert.Equal(t, 11, slot.StartTime.Hour())
	assert.Empty(t, slot.MeetingLink)
	assert.False(t, slot.IsBooked)
	assert.Equal(t, slot.StartTime.Add(time.Hour), slot.EndTime())
}

func TestCreateRecurringSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // Monday
	in := validInput()
	in.StartTime = first

	slots, err := f.alloc.CreateRecurringSlots(ctx, in, "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=6", time.Time{})
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.True(t, slots[0].StartTime.Equal(first))
	assert.Equal(t, time.Wednesday, slots[1].StartTime.Weekday())
	assert.True(t, slots[5].StartTime.Equal(first.Add(14*24*time.Hour+2*24*time.Hour)))

	bounded, err := f.alloc.CreateRecurringSlots(ctx, in, "FREQ=DAILY", first.Add(3*24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, bounded, 4, "until is inclusive")

	_, err = f.alloc.CreateRecurringSlots(ctx, in, "FREQ=HOURLY", first.Add(30*24*time.Hour))
	require.ErrorIs(t, err, scheduling.ErrInvalidSlot)
	assert.Contains(t, errors.FlattenHints(err), "limit")

	_, err = f.alloc.CreateRecurringSlots(ctx, in, "NOT;A;RULE", time.Time{})
	require.ErrorIs(t, err, scheduling.ErrInvalidSlot)

	all, err := f.alloc.ListSlots(ctx, scheduling.SlotFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestListSlotsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.application(t, "a1", models.ApplicationAccepted)

	booked := f.slot(t, "kim@acme.test", epoch.Add(10*time.Hour))
	f.slot(t, "kim@acme.test", epoch.Add(20*time.Hour))
	f.slot(t, "lee@acme.test", epoch.Add(5*time.Hour))
	_, err := f.alloc.BookSlot(ctx, "a1", booked.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter scheduling.SlotFilter
		want   int
	}{
		{"all", scheduling.SlotFilter{}, 3},
		{"interviewer case-insensitive", scheduling.SlotFilter{InterviewerEmail: "KIM@acme.test"}, 2},
		{"only available", scheduling.SlotFilter{OnlyAvailable: true}, 2},
		{"from", scheduling.SlotFilter{From: epoch.Add(10 * time.Hour)}, 2},
		{"limit", scheduling.SlotFilter{Limit: 1}, 1},
		{"other company", scheduling.SlotFilter{Company: "Globex"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := f.alloc.ListSlots(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, slots, tt.want)
		})
	}

	ordered, err := f.alloc.ListSlots(ctx, scheduling.SlotFilter{})
	require.NoError(t, err)
	assert.Equal(t, "lee@acme.test", ordered[0].InterviewerEmail)
}
