/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"zero interval defaults to a minute", 0, time.Minute},
		{"negative interval defaults to a minute", -time.Second, time.Minute},
		{"custom interval is preserved", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(nil, tt.interval, zerolog.Nop())
			if svc.Interval() != tt.want {
				t.Errorf("New() interval = %v, want %v", svc.Interval(), tt.want)
			}
		})
	}
}

func TestTickOnceIsolatesJobs(t *testing.T) {
	var order []string
	record := func(name string, err error) Job {
		return Job{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}

	svc := New([]Job{
		record("first", nil),
		{Name: "panics", Run: func(context.Context) error {
			order = append(order, "panics")
			panic("boom")
		}},
		record("fails", errors.New("db unavailable")),
		record("last", nil),
	}, time.Minute, zerolog.Nop())

	failed := svc.TickOnce(context.Background())
	if failed != 2 {
		t.Errorf("TickOnce() failed = %d, want 2", failed)
	}
	want := []string{"first", "panics", "fails", "last"}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("job %d = %s, want %s", i, order[i], want[i])
		}
	}
	if svc.LastRun().IsZero() {
		t.Error("LastRun() not recorded")
	}
}

func TestTickOnceStopsOnCancelledContext(t *testing.T) {
	var runs atomic.Int32
	job := Job{Name: "count", Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}
	svc := New([]Job{job, job}, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.TickOnce(ctx)
	if runs.Load() != 0 {
		t.Errorf("ran %d jobs after cancel", runs.Load())
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ticked := make(chan struct{}, 16)
	svc := New([]Job{{Name: "count", Run: func(context.Context) error {
		runs.Add(1)
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil
	}}}, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-ticked:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not tick")
		}
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if runs.Load() < 3 {
		t.Errorf("runs = %d, want at least 3", runs.Load())
	}
}
