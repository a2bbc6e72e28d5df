package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSlot_AcceptsEveryGridSlotInWindow(t *testing.T) {
	now := time.Date(2025, 7, 19, 9, 12, 0, 0, time.UTC)

	times := SlotTimes()
	if len(times) != SlotsPerDay {
		t.Fatalf("len(SlotTimes()) = %d, want %d", len(times), SlotsPerDay)
	}

	for daysAhead := 1; daysAhead <= BookingWindowDays; daysAhead++ {
		day := time.Date(2025, 7, 19+daysAhead, 0, 0, 0, 0, time.UTC)
		for _, offset := range times {
			candidate := day.Add(offset)
			if err := ValidateSlot(candidate, now); err != nil {
				t.Fatalf("ValidateSlot(%v) = %v, want nil", candidate, err)
			}
		}
	}
}

func TestValidateSlot_Rejections(t *testing.T) {
	now := time.Date(2025, 7, 19, 9, 12, 0, 0, time.UTC)

	tests := []struct {
		name      string
		candidate time.Time
		reason    SlotReason
	}{
		{
			name:      "same calendar day",
			candidate: time.Date(2025, 7, 19, 16, 0, 0, 0, time.UTC),
			reason:    SlotSameDay,
		},
		{
			name:      "eight days ahead",
			candidate: time.Date(2025, 7, 27, 16, 0, 0, 0, time.UTC),
			reason:    SlotTooFarInAdvance,
		},
		{
			name:      "yesterday",
			candidate: time.Date(2025, 7, 18, 16, 0, 0, 0, time.UTC),
			reason:    SlotInPast,
		},
		{
			name:      "before grid opens",
			candidate: time.Date(2025, 7, 20, 15, 30, 0, 0, time.UTC),
			reason:    SlotInvalidTime,
		},
		{
			name:      "after grid closes",
			candidate: time.Date(2025, 7, 20, 22, 0, 0, 0, time.UTC),
			reason:    SlotInvalidTime,
		},
		{
			name:      "off the half-hour step",
			candidate: time.Date(2025, 7, 20, 16, 15, 0, 0, time.UTC),
			reason:    SlotInvalidTime,
		},
		{
			name:      "sub-minute precision",
			candidate: time.Date(2025, 7, 20, 16, 0, 30, 0, time.UTC),
			reason:    SlotInvalidTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlot(tt.candidate, now)
			if err == nil {
				t.Fatalf("expected error")
			}
			var sErr *SlotError
			if !errors.As(err, &sErr) {
				t.Fatalf("error type = %T, want *SlotError", err)
			}
			if sErr.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", sErr.Reason, tt.reason)
			}
		})
	}
}

func TestValidateSlot_WindowBoundaryBeatsGridCheck(t *testing.T) {
	now := time.Date(2025, 7, 19, 9, 0, 0, 0, time.UTC)

	// Eight days ahead at an off-grid time still reports the window
	// failure; the rules apply in order.
	candidate := time.Date(2025, 7, 27, 3, 7, 0, 0, time.UTC)
	err := ValidateSlot(candidate, now)
	var sErr *SlotError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *SlotError", err)
	}
	if sErr.Reason != SlotTooFarInAdvance {
		t.Fatalf("reason = %q, want %q", sErr.Reason, SlotTooFarInAdvance)
	}
}

func TestValidateSlot_NormalizesZonesBeforeComparingDays(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	// 2025-07-20 09:00 in Los Angeles is 16:00 UTC the same day.
	now := time.Date(2025, 7, 19, 2, 0, 0, 0, loc)
	candidate := time.Date(2025, 7, 20, 9, 0, 0, 0, loc)

	if err := ValidateSlot(candidate, now); err != nil {
		t.Fatalf("ValidateSlot(%v) = %v, want nil", candidate, err)
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range States() {
		terminal := s.Terminal()
		if s == StateConfirmed && terminal {
			t.Fatalf("Confirmed must not be terminal")
		}
		if s != StateConfirmed && !terminal {
			t.Fatalf("%s must be terminal", s)
		}
	}
}
