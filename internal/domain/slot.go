package domain

import (
	"fmt"
	"time"
)

// Booking window and slot grid. A doctor's day has twelve bookable
// slots, 16:00 through 21:30 in 30 minute steps, and bookings must land
// between one and seven calendar days ahead.
const (
	BookingWindowDays = 7

	slotFirstMinute = 16 * 60
	slotLastMinute  = 21*60 + 30
	slotStepMinutes = 30
)

// SlotsPerDay is the number of bookable times on the grid for one day.
const SlotsPerDay = (slotLastMinute-slotFirstMinute)/slotStepMinutes + 1

type SlotReason string

const (
	SlotTooFarInAdvance SlotReason = "too_far_in_advance"
	SlotSameDay         SlotReason = "same_day_not_allowed"
	SlotInPast          SlotReason = "in_past"
	SlotInvalidTime     SlotReason = "invalid_slot_time"
)

// SlotError reports why a candidate booking time was rejected.
type SlotError struct {
	Reason SlotReason
	At     time.Time
}

func (e *SlotError) Error() string {
	switch e.Reason {
	case SlotTooFarInAdvance:
		return fmt.Sprintf("time %s is more than %d days ahead", e.At.Format(time.RFC3339), BookingWindowDays)
	case SlotSameDay:
		return "same-day booking is not allowed"
	case SlotInPast:
		return fmt.Sprintf("time %s is in the past", e.At.Format(time.RFC3339))
	default:
		return fmt.Sprintf("time %s is not on the slot grid", e.At.Format(time.RFC3339))
	}
}

func slotError(reason SlotReason, at time.Time) error {
	return &SlotError{Reason: reason, At: at}
}

// ValidateSlot checks a candidate booking time against the booking
// window and the slot grid. Rules apply in order and the first failure
// wins: more than seven calendar days ahead, same calendar day, in the
// past, then off-grid time of day. Both times are compared in UTC.
func ValidateSlot(candidate, now time.Time) error {
	candidate = candidate.UTC()
	now = now.UTC()

	daysAhead := calendarDay(candidate) - calendarDay(now)
	switch {
	case daysAhead > BookingWindowDays:
		return slotError(SlotTooFarInAdvance, candidate)
	case daysAhead == 0:
		return slotError(SlotSameDay, candidate)
	case daysAhead < 0:
		return slotError(SlotInPast, candidate)
	}

	if candidate.Second() != 0 || candidate.Nanosecond() != 0 {
		return slotError(SlotInvalidTime, candidate)
	}
	minute := candidate.Hour()*60 + candidate.Minute()
	if minute < slotFirstMinute || minute > slotLastMinute || (minute-slotFirstMinute)%slotStepMinutes != 0 {
		return slotError(SlotInvalidTime, candidate)
	}

	return nil
}

// SlotTimes returns the grid offsets from midnight for one day.
func SlotTimes() []time.Duration {
	out := make([]time.Duration, 0, SlotsPerDay)
	for m := slotFirstMinute; m <= slotLastMinute; m += slotStepMinutes {
		out = append(out, time.Duration(m)*time.Minute)
	}
	return out
}

// calendarDay counts whole days since the unix epoch for the UTC
// calendar date of t.
func calendarDay(t time.Time) int {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix() / (24 * 60 * 60))
}
