package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
)

// ScheduleTx is the unit of work the scheduling engine drives inside
// one transaction. Reads observe writes made earlier through the same
// value, so a conflict check after an insert sees that insert.
type ScheduleTx interface {
	FindActiveSlot(ctx context.Context, doctorID uuid.UUID, at time.Time, confirmedStatus int16) (domain.Appointment, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateState(ctx context.Context, id uuid.UUID, fromStatus, toStatus int16) error
}

// AppointmentRepository is everything the scheduling engine needs from
// the appointment table. InDoctorTransaction serializes writers for one
// doctor and rolls the whole unit back when fn errors.
type AppointmentRepository interface {
	InDoctorTransaction(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, tx ScheduleTx) error) error

	FindActiveSlotView(ctx context.Context, actorID uuid.UUID, role domain.Role, at time.Time, confirmedStatus int16) (domain.AppointmentView, error)
	ListActiveByDay(ctx context.Context, actorID uuid.UUID, role domain.Role, day time.Time, confirmedStatus int16) ([]domain.AppointmentView, error)
}

// Directory confirms that a doctor or patient exists and is active.
// It is read-only from the engine's perspective.
type Directory interface {
	Exists(ctx context.Context, id uuid.UUID, role domain.Role) (bool, error)
}

// StatusCatalog resolves a state name to its stored identifier. Fails
// with *ConfigurationError when the backing table lacks the name.
type StatusCatalog interface {
	Resolve(ctx context.Context, state domain.State) (int16, error)
}
