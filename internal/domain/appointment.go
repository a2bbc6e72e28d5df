package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// State is the lifecycle state of an appointment. Confirmed is the only
// state that holds its slot; every other state is terminal.
type State string

const (
	StateConfirmed State = "Confirmed"
	StateCancelled State = "Cancelled"
	StatePostponed State = "Postponed"
	StateCompleted State = "Completed"
	StateMissed    State = "Missed"
)

// States lists every appointment state in catalog order.
func States() []State {
	return []State{StateConfirmed, StateCancelled, StatePostponed, StateCompleted, StateMissed}
}

func (s State) Terminal() bool {
	return s != StateConfirmed
}

// Role distinguishes the two actor populations in the directory.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Lifecycle marks directory rows as active or soft-deleted.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	DoctorID    uuid.UUID `bun:"doctor_id,notnull,type:uuid"`
	PatientID   uuid.UUID `bun:"patient_id,notnull,type:uuid"`
	ScheduledAt time.Time `bun:"scheduled_at,notnull"`
	StatusID    int16     `bun:"status_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

type Doctor struct {
	bun.BaseModel `bun:"table:doctors,alias:d"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Specialty string    `bun:"specialty"`
	Lifecycle Lifecycle `bun:"lifecycle,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type Patient struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email"`
	Lifecycle Lifecycle `bun:"lifecycle,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// AppointmentView is the display shape for lookups: the appointment
// expanded with the directory names and the state name.
type AppointmentView struct {
	ID          uuid.UUID `bun:"id"`
	DoctorID    uuid.UUID `bun:"doctor_id"`
	DoctorName  string    `bun:"doctor_name"`
	PatientID   uuid.UUID `bun:"patient_id"`
	PatientName string    `bun:"patient_name"`
	ScheduledAt time.Time `bun:"scheduled_at"`
	State       State     `bun:"state"`
}
