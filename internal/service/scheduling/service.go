package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

var (
	// ErrNotOwner means the acting doctor or patient does not own the
	// appointment the operation targets.
	ErrNotOwner = errors.New("appointment belongs to a different actor")

	// ErrTooEarly means an outcome was requested before the scheduled
	// instant has passed.
	ErrTooEarly = errors.New("appointment has not taken place yet")

	// ErrAlreadyFinalized means the appointment is in a terminal state
	// and permits no further transition.
	ErrAlreadyFinalized = errors.New("appointment is already finalized")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service is the scheduling engine: a state machine over appointments
// with Confirmed as the only non-terminal state. All writes for one
// doctor go through the repository's per-doctor transaction so the
// exclusivity check and the insert are linearized.
type Service struct {
	repo      store.AppointmentRepository
	directory store.Directory
	catalog   store.StatusCatalog

	now func() time.Time
}

func NewService(repo store.AppointmentRepository, directory store.Directory, catalog store.StatusCatalog) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		catalog:   catalog,
		now:       time.Now,
	}
}

// Book creates a Confirmed appointment for the patient at the doctor's
// slot. Fails when either party is unknown, the time is off the booking
// window or slot grid, or the slot is already held.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (domain.Appointment, error) {
	if patientID == uuid.Nil {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if doctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	if err := s.ensureActive(ctx, patientID, domain.RolePatient); err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err := s.repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		appt, err := s.bookSlot(ctx, tx, patientID, doctorID, at)
		if err != nil {
			return err
		}
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// bookSlot is the booking step shared by Book and Reschedule. It runs
// against the caller's unit of work so a rescheduled booking sees the
// slot freed earlier in the same transaction, and fails the whole unit
// when the new slot cannot be taken.
func (s *Service) bookSlot(ctx context.Context, tx store.ScheduleTx, patientID, doctorID uuid.UUID, at time.Time) (domain.Appointment, error) {
	if err := s.ensureActive(ctx, doctorID, domain.RoleDoctor); err != nil {
		return domain.Appointment{}, err
	}
	if err := domain.ValidateSlot(at, s.now()); err != nil {
		return domain.Appointment{}, err
	}

	confirmed, err := s.catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		return domain.Appointment{}, err
	}

	_, err = tx.FindActiveSlot(ctx, doctorID, at, confirmed)
	switch {
	case err == nil:
		return domain.Appointment{}, store.ErrSlotTaken
	case !errors.Is(err, store.ErrNotFound):
		return domain.Appointment{}, fmt.Errorf("check active slot: %w", err)
	}

	return tx.Insert(ctx, domain.Appointment{
		DoctorID:    doctorID,
		PatientID:   patientID,
		ScheduledAt: at.UTC(),
		StatusID:    confirmed,
	})
}

// ListByDay returns the actor's Confirmed appointments on a calendar
// day, expanded for display. An empty day is not an error.
func (s *Service) ListByDay(ctx context.Context, actorID uuid.UUID, role domain.Role, day time.Time) ([]domain.AppointmentView, error) {
	if actorID == uuid.Nil {
		return nil, validationError("actor_id is required")
	}
	if err := s.ensureActive(ctx, actorID, role); err != nil {
		return nil, err
	}

	confirmed, err := s.catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActiveByDay(ctx, actorID, role, day, confirmed)
}

// GetBySlot returns the actor's Confirmed appointment at the exact
// instant, or store.ErrNotFound.
func (s *Service) GetBySlot(ctx context.Context, actorID uuid.UUID, role domain.Role, at time.Time) (domain.AppointmentView, error) {
	if actorID == uuid.Nil {
		return domain.AppointmentView{}, validationError("actor_id is required")
	}
	if err := s.ensureActive(ctx, actorID, role); err != nil {
		return domain.AppointmentView{}, err
	}

	confirmed, err := s.catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		return domain.AppointmentView{}, err
	}
	return s.repo.FindActiveSlotView(ctx, actorID, role, at, confirmed)
}

// Reschedule retires the patient's appointment at oldAt and books newAt
// in one transaction. When the new booking fails for any reason the
// whole unit rolls back and the original stays Confirmed. Rescheduling
// onto the same instant is rejected outright.
func (s *Service) Reschedule(ctx context.Context, patientID, doctorID uuid.UUID, oldAt, newAt time.Time) (domain.Appointment, error) {
	if patientID == uuid.Nil {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if doctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}
	if oldAt.UTC().Equal(newAt.UTC()) {
		return domain.Appointment{}, validationError("new time must differ from the current time")
	}

	confirmed, err := s.catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		return domain.Appointment{}, err
	}
	postponed, err := s.catalog.Resolve(ctx, domain.StatePostponed)
	if err != nil {
		return domain.Appointment{}, err
	}

	var replacement domain.Appointment
	err = s.repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		original, err := tx.FindActiveSlot(ctx, doctorID, oldAt, confirmed)
		if err != nil {
			return err
		}
		if original.PatientID != patientID {
			return ErrNotOwner
		}

		if err := tx.UpdateState(ctx, original.ID, confirmed, postponed); err != nil {
			return fmt.Errorf("retire original: %w", err)
		}

		appt, err := s.bookSlot(ctx, tx, patientID, doctorID, newAt)
		if err != nil {
			return err
		}
		replacement = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return replacement, nil
}

// Cancel moves the patient's Confirmed appointment at the doctor's slot
// to Cancelled, freeing the slot for rebooking.
func (s *Service) Cancel(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) error {
	if patientID == uuid.Nil {
		return validationError("patient_id is required")
	}
	if doctorID == uuid.Nil {
		return validationError("doctor_id is required")
	}

	confirmed, err := s.catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		return err
	}
	cancelled, err := s.catalog.Resolve(ctx, domain.StateCancelled)
	if err != nil {
		return err
	}

	return s.repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		appt, err := tx.FindActiveSlot(ctx, doctorID, at, confirmed)
		if err != nil {
			return err
		}
		if appt.PatientID != patientID {
			return ErrNotOwner
		}
		return tx.UpdateState(ctx, appt.ID, confirmed, cancelled)
	})
}

// MarkOutcome records a past appointment as Completed or Missed. Only
// the owning doctor may mark it, only after the scheduled instant, and
// only while it is still Confirmed.
func (s *Service) MarkOutcome(ctx context.Context, appointmentID, doctorID uuid.UUID, completed bool) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if doctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}

	target := domain.StateMissed
	if completed {
		target = domain.StateCompleted
	}

	confirmed, err := s.catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		return domain.Appointment{}, err
	}
	targetID, err := s.catalog.Resolve(ctx, target)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = s.repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		appt, err := tx.FindByID(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.DoctorID != doctorID {
			return ErrNotOwner
		}
		if appt.ScheduledAt.After(s.now().UTC()) {
			return ErrTooEarly
		}
		if appt.StatusID != confirmed {
			return ErrAlreadyFinalized
		}

		if err := tx.UpdateState(ctx, appt.ID, confirmed, targetID); err != nil {
			return err
		}
		appt.StatusID = targetID
		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) ensureActive(ctx context.Context, id uuid.UUID, role domain.Role) error {
	ok, err := s.directory.Exists(ctx, id, role)
	if err != nil {
		return fmt.Errorf("directory lookup: %w", err)
	}
	if ok {
		return nil
	}
	if role == domain.RoleDoctor {
		return store.ErrDoctorNotFound
	}
	return store.ErrPatientNotFound
}
