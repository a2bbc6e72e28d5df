package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

// activeSlotConstraint is the partial unique index on
// (doctor_id, scheduled_at) for confirmed appointments. It is the
// definitive guard for slot exclusivity; the application-level check is
// only an early exit.
const activeSlotConstraint = "appointments_active_slot"

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

// InDoctorTransaction runs fn inside one transaction, serialized per
// doctor with an advisory lock, so all writes to a doctor's schedule
// are linearized and roll back together.
func (r *ScheduleRepo) InDoctorTransaction(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorSchedule(ctx, tx, doctorID); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
}

func lockDoctorSchedule(ctx context.Context, tx bun.Tx, doctorID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID.String()).Exec(ctx)
	return err
}

func (r *ScheduleRepo) FindActiveSlotView(ctx context.Context, actorID uuid.UUID, role domain.Role, at time.Time, confirmedStatus int16) (domain.AppointmentView, error) {
	column, err := actorColumn(role)
	if err != nil {
		return domain.AppointmentView{}, err
	}

	var view domain.AppointmentView
	err = viewQuery(r.db).
		Where(column+" = ?", actorID).
		Where("a.scheduled_at = ?", at.UTC()).
		Where("a.status_id = ?", confirmedStatus).
		Limit(1).
		Scan(ctx, &view)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AppointmentView{}, store.ErrNotFound
		}
		return domain.AppointmentView{}, err
	}
	return view, nil
}

func (r *ScheduleRepo) ListActiveByDay(ctx context.Context, actorID uuid.UUID, role domain.Role, day time.Time, confirmedStatus int16) ([]domain.AppointmentView, error) {
	column, err := actorColumn(role)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var views []domain.AppointmentView
	err = viewQuery(r.db).
		Where(column+" = ?", actorID).
		Where("a.scheduled_at >= ?", dayStart).
		Where("a.scheduled_at < ?", dayEnd).
		Where("a.status_id = ?", confirmedStatus).
		OrderExpr("a.scheduled_at ASC").
		Scan(ctx, &views)
	if err != nil {
		return nil, err
	}
	return views, nil
}

func viewQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("appointments AS a").
		ColumnExpr("a.id, a.doctor_id, a.patient_id, a.scheduled_at").
		ColumnExpr("d.name AS doctor_name").
		ColumnExpr("p.name AS patient_name").
		ColumnExpr("s.name AS state").
		Join("JOIN doctors AS d ON d.id = a.doctor_id").
		Join("JOIN patients AS p ON p.id = a.patient_id").
		Join("JOIN appointment_statuses AS s ON s.id = a.status_id")
}

func actorColumn(role domain.Role) (string, error) {
	switch role {
	case domain.RoleDoctor:
		return "a.doctor_id", nil
	case domain.RolePatient:
		return "a.patient_id", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

func (t scheduleTx) FindActiveSlot(ctx context.Context, doctorID uuid.UUID, at time.Time, confirmedStatus int16) (domain.Appointment, error) {
	var appt domain.Appointment
	err := t.tx.NewSelect().
		Model(&appt).
		Where("a.doctor_id = ?", doctorID).
		Where("a.scheduled_at = ?", at.UTC()).
		Where("a.status_id = ?", confirmedStatus).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (t scheduleTx) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := t.tx.NewSelect().
		Model(&appt).
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (t scheduleTx) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:          appt.ID,
		DoctorID:    appt.DoctorID,
		PatientID:   appt.PatientID,
		ScheduledAt: appt.ScheduledAt.UTC(),
		StatusID:    appt.StatusID,
	}

	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, translateInsertError(err)
	}
	return m, nil
}

// translateInsertError maps a violation of the active-slot unique index
// to the conflict the engine reports when a concurrent booking wins the
// race past the application-level check.
func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotConstraint {
		return store.ErrSlotTaken
	}
	return err
}

func (t scheduleTx) UpdateState(ctx context.Context, id uuid.UUID, fromStatus, toStatus int16) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status_id = ?", toStatus).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("status_id = ?", fromStatus).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
