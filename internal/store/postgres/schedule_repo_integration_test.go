package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

func TestPostgresIntegration_SlotExclusivityAndViews(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("MEDSCHED_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("MEDSCHED_TEST_DATABASE_URL not set")
	}

	// A single connection keeps the session search_path in effect for
	// every transaction the repository opens.
	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "medsched_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(cctx)
	})
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	doctorID := uuid.MustParse("00000000-0000-0000-0000-00000000d001")
	patientOne := uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	patientTwo := uuid.MustParse("00000000-0000-0000-0000-00000000a002")
	seedDirectory(ctx, t, db, doctorID, patientOne, patientTwo)

	catalog := NewStatusCatalog(db)
	confirmed, err := catalog.Resolve(ctx, domain.StateConfirmed)
	if err != nil {
		t.Fatalf("Resolve(Confirmed) error: %v", err)
	}
	cancelled, err := catalog.Resolve(ctx, domain.StateCancelled)
	if err != nil {
		t.Fatalf("Resolve(Cancelled) error: %v", err)
	}

	directory := NewDirectory(db)
	ok, err := directory.Exists(ctx, doctorID, domain.RoleDoctor)
	if err != nil || !ok {
		t.Fatalf("Exists(doctor) = %v, %v, want true", ok, err)
	}
	ok, err = directory.Exists(ctx, doctorID, domain.RolePatient)
	if err != nil || ok {
		t.Fatalf("Exists(doctor as patient) = %v, %v, want false", ok, err)
	}

	repo := NewScheduleRepo(db)
	slot := time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)

	var booked domain.Appointment
	err = repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		if _, err := tx.FindActiveSlot(ctx, doctorID, slot, confirmed); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("FindActiveSlot on empty schedule err = %v, want %v", err, store.ErrNotFound)
		}
		booked, err = tx.Insert(ctx, domain.Appointment{
			DoctorID:    doctorID,
			PatientID:   patientOne,
			ScheduledAt: slot,
			StatusID:    confirmed,
		})
		return err
	})
	if err != nil {
		t.Fatalf("booking tx error: %v", err)
	}
	if booked.ID == uuid.Nil {
		t.Fatal("expected generated appointment id")
	}

	// The partial unique index rejects a second confirmed appointment in
	// the same slot and rolls the transaction back.
	err = repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.Insert(ctx, domain.Appointment{
			DoctorID:    doctorID,
			PatientID:   patientTwo,
			ScheduledAt: slot,
			StatusID:    confirmed,
		})
		return err
	})
	if !errors.Is(err, store.ErrSlotTaken) {
		t.Fatalf("double booking err = %v, want %v", err, store.ErrSlotTaken)
	}

	view, err := repo.FindActiveSlotView(ctx, patientOne, domain.RolePatient, slot, confirmed)
	if err != nil {
		t.Fatalf("FindActiveSlotView error: %v", err)
	}
	if view.ID != booked.ID || view.DoctorName != "Dr. Ada Chen" || view.PatientName != "Sam Okafor" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.State != domain.StateConfirmed {
		t.Fatalf("view state = %q, want %q", view.State, domain.StateConfirmed)
	}

	laterSlot := slot.Add(30 * time.Minute)
	err = repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.Insert(ctx, domain.Appointment{
			DoctorID:    doctorID,
			PatientID:   patientTwo,
			ScheduledAt: laterSlot,
			StatusID:    confirmed,
		})
		return err
	})
	if err != nil {
		t.Fatalf("second slot booking error: %v", err)
	}

	views, err := repo.ListActiveByDay(ctx, doctorID, domain.RoleDoctor, slot, confirmed)
	if err != nil {
		t.Fatalf("ListActiveByDay error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	if !views[0].ScheduledAt.Before(views[1].ScheduledAt) {
		t.Fatalf("views not ordered by slot: %v, %v", views[0].ScheduledAt, views[1].ScheduledAt)
	}

	// State transitions are compare-and-swap: a stale expected state
	// changes nothing.
	err = repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		if err := tx.UpdateState(ctx, booked.ID, cancelled, confirmed); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("stale transition err = %v, want %v", err, store.ErrNotFound)
		}
		return tx.UpdateState(ctx, booked.ID, confirmed, cancelled)
	})
	if err != nil {
		t.Fatalf("cancel tx error: %v", err)
	}

	// Cancelling released the slot, so the index admits a new booking.
	err = repo.InDoctorTransaction(ctx, doctorID, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.Insert(ctx, domain.Appointment{
			DoctorID:    doctorID,
			PatientID:   patientTwo,
			ScheduledAt: slot,
			StatusID:    confirmed,
		})
		return err
	})
	if err != nil {
		t.Fatalf("rebooking after cancel error: %v", err)
	}

	if _, err := repo.FindActiveSlotView(ctx, patientOne, domain.RolePatient, slot, confirmed); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cancelled view err = %v, want %v", err, store.ErrNotFound)
	}
}

func seedDirectory(ctx context.Context, t *testing.T, db *bun.DB, doctorID, patientOne, patientTwo uuid.UUID) {
	t.Helper()

	now := time.Now().UTC()
	doctor := domain.Doctor{
		ID:        doctorID,
		Name:      "Dr. Ada Chen",
		Specialty: "Dermatology",
		Lifecycle: domain.LifecycleActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.NewInsert().Model(&doctor).Exec(ctx); err != nil {
		t.Fatalf("insert doctor: %v", err)
	}

	patients := []domain.Patient{
		{ID: patientOne, Name: "Sam Okafor", Email: "sam@example.com", Lifecycle: domain.LifecycleActive, CreatedAt: now, UpdatedAt: now},
		{ID: patientTwo, Name: "Riley Park", Email: "riley@example.com", Lifecycle: domain.LifecycleActive, CreatedAt: now, UpdatedAt: now},
	}
	if _, err := db.NewInsert().Model(&patients).Exec(ctx); err != nil {
		t.Fatalf("insert patients: %v", err)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
