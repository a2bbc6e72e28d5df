package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medsched/backend/internal/config"
	"medsched/backend/internal/domain"
	"medsched/backend/internal/store/postgres"
)

const (
	doctorCount  = 50
	patientCount = 2000
	batchSize    = 500
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("service", "seed"))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 4})
	if err != nil {
		log.Error("database connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		_ = postgres.Close(db)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := seedDoctors(ctx, db, doctorCount); err != nil {
		log.Error("seed doctors failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("doctors seeded", slog.Int("count", doctorCount))

	if err := seedPatients(ctx, db, patientCount); err != nil {
		log.Error("seed patients failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("patients seeded", slog.Int("count", patientCount))
}

func seedDoctors(ctx context.Context, db *bun.DB, count int) error {
	now := time.Now().UTC()
	doctors := make([]domain.Doctor, 0, count)
	for i := 0; i < count; i++ {
		doctors = append(doctors, domain.Doctor{
			ID:        uuid.New(),
			Name:      "Dr. " + gofakeit.Name(),
			Specialty: specialties[gofakeit.Number(0, len(specialties)-1)],
			Lifecycle: domain.LifecycleActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return insertBatched(ctx, db, doctors)
}

func seedPatients(ctx context.Context, db *bun.DB, count int) error {
	now := time.Now().UTC()
	patients := make([]domain.Patient, 0, count)
	for i := 0; i < count; i++ {
		patients = append(patients, domain.Patient{
			ID:        uuid.New(),
			Name:      gofakeit.Name(),
			Email:     gofakeit.Email(),
			Lifecycle: domain.LifecycleActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return insertBatched(ctx, db, patients)
}

func insertBatched[T any](ctx context.Context, db *bun.DB, rows []T) error {
	for offset := 0; offset < len(rows); offset += batchSize {
		end := offset + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[offset:end]
		if err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewInsert().Model(&batch).Exec(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}
