package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medsched/backend/internal/domain"
)

// Directory answers existence checks against the doctors and patients
// tables. Soft-deleted rows count as absent.
type Directory struct {
	db *bun.DB
}

func NewDirectory(db *bun.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Exists(ctx context.Context, id uuid.UUID, role domain.Role) (bool, error) {
	switch role {
	case domain.RoleDoctor:
		return d.db.NewSelect().
			Model((*domain.Doctor)(nil)).
			Where("d.id = ?", id).
			Where("d.lifecycle = ?", domain.LifecycleActive).
			Exists(ctx)
	case domain.RolePatient:
		return d.db.NewSelect().
			Model((*domain.Patient)(nil)).
			Where("p.id = ?", id).
			Where("p.lifecycle = ?", domain.LifecycleActive).
			Exists(ctx)
	default:
		return false, fmt.Errorf("unknown role %q", role)
	}
}
