package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

// StatusCatalog resolves state names against the appointment_statuses
// table. The identifiers are data, not constants, so a test database
// can carry its own table.
type StatusCatalog struct {
	db *bun.DB
}

func NewStatusCatalog(db *bun.DB) *StatusCatalog {
	return &StatusCatalog{db: db}
}

func (c *StatusCatalog) Resolve(ctx context.Context, state domain.State) (int16, error) {
	var id int16
	err := c.db.NewSelect().
		TableExpr("appointment_statuses").
		Column("id").
		Where("name = ?", string(state)).
		Scan(ctx, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &store.ConfigurationError{State: string(state)}
		}
		return 0, err
	}
	return id, nil
}
