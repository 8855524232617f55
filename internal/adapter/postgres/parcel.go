package postgres

import (
	"context"
	"fmt"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParcelRepo is a read-only view over the parcels table owned by the
// courier-operations backend. The tracking core never writes to it.
type ParcelRepo struct {
	db *pgxpool.Pool
}

func NewParcelRepo(db *pgxpool.Pool) *ParcelRepo {
	return &ParcelRepo{
		db: db,
	}
}

func (r *ParcelRepo) Get(ctx context.Context, parcelID string) (*models.Parcel, error) {
	const op = "ParcelRepo.Get"
	query := `
		SELECT id, tracking_number, customer_id, assigned_agent_id, status
		FROM parcels
		WHERE id = $1;`

	var parcel models.Parcel
	err := r.db.QueryRow(ctx, query, parcelID).Scan(
		&parcel.ID,
		&parcel.TrackingNumber,
		&parcel.CustomerID,
		&parcel.AssignedAgentID,
		&parcel.Status,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, types.ErrParcelNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseQueryFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return &parcel, nil
}
