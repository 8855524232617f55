package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	"github.com/courierops/parcel-track-system/internal/domain/types"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceName = "tracking"

// PositionRepo is the durable append-only trail. Rows are only ever
// inserted; ordering is by recorded_at, never arrival order, so delayed
// writes cannot corrupt a parcel's history.
type PositionRepo struct {
	db *pgxpool.Pool
}

func NewPositionRepo(db *pgxpool.Pool) *PositionRepo {
	return &PositionRepo{
		db: db,
	}
}

func (r *PositionRepo) Append(ctx context.Context, sample *models.PositionSample) error {
	const op = "PositionRepo.Append"
	query := `
		INSERT INTO tracking_points(id, parcel_id, latitude, longitude, speed_kph, heading, recorded_at, received_at, reported_by)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	start := time.Now()
	_, err := r.db.Exec(ctx, query,
		sample.ID,
		sample.ParcelID,
		sample.Latitude,
		sample.Longitude,
		sample.SpeedKph,
		sample.Heading,
		sample.RecordedAt,
		sample.ReceivedAt,
		sample.ReportedBy,
	)
	metrics.RecordDatabaseQuery(serviceName, "append_tracking_point", err, time.Since(start))
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseQueryFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// Recent returns up to limit samples for the parcel ordered by recorded_at
// ascending. The newest samples win when the trail is longer than limit.
func (r *PositionRepo) Recent(ctx context.Context, parcelID string, limit int) ([]models.PositionSample, error) {
	const op = "PositionRepo.Recent"
	query := `
		SELECT id, parcel_id, latitude, longitude, speed_kph, heading, recorded_at, received_at, reported_by
		FROM (
			SELECT id, parcel_id, latitude, longitude, speed_kph, heading, recorded_at, received_at, reported_by
			FROM tracking_points
			WHERE parcel_id = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		) newest
		ORDER BY recorded_at ASC;`

	rows, err := r.db.Query(ctx, query, parcelID, limit)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseQueryFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	points := make([]models.PositionSample, 0, limit)
	for rows.Next() {
		var p models.PositionSample
		if err := rows.Scan(
			&p.ID,
			&p.ParcelID,
			&p.Latitude,
			&p.Longitude,
			&p.SpeedKph,
			&p.Heading,
			&p.RecordedAt,
			&p.ReceivedAt,
			&p.ReportedBy,
		); err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return points, nil
}

// Latest returns the newest sample for the parcel, or ErrNoTrackingPoints.
func (r *PositionRepo) Latest(ctx context.Context, parcelID string) (*models.PositionSample, error) {
	const op = "PositionRepo.Latest"
	query := `
		SELECT id, parcel_id, latitude, longitude, speed_kph, heading, recorded_at, received_at, reported_by
		FROM tracking_points
		WHERE parcel_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1;`

	var p models.PositionSample
	err := r.db.QueryRow(ctx, query, parcelID).Scan(
		&p.ID,
		&p.ParcelID,
		&p.Latitude,
		&p.Longitude,
		&p.SpeedKph,
		&p.Heading,
		&p.RecordedAt,
		&p.ReceivedAt,
		&p.ReportedBy,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, types.ErrNoTrackingPoints
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseQueryFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return &p, nil
}
