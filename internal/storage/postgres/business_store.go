package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

// BusinessStore implements storage.BusinessStore using PostgreSQL.
type BusinessStore struct {
	pool *Pool
}

// NewBusinessStore creates a new BusinessStore.
func NewBusinessStore(pool *Pool) *BusinessStore {
	return &BusinessStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BusinessStore = (*BusinessStore)(nil)

// InsertBulk adds the businesses of one snapshot atomically. Fails entire batch on any duplicate.
func (s *BusinessStore) InsertBulk(ctx context.Context, snapshotID string, businesses []*domain.Business) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	if len(businesses) == 0 {
		return nil
	}

	query := `
		INSERT INTO businesses (
			snapshot_id, business_id, name, industry, region,
			total_net_value, annualized_value, first_close_date,
			start_date, end_date, is_active, close_year
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12
		)
	`

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		for _, b := range businesses {
			if b == nil || b.BusinessID == "" {
				return storage.ErrInvalidInput
			}
			_, err := tx.Exec(ctx, query,
				snapshotID, b.BusinessID, b.Name, b.Industry, string(b.Region),
				b.TotalNetValue, b.AnnualizedValue, nullDate(b.FirstCloseDate),
				nullDate(b.StartDate), nullDate(b.EndDate), b.IsActive, b.CloseYear,
			)
			if err != nil {
				return insertError("insert business in bulk", err)
			}
		}
		return nil
	})
}

// GetBySnapshot retrieves all businesses of a snapshot, ordered by business_id ASC.
func (s *BusinessStore) GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Business, error) {
	query := `
		SELECT
			business_id, name, industry, region,
			total_net_value, annualized_value, first_close_date,
			start_date, end_date, is_active, close_year
		FROM businesses
		WHERE snapshot_id = $1
		ORDER BY business_id ASC, name ASC, industry ASC, region ASC
	`

	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get businesses by snapshot: %w", err)
	}
	defer rows.Close()

	businesses := make([]*domain.Business, 0)
	for rows.Next() {
		var (
			b                      domain.Business
			region                 string
			firstClose, start, end *time.Time
		)
		err := rows.Scan(
			&b.BusinessID, &b.Name, &b.Industry, &region,
			&b.TotalNetValue, &b.AnnualizedValue, &firstClose,
			&start, &end, &b.IsActive, &b.CloseYear,
		)
		if err != nil {
			return nil, fmt.Errorf("scan business row: %w", err)
		}
		b.Region = domain.Region(region)
		b.FirstCloseDate = dateOrZero(firstClose)
		b.StartDate = dateOrZero(start)
		b.EndDate = dateOrZero(end)
		businesses = append(businesses, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate business rows: %w", err)
	}
	return businesses, nil
}
