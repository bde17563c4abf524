package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

// DealStore implements storage.DealStore using PostgreSQL.
type DealStore struct {
	pool *Pool
}

// NewDealStore creates a new DealStore.
func NewDealStore(pool *Pool) *DealStore {
	return &DealStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DealStore = (*DealStore)(nil)

var dealColumns = []string{
	"snapshot_id", "seq",
	"business_id", "name", "industry", "currency", "net_value", "tier",
	"start_date", "end_date", "close_date", "account_type",
	"first_close_date", "deal_type", "region",
}

// InsertBulk adds the deals of one snapshot atomically, preserving input order.
// Rows are streamed with COPY; seq continues after any rows already stored.
func (s *DealStore) InsertBulk(ctx context.Context, snapshotID string, deals []*domain.Deal) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	for _, d := range deals {
		if d == nil || d.BusinessID == "" {
			return storage.ErrInvalidInput
		}
	}
	if len(deals) == 0 {
		return nil
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		var next int
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq) + 1, 0) FROM deals WHERE snapshot_id = $1`, snapshotID,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("next deal seq: %w", err)
		}

		rows := make([][]any, len(deals))
		for i, d := range deals {
			rows[i] = []any{
				snapshotID, next + i,
				d.BusinessID, d.Name, d.Industry, d.Currency, d.NetValue, d.Tier,
				nullDate(d.StartDate), nullDate(d.EndDate), nullDate(d.CloseDate), d.AccountType,
				nullDate(d.FirstCloseDate), string(d.DealType), string(d.Region),
			}
		}

		_, err = tx.CopyFrom(ctx, pgx.Identifier{"deals"}, dealColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return insertError("copy deals", err)
		}
		return nil
	})
}

// GetBySnapshot retrieves all deals of a snapshot in insertion order.
func (s *DealStore) GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Deal, error) {
	query := `
		SELECT
			business_id, name, industry, currency, net_value, tier,
			start_date, end_date, close_date, account_type,
			first_close_date, deal_type, region
		FROM deals
		WHERE snapshot_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get deals by snapshot: %w", err)
	}
	defer rows.Close()

	deals := make([]*domain.Deal, 0)
	for rows.Next() {
		var (
			d                                 domain.Deal
			dealType, region                  string
			start, end, closeDate, firstClose *time.Time
		)
		err := rows.Scan(
			&d.BusinessID, &d.Name, &d.Industry, &d.Currency, &d.NetValue, &d.Tier,
			&start, &end, &closeDate, &d.AccountType,
			&firstClose, &dealType, &region,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		d.StartDate = dateOrZero(start)
		d.EndDate = dateOrZero(end)
		d.CloseDate = dateOrZero(closeDate)
		d.FirstCloseDate = dateOrZero(firstClose)
		d.DealType = domain.DealType(dealType)
		d.Region = domain.Region(region)
		deals = append(deals, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal rows: %w", err)
	}
	return deals, nil
}
