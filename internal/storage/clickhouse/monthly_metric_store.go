package clickhouse

import (
	"context"
	"fmt"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/storage"
)

const (
	insertPointsQuery = `
		INSERT INTO monthly_metrics (
			snapshot_id, series, period, date, measure, value,
			mom_growth, yoy_growth, cmgr, cagr
		)`

	storedKeysQuery = `
		SELECT period, measure
		FROM monthly_metrics FINAL
		WHERE snapshot_id = ? AND series = ?`

	seriesQuery = `
		SELECT
			snapshot_id, series, period, date, measure, value,
			mom_growth, yoy_growth, cmgr, cagr
		FROM monthly_metrics FINAL
		WHERE snapshot_id = ? AND series = ?
		ORDER BY period ASC, measure ASC`
)

// MonthlyMetricStore keeps aggregated monthly points in ClickHouse.
type MonthlyMetricStore struct {
	conn *Conn
}

// NewMonthlyMetricStore creates a new MonthlyMetricStore.
func NewMonthlyMetricStore(conn *Conn) *MonthlyMetricStore {
	return &MonthlyMetricStore{conn: conn}
}

var _ storage.MonthlyMetricStore = (*MonthlyMetricStore)(nil)

// cell identifies one point within a series.
type cell struct{ period, measure string }

// InsertBulk sends the points as one batch. Nothing is written when any
// point repeats within the batch or is already stored.
func (s *MonthlyMetricStore) InsertBulk(ctx context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	bySeries, err := groupCells(points)
	if err != nil {
		return err
	}
	// ReplacingMergeTree collapses repeats on merge instead of rejecting them.
	for series, cells := range bySeries {
		if err := s.checkUnstored(ctx, series[0], series[1], cells); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, insertPointsQuery)
	if err != nil {
		return fmt.Errorf("prepare metric batch: %w", err)
	}
	for _, p := range points {
		if err := batch.Append(
			p.SnapshotID, p.Series, p.Period, p.Date, p.Measure, p.Value,
			p.MoM, p.YoY, p.CMGR, p.CAGR,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append %s %s/%s: %w", p.Series, p.Period, p.Measure, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send metric batch: %w", err)
	}
	return nil
}

// groupCells validates the batch and indexes its cells by (snapshot, series).
func groupCells(points []*domain.MetricPoint) (map[[2]string]map[cell]struct{}, error) {
	out := make(map[[2]string]map[cell]struct{})
	for _, p := range points {
		if p == nil || p.SnapshotID == "" || p.Series == "" {
			return nil, storage.ErrInvalidInput
		}
		key := [2]string{p.SnapshotID, p.Series}
		cells, ok := out[key]
		if !ok {
			cells = make(map[cell]struct{})
			out[key] = cells
		}
		c := cell{p.Period, p.Measure}
		if _, dup := cells[c]; dup {
			return nil, storage.ErrDuplicateKey
		}
		cells[c] = struct{}{}
	}
	return out, nil
}

func (s *MonthlyMetricStore) checkUnstored(ctx context.Context, snapshotID, series string, cells map[cell]struct{}) error {
	rows, err := s.conn.Query(ctx, storedKeysQuery, snapshotID, series)
	if err != nil {
		return fmt.Errorf("query stored %s points: %w", series, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c cell
		if err := rows.Scan(&c.period, &c.measure); err != nil {
			return fmt.Errorf("scan stored key: %w", err)
		}
		if _, dup := cells[c]; dup {
			return storage.ErrDuplicateKey
		}
	}
	return rows.Err()
}

// GetBySeries returns the points of one series ordered by period, then measure.
func (s *MonthlyMetricStore) GetBySeries(ctx context.Context, snapshotID, series string) ([]*domain.MetricPoint, error) {
	rows, err := s.conn.Query(ctx, seriesQuery, snapshotID, series)
	if err != nil {
		return nil, fmt.Errorf("query %s series: %w", series, err)
	}
	defer rows.Close()

	points := []*domain.MetricPoint{}
	for rows.Next() {
		p := new(domain.MetricPoint)
		if err := rows.Scan(
			&p.SnapshotID, &p.Series, &p.Period, &p.Date, &p.Measure, &p.Value,
			&p.MoM, &p.YoY, &p.CMGR, &p.CAGR,
		); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		p.Date = p.Date.UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric rows: %w", err)
	}
	return points, nil
}
