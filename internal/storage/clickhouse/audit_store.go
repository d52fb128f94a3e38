package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
)

// AuditStore mirrors audit transactions into ClickHouse for analytics.
// Postgres stays the source of truth; this sink is write-behind and
// queried only for aggregates and reporting.
type AuditStore struct {
	conn *Conn
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(conn *Conn) *AuditStore {
	return &AuditStore{conn: conn}
}

// VolumePoint is aggregated transaction volume for one network.
type VolumePoint struct {
	Network  domain.Network
	TxCount  uint64
	Volume   decimal.Decimal
	TotalFee decimal.Decimal
}

// InsertBulk appends audit events. The table is a ReplacingMergeTree
// keyed by tx_id, so replaying the same batch is harmless.
func (s *AuditStore) InsertBulk(ctx context.Context, records []*domain.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_events (
			tx_id, type, token_id, network, amount, fee, net_amount, status, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range records {
		amount := decimal.Zero
		if rec.Amount != nil {
			amount = *rec.Amount
		}
		err = batch.Append(
			rec.ID,
			string(rec.Type),
			rec.TokenID,
			string(rec.Network),
			amount.InexactFloat64(),
			rec.Fee.InexactFloat64(),
			rec.NetAmount.InexactFloat64(),
			rec.Status,
			uint64(rec.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// VolumeByNetwork aggregates transaction count, volume and fees per
// network within [start, end] (inclusive, Unix ms).
func (s *AuditStore) VolumeByNetwork(ctx context.Context, start, end int64) ([]*VolumePoint, error) {
	query := `
		SELECT network, count(*), sum(amount), sum(fee)
		FROM audit_events
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY network
		ORDER BY network ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query volume by network: %w", err)
	}
	defer rows.Close()

	return scanVolumePoints(rows)
}

// CountByType returns the number of audit events per transaction type.
func (s *AuditStore) CountByType(ctx context.Context) (map[domain.TransactionType]uint64, error) {
	query := `
		SELECT type, count(*)
		FROM audit_events
		GROUP BY type
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TransactionType]uint64)
	for rows.Next() {
		var typeStr string
		var count uint64
		if err := rows.Scan(&typeStr, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[domain.TransactionType(typeStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

func scanVolumePoints(rows driver.Rows) ([]*VolumePoint, error) {
	var points []*VolumePoint
	for rows.Next() {
		var networkStr string
		var count uint64
		var volume, fee float64

		if err := rows.Scan(&networkStr, &count, &volume, &fee); err != nil {
			return nil, fmt.Errorf("scan volume row: %w", err)
		}

		points = append(points, &VolumePoint{
			Network:  domain.Network(networkStr),
			TxCount:  count,
			Volume:   decimal.NewFromFloat(volume),
			TotalFee: decimal.NewFromFloat(fee),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate volume rows: %w", err)
	}
	return points, nil
}
