// internal/storage/postgres/sale_store.go
package postgres

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/rovshanmuradov/launchcurve/internal/sale"
	"github.com/rovshanmuradov/launchcurve/internal/storage"
)

// SaleStore implements storage.SaleStore using PostgreSQL. The sale itself
// is stored as its encoded account bytes; kind and status are denormalized
// for querying.
type SaleStore struct {
	pool *Pool
}

// NewSaleStore creates a new SaleStore.
func NewSaleStore(pool *Pool) *SaleStore {
	return &SaleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SaleStore = (*SaleStore)(nil)

func (s *SaleStore) Insert(ctx context.Context, sl sale.Sale) error {
	data, err := storage.EncodeSale(sl)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sales (mint, curve_kind, status, account, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.pool.Exec(ctx, query,
		sl.Mint.String(),
		sl.Curve.Kind.String(),
		sl.Status.String(),
		data,
		sl.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (s *SaleStore) Get(ctx context.Context, mint solana.PublicKey) (sale.Sale, error) {
	query := `SELECT account FROM sales WHERE mint = $1`

	var data []byte
	if err := s.pool.QueryRow(ctx, query, mint.String()).Scan(&data); err != nil {
		if isNotFoundError(err) {
			return sale.Sale{}, storage.ErrNotFound
		}
		return sale.Sale{}, fmt.Errorf("get sale: %w", err)
	}
	return storage.DecodeSale(data)
}

func (s *SaleStore) Update(ctx context.Context, sl sale.Sale) error {
	data, err := storage.EncodeSale(sl)
	if err != nil {
		return err
	}

	query := `
		UPDATE sales
		SET status = $2, account = $3, updated_at = now()
		WHERE mint = $1
	`
	tag, err := s.pool.Exec(ctx, query, sl.Mint.String(), sl.Status.String(), data)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *SaleStore) List(ctx context.Context) ([]sale.Sale, error) {
	query := `SELECT account FROM sales ORDER BY created_at ASC, mint ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	return scanSales(rows)
}

// ListByStatus returns sales in the given lifecycle stage.
func (s *SaleStore) ListByStatus(ctx context.Context, status sale.Status) ([]sale.Sale, error) {
	query := `SELECT account FROM sales WHERE status = $1 ORDER BY created_at ASC, mint ASC`

	rows, err := s.pool.Query(ctx, query, status.String())
	if err != nil {
		return nil, fmt.Errorf("list sales by status: %w", err)
	}
	defer rows.Close()

	return scanSales(rows)
}

func scanSales(rows pgx.Rows) ([]sale.Sale, error) {
	var sales []sale.Sale
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sl, err := storage.DecodeSale(data)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}
