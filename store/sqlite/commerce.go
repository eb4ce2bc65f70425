package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
)

const orderCols = `id, provider, provider_order_id, provider_ref, item_id, amount, currency, buyer_email, buyer_name, status, completed_at, created_at, updated_at`
const tokenCols = `id, order_id, token, max_downloads, downloads_used, expires_at, created_at, updated_at`

// CreateOrder persists a new order and assigns its ID.
func (s *Store) CreateOrder(ctx context.Context, o *commerce.Order) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (provider, provider_order_id, provider_ref, item_id, amount, currency, buyer_email, buyer_name, status, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Provider, o.ProviderOrderID, o.ProviderRef, o.ItemID, o.Amount,
		o.Currency, o.BuyerEmail, o.BuyerName, string(o.Status),
		toNS(o.CompletedAt), toNS(o.CreatedAt), toNS(o.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateOrder
		}
		return fmt.Errorf("velocty/sqlite: create order: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create order id: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (s *Store) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	return s.scanOrderRow("get order", row)
}

// GetOrderByProviderOrderID retrieves an order by provider identifiers.
func (s *Store) GetOrderByProviderOrderID(ctx context.Context, provider, providerOrderID string) (*commerce.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE provider = ? AND provider_order_id = ?`,
		provider, providerOrderID)
	return s.scanOrderRow("get order by provider order id", row)
}

// ListOrders returns orders ordered by creation time, newest first.
func (s *Store) ListOrders(ctx context.Context, opts commerce.ListOpts) ([]*commerce.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = applyLimit(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list orders", err)
		return []*commerce.Order{}, nil
	}
	defer rows.Close()

	out := []*commerce.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			s.readFailed("scan order row", err)
			return []*commerce.Order{}, nil
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate order rows", err)
		return []*commerce.Order{}, nil
	}
	return out, nil
}

// CountOrders returns the number of orders with the given status.
func (s *Store) CountOrders(ctx context.Context, status commerce.OrderStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM orders`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		s.readFailed("count orders", err)
		return 0, nil
	}
	return n, nil
}

// CompleteOrder performs the pending → completed transition as one
// conditional UPDATE; the affected-row count is the guard. Two
// concurrent callers can never both see one row affected.
func (s *Store) CompleteOrder(ctx context.Context, id int64, providerRef, buyerEmail, buyerName string) (bool, error) {
	t := toNS(now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			status = ?, provider_ref = ?, buyer_email = ?, buyer_name = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(commerce.StatusCompleted), providerRef, buyerEmail, buyerName,
		t, t, id, string(commerce.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("velocty/sqlite: complete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("velocty/sqlite: complete order count: %w", err)
	}
	return n > 0, nil
}

// CreateDownloadToken persists a new download token and assigns its ID.
func (s *Store) CreateDownloadToken(ctx context.Context, t *commerce.DownloadToken) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO download_tokens (order_id, token, max_downloads, downloads_used, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.OrderID, t.Token, t.MaxDownloads, t.DownloadsUsed,
		toNS(t.ExpiresAt), toNS(t.CreatedAt), toNS(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create download token: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create download token id: %w", err)
	}
	return nil
}

// GetDownloadToken retrieves a token by its exact token string.
func (s *Store) GetDownloadToken(ctx context.Context, token string) (*commerce.DownloadToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tokenCols+` FROM download_tokens WHERE token = ?`, token)
	return s.scanTokenRow("get download token", row)
}

// GetTokenForOrder retrieves the download token issued for an order.
func (s *Store) GetTokenForOrder(ctx context.Context, orderID int64) (*commerce.DownloadToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tokenCols+` FROM download_tokens WHERE order_id = ? ORDER BY id ASC LIMIT 1`, orderID)
	return s.scanTokenRow("get token for order", row)
}

// IncrementDownloads adds one to the token's downloads_used counter in
// SQL.
func (s *Store) IncrementDownloads(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE download_tokens SET downloads_used = downloads_used + 1, updated_at = ? WHERE token = ?`,
		toNS(now()), token)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: increment downloads: %w", err)
	}
	return nil
}

// CreateLicense persists a new license and assigns its ID.
func (s *Store) CreateLicense(ctx context.Context, l *commerce.License) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO licenses (order_id, key, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.OrderID, l.Key, l.Email, toNS(l.CreatedAt), toNS(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create license: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create license id: %w", err)
	}
	return nil
}

// GetLicenseByOrder retrieves the license issued for an order.
func (s *Store) GetLicenseByOrder(ctx context.Context, orderID int64) (*commerce.License, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, order_id, key, email, created_at, updated_at FROM licenses WHERE order_id = ? ORDER BY id ASC LIMIT 1`,
		orderID)
	return s.scanLicenseRow("get license by order", row)
}

// GetLicenseByKey retrieves a license by its exact key.
func (s *Store) GetLicenseByKey(ctx context.Context, key string) (*commerce.License, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, order_id, key, email, created_at, updated_at FROM licenses WHERE key = ?`, key)
	return s.scanLicenseRow("get license by key", row)
}

// ── scan helpers ─────────────────────────────────────────────────

func scanOrder(row scanner) (*commerce.Order, error) {
	var (
		o           commerce.Order
		status      string
		completedNS int64
		createdNS   int64
		updatedNS   int64
	)
	err := row.Scan(&o.ID, &o.Provider, &o.ProviderOrderID, &o.ProviderRef,
		&o.ItemID, &o.Amount, &o.Currency, &o.BuyerEmail, &o.BuyerName,
		&status, &completedNS, &createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	o.Status = commerce.OrderStatus(status)
	o.CompletedAt = fromNS(completedNS)
	o.CreatedAt = fromNS(createdNS)
	o.UpdatedAt = fromNS(updatedNS)
	return &o, nil
}

func (s *Store) scanOrderRow(op string, row *sql.Row) (*commerce.Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return o, nil
}

func scanToken(row scanner) (*commerce.DownloadToken, error) {
	var (
		t         commerce.DownloadToken
		expiresNS int64
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&t.ID, &t.OrderID, &t.Token, &t.MaxDownloads,
		&t.DownloadsUsed, &expiresNS, &createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	t.ExpiresAt = fromNS(expiresNS)
	t.CreatedAt = fromNS(createdNS)
	t.UpdatedAt = fromNS(updatedNS)
	return &t, nil
}

func (s *Store) scanTokenRow(op string, row *sql.Row) (*commerce.DownloadToken, error) {
	t, err := scanToken(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return t, nil
}

func (s *Store) scanLicenseRow(op string, row *sql.Row) (*commerce.License, error) {
	var (
		l         commerce.License
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&l.ID, &l.OrderID, &l.Key, &l.Email, &createdNS, &updatedNS)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	l.CreatedAt = fromNS(createdNS)
	l.UpdatedAt = fromNS(updatedNS)
	return &l, nil
}
