package postgres

import (
	"context"
	"fmt"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
)

const orderCols = `id, provider, provider_order_id, provider_ref, item_id, amount, currency, buyer_email, buyer_name, status, completed_at, created_at, updated_at`
const tokenCols = `id, order_id, token, max_downloads, downloads_used, expires_at, created_at, updated_at`

// CreateOrder persists a new order and assigns its ID.
func (s *Store) CreateOrder(ctx context.Context, o *commerce.Order) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO orders (provider, provider_order_id, provider_ref, item_id, amount, currency, buyer_email, buyer_name, status, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		o.Provider, o.ProviderOrderID, o.ProviderRef, o.ItemID, o.Amount,
		o.Currency, o.BuyerEmail, o.BuyerName, string(o.Status),
		toNS(o.CompletedAt), toNS(o.CreatedAt), toNS(o.UpdatedAt),
	).Scan(&o.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateOrder
		}
		return fmt.Errorf("velocty/postgres: create order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (s *Store) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	return s.scanOrderRow("get order", row)
}

// GetOrderByProviderOrderID retrieves an order by provider identifiers.
func (s *Store) GetOrderByProviderOrderID(ctx context.Context, provider, providerOrderID string) (*commerce.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE provider = $1 AND provider_order_id = $2`,
		provider, providerOrderID)
	return s.scanOrderRow("get order by provider order id", row)
}

// ListOrders returns orders ordered by creation time, newest first.
func (s *Store) ListOrders(ctx context.Context, opts commerce.ListOpts) ([]*commerce.Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders`
	var args []any
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = window(query, args, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
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
		args = append(args, string(status))
		query += ` WHERE status = $1`
	}

	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
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
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET
			status = $1, provider_ref = $2, buyer_email = $3, buyer_name = $4,
			completed_at = $5, updated_at = $6
		WHERE id = $7 AND status = $8`,
		string(commerce.StatusCompleted), providerRef, buyerEmail, buyerName,
		t, t, id, string(commerce.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("velocty/postgres: complete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateDownloadToken persists a new download token and assigns its ID.
func (s *Store) CreateDownloadToken(ctx context.Context, t *commerce.DownloadToken) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO download_tokens (order_id, token, max_downloads, downloads_used, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		t.OrderID, t.Token, t.MaxDownloads, t.DownloadsUsed,
		toNS(t.ExpiresAt), toNS(t.CreatedAt), toNS(t.UpdatedAt),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("velocty/postgres: create download token: %w", err)
	}
	return nil
}

// GetDownloadToken retrieves a token by its exact token string.
func (s *Store) GetDownloadToken(ctx context.Context, token string) (*commerce.DownloadToken, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM download_tokens WHERE token = $1`, token)
	return s.scanTokenRow("get download token", row)
}

// GetTokenForOrder retrieves the download token issued for an order.
func (s *Store) GetTokenForOrder(ctx context.Context, orderID int64) (*commerce.DownloadToken, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM download_tokens WHERE order_id = $1 ORDER BY id ASC LIMIT 1`, orderID)
	return s.scanTokenRow("get token for order", row)
}

// IncrementDownloads adds one to the token's downloads_used counter in
// SQL.
func (s *Store) IncrementDownloads(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE download_tokens SET downloads_used = downloads_used + 1, updated_at = $1 WHERE token = $2`,
		toNS(now()), token)
	if err != nil {
		return fmt.Errorf("velocty/postgres: increment downloads: %w", err)
	}
	return nil
}

// CreateLicense persists a new license and assigns its ID.
func (s *Store) CreateLicense(ctx context.Context, l *commerce.License) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO licenses (order_id, key, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		l.OrderID, l.Key, l.Email, toNS(l.CreatedAt), toNS(l.UpdatedAt),
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("velocty/postgres: create license: %w", err)
	}
	return nil
}

// GetLicenseByOrder retrieves the license issued for an order.
func (s *Store) GetLicenseByOrder(ctx context.Context, orderID int64) (*commerce.License, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, order_id, key, email, created_at, updated_at FROM licenses WHERE order_id = $1 ORDER BY id ASC LIMIT 1`,
		orderID)
	return s.scanLicenseRow("get license by order", row)
}

// GetLicenseByKey retrieves a license by its exact key.
func (s *Store) GetLicenseByKey(ctx context.Context, key string) (*commerce.License, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, order_id, key, email, created_at, updated_at FROM licenses WHERE key = $1`, key)
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

func (s *Store) scanOrderRow(op string, row scanner) (*commerce.Order, error) {
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

func (s *Store) scanTokenRow(op string, row scanner) (*commerce.DownloadToken, error) {
	var (
		t         commerce.DownloadToken
		expiresNS int64
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&t.ID, &t.OrderID, &t.Token, &t.MaxDownloads,
		&t.DownloadsUsed, &expiresNS, &createdNS, &updatedNS)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	t.ExpiresAt = fromNS(expiresNS)
	t.CreatedAt = fromNS(createdNS)
	t.UpdatedAt = fromNS(updatedNS)
	return &t, nil
}

func (s *Store) scanLicenseRow(op string, row scanner) (*commerce.License, error) {
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
