package commerce

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/marirs/velocty"
)

// Notifier delivers the purchase receipt. Implementations wrap a mail
// provider client; delivery is best-effort and never blocks or rolls back
// finalization.
type Notifier interface {
	NotifyPurchase(ctx context.Context, o *Order, t *DownloadToken, l *License) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, o *Order, t *DownloadToken, l *License) error

// NotifyPurchase calls f.
func (f NotifierFunc) NotifyPurchase(ctx context.Context, o *Order, t *DownloadToken, l *License) error {
	return f(ctx, o, t, l)
}

// Finalizer drives the pending → completed order transition. The guard is
// the store's conditional update, so duplicate or concurrent provider
// callbacks for the same order finalize it exactly once.
type Finalizer struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger

	maxDownloads   int
	downloadExpiry time.Duration
	notifyTimeout  time.Duration
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithNotifier sets the receipt notifier. Without one, finalization skips
// notification entirely.
func WithNotifier(n Notifier) FinalizerOption {
	return func(f *Finalizer) { f.notifier = n }
}

// WithLogger sets the logger for the finalizer.
func WithLogger(logger *slog.Logger) FinalizerOption {
	return func(f *Finalizer) { f.logger = logger }
}

// WithDownloadPolicy sets the bounds stamped on issued download tokens.
func WithDownloadPolicy(maxDownloads int, expiry time.Duration) FinalizerOption {
	return func(f *Finalizer) {
		f.maxDownloads = maxDownloads
		f.downloadExpiry = expiry
	}
}

// WithNotifyTimeout bounds the async notification attempt, retries
// included.
func WithNotifyTimeout(d time.Duration) FinalizerOption {
	return func(f *Finalizer) { f.notifyTimeout = d }
}

// NewFinalizer creates a Finalizer over the given store.
func NewFinalizer(store Store, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{
		store:          store,
		logger:         slog.Default(),
		maxDownloads:   3,
		downloadExpiry: 72 * time.Hour,
		notifyTimeout:  2 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize completes an order after the provider has confirmed payment:
// it records the provider reference and buyer details, flips the order to
// completed, and issues exactly one download token and one license.
//
// The conditional update runs first, so a duplicate callback, concurrent
// or late, gets velocty.ErrOrderCompleted and issues nothing. An unknown
// order gets velocty.ErrOrderNotFound. Receipt notification is dispatched
// asynchronously; its failure is logged, never returned.
func (f *Finalizer) Finalize(ctx context.Context, orderID int64, providerRef, buyerEmail, buyerName string) (*DownloadToken, *License, error) {
	done, err := f.store.CompleteOrder(ctx, orderID, providerRef, buyerEmail, buyerName)
	if err != nil {
		return nil, nil, err
	}
	if !done {
		// The guard did not fire: absent or already completed.
		o, getErr := f.store.GetOrder(ctx, orderID)
		if getErr != nil {
			return nil, nil, getErr
		}
		if o == nil {
			return nil, nil, velocty.ErrOrderNotFound
		}
		return nil, nil, velocty.ErrOrderCompleted
	}

	token := &DownloadToken{
		Entity:       velocty.NewEntity(),
		OrderID:      orderID,
		Token:        uuid.NewString(),
		MaxDownloads: f.maxDownloads,
		ExpiresAt:    time.Now().UTC().Add(f.downloadExpiry),
	}
	if err := f.store.CreateDownloadToken(ctx, token); err != nil {
		return nil, nil, err
	}

	license := &License{
		Entity:  velocty.NewEntity(),
		OrderID: orderID,
		Key:     uuid.NewString(),
		Email:   buyerEmail,
	}
	if err := f.store.CreateLicense(ctx, license); err != nil {
		return nil, nil, err
	}

	if f.notifier != nil {
		go f.notify(orderID, providerRef, buyerEmail, buyerName, token, license)
	}

	return token, license, nil
}

// notify delivers the receipt with backoff, detached from the caller. The
// order is read here, not in Finalize: a degraded read right after the
// transition would otherwise put a zero amount on the receipt.
func (f *Finalizer) notify(orderID int64, providerRef, buyerEmail, buyerName string, t *DownloadToken, l *License) {
	ctx, cancel := context.WithTimeout(context.Background(), f.notifyTimeout)
	defer cancel()

	o := f.loadOrder(ctx, orderID)
	if o == nil {
		// Deliver with what the provider callback carried rather than
		// dropping the receipt.
		o = &Order{
			ID:          orderID,
			ProviderRef: providerRef,
			BuyerEmail:  buyerEmail,
			BuyerName:   buyerName,
			Status:      StatusCompleted,
		}
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if nerr := f.notifier.NotifyPurchase(ctx, o, t, l); nerr != nil {
			return retry.RetryableError(nerr)
		}
		return nil
	})
	if err != nil {
		f.logger.Warn("purchase notification failed",
			"order_id", o.ID,
			"error", err,
		)
	}
}

// loadOrder re-reads the completed order, retrying degraded reads.
func (f *Finalizer) loadOrder(ctx context.Context, id int64) *Order {
	var o *Order
	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		got, err := f.store.GetOrder(ctx, id)
		if err != nil {
			return retry.RetryableError(err)
		}
		if got == nil {
			return retry.RetryableError(errors.New("order not readable"))
		}
		o = got
		return nil
	})
	if err != nil {
		return nil
	}
	return o
}

// Redeem validates a download token and consumes one download. The cap
// check happens here, not in the raw increment: an expired token returns
// velocty.ErrTokenExpired, an exhausted one velocty.ErrTokenExhausted.
func (f *Finalizer) Redeem(ctx context.Context, token string) (*DownloadToken, error) {
	t, err := f.store.GetDownloadToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, velocty.ErrTokenNotFound
	}

	now := time.Now().UTC()
	if !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt) {
		return nil, velocty.ErrTokenExpired
	}
	if t.DownloadsUsed >= t.MaxDownloads {
		return nil, velocty.ErrTokenExhausted
	}

	if err := f.store.IncrementDownloads(ctx, token); err != nil {
		return nil, err
	}
	t.DownloadsUsed++
	return t, nil
}
