package commerce_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/store/memory"
)

func newPendingOrder(t *testing.T, s *memory.Store) *commerce.Order {
	t.Helper()
	o := &commerce.Order{
		Entity:          velocty.NewEntity(),
		Provider:        "paypal",
		ProviderOrderID: "ORD-1",
		Amount:          1999,
		Currency:        "USD",
		Status:          commerce.StatusPending,
	}
	if err := s.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestFinalizeIssuesTokenAndLicense(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	o := newPendingOrder(t, s)

	f := commerce.NewFinalizer(s, commerce.WithDownloadPolicy(5, time.Hour))

	token, license, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if token == nil || token.Token == "" || token.MaxDownloads != 5 {
		t.Fatalf("token: %+v", token)
	}
	if license == nil || license.Key == "" || license.Email != "b@example.com" {
		t.Fatalf("license: %+v", license)
	}

	got, _ := s.GetOrder(ctx, o.ID)
	if got.Status != commerce.StatusCompleted || got.ProviderRef != "CAP-1" {
		t.Fatalf("order after finalize: %+v", got)
	}
	if stored, _ := s.GetTokenForOrder(ctx, o.ID); stored == nil || stored.Token != token.Token {
		t.Fatalf("stored token: %+v", stored)
	}
	if stored, _ := s.GetLicenseByOrder(ctx, o.ID); stored == nil || stored.Key != license.Key {
		t.Fatalf("stored license: %+v", stored)
	}
}

func TestFinalizeDuplicateCallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	o := newPendingOrder(t, s)

	f := commerce.NewFinalizer(s)

	if _, _, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B"); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, _, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B"); err != velocty.ErrOrderCompleted {
		t.Fatalf("second finalize: %v", err)
	}
	if _, _, err := f.Finalize(ctx, 9999, "CAP-X", "x@example.com", "X"); err != velocty.ErrOrderNotFound {
		t.Fatalf("unknown order: %v", err)
	}
}

func TestFinalizeConcurrentCallbacks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	o := newPendingOrder(t, s)

	f := commerce.NewFinalizer(s)

	var (
		wg   sync.WaitGroup
		wins atomic.Int64
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B")
			switch err {
			case nil:
				wins.Add(1)
			case velocty.ErrOrderCompleted:
			default:
				t.Errorf("finalize: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("%d winners, want 1", wins.Load())
	}
	// Exactly one token and one license issued.
	if tok, _ := s.GetTokenForOrder(ctx, o.ID); tok == nil {
		t.Fatal("no token issued")
	}
	if lic, _ := s.GetLicenseByOrder(ctx, o.ID); lic == nil {
		t.Fatal("no license issued")
	}
}

func TestFinalizeNotifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	o := newPendingOrder(t, s)

	notified := make(chan string, 1)
	f := commerce.NewFinalizer(s, commerce.WithNotifier(
		commerce.NotifierFunc(func(_ context.Context, o *commerce.Order, tok *commerce.DownloadToken, _ *commerce.License) error {
			notified <- tok.Token
			return nil
		}),
	))

	token, _, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	select {
	case got := <-notified:
		if got != token.Token {
			t.Fatalf("notified with token %q, want %q", got, token.Token)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}
}

// flakyOrderStore degrades the first few order reads to nil, the way a
// backend outage does.
type flakyOrderStore struct {
	*memory.Store
	failures atomic.Int32
}

func (s *flakyOrderStore) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	if s.failures.Add(-1) >= 0 {
		return nil, nil
	}
	return s.Store.GetOrder(ctx, id)
}

func TestNotifyRetriesDegradedOrderRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := &flakyOrderStore{Store: memory.New()}
	s.failures.Store(2)
	o := newPendingOrder(t, s.Store)

	notified := make(chan *commerce.Order, 1)
	f := commerce.NewFinalizer(s, commerce.WithNotifier(
		commerce.NotifierFunc(func(_ context.Context, o *commerce.Order, _ *commerce.DownloadToken, _ *commerce.License) error {
			notified <- o
			return nil
		}),
	))

	if _, _, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	select {
	case got := <-notified:
		// The receipt carries the real order, not a zero-amount stub.
		if got.Amount != o.Amount || got.Currency != o.Currency || got.Provider != o.Provider {
			t.Fatalf("receipt order: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestRedeemEnforcesBounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	o := newPendingOrder(t, s)

	f := commerce.NewFinalizer(s, commerce.WithDownloadPolicy(2, time.Hour))
	token, _, err := f.Finalize(ctx, o.ID, "CAP-1", "b@example.com", "B")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	for i := 1; i <= 2; i++ {
		got, err := f.Redeem(ctx, token.Token)
		if err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
		if got.DownloadsUsed != i {
			t.Fatalf("downloads used = %d, want %d", got.DownloadsUsed, i)
		}
	}
	if _, err := f.Redeem(ctx, token.Token); err != velocty.ErrTokenExhausted {
		t.Fatalf("over-cap redeem: %v", err)
	}
	if _, err := f.Redeem(ctx, "no-such-token"); err != velocty.ErrTokenNotFound {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	expired := &commerce.DownloadToken{
		Entity:       velocty.NewEntity(),
		OrderID:      1,
		Token:        "expired-token",
		MaxDownloads: 3,
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	if err := s.CreateDownloadToken(ctx, expired); err != nil {
		t.Fatalf("create token: %v", err)
	}

	f := commerce.NewFinalizer(s)
	if _, err := f.Redeem(ctx, "expired-token"); err != velocty.ErrTokenExpired {
		t.Fatalf("expired redeem: %v", err)
	}
}
