package firewall_test

import (
	"testing"
	"time"

	"github.com/marirs/velocty/firewall"
)

func TestLimiterBurstThenRefused(t *testing.T) {
	t.Parallel()
	l := firewall.NewLimiter(firewall.WithRate(1, 3))

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d refused within burst", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request allowed past burst")
	}
}

func TestLimiterIsolatesIPs(t *testing.T) {
	t.Parallel()
	l := firewall.NewLimiter(firewall.WithRate(1, 1))

	if !l.Allow("10.0.0.1") {
		t.Fatal("first ip refused")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("first ip allowed past burst")
	}
	// A different IP holds its own bucket.
	if !l.Allow("10.0.0.2") {
		t.Fatal("second ip refused")
	}
}

func TestLimiterEvictsIdleBuckets(t *testing.T) {
	t.Parallel()
	l := firewall.NewLimiter(
		firewall.WithRate(100, 100),
		firewall.WithIdleEviction(10*time.Millisecond),
	)

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	if l.Len() != 2 {
		t.Fatalf("tracking %d ips, want 2", l.Len())
	}

	time.Sleep(25 * time.Millisecond)
	// The sweep runs on the next admission check.
	l.Allow("10.0.0.3")
	if l.Len() != 1 {
		t.Fatalf("tracking %d ips after sweep, want 1", l.Len())
	}
}
