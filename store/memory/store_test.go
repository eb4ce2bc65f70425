package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/store/memory"
	"github.com/marirs/velocty/user"
)

func TestIdentityConcurrentUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	const n = 64
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &content.Post{
				Entity: velocty.NewEntity(),
				Slug:   fmt.Sprintf("concurrent-%d", i),
				Status: content.StatusDraft,
			}
			if err := s.CreatePost(ctx, p); err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- p.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate ID %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d IDs, want %d", len(seen), n)
	}
}

func TestTenantIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, b := memory.New(), memory.New()

	u := &user.User{Entity: velocty.NewEntity(), Email: "a@b.c"}
	if err := a.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got, _ := b.GetUserByEmail(ctx, "a@b.c"); got != nil {
		t.Fatalf("user leaked across stores: %+v", got)
	}
	// Each store runs its own identity sequence.
	other := &user.User{Entity: velocty.NewEntity(), Email: "a@b.c"}
	if err := b.CreateUser(ctx, other); err != nil {
		t.Fatalf("create in second store: %v", err)
	}
	if other.ID != 1 {
		t.Fatalf("second store first ID = %d, want 1", other.ID)
	}
}

func TestDuplicateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	u := &user.User{Entity: velocty.NewEntity(), Email: "a@b.c"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &user.User{Entity: velocty.NewEntity(), Email: "a@b.c"}
	if err := s.CreateUser(ctx, dup); err != velocty.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if missing, _ := s.GetUser(ctx, 9999); missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}
}

func TestJunctionFullReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	p := &content.Post{Entity: velocty.NewEntity(), Slug: "tagged"}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	var tags []int64
	for _, name := range []string{"go", "storage"} {
		tg := &content.Tag{Entity: velocty.NewEntity(), Name: name, Slug: name}
		if err := s.CreateTag(ctx, tg); err != nil {
			t.Fatalf("create tag: %v", err)
		}
		tags = append(tags, tg.ID)
	}

	// Replace semantics: same set twice leaves exactly |S| rows.
	for i := 0; i < 2; i++ {
		if err := s.SetTagsForContent(ctx, p.ID, content.TypePost, tags); err != nil {
			t.Fatalf("set tags (round %d): %v", i, err)
		}
	}
	got, _ := s.TagsForContent(ctx, p.ID, content.TypePost)
	if len(got) != 2 {
		t.Fatalf("got %d tags, want 2", len(got))
	}

	back, _ := s.ContentIDsForTag(ctx, tags[0], content.TypePost)
	if len(back) != 1 || back[0] != p.ID {
		t.Fatalf("reverse lookup: %v", back)
	}

	if err := s.SetTagsForContent(ctx, p.ID, content.TypePost, []int64{tags[1]}); err != nil {
		t.Fatalf("replace tags: %v", err)
	}
	got, _ = s.TagsForContent(ctx, p.ID, content.TypePost)
	if len(got) != 1 || got[0].Slug != "storage" {
		t.Fatalf("replaced tags: %+v", got)
	}
}

func TestPublishDuePosts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	due := &content.Post{
		Entity:    velocty.NewEntity(),
		Slug:      "due",
		Status:    content.StatusScheduled,
		PublishAt: time.Now().UTC().Add(-time.Minute),
	}
	unset := &content.Post{
		Entity: velocty.NewEntity(),
		Slug:   "unset",
		Status: content.StatusScheduled,
	}
	for _, p := range []*content.Post{due, unset} {
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Slug, err)
		}
	}

	n, err := s.PublishDuePosts(ctx)
	if err != nil {
		t.Fatalf("publish due: %v", err)
	}
	if n != 1 {
		t.Fatalf("published %d, want 1", n)
	}
	// Second sweep finds nothing.
	if n, _ := s.PublishDuePosts(ctx); n != 0 {
		t.Fatalf("second sweep published %d", n)
	}
}

func TestCompleteOrderOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	o := &commerce.Order{
		Entity:          velocty.NewEntity(),
		Provider:        "paypal",
		ProviderOrderID: "ORD-1",
		Status:          commerce.StatusPending,
	}
	if err := s.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := s.CompleteOrder(ctx, o.ID, "CAP-1", "b@example.com", "B")
			if err != nil {
				t.Errorf("complete: %v", err)
				return
			}
			if done {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("%d winners, want 1", wins)
	}

	if done, _ := s.CompleteOrder(ctx, 9999, "CAP-X", "", ""); done {
		t.Fatal("absent order reported completed")
	}
}

func TestEventRetention(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		e := &firewall.Event{
			IP:        "10.0.0.1",
			Type:      firewall.EventProbe,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	n, err := s.PruneEvents(ctx, 4)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 6 {
		t.Fatalf("pruned %d, want 6", n)
	}

	// The survivors are the newest four.
	count, _ := s.CountEventsSince(ctx, "10.0.0.1", "", base.Add(6*time.Minute))
	if count != 4 {
		t.Fatalf("survivors = %d, want 4", count)
	}

	removed, err := s.DeleteEventsBefore(ctx, base.Add(9*time.Minute))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed %d, want 3", removed)
	}
}
