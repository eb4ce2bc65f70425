//go:build integration

package mongo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	mongomodule "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/store/memory"
	mongostore "github.com/marirs/velocty/store/mongo"
	"github.com/marirs/velocty/user"
)

// setupTestStore creates a MongoDB container and returns a migrated Store.
func setupTestStore(t *testing.T) *mongostore.Store {
	t.Helper()

	ctx := context.Background()

	container, err := mongomodule.Run(ctx,
		"mongo:7",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start mongodb container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	client, err := mongod.Connect(options.Client().ApplyURI(connStr))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(ctx)
	})

	store := mongostore.New(client.Database("velocty_test"))

	if migErr := store.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}

	return store
}

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	// Second migrate should be a no-op.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Identity
// ──────────────────────────────────────────────────

func TestIdentity_ConcurrentUnique(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	const n = 32
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

// ──────────────────────────────────────────────────
// User store
// ──────────────────────────────────────────────────

func TestUserStore_DuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := &user.User{Entity: velocty.NewEntity(), Email: "a@b.c", Role: user.RoleAdmin}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &user.User{Entity: velocty.NewEntity(), Email: "a@b.c"}
	if err := s.CreateUser(ctx, dup); err != velocty.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "a@b.c")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("get by email: %+v, %v", got, err)
	}
	if missing, _ := s.GetUser(ctx, 9999); missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}
}

// ──────────────────────────────────────────────────
// Content store
// ──────────────────────────────────────────────────

func TestContentStore_PublishDuePosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	due := &content.Post{
		Entity:    velocty.NewEntity(),
		Slug:      "due",
		Status:    content.StatusScheduled,
		PublishAt: time.Now().UTC().Add(-time.Minute),
	}
	early := &content.Post{
		Entity:    velocty.NewEntity(),
		Slug:      "early",
		Status:    content.StatusScheduled,
		PublishAt: time.Now().UTC().Add(time.Hour),
	}
	for _, p := range []*content.Post{due, early} {
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

	got, _ := s.GetPost(ctx, due.ID)
	if got.Status != content.StatusPublished {
		t.Fatalf("due post status %s", got.Status)
	}
	got, _ = s.GetPost(ctx, early.ID)
	if got.Status != content.StatusScheduled {
		t.Fatalf("early post status %s", got.Status)
	}
}

func TestContentStore_GetPostBySlugParity(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	backends := []struct {
		name  string
		store content.Store
	}{
		{"mongo", s},
		{"memory", memory.New()},
	}

	var got []*content.Post
	for _, b := range backends {
		p := &content.Post{
			Entity:   velocty.NewEntity(),
			Title:    "Hello, Velocty",
			Slug:     "hello-velocty",
			Body:     "First post.",
			Excerpt:  "First.",
			Status:   content.StatusPublished,
			AuthorID: 7,
		}
		if err := b.store.CreatePost(ctx, p); err != nil {
			t.Fatalf("%s: create: %v", b.name, err)
		}

		found, err := b.store.GetPostBySlug(ctx, "hello-velocty")
		if err != nil {
			t.Fatalf("%s: get by slug: %v", b.name, err)
		}
		if found == nil {
			t.Fatalf("%s: post not found by slug", b.name)
		}
		got = append(got, found)
	}

	// Identically initialized backends must return the identical post.
	a, b := got[0], got[1]
	if a.Title != b.Title || a.Slug != b.Slug || a.Status != b.Status ||
		a.Body != b.Body || a.Excerpt != b.Excerpt || a.AuthorID != b.AuthorID ||
		a.Likes != b.Likes {
		t.Fatalf("backends disagree:\nmongo: %+v\nmemory: %+v", a, b)
	}
}

func TestContentStore_JunctionReplace(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := &content.Post{Entity: velocty.NewEntity(), Slug: "tagged"}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	var tags []int64
	for _, name := range []string{"go", "mongo"} {
		tg := &content.Tag{Entity: velocty.NewEntity(), Name: name, Slug: name}
		if err := s.CreateTag(ctx, tg); err != nil {
			t.Fatalf("create tag: %v", err)
		}
		tags = append(tags, tg.ID)
	}

	for i := 0; i < 2; i++ {
		if err := s.SetTagsForContent(ctx, p.ID, content.TypePost, tags); err != nil {
			t.Fatalf("set tags (round %d): %v", i, err)
		}
	}
	got, err := s.TagsForContent(ctx, p.ID, content.TypePost)
	if err != nil {
		t.Fatalf("tags for content: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tags, want 2", len(got))
	}

	if err := s.SetTagsForContent(ctx, p.ID, content.TypePost, nil); err != nil {
		t.Fatalf("clear tags: %v", err)
	}
	got, _ = s.TagsForContent(ctx, p.ID, content.TypePost)
	if len(got) != 0 {
		t.Fatalf("tags not cleared: %d", len(got))
	}
}

func TestContentStore_LikesCounter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := &content.Post{Entity: velocty.NewEntity(), Slug: "liked", Status: content.StatusPublished}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.IncrementPostLikes(ctx, p.ID); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetPost(ctx, p.ID)
	if got.Likes != 16 {
		t.Fatalf("likes = %d, want 16", got.Likes)
	}
}

// ──────────────────────────────────────────────────
// Settings store
// ──────────────────────────────────────────────────

var _ settings.Store = (*mongostore.Store)(nil)

func TestSettingsStore_Upsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "site_title", "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting(ctx, "site_title", "second"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	got, err := s.GetSetting(ctx, "site_title")
	if err != nil || got == nil || got.Value != "second" {
		t.Fatalf("get: %+v, %v", got, err)
	}
	all, err := s.AllSettings(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d settings", len(all))
	}
}

// ──────────────────────────────────────────────────
// Commerce store
// ──────────────────────────────────────────────────

func TestCommerceStore_CompleteOrderOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

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

	got, _ := s.GetOrder(ctx, o.ID)
	if got.Status != commerce.StatusCompleted || got.ProviderRef != "CAP-1" {
		t.Fatalf("order after completion: %+v", got)
	}
}

// ──────────────────────────────────────────────────
// Firewall store
// ──────────────────────────────────────────────────

func TestFirewallStore_EventRetention(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	for i := 0; i < 8; i++ {
		e := &firewall.Event{
			IP:        "10.0.0.1",
			Type:      firewall.EventProbe,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	n, err := s.PruneEvents(ctx, 3)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 5 {
		t.Fatalf("pruned %d, want 5", n)
	}

	// Inclusive lower bound on the window.
	count, _ := s.CountEventsSince(ctx, "10.0.0.1", firewall.EventProbe, base.Add(7*time.Minute))
	if count != 1 {
		t.Fatalf("inclusive count = %d, want 1", count)
	}

	byType, _ := s.CountEventsByType(ctx, base)
	if byType[firewall.EventProbe] != 3 {
		t.Fatalf("by type: %v", byType)
	}

	top, _ := s.TopEventIPs(ctx, base, 5)
	if len(top) != 1 || top[0].IP != "10.0.0.1" || top[0].Count != 3 {
		t.Fatalf("top ips: %v", top)
	}
}

func TestFirewallStore_BanLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := &firewall.Ban{
		Entity:    velocty.NewEntity(),
		IP:        "10.0.0.9",
		Reason:    "probes",
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := s.InsertBan(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}

	active, _ := s.ActiveBan(ctx, "10.0.0.9")
	if active == nil {
		t.Fatal("expected active ban")
	}
	if !active.Expired(time.Now().UTC()) {
		t.Fatal("ban should read as expired")
	}

	n, err := s.DeactivateExpiredBans(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("deactivated %d, want 1", n)
	}
	if still, _ := s.ActiveBan(ctx, "10.0.0.9"); still != nil {
		t.Fatalf("ban still active: %+v", still)
	}
}
