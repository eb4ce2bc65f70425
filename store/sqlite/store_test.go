package sqlite

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
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/store/memory"
	"github.com/marirs/velocty/user"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir() + "/velocty.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestMigrateIdempotent(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	// Running again must be a no-op, not a failure.
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserCRUD(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	u := &user.User{
		Entity: velocty.NewEntity(),
		Email:  "admin@example.com",
		Name:   "Admin",
		Role:   user.RoleAdmin,
		Active: true,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	got, err := s.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID || got.Role != user.RoleAdmin {
		t.Fatalf("unexpected user: %+v", got)
	}

	dup := &user.User{Entity: velocty.NewEntity(), Email: "admin@example.com"}
	if err := s.CreateUser(ctx, dup); err != velocty.ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got.Name = "Root"
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetUser(ctx, u.ID)
	if got.Name != "Root" {
		t.Fatalf("update not persisted: %+v", got)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetUser(ctx, u.ID); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	if u, err := s.GetUser(ctx, 9999); err != nil || u != nil {
		t.Fatalf("missing user: got %+v, %v", u, err)
	}
	if p, err := s.GetPostBySlug(ctx, "nope"); err != nil || p != nil {
		t.Fatalf("missing post: got %+v, %v", p, err)
	}
	if o, err := s.GetOrder(ctx, 9999); err != nil || o != nil {
		t.Fatalf("missing order: got %+v, %v", o, err)
	}
}

func TestGetPostBySlugParity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backends := []struct {
		name  string
		store content.Store
	}{
		{"sqlite", newStore(t)},
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
		t.Fatalf("backends disagree:\nsqlite: %+v\nmemory: %+v", a, b)
	}
}

func TestIdentityMonotonic(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 10; i++ {
		p := &content.Post{
			Entity: velocty.NewEntity(),
			Title:  fmt.Sprintf("post %d", i),
			Slug:   fmt.Sprintf("post-%d", i),
			Status: content.StatusDraft,
		}
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if p.ID <= last {
			t.Fatalf("ID %d not greater than previous %d", p.ID, last)
		}
		last = p.ID
	}
}

func TestPublishDuePosts(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	mk := func(slug string, status content.Status, at time.Time) *content.Post {
		p := &content.Post{
			Entity:    velocty.NewEntity(),
			Title:     slug,
			Slug:      slug,
			Status:    status,
			PublishAt: at,
		}
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("create %s: %v", slug, err)
		}
		return p
	}

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	due := mk("due", content.StatusScheduled, past)
	early := mk("early", content.StatusScheduled, future)
	draft := mk("draft", content.StatusDraft, past)

	n, err := s.PublishDuePosts(ctx)
	if err != nil {
		t.Fatalf("publish due: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 published, got %d", n)
	}

	for _, tc := range []struct {
		id   int64
		want content.Status
	}{
		{due.ID, content.StatusPublished},
		{early.ID, content.StatusScheduled},
		{draft.ID, content.StatusDraft},
	} {
		got, _ := s.GetPost(ctx, tc.id)
		if got.Status != tc.want {
			t.Errorf("post %d: status %s, want %s", tc.id, got.Status, tc.want)
		}
	}

	// Second sweep finds nothing to flip.
	if n, _ := s.PublishDuePosts(ctx); n != 0 {
		t.Fatalf("second sweep published %d", n)
	}
}

func TestIncrementPostLikes(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	p := &content.Post{Entity: velocty.NewEntity(), Slug: "liked", Status: content.StatusPublished}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
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
	if got.Likes != 20 {
		t.Fatalf("likes = %d, want 20", got.Likes)
	}
}

func TestJunctionFullReplace(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	p := &content.Post{Entity: velocty.NewEntity(), Slug: "tagged"}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create post: %v", err)
	}

	var cats []int64
	for _, name := range []string{"go", "sql", "web"} {
		c := &content.Category{Entity: velocty.NewEntity(), Name: name, Slug: name}
		if err := s.CreateCategory(ctx, c); err != nil {
			t.Fatalf("create category %s: %v", name, err)
		}
		cats = append(cats, c.ID)
	}

	set := cats[:2]
	if err := s.SetCategoriesForContent(ctx, p.ID, content.TypePost, set); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Same set again must stay exactly one row per category.
	if err := s.SetCategoriesForContent(ctx, p.ID, content.TypePost, set); err != nil {
		t.Fatalf("set again: %v", err)
	}
	got, err := s.CategoriesForContent(ctx, p.ID, content.TypePost)
	if err != nil {
		t.Fatalf("categories for content: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d categories, want 2", len(got))
	}

	// Replacement removes the old attachments entirely.
	if err := s.SetCategoriesForContent(ctx, p.ID, content.TypePost, cats[2:]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = s.CategoriesForContent(ctx, p.ID, content.TypePost)
	if len(got) != 1 || got[0].Slug != "web" {
		t.Fatalf("replace result: %+v", got)
	}

	ids, err := s.ContentIDsForCategory(ctx, cats[2], content.TypePost)
	if err != nil {
		t.Fatalf("content ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != p.ID {
		t.Fatalf("content ids = %v", ids)
	}
}

func TestSettingsUpsert(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "site_title", "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting(ctx, "site_title", "second"); err != nil {
		t.Fatalf("set again: %v", err)
	}

	got, err := s.GetSetting(ctx, "site_title")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Value != "second" {
		t.Fatalf("unexpected setting: %+v", got)
	}

	all, err := s.AllSettings(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d settings, want 1", len(all))
	}

	if err := s.DeleteSetting(ctx, "site_title"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.GetSetting(ctx, "site_title"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestCompleteOrderOnce(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	o := &commerce.Order{
		Entity:          velocty.NewEntity(),
		Provider:        "stripe",
		ProviderOrderID: "pi_123",
		ItemID:          1,
		Amount:          1900,
		Currency:        "usd",
		Status:          commerce.StatusPending,
	}
	if err := s.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &commerce.Order{Entity: velocty.NewEntity(), Provider: "stripe", ProviderOrderID: "pi_123"}
	if err := s.CreateOrder(ctx, dup); err != velocty.ErrDuplicateOrder {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}

	// Many concurrent finalizers; exactly one wins.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := s.CompleteOrder(ctx, o.ID, "ch_456", "buyer@example.com", "Buyer")
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
		t.Fatalf("%d callers completed the order, want 1", wins)
	}

	got, _ := s.GetOrder(ctx, o.ID)
	if got.Status != commerce.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.ProviderRef != "ch_456" || got.BuyerEmail != "buyer@example.com" {
		t.Fatalf("buyer details not recorded: %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Fatal("completed_at not set")
	}

	// Absent orders report false, nil.
	done, err := s.CompleteOrder(ctx, 9999, "x", "", "")
	if err != nil || done {
		t.Fatalf("absent order: done=%v err=%v", done, err)
	}
}

func TestDownloadTokenCounter(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	tok := &commerce.DownloadToken{
		Entity:       velocty.NewEntity(),
		OrderID:      7,
		Token:        "tok-abc",
		MaxDownloads: 3,
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	if err := s.CreateDownloadToken(ctx, tok); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.IncrementDownloads(ctx, "tok-abc"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	got, err := s.GetDownloadToken(ctx, "tok-abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DownloadsUsed != 2 {
		t.Fatalf("downloads_used = %d, want 2", got.DownloadsUsed)
	}

	byOrder, _ := s.GetTokenForOrder(ctx, 7)
	if byOrder == nil || byOrder.Token != "tok-abc" {
		t.Fatalf("get by order: %+v", byOrder)
	}
}

func TestBanExclusivity(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := s.DeactivateBans(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if i > 0 && n != 1 {
			t.Fatalf("deactivated %d, want 1", n)
		}
		b := &firewall.Ban{
			Entity: velocty.NewEntity(),
			IP:     "10.0.0.1",
			Reason: fmt.Sprintf("strike %d", i),
			Active: true,
		}
		if err := s.InsertBan(ctx, b); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	active, err := s.ActiveBan(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil || active.Reason != "strike 2" {
		t.Fatalf("active ban: %+v", active)
	}

	all, _ := s.ListBans(ctx, firewall.BanListOpts{})
	if len(all) != 3 {
		t.Fatalf("history length %d, want 3", len(all))
	}
	onlyActive, _ := s.ListBans(ctx, firewall.BanListOpts{ActiveOnly: true})
	if len(onlyActive) != 1 {
		t.Fatalf("active bans %d, want 1", len(onlyActive))
	}
}

func TestDeactivateExpiredBans(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	mk := func(ip string, expires time.Time) {
		b := &firewall.Ban{Entity: velocty.NewEntity(), IP: ip, Active: true, ExpiresAt: expires}
		if err := s.InsertBan(ctx, b); err != nil {
			t.Fatalf("insert %s: %v", ip, err)
		}
	}
	mk("1.1.1.1", time.Now().UTC().Add(-time.Minute)) // expired
	mk("2.2.2.2", time.Now().UTC().Add(time.Hour))    // live
	mk("3.3.3.3", time.Time{})                        // permanent

	n, err := s.DeactivateExpiredBans(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("deactivated %d, want 1", n)
	}
	if b, _ := s.ActiveBan(ctx, "3.3.3.3"); b == nil {
		t.Fatal("permanent ban must survive the sweep")
	}
}

func TestEventRetention(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		e := &firewall.Event{
			IP:        "10.0.0.1",
			Type:      firewall.EventLoginFailed,
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

	// Survivors are the newest; the window since base+6m covers all 4.
	got, _ := s.CountEventsSince(ctx, "10.0.0.1", "", base.Add(6*time.Minute))
	if got != 4 {
		t.Fatalf("count = %d, want 4", got)
	}

	// Inclusive lower bound: an event stamped exactly at since counts.
	got, _ = s.CountEventsSince(ctx, "10.0.0.1", firewall.EventLoginFailed, base.Add(9*time.Minute))
	if got != 1 {
		t.Fatalf("inclusive count = %d, want 1", got)
	}
}

func TestEventAggregates(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	ins := func(ip, typ string, at time.Time) {
		if err := s.InsertEvent(ctx, &firewall.Event{IP: ip, Type: typ, CreatedAt: at}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	ins("1.1.1.1", firewall.EventProbe, now)
	ins("1.1.1.1", firewall.EventProbe, now)
	ins("2.2.2.2", firewall.EventSpamComment, now)
	ins("3.3.3.3", firewall.EventProbe, now.Add(-2*time.Hour)) // out of window

	since := now.Add(-time.Hour)
	byType, _ := s.CountEventsByType(ctx, since)
	if byType[firewall.EventProbe] != 2 || byType[firewall.EventSpamComment] != 1 {
		t.Fatalf("by type: %v", byType)
	}

	top, _ := s.TopEventIPs(ctx, since, 1)
	if len(top) != 1 || top[0].IP != "1.1.1.1" || top[0].Count != 2 {
		t.Fatalf("top ips: %v", top)
	}

	n, err := s.DeleteEventsBefore(ctx, since)
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d, want 1", n)
	}
}

func TestSiteRegistry(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	a := &site.Site{
		Entity:   velocty.NewEntity(),
		Slug:     "acme",
		Hostname: "acme.example.com",
		Name:     "Acme",
		Status:   site.StatusActive,
	}
	if err := s.CreateSite(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &site.Site{Entity: velocty.NewEntity(), Slug: "acme"}
	if err := s.CreateSite(ctx, dup); err != velocty.ErrDuplicateSite {
		t.Fatalf("expected ErrDuplicateSite, got %v", err)
	}

	got, _ := s.GetSiteByHostname(ctx, "acme.example.com")
	if got == nil || got.Slug != "acme" {
		t.Fatalf("by hostname: %+v", got)
	}

	got.Hostname = "www.acme.example.com"
	got.Status = site.StatusSuspended
	if err := s.UpdateSite(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetSiteBySlug(ctx, "acme")
	if got.Hostname != "www.acme.example.com" || got.Status != site.StatusSuspended {
		t.Fatalf("update not persisted: %+v", got)
	}

	sites, _ := s.ListSites(ctx, site.ListOpts{})
	if len(sites) != 1 {
		t.Fatalf("list: %d sites", len(sites))
	}
}
