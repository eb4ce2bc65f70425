package mongo

import (
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/user"
)

// BSON datetimes carry millisecond precision; entities round-trip through
// these models, so callers must not depend on sub-millisecond timestamps.

// ── User model ────────────────────────────────────────────────────

type userModel struct {
	ID           int64     `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	Active       bool      `bson:"active"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) *user.User {
	return &user.User{
		Entity:       entity(m.CreatedAt, m.UpdatedAt),
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Role:         user.Role(m.Role),
		Active:       m.Active,
	}
}

// ── Content models ────────────────────────────────────────────────

type postModel struct {
	ID        int64     `bson:"_id"`
	Title     string    `bson:"title"`
	Slug      string    `bson:"slug"`
	Body      string    `bson:"body"`
	Excerpt   string    `bson:"excerpt"`
	Status    string    `bson:"status"`
	AuthorID  int64     `bson:"author_id"`
	PublishAt time.Time `bson:"publish_at"`
	Likes     int64     `bson:"likes"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toPostModel(p *content.Post) *postModel {
	return &postModel{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Body:      p.Body,
		Excerpt:   p.Excerpt,
		Status:    string(p.Status),
		AuthorID:  p.AuthorID,
		PublishAt: p.PublishAt,
		Likes:     p.Likes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromPostModel(m *postModel) *content.Post {
	return &content.Post{
		Entity:    entity(m.CreatedAt, m.UpdatedAt),
		ID:        m.ID,
		Title:     m.Title,
		Slug:      m.Slug,
		Body:      m.Body,
		Excerpt:   m.Excerpt,
		Status:    content.Status(m.Status),
		AuthorID:  m.AuthorID,
		PublishAt: normalize(m.PublishAt),
		Likes:     m.Likes,
	}
}

type portfolioItemModel struct {
	ID          int64     `bson:"_id"`
	Title       string    `bson:"title"`
	Slug        string    `bson:"slug"`
	Description string    `bson:"description"`
	ImagePath   string    `bson:"image_path"`
	ProjectURL  string    `bson:"project_url"`
	SortOrder   int       `bson:"sort_order"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toItemModel(it *content.PortfolioItem) *portfolioItemModel {
	return &portfolioItemModel{
		ID:          it.ID,
		Title:       it.Title,
		Slug:        it.Slug,
		Description: it.Description,
		ImagePath:   it.ImagePath,
		ProjectURL:  it.ProjectURL,
		SortOrder:   it.SortOrder,
		Status:      string(it.Status),
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func fromItemModel(m *portfolioItemModel) *content.PortfolioItem {
	return &content.PortfolioItem{
		Entity:      entity(m.CreatedAt, m.UpdatedAt),
		ID:          m.ID,
		Title:       m.Title,
		Slug:        m.Slug,
		Description: m.Description,
		ImagePath:   m.ImagePath,
		ProjectURL:  m.ProjectURL,
		SortOrder:   m.SortOrder,
		Status:      content.Status(m.Status),
	}
}

// namedModel backs both categories and tags.
type namedModel struct {
	ID        int64     `bson:"_id"`
	Name      string    `bson:"name"`
	Slug      string    `bson:"slug"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func fromCategoryModel(m *namedModel) *content.Category {
	return &content.Category{
		Entity: entity(m.CreatedAt, m.UpdatedAt),
		ID:     m.ID,
		Name:   m.Name,
		Slug:   m.Slug,
	}
}

func fromTagModel(m *namedModel) *content.Tag {
	return &content.Tag{
		Entity: entity(m.CreatedAt, m.UpdatedAt),
		ID:     m.ID,
		Name:   m.Name,
		Slug:   m.Slug,
	}
}

// linkModel is one junction row attaching content to a category or tag.
type linkModel struct {
	ContentID   int64  `bson:"content_id"`
	ContentType string `bson:"content_type"`
	RelatedID   int64  `bson:"related_id"`
}

type commentModel struct {
	ID          int64     `bson:"_id"`
	ContentID   int64     `bson:"content_id"`
	ContentType string    `bson:"content_type"`
	AuthorName  string    `bson:"author_name"`
	AuthorEmail string    `bson:"author_email"`
	Body        string    `bson:"body"`
	Approved    bool      `bson:"approved"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toCommentModel(c *content.Comment) *commentModel {
	return &commentModel{
		ID:          c.ID,
		ContentID:   c.ContentID,
		ContentType: string(c.ContentType),
		AuthorName:  c.AuthorName,
		AuthorEmail: c.AuthorEmail,
		Body:        c.Body,
		Approved:    c.Approved,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCommentModel(m *commentModel) *content.Comment {
	return &content.Comment{
		Entity:      entity(m.CreatedAt, m.UpdatedAt),
		ID:          m.ID,
		ContentID:   m.ContentID,
		ContentType: content.Type(m.ContentType),
		AuthorName:  m.AuthorName,
		AuthorEmail: m.AuthorEmail,
		Body:        m.Body,
		Approved:    m.Approved,
	}
}

// ── Setting model ─────────────────────────────────────────────────

// Settings use the key itself as the document identity.
type settingModel struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func fromSettingModel(m *settingModel) *settings.Setting {
	return &settings.Setting{
		Entity: entity(m.CreatedAt, m.UpdatedAt),
		Key:    m.Key,
		Value:  m.Value,
	}
}

// ── Commerce models ───────────────────────────────────────────────

type orderModel struct {
	ID              int64     `bson:"_id"`
	Provider        string    `bson:"provider"`
	ProviderOrderID string    `bson:"provider_order_id"`
	ProviderRef     string    `bson:"provider_ref"`
	ItemID          int64     `bson:"item_id"`
	Amount          int64     `bson:"amount"`
	Currency        string    `bson:"currency"`
	BuyerEmail      string    `bson:"buyer_email"`
	BuyerName       string    `bson:"buyer_name"`
	Status          string    `bson:"status"`
	CompletedAt     time.Time `bson:"completed_at"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toOrderModel(o *commerce.Order) *orderModel {
	return &orderModel{
		ID:              o.ID,
		Provider:        o.Provider,
		ProviderOrderID: o.ProviderOrderID,
		ProviderRef:     o.ProviderRef,
		ItemID:          o.ItemID,
		Amount:          o.Amount,
		Currency:        o.Currency,
		BuyerEmail:      o.BuyerEmail,
		BuyerName:       o.BuyerName,
		Status:          string(o.Status),
		CompletedAt:     o.CompletedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func fromOrderModel(m *orderModel) *commerce.Order {
	return &commerce.Order{
		Entity:          entity(m.CreatedAt, m.UpdatedAt),
		ID:              m.ID,
		Provider:        m.Provider,
		ProviderOrderID: m.ProviderOrderID,
		ProviderRef:     m.ProviderRef,
		ItemID:          m.ItemID,
		Amount:          m.Amount,
		Currency:        m.Currency,
		BuyerEmail:      m.BuyerEmail,
		BuyerName:       m.BuyerName,
		Status:          commerce.OrderStatus(m.Status),
		CompletedAt:     normalize(m.CompletedAt),
	}
}

type tokenModel struct {
	ID            int64     `bson:"_id"`
	OrderID       int64     `bson:"order_id"`
	Token         string    `bson:"token"`
	MaxDownloads  int       `bson:"max_downloads"`
	DownloadsUsed int       `bson:"downloads_used"`
	ExpiresAt     time.Time `bson:"expires_at"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toTokenModel(t *commerce.DownloadToken) *tokenModel {
	return &tokenModel{
		ID:            t.ID,
		OrderID:       t.OrderID,
		Token:         t.Token,
		MaxDownloads:  t.MaxDownloads,
		DownloadsUsed: t.DownloadsUsed,
		ExpiresAt:     t.ExpiresAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) *commerce.DownloadToken {
	return &commerce.DownloadToken{
		Entity:        entity(m.CreatedAt, m.UpdatedAt),
		ID:            m.ID,
		OrderID:       m.OrderID,
		Token:         m.Token,
		MaxDownloads:  m.MaxDownloads,
		DownloadsUsed: m.DownloadsUsed,
		ExpiresAt:     normalize(m.ExpiresAt),
	}
}

type licenseModel struct {
	ID        int64     `bson:"_id"`
	OrderID   int64     `bson:"order_id"`
	Key       string    `bson:"key"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toLicenseModel(l *commerce.License) *licenseModel {
	return &licenseModel{
		ID:        l.ID,
		OrderID:   l.OrderID,
		Key:       l.Key,
		Email:     l.Email,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func fromLicenseModel(m *licenseModel) *commerce.License {
	return &commerce.License{
		Entity:  entity(m.CreatedAt, m.UpdatedAt),
		ID:      m.ID,
		OrderID: m.OrderID,
		Key:     m.Key,
		Email:   m.Email,
	}
}

// ── Firewall models ───────────────────────────────────────────────

type banModel struct {
	ID        int64     `bson:"_id"`
	IP        string    `bson:"ip"`
	Reason    string    `bson:"reason"`
	Active    bool      `bson:"active"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toBanModel(b *firewall.Ban) *banModel {
	return &banModel{
		ID:        b.ID,
		IP:        b.IP,
		Reason:    b.Reason,
		Active:    b.Active,
		ExpiresAt: b.ExpiresAt,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func fromBanModel(m *banModel) *firewall.Ban {
	return &firewall.Ban{
		Entity:    entity(m.CreatedAt, m.UpdatedAt),
		ID:        m.ID,
		IP:        m.IP,
		Reason:    m.Reason,
		Active:    m.Active,
		ExpiresAt: normalize(m.ExpiresAt),
	}
}

type eventModel struct {
	ID        int64     `bson:"_id"`
	IP        string    `bson:"ip"`
	Type      string    `bson:"type"`
	Detail    string    `bson:"detail"`
	CreatedAt time.Time `bson:"created_at"`
}

func toEventModel(e *firewall.Event) *eventModel {
	return &eventModel{
		ID:        e.ID,
		IP:        e.IP,
		Type:      e.Type,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}

func fromEventModel(m *eventModel) *firewall.Event {
	return &firewall.Event{
		ID:        m.ID,
		IP:        m.IP,
		Type:      m.Type,
		Detail:    m.Detail,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// ── Site model ────────────────────────────────────────────────────

type siteModel struct {
	ID        int64     `bson:"_id"`
	Slug      string    `bson:"slug"`
	Hostname  string    `bson:"hostname"`
	Name      string    `bson:"name"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toSiteModel(st *site.Site) *siteModel {
	return &siteModel{
		ID:        st.ID,
		Slug:      st.Slug,
		Hostname:  st.Hostname,
		Name:      st.Name,
		Status:    string(st.Status),
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func fromSiteModel(m *siteModel) *site.Site {
	return &site.Site{
		Entity:   entity(m.CreatedAt, m.UpdatedAt),
		ID:       m.ID,
		Slug:     m.Slug,
		Hostname: m.Hostname,
		Name:     m.Name,
		Status:   site.SiteStatus(m.Status),
	}
}

func entity(created, updated time.Time) velocty.Entity {
	return velocty.Entity{
		CreatedAt: created.UTC(),
		UpdatedAt: updated.UTC(),
	}
}

// normalize maps a stored zero-ish datetime back to the Go zero time.
// BSON has no distinct zero value, so year-1 round-trips stand in for it.
func normalize(t time.Time) time.Time {
	if t.IsZero() || t.Year() == 1 {
		return time.Time{}
	}
	return t.UTC()
}
