// Package mongo provides the MongoDB Store backend over the official v2
// driver. One database per tenant; identity comes from a per-collection
// counter document, so every entity keeps the same int64 ID shape as the
// relational engines.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/user"
)

// Collection name constants.
const (
	colUsers             = "users"
	colPosts             = "posts"
	colPortfolioItems    = "portfolio_items"
	colCategories        = "categories"
	colTags              = "tags"
	colContentCategories = "content_categories"
	colContentTags       = "content_tags"
	colComments          = "comments"
	colSettings          = "settings"
	colOrders            = "orders"
	colDownloadTokens    = "download_tokens"
	colLicenses          = "licenses"
	colBans              = "fw_bans"
	colEvents            = "fw_events"
	colSites             = "sites"
	colCounters          = "_counters"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ user.Store     = (*Store)(nil)
	_ content.Store  = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
	_ commerce.Store = (*Store)(nil)
	_ firewall.Store = (*Store)(nil)
	_ site.Store     = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store. The caller owns the
// client lifecycle; Store never disconnects it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new MongoDB store over the given database. The caller
// owns the client lifecycle -- the Store will not disconnect it on
// Close().
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *mongo.Database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

// Migrate creates indexes for all collections. Index creation is
// idempotent; re-running is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("velocty/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "E11000")
}

// readFailed logs a failed read. Reads degrade to empty results rather
// than surfacing backend errors; the site stays up, just emptier.
func (s *Store) readFailed(op string, err error) {
	s.logger.Warn("read degraded to empty result", "op", op, "error", err)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	unique := options.Index().SetUnique(true)

	return map[string][]mongod.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		colPosts: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			// Publish sweep index: scheduled posts by due time.
			{Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "publish_at", Value: 1},
			}},
		},
		colPortfolioItems: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{
				{Key: "sort_order", Value: 1},
				{Key: "_id", Value: 1},
			}},
		},
		colCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		colTags: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		colContentCategories: {
			{
				Keys: bson.D{
					{Key: "content_id", Value: 1},
					{Key: "content_type", Value: 1},
					{Key: "related_id", Value: 1},
				},
				Options: unique,
			},
			{Keys: bson.D{
				{Key: "related_id", Value: 1},
				{Key: "content_type", Value: 1},
			}},
		},
		colContentTags: {
			{
				Keys: bson.D{
					{Key: "content_id", Value: 1},
					{Key: "content_type", Value: 1},
					{Key: "related_id", Value: 1},
				},
				Options: unique,
			},
			{Keys: bson.D{
				{Key: "related_id", Value: 1},
				{Key: "content_type", Value: 1},
			}},
		},
		colComments: {
			{Keys: bson.D{
				{Key: "content_id", Value: 1},
				{Key: "content_type", Value: 1},
				{Key: "approved", Value: 1},
			}},
		},
		colOrders: {
			{
				Keys: bson.D{
					{Key: "provider", Value: 1},
					{Key: "provider_order_id", Value: 1},
				},
				Options: unique,
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colDownloadTokens: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		colLicenses: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		colBans: {
			{Keys: bson.D{
				{Key: "ip", Value: 1},
				{Key: "active", Value: 1},
			}},
		},
		colEvents: {
			{Keys: bson.D{
				{Key: "ip", Value: 1},
				{Key: "type", Value: 1},
				{Key: "created_at", Value: 1},
			}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colSites: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "hostname", Value: 1}}},
		},
	}
}
