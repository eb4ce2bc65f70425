package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/site"
)

// CreateSite persists a new site and assigns its ID.
func (s *Store) CreateSite(ctx context.Context, st *site.Site) error {
	id, err := s.nextID(ctx, colSites)
	if err != nil {
		return err
	}
	st.ID = id

	_, err = s.db.Collection(colSites).InsertOne(ctx, toSiteModel(st))
	if err != nil {
		st.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSite
		}
		return fmt.Errorf("velocty/mongo: create site: %w", err)
	}
	return nil
}

// GetSiteBySlug retrieves a site by exact slug match.
func (s *Store) GetSiteBySlug(ctx context.Context, slug string) (*site.Site, error) {
	return s.findSite(ctx, "get site by slug", bson.M{"slug": slug})
}

// GetSiteByHostname retrieves a site by exact hostname match.
func (s *Store) GetSiteByHostname(ctx context.Context, hostname string) (*site.Site, error) {
	return s.findSite(ctx, "get site by hostname", bson.M{"hostname": hostname})
}

// UpdateSite persists changes to an existing site. The slug is immutable
// and is not written.
func (s *Store) UpdateSite(ctx context.Context, st *site.Site) error {
	_, err := s.db.Collection(colSites).UpdateOne(ctx,
		bson.M{"_id": st.ID},
		bson.M{"$set": bson.M{
			"hostname":   st.Hostname,
			"name":       st.Name,
			"status":     string(st.Status),
			"updated_at": now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("velocty/mongo: update site: %w", err)
	}
	return nil
}

// DeleteSite removes a site by ID.
func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colSites).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete site: %w", err)
	}
	return nil
}

// ListSites returns sites ordered by slug.
func (s *Store) ListSites(ctx context.Context, opts site.ListOpts) ([]*site.Site, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "slug", Value: 1}})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colSites).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		s.readFailed("list sites", err)
		return []*site.Site{}, nil
	}
	defer cursor.Close(ctx)

	var models []siteModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list sites decode", err)
		return []*site.Site{}, nil
	}

	out := make([]*site.Site, 0, len(models))
	for i := range models {
		out = append(out, fromSiteModel(&models[i]))
	}
	return out, nil
}

func (s *Store) findSite(ctx context.Context, op string, filter bson.M) (*site.Site, error) {
	var m siteModel
	err := s.db.Collection(colSites).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromSiteModel(&m), nil
}
