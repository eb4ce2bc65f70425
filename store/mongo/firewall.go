package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty/firewall"
)

// InsertBan persists a new ban and assigns its ID.
func (s *Store) InsertBan(ctx context.Context, b *firewall.Ban) error {
	id, err := s.nextID(ctx, colBans)
	if err != nil {
		return err
	}
	b.ID = id

	_, err = s.db.Collection(colBans).InsertOne(ctx, toBanModel(b))
	if err != nil {
		b.ID = 0
		return fmt.Errorf("velocty/mongo: insert ban: %w", err)
	}
	return nil
}

// DeactivateBans clears the active flag on every active ban for the IP.
func (s *Store) DeactivateBans(ctx context.Context, ip string) (int64, error) {
	res, err := s.db.Collection(colBans).UpdateMany(ctx,
		bson.M{"ip": ip, "active": true},
		bson.M{"$set": bson.M{"active": false, "updated_at": now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("velocty/mongo: deactivate bans: %w", err)
	}
	return res.ModifiedCount, nil
}

// ActiveBan returns the active ban for the IP, or nil when none exists.
func (s *Store) ActiveBan(ctx context.Context, ip string) (*firewall.Ban, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var m banModel
	err := s.db.Collection(colBans).FindOne(ctx,
		bson.M{"ip": ip, "active": true}, opts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed("active ban", err)
		return nil, nil
	}
	return fromBanModel(&m), nil
}

// ListBans returns bans ordered by creation time, newest first.
func (s *Store) ListBans(ctx context.Context, opts firewall.BanListOpts) ([]*firewall.Ban, error) {
	filter := bson.M{}
	if opts.ActiveOnly {
		filter["active"] = true
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colBans).Find(ctx, filter, findOpts)
	if err != nil {
		s.readFailed("list bans", err)
		return []*firewall.Ban{}, nil
	}
	defer cursor.Close(ctx)

	var models []banModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list bans decode", err)
		return []*firewall.Ban{}, nil
	}

	out := make([]*firewall.Ban, 0, len(models))
	for i := range models {
		out = append(out, fromBanModel(&models[i]))
	}
	return out, nil
}

// DeactivateExpiredBans clears the active flag on every active ban whose
// expiry has passed. Permanent bans carry a zero expiry and are skipped.
func (s *Store) DeactivateExpiredBans(ctx context.Context) (int64, error) {
	t := now()
	res, err := s.db.Collection(colBans).UpdateMany(ctx,
		bson.M{
			"active": true,
			// $gt zero time excludes permanent bans.
			"expires_at": bson.M{"$gt": time.Time{}, "$lt": t},
		},
		bson.M{"$set": bson.M{"active": false, "updated_at": t}},
	)
	if err != nil {
		return 0, fmt.Errorf("velocty/mongo: deactivate expired bans: %w", err)
	}
	return res.ModifiedCount, nil
}

// InsertEvent appends a security event and assigns its ID.
func (s *Store) InsertEvent(ctx context.Context, e *firewall.Event) error {
	id, err := s.nextID(ctx, colEvents)
	if err != nil {
		return err
	}
	e.ID = id

	_, err = s.db.Collection(colEvents).InsertOne(ctx, toEventModel(e))
	if err != nil {
		e.ID = 0
		return fmt.Errorf("velocty/mongo: insert event: %w", err)
	}
	return nil
}

// PruneEvents deletes all but the most recent keep events. The threshold
// ID is found first, then one DeleteMany removes everything below it; a
// full result scan is never needed.
func (s *Store) PruneEvents(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	col := s.db.Collection(colEvents)

	// The document at position keep (newest first) is the newest one to
	// delete; everything at or below its ID goes.
	opts := options.FindOne().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})

	var doc struct {
		ID int64 `bson:"_id"`
	}
	err := col.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("velocty/mongo: prune events threshold: %w", err)
	}

	res, err := col.DeleteMany(ctx, bson.M{"_id": bson.M{"$lte": doc.ID}})
	if err != nil {
		return 0, fmt.Errorf("velocty/mongo: prune events: %w", err)
	}
	return res.DeletedCount, nil
}

// CountEventsSince returns the number of events for the IP since the
// given instant, inclusive. Empty eventType counts all types.
func (s *Store) CountEventsSince(ctx context.Context, ip, eventType string, since time.Time) (int64, error) {
	filter := bson.M{
		"ip":         ip,
		"created_at": bson.M{"$gte": since},
	}
	if eventType != "" {
		filter["type"] = eventType
	}
	n, err := s.db.Collection(colEvents).CountDocuments(ctx, filter)
	if err != nil {
		s.readFailed("count events since", err)
		return 0, nil
	}
	return n, nil
}

// CountEventsByType returns per-type event counts since the given
// instant, inclusive.
func (s *Store) CountEventsByType(ctx context.Context, since time.Time) (map[string]int64, error) {
	pipeline := []bson.D{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$type",
			"n":   bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.db.Collection(colEvents).Aggregate(ctx, pipeline)
	if err != nil {
		s.readFailed("count events by type", err)
		return map[string]int64{}, nil
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Type string `bson:"_id"`
		N    int64  `bson:"n"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		s.readFailed("count events by type decode", err)
		return map[string]int64{}, nil
	}

	out := map[string]int64{}
	for _, r := range rows {
		out[r.Type] = r.N
	}
	return out, nil
}

// TopEventIPs returns the IPs with the most events since the given
// instant, busiest first.
func (s *Store) TopEventIPs(ctx context.Context, since time.Time, limit int) ([]firewall.IPCount, error) {
	stages := []bson.D{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$ip",
			"n":   bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "n", Value: -1},
			{Key: "_id", Value: 1},
		}}},
	}
	if limit > 0 {
		stages = append(stages, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := s.db.Collection(colEvents).Aggregate(ctx, stages)
	if err != nil {
		s.readFailed("top event ips", err)
		return []firewall.IPCount{}, nil
	}
	defer cursor.Close(ctx)

	var rows []struct {
		IP string `bson:"_id"`
		N  int64  `bson:"n"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		s.readFailed("top event ips decode", err)
		return []firewall.IPCount{}, nil
	}

	out := make([]firewall.IPCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, firewall.IPCount{IP: r.IP, Count: r.N})
	}
	return out, nil
}

// DeleteEventsBefore removes every event older than cutoff.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Collection(colEvents).DeleteMany(ctx,
		bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("velocty/mongo: delete events before: %w", err)
	}
	return res.DeletedCount, nil
}
