package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
)

// CreateOrder persists a new order and assigns its ID.
func (s *Store) CreateOrder(ctx context.Context, o *commerce.Order) error {
	id, err := s.nextID(ctx, colOrders)
	if err != nil {
		return err
	}
	o.ID = id

	_, err = s.db.Collection(colOrders).InsertOne(ctx, toOrderModel(o))
	if err != nil {
		o.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateOrder
		}
		return fmt.Errorf("velocty/mongo: create order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (s *Store) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	return s.findOrder(ctx, "get order", bson.M{"_id": id})
}

// GetOrderByProviderOrderID retrieves an order by provider identifiers.
func (s *Store) GetOrderByProviderOrderID(ctx context.Context, provider, providerOrderID string) (*commerce.Order, error) {
	return s.findOrder(ctx, "get order by provider order id", bson.M{
		"provider":          provider,
		"provider_order_id": providerOrderID,
	})
}

// ListOrders returns orders ordered by creation time, newest first.
func (s *Store) ListOrders(ctx context.Context, opts commerce.ListOpts) ([]*commerce.Order, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colOrders).Find(ctx, filter, findOpts)
	if err != nil {
		s.readFailed("list orders", err)
		return []*commerce.Order{}, nil
	}
	defer cursor.Close(ctx)

	var models []orderModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list orders decode", err)
		return []*commerce.Order{}, nil
	}

	out := make([]*commerce.Order, 0, len(models))
	for i := range models {
		out = append(out, fromOrderModel(&models[i]))
	}
	return out, nil
}

// CountOrders returns the number of orders with the given status.
func (s *Store) CountOrders(ctx context.Context, status commerce.OrderStatus) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	n, err := s.db.Collection(colOrders).CountDocuments(ctx, filter)
	if err != nil {
		s.readFailed("count orders", err)
		return 0, nil
	}
	return n, nil
}

// CompleteOrder performs the pending → completed transition as one
// conditional UpdateOne; the modified count is the guard. Two concurrent
// callers can never both see a modified document.
func (s *Store) CompleteOrder(ctx context.Context, id int64, providerRef, buyerEmail, buyerName string) (bool, error) {
	t := now()
	res, err := s.db.Collection(colOrders).UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": string(commerce.StatusPending),
		},
		bson.M{"$set": bson.M{
			"status":       string(commerce.StatusCompleted),
			"provider_ref": providerRef,
			"buyer_email":  buyerEmail,
			"buyer_name":   buyerName,
			"completed_at": t,
			"updated_at":   t,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("velocty/mongo: complete order: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// CreateDownloadToken persists a new download token and assigns its ID.
func (s *Store) CreateDownloadToken(ctx context.Context, t *commerce.DownloadToken) error {
	id, err := s.nextID(ctx, colDownloadTokens)
	if err != nil {
		return err
	}
	t.ID = id

	_, err = s.db.Collection(colDownloadTokens).InsertOne(ctx, toTokenModel(t))
	if err != nil {
		t.ID = 0
		return fmt.Errorf("velocty/mongo: create download token: %w", err)
	}
	return nil
}

// GetDownloadToken retrieves a token by its exact token string.
func (s *Store) GetDownloadToken(ctx context.Context, token string) (*commerce.DownloadToken, error) {
	return s.findToken(ctx, "get download token", bson.M{"token": token}, nil)
}

// GetTokenForOrder retrieves the download token issued for an order.
func (s *Store) GetTokenForOrder(ctx context.Context, orderID int64) (*commerce.DownloadToken, error) {
	sort := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.findToken(ctx, "get token for order", bson.M{"order_id": orderID}, sort)
}

// IncrementDownloads adds one to the token's downloads_used counter with
// $inc.
func (s *Store) IncrementDownloads(ctx context.Context, token string) error {
	_, err := s.db.Collection(colDownloadTokens).UpdateOne(ctx,
		bson.M{"token": token},
		bson.M{
			"$inc": bson.M{"downloads_used": 1},
			"$set": bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return fmt.Errorf("velocty/mongo: increment downloads: %w", err)
	}
	return nil
}

// CreateLicense persists a new license and assigns its ID.
func (s *Store) CreateLicense(ctx context.Context, l *commerce.License) error {
	id, err := s.nextID(ctx, colLicenses)
	if err != nil {
		return err
	}
	l.ID = id

	_, err = s.db.Collection(colLicenses).InsertOne(ctx, toLicenseModel(l))
	if err != nil {
		l.ID = 0
		return fmt.Errorf("velocty/mongo: create license: %w", err)
	}
	return nil
}

// GetLicenseByOrder retrieves the license issued for an order.
func (s *Store) GetLicenseByOrder(ctx context.Context, orderID int64) (*commerce.License, error) {
	sort := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.findLicense(ctx, "get license by order", bson.M{"order_id": orderID}, sort)
}

// GetLicenseByKey retrieves a license by its exact key.
func (s *Store) GetLicenseByKey(ctx context.Context, key string) (*commerce.License, error) {
	return s.findLicense(ctx, "get license by key", bson.M{"key": key}, nil)
}

func (s *Store) findOrder(ctx context.Context, op string, filter bson.M) (*commerce.Order, error) {
	var m orderModel
	err := s.db.Collection(colOrders).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromOrderModel(&m), nil
}

func (s *Store) findToken(ctx context.Context, op string, filter bson.M, opts *options.FindOneOptionsBuilder) (*commerce.DownloadToken, error) {
	var m tokenModel
	var err error
	if opts != nil {
		err = s.db.Collection(colDownloadTokens).FindOne(ctx, filter, opts).Decode(&m)
	} else {
		err = s.db.Collection(colDownloadTokens).FindOne(ctx, filter).Decode(&m)
	}
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromTokenModel(&m), nil
}

func (s *Store) findLicense(ctx context.Context, op string, filter bson.M, opts *options.FindOneOptionsBuilder) (*commerce.License, error) {
	var m licenseModel
	var err error
	if opts != nil {
		err = s.db.Collection(colLicenses).FindOne(ctx, filter, opts).Decode(&m)
	} else {
		err = s.db.Collection(colLicenses).FindOne(ctx, filter).Decode(&m)
	}
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromLicenseModel(&m), nil
}
