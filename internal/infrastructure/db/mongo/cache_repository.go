package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

const cacheCollection = "cache_entries"

type CacheRepository struct {
	coll *mongo.Collection
}

func NewCacheRepository(db *mongo.Database) *CacheRepository {
	return &CacheRepository{coll: db.Collection(cacheCollection)}
}

func cacheFilter(principalID, deviceID, entity, key string) bson.M {
	return bson.M{
		"principal_id": principalID,
		"device_id":    deviceID,
		"entity":       entity,
		"key":          key,
	}
}

// Upsert replaces the entry for its (principal, device, entity, key) tuple,
// creating it when absent. The unique index guarantees at most one entry
// per tuple.
func (r *CacheRepository) Upsert(ctx context.Context, e *domain.CacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := cacheFilter(e.PrincipalID, e.DeviceID, e.Entity, e.Key)
	_, err := r.coll.ReplaceOne(ctx, filter, e, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepository) Find(ctx context.Context, principalID, deviceID, entity, key string) (*domain.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var e domain.CacheEntry
	err := r.coll.FindOne(ctx, cacheFilter(principalID, deviceID, entity, key)).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCacheEntryNotFound
		}
		return nil, fmt.Errorf("find cache entry: %w", err)
	}
	return &e, nil
}

func (r *CacheRepository) FindAll(ctx context.Context, principalID, deviceID, entity string) ([]*domain.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"principal_id": principalID, "device_id": deviceID}
	if entity != "" {
		filter["entity"] = entity
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.CacheEntry
	for cursor.Next(ctx) {
		var e domain.CacheEntry
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode cache entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return entries, nil
}

// Delete is idempotent; deleting an absent entry is not an error.
func (r *CacheRepository) Delete(ctx context.Context, principalID, deviceID, entity, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, cacheFilter(principalID, deviceID, entity, key)); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
