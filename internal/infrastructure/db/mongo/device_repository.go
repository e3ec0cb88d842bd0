package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

const deviceCollection = "device_sessions"

type DeviceRepository struct {
	coll *mongo.Collection
}

func NewDeviceRepository(db *mongo.Database) *DeviceRepository {
	return &DeviceRepository{coll: db.Collection(deviceCollection)}
}

type deviceDoc struct {
	PrincipalID  string `bson:"principal_id"`
	DeviceID     string `bson:"device_id"`
	DeviceName   string `bson:"device_name,omitempty"`
	Platform     string `bson:"platform,omitempty"`
	AppVersion   string `bson:"app_version,omitempty"`
	LastIP       string `bson:"last_ip,omitempty"`
	LastActiveAt int64  `bson:"last_active_at"`
}

// Upsert creates or overwrites the (principal, device) record.
func (r *DeviceRepository) Upsert(ctx context.Context, s *domain.DeviceSession) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"principal_id": s.PrincipalID, "device_id": s.DeviceID}
	update := bson.M{"$set": deviceDoc{
		PrincipalID:  s.PrincipalID,
		DeviceID:     s.DeviceID,
		DeviceName:   s.DeviceName,
		Platform:     s.Platform,
		AppVersion:   s.AppVersion,
		LastIP:       s.LastIP,
		LastActiveAt: s.LastActiveAt.Unix(),
	}}

	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert device session: %w", err)
	}
	return nil
}

func (r *DeviceRepository) ListByPrincipal(ctx context.Context, principalID string) ([]*domain.DeviceSession, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "last_active_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"principal_id": principalID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list device sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*domain.DeviceSession
	for cursor.Next(ctx) {
		var doc deviceDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode device session: %w", err)
		}
		sessions = append(sessions, &domain.DeviceSession{
			PrincipalID:  doc.PrincipalID,
			DeviceID:     doc.DeviceID,
			DeviceName:   doc.DeviceName,
			Platform:     doc.Platform,
			AppVersion:   doc.AppVersion,
			LastIP:       doc.LastIP,
			LastActiveAt: unixToTime(doc.LastActiveAt),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list device sessions: %w", err)
	}
	return sessions, nil
}
