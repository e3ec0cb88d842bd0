package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
)

const principalCollection = "principals"

type PrincipalRepository struct {
	coll *mongo.Collection
}

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{coll: db.Collection(principalCollection)}
}

type profileDoc struct {
	DisplayName string `bson:"display_name,omitempty"`
	Bio         string `bson:"bio,omitempty"`
	Outlet      string `bson:"outlet,omitempty"`
}

type principalDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	Email              string             `bson:"email"`
	Phone              string             `bson:"phone,omitempty"`
	PasswordHash       string             `bson:"password_hash"`
	Role               string             `bson:"role"`
	Status             string             `bson:"status"`
	Profile            profileDoc         `bson:"profile"`
	OTPCode            string             `bson:"otp_code,omitempty"`
	OTPExpiresAt       int64              `bson:"otp_expires_at,omitempty"`
	OTPVerifiedAt      int64              `bson:"otp_verified_at,omitempty"`
	RefreshFingerprint string             `bson:"refresh_fingerprint,omitempty"`
	CreatedAt          int64              `bson:"created_at"`
	UpdatedAt          int64              `bson:"updated_at"`
}

func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, toPrincipalDoc(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}

	created := *p
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc principalDoc
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find principal by email: %w", err)
	}
	return fromPrincipalDoc(&doc), nil
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPrincipalNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc principalDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find principal by id: %w", err)
	}
	return fromPrincipalDoc(&doc), nil
}

// Update overwrites all mutable fields of the stored principal. OTP fields
// and the refresh fingerprint are always written, so clearing them on the
// domain object clears them in the store.
func (r *PrincipalRepository) Update(ctx context.Context, p *domain.Principal) error {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return domain.ErrPrincipalNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toPrincipalDoc(p)
	update := bson.M{"$set": bson.M{
		"name":                doc.Name,
		"phone":               doc.Phone,
		"password_hash":       doc.PasswordHash,
		"role":                doc.Role,
		"status":              doc.Status,
		"profile":             doc.Profile,
		"otp_code":            doc.OTPCode,
		"otp_expires_at":      doc.OTPExpiresAt,
		"otp_verified_at":     doc.OTPVerifiedAt,
		"refresh_fingerprint": doc.RefreshFingerprint,
		"updated_at":          doc.UpdatedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update principal: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func toPrincipalDoc(p *domain.Principal) *principalDoc {
	return &principalDoc{
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		Status:       string(p.Status),
		Profile: profileDoc{
			DisplayName: p.Profile.DisplayName,
			Bio:         p.Profile.Bio,
			Outlet:      p.Profile.Outlet,
		},
		OTPCode:            p.OTPCode,
		OTPExpiresAt:       unixOrZero(p.OTPExpiresAt),
		OTPVerifiedAt:      unixOrZero(p.OTPVerifiedAt),
		RefreshFingerprint: p.RefreshFingerprint,
		CreatedAt:          p.CreatedAt.Unix(),
		UpdatedAt:          p.UpdatedAt.Unix(),
	}
}

func fromPrincipalDoc(doc *principalDoc) *domain.Principal {
	return &domain.Principal{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		Email:        doc.Email,
		Phone:        doc.Phone,
		PasswordHash: doc.PasswordHash,
		Role:         doc.Role,
		Status:       domain.AccountStatus(doc.Status),
		Profile: domain.Profile{
			DisplayName: doc.Profile.DisplayName,
			Bio:         doc.Profile.Bio,
			Outlet:      doc.Profile.Outlet,
		},
		OTPCode:            doc.OTPCode,
		OTPExpiresAt:       unixToTime(doc.OTPExpiresAt),
		OTPVerifiedAt:      unixToTime(doc.OTPVerifiedAt),
		RefreshFingerprint: doc.RefreshFingerprint,
		CreatedAt:          unixToTime(doc.CreatedAt),
		UpdatedAt:          unixToTime(doc.UpdatedAt),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
