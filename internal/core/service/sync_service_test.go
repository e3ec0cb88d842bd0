package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

func newTestSyncService(repo *stubCacheRepo) *SyncService {
	return NewSyncService(NewCacheService(repo, zerolog.Nop()), zerolog.Nop())
}

func seedEntry(repo *stubCacheRepo, entity, key string, version int64, payload []byte) *domain.CacheEntry {
	e := &domain.CacheEntry{
		PrincipalID: "p1",
		DeviceID:    "dev-1",
		Entity:      entity,
		Key:         key,
		Payload:     payload,
		Version:     version,
		Checksum:    domain.Checksum(payload),
		UpdatedAt:   time.Now().UTC(),
	}
	_ = repo.Upsert(context.Background(), e)
	repo.upserts = 0
	return e
}

func TestSyncService_NewKeyStoredAtClientVersion(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)

	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "a-1", Payload: []byte("draft"), Version: 7},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Applied != 1 || len(result.Conflicts) != 0 || len(result.Updated) != 0 || result.Unchanged != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored, err := repo.Find(context.Background(), "p1", "dev-1", "article", "a-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	// First sync keeps the client's own version number.
	if stored.Version != 7 {
		t.Fatalf("expected client version 7 kept, got %d", stored.Version)
	}
	if !bytes.Equal(stored.Payload, []byte("draft")) {
		t.Fatalf("payload mismatch")
	}
}

func TestSyncService_ServerNewerReportsUpdated(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)
	server := seedEntry(repo, "article", "a-1", 10, []byte("server"))

	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "a-1", Payload: []byte("stale"), Version: 5},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(result.Updated) != 1 {
		t.Fatalf("expected one updated entry, got %+v", result)
	}
	if result.Updated[0].ServerVersion != 10 {
		t.Fatalf("expected server version 10 reported, got %d", result.Updated[0].ServerVersion)
	}
	if repo.upserts != 0 {
		t.Fatalf("server-wins must not write, saw %d upserts", repo.upserts)
	}

	stored, _ := repo.Find(context.Background(), "p1", "dev-1", "article", "a-1")
	if !bytes.Equal(stored.Payload, server.Payload) {
		t.Fatalf("server payload must be untouched")
	}
}

func TestSyncService_ClientNewerOverwrites(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)
	seedEntry(repo, "article", "a-1", 5, []byte("old"))

	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "a-1", Payload: []byte("new"), Version: 6},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Applied != 1 || len(result.Conflicts) != 0 || len(result.Updated) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored, _ := repo.Find(context.Background(), "p1", "dev-1", "article", "a-1")
	if !bytes.Equal(stored.Payload, []byte("new")) {
		t.Fatalf("expected client payload stored")
	}
	// Client wins take a fresh server-assigned version, not the client's.
	if stored.Version <= 6 {
		t.Fatalf("expected a fresh server version greater than 6, got %d", stored.Version)
	}
}

func TestSyncService_SameVersionSameChecksumIsNoop(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)
	payload := []byte("agreed")
	seedEntry(repo, "article", "a-1", 5, payload)

	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "a-1", Payload: payload, Version: 5},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Unchanged != 1 || result.Applied != 0 || len(result.Conflicts) != 0 || len(result.Updated) != 0 {
		t.Fatalf("expected pure no-op, got %+v", result)
	}
	if repo.upserts != 0 {
		t.Fatalf("steady state must not write, saw %d upserts", repo.upserts)
	}
}

func TestSyncService_SameVersionDivergedIsConflict(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)
	server := seedEntry(repo, "article", "a-1", 5, []byte("server view"))

	clientPayload := []byte("client view")
	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "a-1", Payload: clientPayload, Version: 5},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", result)
	}
	c := result.Conflicts[0]
	if c.ServerVersion != 5 || c.ClientVersion != 5 {
		t.Fatalf("conflict must carry both versions: %+v", c)
	}
	if c.ServerChecksum != server.Checksum || c.ClientChecksum != domain.Checksum(clientPayload) {
		t.Fatalf("conflict must carry both checksums: %+v", c)
	}
	if repo.upserts != 0 {
		t.Fatalf("conflicts must never write, saw %d upserts", repo.upserts)
	}

	stored, _ := repo.Find(context.Background(), "p1", "dev-1", "article", "a-1")
	if !bytes.Equal(stored.Payload, server.Payload) {
		t.Fatalf("server payload must be untouched on conflict")
	}
}

func TestSyncService_ExpiredEntryTreatedAsAbsent(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)
	expired := time.Now().UTC().Add(-time.Hour)
	e := seedEntry(repo, "article", "a-1", 10, []byte("stale server"))
	e.ExpiresAt = &expired
	_ = repo.Upsert(context.Background(), e)
	repo.upserts = 0

	// Server version 10 would normally win over 3, but the entry is expired.
	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "a-1", Payload: []byte("fresh"), Version: 3},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Applied != 1 || len(result.Updated) != 0 {
		t.Fatalf("expired entry must be treated as absent: %+v", result)
	}

	stored, _ := repo.Find(context.Background(), "p1", "dev-1", "article", "a-1")
	if stored.Version != 3 || !bytes.Equal(stored.Payload, []byte("fresh")) {
		t.Fatalf("expected fresh entry at client version, got v%d", stored.Version)
	}
}

func TestSyncService_MixedBatch(t *testing.T) {
	repo := newStubCacheRepo()
	svc := newTestSyncService(repo)
	seedEntry(repo, "article", "newer-on-server", 10, []byte("server"))
	seedEntry(repo, "article", "agreed", 5, []byte("same"))
	seedEntry(repo, "article", "diverged", 5, []byte("server view"))

	result, err := svc.Reconcile(context.Background(), "p1", "dev-1", []ports.SyncItemInput{
		{Entity: "article", Key: "brand-new", Payload: []byte("n"), Version: 1},
		{Entity: "article", Key: "newer-on-server", Payload: []byte("stale"), Version: 4},
		{Entity: "article", Key: "agreed", Payload: []byte("same"), Version: 5},
		{Entity: "article", Key: "diverged", Payload: []byte("client view"), Version: 5},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Applied != 1 {
		t.Fatalf("expected exactly the new key applied, got %d", result.Applied)
	}
	if len(result.Updated) != 1 || result.Updated[0].Key != "newer-on-server" {
		t.Fatalf("unexpected updated list: %+v", result.Updated)
	}
	if result.Unchanged != 1 {
		t.Fatalf("expected one unchanged, got %d", result.Unchanged)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Key != "diverged" {
		t.Fatalf("unexpected conflicts: %+v", result.Conflicts)
	}
}

func TestSyncService_ValidatesInput(t *testing.T) {
	svc := newTestSyncService(newStubCacheRepo())
	ctx := context.Background()

	if _, err := svc.Reconcile(ctx, "", "dev-1", nil); err == nil {
		t.Fatalf("expected error for empty principal id")
	}
	if _, err := svc.Reconcile(ctx, "p1", "", nil); err == nil {
		t.Fatalf("expected error for empty device id")
	}
	if _, err := svc.Reconcile(ctx, "p1", "dev-1", []ports.SyncItemInput{{Entity: "", Key: "k", Version: 1}}); err == nil {
		t.Fatalf("expected error for missing entity")
	}
	if _, err := svc.Reconcile(ctx, "p1", "dev-1", []ports.SyncItemInput{{Entity: "article", Key: "k", Version: 0}}); err == nil {
		t.Fatalf("expected error for non-positive version")
	}

	big := make([]ports.SyncItemInput, maxSyncBatch+1)
	for i := range big {
		big[i] = ports.SyncItemInput{Entity: "article", Key: fmt.Sprintf("k%d", i), Version: 1}
	}
	if _, err := svc.Reconcile(ctx, "p1", "dev-1", big); err == nil {
		t.Fatalf("expected error for oversized batch")
	}
}
