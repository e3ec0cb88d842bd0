package ports

import "context"

// SyncItemInput is one client-held cache tuple submitted for
// reconciliation.
type SyncItemInput struct {
	Entity  string
	Key     string
	Payload []byte
	Version int64
}

// SyncConflict reports a same-version, diverged-content item. Both version
// numbers are carried so the caller can resolve out-of-band.
type SyncConflict struct {
	Entity         string
	Key            string
	ServerVersion  int64
	ClientVersion  int64
	ServerChecksum string
	ClientChecksum string
}

// SyncUpdated signals that the server holds a newer value: the client
// should discard its local copy and pull fresh data for this key.
type SyncUpdated struct {
	Entity        string
	Key           string
	ServerVersion int64
}

// SyncResult is the outcome of one reconciliation batch. Conflicts are
// normal output, not errors. Applied counts items written (new entries and
// client wins); Unchanged counts same-version, same-checksum no-ops.
type SyncResult struct {
	Conflicts []SyncConflict
	Updated   []SyncUpdated
	Applied   int
	Unchanged int
}

// SyncService reconciles a batch of client-held tuples against server
// state, deciding per item whether the server wins, the client wins, or
// the two conflict. Reconciliation is best-effort and non-transactional;
// partial application across a batch is expected.
type SyncService interface {
	Reconcile(ctx context.Context, principalID, deviceID string, items []SyncItemInput) (*SyncResult, error)
}
