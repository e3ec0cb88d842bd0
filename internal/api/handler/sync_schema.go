package handler

import (
	"encoding/json"
	"time"
)

type syncItemRequest struct {
	Entity  string          `json:"entity"  validate:"required"`
	Key     string          `json:"key"     validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
	Version int64           `json:"version" validate:"required,gt=0"`
}

type syncRequest struct {
	DeviceID string            `json:"device_id" validate:"required"`
	Items    []syncItemRequest `json:"items"     validate:"required,min=1,dive"`
}

type syncConflictResponse struct {
	Entity         string `json:"entity"`
	Key            string `json:"key"`
	ServerVersion  int64  `json:"server_version"`
	ClientVersion  int64  `json:"client_version"`
	ServerChecksum string `json:"server_checksum"`
	ClientChecksum string `json:"client_checksum"`
}

type syncUpdatedResponse struct {
	Entity        string `json:"entity"`
	Key           string `json:"key"`
	ServerVersion int64  `json:"server_version"`
}

type syncResponse struct {
	Conflicts []syncConflictResponse `json:"conflicts"`
	Updated   []syncUpdatedResponse  `json:"updated"`
	Applied   int                    `json:"applied"`
	Unchanged int                    `json:"unchanged"`
}

type cacheEntryResponse struct {
	Entity    string          `json:"entity"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	Version   int64           `json:"version"`
	Checksum  string          `json:"checksum"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type listCacheResponse struct {
	Entries []cacheEntryResponse `json:"entries"`
}
