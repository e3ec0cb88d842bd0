package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/newsroomhq/newsroom-api/internal/api/metrics"
	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/ports"
)

// SyncHandler handles offline cache reconciliation and cache reads.
type SyncHandler struct {
	sync  ports.SyncService
	cache ports.CacheService
}

func NewSyncHandler(sync ports.SyncService, cache ports.CacheService) *SyncHandler {
	return &SyncHandler{sync: sync, cache: cache}
}

// Push reconciles a batch of client-held cache tuples against server
// state. Conflicts are reported in-band; they are not errors.
//
// @Summary      Push the offline write-ahead buffer
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      syncRequest  true  "Device ID and items"
// @Success      200   {object}  syncResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/sync [post]
func (h *SyncHandler) Push(c echo.Context) error {
	principalID, _, _, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items := make([]ports.SyncItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ports.SyncItemInput{
			Entity:  it.Entity,
			Key:     it.Key,
			Payload: it.Payload,
			Version: it.Version,
		})
	}

	start := time.Now()
	result, err := h.sync.Reconcile(c.Request().Context(), principalID, req.DeviceID, items)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	metrics.SyncBatchDuration.Observe(time.Since(start).Seconds())
	metrics.SyncItemsTotal.WithLabelValues("applied").Add(float64(result.Applied))
	metrics.SyncItemsTotal.WithLabelValues("server_win").Add(float64(len(result.Updated)))
	metrics.SyncItemsTotal.WithLabelValues("conflict").Add(float64(len(result.Conflicts)))
	metrics.SyncItemsTotal.WithLabelValues("noop").Add(float64(result.Unchanged))

	return c.JSON(http.StatusOK, toSyncResponse(result))
}

// List returns the device's cache entries, newest-first, optionally
// filtered by entity kind. Expired entries are treated as absent.
//
// @Summary      List cached entries for a device
// @Tags         sync
// @Produce      json
// @Security     BearerAuth
// @Param        device_id  query     string  true   "Device ID"
// @Param        entity     query     string  false  "Entity kind filter"
// @Success      200        {object}  listCacheResponse
// @Failure      401        {object}  errorResponse
// @Router       /v1/sync/cache [get]
func (h *SyncHandler) List(c echo.Context) error {
	principalID, _, _, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	deviceID := c.QueryParam("device_id")
	if deviceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id is required")
	}

	entries, err := h.cache.GetAll(c.Request().Context(), principalID, deviceID, c.QueryParam("entity"))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	out := make([]cacheEntryResponse, 0, len(entries))
	for _, e := range entries {
		if e.Expired(now) {
			continue
		}
		out = append(out, toCacheEntryResponse(e))
	}
	return c.JSON(http.StatusOK, listCacheResponse{Entries: out})
}

// Get returns a single cache entry. An expired entry is reported as
// absent.
//
// @Summary      Get one cached entry
// @Tags         sync
// @Produce      json
// @Security     BearerAuth
// @Param        entity     path      string  true  "Entity kind"
// @Param        key        path      string  true  "Entry key"
// @Param        device_id  query     string  true  "Device ID"
// @Success      200        {object}  cacheEntryResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/sync/cache/{entity}/{key} [get]
func (h *SyncHandler) Get(c echo.Context) error {
	principalID, _, _, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	deviceID := c.QueryParam("device_id")
	if deviceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id is required")
	}

	entry, err := h.cache.Get(c.Request().Context(), principalID, deviceID, c.Param("entity"), c.Param("key"))
	if err != nil {
		return err
	}
	if entry.Expired(time.Now().UTC()) {
		return domain.ErrCacheEntryNotFound
	}
	return c.JSON(http.StatusOK, toCacheEntryResponse(entry))
}

// Delete removes a cache entry. Idempotent.
//
// @Summary      Delete one cached entry
// @Tags         sync
// @Produce      json
// @Security     BearerAuth
// @Param        entity     path   string  true  "Entity kind"
// @Param        key        path   string  true  "Entry key"
// @Param        device_id  query  string  true  "Device ID"
// @Success      204        "no content"
// @Failure      401        {object}  errorResponse
// @Router       /v1/sync/cache/{entity}/{key} [delete]
func (h *SyncHandler) Delete(c echo.Context) error {
	principalID, _, _, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	deviceID := c.QueryParam("device_id")
	if deviceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id is required")
	}

	if err := h.cache.Delete(c.Request().Context(), principalID, deviceID, c.Param("entity"), c.Param("key")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toSyncResponse(r *ports.SyncResult) syncResponse {
	resp := syncResponse{
		Conflicts: make([]syncConflictResponse, 0, len(r.Conflicts)),
		Updated:   make([]syncUpdatedResponse, 0, len(r.Updated)),
		Applied:   r.Applied,
		Unchanged: r.Unchanged,
	}
	for _, conflict := range r.Conflicts {
		resp.Conflicts = append(resp.Conflicts, syncConflictResponse{
			Entity:         conflict.Entity,
			Key:            conflict.Key,
			ServerVersion:  conflict.ServerVersion,
			ClientVersion:  conflict.ClientVersion,
			ServerChecksum: conflict.ServerChecksum,
			ClientChecksum: conflict.ClientChecksum,
		})
	}
	for _, updated := range r.Updated {
		resp.Updated = append(resp.Updated, syncUpdatedResponse{
			Entity:        updated.Entity,
			Key:           updated.Key,
			ServerVersion: updated.ServerVersion,
		})
	}
	return resp
}

func toCacheEntryResponse(e *domain.CacheEntry) cacheEntryResponse {
	return cacheEntryResponse{
		Entity:    e.Entity,
		Key:       e.Key,
		Payload:   e.Payload,
		Version:   e.Version,
		Checksum:  e.Checksum,
		ExpiresAt: e.ExpiresAt,
		UpdatedAt: e.UpdatedAt,
	}
}
