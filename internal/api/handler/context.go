package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxPrincipal extracts the verified identity injected by the Auth
// middleware and fast-fails before any service call: a non-empty
// principal_id proves the middleware ran.
func ctxPrincipal(c echo.Context) (principalID, role string, guest bool, err error) {
	principalID, _ = c.Get("principal_id").(string)
	if principalID == "" {
		return "", "", false, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get("role").(string)
	guest, _ = c.Get("guest").(bool)
	return principalID, role, guest, nil
}
