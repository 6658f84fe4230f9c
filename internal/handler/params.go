package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func uintParam(c echo.Context, name, label string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+label)
	}
	return uint(id), nil
}

// operatorID takes the operator from the body, falling back to the
// X-Operator-ID header set by scanner apps.
func operatorID(c echo.Context, fromBody string) string {
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	return strings.TrimSpace(c.Request().Header.Get("X-Operator-ID"))
}
