package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

type CounterHandler struct {
	inspector counter.Inspector
}

func NewCounterHandler(inspector counter.Inspector) *CounterHandler {
	return &CounterHandler{inspector: inspector}
}

// ListCounters handles GET /api/v1/counters[?year=YYYY].
func (h *CounterHandler) ListCounters(c *gin.Context) {
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := parseYear(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		year = y
	}

	recs, err := h.inspector.List(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, recs)
}

// GetCounter handles GET /api/v1/counters/:module/:year.
func (h *CounterHandler) GetCounter(c *gin.Context) {
	year, err := parseYear(c.Param("year"))
	if err != nil {
		respondError(c, err)
		return
	}
	rec, err := h.inspector.Get(c.Request.Context(), counter.Key{ModuleType: c.Param("module"), Year: year})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rec)
}

func parseYear(raw string) (int, error) {
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1000 || y > 9999 {
		return 0, fmt.Errorf("%w: year %q is not a four-digit year", codegen.ErrInvalidInput, raw)
	}
	return y, nil
}
