package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/datacollector/internal/compustat/application"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/pkg/logger"
)

type CompustatHandler struct {
	service *application.IndexService
}

func NewCompustatHandler(service *application.IndexService) *CompustatHandler {
	return &CompustatHandler{service: service}
}

func (h *CompustatHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/v1/compustat/indices/:gvkeyx")
	{
		v1.GET("", h.GetIndex)
		v1.GET("/attributes/:column", h.GetAttribute)
		v1.GET("/bench-start", h.GetBenchStartDate)
		v1.GET("/calendar", h.GetCalendar)
		v1.GET("/constituents", h.GetConstituents)
		v1.GET("/prices", h.GetDailyPrices)
	}
}

func (h *CompustatHandler) open(c *gin.Context) (*application.CompustatIndex, bool) {
	idx, err := h.service.Open(c.Request.Context(), c.Param("gvkeyx"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return idx, true
}

func (h *CompustatHandler) GetIndex(c *gin.Context) {
	idx, ok := h.open(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, application.ToIndexDTO(idx.Record()))
}

func (h *CompustatHandler) GetAttribute(c *gin.Context) {
	idx, ok := h.open(c)
	if !ok {
		return
	}
	column := c.Param("column")
	v, err := idx.Attribute(column)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gvkeyx": idx.Code(), "column": column, "value": v})
}

func (h *CompustatHandler) GetBenchStartDate(c *gin.Context) {
	idx, ok := h.open(c)
	if !ok {
		return
	}
	d, err := idx.BenchStartDate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gvkeyx": idx.Code(), "bench_start_date": d.Format(index.DateLayout)})
}

func (h *CompustatHandler) GetCalendar(c *gin.Context) {
	idx, ok := h.open(c)
	if !ok {
		return
	}
	dates, err := idx.CalendarList(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(index.DateLayout))
	}
	c.JSON(http.StatusOK, gin.H{"gvkeyx": idx.Code(), "calendar": out})
}

func (h *CompustatHandler) GetConstituents(c *gin.Context) {
	idx, ok := h.open(c)
	if !ok {
		return
	}
	rows, err := idx.NewCompanies(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gvkeyx": idx.Code(), "constituents": application.ToConstituentDTOs(rows)})
}

func (h *CompustatHandler) GetDailyPrices(c *gin.Context) {
	idx, ok := h.open(c)
	if !ok {
		return
	}
	rows, err := idx.DailyPrices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gvkeyx": idx.Code(), "prices": application.ToDailyPriceDTOs(rows)})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, index.ErrNotFound), errors.Is(err, index.ErrAttributeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, index.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "compustat request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
