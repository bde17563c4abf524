// Package api serves pipeline results over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"bizmetrics/internal/domain"
	"bizmetrics/internal/observability"
	"bizmetrics/internal/pipeline"
	"bizmetrics/internal/summary"
)

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// ResultSource produces a fresh pipeline result.
type ResultSource interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Handler handles HTTP requests. Every request recomputes from the source.
type Handler struct {
	source  ResultSource
	router  *gin.Engine
	log     *zap.Logger
	metrics *observability.Metrics
}

// NewHandler creates a new HTTP handler. m and g may be nil, in which case
// requests are not counted and /metrics is not served.
func NewHandler(source ResultSource, log *zap.Logger, m *observability.Metrics, g prometheus.Gatherer) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	h := &Handler{
		source:  source,
		router:  gin.New(),
		log:     log,
		metrics: m,
	}
	h.router.Use(gin.Recovery(), h.countRequests)
	h.registerRoutes(g)
	return h
}

func (h *Handler) registerRoutes(g prometheus.Gatherer) {
	h.router.GET("/health", h.healthCheck)
	if g != nil {
		h.router.GET("/metrics", gin.WrapH(observability.Handler(g)))
	}

	v1 := h.router.Group("/api/v1")
	{
		v1.GET("/overview", h.getOverview)
		v1.GET("/report", h.getReport)
		v1.GET("/businesses", h.listBusinesses)
		v1.GET("/businesses/top", h.topBusinesses)
		v1.GET("/businesses/:id", h.getBusiness)
		v1.GET("/summary/:dimension", h.getSummary)
		v1.GET("/changes/:dimension", h.getChanges)
		v1.GET("/deals", h.listDeals)
		v1.GET("/monthly/acv", h.getMonthlyACV)
		v1.GET("/features", h.listFeatures)
		v1.GET("/features/:name", h.getFeature)
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) countRequests(c *gin.Context) {
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.metrics.RecordRequest(route, c.Writer.Status())
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// result runs the pipeline and writes a 500 on failure.
func (h *Handler) result(c *gin.Context) (*pipeline.Result, bool) {
	r, err := h.source.Run(c.Request.Context())
	if err != nil {
		h.log.Error("pipeline run failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "failed to compute metrics",
		})
		return nil, false
	}
	return r, true
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: msg,
	})
}

type limitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (q limitQuery) value() int {
	if q.Limit == 0 {
		return defaultLimit
	}
	return min(q.Limit, maxLimit)
}

func (h *Handler) getOverview(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, OverviewResponse{
		AsOf:        r.Report.AsOf,
		GeneratedAt: r.Report.GeneratedAt,
		Overview:    r.Report.Overview,
		Retention:   r.Report.Customers.Retention,
	})
}

func (h *Handler) getReport(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Report)
}

func (h *Handler) listBusinesses(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, BusinessesResponse{
		Count:      len(r.Businesses),
		Businesses: r.Businesses,
	})
}

func (h *Handler) topBusinesses(c *gin.Context) {
	var q limitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, TopBusinessesResponse{
		Limit:      q.value(),
		Businesses: summary.TopBusinesses(r.Deals, q.value()),
	})
}

func (h *Handler) getBusiness(c *gin.Context) {
	id := c.Param("id")
	r, ok := h.result(c)
	if !ok {
		return
	}
	detail, found := summary.BusinessDetail(r.Deals, id)
	if !found {
		notFound(c, "no deals for business "+strconv.Quote(id))
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) getSummary(c *gin.Context) {
	dim, err := summary.ParseDimension(c.Param("dimension"))
	if err != nil {
		validationError(c, err)
		return
	}
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GroupsResponse{
		Dimension: dim,
		Groups:    summary.GroupBy(r.Businesses, dim),
	})
}

type changesQuery struct {
	Year int `form:"year" binding:"omitempty,min=1900,max=9999"`
}

func (h *Handler) getChanges(c *gin.Context) {
	dim, err := summary.ParseDimension(c.Param("dimension"))
	if err != nil {
		validationError(c, err)
		return
	}
	var q changesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}
	r, ok := h.result(c)
	if !ok {
		return
	}
	rows := summary.ChangeByYear(r.Businesses, dim)
	if q.Year != 0 {
		rows = summary.ForYear(rows, q.Year)
	}
	c.JSON(http.StatusOK, ChangesResponse{
		Dimension: dim,
		Year:      q.Year,
		Changes:   rows,
	})
}

var errUnknownDealType = errors.New("type must be new_logo or renewal")

type dealsQuery struct {
	limitQuery
	Type string `form:"type"`
}

func parseDealType(s string) (domain.DealType, error) {
	switch s {
	case "":
		return "", nil
	case "new_logo":
		return domain.DealTypeNewLogo, nil
	case "renewal":
		return domain.DealTypeRenewal, nil
	default:
		return "", errUnknownDealType
	}
}

func (h *Handler) listDeals(c *gin.Context) {
	var q dealsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		validationError(c, err)
		return
	}
	dealType, err := parseDealType(q.Type)
	if err != nil {
		validationError(c, err)
		return
	}
	r, ok := h.result(c)
	if !ok {
		return
	}

	deals := r.Deals
	if dealType != "" {
		deals = summary.RecentDeals(r.Deals, dealType, q.value())
	}
	c.JSON(http.StatusOK, DealsResponse{
		Type:  string(dealType),
		Count: len(deals),
		Deals: deals,
	})
}

func (h *Handler) getMonthlyACV(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tableResponse(r.ACV))
}

func (h *Handler) listFeatures(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, FeaturesResponse{Features: r.Report.Features})
}

func (h *Handler) getFeature(c *gin.Context) {
	name := c.Param("name")
	r, ok := h.result(c)
	if !ok {
		return
	}
	table, found := r.Feature(name)
	if !found {
		notFound(c, "unknown feature "+strconv.Quote(name))
		return
	}
	c.JSON(http.StatusOK, tableResponse(table))
}
