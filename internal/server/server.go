// Package server exposes collection runs over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/engine/collector"
	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/model"
)

// Runner performs one collection. *collector.Collector satisfies it.
type Runner interface {
	Collect(ctx context.Context, req model.SearchRequest, sink collector.Sink) ([]model.LeadRecord, error)
}

// Store persists runs. *storage.Store satisfies it.
type Store interface {
	BeginRun(req model.SearchRequest) (uuid.UUID, error)
	InsertLeads(runID uuid.UUID, leads []model.LeadRecord) (int, error)
	FinishRun(id uuid.UUID) error
	Runs() ([]storage.Run, error)
	Leads(runID uuid.UUID) ([]storage.StoredLead, error)
}

type Deps struct {
	Runner    Runner
	Store     Store
	RateLimit config.RateLimitConfig
	Logger    *log.Logger
}

// Handler serves the collection API. Only one collection runs at a time
// since all runs share one browser.
type Handler struct {
	runner Runner
	store  Store
	logger *log.Logger
	busy   sync.Mutex
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = log.New(io.Discard)
	}
	h := &Handler{runner: d.Runner, store: d.Store, logger: d.Logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(RequestID())
	e.Use(Logging(d.Logger))

	e.GET("/healthz", func(c echo.Context) error {
		return Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	e.POST("/collect", h.Collect, CollectRateLimiter(d.RateLimit))
	e.GET("/runs", h.Runs)
	e.GET("/runs/:id/leads", h.RunLeads)
	return e
}

type collectRequest struct {
	Keyword    string `json:"keyword"`
	Region     string `json:"region"`
	Industry   string `json:"industry"`
	Extra      string `json:"extra"`
	MaxResults int    `json:"max_results"`
}

type collectResponse struct {
	RunID    uuid.UUID             `json:"run_id"`
	Leads    []model.LeadRecord    `json:"leads"`
	Progress []model.ProgressEvent `json:"progress"`
}

func (h *Handler) Collect(c echo.Context) error {
	var body collectRequest
	if err := c.Bind(&body); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request body")
	}
	keyword := body.Keyword
	if keyword == "" {
		keyword = model.ComposeKeyword(body.Region, body.Industry, body.Extra)
	}
	req := model.SearchRequest{Keyword: keyword, MaxResults: body.MaxResults}
	if err := req.Validate(); err != nil {
		return Error(c, http.StatusBadRequest, err.Error())
	}

	if !h.busy.TryLock() {
		return Error(c, http.StatusConflict, "a collection is already running")
	}
	defer h.busy.Unlock()

	runID, err := h.store.BeginRun(req)
	if err != nil {
		h.logger.Error("begin run", "err", err)
		return Error(c, http.StatusInternalServerError, "could not record run")
	}

	var events []model.ProgressEvent
	sink := collector.SinkFunc(func(e model.ProgressEvent) { events = append(events, e) })

	leads, err := h.runner.Collect(c.Request().Context(), req, sink)
	if len(leads) > 0 {
		if _, serr := h.store.InsertLeads(runID, leads); serr != nil {
			h.logger.Error("store leads", "run", runID, "err", serr)
		}
	}
	if ferr := h.store.FinishRun(runID); ferr != nil {
		h.logger.Error("finish run", "run", runID, "err", ferr)
	}

	switch {
	case err == nil:
	case errors.Is(err, collector.ErrSession):
		return Error(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Error(c, http.StatusServiceUnavailable, "collection interrupted")
	default:
		return Error(c, http.StatusInternalServerError, err.Error())
	}

	if leads == nil {
		leads = []model.LeadRecord{}
	}
	return Success(c, http.StatusOK, "collection complete", collectResponse{
		RunID:    runID,
		Leads:    leads,
		Progress: events,
	})
}

func (h *Handler) Runs(c echo.Context) error {
	runs, err := h.store.Runs()
	if err != nil {
		h.logger.Error("list runs", "err", err)
		return Error(c, http.StatusInternalServerError, "could not list runs")
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	return Success(c, http.StatusOK, "", runs)
}

func (h *Handler) RunLeads(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid run id")
	}
	leads, err := h.store.Leads(id)
	if err != nil {
		h.logger.Error("list leads", "run", id, "err", err)
		return Error(c, http.StatusInternalServerError, "could not list leads")
	}
	if leads == nil {
		leads = []storage.StoredLead{}
	}
	return Success(c, http.StatusOK, "", leads)
}
