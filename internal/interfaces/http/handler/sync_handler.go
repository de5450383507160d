package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	integrationapp "github.com/channelsync/backend/internal/application/integration"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/channelsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SyncRunner is the scheduler surface the sync endpoints need: manual
// triggers plus run bookkeeping. *scheduler.SyncScheduler satisfies it.
type SyncRunner interface {
	RunNow(ctx context.Context, flow integration.Flow) (*scheduler.RunRecord, error)
	History(limit int) []*scheduler.RunRecord
	LastRun(flow integration.Flow) *scheduler.RunRecord
	Stats() map[string]interface{}
}

// SyncHandler exposes manual sync triggers and scheduler introspection
type SyncHandler struct {
	BaseHandler
	runner SyncRunner
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runner SyncRunner) *SyncHandler {
	return &SyncHandler{
		runner: runner,
	}
}

// RegisterRoutes registers sync routes on the given router group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.GET("/flows", h.ListFlows)
		sync.GET("/status", h.GetStatus)
		sync.GET("/history", h.GetHistory)
		sync.POST("/:flow/run", h.TriggerSync)
		sync.GET("/:flow/last", h.GetLastRun)
	}
}

// FlowsResponse lists the flows that can be triggered
type FlowsResponse struct {
	Flows []string `json:"flows"`
}

// SyncRunResponse is one scheduler run record
type SyncRunResponse struct {
	Flow      string                             `json:"flow"`
	Trigger   string                             `json:"trigger"`
	Result    *integrationapp.SyncResultResponse `json:"result,omitempty"`
	Error     string                             `json:"error,omitempty"`
	StartedAt time.Time                          `json:"started_at"`
	EndedAt   time.Time                          `json:"ended_at"`
}

func newSyncRunResponse(record *scheduler.RunRecord) SyncRunResponse {
	resp := SyncRunResponse{
		Flow:      record.Flow.String(),
		Trigger:   string(record.Trigger),
		Error:     record.Error,
		StartedAt: record.StartedAt,
		EndedAt:   record.EndedAt,
	}
	if record.Result != nil {
		result := integrationapp.ToSyncResultResponse(record.Result)
		resp.Result = &result
	}
	return resp
}

// syncFlowURI is the :flow path parameter. The flowname rule is registered
// by middleware.SetupValidator.
type syncFlowURI struct {
	Flow string `uri:"flow" binding:"required,flowname"`
}

// historyQuery bounds the run-history page to what the scheduler retains.
type historyQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=50"`
}

// bindFlow binds and normalizes the :flow path parameter, answering 404
// when it names no known flow.
func (h *SyncHandler) bindFlow(c *gin.Context) (integration.Flow, bool) {
	var params syncFlowURI
	if err := c.ShouldBindUri(&params); err != nil {
		h.NotFound(c, fmt.Sprintf("Unknown sync flow: %s", c.Param("flow")))
		return "", false
	}
	return integration.Flow(strings.ToLower(strings.TrimSpace(params.Flow))), true
}

// ListFlows returns the names of all sync flows
func (h *SyncHandler) ListFlows(c *gin.Context) {
	flows := integration.AllFlows()
	names := make([]string, 0, len(flows))
	for _, flow := range flows {
		names = append(names, flow.String())
	}
	h.Success(c, FlowsResponse{Flows: names})
}

// GetStatus returns scheduler state and per-flow run summaries
func (h *SyncHandler) GetStatus(c *gin.Context) {
	h.Success(c, h.runner.Stats())
}

// GetHistory returns recent run records, newest first. The limit query
// parameter caps the page; history itself is bounded, so the total comes
// from a full read.
func (h *SyncHandler) GetHistory(c *gin.Context) {
	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	records := h.runner.History(query.Limit)
	total := int64(len(h.runner.History(0)))

	items := make([]SyncRunResponse, 0, len(records))
	for _, record := range records {
		items = append(items, newSyncRunResponse(record))
	}

	h.SuccessWithMeta(c, items, total, 1, query.Limit)
}

// TriggerSync runs one flow immediately and synchronously, returning the
// completed run record. Concurrent triggers for the same flow are refused
// so a manual run never overlaps a scheduled one.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	flow, ok := h.bindFlow(c)
	if !ok {
		return
	}

	record, err := h.runner.RunNow(c.Request.Context(), flow)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrFlowAlreadyRunning):
			h.ErrorWithCode(c, dto.ErrCodeSyncRunning, fmt.Sprintf("A %s sync run is already in progress", flow))
		case errors.Is(err, scheduler.ErrUnknownFlow):
			h.NotFound(c, fmt.Sprintf("No runner registered for flow: %s", flow))
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, newSyncRunResponse(record))
}

// GetLastRun returns the most recent run record for a flow
func (h *SyncHandler) GetLastRun(c *gin.Context) {
	flow, ok := h.bindFlow(c)
	if !ok {
		return
	}

	record := h.runner.LastRun(flow)
	if record == nil {
		h.NotFound(c, fmt.Sprintf("No recorded runs for flow: %s", flow))
		return
	}

	h.Success(c, newSyncRunResponse(record))
}
