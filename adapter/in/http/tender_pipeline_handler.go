// Package http provides the operational trigger API.
package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	portin "tender_server/core/port/in"
	"tender_server/core/service/ingest"
	"tender_server/pkg/apperr"
	"tender_server/pkg/response"
)

// PipelineHandler exposes manual triggers for ingestion, reprocessing and
// recommendation dispatch.
type PipelineHandler struct {
	ingestService    portin.IngestService
	reprocessService portin.ReprocessService
	recommendService portin.RecommendService
	guard            *ingest.RunGuard
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(ingestService portin.IngestService, reprocessService portin.ReprocessService, recommendService portin.RecommendService, guard *ingest.RunGuard) *PipelineHandler {
	return &PipelineHandler{
		ingestService:    ingestService,
		reprocessService: reprocessService,
		recommendService: recommendService,
		guard:            guard,
	}
}

// Register registers pipeline routes.
func (h *PipelineHandler) Register(router fiber.Router) {
	runs := router.Group("/runs")
	runs.Post("/ingest", h.TriggerIngest)
	runs.Post("/reprocess", h.TriggerReprocess)
	runs.Post("/dispatch", h.TriggerDispatch)
	runs.Get("/status", h.RunStatus)
}

type triggerRequest struct {
	TenantID string     `json:"tenant_id"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

// TriggerIngest starts an ingestion run, optionally bounded by a publication
// window. ALREADY_RUNNING maps to 409.
func (h *PipelineHandler) TriggerIngest(c *fiber.Ctx) error {
	var req triggerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, apperr.BadRequest("invalid request body"))
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return response.Error(c, apperr.InvalidInput("tenant_id", "must be a UUID"))
	}

	var window *portin.IngestWindow
	if req.From != nil || req.To != nil {
		window = &portin.IngestWindow{From: req.From, To: req.To}
	}

	summary, err := h.ingestService.RunIngestionRange(c.Context(), tenantID, window)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, summary)
}

type reprocessRequest struct {
	TenantID    string     `json:"tenant_id"`
	Portal      string     `json:"portal,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	TriggeredBy string     `json:"triggered_by"`
}

// TriggerReprocess starts a bulk re-classification run.
func (h *PipelineHandler) TriggerReprocess(c *fiber.Ctx) error {
	var req reprocessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, apperr.BadRequest("invalid request body"))
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return response.Error(c, apperr.InvalidInput("tenant_id", "must be a UUID"))
	}
	triggeredBy, err := uuid.Parse(req.TriggeredBy)
	if err != nil {
		return response.Error(c, apperr.InvalidInput("triggered_by", "must be a UUID"))
	}

	result, err := h.reprocessService.Reprocess(c.Context(), &portin.ReprocessRequest{
		TenantID:    tenantID,
		Portal:      req.Portal,
		From:        req.From,
		To:          req.To,
		TriggeredBy: triggeredBy,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, result)
}

type dispatchRequest struct {
	TenantID  string   `json:"tenant_id"`
	RecordIDs []int64  `json:"record_ids,omitempty"`
	UserIDs   []string `json:"user_ids,omitempty"`
}

// TriggerDispatch fans qualifying records out to recipients.
func (h *PipelineHandler) TriggerDispatch(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, apperr.BadRequest("invalid request body"))
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return response.Error(c, apperr.InvalidInput("tenant_id", "must be a UUID"))
	}

	dispatch := &portin.DispatchRequest{TenantID: tenantID, RecordIDs: req.RecordIDs}
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, apperr.InvalidInput("user_ids", "must be UUIDs"))
		}
		dispatch.UserIDs = append(dispatch.UserIDs, id)
	}

	result, err := h.recommendService.Dispatch(c.Context(), dispatch)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, result)
}

// RunStatus reports whether a run is in flight.
func (h *PipelineHandler) RunStatus(c *fiber.Ctx) error {
	held, kind, since := h.guard.State()
	status := fiber.Map{"running": held}
	if held {
		status["kind"] = kind
		status["since"] = since.UTC().Format(time.RFC3339)
	}
	return response.OK(c, status)
}
