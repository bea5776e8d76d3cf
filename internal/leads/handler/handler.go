// Package handler exposes the leads engine over HTTP.
package handler

import (
	"net/http"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/internal/leads/transport"
	"salesdesk_backend/platform/httpkit"
	"salesdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/workflow", h.GetWorkflow)
	rg.GET("/:id/timeline", h.Timeline)
	rg.POST("/:id/qualify", h.Qualify)
	rg.PATCH("/:id/stage", h.OverrideStage)
	rg.GET("/:id/forecast", h.Forecast)
	rg.POST("/:id/assign", h.Assign)
	rg.POST("/:id/assign/auto", h.AutoAssign)
	rg.GET("/:id/recommendations", h.Recommendations)
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	wf, err := h.svc.GetWorkflow(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToWorkflowResponse(wf))
}

func (h *Handler) Timeline(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	history, err := h.svc.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToTimelineResponse(history))
}

func (h *Handler) Qualify(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	// An absent body is a plain re-score from lead attributes.
	var req transport.QualifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	wf, err := h.svc.Qualify(c.Request.Context(), id, req.Criteria(), actor(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToWorkflowResponse(wf))
}

func (h *Handler) OverrideStage(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.OverrideStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	wf, err := h.svc.OverrideStage(c.Request.Context(), id, domain.Stage(req.Stage), actor(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToWorkflowResponse(wf))
}

func (h *Handler) Forecast(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	est, err := h.svc.Forecast(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToForecastResponse(est))
}

func (h *Handler) Assign(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	assigned, err := h.svc.ManualAssign(c.Request.Context(), id, req.RepID, req.Force)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssignmentResponse{
		RepID:    assigned.Rep.ID,
		RepName:  assigned.Rep.Name,
		Overflow: assigned.Overflow,
	})
}

func (h *Handler) AutoAssign(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.AutoAssignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}
	if req.Urgency == "" {
		req.Urgency = "normal"
	}

	assigned, err := h.svc.AutoAssign(c.Request.Context(), id, req.Urgency)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AssignmentResponse{
		RepID:    assigned.Rep.ID,
		RepName:  assigned.Rep.Name,
		Overflow: assigned.Overflow,
	})
}

func (h *Handler) Recommendations(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	recs, err := h.svc.Recommend(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRecommendationResponses(recs))
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) string {
	if v := c.GetHeader("X-Actor"); v != "" {
		return v
	}
	return "system"
}
