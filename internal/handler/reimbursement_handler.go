package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/middleware"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/service"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/pkg/pagination"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReimbursementHandler struct {
	reimbService   service.ReimbursementService
	statusService  service.StatusService
	queryService   service.QueryService
	journalService service.JournalService
}

func NewReimbursementHandler(
	reimbService service.ReimbursementService,
	statusService service.StatusService,
	queryService service.QueryService,
	journalService service.JournalService,
) *ReimbursementHandler {
	return &ReimbursementHandler{
		reimbService:   reimbService,
		statusService:  statusService,
		queryService:   queryService,
		journalService: journalService,
	}
}

func (h *ReimbursementHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyUser := middleware.RequireRole(model.RoleMember, model.RoleOfficer, model.RoleAuditor, model.RoleAdmin)
	reviewers := middleware.RequireRole(model.RoleOfficer, model.RoleAuditor, model.RoleAdmin)
	officers := middleware.RequireRole(model.RoleOfficer, model.RoleAdmin)

	reimbs := router.Group("/api/reimbursements")
	{
		reimbs.POST("", anyUser, h.CreateReimbursement)
		reimbs.GET("", anyUser, h.ListReimbursements)
		reimbs.GET("/:id", anyUser, h.GetReimbursement)
		reimbs.PUT("/:id/status", officers, h.UpdateStatus)
		reimbs.PUT("/:id/reject", officers, h.Reject)
		reimbs.POST("/:id/notes", reviewers, h.AddNote)
		reimbs.GET("/:id/notes", anyUser, h.GetNotes)
		reimbs.GET("/:id/logs", anyUser, h.GetLogs)
	}
}

// CreateReimbursement submits a new claim with its receipts
// @Summary      Submit a reimbursement
// @Tags         reimbursements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Router       /api/reimbursements [post]
func (h *ReimbursementHandler) CreateReimbursement(c *gin.Context) {
	var req service.CreateReimbursementDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.reimbService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListReimbursements returns the filtered, sorted claim list
// @Summary      List reimbursements
// @Tags         reimbursements
// @Security     BearerAuth
// @Produce      json
// @Router       /api/reimbursements [get]
func (h *ReimbursementHandler) ListReimbursements(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.ReimbursementFilter{
		Statuses:     splitParam(c.Query("status")),
		Departments:  splitParam(c.Query("department")),
		Range:        c.DefaultQuery("range", service.RangeAll),
		HidePaid:     c.DefaultQuery("hide_paid", "true") == "true",
		HideRejected: c.DefaultQuery("hide_rejected", "true") == "true",
		SortField:    c.DefaultQuery("sort", "date_of_purchase"),
		SortDesc:     c.DefaultQuery("order", "desc") == "desc",
		Search:       c.Query("search"),
		Page:         params.Page,
		Limit:        params.Limit,
	}

	reimbs, total, err := h.queryService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   reimbs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetReimbursement returns one claim with receipts and resolved file URLs
// @Summary      Get a reimbursement
// @Tags         reimbursements
// @Security     BearerAuth
// @Produce      json
// @Router       /api/reimbursements/{id} [get]
func (h *ReimbursementHandler) GetReimbursement(c *gin.Context) {
	result, err := h.reimbService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type updateStatusDTO struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus runs one state-machine transition
// @Summary      Transition a reimbursement's status
// @Tags         reimbursements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Router       /api/reimbursements/{id}/status [put]
func (h *ReimbursementHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.statusService.Transition(c.Request.Context(), c.Param("id"), req.Status, middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type rejectDTO struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject rejects a claim with a required reason
// @Summary      Reject a reimbursement
// @Tags         reimbursements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Router       /api/reimbursements/{id}/reject [put]
func (h *ReimbursementHandler) Reject(c *gin.Context) {
	var req rejectDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "rejection reason is required"))
		return
	}

	result, err := h.statusService.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Reason)
	if err != nil {
		// The claim is rejected but the reason note was lost — degraded
		// success, not failure.
		if errors.Is(err, service.ErrReasonNoteFailed) {
			c.JSON(http.StatusOK, response.SuccessWithWarning(http.StatusOK, result, service.ErrReasonNoteFailed.Error()))
			return
		}
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type addNoteDTO struct {
	Note      string `json:"note" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

// AddNote appends a human-authored note to the claim's journal
// @Summary      Add an audit note
// @Tags         reimbursements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Router       /api/reimbursements/{id}/notes [post]
func (h *ReimbursementHandler) AddNote(c *gin.Context) {
	var req addNoteDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.journalService.AddNote(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Note, req.IsPrivate)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetNotes returns the notes stream, newest first. Private notes are only
// included for reviewer roles.
// @Summary      Get audit notes
// @Tags         reimbursements
// @Security     BearerAuth
// @Produce      json
// @Router       /api/reimbursements/{id}/notes [get]
func (h *ReimbursementHandler) GetNotes(c *gin.Context) {
	params := pagination.Parse(c)

	role := middleware.CurrentUserRole(c)
	includePrivate := role == model.RoleOfficer || role == model.RoleAuditor || role == model.RoleAdmin

	notes, total, err := h.journalService.GetNotes(c.Request.Context(), c.Param("id"), includePrivate, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"notes": notes,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetLogs returns the system log stream, newest first
// @Summary      Get audit logs
// @Tags         reimbursements
// @Security     BearerAuth
// @Produce      json
// @Router       /api/reimbursements/{id}/logs [get]
func (h *ReimbursementHandler) GetLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.journalService.GetLogs(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// statusFor maps workflow sentinels onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFullyAudited),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
