package handler

import (
	"net/http"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/middleware"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/service"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	receiptService service.ReceiptService
}

func NewReceiptHandler(receiptService service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

func (h *ReceiptHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyUser := middleware.RequireRole(model.RoleMember, model.RoleOfficer, model.RoleAuditor, model.RoleAdmin)
	auditors := middleware.RequireRole(model.RoleAuditor, model.RoleOfficer, model.RoleAdmin)

	receipts := router.Group("/api/receipts")
	{
		receipts.GET("/:id", anyUser, h.GetReceipt)
		receipts.PUT("/:id/audit", auditors, h.AuditReceipt)
	}
}

// GetReceipt returns one receipt with its derived total
// @Summary      Get a receipt
// @Tags         receipts
// @Security     BearerAuth
// @Produce      json
// @Router       /api/receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	result, err := h.receiptService.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AuditReceipt records the current user's sign-off on a receipt
// @Summary      Audit a receipt
// @Tags         receipts
// @Security     BearerAuth
// @Produce      json
// @Router       /api/receipts/{id}/audit [put]
func (h *ReceiptHandler) AuditReceipt(c *gin.Context) {
	result, err := h.receiptService.AuditReceipt(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
