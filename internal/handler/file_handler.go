package handler

import (
	"io"
	"net/http"

	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/filestore"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/middleware"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/internal/model"
	"github.com/IEEE-at-UC-San-Diego/ieeeatucsd-org-sub008/pkg/response"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	files filestore.Store
}

func NewFileHandler(files filestore.Store) *FileHandler {
	return &FileHandler{files: files}
}

func (h *FileHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyUser := middleware.RequireRole(model.RoleMember, model.RoleOfficer, model.RoleAuditor, model.RoleAdmin)

	files := router.Group("/api/files")
	{
		files.POST("", anyUser, h.Upload)
		// Download is token-authenticated: the signed URL is the credential
		files.GET("/:ref", h.Download)
	}
}

// Upload stores a receipt attachment and returns its opaque ref
// @Summary      Upload an attachment
// @Tags         files
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Router       /api/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file field is required"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	defer f.Close()

	ref, err := h.files.Save(fileHeader.Filename, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"ref": ref}))
}

// Download streams a stored attachment after verifying the URL token
// @Summary      Download an attachment
// @Tags         files
// @Produce      octet-stream
// @Router       /api/files/{ref} [get]
func (h *FileHandler) Download(c *gin.Context) {
	ref := c.Param("ref")

	if err := h.files.VerifyToken(c.Query("token"), ref); err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	rc, err := h.files.Open(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "attachment not found"))
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", "attachment; filename="+ref)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
