package categories

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the read routes on r and the administrative ones on admin.
func RegisterRoutes(r gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/categories", h.List)
	r.GET("/categories/:id", h.Get)

	admin.POST("/categories", h.Create)
	admin.PUT("/categories/:id", h.Update)
	admin.DELETE("/categories/:id", h.Disable)
}

func parseID(c *gin.Context) (uint, bool) {
	idU64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || idU64 == 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid id"))
		return 0, false
	}
	return uint(idU64), true
}

func (h *Handler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), c.Query("all"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json"))
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/categories/"+strconv.FormatUint(uint64(resp.CategoryID), 10))
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json"))
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Disable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Disable(c.Request.Context(), id); err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}
