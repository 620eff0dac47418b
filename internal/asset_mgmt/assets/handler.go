package assets

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/assets", h.ListAssets)
	r.GET("/assets/:asset_id", h.GetAsset)

	admin.POST("/assets", h.CreateAsset)
	admin.PATCH("/assets/:asset_id", h.UpdateAsset)
}

func (h *Handler) CreateAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[WARN] CreateAsset: bind error: %v", err)
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.svc.CreateAsset(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/assets/"+strconv.FormatUint(res.AssetID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetAsset(c *gin.Context) {
	id, ok := httpx.ParseUintParam(c, "asset_id")
	if !ok {
		return
	}
	res, err := h.svc.GetAsset(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListAssets(c *gin.Context) {
	var q AssetSearchQuery
	if v := c.Query("name"); v != "" {
		q.Name = &v
	}
	if v := c.Query("category_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			u := uint(n)
			q.CategoryID = &u
		}
	}
	if v := c.Query("availability"); v != "" {
		a := condition.Availability(v)
		if !a.Valid() {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "unknown availability"))
			return
		}
		q.Availability = &a
	}
	if v := c.Query("include_removed"); v == "true" || v == "1" {
		q.IncludeRemoved = true
	}

	res, err := h.svc.ListAssets(c.Request.Context(), q, httpx.ParsePage(c))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateAsset(c *gin.Context) {
	id, ok := httpx.ParseUintParam(c, "asset_id")
	if !ok {
		return
	}
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.svc.UpdateAsset(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
