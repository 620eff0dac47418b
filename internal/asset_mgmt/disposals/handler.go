package disposals

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/auth"
	"PINJAM-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

// r: 参照系, admin: 廃棄登録（管理者のみ）
func RegisterRoutes(r gin.IRoutes, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	admin.POST("/assets/:asset_id/disposals", h.CreateDisposal)
	r.GET("/disposals", h.ListDisposals)
	r.GET("/disposals/:disposal_ulid", h.GetDisposal)
}

func (h *Handler) CreateDisposal(c *gin.Context) {
	id, ok := httpx.ParseUintParam(c, "asset_id")
	if !ok {
		return
	}
	var req CreateDisposalRequest
	// body は省略可
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.svc.CreateDisposal(c.Request.Context(), auth.ActorID(c), id, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/disposals/"+res.DisposalULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetDisposal(c *gin.Context) {
	res, err := h.svc.GetDisposalByULID(c.Request.Context(), c.Param("disposal_ulid"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListDisposals(c *gin.Context) {
	var f DisposalFilter
	if v := c.Query("asset_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "asset_id must be a number"))
			return
		}
		f.AssetID = &id
	}
	var err error
	if f.From, err = httpx.ParseTimeQuery(c, "from"); err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	if f.To, err = httpx.ParseTimeQuery(c, "to"); err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	res, err := h.svc.ListDisposals(c.Request.Context(), f, httpx.ParsePage(c))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
