package borrowings

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/asset_mgmt/lifecycle"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/auth"
	"PINJAM-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 貸出リソース
	r.POST("/borrowings", h.CreateBorrowing)
	r.GET("/borrowings", h.ListBorrowings)
	r.GET("/borrowings/:key", h.GetBorrowing)
	r.GET("/borrowings/:key/events", h.ListEvents)

	// 状態遷移
	r.POST("/borrowings/:key/approve", h.ApproveBorrowing)
	r.POST("/borrowings/:key/reject", h.RejectBorrowing)
	r.POST("/borrowings/:key/return", h.ConfirmReturn)
}

// POST /borrowings
func (h *Handler) CreateBorrowing(c *gin.Context) {
	var req CreateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.CreateBorrowing(c.Request.Context(), auth.ActorID(c), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/borrowings/"+res.BorrowingULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListBorrowings(c *gin.Context) {
	f := Filter{}
	if v := c.Query("q"); v != "" {
		f.Q = &v
	}
	if v := c.Query("state"); v != "" {
		st := lifecycle.State(v)
		f.State = &st
	}
	if v := c.Query("borrower_id"); v != "" {
		f.BorrowerID = &v
	}
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

	res, err := h.svc.ListBorrowings(c.Request.Context(), f, httpx.ParsePage(c))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetBorrowing(c *gin.Context) {
	res, err := h.svc.GetBorrowing(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListEvents(c *gin.Context) {
	res, err := h.svc.ListEvents(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) ApproveBorrowing(c *gin.Context) {
	res, err := h.svc.ApproveBorrowing(c.Request.Context(), auth.ActorID(c), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RejectBorrowing(c *gin.Context) {
	res, err := h.svc.RejectBorrowing(c.Request.Context(), auth.ActorID(c), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /borrowings/:key/return
func (h *Handler) ConfirmReturn(c *gin.Context) {
	var req ConfirmReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json or missing condition"))
		return
	}
	res, err := h.svc.ConfirmReturn(c.Request.Context(), auth.ActorID(c), c.Param("key"), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.Header("Location", "/returns/"+res.Return.ReturnULID)
	c.JSON(http.StatusCreated, res)
}
