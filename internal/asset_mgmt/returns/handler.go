package returns

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/returns/:key", h.GetReturn)
	r.PATCH("/returns/:key", h.CorrectReturn)
	r.GET("/borrowings/:key/return", h.GetReturnByBorrowing)
}

func (h *Handler) GetReturn(c *gin.Context) {
	res, err := h.svc.GetReturn(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetReturnByBorrowing(c *gin.Context) {
	res, err := h.svc.GetReturnByBorrowing(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CorrectReturn(c *gin.Context) {
	var req CorrectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.svc.CorrectReturn(c.Request.Context(), auth.ActorID(c), c.Param("key"), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
