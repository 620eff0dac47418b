package reports

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/httpx"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc, now: time.Now}
	r.GET("/reports/returns", h.Summary)
	r.GET("/reports/returns.csv", h.ExportCSV)
}

// window reads ?from=&to=&outcome=. 省略時は直近30日。
func (h *Handler) window(c *gin.Context) (Window, error) {
	var w Window
	to, err := httpx.ParseTimeQuery(c, "to")
	if err != nil {
		return w, err
	}
	from, err := httpx.ParseTimeQuery(c, "from")
	if err != nil {
		return w, err
	}
	if to != nil {
		w.To = *to
	} else {
		w.To = h.now().UTC()
	}
	if from != nil {
		w.From = *from
	} else {
		w.From = w.To.Add(-DefaultWindow)
	}
	if v := c.Query("outcome"); v != "" {
		o, ok := condition.ParseOutcome(v)
		if !ok {
			return w, apierr.ErrInvalid("outcome must be one of Sesuai, Rusak, Hilang")
		}
		w.Outcome = &o
	}
	return w, nil
}

func (h *Handler) Summary(c *gin.Context) {
	w, err := h.window(c)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	res, err := h.svc.Summary(c.Request.Context(), w)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	w, err := h.window(c)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	if err := validate(w); err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	name := fmt.Sprintf("returns_%s_%s.csv", w.From.Format("20060102"), w.To.Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	// ヘッダ送信後のエラーはステータスを変えられないのでログのみ
	if err := h.svc.ExportCSV(c.Request.Context(), w, c.Writer); err != nil {
		log.Printf("[ERROR] export returns csv: %v", err)
	}
}
