// Package httpx holds the small request parsing helpers every handler repeats.
package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
)

const DateLayout = "2006-01-02"

func ParseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func ParsePage(c *gin.Context) db.Page {
	return db.Page{
		Limit:  ParseIntDefault(c.Query("limit"), db.DefaultLimit),
		Offset: ParseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
}

// ParseUintParam writes a 400 and returns false when the path param is not a positive integer.
func ParseUintParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, name+" must be a positive number"))
		return 0, false
	}
	return id, true
}

// ParseTimeQuery accepts RFC3339 or a plain date. Empty means not set.
func ParseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, apierr.ErrInvalid(name + " must be RFC3339 or YYYY-MM-DD")
	}
	return &t, nil
}
