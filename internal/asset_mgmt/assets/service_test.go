package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PINJAM-backend/internal/asset_mgmt/categories"
	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/db/dbtest"
)

func newTestService(t *testing.T) (*Service, uint) {
	t.Helper()
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Laptop", "LAP")
	return NewService(conn, NewRegistry(), categories.NewService(conn)), cat
}

func strPtr(s string) *string { return &s }

func TestService_CreateAsset(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: "ThinkPad", CategoryID: cat})
	require.NoError(t, err)
	assert.Equal(t, condition.Available, a.Availability)
	assert.Equal(t, "Baik", a.Condition)
	assert.Equal(t, "Laptop", a.CategoryName)

	broken, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: "Old ThinkPad", CategoryID: cat, Condition: strPtr("rusak berat")})
	require.NoError(t, err)
	assert.Equal(t, condition.UnderRepair, broken.Availability)

	_, err = svc.CreateAsset(ctx, CreateAssetRequest{Name: "X", CategoryID: 999})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	_, err = svc.CreateAsset(ctx, CreateAssetRequest{Name: "Y", CategoryID: cat, Condition: strPtr("sparkly")})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
}

func TestService_ListAssets_Filters(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	for _, n := range []string{"Dell Latitude", "Dell XPS", "HP EliteBook"} {
		_, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: n, CategoryID: cat})
		require.NoError(t, err)
	}
	_, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: "Dell Broken", CategoryID: cat, Condition: strPtr("Rusak")})
	require.NoError(t, err)

	res, err := svc.ListAssets(ctx, AssetSearchQuery{Name: strPtr("dell")}, db.Page{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.NextOffset)

	avail := condition.UnderRepair
	res, err = svc.ListAssets(ctx, AssetSearchQuery{Availability: &avail}, db.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Dell Broken", res.Items[0].Name)
	assert.Equal(t, 0, res.NextOffset)

	for _, n := range []string{"Mic A_1", "Mic AB1"} {
		_, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: n, CategoryID: cat})
		require.NoError(t, err)
	}
	res, err = svc.ListAssets(ctx, AssetSearchQuery{Name: strPtr("a_1")}, db.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Mic A_1", res.Items[0].Name)
}

func TestService_UpdateAsset_ConditionGoesThroughRegistry(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: "Tripod", CategoryID: cat, Condition: strPtr("Perbaikan")})
	require.NoError(t, err)

	got, err := svc.UpdateAsset(ctx, a.AssetID, UpdateAssetRequest{Condition: strPtr("Baik"), Note: strPtr("fixed leg")})
	require.NoError(t, err)
	assert.Equal(t, condition.Available, got.Availability)
	require.NotNil(t, got.Note)
	assert.Equal(t, "fixed leg", *got.Note)

	require.NoError(t, svc.registry.MarkBorrowed(ctx, svc.db, a.AssetID))
	_, err = svc.UpdateAsset(ctx, a.AssetID, UpdateAssetRequest{Condition: strPtr("Rusak")})
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(err))

	// 失敗したTxはメタ情報も巻き戻す
	_, err = svc.UpdateAsset(ctx, a.AssetID, UpdateAssetRequest{Name: strPtr("Renamed"), Condition: strPtr("Rusak")})
	require.Error(t, err)
	cur, err := svc.GetAsset(ctx, a.AssetID)
	require.NoError(t, err)
	assert.Equal(t, "Tripod", cur.Name)

	_, err = svc.UpdateAsset(ctx, 777, UpdateAssetRequest{Name: strPtr("nope")})
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestHandler_GetAsset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, cat := newTestService(t)
	a, err := svc.CreateAsset(context.Background(), CreateAssetRequest{Name: "Mic", CategoryID: cat})
	require.NoError(t, err)

	r := gin.New()
	g := r.Group("/api/v2")
	RegisterRoutes(g, g, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/assets/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Mic"`)
	assert.EqualValues(t, 1, a.AssetID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/assets/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/assets/55", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/assets?availability=Lost", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/assets", strings.NewReader(`{"name":"Speaker","category_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/assets/2", w.Header().Get("Location"))
}
