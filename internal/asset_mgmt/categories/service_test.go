package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db/dbtest"
)

func TestService_CreateListDisable(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(conn)
	ctx := context.Background()

	lap, err := svc.Create(ctx, CreateCategoryRequest{Name: " Laptop ", Code: "lap"})
	require.NoError(t, err)
	assert.Equal(t, "Laptop", lap.CategoryName)
	assert.Equal(t, "LAP", lap.CategoryCode)

	_, err = svc.Create(ctx, CreateCategoryRequest{Name: "Laptop 2", Code: "LAP"})
	assert.Equal(t, apierr.CodeDuplicate, apierr.CodeOf(err))

	proj, err := svc.Create(ctx, CreateCategoryRequest{Name: "Projector", Code: "PRJ"})
	require.NoError(t, err)

	require.NoError(t, svc.Disable(ctx, proj.CategoryID))

	enabled, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "LAP", enabled[0].CategoryCode)

	all, err := svc.List(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = svc.RequireEnabled(ctx, conn, proj.CategoryID)
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))
	assert.NoError(t, svc.RequireEnabled(ctx, conn, lap.CategoryID))
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(svc.RequireEnabled(ctx, conn, 999)))
}

func TestService_UpdateAndNotFound(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(conn)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateCategoryRequest{Name: "Camera", Code: "CAM"})
	require.NoError(t, err)

	got, err := svc.Update(ctx, c.CategoryID, UpdateCategoryRequest{Name: "Kamera", Code: "CAM"})
	require.NoError(t, err)
	assert.Equal(t, "Kamera", got.CategoryName)

	_, err = svc.Update(ctx, 404, UpdateCategoryRequest{Name: "x", Code: "X"})
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))

	_, err = svc.Create(ctx, CreateCategoryRequest{Name: " ", Code: "X"})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(svc.Disable(ctx, 404)))
}
