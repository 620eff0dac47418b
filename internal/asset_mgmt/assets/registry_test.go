package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db/dbtest"
)

func TestRegistry_MarkBorrowed_IsCompareAndSwap(t *testing.T) {
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Laptop", "LAP")
	id := dbtest.SeedAsset(t, conn, cat, "ThinkPad X1")
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.MarkBorrowed(ctx, conn, id))
	assert.Equal(t, "Borrowed", dbtest.Availability(t, conn, id))

	err := r.MarkBorrowed(ctx, conn, id)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(err))
	var api *apierr.APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, "Borrowed", api.State)
	assert.Equal(t, "markBorrowed", api.Transition)

	err = r.MarkBorrowed(ctx, conn, 9999)
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestRegistry_MarkReturned_UsesConditionTable(t *testing.T) {
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Projector", "PRJ")
	good := dbtest.SeedAsset(t, conn, cat, "Epson A")
	bad := dbtest.SeedAsset(t, conn, cat, "Epson B")
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.MarkBorrowed(ctx, conn, good))
	require.NoError(t, r.MarkBorrowed(ctx, conn, bad))

	require.NoError(t, r.MarkReturned(ctx, conn, good, condition.Baik))
	require.NoError(t, r.MarkReturned(ctx, conn, bad, condition.RusakRingan))

	a, err := r.Get(ctx, conn, good)
	require.NoError(t, err)
	assert.Equal(t, condition.Available, a.Availability)
	assert.Equal(t, "Baik", a.Condition)

	b, err := r.Get(ctx, conn, bad)
	require.NoError(t, err)
	assert.Equal(t, condition.UnderRepair, b.Availability)
	assert.Equal(t, "Rusak Ringan", b.Condition)

	// 貸出中でなければ返却処理はできない
	err = r.MarkReturned(ctx, conn, good, condition.Baik)
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(err))
	err = r.MarkReturned(ctx, conn, 424242, condition.Baik)
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestRegistry_Release(t *testing.T) {
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Camera", "CAM")
	id := dbtest.SeedAsset(t, conn, cat, "Sony A7")
	r := NewRegistry()
	ctx := context.Background()

	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(r.Release(ctx, conn, id)))
	require.NoError(t, r.MarkBorrowed(ctx, conn, id))
	require.NoError(t, r.Release(ctx, conn, id))
	assert.Equal(t, "Available", dbtest.Availability(t, conn, id))
}

func TestRegistry_ReassessAndRetire_RefusedWhileBorrowed(t *testing.T) {
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Tools", "TLS")
	id := dbtest.SeedAsset(t, conn, cat, "Drill")
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.MarkBorrowed(ctx, conn, id))
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(r.Reassess(ctx, conn, id, condition.Baik)))
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(r.Retire(ctx, conn, id)))

	require.NoError(t, r.MarkReturned(ctx, conn, id, condition.Perbaikan))
	assert.Equal(t, "UnderRepair", dbtest.Availability(t, conn, id))

	// 修理完了
	require.NoError(t, r.Reassess(ctx, conn, id, condition.Baik))
	assert.Equal(t, "Available", dbtest.Availability(t, conn, id))

	require.NoError(t, r.Retire(ctx, conn, id))
	a, err := r.Get(ctx, conn, id)
	require.NoError(t, err)
	assert.True(t, a.Removed())
	assert.False(t, a.Lendable())

	// 除却後は貸出も再除却もできない
	err = r.MarkBorrowed(ctx, conn, id)
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(err))
	assert.Contains(t, err.Error(), "removed")
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(r.Retire(ctx, conn, id)))
}

func TestRegistry_EmitsSpans(t *testing.T) {
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Laptop", "LAP")
	id := dbtest.SeedAsset(t, conn, cat, "MacBook")

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	r := NewRegistry()
	r.tracer = tp.Tracer("test")

	require.NoError(t, r.MarkBorrowed(context.Background(), conn, id))

	names := []string{}
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "assets.markBorrowed")
}
