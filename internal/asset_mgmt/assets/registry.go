package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/idgen"
)

// Registry owns assets.availability. Every transition is a compare-and-swap
// UPDATE run on the caller's transaction, so two callers racing for the same
// asset serialize on the row and the loser gets a Conflict.
type Registry struct {
	clock  idgen.Clock
	tracer trace.Tracer
}

func NewRegistry() *Registry {
	return &Registry{
		clock:  idgen.SystemClock{},
		tracer: otel.Tracer("pinjam/assets"),
	}
}

const selectAsset = `
	SELECT a.asset_id, a.name, a.category_id, COALESCE(c.category_name, ''), a.condition_label,
		a.availability, a.note, a.created_at, a.updated_at, a.removed_at
	FROM assets a
	LEFT JOIN asset_categories c ON c.category_id = a.category_id`

type rowScanner interface{ Scan(dest ...any) error }

func scanAsset(row rowScanner) (*Asset, error) {
	var a Asset
	var availability string
	if err := row.Scan(
		&a.AssetID, &a.Name, &a.CategoryID, &a.CategoryName, &a.Condition,
		&availability, &a.Note, &a.CreatedAt, &a.UpdatedAt, &a.RemovedAt,
	); err != nil {
		return nil, err
	}
	a.Availability = condition.Availability(availability)
	return &a, nil
}

func idString(id uint64) string { return strconv.FormatUint(id, 10) }

// Get returns a snapshot of the asset as seen by q.
func (r *Registry) Get(ctx context.Context, q db.DBTX, id uint64) (*Asset, error) {
	ctx, span := r.tracer.Start(ctx, "assets.get",
		trace.WithAttributes(attribute.Int64("asset.id", int64(id))))
	defer span.End()

	a, err := scanAsset(q.QueryRowContext(ctx, selectAsset+` WHERE a.asset_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("asset", idString(id))
		}
		span.RecordError(err)
		return nil, apierr.ErrInternal("get asset", err)
	}
	return a, nil
}

// MarkBorrowed flips Available -> Borrowed.
func (r *Registry) MarkBorrowed(ctx context.Context, q db.DBTX, id uint64) error {
	return r.swap(ctx, q, id, "markBorrowed", condition.Available, condition.Borrowed, nil)
}

// MarkReturned closes a borrowing on the asset side. The observed condition
// decides between Available and UnderRepair and becomes the asset's label.
func (r *Registry) MarkReturned(ctx context.Context, q db.DBTX, id uint64, label condition.Label) error {
	return r.swap(ctx, q, id, "markReturned", condition.Borrowed, label.Availability(), &label)
}

// Release gives a borrowed asset back without an inspection (rejected request).
func (r *Registry) Release(ctx context.Context, q db.DBTX, id uint64) error {
	return r.swap(ctx, q, id, "release", condition.Borrowed, condition.Available, nil)
}

func (r *Registry) swap(ctx context.Context, q db.DBTX, id uint64, op string, from, to condition.Availability, label *condition.Label) error {
	ctx, span := r.tracer.Start(ctx, "assets."+op,
		trace.WithAttributes(
			attribute.Int64("asset.id", int64(id)),
			attribute.String("availability.from", string(from)),
			attribute.String("availability.to", string(to)),
		),
	)
	defer span.End()

	const stmt = `
		UPDATE assets
		SET availability = ?, condition_label = COALESCE(?, condition_label), updated_at = ?
		WHERE asset_id = ? AND availability = ? AND removed_at IS NULL`

	var lbl sql.NullString
	if label != nil {
		lbl = sql.NullString{String: string(*label), Valid: true}
	}
	res, err := q.ExecContext(ctx, stmt, string(to), lbl, r.clock.Now(), id, string(from))
	if err != nil {
		span.RecordError(err)
		return apierr.ErrInternal("update asset availability", err)
	}
	ok, err := db.AffectedOne(res)
	if err != nil {
		return apierr.ErrInternal("update asset availability", err)
	}
	if ok {
		return nil
	}

	span.SetAttributes(attribute.Bool("conflict.detected", true))
	return r.explain(ctx, q, id, op)
}

// explain builds the error for a CAS that matched no row.
func (r *Registry) explain(ctx context.Context, q db.DBTX, id uint64, op string) error {
	cur, err := r.Get(ctx, q, id)
	if err != nil {
		return err
	}
	if cur.Removed() {
		return apierr.ErrConflict("asset has been removed").On("asset", idString(id))
	}
	e := apierr.ErrConflict(fmt.Sprintf("asset is %s", cur.Availability)).On("asset", idString(id))
	e.Transition, e.State = op, string(cur.Availability)
	return e
}

// Reassess applies the condition table to an asset that is not on loan.
// It backs return corrections and repair sign-off.
func (r *Registry) Reassess(ctx context.Context, q db.DBTX, id uint64, label condition.Label) error {
	ctx, span := r.tracer.Start(ctx, "assets.reassess",
		trace.WithAttributes(
			attribute.Int64("asset.id", int64(id)),
			attribute.String("condition", string(label)),
		),
	)
	defer span.End()

	const stmt = `
		UPDATE assets
		SET availability = ?, condition_label = ?, updated_at = ?
		WHERE asset_id = ? AND availability <> ? AND removed_at IS NULL`
	res, err := q.ExecContext(ctx, stmt, string(label.Availability()), string(label), r.clock.Now(), id, string(condition.Borrowed))
	if err != nil {
		span.RecordError(err)
		return apierr.ErrInternal("reassess asset", err)
	}
	if ok, err := db.AffectedOne(res); err != nil {
		return apierr.ErrInternal("reassess asset", err)
	} else if ok {
		return nil
	}
	return r.explain(ctx, q, id, "reassess")
}

// Retire soft-removes the asset. Assets on loan cannot be retired.
func (r *Registry) Retire(ctx context.Context, q db.DBTX, id uint64) error {
	ctx, span := r.tracer.Start(ctx, "assets.retire",
		trace.WithAttributes(attribute.Int64("asset.id", int64(id))))
	defer span.End()

	now := r.clock.Now()
	const stmt = `
		UPDATE assets
		SET removed_at = ?, updated_at = ?
		WHERE asset_id = ? AND availability <> ? AND removed_at IS NULL`
	res, err := q.ExecContext(ctx, stmt, now, now, id, string(condition.Borrowed))
	if err != nil {
		span.RecordError(err)
		return apierr.ErrInternal("retire asset", err)
	}
	if ok, err := db.AffectedOne(res); err != nil {
		return apierr.ErrInternal("retire asset", err)
	} else if ok {
		return nil
	}
	return r.explain(ctx, q, id, "retire")
}
