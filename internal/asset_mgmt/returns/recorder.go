package returns

import (
	"context"
	"database/sql"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"PINJAM-backend/internal/asset_mgmt/assets"
	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/asset_mgmt/lifecycle"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/idgen"
)

// Recorder writes the single Return of a borrowing and updates the asset in
// the same transaction. The caller flips the borrowing state on that
// transaction too, so the three writes commit or roll back together.
type Recorder struct {
	store    *Store
	registry *assets.Registry
	clock    idgen.Clock
	id       idgen.IDGen
	tracer   trace.Tracer
}

func NewRecorder(conn *sql.DB, registry *assets.Registry) *Recorder {
	return &Recorder{
		store:    NewStore(conn),
		registry: registry,
		clock:    idgen.SystemClock{},
		id:       idgen.ULIDGen{},
		tracer:   otel.Tracer("pinjam/returns"),
	}
}

func (r *Recorder) Record(ctx context.Context, tx db.DBTX, sub Subject, in RecordInput) (*Return, error) {
	ctx, span := r.tracer.Start(ctx, "returns.record",
		trace.WithAttributes(
			attribute.String("borrowing.id", sub.BorrowingULID),
			attribute.Int64("asset.id", int64(sub.AssetID)),
			attribute.String("borrowing.state", string(sub.State)),
		),
	)
	defer span.End()

	label, ok := condition.Parse(in.Condition)
	if !ok {
		return nil, apierr.ErrInvalid("unrecognized condition: " + in.Condition).On("borrowing", sub.BorrowingULID)
	}

	// 返却済みなら重複（状態チェックより先に判定する）
	exists, err := r.store.ExistsForBorrowing(ctx, tx, sub.BorrowingID)
	if err != nil {
		return nil, apierr.ErrInternal("check existing return", err)
	}
	if exists {
		return nil, apierr.ErrDuplicate("borrowing", sub.BorrowingULID, "return already recorded")
	}
	if sub.State != lifecycle.From(lifecycle.Return) {
		return nil, apierr.ErrInvalidState("borrowing", sub.BorrowingULID, string(lifecycle.Return), string(sub.State))
	}

	now := r.clock.Now()
	m := &Return{
		ReturnULID:    r.id.NewULID(now),
		BorrowingID:   sub.BorrowingID,
		BorrowingULID: sub.BorrowingULID,
		AssetID:       sub.AssetID,
		Condition:     string(label),
		Note:          toNullString(in.Note),
		ProcessedBy:   toNullString(&in.ProcessedBy),
		ReturnedAt:    now,
	}
	if err := r.insert(ctx, tx, m); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.registry.MarkReturned(ctx, tx, sub.AssetID, label); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("return.id", m.ReturnULID), attribute.String("condition", m.Condition))
	return m, nil
}

// insert maps the UNIQUE(borrowing_id) violation of a racing submission to Duplicate.
func (r *Recorder) insert(ctx context.Context, tx db.DBTX, m *Return) error {
	if err := r.store.Insert(ctx, tx, m); err != nil {
		if db.IsUniqueViolation(err) {
			return apierr.ErrDuplicate("borrowing", m.BorrowingULID, "return already recorded")
		}
		return apierr.ErrInternal("insert return", err)
	}
	return nil
}

// helpers

func toNullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}
