package borrowings

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"PINJAM-backend/internal/asset_mgmt/assets"
	"PINJAM-backend/internal/asset_mgmt/lifecycle"
	"PINJAM-backend/internal/asset_mgmt/returns"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/httpx"
	"PINJAM-backend/internal/platform/idgen"
)

// ===== インターフェース群 =====

// Authorizer answers the capability questions the engine asks before any write.
type Authorizer interface {
	CanBorrow(ctx context.Context, userID string) (bool, error)
	CanApprove(ctx context.Context, userID string) (bool, error)
	CanReturn(ctx context.Context, userID, borrowingID string) (bool, error)
}

// Publisher receives committed transitions. It must not block the caller.
type Publisher interface {
	Publish(ev lifecycle.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(lifecycle.Event) {}

// ===== Service本体 =====

type Service struct {
	db       *sql.DB
	store    *Store
	registry *assets.Registry
	recorder *returns.Recorder
	authz    Authorizer
	pub      Publisher
	clock    idgen.Clock
	id       idgen.IDGen
	tracer   trace.Tracer
}

func NewService(conn *sql.DB, registry *assets.Registry, recorder *returns.Recorder, authz Authorizer, pub Publisher) *Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Service{
		db:       conn,
		store:    NewStore(conn),
		registry: registry,
		recorder: recorder,
		authz:    authz,
		pub:      pub,
		clock:    idgen.SystemClock{},
		id:       idgen.ULIDGen{},
		tracer:   otel.Tracer("pinjam/borrowings"),
	}
}

func allow(action string, ok bool, err error) error {
	if err != nil {
		return apierr.ErrInternal("authorize "+action, err)
	}
	if !ok {
		return apierr.ErrForbidden(action)
	}
	return nil
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(httpx.DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, apierr.ErrInvalid(field + " must be YYYY-MM-DD")
	}
	return t, nil
}

// 貸出申請
// The asset is reserved (Borrowed) from the moment the request is Pending.
func (s *Service) CreateBorrowing(ctx context.Context, actorID string, in CreateBorrowingRequest) (BorrowingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "borrowings.create",
		trace.WithAttributes(attribute.Int64("asset.id", int64(in.AssetID)), attribute.String("actor.id", actorID)))
	defer span.End()

	if in.AssetID == 0 {
		return BorrowingResponse{}, apierr.ErrInvalid("asset_id is required")
	}
	borrowDate, err := parseDate("borrow_date", in.BorrowDate)
	if err != nil {
		return BorrowingResponse{}, err
	}
	var requested sql.NullTime
	if in.RequestedReturnDate != nil && strings.TrimSpace(*in.RequestedReturnDate) != "" {
		t, err := parseDate("requested_return_date", *in.RequestedReturnDate)
		if err != nil {
			return BorrowingResponse{}, err
		}
		if t.Before(borrowDate) {
			return BorrowingResponse{}, apierr.ErrInvalid("requested_return_date must not be before borrow_date")
		}
		requested = sql.NullTime{Time: t, Valid: true}
	}

	ok, err := s.authz.CanBorrow(ctx, actorID)
	if err := allow("borrow", ok, err); err != nil {
		return BorrowingResponse{}, err
	}

	now := s.clock.Now()
	m := &Borrowing{
		BorrowingULID:       s.id.NewULID(now),
		BorrowerID:          actorID,
		AssetID:             in.AssetID,
		State:               lifecycle.Pending,
		BorrowDate:          borrowDate,
		RequestedReturnDate: requested,
		Note:                toNullString(in.Note),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := s.registry.Get(ctx, tx, in.AssetID)
		if err != nil {
			return err
		}
		if !a.Lendable() {
			if a.Removed() {
				return apierr.ErrConflict("asset has been removed").On("asset", idString(a.AssetID))
			}
			e := apierr.ErrConflict("asset is " + string(a.Availability)).On("asset", idString(a.AssetID))
			e.Transition, e.State = string(lifecycle.Create), string(a.Availability)
			return e
		}
		if err := s.store.Insert(ctx, tx, m); err != nil {
			if db.IsUniqueViolation(err) {
				return apierr.ErrConflict("asset already has an open borrowing").On("asset", idString(in.AssetID))
			}
			return apierr.ErrInternal("insert borrowing", err)
		}
		if err := s.registry.MarkBorrowed(ctx, tx, in.AssetID); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, m.BorrowingID, "", lifecycle.Pending, actorID, now)
	})
	if err != nil {
		span.RecordError(err)
		return BorrowingResponse{}, err
	}

	log.Printf("[INFO] borrowing %s created by %s for asset %d", m.BorrowingULID, actorID, in.AssetID)
	s.publish(m.BorrowingULID, in.AssetID, "", lifecycle.Pending, actorID, now)
	return s.GetBorrowing(ctx, m.BorrowingULID)
}

// 承認
func (s *Service) ApproveBorrowing(ctx context.Context, actorID, key string) (BorrowingResponse, error) {
	return s.decide(ctx, actorID, key, lifecycle.Approve)
}

// 却下（資産は貸出可能に戻る）
func (s *Service) RejectBorrowing(ctx context.Context, actorID, key string) (BorrowingResponse, error) {
	return s.decide(ctx, actorID, key, lifecycle.Reject)
}

func (s *Service) decide(ctx context.Context, actorID, key string, t lifecycle.Transition) (BorrowingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "borrowings."+string(t),
		trace.WithAttributes(attribute.String("borrowing.key", key), attribute.String("actor.id", actorID)))
	defer span.End()

	ok, err := s.authz.CanApprove(ctx, actorID)
	if err := allow(string(t), ok, err); err != nil {
		return BorrowingResponse{}, err
	}

	var b *Borrowing
	var to lifecycle.State
	now := s.clock.Now()
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		b, err = s.lock(ctx, tx, key)
		if err != nil {
			return err
		}
		next, ok := lifecycle.Next(b.State, t)
		if !ok {
			return apierr.ErrInvalidState("borrowing", b.BorrowingULID, string(t), string(b.State))
		}
		to = next

		done, err := s.store.Decide(ctx, tx, b.BorrowingID, to, actorID, now)
		if err != nil {
			return apierr.ErrInternal(string(t)+" borrowing", err)
		}
		if !done {
			return s.lostRace(ctx, tx, b, t)
		}
		if t == lifecycle.Reject {
			if err := s.registry.Release(ctx, tx, b.AssetID); err != nil {
				return err
			}
		}
		return s.appendEvent(ctx, tx, b.BorrowingID, lifecycle.Pending, to, actorID, now)
	})
	if err != nil {
		span.RecordError(err)
		return BorrowingResponse{}, err
	}

	log.Printf("[INFO] borrowing %s %s -> %s by %s", b.BorrowingULID, lifecycle.Pending, to, actorID)
	s.publish(b.BorrowingULID, b.AssetID, lifecycle.Pending, to, actorID, now)
	return s.GetBorrowing(ctx, b.BorrowingULID)
}

// 返却確定
// The Return row, the asset update and the Approved -> Returned flip share one
// transaction.
func (s *Service) ConfirmReturn(ctx context.Context, actorID, key string, in ConfirmReturnRequest) (ConfirmReturnResponse, error) {
	ctx, span := s.tracer.Start(ctx, "borrowings.return",
		trace.WithAttributes(attribute.String("borrowing.key", key), attribute.String("actor.id", actorID)))
	defer span.End()

	cur, err := s.store.GetByKey(ctx, s.db, key, false)
	if err != nil {
		return ConfirmReturnResponse{}, s.notFound(err, key)
	}
	ok, err := s.authz.CanReturn(ctx, actorID, cur.BorrowingULID)
	if err := allow("return", ok, err); err != nil {
		return ConfirmReturnResponse{}, err
	}

	var b *Borrowing
	var rec *returns.Return
	now := s.clock.Now()
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		b, err = s.lock(ctx, tx, key)
		if err != nil {
			return err
		}
		rec, err = s.recorder.Record(ctx, tx, returns.Subject{
			BorrowingID:   b.BorrowingID,
			BorrowingULID: b.BorrowingULID,
			AssetID:       b.AssetID,
			State:         b.State,
		}, returns.RecordInput{Condition: in.Condition, Note: in.Note, ProcessedBy: actorID})
		if err != nil {
			return err
		}

		done, err := s.store.Close(ctx, tx, b.BorrowingID, rec.Condition, now)
		if err != nil {
			return apierr.ErrInternal("close borrowing", err)
		}
		if !done {
			return s.lostRace(ctx, tx, b, lifecycle.Return)
		}
		return s.appendEvent(ctx, tx, b.BorrowingID, lifecycle.Approved, lifecycle.Returned, actorID, now)
	})
	if err != nil {
		span.RecordError(err)
		return ConfirmReturnResponse{}, err
	}

	log.Printf("[INFO] borrowing %s returned (condition=%s) by %s", b.BorrowingULID, rec.Condition, actorID)
	s.publish(b.BorrowingULID, b.AssetID, lifecycle.Approved, lifecycle.Returned, actorID, now)

	res, err := s.GetBorrowing(ctx, b.BorrowingULID)
	if err != nil {
		return ConfirmReturnResponse{}, err
	}
	return ConfirmReturnResponse{Borrowing: res, Return: returns.ToResponse(rec)}, nil
}

// ===== 参照系 =====

// 貸出単一取得（ID or ULID）
func (s *Service) GetBorrowing(ctx context.Context, key string) (BorrowingResponse, error) {
	m, err := s.store.GetByKey(ctx, s.db, key, false)
	if err != nil {
		return BorrowingResponse{}, s.notFound(err, key)
	}
	return toResponse(m), nil
}

func (s *Service) ListBorrowings(ctx context.Context, f Filter, p db.Page) (ListResult, error) {
	if f.State != nil && !f.State.Valid() {
		return ListResult{}, apierr.ErrInvalid("unknown state: " + string(*f.State))
	}
	p = p.Normalize()
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return ListResult{}, apierr.ErrInternal("list borrowings", err)
	}
	out := ListResult{Items: make([]BorrowingResponse, 0, len(items)), Total: total, NextOffset: p.NextOffset(total)}
	for _, m := range items {
		out.Items = append(out.Items, toResponse(m))
	}
	return out, nil
}

func (s *Service) ListEvents(ctx context.Context, key string) ([]EventResponse, error) {
	b, err := s.store.GetByKey(ctx, s.db, key, false)
	if err != nil {
		return nil, s.notFound(err, key)
	}
	rows, err := s.store.ListEvents(ctx, b.BorrowingID)
	if err != nil {
		return nil, apierr.ErrInternal("list events", err)
	}
	out := make([]EventResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, EventResponse{From: e.From, To: e.To, ActorID: e.ActorID, OccurredAt: e.OccurredAt})
	}
	return out, nil
}

// ===== helpers =====

func (s *Service) lock(ctx context.Context, tx db.DBTX, key string) (*Borrowing, error) {
	b, err := s.store.GetByKey(ctx, tx, key, true)
	if err != nil {
		return nil, s.notFound(err, key)
	}
	return b, nil
}

func (s *Service) notFound(err error, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.ErrNotFound("borrowing", key)
	}
	return apierr.ErrInternal("get borrowing", err)
}

// lostRace re-reads the state after a compare-and-swap matched no row.
func (s *Service) lostRace(ctx context.Context, tx db.DBTX, b *Borrowing, t lifecycle.Transition) error {
	st, err := s.store.CurrentState(ctx, tx, b.BorrowingID)
	if err != nil {
		return s.notFound(err, b.BorrowingULID)
	}
	return apierr.ErrInvalidState("borrowing", b.BorrowingULID, string(t), string(st))
}

func (s *Service) appendEvent(ctx context.Context, tx db.DBTX, id uint64, from, to lifecycle.State, actorID string, at time.Time) error {
	if err := s.store.InsertEvent(ctx, tx, &EventRow{BorrowingID: id, From: from, To: to, ActorID: actorID, OccurredAt: at}); err != nil {
		return apierr.ErrInternal("insert borrowing event", err)
	}
	return nil
}

func (s *Service) publish(ulid string, assetID uint64, from, to lifecycle.State, actorID string, at time.Time) {
	s.pub.Publish(lifecycle.Event{
		BorrowingID: ulid,
		AssetID:     assetID,
		From:        from,
		To:          to,
		ActorID:     actorID,
		OccurredAt:  at,
	})
}

func toResponse(m *Borrowing) BorrowingResponse {
	r := BorrowingResponse{
		BorrowingID:       m.BorrowingID,
		BorrowingULID:     m.BorrowingULID,
		BorrowerID:        m.BorrowerID,
		BorrowerName:      m.BorrowerName,
		AssetID:           m.AssetID,
		AssetName:         m.AssetName,
		State:             m.State,
		BorrowDate:        m.BorrowDate.Format(httpx.DateLayout),
		ConditionAtReturn: nullToPtr(m.ConditionAtReturn),
		ApproverID:        nullToPtr(m.ApproverID),
		Note:              nullToPtr(m.Note),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.RequestedReturnDate.Valid {
		v := m.RequestedReturnDate.Time.Format(httpx.DateLayout)
		r.RequestedReturnDate = &v
	}
	if m.ActualReturnDate.Valid {
		v := m.ActualReturnDate.Time
		r.ActualReturnDate = &v
	}
	if m.DecidedAt.Valid {
		v := m.DecidedAt.Time
		r.DecidedAt = &v
	}
	return r
}

func idString(id uint64) string { return strconv.FormatUint(id, 10) }

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
