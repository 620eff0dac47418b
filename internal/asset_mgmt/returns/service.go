package returns

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"

	"PINJAM-backend/internal/asset_mgmt/assets"
	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/idgen"
)

// Authorizer is the part of the access policy corrections need.
type Authorizer interface {
	CanReturn(ctx context.Context, userID, borrowingID string) (bool, error)
}

type Service struct {
	db       *sql.DB
	store    *Store
	registry *assets.Registry
	authz    Authorizer
	clock    idgen.Clock
}

func NewService(conn *sql.DB, registry *assets.Registry, authz Authorizer) *Service {
	return &Service{
		db:       conn,
		store:    NewStore(conn),
		registry: registry,
		authz:    authz,
		clock:    idgen.SystemClock{},
	}
}

func toResponse(m *Return) ReturnResponse {
	r := ReturnResponse{
		ReturnULID:    m.ReturnULID,
		BorrowingULID: m.BorrowingULID,
		AssetID:       m.AssetID,
		Condition:     m.Condition,
		Outcome:       string(condition.OutcomeOf(m.Condition)),
		Note:          nullToPtr(m.Note),
		ProcessedBy:   nullToPtr(m.ProcessedBy),
		ReturnedAt:    m.ReturnedAt,
		CorrectedBy:   nullToPtr(m.CorrectedBy),
	}
	if m.CorrectedAt.Valid {
		v := m.CorrectedAt.Time
		r.CorrectedAt = &v
	}
	return r
}

// ToResponse is used by the borrowing engine to echo the created return.
func ToResponse(m *Return) ReturnResponse { return toResponse(m) }

// 返却単一取得（ID or ULID）
func (s *Service) GetReturn(ctx context.Context, key string) (ReturnResponse, error) {
	var m *Return
	var err error
	if id, perr := strconv.ParseUint(key, 10, 64); perr == nil && id > 0 {
		m, err = s.store.GetByID(ctx, s.db, id)
	} else {
		m, err = s.store.GetByULID(ctx, s.db, key)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReturnResponse{}, apierr.ErrNotFound("return", key)
		}
		return ReturnResponse{}, apierr.ErrInternal("get return", err)
	}
	return toResponse(m), nil
}

func (s *Service) GetReturnByBorrowing(ctx context.Context, borrowingKey string) (ReturnResponse, error) {
	m, err := s.store.GetByBorrowingKey(ctx, s.db, borrowingKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReturnResponse{}, apierr.ErrNotFound("return", borrowingKey)
		}
		return ReturnResponse{}, apierr.ErrInternal("get return", err)
	}
	return toResponse(m), nil
}

// PATCH /returns/:key
// A return may be corrected once. A changed condition re-runs the condition
// table on the asset, which is refused if the asset has been lent out again.
func (s *Service) CorrectReturn(ctx context.Context, actorID, key string, in CorrectReturnRequest) (ReturnResponse, error) {
	if in.Condition == nil && in.Note == nil {
		return ReturnResponse{}, apierr.ErrInvalid("condition or note is required")
	}
	var label *condition.Label
	if in.Condition != nil {
		l, ok := condition.Parse(*in.Condition)
		if !ok {
			return ReturnResponse{}, apierr.ErrInvalid("unrecognized condition: " + *in.Condition)
		}
		label = &l
	}

	cur, err := s.GetReturn(ctx, key)
	if err != nil {
		return ReturnResponse{}, err
	}
	returnULID := cur.ReturnULID
	ok, err := s.authz.CanReturn(ctx, actorID, cur.BorrowingULID)
	if err != nil {
		return ReturnResponse{}, apierr.ErrInternal("authorize", err)
	}
	if !ok {
		return ReturnResponse{}, apierr.ErrForbidden("correct return").On("return", returnULID)
	}

	var out *Return
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		m, err := s.store.GetByULIDForUpdate(ctx, tx, returnULID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("return", returnULID)
			}
			return apierr.ErrInternal("get return", err)
		}
		if m.CorrectedAt.Valid {
			return apierr.ErrInvalidState("return", returnULID, "correct", "Corrected")
		}

		cond := m.Condition
		if label != nil {
			cond = string(*label)
		}
		now := s.clock.Now()
		done, err := s.store.Correct(ctx, tx, m.ReturnID, cond, toNullString(in.Note), now, actorID)
		if err != nil {
			return apierr.ErrInternal("correct return", err)
		}
		if !done {
			return apierr.ErrInvalidState("return", returnULID, "correct", "Corrected")
		}

		if cond != m.Condition {
			asset, err := s.registry.Get(ctx, tx, m.AssetID)
			if err != nil {
				return err
			}
			// 返却後に資産の状態が更新済み（修理完了など）なら資産側はそちらを優先する
			if asset.Condition == m.Condition {
				if err := s.registry.Reassess(ctx, tx, m.AssetID, *label); err != nil {
					return err
				}
			} else {
				log.Printf("[INFO] return %s corrected; asset %d already reassessed as %s, leaving it", returnULID, m.AssetID, asset.Condition)
			}
			if err := s.store.SyncBorrowingCondition(ctx, tx, m.BorrowingID, cond, now); err != nil {
				return apierr.ErrInternal("sync borrowing condition", err)
			}
		}

		out, err = s.store.GetByULID(ctx, tx, returnULID)
		if err != nil {
			return apierr.ErrInternal("get return", err)
		}
		return nil
	})
	if err != nil {
		return ReturnResponse{}, err
	}
	log.Printf("[INFO] return %s corrected by %s (condition=%s)", returnULID, actorID, out.Condition)
	return toResponse(out), nil
}
