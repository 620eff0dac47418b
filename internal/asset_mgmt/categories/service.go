package categories

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/db"
)

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service { return &Service{db: conn, store: NewStore(conn)} }

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}

func normalize(name, code string) (string, string, error) {
	name, code = strings.TrimSpace(name), strings.ToUpper(strings.TrimSpace(code))
	if name == "" {
		return "", "", apierr.ErrInvalid("name is required")
	}
	if code == "" {
		return "", "", apierr.ErrInvalid("code is required")
	}
	return name, code, nil
}

func (s *Service) List(ctx context.Context, all string) ([]Category, error) {
	res, err := s.store.List(ctx, parseBoolish(all))
	if err != nil {
		return nil, apierr.ErrInternal("list categories", err)
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Category, error) {
	c, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apierr.ErrNotFound("category", strconv.FormatUint(uint64(id), 10))
		}
		return nil, apierr.ErrInternal("get category", err)
	}
	return c, nil
}

// RequireEnabled is used by the asset registry before it files an asset under a category.
func (s *Service) RequireEnabled(ctx context.Context, q db.DBTX, id uint) error {
	c, err := s.store.GetByID(ctx, q, id)
	if err != nil {
		if isNoRows(err) {
			return apierr.ErrInvalid("unknown category_id").On("category", strconv.FormatUint(uint64(id), 10))
		}
		return apierr.ErrInternal("get category", err)
	}
	if c.IsDisabled {
		return apierr.ErrInvalid("category is disabled").On("category", strconv.FormatUint(uint64(id), 10))
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateCategoryRequest) (*Category, error) {
	name, code, err := normalize(in.Name, in.Code)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Create(ctx, name, code)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apierr.ErrDuplicate("category", code, "category code already exists")
		}
		return nil, apierr.ErrInternal("create category", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateCategoryRequest) (*Category, error) {
	name, code, err := normalize(in.Name, in.Code)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, id, name, code, in.IsDisabled); err != nil {
		if isNoRows(err) {
			return nil, apierr.ErrNotFound("category", strconv.FormatUint(uint64(id), 10))
		}
		if db.IsUniqueViolation(err) {
			return nil, apierr.ErrDuplicate("category", code, "category code already exists")
		}
		return nil, apierr.ErrInternal("update category", err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Disable(ctx context.Context, id uint) error {
	if err := s.store.Disable(ctx, id); err != nil {
		if isNoRows(err) {
			return apierr.ErrNotFound("category", strconv.FormatUint(uint64(id), 10))
		}
		return apierr.ErrInternal("disable category", err)
	}
	return nil
}
