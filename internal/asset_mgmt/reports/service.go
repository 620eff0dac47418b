package reports

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"PINJAM-backend/internal/asset_mgmt/condition"
	"PINJAM-backend/internal/platform/apierr"
)

const DefaultWindow = 30 * 24 * time.Hour

type Service struct {
	store *Store
}

func NewService(conn *sql.DB) *Service { return &Service{store: NewStore(conn)} }

func validate(w Window) error {
	if !w.From.Before(w.To) {
		return apierr.ErrInvalid("from must be before to")
	}
	return nil
}

func (s *Service) rows(ctx context.Context, w Window) ([]*ReturnRow, error) {
	if err := validate(w); err != nil {
		return nil, err
	}
	all, err := s.store.Returns(ctx, w)
	if err != nil {
		return nil, apierr.ErrInternal("load return report", err)
	}
	if w.Outcome == nil {
		return all, nil
	}
	out := all[:0]
	for _, r := range all {
		if r.Outcome == *w.Outcome {
			out = append(out, r)
		}
	}
	return out, nil
}

// Summary groups the window's returns by outcome. Counts always carries
// every outcome, zero or not.
func (s *Service) Summary(ctx context.Context, w Window) (SummaryResponse, error) {
	rows, err := s.rows(ctx, w)
	if err != nil {
		return SummaryResponse{}, err
	}
	res := SummaryResponse{
		From:    w.From,
		To:      w.To,
		Outcome: w.Outcome,
		Total:   len(rows),
		Counts: map[condition.Outcome]int{
			condition.OutcomeSesuai: 0,
			condition.OutcomeRusak:  0,
			condition.OutcomeHilang: 0,
		},
		Items: make([]ReturnRowResponse, 0, len(rows)),
	}
	for _, r := range rows {
		res.Counts[r.Outcome]++
		res.Items = append(res.Items, toResponse(r))
	}
	return res, nil
}

var csvHeader = []string{
	"return_ulid", "borrowing_ulid", "asset_id", "asset_name", "borrower_id", "borrower_name",
	"borrow_date", "returned_at", "condition", "outcome", "processed_by",
}

// ExportCSV writes the same rows as Summary. Excel で開けるよう BOM 付き UTF-8 で出力する。
func (s *Service) ExportCSV(ctx context.Context, w Window, out io.Writer) error {
	rows, err := s.rows(ctx, w)
	if err != nil {
		return err
	}

	tw := transform.NewWriter(out, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ReturnULID,
			r.BorrowingULID,
			strconv.FormatUint(r.AssetID, 10),
			r.AssetName,
			r.BorrowerID,
			r.BorrowerName,
			r.BorrowDate.Format("2006-01-02"),
			r.ReturnedAt.UTC().Format(time.RFC3339),
			r.Condition,
			string(r.Outcome),
			r.ProcessedBy.String,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}

func toResponse(r *ReturnRow) ReturnRowResponse {
	res := ReturnRowResponse{
		ReturnULID:    r.ReturnULID,
		BorrowingULID: r.BorrowingULID,
		AssetID:       r.AssetID,
		AssetName:     r.AssetName,
		BorrowerID:    r.BorrowerID,
		BorrowerName:  r.BorrowerName,
		BorrowDate:    r.BorrowDate.Format("2006-01-02"),
		ReturnedAt:    r.ReturnedAt,
		Condition:     r.Condition,
		Outcome:       r.Outcome,
	}
	if r.ProcessedBy.Valid {
		v := r.ProcessedBy.String
		res.ProcessedBy = &v
	}
	return res
}
