package borrowings

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PINJAM-backend/internal/asset_mgmt/assets"
	"PINJAM-backend/internal/asset_mgmt/lifecycle"
	"PINJAM-backend/internal/asset_mgmt/returns"
	"PINJAM-backend/internal/platform/apierr"
	"PINJAM-backend/internal/platform/auth"
	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/db/dbtest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (p *recordingPublisher) Publish(ev lifecycle.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) snapshot() []lifecycle.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]lifecycle.Event(nil), p.events...)
}

type fixture struct {
	conn *sql.DB
	svc  *Service
	pub  *recordingPublisher
	cat  uint
}

const (
	borrower = "alice"
	manager  = "mgr"
	staff    = "staff"
)

func newFixture(t testing.TB) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	dbtest.SeedAccount(t, conn, borrower, "Alice Wijaya", auth.RoleUser, "pw")
	dbtest.SeedAccount(t, conn, "budi", "Budi Santoso", auth.RoleUser, "pw")
	dbtest.SeedAccount(t, conn, manager, "Manager", auth.RoleManager, "pw")
	dbtest.SeedAccount(t, conn, staff, "Staff", auth.RoleStaff, "pw")

	registry := assets.NewRegistry()
	pub := &recordingPublisher{}
	svc := NewService(conn, registry, returns.NewRecorder(conn, registry), auth.NewRoleAuthorizer(conn), pub)
	return &fixture{conn: conn, svc: svc, pub: pub, cat: dbtest.SeedCategory(t, conn, "Projector", "PRJ")}
}

func (f *fixture) asset(t testing.TB, name string) uint64 {
	t.Helper()
	return dbtest.SeedAsset(t, f.conn, f.cat, name)
}

func (f *fixture) create(ctx context.Context, actor string, assetID uint64) (BorrowingResponse, error) {
	return f.svc.CreateBorrowing(ctx, actor, CreateBorrowingRequest{AssetID: assetID, BorrowDate: "2025-03-01"})
}

func countRows(t testing.TB, conn *sql.DB, q string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(q, args...).Scan(&n))
	return n
}

// 申請 → 承認 → 返却（良好）
func TestLifecycle_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Epson EB-X06")

	b, err := f.svc.CreateBorrowing(ctx, borrower, CreateBorrowingRequest{
		AssetID:             a,
		BorrowDate:          "2025-03-01",
		RequestedReturnDate: strPtr("2025-03-05"),
		Note:                strPtr("class presentation"),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Pending, b.State)
	assert.Equal(t, "2025-03-01", b.BorrowDate)
	require.NotNil(t, b.RequestedReturnDate)
	assert.Equal(t, "2025-03-05", *b.RequestedReturnDate)
	assert.Equal(t, "Alice Wijaya", b.BorrowerName)
	assert.Equal(t, "Borrowed", dbtest.Availability(t, f.conn, a))

	b, err = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Approved, b.State)
	require.NotNil(t, b.ApproverID)
	assert.Equal(t, manager, *b.ApproverID)
	assert.NotNil(t, b.DecidedAt)
	assert.Equal(t, "Borrowed", dbtest.Availability(t, f.conn, a))

	res, err := f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "Baik"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Returned, res.Borrowing.State)
	assert.NotNil(t, res.Borrowing.ActualReturnDate)
	require.NotNil(t, res.Borrowing.ConditionAtReturn)
	assert.Equal(t, "Baik", *res.Borrowing.ConditionAtReturn)
	assert.Equal(t, "Sesuai", res.Return.Outcome)
	assert.Equal(t, "Available", dbtest.Availability(t, f.conn, a))
	assert.Equal(t, 1, countRows(t, f.conn, `SELECT COUNT(*) FROM returns`))

	events, err := f.svc.ListEvents(ctx, b.BorrowingULID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, lifecycle.State(""), events[0].From)
	assert.Equal(t, lifecycle.Pending, events[0].To)
	assert.Equal(t, lifecycle.Approved, events[1].To)
	assert.Equal(t, lifecycle.Returned, events[2].To)
	assert.Equal(t, staff, events[2].ActorID)

	pub := f.pub.snapshot()
	require.Len(t, pub, 3)
	assert.Equal(t, b.BorrowingULID, pub[2].BorrowingID)
	assert.Equal(t, lifecycle.Approved, pub[2].From)
	assert.Equal(t, a, pub[2].AssetID)
}

// 却下すると資産は貸出可能に戻り，返却はできない
func TestLifecycle_RejectReleasesAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Tripod")

	b, err := f.create(ctx, borrower, a)
	require.NoError(t, err)
	b, err = f.svc.RejectBorrowing(ctx, manager, b.BorrowingULID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Rejected, b.State)
	assert.Equal(t, "Available", dbtest.Availability(t, f.conn, a))

	_, err = f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "Baik"})
	var ae *apierr.APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apierr.CodeInvalidState, ae.Code)
	assert.Equal(t, "Rejected", ae.State)
	assert.Equal(t, 0, countRows(t, f.conn, `SELECT COUNT(*) FROM returns`))

	// 資産は再度借りられる
	_, err = f.create(ctx, "budi", a)
	require.NoError(t, err)
}

func TestLifecycle_SecondCreateOnBorrowedAssetConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Camera")

	_, err := f.create(ctx, borrower, a)
	require.NoError(t, err)
	_, err = f.create(ctx, "budi", a)
	var ae *apierr.APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apierr.CodeConflict, ae.Code)
	assert.Equal(t, "Borrowed", ae.State)
	assert.Equal(t, 1, countRows(t, f.conn, `SELECT COUNT(*) FROM borrowings WHERE asset_id = ?`, a))

	_, err = f.create(ctx, borrower, 999)
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestLifecycle_ReturnIsRecordedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Laptop")

	b, err := f.create(ctx, borrower, a)
	require.NoError(t, err)
	_, err = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID)
	require.NoError(t, err)

	res, err := f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "rusak berat", Note: strPtr("hinge broken")})
	require.NoError(t, err)
	assert.Equal(t, "Rusak Berat", res.Return.Condition)
	assert.Equal(t, "UnderRepair", dbtest.Availability(t, f.conn, a))

	_, err = f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "Baik"})
	assert.Equal(t, apierr.CodeDuplicate, apierr.CodeOf(err))
	assert.Equal(t, 1, countRows(t, f.conn, `SELECT COUNT(*) FROM returns`))
	assert.Equal(t, "UnderRepair", dbtest.Availability(t, f.conn, a))

	// 修理中の資産は借りられない
	_, err = f.create(ctx, "budi", a)
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(err))
}

func TestLifecycle_InvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Speaker")

	b, err := f.create(ctx, borrower, a)
	require.NoError(t, err)

	// Pending は返却できない
	_, err = f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "Baik"})
	assert.Equal(t, apierr.CodeInvalidState, apierr.CodeOf(err))

	_, err = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID)
	require.NoError(t, err)

	_, err = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID)
	var ae *apierr.APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apierr.CodeInvalidState, ae.Code)
	assert.Equal(t, "approve", ae.Transition)
	assert.Equal(t, "Approved", ae.State)

	_, err = f.svc.RejectBorrowing(ctx, manager, b.BorrowingULID)
	assert.Equal(t, apierr.CodeInvalidState, apierr.CodeOf(err))

	_, err = f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "sparkly"})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	got, err := f.svc.GetBorrowing(ctx, b.BorrowingULID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Approved, got.State)
	assert.Equal(t, "Borrowed", dbtest.Availability(t, f.conn, a))
	assert.Len(t, f.pub.snapshot(), 2)

	_, err = f.svc.ApproveBorrowing(ctx, manager, "01J0000000000000000000NONE")
	assert.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestLifecycle_Forbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Mic")

	b, err := f.create(ctx, borrower, a)
	require.NoError(t, err)

	_, err = f.svc.ApproveBorrowing(ctx, borrower, b.BorrowingULID)
	assert.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))
	_, err = f.svc.RejectBorrowing(ctx, staff, b.BorrowingULID)
	assert.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))

	_, err = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmReturn(ctx, borrower, b.BorrowingULID, ConfirmReturnRequest{Condition: "Baik"})
	assert.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))

	dbtest.DisableAccount(t, f.conn, "budi")
	other := f.asset(t, "Mic 2")
	_, err = f.create(ctx, "budi", other)
	assert.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))
	assert.Equal(t, "Available", dbtest.Availability(t, f.conn, other))

	got, err := f.svc.GetBorrowing(ctx, b.BorrowingULID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Approved, got.State)
}

func TestCreateBorrowing_Dates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Cable")

	cases := []CreateBorrowingRequest{
		{AssetID: a, BorrowDate: "01/03/2025"},
		{AssetID: a, BorrowDate: "2025-03-05", RequestedReturnDate: strPtr("2025-03-04")},
		{AssetID: a, BorrowDate: "2025-03-05", RequestedReturnDate: strPtr("soon")},
		{AssetID: 0, BorrowDate: "2025-03-05"},
	}
	for _, in := range cases {
		_, err := f.svc.CreateBorrowing(ctx, borrower, in)
		assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err), "%+v", in)
	}
	assert.Equal(t, "Available", dbtest.Availability(t, f.conn, a))

	// 同日返却は許可
	_, err := f.svc.CreateBorrowing(ctx, borrower, CreateBorrowingRequest{AssetID: a, BorrowDate: "2025-03-05", RequestedReturnDate: strPtr("2025-03-05")})
	require.NoError(t, err)
}

func TestCreateBorrowing_ConcurrentRequestsOnOneAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Drone")

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.create(ctx, borrower, a)
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apierr.CodeOf(err) == apierr.CodeConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, countRows(t, f.conn, `SELECT COUNT(*) FROM borrowings WHERE asset_id = ?`, a))
}

func TestConfirmReturn_ConcurrentSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "Tripod")
	b, err := f.create(ctx, borrower, a)
	require.NoError(t, err)
	_, err = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmReturn(ctx, staff, b.BorrowingULID, ConfirmReturnRequest{Condition: "Baik"})
		}(i)
	}
	wg.Wait()

	ok, dups := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apierr.CodeOf(err) == apierr.CodeDuplicate:
			dups++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dups)
	assert.Equal(t, 1, countRows(t, f.conn, `SELECT COUNT(*) FROM returns`))
	assert.Equal(t, "Available", dbtest.Availability(t, f.conn, a))
	assert.Equal(t, "Baik", dbtest.Condition(t, f.conn, a))
}

func TestDecide_ConcurrentApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "VR Headset")
	b, err := f.create(ctx, borrower, a)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() { defer wg.Done(); _, approveErr = f.svc.ApproveBorrowing(ctx, manager, b.BorrowingULID) }()
	go func() { defer wg.Done(); _, rejectErr = f.svc.RejectBorrowing(ctx, manager, b.BorrowingULID) }()
	wg.Wait()

	require.True(t, (approveErr == nil) != (rejectErr == nil), "exactly one decision must win: %v / %v", approveErr, rejectErr)
	got, err := f.svc.GetBorrowing(ctx, b.BorrowingULID)
	require.NoError(t, err)
	if approveErr == nil {
		assert.Equal(t, apierr.CodeInvalidState, apierr.CodeOf(rejectErr))
		assert.Equal(t, lifecycle.Approved, got.State)
		assert.Equal(t, "Borrowed", dbtest.Availability(t, f.conn, a))
	} else {
		assert.Equal(t, apierr.CodeInvalidState, apierr.CodeOf(approveErr))
		assert.Equal(t, lifecycle.Rejected, got.State)
		assert.Equal(t, "Available", dbtest.Availability(t, f.conn, a))
	}
}

func TestListBorrowings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b1, err := f.create(ctx, borrower, f.asset(t, "Canon EOS"))
	require.NoError(t, err)
	_, err = f.create(ctx, "budi", f.asset(t, "Nikon D750"))
	require.NoError(t, err)
	_, err = f.create(ctx, "budi", f.asset(t, "Canon Lens"))
	require.NoError(t, err)
	_, err = f.svc.ApproveBorrowing(ctx, manager, b1.BorrowingULID)
	require.NoError(t, err)

	res, err := f.svc.ListBorrowings(ctx, Filter{Q: strPtr("canon")}, db.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	res, err = f.svc.ListBorrowings(ctx, Filter{Q: strPtr("santoso")}, db.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	st := lifecycle.Approved
	res, err = f.svc.ListBorrowings(ctx, Filter{State: &st}, db.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, b1.BorrowingULID, res.Items[0].BorrowingULID)

	res, err = f.svc.ListBorrowings(ctx, Filter{BorrowerID: strPtr("budi")}, db.Page{Limit: 1, Order: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Nikon D750", res.Items[0].AssetName)
	assert.Equal(t, 1, res.NextOffset)

	bad := lifecycle.State("Lost")
	_, err = f.svc.ListBorrowings(ctx, Filter{State: &bad}, db.Page{})
	assert.Equal(t, apierr.CodeValidation, apierr.CodeOf(err))

	// % と _ は文字として扱う
	_, err = f.create(ctx, borrower, f.asset(t, "Kabel 50% HDMI"))
	require.NoError(t, err)
	_, err = f.create(ctx, borrower, f.asset(t, "Kabel 500 HDMI"))
	require.NoError(t, err)
	res, err = f.svc.ListBorrowings(ctx, Filter{Q: strPtr("50%")}, db.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Kabel 50% HDMI", res.Items[0].AssetName)
	res, err = f.svc.ListBorrowings(ctx, Filter{Q: strPtr("_")}, db.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Total)

	// 数値IDでも取得できる
	got, err := f.svc.GetBorrowing(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, b1.BorrowingULID, got.BorrowingULID)
}

func strPtr(s string) *string { return &s }
