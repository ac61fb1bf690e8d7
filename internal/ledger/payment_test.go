package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/types"
)

// stubCourses / stubStudents satisfy the ledger's read-only lookup
// interfaces without dragging the registries into these tests.
type stubCourses map[int]types.Course

func (s stubCourses) GetCourseByID(id int) (types.Course, error) {
	c, ok := s[id]
	if !ok {
		return types.Course{}, fmt.Errorf("course %d: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

type stubStudents map[int]types.Student

func (s stubStudents) GetStudentByID(id int) (types.Student, error) {
	st, ok := s[id]
	if !ok {
		return types.Student{}, fmt.Errorf("student %d: %w", id, storage.ErrNotFound)
	}
	return st, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(t *testing.T) (*PaymentLedger, string) {
	t.Helper()
	dir := t.TempDir()
	courses := stubCourses{10: {ID: 10, Name: "Go Basics", Duration: 6, Fees: dec("1000.00")}}
	students := stubStudents{1: {ID: 1, Name: "Asha", Email: "asha@test.com", CourseID: 10}}
	l, err := OpenPaymentLedger(dir, courses, students, testLogger())
	require.NoError(t, err)
	return l, dir
}

func openPending(t *testing.T, l *PaymentLedger) int {
	t.Helper()
	id, err := l.CreatePendingPayment(1, 10, dec("1000.00"))
	require.NoError(t, err)
	return id
}

func TestCreatePendingPayment(t *testing.T) {
	l, _ := newTestLedger(t)

	id := openPending(t, l)
	p, err := l.GetPaymentByID(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, p.Status)
	assert.True(t, p.Amount.Equal(dec("1000.00")))
}

func TestCreatePendingPaymentRejectsNonPositiveFee(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreatePendingPayment(1, 10, dec("0"))
	assert.ErrorIs(t, err, storage.ErrValidation)
	_, err = l.CreatePendingPayment(1, 10, dec("-5"))
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestCreatePendingPaymentRejectsSecondObligation(t *testing.T) {
	l, _ := newTestLedger(t)
	openPending(t, l)

	_, err := l.CreatePendingPayment(1, 10, dec("1000.00"))
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestCreatePendingPaymentRejectsUnknownStudentOrCourse(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.CreatePendingPayment(99, 10, dec("1000.00"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = l.CreatePendingPayment(1, 99, dec("1000.00"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// Partial then settling payment: the scenario straight from the fee desk.
func TestReconciliationPartialThenSettle(t *testing.T) {
	l, _ := newTestLedger(t)
	obligationID := openPending(t, l)

	txn1, err := l.RecordPayment(1, 10, dec("400.00"), types.ModeCash)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, txn1.Status)
	assert.True(t, txn1.Amount.Equal(dec("400.00")))

	pending, err := l.GetPaymentByID(obligationID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, pending.Status)
	assert.True(t, pending.Amount.Equal(dec("600.00")), "remaining should be 600, got %s", pending.Amount)

	txn2, err := l.RecordPayment(1, 10, dec("600.00"), types.ModeUPI)
	require.NoError(t, err)
	assert.True(t, txn2.Amount.Equal(dec("600.00")))

	closed, err := l.GetPaymentByID(obligationID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, closed.Status)
	assert.True(t, closed.Amount.IsZero())

	assert.True(t, l.TotalPaidByStudent(1).Equal(dec("1000.00")))
	_, open := l.StudentsWithPendingFees()[1]
	assert.False(t, open, "no outstanding balance after full settlement")
}

// Overpayment on the final installment is accepted and not tracked
// further: the obligation closes at zero, no refund row appears.
func TestReconciliationOverpaymentAccepted(t *testing.T) {
	l, _ := newTestLedger(t)
	obligationID := openPending(t, l)

	_, err := l.RecordPayment(1, 10, dec("700.00"), types.ModeCard)
	require.NoError(t, err)

	pending, err := l.GetPaymentByID(obligationID)
	require.NoError(t, err)
	assert.True(t, pending.Amount.Equal(dec("300.00")))

	_, err = l.RecordPayment(1, 10, dec("500.00"), types.ModeCash)
	require.NoError(t, err)

	closed, err := l.GetPaymentByID(obligationID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, closed.Status)
	assert.True(t, closed.Amount.IsZero())

	assert.True(t, l.TotalPaidByStudent(1).Equal(dec("1200.00")))
}

func TestRecordPaymentWithoutObligationRejected(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.RecordPayment(1, 10, dec("100.00"), types.ModeCash)
	assert.ErrorIs(t, err, storage.ErrStateConflict)
	assert.Empty(t, l.GetAllPayments(), "a rejected payment must leave no rows behind")
}

func TestRecordPaymentAfterSettlementRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	openPending(t, l)

	_, err := l.RecordPayment(1, 10, dec("1000.00"), types.ModeUPI)
	require.NoError(t, err)

	_, err = l.RecordPayment(1, 10, dec("1.00"), types.ModeUPI)
	assert.ErrorIs(t, err, storage.ErrStateConflict)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	l, _ := newTestLedger(t)
	openPending(t, l)

	_, err := l.RecordPayment(1, 10, dec("0"), types.ModeCash)
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestStudentsWithPendingFees(t *testing.T) {
	l, _ := newTestLedger(t)
	openPending(t, l)

	_, err := l.RecordPayment(1, 10, dec("250.00"), types.ModeCash)
	require.NoError(t, err)

	pending := l.StudentsWithPendingFees()
	require.Contains(t, pending, 1)
	assert.True(t, pending[1].Equal(dec("750.00")))
}

func TestLedgerReloadKeepsState(t *testing.T) {
	courses := stubCourses{10: {ID: 10, Fees: dec("1000.00")}}
	students := stubStudents{1: {ID: 1}}
	dir := t.TempDir()

	l, err := OpenPaymentLedger(dir, courses, students, testLogger())
	require.NoError(t, err)
	_, err = l.CreatePendingPayment(1, 10, dec("1000.00"))
	require.NoError(t, err)
	_, err = l.RecordPayment(1, 10, dec("400.00"), types.ModeCash)
	require.NoError(t, err)

	reloaded, err := OpenPaymentLedger(dir, courses, students, testLogger())
	require.NoError(t, err)
	assert.Equal(t, len(l.GetAllPayments()), len(reloaded.GetAllPayments()))
	assert.True(t, reloaded.TotalPaidByStudent(1).Equal(dec("400.00")))
	assert.True(t, reloaded.StudentsWithPendingFees()[1].Equal(dec("600.00")))

	// The settling payment still works against the reloaded ledger, and
	// ids keep climbing from where the snapshot left off.
	txn, err := reloaded.RecordPayment(1, 10, dec("600.00"), types.ModeUPI)
	require.NoError(t, err)
	for _, p := range l.GetAllPayments() {
		assert.NotEqual(t, p.ID, txn.ID)
	}
}

func TestDeletePayment(t *testing.T) {
	l, _ := newTestLedger(t)
	id := openPending(t, l)

	require.NoError(t, l.DeletePayment(id))
	assert.ErrorIs(t, l.DeletePayment(id), storage.ErrNotFound)
}

func TestUpdatePaymentStatus(t *testing.T) {
	l, _ := newTestLedger(t)
	id := openPending(t, l)

	require.NoError(t, l.UpdatePaymentStatus(id, types.StatusSuccess))
	p, err := l.GetPaymentByID(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, p.Status)

	assert.ErrorIs(t, l.UpdatePaymentStatus(9999, types.StatusSuccess), storage.ErrNotFound)
	assert.ErrorIs(t, l.UpdatePaymentStatus(id, types.PaymentStatus("NOPE")), storage.ErrValidation)
}
