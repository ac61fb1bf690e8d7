// Package ledger holds the two stateful ledgers of the system: the
// payment ledger with its obligation reconciliation, and the attendance
// ledger.
package ledger

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/storage/idgen"
	"github.com/institutehq/institute-api/internal/types"
)

const paymentsFile = "payments.csv"

// CourseSource is the read-only course lookup the ledger depends on,
// satisfied by registry.CourseCatalog.
type CourseSource interface {
	GetCourseByID(id int) (types.Course, error)
}

// StudentSource is the read-only student lookup the ledger depends on,
// satisfied by registry.StudentRegistry.
type StudentSource interface {
	GetStudentByID(id int) (types.Student, error)
}

// PaymentLedger maintains the obligation invariants over a snapshot
// store of Payment records:
//
//   - at most one open PENDING record per (student, course) pair, always
//     equal to the remaining unpaid balance
//   - the sum of SUCCESS amounts for a pair never exceeds the course fee,
//     except that the final settling payment may overshoot (overpayment
//     is accepted and not tracked further; no refunds, no credit)
//
// It consults the course catalog for fees and the student registry for
// existence checks, and never mutates either.
type PaymentLedger struct {
	store    *filestore.Store[types.Payment]
	courses  CourseSource
	students StudentSource
	log      *slog.Logger
}

// OpenPaymentLedger loads payments.csv under dataDir.
func OpenPaymentLedger(dataDir string, courses CourseSource, students StudentSource, log *slog.Logger) (*PaymentLedger, error) {
	store, err := filestore.Open(filepath.Join(dataDir, paymentsFile), paymentCodec{}, idgen.New(), log)
	if err != nil {
		return nil, err
	}
	return &PaymentLedger{store: store, courses: courses, students: students, log: log}, nil
}

// CreatePendingPayment opens a new obligation: a PENDING record carrying
// the full course fee, created when a student enrolls. Fails if the fee
// is not positive or an obligation for the pair is already open.
func (l *PaymentLedger) CreatePendingPayment(studentID, courseID int, fee decimal.Decimal) (int, error) {
	if fee.Sign() <= 0 {
		return 0, fmt.Errorf("%w: fee amount must be positive", storage.ErrValidation)
	}
	if _, err := l.students.GetStudentByID(studentID); err != nil {
		return 0, err
	}
	if _, err := l.courses.GetCourseByID(courseID); err != nil {
		return 0, err
	}

	id := l.store.NextID()
	err := l.store.Batch(func(tx *filestore.Tx[types.Payment]) error {
		if _, open := tx.Find(openObligation(studentID, courseID)); open {
			return fmt.Errorf("obligation already open for student %d course %d: %w",
				studentID, courseID, storage.ErrDuplicate)
		}
		return tx.Add(types.Payment{
			ID:        id,
			StudentID: studentID,
			CourseID:  courseID,
			Amount:    fee,
			Mode:      types.ModeCash, // placeholder until money arrives; mode is meaningful on transactions
			Status:    types.StatusPending,
			PaidAt:    time.Now(),
		})
	})
	if err != nil {
		return 0, err
	}
	l.log.Info("obligation opened",
		slog.Int("student", studentID),
		slog.Int("course", courseID),
		slog.String("amount", fee.String()))
	return id, nil
}

// RecordPayment reconciles an incoming payment against the open
// obligation for (studentID, courseID):
//
//  1. no open obligation: the payment is rejected. Ad-hoc SUCCESS
//     inserts are not permitted: with no obligation there is no fee
//     context to settle against.
//  2. remaining = pending amount - incoming amount.
//  3. remaining ≤ 0 closes the obligation (amount zero, status SUCCESS);
//     any overshoot is accepted and not tracked further.
//  4. remaining > 0 shrinks the obligation and refreshes its timestamp.
//  5. either way the incoming money is appended as its own SUCCESS
//     record with a fresh id, for audit and total-paid queries.
//
// Steps 3–5 run in one store transaction: both writes land together with
// a single snapshot rewrite, or neither does.
func (l *PaymentLedger) RecordPayment(studentID, courseID int, amount decimal.Decimal, mode types.PaymentMode) (types.Payment, error) {
	if amount.Sign() <= 0 {
		return types.Payment{}, fmt.Errorf("%w: payment amount must be positive", storage.ErrValidation)
	}
	if _, err := types.ParsePaymentMode(string(mode)); err != nil {
		return types.Payment{}, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	if _, err := l.students.GetStudentByID(studentID); err != nil {
		return types.Payment{}, err
	}
	if _, err := l.courses.GetCourseByID(courseID); err != nil {
		return types.Payment{}, err
	}

	var txn types.Payment
	err := l.store.Batch(func(tx *filestore.Tx[types.Payment]) error {
		pending, ok := tx.Find(openObligation(studentID, courseID))
		if !ok {
			return fmt.Errorf("no open obligation for student %d course %d: %w",
				studentID, courseID, storage.ErrStateConflict)
		}

		now := time.Now()
		remaining := pending.Amount.Sub(amount)
		if remaining.Sign() <= 0 {
			pending.Amount = decimal.Zero
			pending.Status = types.StatusSuccess
		} else {
			pending.Amount = remaining
		}
		pending.PaidAt = now
		if err := tx.Update(pending.ID, pending); err != nil {
			return err
		}

		txn = types.Payment{
			ID:        l.store.NextID(),
			StudentID: studentID,
			CourseID:  courseID,
			Amount:    amount,
			Mode:      mode,
			Status:    types.StatusSuccess,
			PaidAt:    now,
		}
		return tx.Add(txn)
	})
	if err != nil {
		return types.Payment{}, err
	}

	l.log.Info("payment recorded",
		slog.Int("student", studentID),
		slog.Int("course", courseID),
		slog.String("amount", amount.String()),
		slog.String("mode", string(mode)))
	return txn, nil
}

// GetPaymentByID returns the payment record with the given id.
func (l *PaymentLedger) GetPaymentByID(id int) (types.Payment, error) {
	p, err := l.store.GetByID(id)
	if err != nil {
		return types.Payment{}, fmt.Errorf("payment: %w", err)
	}
	return p, nil
}

// GetPaymentsByStudent returns every ledger row for a student, in
// insertion order.
func (l *PaymentLedger) GetPaymentsByStudent(studentID int) []types.Payment {
	var out []types.Payment
	for _, p := range l.store.GetAll() {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out
}

// GetAllPayments returns a snapshot of the whole ledger.
func (l *PaymentLedger) GetAllPayments() []types.Payment {
	return l.store.GetAll()
}

// UpdatePaymentStatus sets the status of one record and refreshes its
// timestamp. Administrative escape hatch; reconciliation never needs it.
func (l *PaymentLedger) UpdatePaymentStatus(id int, status types.PaymentStatus) error {
	if _, err := types.ParsePaymentStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	return l.store.Batch(func(tx *filestore.Tx[types.Payment]) error {
		p, ok := tx.Find(func(p types.Payment) bool { return p.ID == id })
		if !ok {
			return fmt.Errorf("payment %d: %w", id, storage.ErrNotFound)
		}
		p.Status = status
		p.PaidAt = time.Now()
		return tx.Update(id, p)
	})
}

// DeletePayment removes a ledger row.
func (l *PaymentLedger) DeletePayment(id int) error {
	if err := l.store.Delete(id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// TotalPaidByStudent sums the SUCCESS amounts for a student across all
// courses. Closed obligations contribute zero, so only real transactions
// count.
func (l *PaymentLedger) TotalPaidByStudent(studentID int) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.store.GetAll() {
		if p.StudentID == studentID && p.Status == types.StatusSuccess {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// TotalPaidForCourse is TotalPaidByStudent scoped to one course.
func (l *PaymentLedger) TotalPaidForCourse(studentID, courseID int) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.store.GetAll() {
		if p.StudentID == studentID && p.CourseID == courseID && p.Status == types.StatusSuccess {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// StudentsWithPendingFees returns the outstanding balance per student:
// the sum over that student's open obligations with amount > 0.
func (l *PaymentLedger) StudentsWithPendingFees() map[int]decimal.Decimal {
	pending := make(map[int]decimal.Decimal)
	for _, p := range l.store.GetAll() {
		if p.Status == types.StatusPending && p.Amount.Sign() > 0 {
			cur, ok := pending[p.StudentID]
			if !ok {
				cur = decimal.Zero
			}
			pending[p.StudentID] = cur.Add(p.Amount)
		}
	}
	return pending
}

// openObligation matches the single open PENDING record for a pair.
func openObligation(studentID, courseID int) func(types.Payment) bool {
	return func(p types.Payment) bool {
		return p.StudentID == studentID &&
			p.CourseID == courseID &&
			p.Status == types.StatusPending
	}
}
