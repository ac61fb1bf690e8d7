package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/institutehq/institute-api/internal/types"
)

// paymentCodec lays Payment rows out as
// paymentId,studentId,courseId,amount,mode,status,timestamp.
type paymentCodec struct{}

func (paymentCodec) Header() []string {
	return []string{"paymentId", "studentId", "courseId", "amount", "mode", "status", "timestamp"}
}

func (paymentCodec) ID(p types.Payment) int { return p.ID }

func (paymentCodec) Encode(p types.Payment) []string {
	return []string{
		strconv.Itoa(p.ID),
		strconv.Itoa(p.StudentID),
		strconv.Itoa(p.CourseID),
		p.Amount.String(),
		string(p.Mode),
		string(p.Status),
		p.PaidAt.Format(time.RFC3339),
	}
}

func (paymentCodec) Decode(row []string) (types.Payment, error) {
	if len(row) != 7 {
		return types.Payment{}, fmt.Errorf("payment row has %d fields", len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return types.Payment{}, fmt.Errorf("payment id: %w", err)
	}
	studentID, err := strconv.Atoi(row[1])
	if err != nil {
		return types.Payment{}, fmt.Errorf("payment student id: %w", err)
	}
	courseID, err := strconv.Atoi(row[2])
	if err != nil {
		return types.Payment{}, fmt.Errorf("payment course id: %w", err)
	}
	amount, err := decimal.NewFromString(row[3])
	if err != nil {
		return types.Payment{}, fmt.Errorf("payment amount: %w", err)
	}
	mode, err := types.ParsePaymentMode(row[4])
	if err != nil {
		return types.Payment{}, err
	}
	status, err := types.ParsePaymentStatus(row[5])
	if err != nil {
		return types.Payment{}, err
	}
	paidAt, err := time.Parse(time.RFC3339, row[6])
	if err != nil {
		return types.Payment{}, fmt.Errorf("payment timestamp: %w", err)
	}
	return types.Payment{
		ID:        id,
		StudentID: studentID,
		CourseID:  courseID,
		Amount:    amount,
		Mode:      mode,
		Status:    status,
		PaidAt:    paidAt,
	}, nil
}
