// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// registries, ledgers, storage, and the CLI can all import types without
// depending on each other.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Course is one offered course. Fees uses decimal.Decimal (exact decimal
// arithmetic); money must never ride on binary floating point, or fee
// accounting drifts over long payment histories.
//
// TeacherID is 0 while the course has no assigned teacher; it is persisted
// as an empty trailing field in that case.
type Course struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"     validate:"required"`
	Duration  int             `json:"duration" validate:"required,gt=0"` // months
	Fees      decimal.Decimal `json:"fees"`
	TeacherID int             `json:"teacherId,omitempty"`
}

// Teacher is a member of the teaching staff.
type Teacher struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"    validate:"required"`
	Subject string          `json:"subject" validate:"required"`
	Salary  decimal.Decimal `json:"salary"`
}

// Student is an enrolled student.
//
// UserID links the student to a login account (see User). It is 0 when the
// student has no account yet, and must be unique across students when set.
type Student struct {
	ID       int    `json:"id"`
	UserID   int    `json:"userId,omitempty"`
	Name     string `json:"name"  validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	CourseID int    `json:"courseId" validate:"required"`
}

// Attendance is a single attendance mark. At most one record may exist per
// (student, calendar date) pair; a second mark for the same day is
// rejected, never overwritten.
type Attendance struct {
	StudentID int       `json:"studentId"`
	Date      time.Time `json:"date"`
	Present   bool      `json:"present"`
}

// DateLayout is the calendar-date format used in the attendance snapshot.
const DateLayout = "2006-01-02"

// Payment is one row of the payment ledger. Two kinds of row share this
// shape:
//
//   - an OBLIGATION: status PENDING, amount = the balance still owed by
//     the student for the course. At most one open obligation exists per
//     (student, course) pair.
//   - a TRANSACTION: status SUCCESS, amount = money actually received.
//
// When an obligation is fully settled its amount drops to zero and its
// status flips to SUCCESS; the incoming money itself is always recorded
// as a separate SUCCESS row for audit history.
type Payment struct {
	ID        int             `json:"id"`
	StudentID int             `json:"studentId"`
	CourseID  int             `json:"courseId"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      PaymentMode     `json:"mode"`
	Status    PaymentStatus   `json:"status"`
	PaidAt    time.Time       `json:"paidAt"`
}

// User is a login account for the menu front end. PasswordHash holds a
// salted digest, never the plain password.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username" validate:"required"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// StudentReport is the per-student summary assembled by the report
// service; it is derived data and never persisted by the stores.
type StudentReport struct {
	StudentID         int
	Name              string
	Email             string
	CourseID          int
	TotalPaid         decimal.Decimal
	AttendancePercent float64
}

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations.
//
// Each enum is a closed string type with a strict parse function. Parsing
// fails on unknown literals rather than defaulting: a typo'd mode in a
// snapshot line makes that line malformed, it does not silently become CASH.
// ─────────────────────────────────────────────────────────────────────────────

// PaymentMode is the channel money arrived through.
type PaymentMode string

const (
	ModeCash PaymentMode = "CASH"
	ModeUPI  PaymentMode = "UPI"
	ModeCard PaymentMode = "CARD"
)

// ParsePaymentMode converts a serialized literal back to a PaymentMode.
func ParsePaymentMode(s string) (PaymentMode, error) {
	switch PaymentMode(s) {
	case ModeCash, ModeUPI, ModeCard:
		return PaymentMode(s), nil
	}
	return "", fmt.Errorf("unknown payment mode %q", s)
}

// PaymentStatus distinguishes obligations from received money.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusSuccess PaymentStatus = "SUCCESS"
)

// ParsePaymentStatus converts a serialized literal back to a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case StatusPending, StatusSuccess:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// Role controls which dashboard a user lands in after login.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts a serialized literal back to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}
