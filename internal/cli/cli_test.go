package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institutehq/institute-api/internal/auth"
	"github.com/institutehq/institute-api/internal/ledger"
	"github.com/institutehq/institute-api/internal/registry"
	"github.com/institutehq/institute-api/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// A free course cannot open an obligation, so the enrollment must fail
// without leaving the half-created student behind.
func TestEnrollStudentRollsBackOnObligationFailure(t *testing.T) {
	dir := t.TempDir()
	log := testLogger()

	regs, err := registry.Open(dir, log)
	require.NoError(t, err)
	payments, err := ledger.OpenPaymentLedger(dir, regs.Courses, regs.Students, log)
	require.NoError(t, err)
	attendance, err := ledger.OpenAttendanceLedger(dir, log)
	require.NoError(t, err)
	users, err := auth.Open(dir, log)
	require.NoError(t, err)

	courseID, err := regs.Courses.AddCourse(types.Course{Name: "Free Seminar", Duration: 1, Fees: decimal.Zero})
	require.NoError(t, err)

	// Name, email, course id, blank username link.
	input := fmt.Sprintf("Asha\nasha@test.com\n%d\n\n", courseID)
	var out bytes.Buffer
	ui := New(users, regs, payments, attendance, nil, bufio.NewReader(strings.NewReader(input)), &out)

	ui.enrollStudent()

	assert.Contains(t, out.String(), "Error:")
	assert.Empty(t, regs.Students.GetAllStudents(), "failed enrollment must not leave a student behind")
	assert.Empty(t, payments.GetAllPayments())
}
