package cli

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/institutehq/institute-api/internal/types"
)

func (ui *UI) studentMenu(user types.User) {
	student, err := ui.regs.Students.GetStudentByUserID(user.ID)
	if err != nil {
		fmt.Fprintln(ui.out, "No student record is linked to this account yet.")
		return
	}

	for {
		fmt.Fprintln(ui.out, "\n--- STUDENT DASHBOARD ---")
		fmt.Fprintln(ui.out, "1) Attendance %")
		fmt.Fprintln(ui.out, "2) Pending fees")
		fmt.Fprintln(ui.out, "3) Payment history")
		fmt.Fprintln(ui.out, "4) Profile")
		fmt.Fprintln(ui.out, "5) Course details")
		fmt.Fprintln(ui.out, "0) Logout")
		fmt.Fprint(ui.out, "> ")

		switch ui.readLine() {
		case "1":
			percent, err := ui.attendance.AttendancePercentage(student.ID)
			if err != nil {
				ui.printErr(err)
				continue
			}
			fmt.Fprintf(ui.out, "Attendance: %.2f%%\n", percent)
		case "2":
			outstanding, ok := ui.payments.StudentsWithPendingFees()[student.ID]
			if !ok {
				outstanding = decimal.Zero
			}
			fmt.Fprintf(ui.out, "Pending fees: %s\n", outstanding)
		case "3":
			for _, p := range ui.payments.GetPaymentsByStudent(student.ID) {
				fmt.Fprintf(ui.out, "- %d  %s  %s  %s  %s\n",
					p.ID, p.Amount, p.Mode, p.Status, p.PaidAt.Format("2006-01-02 15:04"))
			}
		case "4":
			fmt.Fprintf(ui.out, "%d  %s <%s>  course %d\n", student.ID, student.Name, student.Email, student.CourseID)
		case "5":
			course, err := ui.regs.Courses.GetCourseByID(student.CourseID)
			if err != nil {
				ui.printErr(err)
				continue
			}
			fmt.Fprintf(ui.out, "%s - %d months, fees %s\n", course.Name, course.Duration, course.Fees)
		default:
			return
		}
	}
}
