package cli

import (
	"fmt"
	"time"

	"github.com/institutehq/institute-api/internal/types"
)

func (ui *UI) adminMenu() {
	for {
		fmt.Fprintln(ui.out, "\n--- ADMIN DASHBOARD ---")
		fmt.Fprintln(ui.out, "1) Add course        2) List courses    3) Delete course")
		fmt.Fprintln(ui.out, "4) Add teacher       5) List teachers   6) Delete teacher")
		fmt.Fprintln(ui.out, "7) Enroll student    8) List students   9) Delete student")
		fmt.Fprintln(ui.out, "10) Mark attendance  11) Record payment 12) Student report")
		fmt.Fprintln(ui.out, "13) Generate reports 14) Export archive")
		fmt.Fprintln(ui.out, "0) Logout")
		fmt.Fprint(ui.out, "> ")

		switch ui.readLine() {
		case "1":
			ui.addCourse()
		case "2":
			ui.listCourses()
		case "3":
			ui.deleteCourse()
		case "4":
			ui.addTeacher()
		case "5":
			ui.listTeachers()
		case "6":
			ui.deleteTeacher()
		case "7":
			ui.enrollStudent()
		case "8":
			ui.listStudents()
		case "9":
			ui.deleteStudent()
		case "10":
			ui.markAttendance()
		case "11":
			ui.recordPayment()
		case "12":
			ui.studentReport()
		case "13":
			ui.generateReports()
		case "14":
			ui.exportArchive()
		default:
			return
		}
	}
}

func (ui *UI) addCourse() {
	fmt.Fprint(ui.out, "Course name: ")
	name := ui.readLine()
	duration, ok := ui.readInt("Duration (months): ")
	if !ok {
		return
	}
	fees, ok := ui.readDecimal("Fees: ")
	if !ok {
		return
	}
	teacherID, ok := ui.readInt("Teacher id (0 = none): ")
	if !ok {
		return
	}
	id, err := ui.regs.Courses.AddCourse(types.Course{
		Name: name, Duration: duration, Fees: fees, TeacherID: teacherID,
	})
	if err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "Course %d added.\n", id)
}

func (ui *UI) listCourses() {
	for _, c := range ui.regs.Courses.GetAllCourses() {
		fmt.Fprintf(ui.out, "- %d  %s  %d months  fees %s\n", c.ID, c.Name, c.Duration, c.Fees)
	}
}

func (ui *UI) deleteCourse() {
	id, ok := ui.readInt("Course id: ")
	if !ok {
		return
	}
	if err := ui.regs.Courses.DeleteCourse(id); err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintln(ui.out, "Course deleted.")
}

func (ui *UI) addTeacher() {
	fmt.Fprint(ui.out, "Name: ")
	name := ui.readLine()
	fmt.Fprint(ui.out, "Subject: ")
	subject := ui.readLine()
	salary, ok := ui.readDecimal("Salary: ")
	if !ok {
		return
	}
	id, err := ui.regs.Teachers.AddTeacher(types.Teacher{Name: name, Subject: subject, Salary: salary})
	if err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "Teacher %d added.\n", id)
}

func (ui *UI) listTeachers() {
	for _, t := range ui.regs.Teachers.GetAllTeachers() {
		fmt.Fprintf(ui.out, "- %d  %s  %s\n", t.ID, t.Name, t.Subject)
	}
}

func (ui *UI) deleteTeacher() {
	id, ok := ui.readInt("Teacher id: ")
	if !ok {
		return
	}
	if err := ui.regs.Teachers.DeleteTeacher(id); err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintln(ui.out, "Teacher deleted.")
}

// enrollStudent creates the student and opens the full-fee obligation in
// the payment ledger.
func (ui *UI) enrollStudent() {
	fmt.Fprint(ui.out, "Name: ")
	name := ui.readLine()
	fmt.Fprint(ui.out, "Email: ")
	email := ui.readLine()
	courseID, ok := ui.readInt("Course id: ")
	if !ok {
		return
	}
	fmt.Fprint(ui.out, "Login username to link (blank = none): ")
	username := ui.readLine()

	userID := 0
	if username != "" {
		user, err := ui.users.UserByUsername(username)
		if err != nil {
			ui.printErr(err)
			return
		}
		userID = user.ID
	}

	course, err := ui.regs.Courses.GetCourseByID(courseID)
	if err != nil {
		ui.printErr(err)
		return
	}

	studentID, err := ui.regs.Students.AddStudent(types.Student{
		UserID: userID, Name: name, Email: email, CourseID: courseID,
	})
	if err != nil {
		ui.printErr(err)
		return
	}

	if _, err := ui.payments.CreatePendingPayment(studentID, courseID, course.Fees); err != nil {
		// Enrollment is all-or-nothing: drop the student again rather than
		// leave one behind with no payable balance.
		if delErr := ui.regs.Students.DeleteStudent(studentID); delErr != nil {
			ui.printErr(delErr)
		}
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "Student %d enrolled; fees %s due.\n", studentID, course.Fees)
}

func (ui *UI) listStudents() {
	for _, s := range ui.regs.Students.GetAllStudents() {
		fmt.Fprintf(ui.out, "- %d  %s  %s  course %d\n", s.ID, s.Name, s.Email, s.CourseID)
	}
}

func (ui *UI) deleteStudent() {
	id, ok := ui.readInt("Student id: ")
	if !ok {
		return
	}
	if err := ui.regs.Students.DeleteStudent(id); err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintln(ui.out, "Student deleted.")
}

func (ui *UI) markAttendance() {
	id, ok := ui.readInt("Student id: ")
	if !ok {
		return
	}
	fmt.Fprint(ui.out, "Present? (y/n): ")
	present := ui.readLine() == "y"
	if err := ui.attendance.MarkAttendance(id, time.Now(), present); err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintln(ui.out, "Attendance marked.")
}

func (ui *UI) recordPayment() {
	studentID, ok := ui.readInt("Student id: ")
	if !ok {
		return
	}
	courseID, ok := ui.readInt("Course id: ")
	if !ok {
		return
	}
	amount, ok := ui.readDecimal("Amount: ")
	if !ok {
		return
	}
	fmt.Fprint(ui.out, "Mode (CASH/UPI/CARD): ")
	mode, err := types.ParsePaymentMode(ui.readLine())
	if err != nil {
		ui.printErr(err)
		return
	}

	txn, err := ui.payments.RecordPayment(studentID, courseID, amount, mode)
	if err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "Payment %d recorded (%s %s).\n", txn.ID, txn.Amount, txn.Mode)
}

func (ui *UI) studentReport() {
	id, ok := ui.readInt("Student id: ")
	if !ok {
		return
	}
	rep, err := ui.reports.StudentReport(id)
	if err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "%s <%s>  course %d  paid %s  attendance %.2f%%\n",
		rep.Name, rep.Email, rep.CourseID, rep.TotalPaid, rep.AttendancePercent)
}

func (ui *UI) generateReports() {
	for _, err := range []error{
		ui.reports.GenerateStudentSummaryAsync(),
		ui.reports.GeneratePendingFeesAsync(),
		ui.reports.GenerateLowAttendanceAsync(75),
		ui.reports.GenerateTeacherCoursesAsync(),
	} {
		if err != nil {
			ui.printErr(err)
			return
		}
	}
	fmt.Fprintln(ui.out, "Reports queued.")
}

func (ui *UI) exportArchive() {
	runID, err := ui.reports.ExportArchiveAsync()
	if err != nil {
		ui.printErr(err)
		return
	}
	fmt.Fprintf(ui.out, "Archive export queued (run %s).\n", runID)
}
