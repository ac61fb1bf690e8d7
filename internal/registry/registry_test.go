package registry

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openRegistries(t *testing.T) (*Registries, string) {
	t.Helper()
	dir := t.TempDir()
	regs, err := Open(dir, testLogger())
	require.NoError(t, err)
	return regs, dir
}

func addCourse(t *testing.T, regs *Registries) int {
	t.Helper()
	id, err := regs.Courses.AddCourse(types.Course{Name: "Go Basics", Duration: 6, Fees: dec("1000.00")})
	require.NoError(t, err)
	return id
}

func TestCourseLifecycle(t *testing.T) {
	regs, _ := openRegistries(t)

	id := addCourse(t, regs)
	got, err := regs.Courses.GetCourseByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Go Basics", got.Name)
	assert.True(t, got.Fees.Equal(dec("1000.00")))

	got.Name = "Go Advanced"
	require.NoError(t, regs.Courses.UpdateCourse(id, got))
	got, err = regs.Courses.GetCourseByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Go Advanced", got.Name)

	require.NoError(t, regs.Courses.DeleteCourse(id))
	_, err = regs.Courses.GetCourseByID(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCourseValidation(t *testing.T) {
	regs, _ := openRegistries(t)

	_, err := regs.Courses.AddCourse(types.Course{Duration: 6, Fees: dec("10")})
	assert.ErrorIs(t, err, storage.ErrValidation, "missing name")

	_, err = regs.Courses.AddCourse(types.Course{Name: "X", Duration: 6, Fees: dec("-1")})
	assert.ErrorIs(t, err, storage.ErrValidation, "negative fees")

	_, err = regs.Courses.AddCourse(types.Course{Name: "X", Duration: 6, Fees: dec("10"), TeacherID: 404})
	assert.ErrorIs(t, err, storage.ErrNotFound, "unknown teacher")
}

func TestDeleteCourseBlockedByEnrollment(t *testing.T) {
	regs, _ := openRegistries(t)
	courseID := addCourse(t, regs)

	studentID, err := regs.Students.AddStudent(types.Student{
		Name: "Asha", Email: "asha@test.com", CourseID: courseID,
	})
	require.NoError(t, err)

	err = regs.Courses.DeleteCourse(courseID)
	assert.ErrorIs(t, err, storage.ErrStateConflict)

	// After the last enrolled student leaves, the delete goes through.
	require.NoError(t, regs.Students.DeleteStudent(studentID))
	assert.NoError(t, regs.Courses.DeleteCourse(courseID))
}

func TestDeleteTeacherBlockedByAssignment(t *testing.T) {
	regs, _ := openRegistries(t)

	teacherID, err := regs.Teachers.AddTeacher(types.Teacher{
		Name: "Mohan", Subject: "Go", Salary: dec("50000"),
	})
	require.NoError(t, err)

	courseID, err := regs.Courses.AddCourse(types.Course{
		Name: "Go Basics", Duration: 6, Fees: dec("1000"), TeacherID: teacherID,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, regs.Teachers.DeleteTeacher(teacherID), storage.ErrStateConflict)

	require.NoError(t, regs.Courses.DeleteCourse(courseID))
	assert.NoError(t, regs.Teachers.DeleteTeacher(teacherID))
}

func TestTeacherSalaryMustBePositive(t *testing.T) {
	regs, _ := openRegistries(t)

	_, err := regs.Teachers.AddTeacher(types.Teacher{Name: "M", Subject: "Go", Salary: dec("0")})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestStudentValidation(t *testing.T) {
	regs, _ := openRegistries(t)
	courseID := addCourse(t, regs)

	_, err := regs.Students.AddStudent(types.Student{Name: "A", Email: "not-an-email", CourseID: courseID})
	assert.ErrorIs(t, err, storage.ErrValidation, "invalid email")

	_, err = regs.Students.AddStudent(types.Student{Name: "A", Email: "a@test.com", CourseID: 404})
	assert.ErrorIs(t, err, storage.ErrNotFound, "unknown course")
}

func TestStudentUserLinkIsUnique(t *testing.T) {
	regs, _ := openRegistries(t)
	courseID := addCourse(t, regs)

	first, err := regs.Students.AddStudent(types.Student{
		UserID: 77, Name: "A", Email: "a@test.com", CourseID: courseID,
	})
	require.NoError(t, err)

	_, err = regs.Students.AddStudent(types.Student{
		UserID: 77, Name: "B", Email: "b@test.com", CourseID: courseID,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	// A student may keep their own link through an update.
	student, err := regs.Students.GetStudentByID(first)
	require.NoError(t, err)
	student.Name = "A2"
	assert.NoError(t, regs.Students.UpdateStudent(first, student))

	got, err := regs.Students.GetStudentByUserID(77)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
}

func TestRegistriesReload(t *testing.T) {
	regs, dir := openRegistries(t)
	courseID := addCourse(t, regs)
	_, err := regs.Students.AddStudent(types.Student{
		Name: "Asha", Email: "asha@test.com", CourseID: courseID,
	})
	require.NoError(t, err)

	reloaded, err := Open(dir, testLogger())
	require.NoError(t, err)
	assert.Equal(t, regs.Courses.GetAllCourses(), reloaded.Courses.GetAllCourses())
	assert.Equal(t, regs.Students.GetAllStudents(), reloaded.Students.GetAllStudents())

	// Fresh ids never collide with persisted ones.
	newID, err := reloaded.Courses.AddCourse(types.Course{Name: "Next", Duration: 3, Fees: dec("500")})
	require.NoError(t, err)
	assert.NotEqual(t, courseID, newID)
}

func TestStudentsGroupedByCourse(t *testing.T) {
	regs, _ := openRegistries(t)
	c1 := addCourse(t, regs)
	c2, err := regs.Courses.AddCourse(types.Course{Name: "SQL", Duration: 3, Fees: dec("700")})
	require.NoError(t, err)

	for _, s := range []types.Student{
		{Name: "A", Email: "a@test.com", CourseID: c1},
		{Name: "B", Email: "b@test.com", CourseID: c1},
		{Name: "C", Email: "c@test.com", CourseID: c2},
	} {
		_, err := regs.Students.AddStudent(s)
		require.NoError(t, err)
	}

	grouped := regs.Students.StudentsGroupedByCourse()
	assert.Len(t, grouped[c1], 2)
	assert.Len(t, grouped[c2], 1)
}
