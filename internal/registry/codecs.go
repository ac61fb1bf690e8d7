package registry

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/institutehq/institute-api/internal/types"
)

// CSV codecs for the registry entities. Decode errors mark a row
// malformed; the store loader skips such rows instead of aborting.

type courseCodec struct{}

func (courseCodec) Header() []string { return []string{"courseId", "courseName", "duration", "fees", "teacherId"} }

func (courseCodec) ID(c types.Course) int { return c.ID }

func (courseCodec) Encode(c types.Course) []string {
	teacher := ""
	if c.TeacherID != 0 {
		teacher = strconv.Itoa(c.TeacherID)
	}
	return []string{
		strconv.Itoa(c.ID),
		c.Name,
		strconv.Itoa(c.Duration),
		c.Fees.String(),
		teacher,
	}
}

func (courseCodec) Decode(row []string) (types.Course, error) {
	// teacherId is optional: legacy snapshots carry four fields.
	if len(row) != 4 && len(row) != 5 {
		return types.Course{}, fmt.Errorf("course row has %d fields", len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return types.Course{}, fmt.Errorf("course id: %w", err)
	}
	duration, err := strconv.Atoi(row[2])
	if err != nil {
		return types.Course{}, fmt.Errorf("course duration: %w", err)
	}
	fees, err := decimal.NewFromString(row[3])
	if err != nil {
		return types.Course{}, fmt.Errorf("course fees: %w", err)
	}
	if fees.Sign() < 0 {
		return types.Course{}, fmt.Errorf("course fees %s is negative", fees)
	}
	teacherID := 0
	if len(row) == 5 && row[4] != "" {
		teacherID, err = strconv.Atoi(row[4])
		if err != nil {
			return types.Course{}, fmt.Errorf("course teacher id: %w", err)
		}
	}
	return types.Course{ID: id, Name: row[1], Duration: duration, Fees: fees, TeacherID: teacherID}, nil
}

type teacherCodec struct{}

func (teacherCodec) Header() []string { return []string{"teacherId", "name", "subject", "salary"} }

func (teacherCodec) ID(t types.Teacher) int { return t.ID }

func (teacherCodec) Encode(t types.Teacher) []string {
	return []string{strconv.Itoa(t.ID), t.Name, t.Subject, t.Salary.String()}
}

func (teacherCodec) Decode(row []string) (types.Teacher, error) {
	if len(row) != 4 {
		return types.Teacher{}, fmt.Errorf("teacher row has %d fields", len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return types.Teacher{}, fmt.Errorf("teacher id: %w", err)
	}
	salary, err := decimal.NewFromString(row[3])
	if err != nil {
		return types.Teacher{}, fmt.Errorf("teacher salary: %w", err)
	}
	if salary.Sign() <= 0 {
		return types.Teacher{}, fmt.Errorf("teacher salary %s is not positive", salary)
	}
	return types.Teacher{ID: id, Name: row[1], Subject: row[2], Salary: salary}, nil
}

type studentCodec struct{}

func (studentCodec) Header() []string { return []string{"studentId", "userId", "name", "email", "courseId"} }

func (studentCodec) ID(s types.Student) int { return s.ID }

func (studentCodec) Encode(s types.Student) []string {
	user := ""
	if s.UserID != 0 {
		user = strconv.Itoa(s.UserID)
	}
	return []string{strconv.Itoa(s.ID), user, s.Name, s.Email, strconv.Itoa(s.CourseID)}
}

func (studentCodec) Decode(row []string) (types.Student, error) {
	// userId is optional: legacy snapshots carry four fields
	// (studentId,name,email,courseId).
	var id, userID, courseID int
	var name, email string
	var err error

	switch len(row) {
	case 4:
		name, email = row[1], row[2]
		if courseID, err = strconv.Atoi(row[3]); err != nil {
			return types.Student{}, fmt.Errorf("student course id: %w", err)
		}
	case 5:
		if row[1] != "" {
			if userID, err = strconv.Atoi(row[1]); err != nil {
				return types.Student{}, fmt.Errorf("student user id: %w", err)
			}
		}
		name, email = row[2], row[3]
		if courseID, err = strconv.Atoi(row[4]); err != nil {
			return types.Student{}, fmt.Errorf("student course id: %w", err)
		}
	default:
		return types.Student{}, fmt.Errorf("student row has %d fields", len(row))
	}
	if id, err = strconv.Atoi(row[0]); err != nil {
		return types.Student{}, fmt.Errorf("student id: %w", err)
	}
	return types.Student{ID: id, UserID: userID, Name: name, Email: email, CourseID: courseID}, nil
}
