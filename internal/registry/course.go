package registry

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/types"
)

// CourseCatalog owns the canonical set of courses. The payment ledger
// consults it for fee amounts and never mutates it.
type CourseCatalog struct {
	store    *filestore.Store[types.Course]
	validate *validator.Validate
	teachers *TeacherRegistry
	students *StudentRegistry
	log      *slog.Logger
}

// AddCourse validates and inserts a course, assigning a fresh id when the
// caller left ID zero. Returns the id of the stored course.
func (c *CourseCatalog) AddCourse(course types.Course) (int, error) {
	if err := c.checkCourse(course); err != nil {
		return 0, err
	}
	if course.ID == 0 {
		course.ID = c.store.NextID()
	}
	if err := c.store.Add(course); err != nil {
		return 0, fmt.Errorf("add course: %w", err)
	}
	c.log.Info("course added", slog.Int("id", course.ID), slog.String("name", course.Name))
	return course.ID, nil
}

// GetCourseByID returns the course with the given id.
func (c *CourseCatalog) GetCourseByID(id int) (types.Course, error) {
	course, err := c.store.GetByID(id)
	if err != nil {
		return types.Course{}, fmt.Errorf("course: %w", err)
	}
	return course, nil
}

// GetAllCourses returns a snapshot of every course in insertion order.
func (c *CourseCatalog) GetAllCourses() []types.Course {
	return c.store.GetAll()
}

// UpdateCourse replaces the whole record under id (full replacement, not
// a partial patch).
func (c *CourseCatalog) UpdateCourse(id int, course types.Course) error {
	if err := c.checkCourse(course); err != nil {
		return err
	}
	if err := c.store.Update(id, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	c.log.Info("course updated", slog.Int("id", id))
	return nil
}

// DeleteCourse removes a course. Blocked while any student references it.
func (c *CourseCatalog) DeleteCourse(id int) error {
	if _, err := c.store.GetByID(id); err != nil {
		return fmt.Errorf("course: %w", err)
	}
	if c.students.anyEnrolledIn(id) {
		return fmt.Errorf("course %d still has enrolled students: %w", id, storage.ErrStateConflict)
	}
	if err := c.store.Delete(id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	c.log.Info("course deleted", slog.Int("id", id))
	return nil
}

// CoursesByTeacher returns the courses currently assigned to a teacher.
func (c *CourseCatalog) CoursesByTeacher(teacherID int) []types.Course {
	var out []types.Course
	for _, course := range c.store.GetAll() {
		if course.TeacherID == teacherID {
			out = append(out, course)
		}
	}
	return out
}

func (c *CourseCatalog) anyByTeacher(teacherID int) bool {
	for _, course := range c.store.GetAll() {
		if course.TeacherID == teacherID {
			return true
		}
	}
	return false
}

func (c *CourseCatalog) checkCourse(course types.Course) error {
	if err := c.validate.Struct(course); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	if course.Fees.Sign() < 0 {
		return fmt.Errorf("%w: course fees must not be negative", storage.ErrValidation)
	}
	if course.TeacherID != 0 {
		if _, err := c.teachers.GetTeacherByID(course.TeacherID); err != nil {
			return err
		}
	}
	return nil
}
