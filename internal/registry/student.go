package registry

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/types"
)

// StudentRegistry owns the canonical set of students.
type StudentRegistry struct {
	store    *filestore.Store[types.Student]
	validate *validator.Validate
	courses  *CourseCatalog
	log      *slog.Logger
}

// AddStudent validates and inserts a student, assigning a fresh id when
// the caller left ID zero. The referenced course must exist, and the
// linked user id (when present) must not already belong to another
// student.
func (r *StudentRegistry) AddStudent(student types.Student) (int, error) {
	if err := r.checkStudent(student, 0); err != nil {
		return 0, err
	}
	if student.ID == 0 {
		student.ID = r.store.NextID()
	}
	if err := r.store.Add(student); err != nil {
		return 0, fmt.Errorf("add student: %w", err)
	}
	r.log.Info("student added", slog.Int("id", student.ID), slog.String("name", student.Name))
	return student.ID, nil
}

// GetStudentByID returns the student with the given id.
func (r *StudentRegistry) GetStudentByID(id int) (types.Student, error) {
	student, err := r.store.GetByID(id)
	if err != nil {
		return types.Student{}, fmt.Errorf("student: %w", err)
	}
	return student, nil
}

// GetStudentByUserID resolves a login account to its student record.
func (r *StudentRegistry) GetStudentByUserID(userID int) (types.Student, error) {
	for _, student := range r.store.GetAll() {
		if student.UserID == userID {
			return student, nil
		}
	}
	return types.Student{}, fmt.Errorf("student for user %d: %w", userID, storage.ErrNotFound)
}

// GetAllStudents returns a snapshot of every student in insertion order.
func (r *StudentRegistry) GetAllStudents() []types.Student {
	return r.store.GetAll()
}

// StudentsGroupedByCourse buckets the current students by course id.
func (r *StudentRegistry) StudentsGroupedByCourse() map[int][]types.Student {
	grouped := make(map[int][]types.Student)
	for _, student := range r.store.GetAll() {
		grouped[student.CourseID] = append(grouped[student.CourseID], student)
	}
	return grouped
}

// UpdateStudent replaces the whole record under id.
func (r *StudentRegistry) UpdateStudent(id int, student types.Student) error {
	if err := r.checkStudent(student, id); err != nil {
		return err
	}
	if err := r.store.Update(id, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	r.log.Info("student updated", slog.Int("id", id))
	return nil
}

// DeleteStudent removes a student.
func (r *StudentRegistry) DeleteStudent(id int) error {
	if err := r.store.Delete(id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	r.log.Info("student deleted", slog.Int("id", id))
	return nil
}

func (r *StudentRegistry) anyEnrolledIn(courseID int) bool {
	for _, student := range r.store.GetAll() {
		if student.CourseID == courseID {
			return true
		}
	}
	return false
}

// checkStudent runs field validation plus the cross-entity rules. self is
// the id being updated (0 on add) so a student keeps their own user link.
func (r *StudentRegistry) checkStudent(student types.Student, self int) error {
	if err := r.validate.Struct(student); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	if _, err := r.courses.GetCourseByID(student.CourseID); err != nil {
		return err
	}
	if student.UserID != 0 {
		for _, other := range r.store.GetAll() {
			if other.UserID == student.UserID && other.ID != self {
				return fmt.Errorf("user %d is already linked to student %d: %w",
					student.UserID, other.ID, storage.ErrDuplicate)
			}
		}
	}
	return nil
}
