package registry

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/types"
)

// TeacherRegistry owns the canonical set of teachers.
type TeacherRegistry struct {
	store    *filestore.Store[types.Teacher]
	validate *validator.Validate
	courses  *CourseCatalog
	log      *slog.Logger
}

// AddTeacher validates and inserts a teacher, assigning a fresh id when
// the caller left ID zero.
func (t *TeacherRegistry) AddTeacher(teacher types.Teacher) (int, error) {
	if err := t.checkTeacher(teacher); err != nil {
		return 0, err
	}
	if teacher.ID == 0 {
		teacher.ID = t.store.NextID()
	}
	if err := t.store.Add(teacher); err != nil {
		return 0, fmt.Errorf("add teacher: %w", err)
	}
	t.log.Info("teacher added", slog.Int("id", teacher.ID), slog.String("name", teacher.Name))
	return teacher.ID, nil
}

// GetTeacherByID returns the teacher with the given id.
func (t *TeacherRegistry) GetTeacherByID(id int) (types.Teacher, error) {
	teacher, err := t.store.GetByID(id)
	if err != nil {
		return types.Teacher{}, fmt.Errorf("teacher: %w", err)
	}
	return teacher, nil
}

// GetAllTeachers returns a snapshot of every teacher in insertion order.
func (t *TeacherRegistry) GetAllTeachers() []types.Teacher {
	return t.store.GetAll()
}

// UpdateTeacher replaces the whole record under id.
func (t *TeacherRegistry) UpdateTeacher(id int, teacher types.Teacher) error {
	if err := t.checkTeacher(teacher); err != nil {
		return err
	}
	if err := t.store.Update(id, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	t.log.Info("teacher updated", slog.Int("id", id))
	return nil
}

// DeleteTeacher removes a teacher. Blocked while any course is assigned
// to them.
func (t *TeacherRegistry) DeleteTeacher(id int) error {
	if _, err := t.store.GetByID(id); err != nil {
		return fmt.Errorf("teacher: %w", err)
	}
	if t.courses.anyByTeacher(id) {
		return fmt.Errorf("teacher %d is still assigned to a course: %w", id, storage.ErrStateConflict)
	}
	if err := t.store.Delete(id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	t.log.Info("teacher deleted", slog.Int("id", id))
	return nil
}

func (t *TeacherRegistry) checkTeacher(teacher types.Teacher) error {
	if err := t.validate.Struct(teacher); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	if teacher.Salary.Sign() <= 0 {
		return fmt.Errorf("%w: teacher salary must be positive", storage.ErrValidation)
	}
	return nil
}
