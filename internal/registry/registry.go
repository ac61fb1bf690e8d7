// Package registry provides the three entity registries (CourseCatalog,
// TeacherRegistry, StudentRegistry) as thin layers over the generic
// snapshot store.
//
// The stores themselves enforce no foreign-key logic; the registries own
// the referential rules that cross entity boundaries:
//
//   - a course cannot be deleted while students reference it
//   - a teacher cannot be deleted while assigned to a course
//   - a student's course must exist on add and update
//   - a student's linked user id is unique across students when present
//
// Cross-registry references are read-only lookups, never nested
// mutations, so no ordering is required between stores.
package registry

import (
	"log/slog"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/storage/idgen"
)

// Snapshot file names under the data directory.
const (
	coursesFile  = "courses.csv"
	teachersFile = "teachers.csv"
	studentsFile = "students.csv"
)

// Registries bundles the three wired registries. Constructed once at
// startup and passed by reference to whoever needs lookups; there is no
// ambient global state.
type Registries struct {
	Courses  *CourseCatalog
	Teachers *TeacherRegistry
	Students *StudentRegistry
}

// Open loads the three snapshot files under dataDir and wires the
// registries together. Each store gets its own id generator, seeded from
// its own snapshot.
func Open(dataDir string, log *slog.Logger) (*Registries, error) {
	validate := validator.New()

	courseStore, err := filestore.Open(filepath.Join(dataDir, coursesFile), courseCodec{}, idgen.New(), log)
	if err != nil {
		return nil, err
	}
	teacherStore, err := filestore.Open(filepath.Join(dataDir, teachersFile), teacherCodec{}, idgen.New(), log)
	if err != nil {
		return nil, err
	}
	studentStore, err := filestore.Open(filepath.Join(dataDir, studentsFile), studentCodec{}, idgen.New(), log)
	if err != nil {
		return nil, err
	}

	teachers := &TeacherRegistry{store: teacherStore, validate: validate, log: log}
	courses := &CourseCatalog{store: courseStore, validate: validate, teachers: teachers, log: log}
	students := &StudentRegistry{store: studentStore, validate: validate, courses: courses, log: log}

	// Back-references for the delete guards.
	teachers.courses = courses
	courses.students = students

	return &Registries{Courses: courses, Teachers: teachers, Students: students}, nil
}
