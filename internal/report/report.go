// Package report generates offline reports from consistent store
// snapshots.
//
// Jobs run on a fixed worker pool and only read: they consult the query
// methods of the registries and ledgers and never mutate a store. Text
// reports land under the configured report directory; archive exports
// land in the SQLite reporting archive tagged with a run id.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/institutehq/institute-api/internal/config"
	"github.com/institutehq/institute-api/internal/ledger"
	"github.com/institutehq/institute-api/internal/registry"
	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/sqlite"
	"github.com/institutehq/institute-api/internal/types"
)

// ErrClosed is returned when a report is requested after shutdown began.
var ErrClosed = errors.New("report service is closed")

type job struct {
	name string
	run  func() error
}

// Service owns the report worker pool and the reporting archive.
type Service struct {
	regs       *registry.Registries
	payments   *ledger.PaymentLedger
	attendance *ledger.AttendanceLedger
	archive    *sqlite.Archive
	dir        string
	log        *slog.Logger

	mu     sync.Mutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// New creates the report directory, opens the archive database, and
// starts the worker pool.
func New(cfg config.Report, regs *registry.Registries, payments *ledger.PaymentLedger,
	attendance *ledger.AttendanceLedger, log *slog.Logger) (*Service, error) {

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ArchivePath), 0o755); err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	archive, err := sqlite.Open(cfg.ArchivePath)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	s := &Service{
		regs:       regs,
		payments:   payments,
		attendance: attendance,
		archive:    archive,
		dir:        cfg.Dir,
		log:        log,
		jobs:       make(chan job, workers*4),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s, nil
}

func (s *Service) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		if err := j.run(); err != nil {
			// A failed report never takes the process down; it is logged
			// and the pool moves on.
			s.log.Error("report generation failed",
				slog.String("report", j.name),
				slog.String("error", err.Error()))
			continue
		}
		s.log.Info("report generated", slog.String("report", j.name))
	}
}

func (s *Service) enqueue(name string, run func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.jobs <- job{name: name, run: run}
	return nil
}

// Close stops accepting jobs and drains the pool, bounded by ctx. The
// archive database is closed once the workers are done (or abandoned at
// the deadline).
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return s.archive.Close()
	case <-ctx.Done():
		return fmt.Errorf("report drain: %w", ctx.Err())
	}
}

// StudentReport assembles the per-student summary synchronously: totals
// paid plus attendance percentage (0 when the student has no records
// yet).
func (s *Service) StudentReport(studentID int) (types.StudentReport, error) {
	student, err := s.regs.Students.GetStudentByID(studentID)
	if err != nil {
		return types.StudentReport{}, err
	}
	percent, err := s.attendance.AttendancePercentage(studentID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return types.StudentReport{}, err
		}
		percent = 0 // no marks yet
	}
	return types.StudentReport{
		StudentID:         student.ID,
		Name:              student.Name,
		Email:             student.Email,
		CourseID:          student.CourseID,
		TotalPaid:         s.payments.TotalPaidByStudent(studentID),
		AttendancePercent: percent,
	}, nil
}

// GenerateStudentSummaryAsync queues the all-students summary report.
func (s *Service) GenerateStudentSummaryAsync() error {
	return s.enqueue("student-summary", func() error {
		var b strings.Builder
		header(&b, "STUDENT REPORT")
		for _, student := range s.regs.Students.GetAllStudents() {
			rep, err := s.StudentReport(student.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, "--------------------------------\n")
			fmt.Fprintf(&b, "ID           : %d\n", rep.StudentID)
			fmt.Fprintf(&b, "Name         : %s\n", rep.Name)
			fmt.Fprintf(&b, "Email        : %s\n", rep.Email)
			fmt.Fprintf(&b, "Attendance %% : %.2f\n", rep.AttendancePercent)
			fmt.Fprintf(&b, "Fees Paid    : %s\n", rep.TotalPaid)
		}
		return s.write("student-report.txt", b.String())
	})
}

// GeneratePendingFeesAsync queues the outstanding-balance report.
func (s *Service) GeneratePendingFeesAsync() error {
	return s.enqueue("pending-fees", func() error {
		pending := s.payments.StudentsWithPendingFees()
		ids := make([]int, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		var b strings.Builder
		header(&b, "PENDING FEES REPORT")
		for _, id := range ids {
			fmt.Fprintf(&b, "Student ID: %d  Outstanding: %s\n", id, pending[id])
		}
		return s.write("pending-fees-report.txt", b.String())
	})
}

// GenerateLowAttendanceAsync queues the below-threshold attendance
// report.
func (s *Service) GenerateLowAttendanceAsync(threshold float64) error {
	return s.enqueue("low-attendance", func() error {
		var b strings.Builder
		header(&b, "LOW ATTENDANCE REPORT")
		fmt.Fprintf(&b, "Threshold: %.1f%%\n\n", threshold)
		for _, id := range s.attendance.StudentsBelowAttendance(threshold) {
			fmt.Fprintf(&b, "Student ID: %d\n", id)
		}
		return s.write("low-attendance-report.txt", b.String())
	})
}

// GenerateTeacherCoursesAsync queues the teacher→course mapping report.
func (s *Service) GenerateTeacherCoursesAsync() error {
	return s.enqueue("teacher-courses", func() error {
		var b strings.Builder
		header(&b, "TEACHER COURSE MAPPING")
		for _, teacher := range s.regs.Teachers.GetAllTeachers() {
			courses := s.regs.Courses.CoursesByTeacher(teacher.ID)
			if len(courses) == 0 {
				fmt.Fprintf(&b, "%s (%s) -> unassigned\n", teacher.Name, teacher.Subject)
				continue
			}
			for _, course := range courses {
				fmt.Fprintf(&b, "%s (%s) -> %s\n", teacher.Name, teacher.Subject, course.Name)
			}
		}
		return s.write("teacher-course-mapping-report.txt", b.String())
	})
}

// ExportArchiveAsync queues a snapshot export into the SQLite archive
// and returns the run id the export will be tagged with.
func (s *Service) ExportArchiveAsync() (string, error) {
	runID := uuid.NewString()
	err := s.enqueue("archive-export", func() error {
		return s.archive.StoreSnapshot(
			runID,
			time.Now(),
			s.regs.Students.GetAllStudents(),
			s.payments.GetAllPayments(),
			s.payments.StudentsWithPendingFees(),
		)
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Service) write(name, content string) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func header(b *strings.Builder, title string) {
	fmt.Fprintf(b, "===== %s =====\n", title)
	fmt.Fprintf(b, "Generated At: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
