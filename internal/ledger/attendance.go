package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/institutehq/institute-api/internal/storage"
	"github.com/institutehq/institute-api/internal/storage/filestore"
	"github.com/institutehq/institute-api/internal/types"
)

const (
	attendanceFile = "attendance.csv"
	attendanceLog  = "attendance-log.txt"
)

// AttendanceLedger keeps per-student attendance record lists. It shares
// the snapshot-file pattern with the generic store but its entries are
// list-valued (one student, many dated marks), so it carries its own map
// and lock instead of wrapping Store.
//
// Records are created once per student per day and never deleted through
// normal operation.
type AttendanceLedger struct {
	mu      sync.RWMutex
	path    string
	logPath string
	log     *slog.Logger

	records map[int][]types.Attendance
}

// OpenAttendanceLedger loads attendance.csv under dataDir, skipping
// malformed rows.
func OpenAttendanceLedger(dataDir string, log *slog.Logger) (*AttendanceLedger, error) {
	l := &AttendanceLedger{
		path:    filepath.Join(dataDir, attendanceFile),
		logPath: filepath.Join(dataDir, attendanceLog),
		log:     log,
		records: make(map[int][]types.Attendance),
	}

	rows, err := filestore.ReadRows(l.path)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		rec, err := decodeAttendance(row)
		if err != nil {
			log.Warn("skipping malformed attendance row",
				slog.String("path", l.path),
				slog.String("error", err.Error()))
			continue
		}
		l.records[rec.StudentID] = append(l.records[rec.StudentID], rec)
	}
	return l, nil
}

// MarkAttendance records one mark for (studentID, day). A second mark for
// the same calendar day is rejected, not overwritten.
func (l *AttendanceLedger) MarkAttendance(studentID int, day time.Time, present bool) error {
	date := day.Format(types.DateLayout)

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range l.records[studentID] {
		if rec.Date.Format(types.DateLayout) == date {
			return fmt.Errorf("attendance already marked for student %d on %s: %w",
				studentID, date, storage.ErrStateConflict)
		}
	}

	rec := types.Attendance{StudentID: studentID, Date: day, Present: present}
	l.records[studentID] = append(l.records[studentID], rec)

	if err := l.persistLocked(); err != nil {
		// Roll back so memory never claims a mark the disk lost.
		recs := l.records[studentID]
		l.records[studentID] = recs[:len(recs)-1]
		return fmt.Errorf("persist attendance: %w", err)
	}

	// Activity trail is best effort; a failed append never fails the mark.
	l.appendActivity(fmt.Sprintf("MARKED: student %d | date %s | present %t", studentID, date, present))

	l.log.Info("attendance marked",
		slog.Int("student", studentID),
		slog.String("date", date),
		slog.Bool("present", present))
	return nil
}

// RecordsByStudent returns a copy of the student's marks.
func (l *AttendanceLedger) RecordsByStudent(studentID int) []types.Attendance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := l.records[studentID]
	out := make([]types.Attendance, len(recs))
	copy(out, recs)
	return out
}

// AttendancePercentage is 100·present/total for the student. A student
// with zero records is an error, not 0%; callers must not divide a
// missing history into a number.
func (l *AttendanceLedger) AttendancePercentage(studentID int) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := l.records[studentID]
	if len(recs) == 0 {
		return 0, fmt.Errorf("no attendance records for student %d: %w", studentID, storage.ErrNotFound)
	}
	present := 0
	for _, rec := range recs {
		if rec.Present {
			present++
		}
	}
	return 100 * float64(present) / float64(len(recs)), nil
}

// StudentsBelowAttendance returns the ids of students with at least one
// record whose percentage is strictly below threshold. Students with no
// records are excluded, not treated as 0%.
func (l *AttendanceLedger) StudentsBelowAttendance(threshold float64) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []int
	for id, recs := range l.records {
		if len(recs) == 0 {
			continue
		}
		present := 0
		for _, rec := range recs {
			if rec.Present {
				present++
			}
		}
		if 100*float64(present)/float64(len(recs)) < threshold {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// persistLocked rewrites the whole attendance snapshot. Student ids are
// written in ascending order so the file is deterministic.
func (l *AttendanceLedger) persistLocked() error {
	ids := make([]int, 0, len(l.records))
	for id := range l.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var rows [][]string
	for _, id := range ids {
		for _, rec := range l.records[id] {
			rows = append(rows, []string{
				strconv.Itoa(rec.StudentID),
				rec.Date.Format(types.DateLayout),
				strconv.FormatBool(rec.Present),
			})
		}
	}
	return filestore.WriteSnapshot(l.path, []string{"studentId", "date", "present"}, rows)
}

func (l *AttendanceLedger) appendActivity(line string) {
	f, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Warn("attendance activity log unavailable", slog.String("error", err.Error()))
		return
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		l.log.Warn("attendance activity log write failed", slog.String("error", err.Error()))
	}
}

func decodeAttendance(row []string) (types.Attendance, error) {
	if len(row) != 3 {
		return types.Attendance{}, fmt.Errorf("attendance row has %d fields", len(row))
	}
	studentID, err := strconv.Atoi(row[0])
	if err != nil {
		return types.Attendance{}, fmt.Errorf("attendance student id: %w", err)
	}
	date, err := time.Parse(types.DateLayout, row[1])
	if err != nil {
		return types.Attendance{}, fmt.Errorf("attendance date: %w", err)
	}
	present, err := strconv.ParseBool(row[2])
	if err != nil {
		return types.Attendance{}, fmt.Errorf("attendance present flag: %w", err)
	}
	return types.Attendance{StudentID: studentID, Date: date, Present: present}, nil
}
