package inmemdb

import (
	"sync"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/bonafide"
)

// DB is an in-memory store used by tests and local development.
type DB struct {
	students   *studentTable
	subjects   *subjectTable
	attendance *attendanceTable
	marks      *marksTable
	gpas       *gpaTable
	bonafides  *bonafideTable
}

type (
	studentTable struct {
		table map[string]*academic.Student // by roll number
		mutex sync.RWMutex
	}

	subjectTable struct {
		table   map[int]*academic.Subject
		pkCount int
		mutex   sync.RWMutex
	}

	attendanceKey struct {
		roll      string
		subjectID int
		date      int64 // unix day
		slot      int
	}

	attendanceTable struct {
		table map[attendanceKey]*academic.AttendanceRecord
		mutex sync.RWMutex
	}

	marksKey struct {
		roll      string
		subjectID int
	}

	marksTable struct {
		table map[marksKey]*academic.MarksRecord
		mutex sync.RWMutex
	}

	gpaKey struct {
		roll     string
		semester int
	}

	gpaTable struct {
		table map[gpaKey]*academic.SemesterGPARecord
		mutex sync.RWMutex
	}

	bonafideTable struct {
		table map[string]*bonafide.Request
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		students:   &studentTable{table: make(map[string]*academic.Student)},
		subjects:   &subjectTable{table: make(map[int]*academic.Subject)},
		attendance: &attendanceTable{table: make(map[attendanceKey]*academic.AttendanceRecord)},
		marks:      &marksTable{table: make(map[marksKey]*academic.MarksRecord)},
		gpas:       &gpaTable{table: make(map[gpaKey]*academic.SemesterGPARecord)},
		bonafides:  &bonafideTable{table: make(map[string]*bonafide.Request)},
	}
	return db, nil
}
