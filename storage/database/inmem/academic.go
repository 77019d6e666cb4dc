package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

// students at this semester or above are considered done with the course
const completedSemester = 9

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) *academicRepository {
	return &academicRepository{db: db}
}

// Students

func (repo *academicRepository) CreateStudent(ctx context.Context, stu academic.Student) (academic.Student, error) {
	t := repo.db.students
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.table[stu.RollNumber]; ok {
		return academic.Student{}, academic.ErrStudentExists
	}
	t.table[stu.RollNumber] = &stu
	return stu, nil
}

func (repo *academicRepository) GetStudentByRoll(ctx context.Context, roll string) (academic.Student, error) {
	t := repo.db.students
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if stu, ok := t.table[roll]; ok {
		return *stu, nil
	}
	return academic.Student{}, academic.ErrStudentNotFound
}

func (repo *academicRepository) QueryStudents(ctx context.Context, filter academic.QueryFilter, orderings []core.DBOrdering) ([]academic.Student, error) {
	t := repo.db.students
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	students := make([]academic.Student, 0, len(t.table))
	for _, stu := range t.table {
		if filter.Semester != nil && stu.CurrentSemester != *filter.Semester {
			continue
		}
		if filter.Completed != nil {
			completed := stu.CurrentSemester >= completedSemester
			if completed != *filter.Completed {
				continue
			}
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(stu.Name), search) &&
				!strings.Contains(strings.ToLower(stu.RollNumber), search) {
				continue
			}
		}
		students = append(students, *stu)
	}
	sortStudents(students, orderings)
	return students, nil
}

func sortStudents(students []academic.Student, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "roll_number", Ascending: true}}
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range orderings {
			var less, eq bool
			switch ord.Field {
			case "roll_number":
				less, eq = students[i].RollNumber < students[j].RollNumber, students[i].RollNumber == students[j].RollNumber
			case "name":
				less, eq = students[i].Name < students[j].Name, students[i].Name == students[j].Name
			case "current_semester":
				less, eq = students[i].CurrentSemester < students[j].CurrentSemester, students[i].CurrentSemester == students[j].CurrentSemester
			case "created_at":
				less, eq = students[i].CreatedAt.Before(students[j].CreatedAt), students[i].CreatedAt.Equal(students[j].CreatedAt)
			default: // unknown field, skip
				continue
			}
			if eq {
				continue
			}
			if ord.Ascending {
				return less
			}
			return !less
		}
		return false
	})
}

func (repo *academicRepository) SaveStudent(ctx context.Context, stu academic.Student) (academic.Student, error) {
	t := repo.db.students
	t.mutex.Lock()
	defer t.mutex.Unlock()

	orig, ok := t.table[stu.RollNumber]
	if !ok {
		return academic.Student{}, academic.ErrStudentNotFound
	}
	stu.CreatedAt = orig.CreatedAt
	t.table[stu.RollNumber] = &stu
	return stu, nil
}

// Subjects

func (repo *academicRepository) CreateSubject(ctx context.Context, sub academic.Subject) (academic.Subject, error) {
	t := repo.db.subjects
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, s := range t.table {
		if s.Code == sub.Code && s.Semester == sub.Semester {
			return academic.Subject{}, academic.ErrSubjectExists
		}
	}
	t.pkCount++
	sub.ID = t.pkCount
	t.table[sub.ID] = &sub
	return sub, nil
}

func (repo *academicRepository) GetSubjectByCode(ctx context.Context, code string, semester int) (academic.Subject, error) {
	t := repo.db.subjects
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, sub := range t.table {
		if sub.Code == code && sub.Semester == semester {
			return *sub, nil
		}
	}
	return academic.Subject{}, academic.ErrSubjectNotFound
}

func (repo *academicRepository) QuerySubjectsBySemester(ctx context.Context, semester int) ([]academic.Subject, error) {
	t := repo.db.subjects
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	subjects := make([]academic.Subject, 0)
	for _, sub := range t.table {
		if sub.Semester == semester {
			subjects = append(subjects, *sub)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

// Attendance

func (repo *academicRepository) UpsertAttendance(ctx context.Context, rec academic.AttendanceRecord) error {
	t := repo.db.attendance
	t.mutex.Lock()
	defer t.mutex.Unlock()

	key := attendanceKey{
		roll:      rec.StudentRoll,
		subjectID: rec.SubjectID,
		date:      rec.Date.Unix(),
		slot:      rec.Slot,
	}
	t.table[key] = &rec
	return nil
}

func (repo *academicRepository) CountAttendance(ctx context.Context, roll string, subjectID int) (total, present int, err error) {
	t := repo.db.attendance
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, rec := range t.table {
		if rec.StudentRoll == roll && rec.SubjectID == subjectID {
			total++
			if rec.Status == academic.Present {
				present++
			}
		}
	}
	return total, present, nil
}

// Marks

func (repo *academicRepository) UpsertMarks(ctx context.Context, rec academic.MarksRecord) error {
	t := repo.db.marks
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.table[marksKey{roll: rec.StudentRoll, subjectID: rec.SubjectID}] = &rec
	return nil
}

func (repo *academicRepository) GetMarks(ctx context.Context, roll string, subjectID int) (academic.MarksRecord, error) {
	t := repo.db.marks
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if rec, ok := t.table[marksKey{roll: roll, subjectID: subjectID}]; ok {
		return *rec, nil
	}
	return academic.MarksRecord{}, academic.ErrMarksNotFound
}

// Semester GPA

func (repo *academicRepository) UpsertSemesterGPA(ctx context.Context, rec academic.SemesterGPARecord) (academic.SemesterGPARecord, error) {
	t := repo.db.gpas
	t.mutex.Lock()
	defer t.mutex.Unlock()

	// full replacement, snapshots never accumulate
	data := make([]academic.SubjectSnapshot, len(rec.SubjectData))
	copy(data, rec.SubjectData)
	rec.SubjectData = data

	t.table[gpaKey{roll: rec.StudentRoll, semester: rec.Semester}] = &rec
	return rec, nil
}

func (repo *academicRepository) GetSemesterGPA(ctx context.Context, roll string, semester int) (academic.SemesterGPARecord, error) {
	t := repo.db.gpas
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if rec, ok := t.table[gpaKey{roll: roll, semester: semester}]; ok {
		return *rec, nil
	}
	return academic.SemesterGPARecord{}, academic.ErrGPANotFound
}

func (repo *academicRepository) QuerySemesterGPAs(ctx context.Context, roll string) ([]academic.SemesterGPARecord, error) {
	t := repo.db.gpas
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	recs := make([]academic.SemesterGPARecord, 0)
	for _, rec := range t.table {
		if rec.StudentRoll == roll {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Semester < recs[j].Semester })
	return recs, nil
}

// Atomic runs fn against the same repository. The in-memory store has no
// transactions; tests and local dev run single-threaded per operation.
func (repo *academicRepository) Atomic(ctx context.Context, fn func(repo academic.Repository) error) error {
	return fn(repo)
}
