package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

const (
	// students at this semester or above are considered done with the course
	completedSemester = 9

	pqUniqueViolation = pq.ErrorCode("23505")
)

type academicRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) *academicRepository {
	return &academicRepository{db: db, ext: db}
}

// Row mapping

type studentRow struct {
	RollNumber      string      `db:"roll_number"`
	Name            string      `db:"name"`
	Email           null.String `db:"email"`
	ProgramLevel    string      `db:"program_level"`
	CurrentSemester int         `db:"current_semester"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (r studentRow) toStudent() academic.Student {
	return academic.Student{
		RollNumber:      r.RollNumber,
		Name:            r.Name,
		Email:           r.Email.String,
		ProgramLevel:    academic.ProgramLevel(r.ProgramLevel),
		CurrentSemester: r.CurrentSemester,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type subjectRow struct {
	ID       int    `db:"id"`
	Code     string `db:"code"`
	Name     string `db:"name"`
	Semester int    `db:"semester"`
	Type     string `db:"subject_type"`
	Credits  int    `db:"credits"`
}

func (r subjectRow) toSubject() academic.Subject {
	return academic.Subject{
		ID:       r.ID,
		Code:     r.Code,
		Name:     r.Name,
		Semester: r.Semester,
		Type:     academic.SubjectType(r.Type),
		Credits:  r.Credits,
	}
}

type marksRow struct {
	StudentRoll   string   `db:"student_roll"`
	SubjectID     int      `db:"subject_id"`
	InternalMarks null.Int `db:"internal_marks"`
}

type gpaRow struct {
	StudentRoll  string    `db:"student_roll"`
	Semester     int       `db:"semester"`
	GPA          float64   `db:"gpa"`
	TotalCredits float64   `db:"total_credits"`
	SubjectData  []byte    `db:"subject_data"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r gpaRow) toRecord() (academic.SemesterGPARecord, error) {
	rec := academic.SemesterGPARecord{
		StudentRoll:  r.StudentRoll,
		Semester:     r.Semester,
		GPA:          r.GPA,
		TotalCredits: r.TotalCredits,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.SubjectData) > 0 {
		if err := json.Unmarshal(r.SubjectData, &rec.SubjectData); err != nil {
			return academic.SemesterGPARecord{}, errors.Wrap(err, "decoding subject data")
		}
	}
	return rec, nil
}

// trapNoRowsErr maps psql "no rows" err to the provided sentinel.
func trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == pqUniqueViolation
}

// Students

func (repo *academicRepository) CreateStudent(ctx context.Context, stu academic.Student) (academic.Student, error) {
	const q = `
		INSERT INTO student (roll_number, name, email, program_level, current_semester, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.ext.ExecContext(ctx, q,
		stu.RollNumber, stu.Name, null.NewString(stu.Email, stu.Email != ""), string(stu.ProgramLevel),
		stu.CurrentSemester, stu.CreatedAt.UTC(), stu.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return academic.Student{}, academic.ErrStudentExists
		}
		return academic.Student{}, errors.Wrap(err, "inserting student")
	}
	return stu, nil
}

func (repo *academicRepository) GetStudentByRoll(ctx context.Context, roll string) (academic.Student, error) {
	const q = `SELECT * FROM student WHERE roll_number = $1`
	var row studentRow
	if err := sqlx.GetContext(ctx, repo.ext, &row, q, roll); err != nil {
		return academic.Student{}, trapNoRowsErr(err, academic.ErrStudentNotFound, "finding student by roll number")
	}
	return row.toStudent(), nil
}

// studentOrderColumns whitelists orderable student columns.
var studentOrderColumns = map[string]struct{}{
	"roll_number":      {},
	"name":             {},
	"current_semester": {},
	"created_at":       {},
}

func (repo *academicRepository) QueryStudents(ctx context.Context, filter academic.QueryFilter, orderings []core.DBOrdering) ([]academic.Student, error) {
	q := `SELECT * FROM student`
	var conds []string
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		p := fmt.Sprintf("$%d", len(args))
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR roll_number ILIKE %s)", p, p))
	}
	if filter.Semester != nil {
		args = append(args, *filter.Semester)
		conds = append(conds, fmt.Sprintf("current_semester = $%d", len(args)))
	}
	if filter.Completed != nil {
		op := "<"
		if *filter.Completed {
			op = ">="
		}
		conds = append(conds, fmt.Sprintf("current_semester %s %d", op, completedSemester))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	var orderBys []string
	for _, ord := range orderings {
		if _, ok := studentOrderColumns[ord.Field]; ok {
			orderBys = append(orderBys, ord.String())
		}
	}
	if len(orderBys) == 0 {
		orderBys = append(orderBys, "roll_number")
	}
	q += " ORDER BY " + strings.Join(orderBys, ", ")

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]academic.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *academicRepository) SaveStudent(ctx context.Context, stu academic.Student) (academic.Student, error) {
	const q = `
		UPDATE student
		SET name = $2, email = $3, program_level = $4, current_semester = $5, updated_at = $6
		WHERE roll_number = $1`
	res, err := repo.ext.ExecContext(ctx, q,
		stu.RollNumber, stu.Name, null.NewString(stu.Email, stu.Email != ""), string(stu.ProgramLevel),
		stu.CurrentSemester, stu.UpdatedAt.UTC())
	if err != nil {
		return academic.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.Student{}, academic.ErrStudentNotFound
	}
	return stu, nil
}

// Subjects

func (repo *academicRepository) CreateSubject(ctx context.Context, sub academic.Subject) (academic.Subject, error) {
	const q = `
		INSERT INTO subject (code, name, semester, subject_type, credits)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.ext.QueryRowxContext(ctx, q, sub.Code, sub.Name, sub.Semester, string(sub.Type), sub.Credits).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return academic.Subject{}, academic.ErrSubjectExists
		}
		return academic.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *academicRepository) GetSubjectByCode(ctx context.Context, code string, semester int) (academic.Subject, error) {
	const q = `SELECT * FROM subject WHERE code = $1 AND semester = $2`
	var row subjectRow
	if err := sqlx.GetContext(ctx, repo.ext, &row, q, code, semester); err != nil {
		return academic.Subject{}, trapNoRowsErr(err, academic.ErrSubjectNotFound, "finding subject by code")
	}
	return row.toSubject(), nil
}

func (repo *academicRepository) QuerySubjectsBySemester(ctx context.Context, semester int) ([]academic.Subject, error) {
	const q = `SELECT * FROM subject WHERE semester = $1 ORDER BY code`
	var rows []subjectRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q, semester); err != nil {
		return nil, errors.Wrap(err, "querying semester subjects")
	}
	subjects := make([]academic.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.toSubject())
	}
	return subjects, nil
}

// Attendance

func (repo *academicRepository) UpsertAttendance(ctx context.Context, rec academic.AttendanceRecord) error {
	const q = `
		INSERT INTO attendance_record (student_roll, subject_id, date, slot, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_roll, subject_id, date, slot) DO UPDATE SET status = EXCLUDED.status`
	_, err := repo.ext.ExecContext(ctx, q, rec.StudentRoll, rec.SubjectID, rec.Date.UTC(), rec.Slot, string(rec.Status))
	return errors.Wrap(err, "upserting attendance")
}

func (repo *academicRepository) CountAttendance(ctx context.Context, roll string, subjectID int) (total, present int, err error) {
	const q = `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'Present') AS present
		FROM attendance_record
		WHERE student_roll = $1 AND subject_id = $2`
	err = repo.ext.QueryRowxContext(ctx, q, roll, subjectID).Scan(&total, &present)
	return total, present, errors.Wrap(err, "counting attendance")
}

// Marks

func (repo *academicRepository) UpsertMarks(ctx context.Context, rec academic.MarksRecord) error {
	const q = `
		INSERT INTO marks_record (student_roll, subject_id, internal_marks)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_roll, subject_id) DO UPDATE SET internal_marks = EXCLUDED.internal_marks`
	_, err := repo.ext.ExecContext(ctx, q, rec.StudentRoll, rec.SubjectID, null.IntFromPtr(rec.InternalMarks))
	return errors.Wrap(err, "upserting marks")
}

func (repo *academicRepository) GetMarks(ctx context.Context, roll string, subjectID int) (academic.MarksRecord, error) {
	const q = `SELECT * FROM marks_record WHERE student_roll = $1 AND subject_id = $2`
	var row marksRow
	if err := sqlx.GetContext(ctx, repo.ext, &row, q, roll, subjectID); err != nil {
		return academic.MarksRecord{}, trapNoRowsErr(err, academic.ErrMarksNotFound, "finding marks record")
	}
	return academic.MarksRecord{
		StudentRoll:   row.StudentRoll,
		SubjectID:     row.SubjectID,
		InternalMarks: row.InternalMarks.Ptr(),
	}, nil
}

// Semester GPA

func (repo *academicRepository) UpsertSemesterGPA(ctx context.Context, rec academic.SemesterGPARecord) (academic.SemesterGPARecord, error) {
	data, err := json.Marshal(rec.SubjectData)
	if err != nil {
		return academic.SemesterGPARecord{}, errors.Wrap(err, "encoding subject data")
	}

	// full replacement, snapshots never accumulate
	const q = `
		INSERT INTO semester_gpa (student_roll, semester, gpa, total_credits, subject_data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_roll, semester) DO UPDATE
		SET gpa = EXCLUDED.gpa, total_credits = EXCLUDED.total_credits,
		    subject_data = EXCLUDED.subject_data, updated_at = EXCLUDED.updated_at`
	_, err = repo.ext.ExecContext(ctx, q,
		rec.StudentRoll, rec.Semester, rec.GPA, rec.TotalCredits, data, rec.UpdatedAt.UTC())
	if err != nil {
		return academic.SemesterGPARecord{}, errors.Wrap(err, "upserting semester GPA")
	}
	return rec, nil
}

func (repo *academicRepository) GetSemesterGPA(ctx context.Context, roll string, semester int) (academic.SemesterGPARecord, error) {
	const q = `SELECT * FROM semester_gpa WHERE student_roll = $1 AND semester = $2`
	var row gpaRow
	if err := sqlx.GetContext(ctx, repo.ext, &row, q, roll, semester); err != nil {
		return academic.SemesterGPARecord{}, trapNoRowsErr(err, academic.ErrGPANotFound, "finding semester GPA")
	}
	return row.toRecord()
}

func (repo *academicRepository) QuerySemesterGPAs(ctx context.Context, roll string) ([]academic.SemesterGPARecord, error) {
	const q = `SELECT * FROM semester_gpa WHERE student_roll = $1 ORDER BY semester`
	var rows []gpaRow
	if err := sqlx.SelectContext(ctx, repo.ext, &rows, q, roll); err != nil {
		return nil, errors.Wrap(err, "querying semester GPAs")
	}
	recs := make([]academic.SemesterGPARecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Atomic runs fn in a single DB transaction. Nested calls reuse the
// enclosing transaction.
func (repo *academicRepository) Atomic(ctx context.Context, fn func(repo academic.Repository) error) error {
	if _, ok := repo.ext.(*sqlx.Tx); ok {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(&academicRepository{db: repo.db, ext: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
