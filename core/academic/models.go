package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

const defaultCredits = 3

type ProgramLevel string

const (
	ProgramUG ProgramLevel = "UG"
	ProgramPG ProgramLevel = "PG"
)

// Student is enrolled in a program and moves through semesters 1..8.
// RollNumber is the stable identifier and never changes.
// CurrentSemester is mutated only by promotion/demotion; a value above the
// configured max semester means the student has completed the course.
type Student struct {
	RollNumber      string       `json:"roll_number"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	ProgramLevel    ProgramLevel `json:"program_level"`
	CurrentSemester int          `json:"current_semester"`
	CreatedAt       time.Time    `json:"created_at"` // UTC
	UpdatedAt       time.Time    `json:"updated_at"` // UTC
}

func (s Student) Completed(maxSemester int) bool {
	return s.CurrentSemester > maxSemester
}

type SubjectType string

const (
	SubjectTheory SubjectType = "Theory"
	SubjectLab    SubjectType = "Lab"
)

// Subject is a lookup record; (Code, Semester) is unique.
type Subject struct {
	ID       int         `json:"id"`
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Semester int         `json:"semester"` // 1..8
	Type     SubjectType `json:"subject_type"`
	Credits  int         `json:"credits"`
}

// CreditWeight returns the subject's credit weight, defaulting when unset.
func (s Subject) CreditWeight() int {
	if s.Credits <= 0 {
		return defaultCredits
	}
	return s.Credits
}

type AttendanceStatus string

const (
	Present AttendanceStatus = "Present"
	Absent  AttendanceStatus = "Absent"
)

// AttendanceRecord marks one student in one class session.
// (StudentRoll, SubjectID, Date, Slot) is the upsert key: resubmitting the
// same session replaces the previous status.
type AttendanceRecord struct {
	StudentRoll string           `json:"student_roll_number"`
	SubjectID   int              `json:"subject_id"`
	Date        time.Time        `json:"date"` // date precision
	Slot        int              `json:"slot"`
	Status      AttendanceStatus `json:"status"`
}

// MarksRecord holds the internal assessment score for (student, subject).
// A nil score means "not yet entered" and grades as zero.
type MarksRecord struct {
	StudentRoll   string `json:"student_roll_number"`
	SubjectID     int    `json:"subject_id"`
	InternalMarks *int   `json:"internal_marks"`
}

// SubjectSnapshot freezes one subject's attendance and grade at archival time.
type SubjectSnapshot struct {
	Code                 string    `json:"code"`
	Name                 string    `json:"name"`
	Credits              int       `json:"credits"`
	InternalMarks        int       `json:"internal_marks"`
	AttendancePercentage float64   `json:"attendance_percentage"`
	GradePoint           int       `json:"points"`
	Grade                string    `json:"grade"`
	ArchivedAt           time.Time `json:"archived_at"`
}

// SemesterGPARecord is the permanent grade snapshot for (student, semester).
// SubjectData is fully replaced on every archival run; GPA is always the
// credit-weighted average of SubjectData's grade points.
type SemesterGPARecord struct {
	StudentRoll  string            `json:"student_roll_number"`
	Semester     int               `json:"semester"`
	GPA          float64           `json:"gpa"`
	TotalCredits float64           `json:"total_credits"`
	SubjectData  []SubjectSnapshot `json:"subject_data"`
	UpdatedAt    time.Time         `json:"updated_at"` // UTC
}

// CGPAInsights summarizes a student's archived academic record.
// Subject classification relies on the structured subject type field,
// never on the subject name.
type CGPAInsights struct {
	CGPA              float64 `json:"cgpa"`
	TotalCredits      float64 `json:"total_credits"`
	SemestersArchived int     `json:"semesters_archived"`
	TheorySubjects    int     `json:"theory_subjects"`
	LabSubjects       int     `json:"lab_subjects"`
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	RollNumber      string       `json:"roll_number" validate:"required,rollnum"`
	Name            string       `json:"name" validate:"required"`
	Email           string       `json:"email" validate:"omitempty,email"`
	ProgramLevel    ProgramLevel `json:"program_level" validate:"omitempty,oneof=UG PG"`
	CurrentSemester int          `json:"current_semester" validate:"omitempty,min=1,max=9"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.RollNumber = core.CleanString(ns.RollNumber, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Code     string      `json:"code" validate:"required"`
	Name     string      `json:"name" validate:"required"`
	Semester int         `json:"semester" validate:"required,min=1,max=8"`
	Type     SubjectType `json:"subject_type" validate:"omitempty,oneof=Theory Lab"`
	Credits  int         `json:"credits" validate:"omitempty,min=1,max=10"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// AttendanceEntry is one staff-submitted session mark.
type AttendanceEntry struct {
	StudentRoll string           `json:"student_roll_number" validate:"required,rollnum"`
	SubjectID   int              `json:"subject_id" validate:"required"`
	Date        time.Time        `json:"date" validate:"required"`
	Slot        int              `json:"slot" validate:"min=0"`
	Status      AttendanceStatus `json:"status" validate:"required,oneof=Present Absent"`
}

func (ae *AttendanceEntry) Validate(validate *validator.Validate) error {
	ae.StudentRoll = core.CleanString(ae.StudentRoll, true /* lower */)
	return validate.Struct(ae)
}

// MarksEntry is one staff-submitted internal assessment score.
type MarksEntry struct {
	StudentRoll   string `json:"student_roll_number" validate:"required,rollnum"`
	SubjectID     int    `json:"subject_id" validate:"required"`
	InternalMarks *int   `json:"internal_marks" validate:"omitempty,min=0,max=100"`
}

func (me *MarksEntry) Validate(validate *validator.Validate) error {
	me.StudentRoll = core.CleanString(me.StudentRoll, true /* lower */)
	return validate.Struct(me)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Semester  *int   `query:"semester"`
	Completed *bool  `query:"completed"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Semester == nil && qf.Completed == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
