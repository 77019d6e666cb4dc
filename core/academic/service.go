package academic

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrStudentNotFound = stderrors.New("student not found")
	ErrSubjectNotFound = stderrors.New("subject not found")
	ErrMarksNotFound   = stderrors.New("marks record not found")
	ErrGPANotFound     = stderrors.New("semester GPA record not found")
	ErrStudentExists   = stderrors.New("a student with this roll number already exists")
	ErrSubjectExists   = stderrors.New("a subject with this code already exists in this semester")

	// a student past the max semester is skipped by promotion, not failed
	errCourseCompleted = stderrors.New("course completed")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, stu Student) (Student, error)
		GetStudentByRoll(ctx context.Context, roll string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Student.Name or Student.RollNumber.
		// Orderings default to roll number ascending when empty.
		QueryStudents(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Student, error)
		SaveStudent(ctx context.Context, stu Student) (Student, error)

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByCode(ctx context.Context, code string, semester int) (Subject, error)
		QuerySubjectsBySemester(ctx context.Context, semester int) ([]Subject, error)

		UpsertAttendance(ctx context.Context, rec AttendanceRecord) error
		// CountAttendance returns total and present session counts for (student, subject).
		CountAttendance(ctx context.Context, roll string, subjectID int) (total, present int, err error)

		UpsertMarks(ctx context.Context, rec MarksRecord) error
		GetMarks(ctx context.Context, roll string, subjectID int) (MarksRecord, error)

		// UpsertSemesterGPA fully replaces the (student, semester) record's contents.
		UpsertSemesterGPA(ctx context.Context, rec SemesterGPARecord) (SemesterGPARecord, error)
		GetSemesterGPA(ctx context.Context, roll string, semester int) (SemesterGPARecord, error)
		QuerySemesterGPAs(ctx context.Context, roll string) ([]SemesterGPARecord, error)

		// Atomic runs fn in a single transaction when the store supports it.
		Atomic(ctx context.Context, fn func(repo Repository) error) error
	}

	Service struct {
		repo        Repository
		maxSemester int
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	max := 8
	if conf != nil && conf.MaxSemester > 0 {
		max = conf.MaxSemester
	}
	return &Service{repo: repo, maxSemester: max}
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	now := nowFunc().UTC()
	sem := ns.CurrentSemester
	if sem == 0 {
		sem = 1
	}
	level := ns.ProgramLevel
	if level == "" {
		level = ProgramUG
	}
	stu := Student{
		RollNumber:      ns.RollNumber,
		Name:            ns.Name,
		Email:           ns.Email,
		ProgramLevel:    level,
		CurrentSemester: sem,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateStudent(ctx, stu)
}

func (svc *Service) GetByRoll(ctx context.Context, roll string) (Student, error) {
	return svc.repo.GetStudentByRoll(ctx, core.CleanString(roll, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, orderings)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	typ := ns.Type
	if typ == "" {
		typ = SubjectTheory
	}
	creds := ns.Credits
	if creds == 0 {
		creds = defaultCredits
	}
	sub := Subject{
		Code:     ns.Code,
		Name:     ns.Name,
		Semester: ns.Semester,
		Type:     typ,
		Credits:  creds,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) SubjectsBySemester(ctx context.Context, semester int) ([]Subject, error) {
	return svc.repo.QuerySubjectsBySemester(ctx, semester)
}

// RecordAttendance upserts one session mark per entry; resubmitting the same
// (student, subject, date, slot) replaces the previous status.
func (svc *Service) RecordAttendance(ctx context.Context, entries ...AttendanceEntry) error {
	for _, e := range entries {
		rec := AttendanceRecord{
			StudentRoll: e.StudentRoll,
			SubjectID:   e.SubjectID,
			Date:        e.Date.Truncate(24 * time.Hour),
			Slot:        e.Slot,
			Status:      e.Status,
		}
		if err := svc.repo.UpsertAttendance(ctx, rec); err != nil {
			return errors.Wrap(err, "saving attendance")
		}
	}
	return nil
}

// EnterMarks upserts the internal assessment score for (student, subject).
func (svc *Service) EnterMarks(ctx context.Context, me MarksEntry) error {
	rec := MarksRecord{
		StudentRoll:   me.StudentRoll,
		SubjectID:     me.SubjectID,
		InternalMarks: me.InternalMarks,
	}
	return errors.Wrap(svc.repo.UpsertMarks(ctx, rec), "saving marks")
}

// Archive freezes the student's attendance and marks for the given semester
// into its SemesterGPARecord. Re-running it with unchanged inputs yields the
// same snapshots; SubjectData never accumulates across runs.
func (svc *Service) Archive(ctx context.Context, roll string, semester int) (SemesterGPARecord, error) {
	stu, err := svc.GetByRoll(ctx, roll)
	if err != nil {
		return SemesterGPARecord{}, err
	}
	return svc.archive(ctx, svc.repo, stu, semester)
}

func (svc *Service) archive(ctx context.Context, repo Repository, stu Student, semester int) (SemesterGPARecord, error) {
	subjects, err := repo.QuerySubjectsBySemester(ctx, semester)
	if err != nil {
		return SemesterGPARecord{}, errors.Wrap(err, "querying semester subjects")
	}

	today := nowFunc().UTC().Truncate(24 * time.Hour)
	snapshots := make([]SubjectSnapshot, 0, len(subjects))
	var totalPoints, totalCredits float64

	for _, sub := range subjects {
		total, present, err := repo.CountAttendance(ctx, stu.RollNumber, sub.ID)
		if err != nil {
			return SemesterGPARecord{}, errors.Wrap(err, "counting attendance")
		}
		var attendancePct float64
		if total > 0 {
			attendancePct = round1(float64(present) / float64(total) * 100)
		}

		var score *int
		marks, err := repo.GetMarks(ctx, stu.RollNumber, sub.ID)
		switch {
		case err == nil:
			score = marks.InternalMarks
		case errors.Cause(err) == ErrMarksNotFound:
			// not entered yet; grades as zero
		default:
			return SemesterGPARecord{}, errors.Wrap(err, "getting marks")
		}
		grade, point := GradeForScore(score)

		var internal int
		if score != nil {
			internal = *score
		}
		creds := sub.CreditWeight()
		snapshots = append(snapshots, SubjectSnapshot{
			Code:                 sub.Code,
			Name:                 sub.Name,
			Credits:              creds,
			InternalMarks:        internal,
			AttendancePercentage: attendancePct,
			GradePoint:           point,
			Grade:                grade,
			ArchivedAt:           today,
		})
		totalPoints += float64(point * creds)
		totalCredits += float64(creds)
	}

	var gpa float64
	if totalCredits > 0 {
		gpa = round2(totalPoints / totalCredits)
	}

	rec := SemesterGPARecord{
		StudentRoll:  stu.RollNumber,
		Semester:     semester,
		GPA:          gpa,
		TotalCredits: totalCredits,
		SubjectData:  snapshots,
		UpdatedAt:    nowFunc().UTC(),
	}
	saved, err := repo.UpsertSemesterGPA(ctx, rec)
	return saved, errors.Wrap(err, "saving semester GPA")
}

// Promote archives each student's current semester then advances it by one,
// atomically per student. Students past the max semester and unknown roll
// numbers are skipped; store failures abort the batch.
func (svc *Service) Promote(ctx context.Context, rolls []string) (int, error) {
	var count int
	for _, roll := range rolls {
		roll := core.CleanString(roll, true /* lower */)
		err := svc.repo.Atomic(ctx, func(repo Repository) error {
			stu, err := repo.GetStudentByRoll(ctx, roll)
			if err != nil {
				return err
			}
			if stu.Completed(svc.maxSemester) {
				return errCourseCompleted
			}
			// archive must commit with the increment; a snapshot for a
			// semester the student never left would be a lie
			if _, err := svc.archive(ctx, repo, stu, stu.CurrentSemester); err != nil {
				return err
			}
			stu.CurrentSemester++
			stu.UpdatedAt = nowFunc().UTC()
			_, err = repo.SaveStudent(ctx, stu)
			return errors.Wrap(err, "saving student")
		})
		switch errors.Cause(err) {
		case nil:
			count++
		case ErrStudentNotFound, errCourseCompleted:
			// skipped, non-fatal to the batch
		default:
			return count, err
		}
	}
	return count, nil
}

// Demote decrements each student's semester, never below 1. It is a
// correction action and runs no archival.
func (svc *Service) Demote(ctx context.Context, rolls []string) (int, error) {
	var count int
	for _, roll := range rolls {
		roll := core.CleanString(roll, true /* lower */)
		stu, err := svc.repo.GetStudentByRoll(ctx, roll)
		if err != nil {
			if errors.Cause(err) == ErrStudentNotFound {
				continue
			}
			return count, err
		}
		if stu.CurrentSemester <= 1 {
			continue
		}
		stu.CurrentSemester--
		stu.UpdatedAt = nowFunc().UTC()
		if _, err := svc.repo.SaveStudent(ctx, stu); err != nil {
			return count, errors.Wrap(err, "saving student")
		}
		count++
	}
	return count, nil
}

func (svc *Service) SemesterGPA(ctx context.Context, roll string, semester int) (SemesterGPARecord, error) {
	return svc.repo.GetSemesterGPA(ctx, core.CleanString(roll, true /* lower */), semester)
}

// SemesterGPAs returns all archived semester records, ordered by semester.
func (svc *Service) SemesterGPAs(ctx context.Context, roll string) ([]SemesterGPARecord, error) {
	return svc.repo.QuerySemesterGPAs(ctx, core.CleanString(roll, true /* lower */))
}

// Insights computes the credit-weighted CGPA over all archived semesters
// plus a Theory/Lab breakdown based on the subject type field.
func (svc *Service) Insights(ctx context.Context, roll string) (CGPAInsights, error) {
	roll = core.CleanString(roll, true /* lower */)
	if _, err := svc.repo.GetStudentByRoll(ctx, roll); err != nil {
		return CGPAInsights{}, err
	}

	recs, err := svc.repo.QuerySemesterGPAs(ctx, roll)
	if err != nil {
		return CGPAInsights{}, errors.Wrap(err, "querying semester GPAs")
	}

	var ins CGPAInsights
	var weighted float64
	for _, rec := range recs {
		ins.SemestersArchived++
		ins.TotalCredits += rec.TotalCredits
		weighted += rec.GPA * rec.TotalCredits

		for _, snap := range rec.SubjectData {
			sub, err := svc.repo.GetSubjectByCode(ctx, snap.Code, rec.Semester)
			if err != nil {
				if errors.Cause(err) == ErrSubjectNotFound {
					continue
				}
				return CGPAInsights{}, errors.Wrap(err, "getting subject")
			}
			if sub.Type == SubjectLab {
				ins.LabSubjects++
			} else {
				ins.TheorySubjects++
			}
		}
	}
	if ins.TotalCredits > 0 {
		ins.CGPA = round2(weighted / ins.TotalCredits)
	}
	return ins, nil
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
