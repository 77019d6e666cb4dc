package academic_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/chuo/core/academic"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
	testutil "github.com/trezcool/chuo/tests"
)

var ctx = context.Background()

func setup(t *testing.T) (*academic.Service, academic.Repository) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	repo := inmemdb.NewAcademicRepository(db)
	return academic.NewService(repo, nil), repo
}

func intPtr(n int) *int { return &n }

func markAttendance(t *testing.T, svc *academic.Service, roll string, subjectID, present, total int) {
	t.Helper()

	day := time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		status := academic.Present
		if i >= present {
			status = academic.Absent
		}
		err := svc.RecordAttendance(ctx, academic.AttendanceEntry{
			StudentRoll: roll,
			SubjectID:   subjectID,
			Date:        day.AddDate(0, 0, i),
			Slot:        1,
			Status:      status,
		})
		if err != nil {
			t.Fatalf("RecordAttendance() failed: %v", err)
		}
	}
}

func TestService_Archive(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "asha@test.cd", 3)
	math := testutil.CreateSubject(t, repo, "MATH101", "Calculus", 3, 4, academic.SubjectTheory)

	markAttendance(t, svc, "cs21b001", math.ID, 8, 10)
	if err := svc.EnterMarks(ctx, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: math.ID, InternalMarks: intPtr(85)}); err != nil {
		t.Fatalf("EnterMarks() failed: %v", err)
	}

	rec, err := svc.Archive(ctx, "cs21b001", 3)
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}

	if rec.GPA != 9.0 {
		t.Errorf("GPA = %v; want 9.0", rec.GPA)
	}
	if rec.TotalCredits != 4 {
		t.Errorf("TotalCredits = %v; want 4", rec.TotalCredits)
	}
	if len(rec.SubjectData) != 1 {
		t.Fatalf("len(SubjectData) = %d; want 1", len(rec.SubjectData))
	}
	snap := rec.SubjectData[0]
	if snap.Code != "MATH101" || snap.Grade != academic.GradeAP || snap.GradePoint != 9 {
		t.Errorf("snapshot = %+v; want MATH101 graded A+/9", snap)
	}
	if snap.AttendancePercentage != 80.0 {
		t.Errorf("AttendancePercentage = %v; want 80.0", snap.AttendancePercentage)
	}
	if snap.InternalMarks != 85 {
		t.Errorf("InternalMarks = %d; want 85", snap.InternalMarks)
	}
}

func TestService_Archive_replacesSnapshots(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 3)
	math := testutil.CreateSubject(t, repo, "MATH101", "Calculus", 3, 4, academic.SubjectTheory)

	if _, err := svc.Archive(ctx, "cs21b001", 3); err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}

	// better marks come in; re-archiving must replace, never accumulate
	if err := svc.EnterMarks(ctx, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: math.ID, InternalMarks: intPtr(92)}); err != nil {
		t.Fatalf("EnterMarks() failed: %v", err)
	}
	rec, err := svc.Archive(ctx, "cs21b001", 3)
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}

	if len(rec.SubjectData) != 1 {
		t.Fatalf("len(SubjectData) = %d; want 1", len(rec.SubjectData))
	}
	if rec.SubjectData[0].Grade != academic.GradeO {
		t.Errorf("Grade = %s; want %s", rec.SubjectData[0].Grade, academic.GradeO)
	}
	if rec.GPA != 10.0 {
		t.Errorf("GPA = %v; want 10.0", rec.GPA)
	}
}

func TestService_Archive_creditWeighting(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 3)
	theory := testutil.CreateSubject(t, repo, "MATH101", "Calculus", 3, 4, academic.SubjectTheory)
	lab := testutil.CreateSubject(t, repo, "PHYL101", "Physics Lab", 3, 2, academic.SubjectLab)

	if err := svc.EnterMarks(ctx, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: theory.ID, InternalMarks: intPtr(95)}); err != nil {
		t.Fatalf("EnterMarks() failed: %v", err)
	}
	if err := svc.EnterMarks(ctx, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: lab.ID, InternalMarks: intPtr(55)}); err != nil {
		t.Fatalf("EnterMarks() failed: %v", err)
	}

	rec, err := svc.Archive(ctx, "cs21b001", 3)
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}

	// (10*4 + 6*2) / 6 = 8.67 rounded to 2 decimals
	if rec.GPA != 8.67 {
		t.Errorf("GPA = %v; want 8.67", rec.GPA)
	}
	if rec.TotalCredits != 6 {
		t.Errorf("TotalCredits = %v; want 6", rec.TotalCredits)
	}
}

func TestService_Archive_emptySemester(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 3)

	rec, err := svc.Archive(ctx, "cs21b001", 3)
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}
	if rec.GPA != 0.0 || rec.TotalCredits != 0 || len(rec.SubjectData) != 0 {
		t.Errorf("rec = %+v; want zero GPA, credits and snapshots", rec)
	}
}

func TestService_Archive_studentNotFound(t *testing.T) {
	svc, _ := setup(t)

	if _, err := svc.Archive(ctx, "nosuch1", 3); err != academic.ErrStudentNotFound {
		t.Errorf("Archive() error = %v; want %v", err, academic.ErrStudentNotFound)
	}
}

func TestService_Promote(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 3)
	testutil.CreateStudent(t, repo, "cs21b002", "Ben Okoro", "", 8)
	testutil.CreateSubject(t, repo, "MATH101", "Calculus", 3, 4, academic.SubjectTheory)

	count, err := svc.Promote(ctx, []string{"cs21b001", "cs21b002", "nosuch1"})
	if err != nil {
		t.Fatalf("Promote() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d; want 2", count)
	}

	stu, _ := svc.GetByRoll(ctx, "cs21b001")
	if stu.CurrentSemester != 4 {
		t.Errorf("CurrentSemester = %d; want 4", stu.CurrentSemester)
	}

	// archival rode along with the promotion
	if _, err := svc.SemesterGPA(ctx, "cs21b001", 3); err != nil {
		t.Errorf("SemesterGPA() after promote failed: %v", err)
	}

	// cs21b002 moved past the final semester; promoting again must skip them
	stu2, _ := svc.GetByRoll(ctx, "cs21b002")
	if stu2.CurrentSemester != 9 {
		t.Errorf("CurrentSemester = %d; want 9", stu2.CurrentSemester)
	}
	count, err = svc.Promote(ctx, []string{"cs21b002"})
	if err != nil {
		t.Fatalf("Promote() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d; want 0 (course completed)", count)
	}
	stu2, _ = svc.GetByRoll(ctx, "cs21b002")
	if stu2.CurrentSemester != 9 {
		t.Errorf("CurrentSemester = %d; want 9 (unchanged)", stu2.CurrentSemester)
	}
}

func TestService_Demote(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 2)

	count, err := svc.Demote(ctx, []string{"cs21b001", "nosuch1"})
	if err != nil {
		t.Fatalf("Demote() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d; want 1", count)
	}

	// semester 1 is the floor
	count, err = svc.Demote(ctx, []string{"cs21b001"})
	if err != nil {
		t.Fatalf("Demote() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d; want 0 (already at semester 1)", count)
	}

	stu, _ := svc.GetByRoll(ctx, "cs21b001")
	if stu.CurrentSemester != 1 {
		t.Errorf("CurrentSemester = %d; want 1", stu.CurrentSemester)
	}

	// no archival on demotion
	if _, err := svc.SemesterGPA(ctx, "cs21b001", 2); err != academic.ErrGPANotFound {
		t.Errorf("SemesterGPA() error = %v; want %v", err, academic.ErrGPANotFound)
	}
}

func TestService_Insights(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 1)
	theory := testutil.CreateSubject(t, repo, "MATH101", "Calculus", 1, 4, academic.SubjectTheory)
	lab := testutil.CreateSubject(t, repo, "PHYL101", "Physics Lab", 2, 2, academic.SubjectLab)

	if err := svc.EnterMarks(ctx, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: theory.ID, InternalMarks: intPtr(95)}); err != nil {
		t.Fatalf("EnterMarks() failed: %v", err)
	}
	if _, err := svc.Promote(ctx, []string{"cs21b001"}); err != nil { // archives sem 1
		t.Fatalf("Promote() failed: %v", err)
	}
	if err := svc.EnterMarks(ctx, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: lab.ID, InternalMarks: intPtr(55)}); err != nil {
		t.Fatalf("EnterMarks() failed: %v", err)
	}
	if _, err := svc.Promote(ctx, []string{"cs21b001"}); err != nil { // archives sem 2
		t.Fatalf("Promote() failed: %v", err)
	}

	ins, err := svc.Insights(ctx, "cs21b001")
	if err != nil {
		t.Fatalf("Insights() failed: %v", err)
	}

	if ins.SemestersArchived != 2 {
		t.Errorf("SemestersArchived = %d; want 2", ins.SemestersArchived)
	}
	if ins.TotalCredits != 6 {
		t.Errorf("TotalCredits = %v; want 6", ins.TotalCredits)
	}
	// (10*4 + 6*2) / 6 = 8.67
	if ins.CGPA != 8.67 {
		t.Errorf("CGPA = %v; want 8.67", ins.CGPA)
	}
	if ins.TheorySubjects != 1 || ins.LabSubjects != 1 {
		t.Errorf("subjects = %d theory, %d lab; want 1 and 1", ins.TheorySubjects, ins.LabSubjects)
	}
}

func TestService_Insights_noArchives(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 1)

	ins, err := svc.Insights(ctx, "cs21b001")
	if err != nil {
		t.Fatalf("Insights() failed: %v", err)
	}
	if ins.CGPA != 0.0 || ins.SemestersArchived != 0 {
		t.Errorf("ins = %+v; want zero values", ins)
	}
}

func TestService_Query(t *testing.T) {
	svc, repo := setup(t)

	testutil.CreateStudent(t, repo, "cs21b002", "Ben Okoro", "", 9)
	testutil.CreateStudent(t, repo, "cs21b001", "Asha Patel", "", 3)
	testutil.CreateStudent(t, repo, "cs21b003", "Asha Kumar", "", 3)

	students, err := svc.Query(ctx, academic.QueryFilter{Search: "asha"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("len(students) = %d; want 2", len(students))
	}
	if students[0].RollNumber != "cs21b001" {
		t.Errorf("first roll = %s; want cs21b001 (default ordering)", students[0].RollNumber)
	}

	completed := true
	students, err = svc.Query(ctx, academic.QueryFilter{Completed: &completed})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(students) != 1 || students[0].RollNumber != "cs21b002" {
		t.Errorf("students = %+v; want only cs21b002", students)
	}
}
