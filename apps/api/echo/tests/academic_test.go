package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/chuo/core/academic"
	testutil "github.com/trezcool/chuo/tests"
)

func TestStudentAPI_auth(t *testing.T) {
	app := setup(t)

	studentTkn := studentToken(t, "cs21b001")
	tests := []httpTest{
		{name: "list: auth required", method: http.MethodGet, path: "/v1/students",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "create: auth required", method: http.MethodPost, path: "/v1/students",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "create: staff only", method: http.MethodPost, path: "/v1/students", token: studentTkn,
			body:     marchallObj(t, academic.NewStudent{RollNumber: "cs21b002", Name: "Ben"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "promote: staff only", method: http.MethodPost, path: "/v1/students/promote", token: studentTkn,
			body:     []byte(`{"rolls":["cs21b001"]}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "detail: students cannot read others", method: http.MethodGet, path: "/v1/students/cs21b999", token: studentTkn,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestStudentAPI_create(t *testing.T) {
	app := setup(t)
	tkn := staffToken(t)

	tests := []httpTest{
		{name: "ok", method: http.MethodPost, path: "/v1/students", token: tkn,
			body:     marchallObj(t, academic.NewStudent{RollNumber: "cs21b001", Name: "Asha Patel", Email: "asha@test.cd"}),
			wantCode: http.StatusCreated},
		{name: "duplicate roll", method: http.MethodPost, path: "/v1/students", token: tkn,
			body:     marchallObj(t, academic.NewStudent{RollNumber: "cs21b001", Name: "Someone Else"}),
			wantCode: http.StatusConflict},
		{name: "bad roll number", method: http.MethodPost, path: "/v1/students", token: tkn,
			body:     marchallObj(t, academic.NewStudent{RollNumber: "x!", Name: "Bad Roll"}),
			wantCode: http.StatusBadRequest},
		{name: "missing name", method: http.MethodPost, path: "/v1/students", token: tkn,
			body:     marchallObj(t, academic.NewStudent{RollNumber: "cs21b002"}),
			wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("created with defaults", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/cs21b001", tkn)
		app.ServeHTTP(rec, req)

		var stu academic.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &stu); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if stu.CurrentSemester != 1 || stu.ProgramLevel != academic.ProgramUG {
			t.Errorf("student = %+v; want semester 1, UG", stu)
		}
	})
}

func TestStudentAPI_selfAccess(t *testing.T) {
	app := setup(t)

	testutil.CreateStudent(t, acadRepo, "cs21b001", "Asha Patel", "", 3)
	tkn := studentToken(t, "cs21b001")

	req, rec := newAuthRequest(http.MethodGet, "/v1/students/cs21b001", tkn)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d; want 200", rec.Code)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/students/cs21b001/insights", tkn)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("insights code = %d; want 200", rec.Code)
	}
}

func TestStudentAPI_query(t *testing.T) {
	app := setup(t)
	tkn := staffToken(t)

	testutil.CreateStudent(t, acadRepo, "cs21b002", "Ben Okoro", "", 3)
	testutil.CreateStudent(t, acadRepo, "cs21b001", "Asha Patel", "", 3)
	testutil.CreateStudent(t, acadRepo, "cs21b003", "Chipo Moyo", "", 5)

	tests := []struct {
		name      string
		path      string
		wantRolls []string
	}{
		{name: "all, default ordering", path: "/v1/students", wantRolls: []string{"cs21b001", "cs21b002", "cs21b003"}},
		{name: "search", path: "/v1/students?search=asha", wantRolls: []string{"cs21b001"}},
		{name: "semester filter", path: "/v1/students?semester=3", wantRolls: []string{"cs21b001", "cs21b002"}},
		{name: "descending ordering", path: "/v1/students?ordering=-roll_number", wantRolls: []string{"cs21b003", "cs21b002", "cs21b001"}},
		{name: "name ordering", path: "/v1/students?ordering=name", wantRolls: []string{"cs21b001", "cs21b002", "cs21b003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tkn)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d; want 200", rec.Code)
			}

			var students []academic.Student
			if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if len(students) != len(tt.wantRolls) {
				t.Fatalf("len(students) = %d; want %d", len(students), len(tt.wantRolls))
			}
			for i, roll := range tt.wantRolls {
				if students[i].RollNumber != roll {
					t.Errorf("students[%d] = %s; want %s", i, students[i].RollNumber, roll)
				}
			}
		})
	}
}

func TestStudentAPI_promotionFlow(t *testing.T) {
	app := setup(t)
	tkn := staffToken(t)

	testutil.CreateStudent(t, acadRepo, "cs21b001", "Asha Patel", "", 3)
	sub := testutil.CreateSubject(t, acadRepo, "MATH101", "Calculus", 3, 4, academic.SubjectTheory)

	// enter marks then attendance for the running semester
	body := marchallObj(t, academic.MarksEntry{StudentRoll: "cs21b001", SubjectID: sub.ID, InternalMarks: intPtr(85)})
	req, rec := newAuthRequest(http.MethodPost, "/v1/marks", tkn, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("marks code = %d; want 204: %s", rec.Code, rec.Body.String())
	}

	attBody := []byte(fmt.Sprintf(
		`{"entries":[{"student_roll_number":"cs21b001","subject_id":%d,"date":"2026-02-02T00:00:00Z","slot":1,"status":"Present"}]}`, sub.ID))
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", tkn, attBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("attendance code = %d; want 204: %s", rec.Code, rec.Body.String())
	}

	// promote
	req, rec = newAuthRequest(http.MethodPost, "/v1/students/promote", tkn, []byte(`{"rolls":["cs21b001"]}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("promote code = %d; want 200: %s", rec.Code, rec.Body.String())
	}

	// the archived record is now readable
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/cs21b001/gpas/3", tkn)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("gpa code = %d; want 200: %s", rec.Code, rec.Body.String())
	}
	var gpaRec academic.SemesterGPARecord
	if err := json.Unmarshal(rec.Body.Bytes(), &gpaRec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if gpaRec.GPA != 9.0 {
		t.Errorf("GPA = %v; want 9.0", gpaRec.GPA)
	}

	// unknown semester
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/cs21b001/gpas/7", tkn)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("gpa code = %d; want 404", rec.Code)
	}
}

func TestSubjectAPI(t *testing.T) {
	app := setup(t)
	tkn := staffToken(t)

	tests := []httpTest{
		{name: "create ok", method: http.MethodPost, path: "/v1/subjects", token: tkn,
			body:     marchallObj(t, academic.NewSubject{Code: "MATH101", Name: "Calculus", Semester: 3, Credits: 4}),
			wantCode: http.StatusCreated},
		{name: "duplicate code in semester", method: http.MethodPost, path: "/v1/subjects", token: tkn,
			body:     marchallObj(t, academic.NewSubject{Code: "MATH101", Name: "Calculus Again", Semester: 3}),
			wantCode: http.StatusConflict},
		{name: "same code, other semester", method: http.MethodPost, path: "/v1/subjects", token: tkn,
			body:     marchallObj(t, academic.NewSubject{Code: "MATH101", Name: "Calculus II", Semester: 4}),
			wantCode: http.StatusCreated},
		{name: "missing semester", method: http.MethodPost, path: "/v1/subjects", token: tkn,
			body:     marchallObj(t, academic.NewSubject{Code: "PHY101", Name: "Physics"}),
			wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("list by semester", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/subjects?semester=3", tkn)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want 200", rec.Code)
		}
		var subjects []academic.Subject
		if err := json.Unmarshal(rec.Body.Bytes(), &subjects); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if len(subjects) != 1 || subjects[0].Code != "MATH101" {
			t.Errorf("subjects = %+v; want only sem-3 MATH101", subjects)
		}
		if subjects[0].Credits != 4 || subjects[0].Type != academic.SubjectTheory {
			t.Errorf("subjects[0] = %+v; want 4 credits, Theory default", subjects[0])
		}
	})
}

func intPtr(n int) *int { return &n }
