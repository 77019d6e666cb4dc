package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/bonafide"
	emailsvc "github.com/trezcool/chuo/services/email"
	pdfsvc "github.com/trezcool/chuo/services/pdf"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
)

var (
	conf     *core.Config
	acadRepo academic.Repository
	bonaRepo bonafide.Repository
	acadSvc  *academic.Service
	bonaSvc  *bonafide.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) Server {
	t.Helper()

	conf = core.NewConfig(t.TempDir())
	conf.Debug = false
	conf.TestMode = true

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	acadRepo = inmemdb.NewAcademicRepository(db)
	bonaRepo = inmemdb.NewBonafideRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	acadSvc = academic.NewService(acadRepo, conf)
	bonaSvc = bonafide.NewService(bonaRepo, acadSvc, mailSvc, pdfsvc.NewConsoleRenderer(), conf)

	validate, translator := core.NewValidator()

	// set up server
	return NewServer(
		nil, /* shutdown */
		&Options{
			DisableReqLogs: true,
			AcademicSvc:    acadSvc,
			BonafideSvc:    bonaSvc,
			Logger:         testLogger{t},
			Validate:       validate,
			Translator:     translator,
			Conf:           conf,
		},
	)
}

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG: %s %v", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Logf("INFO: %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Logf("WARN: %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR: %s %v", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL: %s %v", msg, args) }

var _ core.Logger = (*testLogger)(nil)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, actor core.Actor) string {
	claims := GetActorClaims(actor, conf)
	token, err := GenerateToken(claims, conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func staffToken(t *testing.T) string {
	return getToken(t, core.Actor{ID: "staff1", Name: "Staff One", Roles: []string{core.RoleStaff}})
}

func officeToken(t *testing.T) string {
	return getToken(t, core.Actor{ID: "staff2", Name: "Office Clerk", Roles: []string{core.RoleStaffOffice}})
}

func hodToken(t *testing.T) string {
	return getToken(t, core.Actor{ID: "staff3", Name: "The HOD", Roles: []string{core.RoleStaffHOD}})
}

func studentToken(t *testing.T, roll string) string {
	return getToken(t, core.Actor{ID: roll, Name: "Student " + roll, Roles: []string{core.RoleStudent}})
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
