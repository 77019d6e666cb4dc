package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
)

var acadSvc *academic.Service

func setup(t *testing.T) *commandLine {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)
	conf := core.NewConfig(t.TempDir())

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	acadSvc = academic.NewService(inmemdb.NewAcademicRepository(db), conf)

	// start CLI
	return &commandLine{
		acadSvc: acadSvc,
		conf:    conf,
	}
}

func createStudent(t *testing.T, roll string, semester int) academic.Student {
	t.Helper()
	stu, err := acadSvc.CreateStudent(context.Background(), academic.NewStudent{
		RollNumber:      roll,
		Name:            "Student " + roll,
		CurrentSemester: semester,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gooseCalls int
	gooseRunFunc = func(command string, db *sqlx.DB, fsys fs.FS, dir string, args ...string) error {
		gooseCalls++
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "subject", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	// every subtest but the bare "migrate" must reach the goose runner
	if want := len(tests) - 1; gooseCalls != want {
		t.Errorf("gooseRunFunc calls = %d; want %d", gooseCalls, want)
	}
}

func Test_commandLine_promote(t *testing.T) {
	cli := setup(t)

	createStudent(t, "cs21b001", 3)
	createStudent(t, "cs21b002", 3)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"promote"}, wantErr: errHelp},
		{name: "promote", args: []string{"promote", "-rolls", "cs21b001,cs21b002"}},
		{name: "unknown rolls are skipped", args: []string{"promote", "-rolls", "cs21b001,nosuch1"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil && err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	stu, err := acadSvc.GetByRoll(context.Background(), "cs21b001")
	if err != nil {
		t.Fatalf("GetByRoll() failed: %v", err)
	}
	if stu.CurrentSemester != 5 { // promoted twice
		t.Errorf("CurrentSemester = %d; want 5", stu.CurrentSemester)
	}
}

func Test_commandLine_demote(t *testing.T) {
	cli := setup(t)

	createStudent(t, "cs21b003", 2)

	if err := cli.run([]string{"admin", "demote", "-rolls", "cs21b003"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
	// floor at semester 1
	if err := cli.run([]string{"admin", "demote", "-rolls", "cs21b003"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}

	stu, err := acadSvc.GetByRoll(context.Background(), "cs21b003")
	if err != nil {
		t.Fatalf("GetByRoll() failed: %v", err)
	}
	if stu.CurrentSemester != 1 {
		t.Errorf("CurrentSemester = %d; want 1", stu.CurrentSemester)
	}
}

func Test_commandLine_mktoken(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"mktoken"}, wantErr: errHelp},
		{name: "missing roles", args: []string{"mktoken", "-id", "staff1"}, wantErr: errHelp},
		{name: "staff token", args: []string{"mktoken", "-id", "staff1", "-roles", "staff:office"}},
		{name: "student token", args: []string{"mktoken", "-id", "cs21b001", "-roles", "student:", "-email", "s@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil && err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("unknown role rejected", func(t *testing.T) {
		if err := cli.run([]string{"admin", "mktoken", "-id", "staff1", "-roles", "staf:"}); err == nil {
			t.Error("cli.run() expected an error for an unknown role")
		}
	})
}
