package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/bonafide"
)

func CreateStudent(
	t *testing.T,
	repo academic.Repository,
	roll, name, email string,
	semester int,
	createdAt ...time.Time,
) academic.Student {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	stu := academic.Student{
		RollNumber:      roll,
		Name:            name,
		Email:           email,
		ProgramLevel:    academic.ProgramUG,
		CurrentSemester: semester,
		CreatedAt:       tstamp,
		UpdatedAt:       tstamp,
	}
	stu, err := repo.CreateStudent(context.Background(), stu)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

func CreateSubject(
	t *testing.T,
	repo academic.Repository,
	code, name string,
	semester, credits int,
	typ academic.SubjectType,
) academic.Subject {
	t.Helper()

	sub, err := repo.CreateSubject(context.Background(), academic.Subject{
		Code:     code,
		Name:     name,
		Semester: semester,
		Type:     typ,
		Credits:  credits,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

// CreateBonafideRequest seeds a request directly, bypassing the service's
// rate limit; createdAt and status are stored as given (legacy spellings
// included).
func CreateBonafideRequest(
	t *testing.T,
	repo bonafide.Repository,
	id, roll, reason string,
	status bonafide.Status,
	createdAt time.Time,
) bonafide.Request {
	t.Helper()

	req := bonafide.Request{
		ID:          id,
		StudentRoll: roll,
		Reason:      reason,
		Status:      status,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   createdAt.UTC(),
	}
	req, err := repo.CreateRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBonafideRequest() failed: %v", err)
	}
	return req
}
