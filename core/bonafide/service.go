package bonafide

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

var (
	// errors
	ErrNotFound          = stderrors.New("bonafide request not found")
	ErrInvalidTransition = stderrors.New("action not allowed from the request's current status")
	ErrActorNotAllowed   = stderrors.New("actor not allowed to perform this action")
	ErrNotPrintable      = stderrors.New("certificate is not ready for printing")

	nowFunc = time.Now // mockable
)

// RateLimitError is returned when a student exceeds the monthly request cap.
type RateLimitError struct {
	Count int
	Limit int
}

func (err *RateLimitError) Error() string {
	return fmt.Sprintf("bonafide request limit reached: %d of %d this month", err.Count, err.Limit)
}

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		// QueryRequests applies AND operation on available QueryFilter fields,
		// matching legacy status spellings via StoredSpellings. Results are
		// ordered by CreatedAt ascending.
		QueryRequests(ctx context.Context, filter QueryFilter) ([]Request, error)
		// CountRequestsSince counts a student's requests created at or after `since`.
		CountRequestsSince(ctx context.Context, roll string, since time.Time) (int, error)
		UpdateRequest(ctx context.Context, req Request) (Request, error)
	}

	// StudentDirectory resolves roll numbers; satisfied by academic.Service.
	StudentDirectory interface {
		GetByRoll(ctx context.Context, roll string) (academic.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentDirectory
		mailSvc  core.EmailService
		renderer CertificateRenderer
		limit    int
	}
)

func NewService(
	repo Repository,
	students StudentDirectory,
	mailSvc core.EmailService,
	renderer CertificateRenderer,
	conf *core.Config,
) *Service {
	limit := 2
	if conf != nil && conf.BonafideMonthlyLimit > 0 {
		limit = conf.BonafideMonthlyLimit
	}
	return &Service{
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		renderer: renderer,
		limit:    limit,
	}
}

// Create opens a new request in PendingOfficeApproval, enforcing the
// calendar-month rate limit (the window resets on the 1st, it is not rolling).
func (svc *Service) Create(ctx context.Context, nr NewRequest) (Request, error) {
	if _, err := svc.students.GetByRoll(ctx, nr.StudentRoll); err != nil {
		return Request{}, err
	}

	now := nowFunc().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	count, err := svc.repo.CountRequestsSince(ctx, nr.StudentRoll, monthStart)
	if err != nil {
		return Request{}, errors.Wrap(err, "counting requests this month")
	}
	if count >= svc.limit {
		return Request{}, &RateLimitError{Count: count, Limit: svc.limit}
	}

	req := Request{
		ID:          uuid.New().String(),
		StudentRoll: nr.StudentRoll,
		Reason:      nr.Reason,
		Status:      StatusPendingOffice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateRequest(ctx, req)
}

func (svc *Service) Get(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Request, error) {
	filter.Clean()
	return svc.repo.QueryRequests(ctx, filter)
}

// Approve moves a pending request to WaitingForHODSign. Approving a request
// that is already waiting is a deliberate no-op guard, not an error; any
// other source status is an invalid transition.
func (svc *Service) Approve(ctx context.Context, id string, actor core.Actor) (StatusChange, error) {
	if !actor.IsOffice() {
		return StatusChange{}, ErrActorNotAllowed
	}
	req, err := svc.Get(ctx, id)
	if err != nil {
		return StatusChange{}, err
	}

	switch req.Status {
	case StatusPendingOffice:
		return svc.transition(ctx, req, StatusWaitingHODSign, nil)
	case StatusWaitingHODSign:
		return StatusChange{Request: req, From: req.Status, To: req.Status}, nil
	default:
		return StatusChange{}, ErrInvalidTransition
	}
}

// Reject terminates a request that has not been signed yet.
func (svc *Service) Reject(ctx context.Context, id, reason string, actor core.Actor) (StatusChange, error) {
	if !actor.IsOffice() {
		return StatusChange{}, ErrActorNotAllowed
	}
	req, err := svc.Get(ctx, id)
	if err != nil {
		return StatusChange{}, err
	}

	switch req.Status {
	case StatusPendingOffice, StatusWaitingHODSign:
		return svc.transition(ctx, req, StatusRejected, &reason)
	default:
		return StatusChange{}, ErrInvalidTransition
	}
}

// MarkSigned records the HOD's signature on an approved request.
func (svc *Service) MarkSigned(ctx context.Context, id string, actor core.Actor) (StatusChange, error) {
	if !actor.IsHOD() && !actor.IsOffice() {
		return StatusChange{}, ErrActorNotAllowed
	}
	req, err := svc.Get(ctx, id)
	if err != nil {
		return StatusChange{}, err
	}

	if req.Status != StatusWaitingHODSign {
		return StatusChange{}, ErrInvalidTransition
	}
	return svc.transition(ctx, req, StatusSigned, nil)
}

// MarkCollected closes a signed request once the student picks it up.
func (svc *Service) MarkCollected(ctx context.Context, id string, actor core.Actor) (StatusChange, error) {
	if !actor.IsOffice() {
		return StatusChange{}, ErrActorNotAllowed
	}
	req, err := svc.Get(ctx, id)
	if err != nil {
		return StatusChange{}, err
	}

	if req.Status != StatusSigned {
		return StatusChange{}, ErrInvalidTransition
	}
	return svc.transition(ctx, req, StatusCollected, nil)
}

func (svc *Service) transition(ctx context.Context, req Request, to Status, rejectionReason *string) (StatusChange, error) {
	from := req.Status
	req.Status = to
	req.RejectionReason = rejectionReason
	req.UpdatedAt = nowFunc().UTC()

	saved, err := svc.repo.UpdateRequest(ctx, req)
	if err != nil {
		return StatusChange{}, errors.Wrap(err, "updating request")
	}

	change := StatusChange{Request: saved, From: from, To: to}
	svc.notify(ctx, change)
	return change, nil
}

// notify emails the student about the status change; failures to resolve the
// student never fail the transition itself.
func (svc *Service) notify(ctx context.Context, change StatusChange) {
	if svc.mailSvc == nil {
		return
	}
	stu, err := svc.students.GetByRoll(ctx, change.Request.StudentRoll)
	if err != nil || stu.Email == "" {
		return
	}

	body := fmt.Sprintf("Your Bonafide Certificate request is now: %s.", change.To)
	if change.To == StatusRejected && change.Request.RejectionReason != nil && *change.Request.RejectionReason != "" {
		body += fmt.Sprintf(" Reason: %s.", *change.Request.RejectionReason)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Name: stu.Name, Address: stu.Email}},
		Subject:     "Bonafide Request Update",
		TextContent: body,
	})
}

// Render produces the printable certificate for one request. Requests may be
// printed while waiting for the HOD's sign or after signing; printing never
// mutates status.
func (svc *Service) Render(ctx context.Context, id string) ([]byte, error) {
	req, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.Printable() {
		return nil, ErrNotPrintable
	}

	data, err := svc.certificateData(ctx, req)
	if err != nil {
		return nil, err
	}
	return svc.renderer.Render(ctx, data)
}

// BulkPrint renders every request waiting for the HOD's sign into one
// document. Marking them signed afterwards is a separate explicit action.
func (svc *Service) BulkPrint(ctx context.Context) ([]byte, error) {
	reqs, err := svc.repo.QueryRequests(ctx, QueryFilter{Statuses: []Status{StatusWaitingHODSign}})
	if err != nil {
		return nil, errors.Wrap(err, "querying printable requests")
	}

	data := make([]CertificateData, 0, len(reqs))
	for _, req := range reqs {
		d, err := svc.certificateData(ctx, req)
		if err != nil {
			return nil, err
		}
		data = append(data, d)
	}
	return svc.renderer.RenderBulk(ctx, data)
}

func (svc *Service) certificateData(ctx context.Context, req Request) (CertificateData, error) {
	stu, err := svc.students.GetByRoll(ctx, req.StudentRoll)
	if err != nil {
		return CertificateData{}, err
	}
	return newCertificateData(req, stu, nowFunc()), nil
}
