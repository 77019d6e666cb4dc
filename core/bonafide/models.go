package bonafide

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chuo/core"
)

// Status of a certificate request. The workflow is
// PendingOfficeApproval -> WaitingForHODSign -> Signed -> Collected,
// with Rejected reachable from the two pre-signed states.
type Status string

const (
	StatusPendingOffice  Status = "Pending Office Approval"
	StatusWaitingHODSign Status = "Waiting for HOD Sign"
	StatusSigned         Status = "Signed"
	StatusCollected      Status = "Collected"
	StatusRejected       Status = "Rejected"

	// legacy spellings still present in old rows; normalized on read,
	// never written anew
	legacyApprovedByHOD      = "Approved by HOD"
	legacyReadyForCollection = "Ready for Collection"
)

// NormalizeStatus maps legacy stored spellings onto the current state set.
// It belongs at the data boundary: repositories call it when loading rows.
func NormalizeStatus(s string) Status {
	switch s {
	case legacyApprovedByHOD:
		return StatusWaitingHODSign
	case legacyReadyForCollection:
		return StatusSigned
	}
	return Status(s)
}

// StoredSpellings returns every spelling a status may have in old rows,
// for use in store-level filters.
func StoredSpellings(s Status) []string {
	switch s {
	case StatusWaitingHODSign:
		return []string{string(StatusWaitingHODSign), legacyApprovedByHOD}
	case StatusSigned:
		return []string{string(StatusSigned), legacyReadyForCollection}
	}
	return []string{string(s)}
}

// Terminal reports whether no transition may ever leave this status.
func (s Status) Terminal() bool {
	return s == StatusCollected || s == StatusRejected
}

// Printable reports whether the certificate may be rendered for this status.
func (s Status) Printable() bool {
	return s == StatusWaitingHODSign || s == StatusSigned
}

// Request is a student's bonafide certificate request. Requests are an audit
// trail: they are never deleted, and CreatedAt never changes.
// RejectionReason is set if and only if Status is Rejected.
type Request struct {
	ID              string    `json:"id"`
	StudentRoll     string    `json:"student_roll_number"`
	Reason          string    `json:"reason"`
	Status          Status    `json:"status"`
	RejectionReason *string   `json:"rejection_reason"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewRequest contains information needed to create a Request.
type NewRequest struct {
	StudentRoll string `json:"student_roll_number" validate:"required,rollnum"`
	Reason      string `json:"reason" validate:"required"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.StudentRoll = core.CleanString(nr.StudentRoll, true /* lower */)
	nr.Reason = core.CleanString(nr.Reason)
	return validate.Struct(nr)
}

// StatusChange is returned by every successful transition so callers can
// react (notifications, printing) without re-reading the request.
type StatusChange struct {
	Request Request `json:"request"`
	From    Status  `json:"from"`
	To      Status  `json:"to"`
}

// NoOp reports whether the transition left the request unchanged
// (the deliberate approve idempotence guard).
func (sc StatusChange) NoOp() bool { return sc.From == sc.To }

type QueryFilter struct {
	StudentRoll string   `query:"student_roll_number"`
	Statuses    []Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentRoll == "" && len(qf.Statuses) == 0
}

func (qf *QueryFilter) Clean() {
	qf.StudentRoll = core.CleanString(qf.StudentRoll, true /* lower */)
}
