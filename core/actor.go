package core

import "strings"

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Staff
	RoleStaff       = "staff:"
	RoleStaffOffice = "staff:office"
	RoleStaffHOD    = "staff:hod"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin}
	StaffRoles   = []string{RoleStaff, RoleStaffOffice, RoleStaffHOD}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	all = append(all, StudentRoles...)
	return all
}

// Actor is the authenticated identity performing an operation.
// It is always passed in explicitly; domain services never consult
// ambient session state.
type Actor struct {
	ID    string   `json:"id"` // staff id or student roll number
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (a Actor) RoleStartsWith(prefix string) bool {
	for _, role := range a.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.RoleStartsWith(RoleAdmin)
}

func (a Actor) IsStaff() bool {
	return a.RoleStartsWith(RoleStaff)
}

func (a Actor) IsOffice() bool {
	return a.HasRole(RoleStaffOffice) || a.IsAdmin()
}

func (a Actor) IsHOD() bool {
	return a.HasRole(RoleStaffHOD) || a.IsAdmin()
}

func (a Actor) IsStudent() bool {
	return a.RoleStartsWith(RoleStudent)
}
