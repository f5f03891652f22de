package models

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleCompany   Role = "company"
	RoleRecruiter Role = "recruiter"
)

func ToRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case RoleCompany:
		return RoleCompany, nil
	case RoleRecruiter:
		return RoleRecruiter, nil
	default:
		return "", errors.New("invalid viewer role")
	}
}

type Viewer struct {
	Email string
	Role  Role
}

func NewViewer(email string, role Role) Viewer {
	return Viewer{Email: strings.ToLower(strings.TrimSpace(email)), Role: role}
}

func (v Viewer) Is(email string) bool {
	return strings.EqualFold(v.Email, strings.TrimSpace(email))
}

// Counterparty returns the email of the other side of the conversation.
func (v Viewer) Counterparty(c Conversation) string {
	if v.Is(c.CompanyEmail) {
		return c.RecruiterEmail
	}
	return c.CompanyEmail
}
