package models

import (
	"fmt"
	"github.com/samber/lo"
	"strings"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	//StatusHired is set by the hiring workflow, never by the pipeline itself
	StatusHired Status = "hired"
)

var boardOrder = []Status{StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusHired}

// Statuses returns every known status in board column order.
func Statuses() []Status {
	out := make([]Status, len(boardOrder))
	copy(out, boardOrder)
	return out
}

func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(s)) {
	case StatusPending:
		return StatusPending, nil
	case StatusUnderReview:
		return StatusUnderReview, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusHired:
		return StatusHired, nil
	default:
		return "", fmt.Errorf("unknown proposal status %q", s)
	}
}

// IsValid reports whether s is exactly one of the known statuses. Use ParseStatus for user input.
func (s Status) IsValid() bool {
	return lo.Contains(boardOrder, s)
}

// IsAssignable reports whether the pipeline may move a proposal into s.
func (s Status) IsAssignable() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "In attesa"
	case StatusUnderReview:
		return "In revisione"
	case StatusApproved:
		return "Approvata"
	case StatusRejected:
		return "Rifiutata"
	case StatusHired:
		return "Assunto"
	default:
		return string(s)
	}
}
