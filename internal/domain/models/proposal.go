package models

import (
	"strings"
	"time"
)

type Proposal struct {
	ID                  string `gorm:"primaryKey"`
	JobOfferID          string `gorm:"index"`
	JobTitle            string `gorm:"-"`
	CompanyEmail        string `gorm:"index"`
	RecruiterEmail      string `gorm:"index"`
	RecruiterName       string
	CandidateName       string
	CandidateEmail      string
	CandidatePhone      string
	CandidateLinkedIn   string
	CVReference         string
	YearsOfExperience   int
	CurrentSalary       int
	ExpectedSalary      int
	AvailabilityWeeks   int
	RecruiterFeePercent float64
	MatchScore          float64
	Description         string
	Status              Status `gorm:"index;default:pending"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type JobOffer struct {
	ID           string `gorm:"primaryKey"`
	Title        string
	CompanyEmail string `gorm:"index"`
	CompanyName  string
	CreatedAt    time.Time
}

// Matches reports whether the lowercased query is a substring of the candidate name,
// recruiter name or job title.
func (p Proposal) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, field := range []string{p.CandidateName, p.RecruiterName, p.JobTitle} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Newer reports whether p carries a later write than other.
func (p Proposal) Newer(other Proposal) bool {
	if !p.UpdatedAt.Equal(other.UpdatedAt) {
		return p.UpdatedAt.After(other.UpdatedAt)
	}
	return p.CreatedAt.After(other.CreatedAt)
}
