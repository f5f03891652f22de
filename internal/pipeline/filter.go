package pipeline

import (
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/samber/lo"
	"slices"
	"sort"
	"strings"
)

// Filter is the predicate set of a derived view. The zero value matches everything.
type Filter struct {
	Search   string
	Statuses []models.Status
	MinScore *float64
	MaxScore *float64
}

func (f Filter) Match(p models.Proposal) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
		return false
	}
	if f.MinScore != nil && p.MatchScore < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && p.MatchScore > *f.MaxScore {
		return false
	}
	return p.Matches(f.Search)
}

// key is a canonical representation used to memoise views; equal filters give equal keys.
func (f Filter) key() string {
	statuses := lo.Map(f.Statuses, func(s models.Status, _ int) string { return string(s) })
	sort.Strings(statuses)

	bound := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%g", *v)
	}

	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(f.Search)),
		strings.Join(lo.Uniq(statuses), ","),
		bound(f.MinScore),
		bound(f.MaxScore),
	}, "\x1f")
}

// Apply returns the proposals matching f, newest first. The input is not modified.
func Apply(proposals []models.Proposal, f Filter) []models.Proposal {
	out := lo.Filter(proposals, func(p models.Proposal, _ int) bool { return f.Match(p) })
	sortNewestFirst(out)
	return out
}

type Column struct {
	Status    models.Status
	Proposals []models.Proposal
}

// GroupByStatus partitions proposals into one column per status in board order,
// newest first within each column.
func GroupByStatus(proposals []models.Proposal) []Column {
	sorted := slices.Clone(proposals)
	sortNewestFirst(sorted)

	byStatus := lo.GroupBy(sorted, func(p models.Proposal) models.Status { return p.Status })
	return lo.Map(models.Statuses(), func(s models.Status, _ int) Column {
		return Column{Status: s, Proposals: byStatus[s]}
	})
}

func sortNewestFirst(proposals []models.Proposal) {
	sort.SliceStable(proposals, func(i, j int) bool {
		if !proposals[i].CreatedAt.Equal(proposals[j].CreatedAt) {
			return proposals[i].CreatedAt.After(proposals[j].CreatedAt)
		}
		return proposals[i].ID < proposals[j].ID
	})
}
