// Package groups maps cohort names to the member emails a report covers.
package groups

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

var (
	// ErrGroupNotFound is returned for names that are neither "all" nor a
	// configured cohort.
	ErrGroupNotFound = errors.New("group not found")
	// ErrGroupEmpty is returned when a cohort resolves to no emails.
	ErrGroupEmpty = errors.New("group has no members")
)

// Resolver resolves group names against the cohort table.
type Resolver struct {
	cohorts  *config.Cohorts
	excluded map[string]struct{}
}

// New creates a resolver. Excluded emails are removed from every result.
func New(cohorts *config.Cohorts, excluded []string) *Resolver {
	ex := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		if e = models.NormalizeEmail(e); e != "" {
			ex[e] = struct{}{}
		}
	}
	return &Resolver{cohorts: cohorts, excluded: ex}
}

// IsAll reports whether name selects every team member.
func IsAll(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, models.AllGroup)
}

// Resolve returns the sorted, de-duplicated emails a report for name covers.
// "all" (or an empty name) selects teamMembers; any other name must be a
// configured cohort.
func (r *Resolver) Resolve(name string, teamMembers []string) ([]string, error) {
	var source []string
	if IsAll(name) {
		source = teamMembers
	} else {
		g, ok := r.cohorts.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (available: %s, %s)",
				ErrGroupNotFound, name, models.AllGroup, strings.Join(r.cohorts.Names(), ", "))
		}
		if len(g.Members) == 0 {
			return nil, fmt.Errorf("%w: %q has no emails configured in %s", ErrGroupEmpty, g.Name, r.cohorts.Source())
		}
		source = g.Members
	}

	emails := lo.Uniq(lo.Compact(lo.Map(source, func(e string, _ int) string {
		return models.NormalizeEmail(e)
	})))
	emails = lo.Reject(emails, func(e string, _ int) bool {
		_, skip := r.excluded[e]
		return skip
	})
	sort.Strings(emails)
	return emails, nil
}

// NotInTeam returns the resolved emails that the team list does not know.
func NotInTeam(resolved, teamMembers []string) []string {
	team := lo.SliceToMap(teamMembers, func(e string) (string, struct{}) {
		return models.NormalizeEmail(e), struct{}{}
	})
	return lo.Filter(resolved, func(e string, _ int) bool {
		_, ok := team[e]
		return !ok
	})
}

// List returns every configured cohort, sorted by name.
func (r *Resolver) List() []models.Group {
	return r.cohorts.All()
}

// Excluded returns the exclusion list, sorted.
func (r *Resolver) Excluded() []string {
	out := lo.Keys(r.excluded)
	sort.Strings(out)
	return out
}
