package fanout

import (
	"context"
	"fmt"

	"github.com/yigit/eventhub/internal/app/models"
)

// StudentDirectory lists student ids matching a filter. Only users with the
// student role are ever returned.
type StudentDirectory interface {
	ListStudentIDs(ctx context.Context, filter models.StudentFilter) ([]string, error)
}

// AudienceResolver maps an institution and a TargetAudience to student ids
type AudienceResolver struct {
	directory StudentDirectory
}

// NewAudienceResolver creates a resolver reading from directory
func NewAudienceResolver(directory StudentDirectory) *AudienceResolver {
	return &AudienceResolver{directory: directory}
}

// Resolve returns the de-duplicated ids of the students addressed by audience.
// No match yields an empty slice and a nil error.
func (r *AudienceResolver) Resolve(ctx context.Context, institution string, audience models.TargetAudience) ([]string, error) {
	filter := models.StudentFilter{Institution: institution}

	switch audience.Kind() {
	case models.AudienceGeneral:
	case models.AudienceDepartment:
		department := audience.Value()
		filter.Department = &department
	case models.AudienceClass:
		class := audience.Value()
		filter.Class = &class
	default:
		return nil, fmt.Errorf("unsupported audience %q", audience.String())
	}

	ids, err := r.directory.ListStudentIDs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience %s: %w", audience, err)
	}
	return uniqueIDs(ids), nil
}

// uniqueIDs drops blanks and repeated ids, keeping first occurrences in order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// without returns ids minus excluded
func without(ids []string, excluded string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != excluded {
			out = append(out, id)
		}
	}
	return out
}
