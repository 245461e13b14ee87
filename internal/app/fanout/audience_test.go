package fanout

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/yigit/eventhub/internal/app/models"
)

func campusDirectory() *fakeDirectory {
	cs, ee := strPtr("CS"), strPtr("EE")
	c1, c2 := strPtr("CS-1"), strPtr("CS-2")
	return &fakeDirectory{users: []models.User{
		student("s1", "uni-a", cs, c1),
		student("s2", "uni-a", cs, c2),
		student("s3", "uni-a", ee, nil),
		student("s4", "uni-b", cs, c1),
		{ID: "l1", Role: models.RoleLecturer, Institution: "uni-a", Department: cs},
		{ID: "a1", Role: models.RoleAdmin, Institution: "uni-a"},
	}}
}

func TestAudienceResolverSelectsStudentsByVariant(t *testing.T) {
	tests := []struct {
		name     string
		audience models.TargetAudience
		want     []string
	}{
		{name: "general", audience: models.GeneralAudience(), want: []string{"s1", "s2", "s3"}},
		{name: "department", audience: models.DepartmentAudience("CS"), want: []string{"s1", "s2"}},
		{name: "class", audience: models.ClassAudience("CS-2"), want: []string{"s2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewAudienceResolver(campusDirectory())
			got, err := resolver.Resolve(context.Background(), "uni-a", tt.audience)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected audience: got %v want %v", got, tt.want)
			}
		})
	}
}

func TestAudienceResolverNoMatchIsEmpty(t *testing.T) {
	resolver := NewAudienceResolver(campusDirectory())

	got, err := resolver.Resolve(context.Background(), "uni-a", models.DepartmentAudience("Physics"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestAudienceResolverStaysInsideInstitution(t *testing.T) {
	dir := campusDirectory()
	resolver := NewAudienceResolver(dir)

	got, err := resolver.Resolve(context.Background(), "uni-b", models.GeneralAudience())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"s4"}) {
		t.Fatalf("unexpected audience: %v", got)
	}
	if dir.filters[0].Institution != "uni-b" {
		t.Fatalf("filter not scoped to institution: %+v", dir.filters[0])
	}
}

func TestAudienceResolverDeduplicates(t *testing.T) {
	dir := &fakeDirectory{users: []models.User{
		student("s1", "uni-a", nil, nil),
		student("s1", "uni-a", nil, nil),
		student("s2", "uni-a", nil, nil),
	}}

	got, err := NewAudienceResolver(dir).Resolve(context.Background(), "uni-a", models.GeneralAudience())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Fatalf("expected unique ids, got %v", got)
	}
}

func TestAudienceResolverRejectsZeroAudience(t *testing.T) {
	dir := campusDirectory()
	if _, err := NewAudienceResolver(dir).Resolve(context.Background(), "uni-a", models.TargetAudience{}); err == nil {
		t.Fatalf("expected error for unset audience")
	}
	if len(dir.filters) != 0 {
		t.Fatalf("directory must not be queried for an unset audience")
	}
}

func TestAudienceResolverWrapsDirectoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewAudienceResolver(&fakeDirectory{err: boom}).Resolve(context.Background(), "uni-a", models.GeneralAudience())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped directory error, got %v", err)
	}
}
