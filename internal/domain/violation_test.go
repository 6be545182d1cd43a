package domain

import (
	"slices"
	"testing"
)

func TestSeverityForUserCountBoundary(t *testing.T) {
	cases := []struct {
		users int
		want  ViolationSeverity
	}{
		{users: 1, want: ViolationSeverityMedium},
		{users: 2, want: ViolationSeverityMedium},
		{users: 3, want: ViolationSeverityMedium},
		{users: 4, want: ViolationSeverityHigh},
		{users: 10, want: ViolationSeverityHigh},
	}
	for _, tc := range cases {
		if got := SeverityForUserCount(tc.users); got != tc.want {
			t.Fatalf("SeverityForUserCount(%d)=%q want %q", tc.users, got, tc.want)
		}
	}
}

func TestViolationCaseMergeUnionsAndRecomputesSeverity(t *testing.T) {
	v := &ViolationCase{
		UserIDs:   []string{"u1", "u2"},
		CourseIDs: []string{"c1"},
		Severity:  ViolationSeverityMedium,
	}
	v.Merge([]string{"u2", "u3"}, []string{"c1"})
	if !slices.Equal(v.UserIDs, []string{"u1", "u2", "u3"}) {
		t.Fatalf("unexpected user ids: %v", v.UserIDs)
	}
	if !slices.Equal(v.CourseIDs, []string{"c1"}) {
		t.Fatalf("unexpected course ids: %v", v.CourseIDs)
	}
	if v.Severity != ViolationSeverityMedium {
		t.Fatalf("expected medium with 3 users, got %q", v.Severity)
	}

	v.Merge([]string{"u4"}, []string{"c2"})
	if len(v.UserIDs) != 4 || v.Severity != ViolationSeverityHigh {
		t.Fatalf("expected high severity with 4 users, got %d users severity=%q", len(v.UserIDs), v.Severity)
	}
	if !slices.Equal(v.CourseIDs, []string{"c1", "c2"}) {
		t.Fatalf("unexpected course ids after merge: %v", v.CourseIDs)
	}
}

func TestUnionIDsDropsEmptyAndDuplicates(t *testing.T) {
	got := UnionIDs([]string{"b", "", "a"}, "a", "", "c", "b")
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("UnionIDs=%v", got)
	}
}

func FuzzUnionIDsInvariants(f *testing.F) {
	f.Add("a", "b", "a")
	f.Add("", "", "")
	f.Add("u-1", "u-10", "u-2")

	f.Fuzz(func(t *testing.T, a, b, c string) {
		got := UnionIDs([]string{a, b}, c, a)
		if !slices.IsSorted(got) {
			t.Fatalf("union must be sorted: %v", got)
		}
		for i := 1; i < len(got); i++ {
			if got[i] == got[i-1] {
				t.Fatalf("union must be de-duplicated: %v", got)
			}
		}
		for _, id := range []string{a, b, c} {
			if id != "" && !slices.Contains(got, id) {
				t.Fatalf("union lost id %q: %v", id, got)
			}
		}
		again := UnionIDs(got, got...)
		if !slices.Equal(got, again) {
			t.Fatalf("union must be idempotent: first=%v second=%v", got, again)
		}
	})
}
