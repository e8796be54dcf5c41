package domain

import "sort"

// MemberSet is the set of user IDs currently belonging to a group
type MemberSet map[string]struct{}

// NewMemberSet builds a MemberSet from the given IDs, ignoring duplicates
func NewMemberSet(ids ...string) MemberSet {
	set := make(MemberSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is a member
func (s MemberSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the member IDs in ascending order
func (s MemberSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
