package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is a directory entry used to resolve display names
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Validate ensures the user adheres to domain rules
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidUser, u.Email)
	}
	return nil
}

// DisplayName returns the username, falling back to a generic label for unknown users
func DisplayName(u *User, id string) string {
	if u == nil || u.Username == "" {
		return "User " + id
	}
	return u.Username
}

// Group represents an expense-sharing group
// Members is the current membership, sorted by ID
type Group struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	Members     []string
	CreatedAt   time.Time
}

// Validate ensures the group adheres to domain rules
func (g *Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: group name cannot be empty", ErrInvalidGroup)
	}
	if g.OwnerID == "" {
		return fmt.Errorf("%w: group must have an owner", ErrInvalidGroup)
	}
	return nil
}

// MemberSet returns the group's membership as a set
func (g *Group) MemberSet() MemberSet {
	return NewMemberSet(g.Members...)
}

// GroupUpdate is a partial update of a group's descriptive fields
type GroupUpdate struct {
	Name        *string
	Description *string
}

// Apply merges the update onto a copy of the group and returns the copy
func (g Group) Apply(u GroupUpdate) Group {
	out := g
	out.Members = append([]string(nil), g.Members...)
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	return out
}
