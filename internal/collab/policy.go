package collab

import (
	"fmt"
	"slices"
	"time"

	"offer-collab-service/internal/domain"
)

// FieldPolicy decides whether a user may set a field to a value on an offer.
// Checks are field-level and independent: a failing field is dropped from
// the update on its own, it never fails the sibling fields.
type FieldPolicy interface {
	Check(documentID, userID uint64, role, field string, value any) error
}

type FieldRule struct {
	// Roles allowed to edit the field. Admin always passes the role check.
	Roles []string
	// Validate rejects malformed values. Applied to every role, admin included.
	Validate func(value any) error
}

// DefaultPolicy is the negotiation rule table for sponsorship offers:
// marketers own the brief side (budget, deliverables, usage rights, payment
// terms), creators own the delivery side (rate, delivery date, notes), and
// shared terms are editable by both.
type DefaultPolicy struct {
	rules map[string]FieldRule
}

func NewDefaultPolicy() *DefaultPolicy {
	both := []string{domain.RoleMarketer, domain.RoleCreator}
	marketer := []string{domain.RoleMarketer}
	creator := []string{domain.RoleCreator}

	return &DefaultPolicy{rules: map[string]FieldRule{
		"price":                {Roles: both, Validate: positiveNumber},
		"budget":               {Roles: marketer, Validate: positiveNumber},
		"platform":             {Roles: both, Validate: nonEmptyString},
		"revisions":            {Roles: both, Validate: nonNegativeInt},
		"deliverables":         {Roles: marketer, Validate: nonEmptyString},
		"content_requirements": {Roles: marketer, Validate: anyString},
		"usage_rights":         {Roles: marketer, Validate: nonEmptyString},
		"payment_terms":        {Roles: marketer, Validate: nonEmptyString},
		"delivery_date":        {Roles: creator, Validate: dateString},
		"creator_notes":        {Roles: creator, Validate: anyString},
		"portfolio_links":      {Roles: creator, Validate: anyString},
	}}
}

func (p *DefaultPolicy) Check(documentID, userID uint64, role, field string, value any) error {
	rule, ok := p.rules[field]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	if role != domain.RoleAdmin && !slices.Contains(rule.Roles, role) {
		return fmt.Errorf("role %q may not edit %q", role, field)
	}
	if rule.Validate != nil {
		return rule.Validate(value)
	}
	return nil
}

// JSON numbers decode as float64, so every numeric check goes through it.

func positiveNumber(value any) error {
	n, ok := value.(float64)
	if !ok {
		return fmt.Errorf("expected a number, got %T", value)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %v", n)
	}
	return nil
}

func nonNegativeInt(value any) error {
	n, ok := value.(float64)
	if !ok {
		return fmt.Errorf("expected a number, got %T", value)
	}
	if n < 0 || n != float64(int64(n)) {
		return fmt.Errorf("must be a non-negative integer, got %v", n)
	}
	return nil
}

func nonEmptyString(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %T", value)
	}
	if s == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func anyString(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected a string, got %T", value)
	}
	return nil
}

func dateString(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected a date string, got %T", value)
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return nil
}
