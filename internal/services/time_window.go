// Package services – TimeWindowPolicy
//
// A contact log is "current" while both its creation month and its contact
// month equal the current month. Only current records may be deleted or have
// their non-AE fields edited; the delete action is additionally hidden once an
// adverse event has been identified.
package services

import (
	"strings"
	"time"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
)

// WindowAction selects which question TimeWindowPolicy.Evaluate answers.
type WindowAction int

const (
	// ActionEditDeleteButtonVisibility: true when the delete action is shown.
	ActionEditDeleteButtonVisibility WindowAction = iota
	// ActionDisableFields: true when the non-AE fields are locked.
	ActionDisableFields
	// ActionAllowDelete: true when deletion must be rejected.
	ActionAllowDelete
)

// String returns the action name used in logs and span attributes.
func (a WindowAction) String() string {
	switch a {
	case ActionEditDeleteButtonVisibility:
		return "edit_delete_button_visibility"
	case ActionDisableFields:
		return "disable_fields"
	case ActionAllowDelete:
		return "allow_delete"
	default:
		return "unknown"
	}
}

// WindowInput carries the record attributes the policy looks at.
type WindowInput struct {
	CreatedAt              time.Time
	ContactDate            string // dd/mm/yyyy
	AdverseEventIdentified domain.AdverseEvent
}

// WindowInputOf extracts the policy input from a stored record.
func WindowInputOf(c *domain.ContactLog) WindowInput {
	return WindowInput{
		CreatedAt:              c.CreatedAt,
		ContactDate:            c.ContactDate,
		AdverseEventIdentified: c.AdverseEventIdentified,
	}
}

// monthYearLayout renders month/year the same way a dd/mm/yyyy contact date
// reads after its day component.
const monthYearLayout = "01/2006"

// TimeWindowPolicy evaluates the month window in a fixed location. A nil
// Location means UTC.
type TimeWindowPolicy struct {
	Location *time.Location
}

// NewTimeWindowPolicy returns a policy comparing months in loc.
func NewTimeWindowPolicy(loc *time.Location) TimeWindowPolicy {
	return TimeWindowPolicy{Location: loc}
}

func (p TimeWindowPolicy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Evaluate answers action for the record described by in at instant now.
func (p TimeWindowPolicy) Evaluate(in WindowInput, action WindowAction, now time.Time) bool {
	current := now.In(p.loc()).Format(monthYearLayout)
	created := in.CreatedAt.In(p.loc()).Format(monthYearLayout)
	contact := contactMonthYear(in.ContactDate)

	inWindow := created == current && contact == current

	switch action {
	case ActionEditDeleteButtonVisibility:
		return in.AdverseEventIdentified == domain.AdverseEventNo && inWindow
	case ActionDisableFields, ActionAllowDelete:
		return !inWindow
	default:
		return false
	}
}

// contactMonthYear returns the text after the day component of a dd/mm/yyyy
// date, i.e. "mm/yyyy". A value without a separator yields "".
func contactMonthYear(contactDate string) string {
	_, rest, ok := strings.Cut(strings.TrimSpace(contactDate), "/")
	if !ok {
		return ""
	}
	return rest
}
