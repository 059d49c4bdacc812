// Package validation holds the input rules applied to contact log submissions
// before they reach the service layer: disallowed-character detection, strict
// calendar-date parsing, and the required/length constraints of the form.
//
// Values are extracted into plain strings once at the HTTP boundary (see
// FieldValue and FormValue); every rule in this package takes a string.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Submitted field names.
const (
	FieldContactDate   = "contact_date"
	FieldTypeOfContact = "type_of_contact"
	FieldContactName   = "contact_name"
	FieldContactNote   = "contact_note"
	FieldAdverseEvent  = "adverse_event_identified"
	FieldAEReceiptNo   = "ae_receipt_no"
)

// User-facing messages.
const (
	MsgSpecialChars = "Special characters are not allowed."
	MsgInvalidDate  = "Please enter a valid date."
	MsgRequired     = "This field is required."
	MsgTooLong      = "Cannot be longer than %d characters."
	MsgInvalidAE    = "Please choose Yes or No."
)

// MaxTextLen is the maximum rune length of the contact name and receipt number.
const MaxTextLen = 50

// ContactDateLayout is the canonical storage and display layout of a contact date.
const ContactDateLayout = "02/01/2006"

// FieldErrors maps a field name to its first validation message.
type FieldErrors map[string]string

// Error implements error. Fields are listed in name order.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// add records msg for field unless an earlier rule already flagged it.
func (fe FieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Rules applies the configured disallowed-character pattern together with
// the fixed form constraints.
type Rules struct {
	disallowed *regexp.Regexp
}

// New compiles pattern into a Rules value.
func New(pattern string) (*Rules, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile special chars pattern: %w", err)
	}
	return &Rules{disallowed: re}, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(pattern string) *Rules {
	r, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// HasSpecialCharacter reports whether value contains a disallowed character.
// The value is NFC-normalized first so that decomposed accents count as letters.
func (r *Rules) HasSpecialCharacter(value string) bool {
	if value == "" {
		return false
	}
	return r.disallowed.MatchString(norm.NFC.String(value))
}

// IsValidDate reports whether text names a real calendar date written as
// day/month/year (or day-month-year, or ISO yyyy-mm-dd).
func IsValidDate(text string) bool {
	_, err := ParseContactDate(text)
	return err == nil
}

// dateLayouts are tried in order after "/" has been replaced by "-".
var dateLayouts = []string{"2-1-2006", "2006-1-2"}

// ParseContactDate parses text strictly. Out-of-range days such as 31/04 are
// rejected rather than normalized into the next month.
func ParseContactDate(text string) (time.Time, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), "/", "-")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected dd/mm/yyyy", text)
}

// FormatContactDate renders t in the canonical dd/mm/yyyy layout.
func FormatContactDate(t time.Time) string {
	return t.Format(ContactDateLayout)
}

// CanonicalContactDate returns text re-rendered as dd/mm/yyyy, or text
// unchanged when it does not parse.
func CanonicalContactDate(text string) string {
	t, err := ParseContactDate(text)
	if err != nil {
		return text
	}
	return FormatContactDate(t)
}

// requiredFields are the fields the form marks as mandatory.
var requiredFields = []string{
	FieldContactDate,
	FieldTypeOfContact,
	FieldContactName,
	FieldContactNote,
	FieldAdverseEvent,
}

// ValidateSubmission runs every submitted value through HasSpecialCharacter,
// then checks the contact date, required fields, maximum lengths and the
// adverse-event choice. A nil result means the submission is valid.
//
// Fields listed in skip are not checked, which lets the edit flow ignore
// values it will not persist.
func (r *Rules) ValidateSubmission(values map[string]string, skip ...string) FieldErrors {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[s] = struct{}{}
	}
	checked := func(field string) bool {
		_, ok := skipped[field]
		return !ok
	}

	errs := FieldErrors{}
	for field, v := range values {
		if checked(field) && r.HasSpecialCharacter(v) {
			errs.add(field, MsgSpecialChars)
		}
	}

	for _, field := range requiredFields {
		if checked(field) && strings.TrimSpace(values[field]) == "" {
			errs.add(field, MsgRequired)
		}
	}

	if checked(FieldContactDate) {
		if d := values[FieldContactDate]; strings.TrimSpace(d) != "" && !IsValidDate(d) {
			errs.add(FieldContactDate, MsgInvalidDate)
		}
	}

	for _, field := range []string{FieldContactName, FieldAEReceiptNo} {
		if checked(field) && utf8.RuneCountInString(values[field]) > MaxTextLen {
			errs.add(field, fmt.Sprintf(MsgTooLong, MaxTextLen))
		}
	}

	if checked(FieldAdverseEvent) {
		if ae := values[FieldAdverseEvent]; ae != "" && ae != "Yes" && ae != "No" {
			errs.add(FieldAdverseEvent, MsgInvalidAE)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
