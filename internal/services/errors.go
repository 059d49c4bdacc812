// Package services defines the business logic for contact logs, their
// taxonomy options and the spreadsheet report.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Contact log errors.
var (
	// ErrNotFound indicates that the contact log does not exist or has been
	// soft-deleted.
	ErrNotFound = errors.New("contact log not found")

	// ErrAdverseEventLocked is returned when deleting a contact log that has
	// an adverse event identified. Such records can never be deleted.
	ErrAdverseEventLocked = errors.New("adverse event identified, contact log cannot be deleted")

	// ErrOutsideEditWindow is returned when the creation month or the contact
	// month of a record is not the current month.
	ErrOutsideEditWindow = errors.New("contact log is outside the current month")

	// ErrValidation wraps validation.FieldErrors for submissions rejected by
	// the service layer.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownTerm is returned when a submitted type of contact does not
	// reference a first-level term of the type_of_contact vocabulary.
	ErrUnknownTerm = errors.New("unknown taxonomy term")
)
