// Package services – ContactLogService
//
// This file implements the contact log lifecycle: create, read, edit and soft
// delete. Mutability follows TimeWindowPolicy; a record is only deletable
// while it is current and no adverse event has been identified.
//
// Every method takes the acting user and samples "now" once from the
// service clock, so the time window can be tested without touching the
// system clock.
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/auth"
	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/flash"
	"github.com/tbourn/go-contactlog-backend/internal/observability"
	"github.com/tbourn/go-contactlog-backend/internal/repo"
	"github.com/tbourn/go-contactlog-backend/internal/utils"
	"github.com/tbourn/go-contactlog-backend/internal/validation"
)

// User-facing outcome messages.
const (
	MsgCreated           = "Contact log Added successfully."
	MsgUpdated           = "Contact log updated successfully."
	MsgDeleted           = "Contact log deleted successfully."
	MsgAdverseEventLock  = "The AE identified is yes, it can not be deleted."
	MsgOutsideEditWindow = "The created date or the contact date of the log is not the current month, it cannot be deleted."
	MsgNotFound          = "Page not found."
	MsgIllegalChoice     = "An illegal choice has been detected. Please contact the site administrator."
)

const tracerContactLog = "services/ContactLogService"

// lockedFields are the inputs ignored on edit once the record has left the
// current month.
var lockedFields = []string{
	validation.FieldContactDate,
	validation.FieldTypeOfContact,
	validation.FieldContactName,
	validation.FieldContactNote,
}

// ContactLogInput carries the editable fields of a submission, already
// extracted into plain strings at the HTTP boundary.
type ContactLogInput struct {
	ContactDate            string
	TypeOfContactID        string
	ContactName            string
	ContactNote            string
	AdverseEventIdentified domain.AdverseEvent
	AEReceiptNo            string
}

// Values returns the submission keyed by form field name.
func (in ContactLogInput) Values() map[string]string {
	return map[string]string{
		validation.FieldContactDate:   in.ContactDate,
		validation.FieldTypeOfContact: in.TypeOfContactID,
		validation.FieldContactName:   in.ContactName,
		validation.FieldContactNote:   in.ContactNote,
		validation.FieldAdverseEvent:  string(in.AdverseEventIdentified),
		validation.FieldAEReceiptNo:   in.AEReceiptNo,
	}
}

// ValidationError reports per-field problems with a submission. It matches
// ErrValidation with errors.Is, and Cause when one is set.
type ValidationError struct {
	Fields validation.FieldErrors
	Cause  error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Cause != nil && target == e.Cause)
}

// FormState tells the edit form what to render for a record at a given time.
type FormState struct {
	DeleteVisible  bool `json:"delete_visible"`
	FieldsDisabled bool `json:"fields_disabled"`
}

// ContactLogService manages contact logs.
type ContactLogService struct {
	DB     *gorm.DB
	Policy TimeWindowPolicy
	Rules  *validation.Rules
	// Flash receives success notifications; nil disables them.
	Flash flash.Store
	// Sanitizer strips markup from free text before it is stored.
	Sanitizer *bluemonday.Policy
	// Now is the service clock.
	Now func() time.Time
}

// NewContactLogService wires a service with a strict sanitizer and the
// system clock.
func NewContactLogService(db *gorm.DB, policy TimeWindowPolicy, rules *validation.Rules, store flash.Store) *ContactLogService {
	return &ContactLogService{
		DB:        db,
		Policy:    policy,
		Rules:     rules,
		Flash:     store,
		Sanitizer: bluemonday.StrictPolicy(),
		Now:       time.Now,
	}
}

func (s *ContactLogService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Create validates in and stores a new contact log authored by actor.
func (s *ContactLogService) Create(ctx context.Context, actor auth.Identity, in ContactLogInput) (_ *domain.ContactLog, err error) {
	ctx, span := observability.StartSpan(ctx, tracerContactLog, "Create",
		attribute.String("user.id", actor.UserID),
	)
	defer func() { observability.EndSpan(span, err) }()

	in = s.normalize(in)
	if err := s.validate(ctx, in); err != nil {
		s.record(observability.OpCreate, err)
		return nil, err
	}

	c := &domain.ContactLog{
		UserID:                 actor.UserID,
		AuthorName:             actor.Name,
		CreatedAt:              s.now().UTC(),
		ContactDate:            validation.CanonicalContactDate(in.ContactDate),
		TypeOfContactID:        in.TypeOfContactID,
		ContactName:            s.sanitize(in.ContactName),
		ContactNote:            s.sanitize(in.ContactNote),
		AdverseEventIdentified: in.AdverseEventIdentified,
		AEReceiptNo:            s.sanitize(in.AEReceiptNo),
	}
	if err := repo.CreateContactLog(ctx, s.DB, c); err != nil {
		s.record(observability.OpCreate, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("contact_log.id", c.ID))

	s.record(observability.OpCreate, nil)
	s.notify(ctx, actor.UserID, MsgCreated)
	return c, nil
}

// Get returns a non-deleted contact log or ErrNotFound.
func (s *ContactLogService) Get(ctx context.Context, id string) (*domain.ContactLog, error) {
	c, err := repo.GetContactLog(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Resolve loads a contact log whether or not it has been soft-deleted. It
// returns ErrNotFound only when the id was never stored.
func (s *ContactLogService) Resolve(ctx context.Context, id string) (*domain.ContactLog, error) {
	c, err := repo.GetContactLogUnscoped(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update applies in to the record id. Once the record has left the current
// month its contact date, type, name and note keep their stored values and
// only the adverse event flag and receipt number change.
func (s *ContactLogService) Update(ctx context.Context, actor auth.Identity, id string, in ContactLogInput) (_ *domain.ContactLog, err error) {
	ctx, span := observability.StartSpan(ctx, tracerContactLog, "Update",
		attribute.String("user.id", actor.UserID),
		attribute.String("contact_log.id", id),
	)
	defer func() { observability.EndSpan(span, err) }()

	c, err := s.Get(ctx, id)
	if err != nil {
		s.record(observability.OpUpdate, err)
		return nil, err
	}

	locked := s.Policy.Evaluate(WindowInputOf(c), ActionDisableFields, s.now())
	span.SetAttributes(attribute.Bool("contact_log.locked", locked))

	in = s.normalize(in)
	if locked {
		in.ContactDate = c.ContactDate
		in.TypeOfContactID = c.TypeOfContactID
		in.ContactName = c.ContactName
		in.ContactNote = c.ContactNote
	}

	var skip []string
	if locked {
		skip = lockedFields
	}
	if err := s.validate(ctx, in, skip...); err != nil {
		s.record(observability.OpUpdate, err)
		return nil, err
	}

	if !locked {
		c.ContactDate = validation.CanonicalContactDate(in.ContactDate)
		c.TypeOfContactID = in.TypeOfContactID
		c.ContactName = s.sanitize(in.ContactName)
		c.ContactNote = s.sanitize(in.ContactNote)
	}
	c.AdverseEventIdentified = in.AdverseEventIdentified
	c.AEReceiptNo = s.sanitize(in.AEReceiptNo)

	if err := repo.UpdateContactLog(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = ErrNotFound
		}
		s.record(observability.OpUpdate, err)
		return nil, err
	}

	s.record(observability.OpUpdate, nil)
	s.notify(ctx, actor.UserID, MsgUpdated)

	// Reload so the returned record carries the (possibly new) term.
	if fresh, gerr := s.Get(ctx, id); gerr == nil {
		return fresh, nil
	}
	return c, nil
}

// SoftDelete marks rec deleted by actingUser.
//
// It fails with ErrNotFound when rec is nil or already deleted, with
// ErrAdverseEventLocked when an adverse event was identified, and with
// ErrOutsideEditWindow once either date has left the current month.
func (s *ContactLogService) SoftDelete(ctx context.Context, rec *domain.ContactLog, actingUser string) (err error) {
	ctx, span := observability.StartSpan(ctx, tracerContactLog, "SoftDelete",
		attribute.String("user.id", actingUser),
	)
	defer func() {
		s.record(observability.OpDelete, err)
		observability.EndSpan(span, err)
	}()

	if rec == nil || rec.IsDeleted() {
		return ErrNotFound
	}
	span.SetAttributes(attribute.String("contact_log.id", rec.ID))

	if rec.AdverseEventIdentified == domain.AdverseEventYes {
		return ErrAdverseEventLocked
	}
	now := s.now()
	if s.Policy.Evaluate(WindowInputOf(rec), ActionAllowDelete, now) {
		return ErrOutsideEditWindow
	}

	if err := repo.SoftDeleteContactLog(ctx, s.DB, rec.ID, actingUser, now.UTC()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	rec.DeletedAt = gorm.DeletedAt{Time: now.UTC(), Valid: true}
	rec.DeletedBy = &actingUser

	s.notify(ctx, actingUser, MsgDeleted)
	return nil
}

// ListPage returns a page of non-deleted contact logs matching f, newest
// first, with the total number of matches.
func (s *ContactLogService) ListPage(ctx context.Context, f repo.ContactLogFilter, page, pageSize int) (_ []domain.ContactLog, _ int64, err error) {
	ctx, span := observability.StartSpan(ctx, tracerContactLog, "ListPage",
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer func() { observability.EndSpan(span, err) }()

	pg := utils.Page{Number: page, Size: pageSize}
	if pg.Number < 1 {
		pg.Number = 1
	}
	if pg.Size <= 0 {
		pg.Size = utils.DefaultPageSize
	}

	total, err := repo.CountContactLogs(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContactLog{}, 0, nil
	}

	items, err := repo.ListContactLogsPage(ctx, s.DB, f, pg.Offset(), pg.Size)
	return items, total, err
}

// EditState evaluates the edit form flags for c at now.
func (s *ContactLogService) EditState(c *domain.ContactLog, now time.Time) FormState {
	in := WindowInputOf(c)
	return FormState{
		DeleteVisible:  s.Policy.Evaluate(in, ActionEditDeleteButtonVisibility, now),
		FieldsDisabled: s.Policy.Evaluate(in, ActionDisableFields, now),
	}
}

// Clock exposes the service clock to callers that render time-dependent
// state, so one request sees one "now".
func (s *ContactLogService) Clock() time.Time { return s.now() }

// Location is the zone dates are displayed and compared in.
func (s *ContactLogService) Location() *time.Location { return s.Policy.loc() }

// DeleteMessage maps a SoftDelete error to the message shown to the user.
func DeleteMessage(err error) string {
	switch {
	case err == nil:
		return MsgDeleted
	case errors.Is(err, ErrAdverseEventLocked):
		return MsgAdverseEventLock
	case errors.Is(err, ErrOutsideEditWindow):
		return MsgOutsideEditWindow
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	default:
		return "The contact log could not be deleted."
	}
}

// normalize trims surrounding whitespace from single-line inputs.
func (s *ContactLogService) normalize(in ContactLogInput) ContactLogInput {
	in.ContactDate = strings.TrimSpace(in.ContactDate)
	in.TypeOfContactID = strings.TrimSpace(in.TypeOfContactID)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.AdverseEventIdentified = domain.AdverseEvent(strings.TrimSpace(string(in.AdverseEventIdentified)))
	in.AEReceiptNo = strings.TrimSpace(in.AEReceiptNo)
	return in
}

// validate runs the submission rules and, unless skipped, checks that the
// type of contact is a first-level type_of_contact term.
func (s *ContactLogService) validate(ctx context.Context, in ContactLogInput, skip ...string) error {
	if s.Rules == nil {
		return errors.New("contact log service: validation rules not configured")
	}
	if fe := s.Rules.ValidateSubmission(in.Values(), skip...); fe != nil {
		return &ValidationError{Fields: fe}
	}
	for _, f := range skip {
		if f == validation.FieldTypeOfContact {
			return nil
		}
	}
	if _, err := repo.GetTopLevelTerm(ctx, s.DB, domain.VocabularyTypeOfContact, in.TypeOfContactID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &ValidationError{
				Fields: validation.FieldErrors{validation.FieldTypeOfContact: MsgIllegalChoice},
				Cause:  ErrUnknownTerm,
			}
		}
		return fmt.Errorf("lookup type of contact: %w", err)
	}
	return nil
}

// sanitize strips markup from v. The policy entity-encodes its output, so
// the result is unescaped again: stored values are plain text.
func (s *ContactLogService) sanitize(v string) string {
	if s.Sanitizer == nil || v == "" {
		return v
	}
	return html.UnescapeString(s.Sanitizer.Sanitize(v))
}

// notify queues msg for userID. Failures are logged, never returned: the
// operation itself has already succeeded.
func (s *ContactLogService) notify(ctx context.Context, userID, msg string) {
	if s.Flash == nil {
		return
	}
	if err := s.Flash.Push(ctx, userID, flash.Message{Level: flash.LevelStatus, Text: msg}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("flash push failed")
	}
}

// record counts the outcome of op.
func (s *ContactLogService) record(op string, err error) {
	observability.RecordContactLogOp(op, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrAdverseEventLocked):
		return observability.OutcomeAdverseEvent
	case errors.Is(err, ErrOutsideEditWindow):
		return observability.OutcomeOutsideEditWindow
	case errors.Is(err, ErrValidation):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeError
	}
}
