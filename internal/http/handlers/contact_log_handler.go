// Contact log HTTP handlers.
//
// This file exposes the contact log endpoints:
//   - GET    /contacts                      (list, paginated, ETag support)
//   - GET    /contacts/add                  (add-form descriptor)
//   - POST   /contacts/add                  (create, Idempotency-Key aware)
//   - GET    /contact/{log_id}              (edit-form descriptor)
//   - POST   /contact/{log_id}              (edit submit)
//   - POST   /contact_log/{log_id}/delete   (AJAX soft delete)
//
// Handlers are transport-thin: they extract the submitted values, call the
// application services, and translate results into HTTP responses.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/tbourn/go-contactlog-backend/internal/auth"
	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/flash"
	"github.com/tbourn/go-contactlog-backend/internal/http/middleware"
	"github.com/tbourn/go-contactlog-backend/internal/repo"
	"github.com/tbourn/go-contactlog-backend/internal/services"
	"github.com/tbourn/go-contactlog-backend/internal/utils"
	"github.com/tbourn/go-contactlog-backend/internal/validation"
)

//
// Service contracts (context-aware)
//

// ContactLogService defines the contact log lifecycle consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ContactLogService interface {
	// Create validates and stores a new contact log authored by actor.
	Create(ctx context.Context, actor auth.Identity, in services.ContactLogInput) (*domain.ContactLog, error)
	// Get returns a non-deleted contact log.
	Get(ctx context.Context, id string) (*domain.ContactLog, error)
	// Resolve returns a contact log whether or not it was soft-deleted.
	Resolve(ctx context.Context, id string) (*domain.ContactLog, error)
	// Update applies an edit submission.
	Update(ctx context.Context, actor auth.Identity, id string, in services.ContactLogInput) (*domain.ContactLog, error)
	// SoftDelete marks rec deleted by actingUser.
	SoftDelete(ctx context.Context, rec *domain.ContactLog, actingUser string) error
	// ListPage returns a page of non-deleted contact logs and the total count.
	ListPage(ctx context.Context, f repo.ContactLogFilter, page, pageSize int) ([]domain.ContactLog, int64, error)
	// EditState evaluates the edit form flags of c at now.
	EditState(c *domain.ContactLog, now time.Time) services.FormState
	// Clock returns the service's notion of now.
	Clock() time.Time
	// Location is the zone dates are displayed in.
	Location() *time.Location
}

// TaxonomyService provides select options for taxonomy-backed fields.
type TaxonomyService interface {
	LookupTaxonomyOptions(ctx context.Context, vocabulary string) ([]services.TermOption, error)
}

// ReportService renders the contact log export.
type ReportService interface {
	ExportXLSX(ctx context.Context) (*bytes.Buffer, error)
}

//
// Handler wiring
//

// Options tunes transport-level behavior of Handlers.
type Options struct {
	// BasePath is the prefix the API group is mounted under (e.g. "/api/v1").
	// Breadcrumbs read path segments relative to it.
	BasePath string
	// IdempotencyTTL is how long a create result is replayable. Defaults to 24h.
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints of the contact log service. It depends
// on abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	logSvc    ContactLogService
	taxSvc    TaxonomyService
	reportSvc ReportService
	flash     flash.Store

	basePath string
	idemTTL  time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
// A nil store disables message delivery on the list endpoint.
func New(logSvc ContactLogService, taxSvc TaxonomyService, reportSvc ReportService, store flash.Store, opts Options) *Handlers {
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	base := strings.TrimRight(opts.BasePath, "/")
	return &Handlers{
		logSvc:    logSvc,
		taxSvc:    taxSvc,
		reportSvc: reportSvc,
		flash:     store,
		basePath:  base,
		idemTTL:   ttl,
	}
}

// IdempotencyScopeCreate is the idempotency scope of contact log creation.
const IdempotencyScopeCreate = "contact_log.create"

//
// DTOs
//

// ContactLogRequest is the JSON payload of the add and edit forms. Every
// field accepts a plain string or the wrapped [{"value": "..."}] shape.
type ContactLogRequest struct {
	ContactDate            validation.FieldValue `json:"contact_date" swaggertype:"string" example:"14/03/2025"`
	TypeOfContact          validation.FieldValue `json:"type_of_contact" swaggertype:"string" example:"6f1c1c8e-8d3e-4d55-9f0e-4c1b5f0e2a11"`
	ContactName            validation.FieldValue `json:"contact_name" swaggertype:"string" example:"Jane Citizen"`
	ContactNote            validation.FieldValue `json:"contact_note" swaggertype:"string" example:"Called to confirm the next appointment."`
	AdverseEventIdentified validation.FieldValue `json:"adverse_event_identified" swaggertype:"string" enums:"Yes,No" example:"No"`
	AEReceiptNo            validation.FieldValue `json:"ae_receipt_no" swaggertype:"string" example:""`
}

func (r ContactLogRequest) input() services.ContactLogInput {
	return services.ContactLogInput{
		ContactDate:            r.ContactDate.String(),
		TypeOfContactID:        r.TypeOfContact.String(),
		ContactName:            r.ContactName.String(),
		ContactNote:            r.ContactNote.String(),
		AdverseEventIdentified: domain.AdverseEvent(r.AdverseEventIdentified.String()),
		AEReceiptNo:            r.AEReceiptNo.String(),
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListContactLogsResponse wraps a page of contact logs, pagination
// information and the notifications queued for the current user.
type ListContactLogsResponse struct {
	ContactLogs []domain.ContactLog `json:"contact_logs"`
	Pagination  Pagination          `json:"pagination"`
	Messages    []flash.Message     `json:"messages"`
}

// ContactLogResponse is returned after a successful create or edit.
type ContactLogResponse struct {
	ContactLog *domain.ContactLog `json:"contact_log"`
	Message    string             `json:"message" example:"Contact log Added successfully."`
}

// DeleteResponse is the body of the AJAX delete endpoint.
type DeleteResponse struct {
	Status  string `json:"status" enums:"ok,error" example:"error"`
	Message string `json:"message,omitempty" example:"The AE identified is yes, it can not be deleted."`
}

//
// Helpers
//

// clampPagination bounds the page and page_size query params.
func clampPagination(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

// bindSubmission extracts a contact log submission from a JSON body or from
// url-encoded / multipart form fields.
func bindSubmission(c *gin.Context) (services.ContactLogInput, error) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		if c.ContentType() == binding.MIMEMultipartPOSTForm {
			if err := c.Request.ParseMultipartForm(1 << 20); err != nil {
				return services.ContactLogInput{}, err
			}
		} else if err := c.Request.ParseForm(); err != nil {
			return services.ContactLogInput{}, err
		}
		form := c.Request.PostForm
		return services.ContactLogInput{
			ContactDate:            validation.FormValue(form, validation.FieldContactDate),
			TypeOfContactID:        validation.FormValue(form, validation.FieldTypeOfContact),
			ContactName:            validation.FormValue(form, validation.FieldContactName),
			ContactNote:            validation.FormValue(form, validation.FieldContactNote),
			AdverseEventIdentified: domain.AdverseEvent(validation.FormValue(form, validation.FieldAdverseEvent)),
			AEReceiptNo:            validation.FormValue(form, validation.FieldAEReceiptNo),
		}, nil
	default:
		var req ContactLogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return services.ContactLogInput{}, err
		}
		return req.input(), nil
	}
}

// writeServiceError maps service sentinels onto the error envelope.
func writeServiceError(c *gin.Context, err error, failCode string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		failFields(c, ve.Fields)
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, services.MsgNotFound)
	default:
		failErr(c, failCode, err)
	}
}

// dbOf returns the database behind the concrete service, if any. It backs
// best-effort features (ETag, idempotency) that need direct repo access.
func (h *Handlers) dbOf() *gorm.DB {
	if svc, ok := h.logSvc.(*services.ContactLogService); ok {
		return svc.DB
	}
	return nil
}

// listETag derives a weak validator from the aggregate state of the filtered
// table and the requested page.
func listETag(f repo.ContactLogFilter, page, pageSize int, count int64, maxTS *time.Time) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d", f.Query, f.TypeOfContactID, page, pageSize)
	return fmt.Sprintf(`W/"contact_logs:%d:%d:%08x"`, count, ts, h.Sum32())
}

//
// Handlers
//

// ListContactLogs godoc
// @ID          listContactLogs
// @Summary     List contact logs (paginated)
// @Description Returns a page of non-deleted contact logs, newest first, with the notifications queued for the current user. Supports weak ETag via If-None-Match and may return 304.
// @Tags        ContactLogs
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (development header)" example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"   example(W/\"contact_logs:3:1710000000:0a1b2c3d\")
// @Param       q              query   string  false "Substring of contact name or note"
// @Param       type           query   string  false "Type of contact term ID"
// @Param       page           query   int     false "Page number"                   minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"                minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListContactLogsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts [get]
func (h *Handlers) ListContactLogs(c *gin.Context) {
	ctx := c.Request.Context()
	uid := auth.FromGin(c).UserID
	pg := clampPagination(c)
	f := repo.ContactLogFilter{
		Query:           strings.TrimSpace(c.Query("q")),
		TypeOfContactID: strings.TrimSpace(c.Query("type")),
	}

	// ETag pre-check (best effort).
	if db := h.dbOf(); db != nil {
		if count, maxTS, err := repo.ContactLogsStats(ctx, db, f); err == nil {
			etag := listETag(f, pg.Number, pg.Size, count, maxTS)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.logSvc.ListPage(ctx, f, pg.Number, pg.Size)
	if err != nil {
		failErr(c, ErrCodeListFailed, err)
		return
	}

	msgs := []flash.Message{}
	if h.flash != nil {
		drained, err := h.flash.Drain(ctx, uid)
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("flash drain failed")
		} else if len(drained) > 0 {
			msgs = drained
		}
	}

	totalPages := pg.TotalPages(total)
	ok(c, http.StatusOK, ListContactLogsResponse{
		ContactLogs: items,
		Pagination: Pagination{
			Page:       pg.Number,
			PageSize:   pg.Size,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    pg.Number < totalPages,
		},
		Messages: msgs,
	})
}

// CreateContactLog godoc
// @ID          createContactLog
// @Summary     Add a contact log
// @Description Validates and stores a new contact log for the current user. Accepts JSON or form fields. Supports idempotency via the Idempotency-Key header (same key, same result).
// @Tags        ContactLogs
// @Accept      json,x-www-form-urlencoded
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (development header)" example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)" example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ContactLogRequest  true  "Contact log fields"
//
// @Success     201  {object} handlers.ContactLogResponse
// @Success     200  {object} handlers.ContactLogResponse "Replayed result"
// @Header      200  {string} Idempotency-Replayed "true when the response is a replay"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     422  {object} handlers.ErrorResponse "Validation failed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts/add [post]
func (h *Handlers) CreateContactLog(c *gin.Context) {
	ctx := c.Request.Context()
	actor := auth.FromGin(c)
	db := h.dbOf()

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, actor.UserID, IdempotencyScopeCreate, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err := h.logSvc.Resolve(ctx, rec.ResourceID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, ContactLogResponse{ContactLog: prev, Message: services.MsgCreated})
				return
			}
		}
	}

	in, err := bindSubmission(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	created, err := h.logSvc.Create(ctx, actor, in)
	if err != nil {
		writeServiceError(c, err, ErrCodeCreateFailed)
		return
	}

	// Idempotency (store path), best effort.
	if idemKey != "" && db != nil {
		if _, err := repo.CreateIdempotency(ctx, db, actor.UserID, IdempotencyScopeCreate, idemKey, created.ID, http.StatusCreated, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency store failed")
		}
	}

	ok(c, http.StatusCreated, ContactLogResponse{ContactLog: created, Message: services.MsgCreated})
}

// UpdateContactLog godoc
// @ID          updateContactLog
// @Summary     Edit a contact log
// @Description Applies an edit submission. Once the record has left the current month only the adverse event fields change.
// @Tags        ContactLogs
// @Accept      json,x-www-form-urlencoded
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (development header)" example(user123)
// @Param       log_id     path    string  true  "Contact log ID (UUID)"        format(uuid)
// @Param       body       body    handlers.ContactLogRequest  true  "Contact log fields"
//
// @Success     200  {object} handlers.ContactLogResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Contact log not found"
// @Failure     422  {object} handlers.ErrorResponse "Validation failed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contact/{log_id} [post]
func (h *Handlers) UpdateContactLog(c *gin.Context) {
	in, err := bindSubmission(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	updated, err := h.logSvc.Update(c.Request.Context(), auth.FromGin(c), c.Param("log_id"), in)
	if err != nil {
		writeServiceError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, ContactLogResponse{ContactLog: updated, Message: services.MsgUpdated})
}

// DeleteContactLog godoc
// @ID          deleteContactLog
// @Summary     Soft delete a contact log (AJAX)
// @Description Marks the contact log deleted. Unknown IDs return 404; every other outcome is 200 with status "ok" or status "error" and the reason.
// @Tags        ContactLogs
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (development header)" example(user123)
// @Param       log_id     path    string  true  "Contact log ID (UUID)"        format(uuid)
//
// @Success     200  {object} handlers.DeleteResponse
// @Failure     404  {object} handlers.ErrorResponse "Contact log not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contact_log/{log_id}/delete [post]
func (h *Handlers) DeleteContactLog(c *gin.Context) {
	ctx := c.Request.Context()

	rec, err := h.logSvc.Resolve(ctx, c.Param("log_id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, services.MsgNotFound)
			return
		}
		failErr(c, ErrCodeInternal, err)
		return
	}

	if err := h.logSvc.SoftDelete(ctx, rec, auth.FromGin(c).UserID); err != nil {
		ok(c, http.StatusOK, DeleteResponse{Status: "error", Message: services.DeleteMessage(err)})
		return
	}
	ok(c, http.StatusOK, DeleteResponse{Status: "ok"})
}
