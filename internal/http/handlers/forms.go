// Contact log form descriptors.
//
// The add and edit pages are rendered by the client from a descriptor: the
// field list with current values and options, the available actions, the
// adverse event reporting note, and the breadcrumb trail.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/services"
	"github.com/tbourn/go-contactlog-backend/internal/validation"
)

// Route names used by breadcrumbs.
const (
	RouteContactList = "contact_log_list"
	RouteContactAdd  = "contact_add"
	RouteContactEdit = "contact_edit"
)

// FormID identifies the contact log form in descriptors.
const FormID = "contact_log_form"

// AEReportingNote is shown under the AE receipt number field.
const AEReportingNote = "To report adverse events, contact Drug Safety by phone, fax or email."

// Field widget types.
const (
	WidgetText     = "textfield"
	WidgetTextarea = "textarea"
	WidgetSelect   = "select"
)

// FormField describes one input of a form.
type FormField struct {
	Name      string                `json:"name" example:"contact_name"`
	Label     string                `json:"label" example:"Contact name"`
	Widget    string                `json:"widget" enums:"textfield,textarea,select"`
	Value     string                `json:"value"`
	Required  bool                  `json:"required,omitempty"`
	Disabled  bool                  `json:"disabled,omitempty"`
	MaxLength int                   `json:"max_length,omitempty"`
	Options   []services.TermOption `json:"options,omitempty"`
}

// FormAction is a button or link rendered below the fields.
type FormAction struct {
	Name  string `json:"name" enums:"submit,delete,cancel"`
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// Breadcrumb is one link of the navigation trail.
type Breadcrumb struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// FormDescriptor is the response of the add and edit form endpoints.
type FormDescriptor struct {
	FormID      string              `json:"form_id" example:"contact_log_form"`
	LogID       string              `json:"log_id,omitempty"`
	Fields      []FormField         `json:"fields"`
	Actions     []FormAction        `json:"actions"`
	Note        string              `json:"note"`
	Breadcrumbs []Breadcrumb        `json:"breadcrumbs"`
	State       *services.FormState `json:"state,omitempty"`
}

// BreadcrumbApplies reports whether route carries a contact breadcrumb trail.
func BreadcrumbApplies(route string) bool {
	return route == RouteContactAdd || route == RouteContactEdit
}

// BuildBreadcrumbs returns the trail for route. For the edit route the record
// id is read from segment 2 of path ("/contact/{id}"), relative to the API
// base. It returns nil for routes without a trail.
func BuildBreadcrumbs(route, path string) []Breadcrumb {
	if !BreadcrumbApplies(route) {
		return nil
	}
	links := []Breadcrumb{
		{Label: "Home", Href: "/"},
		{Label: "Contacts", Href: "/contacts"},
	}
	switch route {
	case RouteContactAdd:
		links = append(links, Breadcrumb{Label: "Add contact", Href: "/contacts/add"})
	case RouteContactEdit:
		var id string
		if segs := strings.Split(path, "/"); len(segs) > 2 {
			id = segs[2]
		}
		links = append(links, Breadcrumb{Label: "Contact details", Href: "/contact/" + id})
	}
	return links
}

// relPath strips the API base from the request path.
func (h *Handlers) relPath(c *gin.Context) string {
	p := c.Request.URL.Path
	if h.basePath != "" {
		p = strings.TrimPrefix(p, h.basePath)
	}
	return p
}

// typeOptions loads the type_of_contact select options.
func (h *Handlers) typeOptions(ctx context.Context) ([]services.TermOption, error) {
	if h.taxSvc == nil {
		return []services.TermOption{}, nil
	}
	return h.taxSvc.LookupTaxonomyOptions(ctx, domain.VocabularyTypeOfContact)
}

func adverseEventOptions() []services.TermOption {
	out := make([]services.TermOption, 0, len(domain.AdverseEventOptions))
	for _, a := range domain.AdverseEventOptions {
		out = append(out, services.TermOption{ID: string(a), Label: string(a)})
	}
	return out
}

// entryFields lists the user-editable fields with the given values.
func entryFields(values map[string]string, types []services.TermOption) []FormField {
	return []FormField{
		{Name: validation.FieldContactDate, Label: "Contact date", Widget: WidgetText, Value: values[validation.FieldContactDate], Required: true},
		{Name: validation.FieldTypeOfContact, Label: "Type of contact", Widget: WidgetSelect, Value: values[validation.FieldTypeOfContact], Required: true, Options: types},
		{Name: validation.FieldContactName, Label: "Contact name", Widget: WidgetText, Value: values[validation.FieldContactName], Required: true, MaxLength: validation.MaxTextLen},
		{Name: validation.FieldContactNote, Label: "Contact note", Widget: WidgetTextarea, Value: values[validation.FieldContactNote], Required: true},
		{Name: validation.FieldAdverseEvent, Label: "Adverse event identified", Widget: WidgetSelect, Value: values[validation.FieldAdverseEvent], Required: true, Options: adverseEventOptions()},
		{Name: validation.FieldAEReceiptNo, Label: "AE receipt no", Widget: WidgetText, Value: values[validation.FieldAEReceiptNo], MaxLength: validation.MaxTextLen},
	}
}

var cancelAction = FormAction{Name: "cancel", Label: "Cancel", Href: "/contacts"}

// AddContactLogForm godoc
// @ID          addContactLogForm
// @Summary     Add-form descriptor
// @Description Returns the fields, options, actions and breadcrumbs of the add contact log form.
// @Tags        ContactLogs
// @Produce     json
// @Success     200  {object} handlers.FormDescriptor
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts/add [get]
func (h *Handlers) AddContactLogForm(c *gin.Context) {
	types, err := h.typeOptions(c.Request.Context())
	if err != nil {
		failErr(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, FormDescriptor{
		FormID: FormID,
		Fields: entryFields(map[string]string{}, types),
		Actions: []FormAction{
			{Name: "submit", Label: "Add contact log"},
			cancelAction,
		},
		Note:        AEReportingNote,
		Breadcrumbs: BuildBreadcrumbs(RouteContactAdd, h.relPath(c)),
	})
}

// EditContactLogForm godoc
// @ID          editContactLogForm
// @Summary     Edit-form descriptor
// @Description Returns the edit form of a contact log. Fields other than the adverse event ones are disabled once the record has left the current month; the delete action is only listed while the record can be deleted.
// @Tags        ContactLogs
// @Produce     json
// @Param       X-User-ID  header  string  false "User ID (development header)" example(user123)
// @Param       log_id     path    string  true  "Contact log ID (UUID)"        format(uuid)
// @Success     200  {object} handlers.FormDescriptor
// @Failure     404  {object} handlers.ErrorResponse "Contact log not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contact/{log_id} [get]
func (h *Handlers) EditContactLogForm(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("log_id")

	rec, err := h.logSvc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, services.MsgNotFound)
			return
		}
		failErr(c, ErrCodeInternal, err)
		return
	}
	types, err := h.typeOptions(ctx)
	if err != nil {
		failErr(c, ErrCodeInternal, err)
		return
	}

	state := h.logSvc.EditState(rec, h.logSvc.Clock())

	author := rec.AuthorName
	if author == "" {
		author = rec.UserID
	}
	fields := []FormField{
		{Name: "created_date", Label: "Date created", Widget: WidgetText, Value: validation.FormatContactDate(rec.CreatedAt.In(h.logSvc.Location())), Disabled: true},
		{Name: "created_by", Label: "Created by", Widget: WidgetText, Value: author, Disabled: true},
	}
	entry := entryFields(services.ContactLogInput{
		ContactDate:            rec.ContactDate,
		TypeOfContactID:        rec.TypeOfContactID,
		ContactName:            rec.ContactName,
		ContactNote:            rec.ContactNote,
		AdverseEventIdentified: rec.AdverseEventIdentified,
		AEReceiptNo:            rec.AEReceiptNo,
	}.Values(), types)
	if state.FieldsDisabled {
		for i := range entry {
			switch entry[i].Name {
			case validation.FieldContactDate, validation.FieldTypeOfContact,
				validation.FieldContactName, validation.FieldContactNote:
				entry[i].Disabled = true
			}
		}
	}
	fields = append(fields, entry...)

	actions := []FormAction{{Name: "submit", Label: "Update contact log"}}
	if state.DeleteVisible {
		actions = append(actions, FormAction{Name: "delete", Label: "Delete contact log", Href: "/contact_log/" + rec.ID + "/delete"})
	}
	actions = append(actions, cancelAction)

	ok(c, http.StatusOK, FormDescriptor{
		FormID:      FormID,
		LogID:       rec.ID,
		Fields:      fields,
		Actions:     actions,
		Note:        AEReportingNote,
		Breadcrumbs: BuildBreadcrumbs(RouteContactEdit, h.relPath(c)),
		State:       &state,
	})
}
