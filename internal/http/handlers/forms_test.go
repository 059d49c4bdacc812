package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/services"
	"github.com/tbourn/go-contactlog-backend/internal/validation"
)

func fieldByName(fields []FormField, name string) (FormField, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return FormField{}, false
}

func actionNames(actions []FormAction) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Name)
	}
	return out
}

func TestBuildBreadcrumbs(t *testing.T) {
	assert.True(t, BreadcrumbApplies(RouteContactAdd))
	assert.True(t, BreadcrumbApplies(RouteContactEdit))
	assert.False(t, BreadcrumbApplies(RouteContactList))
	assert.Nil(t, BuildBreadcrumbs(RouteContactList, "/contacts"))

	add := BuildBreadcrumbs(RouteContactAdd, "/contacts/add")
	assert.Equal(t, []Breadcrumb{
		{Label: "Home", Href: "/"},
		{Label: "Contacts", Href: "/contacts"},
		{Label: "Add contact", Href: "/contacts/add"},
	}, add)

	edit := BuildBreadcrumbs(RouteContactEdit, "/contact/abc-123")
	require.Len(t, edit, 3)
	assert.Equal(t, Breadcrumb{Label: "Contact details", Href: "/contact/abc-123"}, edit[2])

	short := BuildBreadcrumbs(RouteContactEdit, "/contact")
	assert.Equal(t, "/contact/", short[2].Href)
}

func TestAddContactLogForm_Descriptor(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/contacts/add", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var d FormDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, FormID, d.FormID)
	assert.Empty(t, d.LogID)
	assert.Nil(t, d.State)
	assert.Equal(t, AEReportingNote, d.Note)
	assert.Equal(t, []string{"submit", "cancel"}, actionNames(d.Actions))
	assert.Equal(t, "Add contact log", d.Actions[0].Label)
	assert.Equal(t, "/contacts", d.Actions[1].Href)
	require.Len(t, d.Breadcrumbs, 3)
	assert.Equal(t, "Add contact", d.Breadcrumbs[2].Label)

	typ, found := fieldByName(d.Fields, validation.FieldTypeOfContact)
	require.True(t, found)
	require.Len(t, typ.Options, len(services.DefaultContactTypes))
	assert.Equal(t, "Phone", typ.Options[0].Label)

	ae, _ := fieldByName(d.Fields, validation.FieldAdverseEvent)
	assert.Equal(t, []services.TermOption{{ID: "Yes", Label: "Yes"}, {ID: "No", Label: "No"}}, ae.Options)

	name, _ := fieldByName(d.Fields, validation.FieldContactName)
	assert.True(t, name.Required)
	assert.Equal(t, validation.MaxTextLen, name.MaxLength)

	receipt, _ := fieldByName(d.Fields, validation.FieldAEReceiptNo)
	assert.False(t, receipt.Required)
}

func TestEditContactLogForm_CurrentRecord(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(t, handlerNow, "12/03/2025", domain.AdverseEventNo)

	w := f.do(t, http.MethodGet, "/api/v1/contact/"+rec.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var d FormDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, rec.ID, d.LogID)
	require.NotNil(t, d.State)
	assert.True(t, d.State.DeleteVisible)
	assert.False(t, d.State.FieldsDisabled)

	assert.Equal(t, []string{"submit", "delete", "cancel"}, actionNames(d.Actions))
	assert.Equal(t, "/contact_log/"+rec.ID+"/delete", d.Actions[1].Href)
	assert.Equal(t, "Update contact log", d.Actions[0].Label)

	created, _ := fieldByName(d.Fields, "created_date")
	assert.Equal(t, "20/03/2025", created.Value)
	assert.True(t, created.Disabled)
	by, _ := fieldByName(d.Fields, "created_by")
	assert.Equal(t, "Alice Author", by.Value)

	cd, _ := fieldByName(d.Fields, validation.FieldContactDate)
	assert.Equal(t, "12/03/2025", cd.Value)
	assert.False(t, cd.Disabled)

	require.Len(t, d.Breadcrumbs, 3)
	assert.Equal(t, "/contact/"+rec.ID, d.Breadcrumbs[2].Href)
}

func TestEditContactLogForm_LockedAndAdverseEvent(t *testing.T) {
	f := newFixture(t)
	old := f.seed(t, handlerNow.AddDate(0, -1, 0), "20/02/2025", domain.AdverseEventNo)
	withAE := f.seed(t, handlerNow, "12/03/2025", domain.AdverseEventYes)

	w := f.do(t, http.MethodGet, "/api/v1/contact/"+old.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d FormDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.True(t, d.State.FieldsDisabled)
	assert.Equal(t, []string{"submit", "cancel"}, actionNames(d.Actions))
	for _, name := range []string{validation.FieldContactDate, validation.FieldTypeOfContact, validation.FieldContactName, validation.FieldContactNote} {
		fld, _ := fieldByName(d.Fields, name)
		assert.True(t, fld.Disabled, name)
	}
	for _, name := range []string{validation.FieldAdverseEvent, validation.FieldAEReceiptNo} {
		fld, _ := fieldByName(d.Fields, name)
		assert.False(t, fld.Disabled, name)
	}

	w = f.do(t, http.MethodGet, "/api/v1/contact/"+withAE.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	d = FormDescriptor{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.False(t, d.State.DeleteVisible)
	assert.False(t, d.State.FieldsDisabled)
	assert.NotContains(t, actionNames(d.Actions), "delete")
}

func TestEditContactLogForm_MissingOrDeleted_404(t *testing.T) {
	f := newFixture(t)
	rec := f.seed(t, handlerNow, "12/03/2025", domain.AdverseEventNo)
	require.NoError(t, f.db.Model(&domain.ContactLog{}).Where("id = ?", rec.ID).
		Update("deleted_at", handlerNow).Error)

	for _, id := range []string{rec.ID, uuid.NewString()} {
		w := f.do(t, http.MethodGet, "/api/v1/contact/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		var er ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
		assert.Equal(t, ErrCodeNotFound, er.Code)
		assert.Equal(t, services.MsgNotFound, er.Message)
	}
}

// ---------- Taxonomy ----------

type stubTaxSvc struct{ err error }

func (s stubTaxSvc) LookupTaxonomyOptions(context.Context, string) ([]services.TermOption, error) {
	return nil, s.err
}

func TestListTaxonomyOptions(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/taxonomy/type_of_contact/options", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp TaxonomyOptionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.VocabularyTypeOfContact, resp.Vocabulary)
	require.Len(t, resp.Options, len(services.DefaultContactTypes))

	w = f.do(t, http.MethodGet, "/api/v1/taxonomy/unknown/options", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"options":[]`)

	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		err  error
		want int
	}{
		{services.ErrUnknownVocabulary, http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	} {
		h := New(stubLogSvc{}, stubTaxSvc{err: tc.err}, nil, nil, Options{})
		r := gin.New()
		r.GET("/taxonomy/:vocabulary/options", h.ListTaxonomyOptions)
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/taxonomy/x/options", nil))
		assert.Equal(t, tc.want, rw.Code)
	}
}

// ---------- Report ----------

type stubReportSvc struct{}

func (stubReportSvc) ExportXLSX(context.Context) (*bytes.Buffer, error) {
	return nil, errors.New("disk full")
}

func TestExportReport(t *testing.T) {
	f := newFixture(t)
	f.seed(t, handlerNow, "12/03/2025", domain.AdverseEventNo)
	gone := f.seed(t, handlerNow, "13/03/2025", domain.AdverseEventNo)
	w := f.do(t, http.MethodPost, "/api/v1/contact_log/"+gone.ID+"/delete", nil, nil)
	require.Contains(t, w.Body.String(), `"status":"ok"`)

	w = f.do(t, http.MethodGet, "/api/v1/contacts/report.xlsx", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MIMEXLSX, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="contact-logs-20250320.xlsx"`, w.Header().Get("Content-Disposition"))

	x, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer x.Close()
	rows, err := x.GetRows(services.ReportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "deleted rows are exported")

	h := New(stubLogSvc{}, nil, stubReportSvc{}, nil, Options{})
	r := gin.New()
	r.GET("/report.xlsx", h.ExportReport)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/report.xlsx", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.True(t, strings.Contains(rw.Body.String(), ErrCodeExportFailed))
}
