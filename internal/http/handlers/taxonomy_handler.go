package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contactlog-backend/internal/services"
)

// TaxonomyOptionsResponse lists the options of one vocabulary.
type TaxonomyOptionsResponse struct {
	Vocabulary string                `json:"vocabulary" example:"type_of_contact"`
	Options    []services.TermOption `json:"options"`
}

// ListTaxonomyOptions godoc
// @ID          listTaxonomyOptions
// @Summary     Vocabulary select options
// @Description Returns the first-level, non-deleted terms of a vocabulary ordered by weight then name. An unknown vocabulary yields an empty list.
// @Tags        Taxonomy
// @Produce     json
// @Param       vocabulary  path  string  true  "Vocabulary machine name"  example(type_of_contact)
// @Success     200  {object} handlers.TaxonomyOptionsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /taxonomy/{vocabulary}/options [get]
func (h *Handlers) ListTaxonomyOptions(c *gin.Context) {
	vocab := c.Param("vocabulary")
	opts, err := h.taxSvc.LookupTaxonomyOptions(c.Request.Context(), vocab)
	if err != nil {
		if errors.Is(err, services.ErrUnknownVocabulary) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		failErr(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, TaxonomyOptionsResponse{Vocabulary: vocab, Options: opts})
}
