package handlers

// Error codes returned in ErrorResponse.Code. Clients branch on these, so
// values never change once released.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	ErrCodeValidation   = "validation_failed"
	ErrCodeCreateFailed = "create_failed"
	ErrCodeUpdateFailed = "update_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeExportFailed = "export_failed"
)
