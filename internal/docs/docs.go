// Package docs registers the OpenAPI document served at /swagger/*any.
//
// Regenerate with: swag init -g internal/http/router.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/contacts": {
            "get": {
                "description": "Returns a page of non-deleted contact logs, newest first, with the notifications queued for the current user. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["ContactLogs"],
                "summary": "List contact logs (paginated)",
                "operationId": "listContactLogs",
                "parameters": [
                    {"type": "string", "description": "User ID (development header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Substring of contact name or note", "name": "q", "in": "query"},
                    {"type": "string", "description": "Type of contact term ID", "name": "type", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListContactLogsResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contacts/add": {
            "get": {
                "description": "Returns the fields, options, actions and breadcrumbs of the add contact log form.",
                "produces": ["application/json"],
                "tags": ["ContactLogs"],
                "summary": "Add-form descriptor",
                "operationId": "addContactLogForm",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.FormDescriptor"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Validates and stores a new contact log for the current user. Accepts JSON or form fields. Supports idempotency via the Idempotency-Key header (same key, same result).",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["ContactLogs"],
                "summary": "Add a contact log",
                "operationId": "createContactLog",
                "parameters": [
                    {"type": "string", "description": "User ID (development header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Idempotency key for safe retries (UUID recommended)", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Contact log fields", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ContactLogRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replayed result", "schema": {"$ref": "#/definitions/handlers.ContactLogResponse"}, "headers": {"Idempotency-Replayed": {"type": "string", "description": "true when the response is a replay"}}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.ContactLogResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contacts/report.xlsx": {
            "get": {
                "description": "Downloads every contact log, soft-deleted ones included, as an xlsx workbook.",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Reports"],
                "summary": "Export contact logs",
                "operationId": "exportContactLogReport",
                "responses": {
                    "200": {"description": "Workbook", "schema": {"type": "file"}, "headers": {"Content-Disposition": {"type": "string", "description": "attachment; filename=contact-logs-YYYYMMDD.xlsx"}}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contact/{log_id}": {
            "get": {
                "description": "Returns the edit form of a contact log. Fields other than the adverse event ones are disabled once the record has left the current month; the delete action is only listed while the record can be deleted.",
                "produces": ["application/json"],
                "tags": ["ContactLogs"],
                "summary": "Edit-form descriptor",
                "operationId": "editContactLogForm",
                "parameters": [
                    {"type": "string", "description": "User ID (development header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Contact log ID (UUID)", "name": "log_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.FormDescriptor"}},
                    "404": {"description": "Contact log not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Applies an edit submission. Once the record has left the current month only the adverse event fields change.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["ContactLogs"],
                "summary": "Edit a contact log",
                "operationId": "updateContactLog",
                "parameters": [
                    {"type": "string", "description": "User ID (development header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Contact log ID (UUID)", "name": "log_id", "in": "path", "required": true},
                    {"description": "Contact log fields", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ContactLogRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ContactLogResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Contact log not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contact_log/{log_id}/delete": {
            "post": {
                "description": "Marks the contact log deleted. Unknown IDs return 404; every other outcome is 200 with status \"ok\" or status \"error\" and the reason.",
                "produces": ["application/json"],
                "tags": ["ContactLogs"],
                "summary": "Soft delete a contact log (AJAX)",
                "operationId": "deleteContactLog",
                "parameters": [
                    {"type": "string", "description": "User ID (development header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Contact log ID (UUID)", "name": "log_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.DeleteResponse"}},
                    "404": {"description": "Contact log not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/taxonomy/{vocabulary}/options": {
            "get": {
                "description": "Returns the first-level, non-deleted terms of a vocabulary ordered by weight then name. An unknown vocabulary yields an empty list.",
                "produces": ["application/json"],
                "tags": ["Taxonomy"],
                "summary": "Vocabulary select options",
                "operationId": "listTaxonomyOptions",
                "parameters": [
                    {"type": "string", "description": "Vocabulary machine name", "name": "vocabulary", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TaxonomyOptionsResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ContactLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "author_name": {"type": "string"},
                "contact_date": {"type": "string", "example": "14/03/2025"},
                "type_of_contact_id": {"type": "string"},
                "type_of_contact": {"$ref": "#/definitions/domain.TaxonomyTerm"},
                "contact_name": {"type": "string"},
                "contact_note": {"type": "string"},
                "adverse_event_identified": {"type": "string", "enum": ["Yes", "No"]},
                "ae_receipt_no": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.TaxonomyTerm": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "vocabulary": {"type": "string"},
                "parent_id": {"type": "string"},
                "name": {"type": "string"},
                "weight": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "flash.Message": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["status", "error"]},
                "message": {"type": "string"}
            }
        },
        "services.FormState": {
            "type": "object",
            "properties": {
                "delete_visible": {"type": "boolean"},
                "fields_disabled": {"type": "boolean"}
            }
        },
        "services.TermOption": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"}
            }
        },
        "handlers.Breadcrumb": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "href": {"type": "string"}
            }
        },
        "handlers.ContactLogRequest": {
            "type": "object",
            "properties": {
                "contact_date": {"type": "string", "example": "14/03/2025"},
                "type_of_contact": {"type": "string", "example": "6f1c1c8e-8d3e-4d55-9f0e-4c1b5f0e2a11"},
                "contact_name": {"type": "string", "example": "Jane Citizen"},
                "contact_note": {"type": "string", "example": "Called to confirm the next appointment."},
                "adverse_event_identified": {"type": "string", "enum": ["Yes", "No"], "example": "No"},
                "ae_receipt_no": {"type": "string", "example": ""}
            }
        },
        "handlers.ContactLogResponse": {
            "type": "object",
            "properties": {
                "contact_log": {"$ref": "#/definitions/domain.ContactLog"},
                "message": {"type": "string", "example": "Contact log Added successfully."}
            }
        },
        "handlers.DeleteResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ok", "error"], "example": "error"},
                "message": {"type": "string", "example": "The AE identified is yes, it can not be deleted."}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "Page not found."},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handlers.FormAction": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "enum": ["submit", "delete", "cancel"]},
                "label": {"type": "string"},
                "href": {"type": "string"}
            }
        },
        "handlers.FormDescriptor": {
            "type": "object",
            "properties": {
                "form_id": {"type": "string", "example": "contact_log_form"},
                "log_id": {"type": "string"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/handlers.FormField"}},
                "actions": {"type": "array", "items": {"$ref": "#/definitions/handlers.FormAction"}},
                "note": {"type": "string"},
                "breadcrumbs": {"type": "array", "items": {"$ref": "#/definitions/handlers.Breadcrumb"}},
                "state": {"$ref": "#/definitions/services.FormState"}
            }
        },
        "handlers.FormField": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "contact_name"},
                "label": {"type": "string", "example": "Contact name"},
                "widget": {"type": "string", "enum": ["textfield", "textarea", "select"]},
                "value": {"type": "string"},
                "required": {"type": "boolean"},
                "disabled": {"type": "boolean"},
                "max_length": {"type": "integer"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/services.TermOption"}}
            }
        },
        "handlers.ListContactLogsResponse": {
            "type": "object",
            "properties": {
                "contact_logs": {"type": "array", "items": {"$ref": "#/definitions/domain.ContactLog"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/flash.Message"}}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.TaxonomyOptionsResponse": {
            "type": "object",
            "properties": {
                "vocabulary": {"type": "string", "example": "type_of_contact"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/services.TermOption"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Contact Log API",
	Description:      "Record, edit, soft-delete and export contact logs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
