// Package docs registers the OpenAPI document served at /swagger.
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
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"Bearer": []}],
    "paths": {
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue a bearer token",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "token"}, "401": {"description": "bad credentials", "schema": {"$ref": "#/definitions/Error"}}, "429": {"description": "too many attempts"}}
            }
        },
        "/categories": {
            "get": {"tags": ["assets"], "summary": "List categories", "responses": {"200": {"description": "OK"}}}
        },
        "/assets": {
            "get": {
                "tags": ["assets"],
                "summary": "Search assets",
                "parameters": [
                    {"in": "query", "name": "name", "type": "string"},
                    {"in": "query", "name": "category_id", "type": "integer"},
                    {"in": "query", "name": "availability", "type": "string", "enum": ["Available", "Borrowed", "UnderRepair"]},
                    {"in": "query", "name": "include_removed", "type": "boolean"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {"tags": ["assets"], "summary": "Register an asset (admin)", "responses": {"201": {"description": "Created"}, "400": {"description": "validation", "schema": {"$ref": "#/definitions/Error"}}}}
        },
        "/assets/{asset_id}": {
            "get": {"tags": ["assets"], "summary": "Get an asset", "parameters": [{"in": "path", "name": "asset_id", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found", "schema": {"$ref": "#/definitions/Error"}}}},
            "patch": {"tags": ["assets"], "summary": "Update an asset (admin)", "parameters": [{"in": "path", "name": "asset_id", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "409": {"description": "asset on loan", "schema": {"$ref": "#/definitions/Error"}}}}
        },
        "/assets/{asset_id}/disposals": {
            "post": {"tags": ["assets"], "summary": "Dispose an asset (admin)", "parameters": [{"in": "path", "name": "asset_id", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}, "409": {"description": "asset on loan or already removed", "schema": {"$ref": "#/definitions/Error"}}}}
        },
        "/disposals": {
            "get": {"tags": ["assets"], "summary": "List disposals", "responses": {"200": {"description": "OK"}}}
        },
        "/disposals/{disposal_ulid}": {
            "get": {"tags": ["assets"], "summary": "Get a disposal", "parameters": [{"in": "path", "name": "disposal_ulid", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}
        },
        "/borrowings": {
            "get": {
                "tags": ["borrowings"],
                "summary": "List borrowings",
                "parameters": [
                    {"in": "query", "name": "q", "type": "string"},
                    {"in": "query", "name": "state", "type": "string", "enum": ["Pending", "Approved", "Rejected", "Returned"]},
                    {"in": "query", "name": "borrower_id", "type": "string"},
                    {"in": "query", "name": "asset_id", "type": "integer"},
                    {"in": "query", "name": "from", "type": "string"},
                    {"in": "query", "name": "to", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["borrowings"],
                "summary": "Request a borrowing",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBorrowingRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "asset not available", "schema": {"$ref": "#/definitions/Error"}}}
            }
        },
        "/borrowings/{key}": {
            "get": {"tags": ["borrowings"], "summary": "Get a borrowing by id or ULID", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}
        },
        "/borrowings/{key}/approve": {
            "post": {"tags": ["borrowings"], "summary": "Approve (manager/admin)", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}, "409": {"description": "invalid state", "schema": {"$ref": "#/definitions/Error"}}}}
        },
        "/borrowings/{key}/reject": {
            "post": {"tags": ["borrowings"], "summary": "Reject (manager/admin)", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "forbidden"}, "409": {"description": "invalid state", "schema": {"$ref": "#/definitions/Error"}}}}
        },
        "/borrowings/{key}/return": {
            "get": {"tags": ["returns"], "summary": "Get the return of a borrowing", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}},
            "post": {
                "tags": ["returns"],
                "summary": "Confirm a return (staff/manager/admin)",
                "parameters": [
                    {"in": "path", "name": "key", "required": true, "type": "string"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmReturnRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "duplicate or invalid state", "schema": {"$ref": "#/definitions/Error"}}}
            }
        },
        "/borrowings/{key}/events": {
            "get": {"tags": ["borrowings"], "summary": "State transition history", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/returns/{key}": {
            "get": {"tags": ["returns"], "summary": "Get a return", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["returns"], "summary": "Correct a return once", "parameters": [{"in": "path", "name": "key", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "already corrected", "schema": {"$ref": "#/definitions/Error"}}}}
        },
        "/reports/returns": {
            "get": {
                "tags": ["reports"],
                "summary": "Return outcome summary",
                "parameters": [
                    {"in": "query", "name": "from", "type": "string"},
                    {"in": "query", "name": "to", "type": "string"},
                    {"in": "query", "name": "outcome", "type": "string", "enum": ["Sesuai", "Rusak", "Hilang"]}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/returns.csv": {
            "get": {"tags": ["reports"], "summary": "Return outcome CSV (UTF-8 BOM)", "produces": ["text/csv"], "responses": {"200": {"description": "OK"}}}
        },
        "/events/ws": {
            "get": {"tags": ["events"], "summary": "Borrowing event stream (websocket)", "responses": {"101": {"description": "Switching Protocols"}}}
        }
    },
    "definitions": {
        "Error": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string", "enum": ["VALIDATION", "CONFLICT", "INVALID_STATE", "FORBIDDEN", "NOT_FOUND", "DUPLICATE", "UNAUTHORIZED", "INTERNAL"]},
                        "message": {"type": "string"},
                        "entity": {"type": "string"},
                        "id": {"type": "string"},
                        "transition": {"type": "string"},
                        "state": {"type": "string"}
                    }
                }
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["id", "password"],
            "properties": {"id": {"type": "string"}, "password": {"type": "string"}}
        },
        "CreateBorrowingRequest": {
            "type": "object",
            "required": ["asset_id", "borrow_date"],
            "properties": {
                "asset_id": {"type": "integer"},
                "borrow_date": {"type": "string", "example": "2025-04-01"},
                "requested_return_date": {"type": "string", "example": "2025-04-03"},
                "note": {"type": "string"}
            }
        },
        "ConfirmReturnRequest": {
            "type": "object",
            "required": ["condition"],
            "properties": {
                "condition": {"type": "string", "enum": ["Baik", "Rusak Ringan", "Rusak Berat", "Rusak", "Perbaikan", "Hilang"]},
                "note": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "2.0",
	Host:             "",
	BasePath:         "/api/v2",
	Schemes:          []string{"https"},
	Title:            "PINJAM API",
	Description:      "Asset lending: registry, borrowing approvals and returns.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
