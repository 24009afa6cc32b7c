package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ALEKS Coins API",
        "description": "Gamification portal backend: ALEKS progress qualification, coin balances and redemptions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Admin portal login"},
        {"name": "Periods", "description": "Exam period configuration"},
        {"name": "Progress", "description": "Uploads and day qualification"},
        {"name": "Overrides", "description": "Per-day qualification corrections"},
        {"name": "Adjustments", "description": "Manual coin corrections"},
        {"name": "Balances", "description": "Coin balances and leaderboard"},
        {"name": "Requests", "description": "Student requests and redemptions"},
        {"name": "Exports", "description": "Scoreboard exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid portal password"}
                }
            }
        },
        "/progress/{studentId}": {
            "get": {
                "tags": ["Progress"],
                "summary": "Get a student's progress for a period and section",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "section", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No progress recorded"}
                }
            }
        },
        "/balance/{studentId}": {
            "get": {
                "tags": ["Balances"],
                "summary": "Get a student's coin balance",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Adjustment store unreachable"}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["Balances"],
                "summary": "Get the coin leaderboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a student request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/periods": {
            "get": {
                "tags": ["Periods"],
                "summary": "List periods",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Periods"],
                "summary": "Create a period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePeriodRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Period key already exists"}
                }
            }
        },
        "/admin/periods/{key}": {
            "get": {
                "tags": ["Periods"],
                "summary": "Get one period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Period not configured"}
                }
            },
            "put": {
                "tags": ["Periods"],
                "summary": "Update a period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePeriodRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Periods"],
                "summary": "Delete a period and its records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/admin/periods/{key}/sections/{sectionId}/records": {
            "get": {
                "tags": ["Progress"],
                "summary": "List a section's progress records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/uploads": {
            "post": {
                "tags": ["Progress"],
                "summary": "Merge a progress upload",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UploadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Period not configured"}
                }
            }
        },
        "/admin/overrides": {
            "put": {
                "tags": ["Overrides"],
                "summary": "Create or replace an override",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetOverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/overrides/{studentId}": {
            "get": {
                "tags": ["Overrides"],
                "summary": "List a student's overrides",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Overrides"],
                "summary": "Delete an override by id",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string", "description": "Override ID"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/admin/adjustments": {
            "post": {
                "tags": ["Adjustments"],
                "summary": "Create an adjustment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAdjustmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/adjustments/{studentId}": {
            "get": {
                "tags": ["Adjustments"],
                "summary": "List a student's adjustment history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Adjustments"],
                "summary": "Deactivate an adjustment by id",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string", "description": "Adjustment ID"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/admin/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List student requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/requests/{id}/approve": {
            "post": {
                "tags": ["Requests"],
                "summary": "Approve a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/admin/requests/{id}/reject": {
            "post": {
                "tags": ["Requests"],
                "summary": "Reject a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/admin/leaderboard/refresh": {
            "post": {
                "tags": ["Balances"],
                "summary": "Recompute the leaderboard cache",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Refreshed"}
                }
            }
        },
        "/admin/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Generate a scoreboard export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["password"],
            "properties": {
                "password": {"type": "string"}
            }
        },
        "CreatePeriodRequest": {
            "type": "object",
            "required": ["key", "name", "start_date", "end_date"],
            "properties": {
                "key": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string", "example": "2025-06-24"},
                "end_date": {"type": "string", "example": "2025-07-18"},
                "excluded_dates": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UpdatePeriodRequest": {
            "type": "object",
            "required": ["name", "start_date", "end_date"],
            "properties": {
                "new_key": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "excluded_dates": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UploadRequest": {
            "type": "object",
            "required": ["period_key", "section_id", "rows"],
            "properties": {
                "period_key": {"type": "string"},
                "section_id": {"type": "string"},
                "rows": {"type": "array", "items": {"type": "object"}}
            }
        },
        "SetOverrideRequest": {
            "type": "object",
            "required": ["student_id", "date", "override_type"],
            "properties": {
                "student_id": {"type": "string"},
                "date": {"type": "string", "example": "2025-06-26"},
                "override_type": {"type": "string", "enum": ["qualified", "not_qualified"]},
                "reason": {"type": "string"}
            }
        },
        "CreateAdjustmentRequest": {
            "type": "object",
            "required": ["student_id", "amount", "reason"],
            "properties": {
                "student_id": {"type": "string"},
                "period_key": {"type": "string"},
                "section_id": {"type": "string"},
                "amount": {"type": "integer"},
                "reason": {"type": "string"},
                "created_by": {"type": "string"}
            }
        },
        "SubmitRequestRequest": {
            "type": "object",
            "required": ["student_id", "type", "detail"],
            "properties": {
                "student_id": {"type": "string"},
                "type": {"type": "string", "enum": ["REDEMPTION", "OTHER"]},
                "detail": {"type": "string"},
                "cost": {"type": "integer"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["kind", "format"],
            "properties": {
                "kind": {"type": "string", "enum": ["section", "leaderboard"]},
                "period_key": {"type": "string"},
                "section_id": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
