package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FieldServe Dispatch API",
        "description": "Scheduling and dispatch decision engine for field service crews",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Dispatcher login and identity"},
        {"name": "Dispatch", "description": "Scheduling decisions and assignments"},
        {"name": "Observability", "description": "Runtime counters"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate dispatcher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current dispatcher identity",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/auto-assign": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Auto-assign unassigned jobs for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AutoAssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/score": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Score technicians against a job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/next-slot": {
            "get": {
                "tags": ["Dispatch"],
                "summary": "Next open booking window for a technician",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "techId", "in": "query", "type": "string", "required": true},
                    {"name": "durationMinutes", "in": "query", "type": "integer", "required": true},
                    {"name": "startDate", "in": "query", "type": "string", "required": true},
                    {"name": "timezone", "in": "query", "type": "string"},
                    {"name": "maxDays", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/suggestions": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Ranked scheduling suggestions for a job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/check-slot": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Validate one offered time slot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/validate": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Validate crew against job requirements",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/route-order": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Order a technician's day by travel distance",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/route-sheet": {
            "get": {
                "tags": ["Dispatch"],
                "summary": "Download a route sheet (pdf or csv)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "techId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/dispatch/staffing": {
            "get": {
                "tags": ["Dispatch"],
                "summary": "Crew demand versus availability for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/assign": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Assign a crew to a job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Assigned"},
                    "409": {"description": "Conflicts present", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dispatch/unassign": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Remove technicians from a job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Unassigned"}
                }
            }
        },
        "/dispatch/bulk-assign": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Assign several jobs atomically",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Applied"}
                }
            }
        },
        "/dispatch/reschedule": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Move several jobs atomically",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Applied"}
                }
            }
        },
        "/dispatch/cancel": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Cancel a job and release its crew",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Cancelled"}
                }
            }
        },
        "/dispatch/multi-day": {
            "post": {
                "tags": ["Dispatch"],
                "summary": "Build a multi-day plan for a long job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ops/snapshot": {
            "get": {
                "tags": ["Observability"],
                "summary": "Dispatch counters since startup",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "AutoAssignRequest": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string"},
                "jobIds": {"type": "array", "items": {"type": "string"}},
                "timezone": {"type": "string"},
                "apply": {"type": "boolean"},
                "notify": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
