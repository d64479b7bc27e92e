package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "e-MRA LMS API",
        "description": "Course authoring, enrollment, payments and learning progress.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "auth", "description": "Registration, login and sessions"},
        {"name": "courses", "description": "Catalog and curriculum authoring"},
        {"name": "payments", "description": "PayDunya checkout and order settlement"},
        {"name": "learning", "description": "Enrollments, lesson progress and quizzes"},
        {"name": "certificates", "description": "Completion certificates"},
        {"name": "assignments", "description": "Assignment submissions and grading"},
        {"name": "community", "description": "Discussions and course reviews"},
        {"name": "messaging", "description": "Direct conversations"},
        {"name": "notifications", "description": "In-app notifications"},
        {"name": "analytics", "description": "Instructor and student dashboards"},
        {"name": "users", "description": "Profiles, membership and leaderboard"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new account",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate and issue a JWT",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["courses"],
                "summary": "List published courses",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "ordering", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "post": {
                "tags": ["courses"],
                "summary": "Create a course with its curriculum tree",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["courses"],
                "summary": "Get a course by id or slug",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "put": {
                "tags": ["courses"],
                "summary": "Replace a course curriculum",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "delete": {
                "tags": ["courses"],
                "summary": "Delete a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/courses/{id}/enroll": {
            "post": {
                "tags": ["learning"],
                "summary": "Enroll in a free course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/payments/paydunya/checkout": {
            "post": {
                "tags": ["payments"],
                "summary": "Create a PayDunya checkout invoice",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/payments/confirm": {
            "post": {
                "tags": ["payments"],
                "summary": "Confirm a payment and enroll the buyer",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Amount mismatch", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/payments/paydunya/ipn": {
            "post": {
                "tags": ["payments"],
                "summary": "PayDunya instant payment notification",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/lessons/{id}/toggle-completion": {
            "post": {
                "tags": ["learning"],
                "summary": "Toggle lesson completion",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/quizzes/{id}/submit": {
            "post": {
                "tags": ["learning"],
                "summary": "Submit quiz answers",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/certificates/{serial}/verify": {
            "get": {
                "tags": ["certificates"],
                "summary": "Verify a certificate serial",
                "parameters": [
                    {"name": "serial", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
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
                "success": {"type": "boolean"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
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
