// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/register": {
            "post": {
                "tags": ["Users"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Users"],
                "summary": "Sign in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/users/{id}/role": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Users"],
                "summary": "Change a user's role",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.SetRoleRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}}}
            }
        },
        "/dashboards/{id}/share-links": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Share Links"],
                "summary": "Generate a share link",
                "parameters": [
                    {"type": "string", "description": "Dashboard ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/handler.GenerateShareLinkRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.ShareLinkResponse"}}}
            }
        },
        "/share-links/redeem": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Share Links"],
                "summary": "Redeem a share link",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.RedeemShareLinkRequest"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid or expired token"}
                }
            }
        },
        "/kpis": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["KPIs"],
                "summary": "Create a KPI",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.KpiRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.KpiResponse"}}}
            }
        },
        "/kpis/{id}/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["KPIs"],
                "summary": "RAG status of a KPI",
                "parameters": [
                    {"type": "string", "description": "KPI ID", "name": "id", "in": "path", "required": true},
                    {"type": "number", "description": "Value to classify", "name": "value", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.StatusResponse"}}}
            }
        },
        "/kpis/{id}/aggregate": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["KPIs"],
                "summary": "Aggregate KPI entries",
                "parameters": [
                    {"type": "string", "description": "KPI ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "sum, average, latest, min, max or count", "name": "type", "in": "query", "required": true},
                    {"type": "string", "description": "YYYY-MM-DD", "name": "start", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD", "name": "end", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AggregateResponse"}}}
            }
        },
        "/kpis/{id}/entries": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["KPI Entries"],
                "summary": "Add a KPI entry",
                "parameters": [
                    {"type": "string", "description": "KPI ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.EntryRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.EntryResponse"}}}
            }
        }
    },
    "definitions": {
        "handler.RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {"email": {"type": "string"}, "name": {"type": "string"}, "password": {"type": "string", "minLength": 6}}
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.SetRoleRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {"role": {"type": "string", "enum": ["admin", "editor", "viewer"]}}
        },
        "handler.UserResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "email": {"type": "string"}, "name": {"type": "string"}, "role": {"type": "string"}}
        },
        "handler.AuthResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/handler.UserResponse"}}
        },
        "handler.GenerateShareLinkRequest": {
            "type": "object",
            "properties": {"ttl_days": {"type": "integer", "minimum": 0}}
        },
        "handler.RedeemShareLinkRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {"token": {"type": "string"}}
        },
        "handler.ShareLinkResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "dashboard_id": {"type": "string"},
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "handler.KpiRequest": {
            "type": "object",
            "required": ["direction", "name", "rag_amber", "rag_red"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "direction": {"type": "string", "enum": ["higher_is_better", "lower_is_better"]},
                "target": {"type": "number"},
                "rag_red": {"type": "number"},
                "rag_amber": {"type": "number"},
                "format_prefix": {"type": "string"},
                "format_suffix": {"type": "string"}
            }
        },
        "handler.KpiResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "owner_id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "direction": {"type": "string"},
                "target": {"type": "number"},
                "rag_red": {"type": "number"},
                "rag_amber": {"type": "number"},
                "format_prefix": {"type": "string"},
                "format_suffix": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.StatusResponse": {
            "type": "object",
            "properties": {"kpi_id": {"type": "string"}, "value": {"type": "number"}, "status": {"type": "string", "enum": ["green", "amber", "red"]}}
        },
        "handler.AggregateResponse": {
            "type": "object",
            "properties": {
                "kpi_id": {"type": "string"},
                "type": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "value": {"type": "number"}
            }
        },
        "handler.EntryRequest": {
            "type": "object",
            "required": ["date", "value"],
            "properties": {"date": {"type": "string"}, "value": {"type": "number"}, "note": {"type": "string"}}
        },
        "handler.EntryResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "kpi_id": {"type": "string"}, "date": {"type": "string"}, "value": {"type": "number"}, "note": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "KPI Board API",
	Description:      "API for KPI dashboards with RAG status, aggregation and share links.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
