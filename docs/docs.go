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
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/organizations/{orgId}/balance": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Ledger"], "summary": "Organization balance",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/organizations/{orgId}/transactions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Ledger"], "summary": "Ledger transactions",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/organizations/{orgId}/reconciliation": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Ledger"], "summary": "Ledger reconciliation",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/deposits": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Ledger"], "summary": "Deposits",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Ledger"], "summary": "Record a deposit",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"amount": {"type": "string"}}}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "409": {"description": "Duplicate request"}}}
        },
        "/organizations/{orgId}/payroll-batches": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Payroll"], "summary": "List payroll batches",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Payroll"], "summary": "Create payroll batch",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"month": {"type": "integer"}, "year": {"type": "integer"}}}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}
        },
        "/payroll-batches/{batchId}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Payroll"], "summary": "Get payroll batch",
                "parameters": [{"type": "integer", "name": "batchId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/payroll-batches/{batchId}/statement": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Payroll"], "summary": "Payroll statement", "produces": ["text/html"],
                "parameters": [{"type": "integer", "name": "batchId", "in": "path", "required": true}],
                "responses": {"200": {"description": "HTML document"}}}
        },
        "/payroll-batches/{batchId}/approve": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Payroll"], "summary": "Approve payroll batch",
                "parameters": [{"type": "integer", "name": "batchId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "402": {"description": "Insufficient funds"}, "409": {"description": "Conflict"}}}
        },
        "/payroll-batches/{batchId}/reject": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Payroll"], "summary": "Reject payroll batch",
                "parameters": [{"type": "integer", "name": "batchId", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"reason": {"type": "string"}}}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/organizations/{orgId}/vendor-payments": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Vendor Payments"], "summary": "List vendor payments",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Vendor Payments"], "summary": "Create and process vendor payment",
                "parameters": [{"type": "integer", "name": "orgId", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"vendorId": {"type": "integer"}, "amount": {"type": "string"}, "description": {"type": "string"}, "paymentDate": {"type": "string"}}}}],
                "responses": {"201": {"description": "Created"}, "402": {"description": "Insufficient funds"}, "404": {"description": "Not Found"}, "422": {"description": "Inactive vendor"}}}
        },
        "/vendor-payments/{paymentId}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Vendor Payments"], "summary": "Get vendor payment",
                "parameters": [{"type": "integer", "name": "paymentId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/vendor-payments/{paymentId}/bill": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Vendor Payments"], "summary": "Get bill",
                "parameters": [{"type": "integer", "name": "paymentId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/vendor-payments/{paymentId}/receipt": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Vendor Payments"], "summary": "Bill receipt", "produces": ["text/html"],
                "parameters": [{"type": "integer", "name": "paymentId", "in": "path", "required": true}],
                "responses": {"200": {"description": "HTML document"}}}
        },
        "/vendor-payments/{paymentId}/advice": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Vendor Payments"], "summary": "ISO 20022 payment advice", "produces": ["application/xml"],
                "parameters": [{"type": "integer", "name": "paymentId", "in": "path", "required": true}],
                "responses": {"200": {"description": "pacs.008 XML"}, "409": {"description": "Payment not processed"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Organization Ledger API",
	Description:      "Organization balances, payroll and vendor settlement",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
