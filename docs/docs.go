// Package docs registers the OpenAPI document served under /swagger/. Keep it
// in step with the godoc annotations on the HTTP controllers.
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
        "/events": {
            "get": {
                "description": "Returns events newest first with their ticket tiers.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List events",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size (max 100)", "name": "page_size", "in": "query"},
                    {"type": "boolean", "description": "Only events accepting registrations", "name": "active", "in": "query"},
                    {"type": "boolean", "description": "Only events that have not started", "name": "upcoming", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.ListEventsSuccessResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            },
            "post": {
                "description": "Creates an event with its ticket tiers. Paid events need at least one tier. The organizer receives the dashboard code by email.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Create a new event",
                "parameters": [
                    {"description": "Event with ticket tiers", "name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.CreateEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "data contains the created event and its dashboard code", "schema": {"$ref": "#/definitions/controllers.DashboardSuccessResponse"}},
                    "400": {"description": "error.code: bad_request, ValidationError or NoTicketTiers", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: DuplicateEventName", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/events/dashboard/{code}": {
            "get": {
                "description": "Looks an event up by its dashboard code and returns it with registration totals.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Organizer dashboard",
                "parameters": [
                    {"type": "string", "description": "Dashboard code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.DashboardSuccessResponse"}},
                    "404": {"description": "error.code: EventNotFound", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/events/{eventID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Get an event by ID",
                "parameters": [
                    {"type": "string", "description": "Event ID", "name": "eventID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.EventSuccessResponse"}},
                    "404": {"description": "error.code: EventNotFound", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/registrations": {
            "post": {
                "description": "Free registrations are approved immediately and the access code is emailed. Paid registrations stay Pending and return a payment_link; approval follows payment confirmation.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["registrations"],
                "summary": "Register for an event",
                "parameters": [
                    {"description": "Registration (payment_type is Card or Crypto for paid events)", "name": "registration", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/controllers.RegisterSuccessResponse"}},
                    "400": {"description": "error.code: ValidationError, EventInactive, MissingTicketSelection, MissingPaymentType or InvalidPaymentType", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "404": {"description": "error.code: EventNotFound or TicketNotFound", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: TicketUnavailable or UnsupportedPaymentType", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "502": {"description": "error.code: gateway_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/transactions/callback": {
            "get": {
                "description": "Called when the payer returns from the provider, and polled by clients. Verifies the reference with the provider and completes the registration once confirmed.",
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Verify a payment",
                "parameters": [
                    {"type": "string", "description": "Gateway or order reference", "name": "reference", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.ReconciliationSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "404": {"description": "error.code: TransactionNotFound", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "502": {"description": "error.code: gateway_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/transactions/webhook": {
            "post": {
                "description": "Authenticates the signed payload and applies it. Every outcome other than an internal failure is acknowledged with 200 so the provider stops retrying.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Card provider webhook",
                "parameters": [
                    {"type": "string", "description": "HMAC-SHA512 of the raw body", "name": "X-Paystack-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "data.disposition describes what happened", "schema": {"$ref": "#/definitions/controllers.ReconciliationSuccessResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/transactions/webhook/crypto": {
            "post": {
                "description": "Applies a crypto order status callback after checking the order token. Accepts JSON or form-encoded bodies.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Crypto provider webhook",
                "parameters": [
                    {"description": "Order callback", "name": "callback", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.CryptoWebhookRequest"}}
                ],
                "responses": {
                    "200": {"description": "data.disposition describes what happened", "schema": {"$ref": "#/definitions/controllers.ReconciliationSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "controllers.CreateEventRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "email": {"type": "string"},
                "image_url": {"type": "string"},
                "location": {"type": "string"},
                "name": {"type": "string"},
                "organizer": {"type": "string"},
                "paid": {"type": "boolean"},
                "phone_number": {"type": "string"},
                "tickets": {"type": "array", "items": {"$ref": "#/definitions/controllers.CreateTicketRequest"}},
                "time": {"type": "string"}
            }
        },
        "controllers.CreateTicketRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "crypto_amount": {"type": "number"},
                "currency": {"type": "string"},
                "name": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        },
        "controllers.CryptoWebhookRequest": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "status": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "controllers.DashboardSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.Event"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.EventSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.Event"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.ListEventsSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object",
                    "properties": {
                        "items": {"type": "array", "items": {"$ref": "#/definitions/domain.Event"}},
                        "pagination": {"$ref": "#/definitions/helpers.PaginationMeta"}
                    }
                },
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.ReconciliationSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.ReconciliationResult"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "event_id": {"type": "string"},
                "full_name": {"type": "string"},
                "payment_type": {"type": "string"},
                "phone_number": {"type": "string"},
                "ticket_id": {"type": "string"}
            }
        },
        "controllers.RegisterSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.RegistrationResult"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "domain.Event": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "attended": {"type": "integer"},
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "image_url": {"type": "string"},
                "location": {"type": "string"},
                "name": {"type": "string"},
                "organizer": {"type": "string"},
                "paid": {"type": "boolean"},
                "phone_number": {"type": "string"},
                "registered": {"type": "integer"},
                "tickets": {"type": "array", "items": {"$ref": "#/definitions/domain.Ticket"}},
                "time": {"type": "string"},
                "total_amount": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.ReconciliationResult": {
            "type": "object",
            "properties": {
                "disposition": {"type": "string"},
                "transaction": {"$ref": "#/definitions/domain.Transaction"}
            }
        },
        "domain.Registration": {
            "type": "object",
            "properties": {
                "access_code": {"type": "string"},
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "event_id": {"type": "string"},
                "full_name": {"type": "string"},
                "id": {"type": "string"},
                "phone_number": {"type": "string"},
                "status": {"type": "string"},
                "ticket_id": {"type": "string"},
                "transaction_id": {"type": "string"},
                "updated_at": {"type": "string"},
                "verified": {"type": "boolean"}
            }
        },
        "domain.RegistrationResult": {
            "type": "object",
            "properties": {
                "event": {"$ref": "#/definitions/domain.Event"},
                "payment_link": {"type": "string"},
                "registration": {"$ref": "#/definitions/domain.Registration"}
            }
        },
        "domain.Ticket": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "created_at": {"type": "string"},
                "crypto_amount": {"type": "number"},
                "currency": {"type": "string"},
                "event_id": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "quantity": {"type": "integer"},
                "registered": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Transaction": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "created_at": {"type": "string"},
                "currency": {"type": "string"},
                "email": {"type": "string"},
                "event_id": {"type": "string"},
                "full_name": {"type": "string"},
                "gateway_reference": {"type": "string"},
                "gateway_status": {"type": "string"},
                "id": {"type": "string"},
                "payment_link": {"type": "string"},
                "phone_number": {"type": "string"},
                "reference": {"type": "string"},
                "registration_completed": {"type": "boolean"},
                "registration_id": {"type": "string"},
                "status": {"type": "string"},
                "ticket_id": {"type": "string"},
                "type": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "helpers.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "helpers.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "helpers.PaginationMeta": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
	Title:            "Event Ticketing API",
	Description:      "Event registration with card and crypto payments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
