package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Terminal Gate API",
        "description": "Truck gate slot booking and capacity management",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Schedules", "description": "Weekly templates and special-date overrides"},
        {"name": "Blocks", "description": "Blocked dates and blocked time ranges"},
        {"name": "Slots", "description": "Availability resolution and the capacity ledger"},
        {"name": "Reservations", "description": "Slot booking lifecycle"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/slots/availability/{date}": {
            "get": {
                "tags": ["Slots"],
                "summary": "Resolve availability for a date",
                "parameters": [
                    {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/generate/{date}": {
            "post": {
                "tags": ["Slots"],
                "summary": "Materialize slot rows for a date",
                "parameters": [
                    {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slots already generated or date blocked"}
                }
            }
        },
        "/slots/{id}/capacity": {
            "put": {
                "tags": ["Slots"],
                "summary": "Resize a slot's total capacity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetCapacityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "New total below reserved amount"}
                }
            }
        },
        "/reservations": {
            "get": {
                "tags": ["Reservations"],
                "summary": "List reservations",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date_from", "in": "query", "type": "string", "format": "date"},
                    {"name": "date_to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reservations"],
                "summary": "Book time slots",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exceeded, slot inactive or date blocked"}
                }
            }
        },
        "/reservations/{id}/cancel": {
            "put": {
                "tags": ["Reservations"],
                "summary": "Cancel a reservation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CancelReservationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Reservation not active"}
                }
            }
        },
        "/reservations/{id}/complete": {
            "put": {
                "tags": ["Reservations"],
                "summary": "Mark a reservation completed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Reservation not active"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SetCapacityRequest": {
            "type": "object",
            "properties": {
                "total_capacity": {"type": "integer"}
            },
            "required": ["total_capacity"]
        },
        "CreateReservationRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "time": {"type": "string"},
                "slots_requested": {"type": "integer"},
                "container_numbers": {"type": "array", "items": {"type": "string"}},
                "transporter_name": {"type": "string"},
                "truck_plate": {"type": "string"},
                "booking_number": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["date", "time", "slots_requested", "container_numbers", "transporter_name", "truck_plate", "booking_number"]
        },
        "CancelReservationRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
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
