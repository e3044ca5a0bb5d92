package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Multi-tenant school timetable scheduling engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Generation, audit, substitution and views"},
        {"name": "Catalog", "description": "Periods, rooms and capability assignments"}
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
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/tenants/{tenantId}/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Regenerate the tenant's timetable",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Generation already in progress"},
                    "412": {"description": "Missing reference data"},
                    "422": {"description": "All-or-nothing run rejected"}
                }
            }
        },
        "/tenants/{tenantId}/timetable/audit": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Audit the stored timetable",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "strict", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tenants/{tenantId}/timetable/substitute": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Reassign an absent teacher's lessons for one day",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubstituteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Generation already in progress"}
                }
            }
        },
        "/tenants/{tenantId}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List timetable entries",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classGroupId", "in": "query", "type": "string"},
                    {"name": "dayOfWeek", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tenants/{tenantId}/timetable/weekly": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly view for one class group or teacher",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "classGroupId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tenants/{tenantId}/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export the weekly view as CSV or PDF",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "classGroupId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/tenants/{tenantId}/periods": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List periods",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create period",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePeriodRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate slot"}
                }
            }
        },
        "/tenants/{tenantId}/periods/{id}": {
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete period",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/tenants/{tenantId}/rooms": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List rooms",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create room",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tenants/{tenantId}/rooms/{id}": {
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete room",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/tenants/{tenantId}/capabilities": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List capability assignments",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create capability assignment",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCapabilityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate tuple"}
                }
            }
        },
        "/tenants/{tenantId}/capabilities/{id}": {
            "patch": {
                "tags": ["Catalog"],
                "summary": "Adjust weekly quota",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCapabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete capability assignment",
                "parameters": [
                    {"name": "tenantId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "strategy": {"type": "string", "enum": ["GREEDY", "EXACT"]},
                "allocateRooms": {"type": "boolean"},
                "allOrNothing": {"type": "boolean"}
            }
        },
        "SubstituteRequest": {
            "type": "object",
            "required": ["teacherId", "dayOfWeek"],
            "properties": {
                "teacherId": {"type": "string"},
                "dayOfWeek": {"type": "integer", "minimum": 1, "maximum": 5}
            }
        },
        "CreatePeriodRequest": {
            "type": "object",
            "required": ["dayOfWeek", "startTime", "endTime"],
            "properties": {
                "dayOfWeek": {"type": "integer", "minimum": 1, "maximum": 5},
                "startTime": {"type": "string", "example": "08:00"},
                "endTime": {"type": "string", "example": "08:45"}
            }
        },
        "CreateRoomRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "capacity": {"type": "integer"},
                "isLab": {"type": "boolean"}
            }
        },
        "CreateCapabilityRequest": {
            "type": "object",
            "required": ["teacherId", "subjectId", "classGroupId", "lessonsPerWeek"],
            "properties": {
                "teacherId": {"type": "string"},
                "subjectId": {"type": "string"},
                "classGroupId": {"type": "string"},
                "lessonsPerWeek": {"type": "integer", "minimum": 1}
            }
        },
        "UpdateCapabilityRequest": {
            "type": "object",
            "required": ["lessonsPerWeek"],
            "properties": {
                "lessonsPerWeek": {"type": "integer", "minimum": 1}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
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
