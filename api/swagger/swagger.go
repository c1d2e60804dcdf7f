package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Certify API",
        "description": "Certificate issuance and validation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Admin console login"},
        {"name": "Certificates", "description": "Certificate lifecycle management"},
        {"name": "Validation", "description": "Public certificate validity checks"},
        {"name": "Bulk", "description": "CSV bulk certificate ingestion"},
        {"name": "Audit", "description": "Validation statistics and anomalies"}
    ],
    "paths": {
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
        "/validate/{code}": {
            "get": {
                "tags": ["Validation"],
                "summary": "Validate a certificate code",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "source", "in": "query", "type": "string", "description": "public or qr_scan"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates": {
            "get": {
                "tags": ["Certificates"],
                "summary": "List certificates",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Certificates"],
                "summary": "Issue a certificate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCertificateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/{id}": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Get certificate detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Certificates"],
                "summary": "Delete certificate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/certificates/{id}/revoke": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Revoke certificate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RevokeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/{id}/status": {
            "patch": {
                "tags": ["Certificates"],
                "summary": "Update certificate status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/{id}/history": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Audit trail for a certificate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/code/{code}/pdf": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download printable certificate",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/certificates/code/{code}/validate": {
            "get": {
                "tags": ["Validation"],
                "summary": "Validate as authenticated operator",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificates/bulk": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Bulk upload certificates from CSV",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unreadable upload"}
                }
            }
        },
        "/certificates/bulk/reports/{token}": {
            "get": {
                "tags": ["Bulk"],
                "summary": "Download a bulk ingestion report",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV report"}
                }
            }
        },
        "/audit/validation-stats": {
            "get": {
                "tags": ["Audit"],
                "summary": "Validation statistics",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/anomalies": {
            "get": {
                "tags": ["Audit"],
                "summary": "Suspicious validation activity",
                "parameters": [
                    {"name": "hours", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "CreateCertificateRequest": {
            "type": "object",
            "properties": {
                "student_name": {"type": "string"},
                "course_name": {"type": "string"},
                "completion_date": {"type": "string", "description": "YYYY-MM-DD"},
                "certificate_type": {"type": "string"},
                "grade": {"type": "number"},
                "instructor_name": {"type": "string"},
                "course_duration": {"type": "string"},
                "issuer_email": {"type": "string"},
                "issuer_name": {"type": "string"}
            },
            "required": ["student_name", "course_name", "completion_date"]
        },
        "RevokeRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            },
            "required": ["status"]
        },
        "Certificate": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_name": {"type": "string"},
                "course_name": {"type": "string"},
                "completion_date": {"type": "string"},
                "certificate_code": {"type": "string"},
                "verification_hash": {"type": "string"},
                "issued_date": {"type": "string"},
                "grade": {"type": "number"},
                "instructor_name": {"type": "string"},
                "course_duration": {"type": "string"},
                "institution_name": {"type": "string"},
                "certificate_type": {"type": "string"},
                "status": {"type": "string"},
                "qr_code_data_uri": {"type": "string"}
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
