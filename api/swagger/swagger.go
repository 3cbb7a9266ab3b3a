package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Correction API",
        "description": "Correction projects, AI batch correction and teaching assistance",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Corrections", "description": "Correction projects and their copies"},
        {"name": "Batches", "description": "Progress of batch corrections"},
        {"name": "Assist", "description": "Rubric and exercise suggestions"},
        {"name": "Courses", "description": "Lesson plans"},
        {"name": "Analytics", "description": "Grading statistics per class level"},
        {"name": "System", "description": "Service instrumentation"}
    ],
    "paths": {
        "/corrections": {
            "get": {
                "tags": ["Corrections"],
                "summary": "List correction projects of a user",
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Corrections"],
                "summary": "Create correction project",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCorrectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or rubric", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/{id}": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Get correction project",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Corrections"],
                "summary": "Update correction project",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCorrectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Backward status transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Corrections"],
                "summary": "Delete correction project",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/corrections/{id}/complete": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Mark correction project as completed",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/{id}/copies/{copyId}/archive": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Archive a corrected copy",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "copyId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/{id}/batches": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Submit files for AI correction",
                "description": "Accepts multipart 'files' parts or a JSON body. Files are corrected concurrently and each result is appended to the project.",
                "consumes": ["multipart/form-data", "application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "files", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown project", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/corrections/{id}/export": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Export corrected copies",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Batch progress",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List the courses of a user",
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Save a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get a course",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Courses"],
                "summary": "Update a course",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCourseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete a course",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/analytics": {
            "get": {
                "tags": ["Analytics"],
                "summary": "List class analytics of a user",
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/{classLevel}": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Get the analytics of one class level",
                "parameters": [
                    {"name": "classLevel", "in": "path", "type": "string", "required": true},
                    {"name": "userId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Analytics"],
                "summary": "Merge figures into the analytics of one class level",
                "parameters": [
                    {"name": "classLevel", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAnalyticsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/{classLevel}/refresh": {
            "post": {
                "tags": ["Analytics"],
                "summary": "Recompute the analytics of one class level from graded copies",
                "parameters": [
                    {"name": "classLevel", "in": "path", "type": "string", "required": true},
                    {"name": "userId", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assist/rubric": {
            "post": {
                "tags": ["Assist"],
                "summary": "Suggest a grading rubric",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RubricSuggestionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Language model failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assist/exercises": {
            "post": {
                "tags": ["Assist"],
                "summary": "Suggest exercises",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExerciseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Service metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CriterionInput": {
            "type": "object",
            "required": ["description", "points"],
            "properties": {
                "description": {"type": "string"},
                "points": {"type": "number"}
            }
        },
        "CreateCorrectionRequest": {
            "type": "object",
            "required": ["userId", "title", "classLevel", "subject", "totalPoints", "criteria"],
            "properties": {
                "userId": {"type": "string"},
                "title": {"type": "string"},
                "classLevel": {"type": "string"},
                "subject": {"type": "string"},
                "totalPoints": {"type": "number"},
                "criteria": {"type": "array", "items": {"$ref": "#/definitions/CriterionInput"}}
            }
        },
        "UpdateCorrectionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "classLevel": {"type": "string"},
                "subject": {"type": "string"},
                "totalPoints": {"type": "number"},
                "status": {"type": "string", "enum": ["draft", "in_progress", "completed"]},
                "criteria": {"type": "array", "items": {"$ref": "#/definitions/CriterionInput"}}
            }
        },
        "CreateCourseRequest": {
            "type": "object",
            "required": ["userId", "title", "classLevel"],
            "properties": {
                "userId": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "classLevel": {"type": "string"},
                "duration": {"type": "string"},
                "objectives": {"type": "array", "items": {"type": "string"}},
                "content": {"type": "string"},
                "resources": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["draft", "published"]}
            }
        },
        "UpdateCourseRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "classLevel": {"type": "string"},
                "duration": {"type": "string"},
                "objectives": {"type": "array", "items": {"type": "string"}},
                "content": {"type": "string"},
                "resources": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["draft", "published"]}
            }
        },
        "StudentProgressInput": {
            "type": "object",
            "required": ["correctionId", "grade", "date"],
            "properties": {
                "correctionId": {"type": "string"},
                "copyId": {"type": "string"},
                "grade": {"type": "number"},
                "date": {"type": "string", "format": "date-time"}
            }
        },
        "UpdateAnalyticsRequest": {
            "type": "object",
            "required": ["userId"],
            "properties": {
                "userId": {"type": "string"},
                "averageGrade": {"type": "number"},
                "successRate": {"type": "number"},
                "monthlyProgress": {"type": "number"},
                "studentProgress": {"type": "array", "items": {"$ref": "#/definitions/StudentProgressInput"}}
            }
        },
        "RubricSuggestionRequest": {
            "type": "object",
            "required": ["classLevel", "subject", "totalPoints"],
            "properties": {
                "classLevel": {"type": "string"},
                "subject": {"type": "string"},
                "totalPoints": {"type": "number"}
            }
        },
        "ExerciseRequest": {
            "type": "object",
            "required": ["classLevel", "objectives", "duration"],
            "properties": {
                "classLevel": {"type": "string"},
                "objectives": {"type": "string"},
                "duration": {"type": "string"},
                "format": {"type": "string"},
                "interests": {"type": "string"}
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
