// Package docs holds the Swagger description served at /swagger/index.html.
// Regenerate with `swag init -g cmd/main.go`.
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
        "/quizzes": {"get": {"tags": ["Quizzes"], "summary": "List quizzes", "responses": {"200": {"description": "OK"}}}},
        "/quizzes/{quiz_id}": {"get": {"tags": ["Quizzes"], "summary": "Get a quiz with its questions", "parameters": [{"type": "integer", "name": "quiz_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/quizzes/{quiz_id}/attempts": {"post": {"tags": ["Attempts"], "summary": "Start (or resume) an attempt", "parameters": [{"type": "integer", "name": "quiz_id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/quizzes/{quiz_id}/my-attempts": {"get": {"tags": ["Attempts"], "summary": "List the caller's attempts on a quiz", "parameters": [{"type": "integer", "name": "quiz_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/attempts/{attempt_id}": {"get": {"tags": ["Attempts"], "summary": "Get an attempt with its live timer", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/attempts/{attempt_id}/answers": {"post": {"tags": ["Attempts"], "summary": "Merge-write answers", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "202": {"description": "Degraded"}, "409": {"description": "Attempt no longer in progress"}}}},
        "/attempts/{attempt_id}/submit": {"post": {"tags": ["Attempts"], "summary": "Submit an attempt (idempotent)", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "503": {"description": "Submission could not be persisted"}}}},
        "/attempts/{attempt_id}/grades": {"post": {"tags": ["Grading"], "summary": "Record a manual grade", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid grade"}}}},
        "/attempts/{attempt_id}/score": {"get": {"tags": ["Attempts"], "summary": "Get the current score breakdown", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/admin/quizzes": {"post": {"tags": ["Admin - Quizzes"], "summary": "Create a quiz", "responses": {"201": {"description": "Created"}}}},
        "/admin/quizzes/{quiz_id}/status": {"patch": {"tags": ["Admin - Quizzes"], "summary": "Publish or close a quiz", "parameters": [{"type": "integer", "name": "quiz_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/admin/attempts/{attempt_id}/grades": {"get": {"tags": ["Grading"], "summary": "List manual grades", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/admin/attempts/{attempt_id}/finalize": {"post": {"tags": ["Grading"], "summary": "Finalize an attempt early", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "428": {"description": "Confirmation required"}}}},
        "/admin/attempts/{attempt_id}/questions/{question_id}/suggestion": {"post": {"tags": ["Grading"], "summary": "AI grading suggestion", "parameters": [{"type": "string", "name": "attempt_id", "in": "path", "required": true}, {"type": "integer", "name": "question_id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "503": {"description": "Assistant unavailable"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Quiz Engine API",
	Description:      "Quiz attempts with a persistent timer, merge-safe answer capture, idempotent submission, and blended auto/manual scoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
