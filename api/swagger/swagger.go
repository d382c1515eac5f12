package swagger

import "github.com/swaggo/swag"

// docTemplate is kept in sync with the godoc annotations on the handlers.
const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "StudyBase API",
        "description": "Course material portal: faceted search, uploads, download counting and an AI study aid.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Auth",
            "description": "Accounts and sessions"
        },
        {
            "name": "Resources",
            "description": "Course materials"
        },
        {
            "name": "Catalog",
            "description": "College hierarchy and landing statistics"
        },
        {
            "name": "Search",
            "description": "Live search sessions"
        },
        {
            "name": "Study Aid",
            "description": "Flashcards, document Q&A and exports"
        },
        {
            "name": "System",
            "description": "Operations"
        }
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Register an account",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RegisterRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Sign in",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RefreshRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Sign out and revoke tokens",
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/auth/me": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Current user",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/resources": {
            "get": {
                "tags": [
                    "Resources"
                ],
                "summary": "Search approved resources",
                "parameters": [
                    {
                        "name": "college",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "department",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "programme",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "level",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "file_type",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "uploader_role",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "q",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "course_code",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Resources"
                ],
                "summary": "Upload a course material",
                "parameters": [
                    {
                        "name": "file",
                        "in": "formData",
                        "type": "file",
                        "required": true
                    },
                    {
                        "name": "title",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "course_code",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "description",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "college",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "department",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "programmes",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "level",
                        "in": "formData",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "semester",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "tags",
                        "in": "formData",
                        "type": "string"
                    }
                ],
                "consumes": [
                    "multipart/form-data"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/resources/exam-prep": {
            "get": {
                "tags": [
                    "Resources"
                ],
                "summary": "Browse exam preparation material",
                "parameters": [
                    {
                        "name": "college",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "department",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "programme",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "level",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "file_type",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "uploader_role",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "q",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "course_code",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/resources/{id}": {
            "get": {
                "tags": [
                    "Resources"
                ],
                "summary": "Resource detail with related materials",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Resources"
                ],
                "summary": "Delete a resource",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/resources/{id}/status": {
            "patch": {
                "tags": [
                    "Resources"
                ],
                "summary": "Moderate a resource",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateResourceStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/resources/{id}/downloads": {
            "post": {
                "tags": [
                    "Resources"
                ],
                "summary": "Record a file open",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "Idempotency-Key",
                        "in": "header",
                        "type": "string"
                    },
                    {
                        "name": "X-Search-Session",
                        "in": "header",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/me/uploads": {
            "get": {
                "tags": [
                    "Resources"
                ],
                "summary": "Resources uploaded by the caller",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/uploads/stats": {
            "get": {
                "tags": [
                    "Resources"
                ],
                "summary": "Upload and download totals for the caller",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/files/{bucket}/{key}": {
            "get": {
                "tags": [
                    "Resources"
                ],
                "summary": "Download an uploaded file",
                "parameters": [
                    {
                        "name": "bucket",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "key",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File"
                    }
                }
            }
        },
        "/catalog/colleges": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Colleges with departments and programmes",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/catalog/colleges/{code}/departments": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Departments of a college",
                "parameters": [
                    {
                        "name": "code",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/catalog/programmes": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Programmes of a department",
                "parameters": [
                    {
                        "name": "college",
                        "in": "query",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "department",
                        "in": "query",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/catalog/levels": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Study levels",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/catalog/file-types": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Accepted upload formats, semesters and uploader roles",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/catalog/department-counts": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Approved files per department",
                "parameters": [
                    {
                        "name": "level",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/stats": {
            "get": {
                "tags": [
                    "Catalog"
                ],
                "summary": "Landing page totals and recent uploads",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/search/sessions": {
            "post": {
                "tags": [
                    "Search"
                ],
                "summary": "Open a live search session",
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/search/sessions/{id}": {
            "get": {
                "tags": [
                    "Search"
                ],
                "summary": "Latest snapshot of a search session",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Search"
                ],
                "summary": "Close a search session",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/search/sessions/{id}/actions": {
            "post": {
                "tags": [
                    "Search"
                ],
                "summary": "Apply a facet action",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SearchAction"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/search/sessions/{id}/stream": {
            "get": {
                "tags": [
                    "Search"
                ],
                "summary": "Stream snapshots as server-sent events",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "access_token",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "text/event-stream"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/ai": {
            "post": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Generate flashcards or answer a question about a document",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AIRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "{flashcards} or {answer}"
                    },
                    "400": {
                        "description": "{error}"
                    },
                    "500": {
                        "description": "{error}"
                    },
                    "502": {
                        "description": "{error}"
                    }
                }
            }
        },
        "/study-aid/chats": {
            "post": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Open a chat about a resource",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateChatRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/study-aid/chats/{id}": {
            "get": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Chat turns",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Discard a chat",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/study-aid/chats/{id}/messages": {
            "post": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Ask a question in a chat",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AskRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/study-aid/flashcards/export": {
            "post": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Render flashcards to CSV or PDF",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/FlashcardExportRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": [
                    "Study Aid"
                ],
                "summary": "Download a rendered export",
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File"
                    },
                    "404": {
                        "description": "Expired or unknown link"
                    }
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": [
                    "System"
                ],
                "summary": "Process counters",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "full_name": {
                    "type": "string"
                },
                "role": {
                    "type": "string"
                },
                "department": {
                    "type": "string"
                }
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {
                    "type": "string"
                }
            }
        },
        "UpdateResourceStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "approved",
                        "rejected"
                    ]
                }
            }
        },
        "SearchAction": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string"
                },
                "value": {
                    "type": "string"
                }
            }
        },
        "AIRequest": {
            "type": "object",
            "properties": {
                "action": {
                    "type": "string",
                    "enum": [
                        "generate_flashcards",
                        "ask_question"
                    ]
                },
                "fileTitle": {
                    "type": "string"
                },
                "fileDescription": {
                    "type": "string"
                },
                "question": {
                    "type": "string"
                },
                "fileUrl": {
                    "type": "string"
                },
                "fileType": {
                    "type": "string"
                },
                "resourceId": {
                    "type": "string"
                }
            }
        },
        "CreateChatRequest": {
            "type": "object",
            "properties": {
                "resource_id": {
                    "type": "string"
                }
            }
        },
        "AskRequest": {
            "type": "object",
            "properties": {
                "question": {
                    "type": "string"
                }
            }
        },
        "Flashcard": {
            "type": "object",
            "properties": {
                "question": {
                    "type": "string"
                },
                "answer": {
                    "type": "string"
                }
            }
        },
        "FlashcardExportRequest": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string"
                },
                "format": {
                    "type": "string",
                    "enum": [
                        "csv",
                        "pdf"
                    ]
                },
                "flashcards": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Flashcard"
                    }
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                },
                "total_pages": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
