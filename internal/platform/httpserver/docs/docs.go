// Package docs registers the OpenAPI document served at /swagger/doc.json.
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
        "/api/v1/cases": {
            "post": {
                "summary": "Create a subrogation case",
                "tags": ["cases"],
                "responses": {"201": {"description": "Created"}}
            },
            "get": {
                "summary": "List cases for the tenant",
                "tags": ["cases"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cases/{case_id}": {
            "get": {
                "summary": "Get a case",
                "tags": ["cases"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cases/{case_id}/status": {
            "put": {
                "summary": "Update a case's lifecycle status",
                "tags": ["cases"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/cases/{case_id}/packages": {
            "get": {
                "summary": "List demand packages for a case",
                "tags": ["packages"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/packages": {
            "post": {
                "summary": "Create a demand package version",
                "tags": ["packages"],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/v1/packages/{package_id}": {
            "get": {
                "summary": "Get a demand package",
                "tags": ["packages"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/packages/{package_id}/generate": {
            "post": {
                "summary": "Queue PDF assembly for a package",
                "tags": ["packages"],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/api/v1/packages/{package_id}/send": {
            "post": {
                "summary": "Queue email delivery of a generated package",
                "tags": ["packages"],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/api/v1/packages/{package_id}/documents": {
            "post": {
                "summary": "Attach a claim-system document reference",
                "tags": ["documents"],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/v1/packages/{package_id}/documents/upload": {
            "post": {
                "summary": "Upload a supporting document",
                "tags": ["documents"],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/v1/packages/{package_id}/documents/order": {
            "put": {
                "summary": "Reorder package documents",
                "tags": ["documents"],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/v1/documents/{document_id}": {
            "delete": {
                "summary": "Remove a document and its stored content",
                "tags": ["documents"],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/v1/packages/{package_id}/communications": {
            "get": {
                "summary": "List delivery attempts for a package",
                "tags": ["communications"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/communications/{communication_id}": {
            "get": {
                "summary": "Get a communication log entry",
                "tags": ["communications"],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Subroflow Demand Service API",
	Description:      "Tenant-scoped demand package assembly and delivery for subrogation cases.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
