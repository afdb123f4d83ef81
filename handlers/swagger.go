package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the tracker API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>internship tracker - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "internship-tracker", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Input": {
        "type": "object",
        "required": ["companyName", "position", "applicationType", "status"],
        "properties": {
          "companyName": {"type":"string"}, "position": {"type":"string"},
          "appliedOn": {"type":"string","format":"date"}, "contactPerson": {"type":"string"},
          "applicationLink": {"type":"string","format":"uri"},
          "applicationType": {"type":"string","enum":["Spontaneous","Job Posting"]},
          "source": {"type":"string"},
          "status": {"type":"string","enum":["Draft","Applied","In Review","Interview","Offer","Rejected","Archived"]},
          "notes": {"type":"string"}
        }
      },
      "Application": {
        "allOf": [
          { "$ref": "#/components/schemas/Input" },
          { "type": "object", "properties": { "id": {"type":"string"}, "createdAt": {"type":"string"}, "updatedAt": {"type":"string"} } }
        ]
      },
      "ImportReport": {
        "type": "object",
        "properties": { "added": {"type":"integer"}, "duplicates": {"type":"integer"}, "rejected": {"type":"integer"}, "total": {"type":"integer"} }
      }
    }
  },
  "paths": {
    "/api/applications": {
      "get": {
        "summary": "Filtered, sorted view of the collection",
        "parameters": [
          { "name": "status", "in": "query", "schema": {"type":"string"} },
          { "name": "type", "in": "query", "schema": {"type":"string"} },
          { "name": "source", "in": "query", "schema": {"type":"string"} },
          { "name": "sort", "in": "query", "schema": {"type":"string","enum":["newest","oldest"]} }
        ],
        "responses": { "200": { "description": "applications" }, "400": { "description": "unknown status or sort" } }
      },
      "post": {
        "summary": "Create an application",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Input" } } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" }, "500": { "description": "saved in memory only" } }
      }
    },
    "/api/applications/options": {
      "get": { "summary": "Filter choices (statuses, types, sources)", "responses": { "200": { "description": "options" } } }
    },
    "/api/applications/{id}": {
      "get": { "summary": "Get one application", "parameters": [{ "name": "id", "in": "path", "required": true, "schema": {"type":"string"} }], "responses": { "200": { "description": "application" }, "404": { "description": "not found" } } },
      "put": {
        "summary": "Edit an application",
        "parameters": [{ "name": "id", "in": "path", "required": true, "schema": {"type":"string"} }],
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Input" } } } },
        "responses": { "200": { "description": "updated" }, "400": { "description": "validation failed" }, "404": { "description": "not found" }, "500": { "description": "saved in memory only" } }
      }
    },
    "/api/export": {
      "get": { "summary": "Download the full collection as JSON", "responses": { "200": { "description": "attachment internship-applications-<date>.json", "headers": { "X-Archive-URL": { "type": "string", "description": "temporary link to the archived copy, when archiving is configured" } } } } }
    },
    "/api/import": {
      "post": {
        "summary": "Merge a previously exported file by id",
        "requestBody": { "content": { "application/json": { "schema": {"type":"array"} }, "multipart/form-data": { "schema": {"type":"object","properties":{"file":{"type":"string","format":"binary"}}} } } },
        "responses": {
          "200": { "description": "import report", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/ImportReport" } } } },
          "400": { "description": "Invalid JSON file / Invalid file format" },
          "409": { "description": "another import is in progress" }
        }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
