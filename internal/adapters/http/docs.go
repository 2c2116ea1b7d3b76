package http

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{title}} - Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '/docs/openapi.json', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`

// apiDocs is the OpenAPI document parsed and validated once at startup.
type apiDocs struct {
	yaml []byte
	json []byte
	page string
}

// loadAPIDocs reads and validates the OpenAPI document at path.
func loadAPIDocs(path string) (*apiDocs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := (&openapi3.Loader{}).LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	js, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return &apiDocs{
		yaml: raw,
		json: js,
		page: strings.ReplaceAll(swaggerPage, "{{title}}", html.EscapeString(doc.Info.Title)),
	}, nil
}

// SetupDocs serves Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml and /docs/openapi.json. An unreadable or invalid
// document disables the docs with a warning; the API still starts.
func SetupDocs(app *fiber.App, path string) {
	docs, err := loadAPIDocs(path)
	if err != nil {
		slog.Warn("api docs disabled", "path", path, "error", err)
	}

	serve := func(contentType string, body func(d *apiDocs) []byte) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if docs == nil {
				return errNotFound(c, "API documentation is not available")
			}
			c.Set(fiber.HeaderContentType, contentType)
			return c.Send(body(docs))
		}
	}

	app.Get("/docs", serve(fiber.MIMETextHTMLCharsetUTF8, func(d *apiDocs) []byte { return []byte(d.page) }))
	app.Get("/docs/openapi.yaml", serve("application/yaml", func(d *apiDocs) []byte { return d.yaml }))
	app.Get("/docs/openapi.json", serve(fiber.MIMEApplicationJSON, func(d *apiDocs) []byte { return d.json }))
}
