package router

import (
	"os"
	"path/filepath"

	"intern-portal/backend/pkg/validator"
)

// AddOpenAPIValidation validates documented routes against the schema and
// serves the schema under /api/docs. Must run before routes are registered.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.LogError(err, "Failed to initialize OpenAPI validator")
		return
	}

	r.Engine.Use(v.Middleware())

	schemaFile := filepath.Base(schemaPath)
	r.Engine.StaticFile("/api/docs/"+schemaFile, schemaPath)
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath, "version", v.Version(), "url", "/api/docs/"+schemaFile)
}
