package handlers

import (
	"net/http"

	"bicycle-counts/internal/schema"
)

// apiDoc is built once from the field registry; the registry is immutable
// so the document never changes after startup.
var apiDoc = buildDocumentation(schema.NewRegistry())

// Documentation handles GET /docs, returning a machine-readable
// description of every endpoint and the count record fields.
func (h *CountHandler) Documentation(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, apiDoc, http.StatusOK)
}

func buildDocumentation(registry *schema.Registry) map[string]interface{} {
	fields := make([]map[string]interface{}, 0)
	for _, name := range registry.FieldNames() {
		field, _ := registry.Lookup(name)
		doc := map[string]interface{}{
			"name":     field.Name,
			"type":     field.Type.String(),
			"required": field.Required,
		}
		if len(field.Allowed) > 0 {
			doc["possible_values"] = field.Allowed
		}
		fields = append(fields, doc)
	}

	return map[string]interface{}{
		"title": "Bicycle Count API",
		"description": "REST access to the regional bicycle count program data, " +
			"joined with daily weather observations. Responses are JSON; " +
			"errors carry an error message body.",
		"status_codes": map[string]string{
			"200": "OK",
			"201": "Created",
			"400": "Bad Request",
			"404": "Not Found",
			"500": "Internal Server Error",
		},
		"record_fields": fields,
		"facility_types": schema.FacilityTypes,
		"endpoints": []map[string]interface{}{
			{
				"path":    "/counts/{record_num}",
				"methods": []string{"GET", "PUT", "DELETE"},
				"description": "Retrieve, partially update, or delete one count by its " +
					"integer record number. PUT accepts any subset of record fields; " +
					"server-assigned fields are ignored if submitted.",
			},
			{
				"path":    "/counts",
				"methods": []string{"GET", "POST"},
				"description": "GET lists counts in chronological order, optionally filtered " +
					"by facility and minimum precipitation query parameters. POST creates a " +
					"new count from the full required field set.",
				"query_parameters": []map[string]interface{}{
					{"name": "facility", "type": "string", "required": false},
					{"name": "precipitation", "type": "number", "required": false},
				},
			},
			{
				"path":    "/counts/closest",
				"methods": []string{"GET"},
				"description": "Retrieve the five counts closest to the given point.",
				"query_parameters": []map[string]interface{}{
					{"name": "lat", "type": "float", "required": true},
					{"name": "lon", "type": "float", "required": true},
				},
			},
			{
				"path":        "/facilities",
				"methods":     []string{"GET"},
				"description": "Retrieve the distinct facility values present in storage.",
			},
			{
				"path":        "/health",
				"methods":     []string{"GET"},
				"description": "Liveness check including a storage ping.",
			},
			{
				"path":        "/metrics",
				"methods":     []string{"GET"},
				"description": "Prometheus metrics exposition.",
			},
		},
	}
}
