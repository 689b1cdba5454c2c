package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Urbanisme Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Urbanisme Platform API",
			"description": "French planning regulation platform: zoning and risk resolution, règlement rule extraction with caching, and authorization threshold suggestions",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Urbanisme Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/location": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Resolve planning context for a point",
					"description": "Aggregate zoning, flood, heritage, seismic, clay and noise data for a coordinate or a geocoded address",
					"parameters": []map[string]interface{}{
						{
							"name":        "lat",
							"in":          "query",
							"description": "WGS84 latitude in decimal degrees",
							"required":    false,
							"schema":      map[string]string{"type": "number", "format": "double"},
						},
						{
							"name":        "lon",
							"in":          "query",
							"description": "WGS84 longitude in decimal degrees",
							"required":    false,
							"schema":      map[string]string{"type": "number", "format": "double"},
						},
						{
							"name":        "address",
							"in":          "query",
							"description": "Postal address, geocoded when lat/lon are absent",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"location": map[string]interface{}{
												"type": "object",
												"properties": map[string]interface{}{
													"coordinate":    map[string]string{"type": "object"},
													"primary_zone":  map[string]string{"type": "object"},
													"zones":         map[string]string{"type": "array"},
													"flood":         map[string]string{"type": "object"},
													"heritage":      map[string]string{"type": "object"},
													"natural_risks": map[string]string{"type": "object"},
													"noise":         map[string]string{"type": "object"},
													"resolved_at":   map[string]string{"type": "string", "format": "date-time"},
												},
											},
											"address": map[string]string{"type": "object"},
										},
									},
								},
							},
						},
						"400": map[string]interface{}{"description": "Invalid coordinate or missing parameters"},
						"404": map[string]interface{}{"description": "No match for address"},
					},
				},
			},
			"/api/rules": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Resolve the règlement rules for a zone",
					"description": "Return cached or freshly extracted numeric rules for a zone of a commune's planning document",
					"parameters": []map[string]interface{}{
						{
							"name":        "insee",
							"in":          "query",
							"description": "INSEE commune code",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "zone",
							"in":          "query",
							"description": "Zone code within the planning document (e.g. UB, N, AUc)",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "lat",
							"in":          "query",
							"description": "WGS84 latitude of the parcel, used to locate the planning document",
							"required":    true,
							"schema":      map[string]string{"type": "number", "format": "double"},
						},
						{
							"name":        "lon",
							"in":          "query",
							"description": "WGS84 longitude of the parcel",
							"required":    true,
							"schema":      map[string]string{"type": "number", "format": "double"},
						},
						{
							"name":        "document",
							"in":          "query",
							"description": "Planning document name hint from a prior location lookup",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response; found=false when no usable rules exist",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"insee_code": map[string]string{"type": "string"},
											"zone_code":  map[string]string{"type": "string"},
											"found":      map[string]string{"type": "boolean"},
											"rules": map[string]interface{}{
												"type": "object",
												"properties": map[string]interface{}{
													"setback_boundary_m":   map[string]string{"type": "number"},
													"setback_public_way_m": map[string]string{"type": "number"},
													"max_height_m":         map[string]string{"type": "number"},
													"max_footprint_ratio":  map[string]string{"type": "number"},
													"biotope_required":     map[string]string{"type": "boolean"},
													"pool":                 map[string]string{"type": "object"},
												},
											},
										},
									},
								},
							},
						},
						"400": map[string]interface{}{"description": "Missing or invalid parameters"},
					},
				},
			},
			"/api/suggestions": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Derive adjustment suggestions from questionnaire responses",
					"description": "Propose value reductions that drop the project to a lighter authorization tier",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"project_type":          map[string]string{"type": "string"},
										"zone_code":             map[string]string{"type": "string"},
										"current_authorization": map[string]string{"type": "string"},
										"feasibility_status":    map[string]string{"type": "string"},
										"responses": map[string]interface{}{
											"type":                 "object",
											"additionalProperties": map[string]string{"type": "number"},
										},
									},
									"required": []string{"project_type", "responses"},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"suggestions": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"target_field":            map[string]string{"type": "string"},
														"current_value":           map[string]string{"type": "number"},
														"suggested_value":         map[string]string{"type": "number"},
														"threshold_value":         map[string]string{"type": "number"},
														"unit":                    map[string]string{"type": "string"},
														"current_authorization":   map[string]string{"type": "string"},
														"resulting_authorization": map[string]string{"type": "string"},
														"impact_tier":             map[string]string{"type": "string"},
														"category":                map[string]string{"type": "string"},
														"description":             map[string]string{"type": "string"},
													},
												},
											},
										},
									},
								},
							},
						},
						"400": map[string]interface{}{"description": "Invalid request body"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service is healthy"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
