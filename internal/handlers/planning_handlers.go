package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"urbanisme-platform/internal/clients"
	"urbanisme-platform/internal/models"
	"urbanisme-platform/internal/services"
	"urbanisme-platform/pkg/logging"
	"urbanisme-platform/pkg/metrics"
)

// PlanningHandler handles planning API endpoints
type PlanningHandler struct {
	geoService        *services.GeoQueryService
	ruleSetService    *services.RuleSetService
	suggestionService *services.SuggestionService
	geocoder          *clients.GeocodingClient
	logger            *logging.StructuredLogger
	metrics           *metrics.Collector
}

// NewPlanningHandler creates a new planning handler
func NewPlanningHandler(
	geoService *services.GeoQueryService,
	ruleSetService *services.RuleSetService,
	suggestionService *services.SuggestionService,
	geocoder *clients.GeocodingClient,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PlanningHandler {
	return &PlanningHandler{
		geoService:        geoService,
		ruleSetService:    ruleSetService,
		suggestionService: suggestionService,
		geocoder:          geocoder,
		logger:            logger,
		metrics:           metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// LocationResponse wraps the aggregated location record with the geocoding
// match that produced it, when the lookup started from an address.
type LocationResponse struct {
	Location *models.FullLocationInfo `json:"location"`
	Address  *clients.GeocodeResult   `json:"address,omitempty"`
}

// RulesResponse reports the rule set for a zone, or its absence.
type RulesResponse struct {
	InseeCode string          `json:"insee_code"`
	ZoneCode  string          `json:"zone_code"`
	Found     bool            `json:"found"`
	Rules     *models.RuleSet `json:"rules,omitempty"`
}

// SuggestionsResponse lists the adjustments derived from a questionnaire.
type SuggestionsResponse struct {
	Suggestions []models.AdjustmentSuggestion `json:"suggestions"`
}

// GetLocation handles GET /api/location
func (h *PlanningHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/location").Observe(duration.Seconds())
	}()

	var coord models.Coordinate
	var geocoded *clients.GeocodeResult

	address := strings.TrimSpace(r.URL.Query().Get("address"))
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")

	switch {
	case latStr != "" || lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			h.sendError(w, r, "invalid lat, expected decimal degrees", http.StatusBadRequest)
			return
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			h.sendError(w, r, "invalid lon, expected decimal degrees", http.StatusBadRequest)
			return
		}
		coord = models.Coordinate{Latitude: lat, Longitude: lon}
	case address != "":
		result, err := h.geocoder.Search(ctx, address)
		if err != nil {
			h.logger.Error(ctx, "[API_GEOCODE_ERROR] Address search failed", logging.Fields{
				"address": address,
			}, err)
			h.metrics.RecordAPIError("geocoding_error", "/api/location")
			h.sendError(w, r, "address search failed", http.StatusBadGateway)
			return
		}
		if result == nil {
			h.sendError(w, r, "no match for address", http.StatusNotFound)
			return
		}
		geocoded = result
		coord = result.Coordinate
	default:
		h.sendError(w, r, "either lat/lon or address is required", http.StatusBadRequest)
		return
	}

	if err := coord.Validate(); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	location := h.geoService.Resolve(ctx, coord)

	h.metrics.RecordAPIRequest("/api/location", "GET", "200")
	h.sendJSON(w, LocationResponse{Location: location, Address: geocoded}, http.StatusOK)
}

// GetRules handles GET /api/rules
func (h *PlanningHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/rules").Observe(duration.Seconds())
	}()

	insee := strings.TrimSpace(r.URL.Query().Get("insee"))
	zone := strings.TrimSpace(r.URL.Query().Get("zone"))
	documentName := strings.TrimSpace(r.URL.Query().Get("document"))

	if insee == "" || zone == "" {
		h.sendError(w, r, "insee and zone are required", http.StatusBadRequest)
		return
	}

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		h.sendError(w, r, "invalid lat, expected decimal degrees", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		h.sendError(w, r, "invalid lon, expected decimal degrees", http.StatusBadRequest)
		return
	}
	coord := models.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	rules, err := h.ruleSetService.ResolveRuleSet(ctx, insee, zone, documentName, coord)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RULES_ERROR] Failed to resolve rule set", logging.Fields{
			"insee_code": insee,
			"zone_code":  zone,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/rules")
		h.sendError(w, r, "failed to resolve rules", http.StatusInternalServerError)
		return
	}

	response := RulesResponse{
		InseeCode: insee,
		ZoneCode:  zone,
		Found:     rules != nil,
		Rules:     rules,
	}

	h.metrics.RecordAPIRequest("/api/rules", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// PostSuggestions handles POST /api/suggestions
func (h *PlanningHandler) PostSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/suggestions").Observe(duration.Seconds())
	}()

	var input services.SuggestionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.sendError(w, r, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if input.ProjectType == "" {
		h.sendError(w, r, "project_type is required", http.StatusBadRequest)
		return
	}
	if len(input.Responses) == 0 {
		h.sendError(w, r, "responses is required", http.StatusBadRequest)
		return
	}

	suggestions := h.suggestionService.Suggest(ctx, input)

	h.metrics.RecordAPIRequest("/api/suggestions", "POST", "200")
	h.sendJSON(w, SuggestionsResponse{Suggestions: suggestions}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *PlanningHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *PlanningHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *PlanningHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all planning API routes
func (h *PlanningHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/location", h.GetLocation).Methods("GET")
	router.HandleFunc("/api/rules", h.GetRules).Methods("GET")
	router.HandleFunc("/api/suggestions", h.PostSuggestions).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
