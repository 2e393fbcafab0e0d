package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"deployer/internal/errs"
)

const (
	defaultLimit = 50
	maxLimit     = 100

	// maxRequestBytes bounds a POST /deployments body, base64 module included
	maxRequestBytes = 8 << 20
)

// parsePagination reads ?limit= and ?offset=, ignoring invalid values
func parsePagination(query url.Values) (limit, offset int) {
	limit = defaultLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= maxLimit {
			limit = parsed
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

// statusForKind maps a deployment failure to an HTTP status
func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindMalformedInput, errs.KindModuleSourceMissing:
		return http.StatusBadRequest
	case errs.KindPreparation:
		return http.StatusUnprocessableEntity
	case errs.KindAccountLookup, errs.KindSubmission:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON sends v with the given status code
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
