package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response. Code is a stable
// machine-readable identifier for the failure.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Code     string `json:"code"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
	code    string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs, titles and
// default codes.
var problemTypes = map[int]problemType{
	http.StatusUnauthorized: {
		typeURI: "https://startupshop.dev/errors/unauthorized",
		title:   "Unauthorized",
		code:    "unauthorized",
	},
	http.StatusBadRequest: {
		typeURI: "https://startupshop.dev/errors/bad-request",
		title:   "Bad Request",
		code:    "bad_request",
	},
	http.StatusNotFound: {
		typeURI: "https://startupshop.dev/errors/not-found",
		title:   "Not Found",
		code:    "not_found",
	},
	http.StatusRequestEntityTooLarge: {
		typeURI: "https://startupshop.dev/errors/payload-too-large",
		title:   "Payload Too Large",
		code:    "payload_too_large",
	},
	http.StatusInternalServerError: {
		typeURI: "https://startupshop.dev/errors/internal-error",
		title:   "Internal Server Error",
		code:    "internal_error",
	},
	http.StatusBadGateway: {
		typeURI: "https://startupshop.dev/errors/upstream-error",
		title:   "Bad Gateway",
		code:    "upstream_fetch_failed",
	},
	http.StatusServiceUnavailable: {
		typeURI: "https://startupshop.dev/errors/service-unavailable",
		title:   "Service Unavailable",
		code:    "service_unavailable",
	},
	http.StatusForbidden: {
		typeURI: "https://startupshop.dev/errors/forbidden",
		title:   "Forbidden",
		code:    "forbidden",
	},
	http.StatusUnprocessableEntity: {
		typeURI: "https://startupshop.dev/errors/unprocessable-entity",
		title:   "Unprocessable Entity",
		code:    "unprocessable_entity",
	},
	http.StatusTooManyRequests: {
		typeURI: "https://startupshop.dev/errors/rate-limit",
		title:   "Too Many Requests",
		code:    "rate_limit_exceeded",
	},
}

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{
		typeURI: "https://startupshop.dev/errors/unknown",
		title:   http.StatusText(status),
		code:    "unknown",
	}
}

// WriteProblem writes an RFC 7807 Problem Details response with the default
// code for status.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	WriteProblemCode(w, r, status, "", detail)
}

// WriteProblemCode writes a Problem Details response with an explicit code.
// An empty code uses the default for status. The code is also recorded on
// the request's api_event.
func WriteProblemCode(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	pt := lookupProblemType(status)
	if code == "" {
		code = pt.code
	}

	p := Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Code:     code,
		Instance: r.URL.Path,
	}
	writeProblemBody(w, r, status, p)
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors"`
}

// WriteProblemWithErrors writes a Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, status int, code, detail string, errs []validation.ValidationError) {
	pt := lookupProblemType(status)
	if code == "" {
		code = pt.code
	}
	if errs == nil {
		errs = []validation.ValidationError{}
	}

	p := ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   status,
			Detail:   detail,
			Code:     code,
			Instance: r.URL.Path,
		},
		Errors: errs,
	}
	writeProblemBody(w, r, status, p)
}

func writeProblemBody(w http.ResponseWriter, r *http.Request, status int, body any) {
	if ev := EventFromContext(r.Context()); ev != nil {
		switch p := body.(type) {
		case Problem:
			ev.ErrorCode = p.Code
		case ProblemWithErrors:
			ev.ErrorCode = p.Code
		}
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapStoreError converts persistence errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, store.ErrInvalidOffer):
		WriteProblem(w, r, http.StatusBadRequest, "Offer is missing required fields")
	default:
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// dataEnvelope wraps every successful response body.
type dataEnvelope struct {
	Data any `json:"data"`
}

// writeData writes v as {"data": v} with the given status.
func writeData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataEnvelope{Data: v}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
