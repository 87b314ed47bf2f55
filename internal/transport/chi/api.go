package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorResponseCode is a machine readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeNotImplemented         ErrorResponseCode = "not_implemented"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchParams are the query parameters of GET /v1/search.
type SearchParams struct {
	// Q is the user question. Required, may be empty.
	Q string `form:"q" json:"q"`
	// Explain returns the routing decision and predicate without searching.
	Explain *bool `form:"explain,omitempty" json:"explain,omitempty"`
}

// SearchResultItem is one retrieved record.
type SearchResultItem struct {
	Id       string         `json:"id"`
	Text     string         `json:"text"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResponse lists ranked items per routed collection.
type SearchResponse struct {
	Query         string                        `json:"query"`
	EmbeddingText string                        `json:"embedding_text"`
	Collections   []string                      `json:"collections"`
	Predicate     string                        `json:"predicate"`
	Results       map[string][]SearchResultItem `json:"results,omitempty"`
}

// ChatTurn is a past exchange.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	ConversationId *string    `json:"conversation_id,omitempty"`
	Message        string     `json:"message"`
	History        []ChatTurn `json:"history,omitempty"`
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	ConversationId string             `json:"conversation_id"`
	Answer         string             `json:"answer"`
	Blocked        bool               `json:"blocked"`
	Documents      []SearchResultItem `json:"documents"`
}

// HealthResponse reports component status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServerInterface is implemented by Server and mounted by Handler.
type ServerInterface interface {
	// (GET /v1/search)
	Search(w http.ResponseWriter, r *http.Request, params SearchParams)
	// (POST /v1/chat)
	Chat(w http.ResponseWriter, r *http.Request)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a query parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures Handler.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si on a new chi router.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions mounts si on options.BaseRouter, creating one when nil.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}

	r.Get("/v1/search", func(w http.ResponseWriter, req *http.Request) {
		var params SearchParams

		if err := runtime.BindQueryParameter("form", true, true, "q", req.URL.Query(), &params.Q); err != nil {
			options.ErrorHandlerFunc(w, req, &InvalidParamFormatError{ParamName: "q", Err: err})
			return
		}
		if err := runtime.BindQueryParameter(
			"form", true, false, "explain", req.URL.Query(), &params.Explain,
		); err != nil {
			options.ErrorHandlerFunc(w, req, &InvalidParamFormatError{ParamName: "explain", Err: err})
			return
		}

		si.Search(w, req, params)
	})
	r.Post("/v1/chat", si.Chat)
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)

	return r
}
