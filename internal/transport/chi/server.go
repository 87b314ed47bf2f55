package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/prodrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/prodrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodrag/internal/usecase/search"
)

// maxChatBody caps the size of a chat request body.
const maxChatBody = 1 << 20

// Searcher answers retrieval queries.
type Searcher interface {
	Search(ctx context.Context, query string) (searchuc.Response, error)
	Explain(query string) searchuc.Plan
}

// Asker answers chat messages.
type Asker interface {
	Ask(ctx context.Context, req chatuc.Request) (chatuc.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	search        Searcher
	chat          Asker
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. chat can be nil when generation is disabled.
func NewServer(search Searcher, chat Asker, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		chat:   chat,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
	}
	return s
}

// Search handles GET /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request, params SearchParams) {
	if params.Explain != nil && *params.Explain {
		writeJSON(w, http.StatusOK, planToAPI(s.search.Explain(params.Q)))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, params.Q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := planToAPI(resp.Plan)
	out.Results = make(map[string][]SearchResultItem, len(resp.Results))
	for coll, items := range resp.Results {
		out.Results[coll.String()] = itemsToAPI(items)
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, out)
}

// Chat handles POST /v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusNotImplemented, ErrorResponseCodeNotImplemented, "chat is disabled")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "message is required")
		return
	}

	creq := chatuc.Request{Message: req.Message, History: make([]domain.Turn, len(req.History))}
	if req.ConversationId != nil {
		creq.ConversationID = *req.ConversationId
	}
	for i, t := range req.History {
		creq.History[i] = domain.Turn{User: t.User, Assistant: t.Assistant}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.chat.Ask(ctx, creq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ChatResponse{
		ConversationId: ans.ConversationID,
		Answer:         ans.Text,
		Blocked:        ans.Blocked,
		Documents:      itemsToAPI(ans.Documents),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func planToAPI(p searchuc.Plan) SearchResponse {
	return SearchResponse{
		Query:         p.Query,
		EmbeddingText: p.EmbeddingText,
		Collections:   p.Collections.Strings(),
		Predicate:     p.Predicate().Describe(),
	}
}

func itemsToAPI(items []result.Item) []SearchResultItem {
	out := make([]SearchResultItem, len(items))
	for i, it := range items {
		out[i] = SearchResultItem{
			Id:       it.ID(),
			Text:     it.Text(),
			Distance: it.Distance(),
			Metadata: metadataToAPI(it.Metadata()),
		}
	}
	return out
}

func metadataToAPI(md document.Metadata) map[string]any {
	if md == nil {
		return nil
	}
	out := map[string]any{"chunk_type": string(md.ChunkType())}
	base := md.Base()
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("product_name", base.ProductName)
	put("model_number", base.ModelNumber)
	put("category", base.Category)
	put("brand", base.Brand)

	switch m := md.(type) {
	case document.ProductMetadata:
		if m.Price != nil {
			out["price"] = *m.Price
		}
	case document.ReviewMetadata:
		if m.Rating != nil {
			out["rating"] = *m.Rating
		}
	}
	return out
}
