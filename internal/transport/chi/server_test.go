package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/prodrag/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/prodrag/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodrag/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	searchFn func(ctx context.Context, query string) (searchuc.Response, error)
	explain  func(query string) searchuc.Plan
}

func (m *mockSearcher) Search(ctx context.Context, query string) (searchuc.Response, error) {
	return m.searchFn(ctx, query)
}

func (m *mockSearcher) Explain(query string) searchuc.Plan { return m.explain(query) }

type mockAsker struct {
	askFn func(ctx context.Context, req chatuc.Request) (chatuc.Answer, error)
}

func (m *mockAsker) Ask(ctx context.Context, req chatuc.Request) (chatuc.Answer, error) {
	return m.askFn(ctx, req)
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func priced(p float64) *float64 { return &p }

func productItem() result.Item {
	return result.New("product-TP-15", "TitanPro", document.ProductMetadata{
		Common: document.Common{ProductName: "TitanPro", Brand: "Titan", Category: "Laptops"},
		Price:  priced(999),
	}, 0.25)
}

func newTestHandler(s *Server) http.Handler {
	return HandlerWithOptions(s, ChiServerOptions{})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Search ---

func TestSearch_OK(t *testing.T) {
	var gotQuery string
	s := &mockSearcher{searchFn: func(ctx context.Context, q string) (searchuc.Response, error) {
		gotQuery = q
		domain.UsageFromContext(ctx).AddTokens(7)
		return searchuc.Response{
			Plan: searchuc.Plan{Query: q, EmbeddingText: q, Collections: collection.NewSet(collection.Products)},
			Results: map[collection.Name][]result.Item{
				collection.Products: {productItem()},
			},
		}, nil
	}}
	h := newTestHandler(NewServer(s, nil, &mockHealth{}, nil))

	rr := do(t, h, http.MethodGet, "/v1/search?q=laptops+under+%241000", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if gotQuery != "laptops under $1000" {
		t.Errorf("query = %q", gotQuery)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "7" {
		t.Errorf("X-Embedding-Tokens = %q, want 7", got)
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	items := resp.Results["products"]
	if len(items) != 1 {
		t.Fatalf("products = %d, want 1", len(items))
	}
	if items[0].Id != "product-TP-15" || items[0].Distance != 0.25 {
		t.Errorf("item = %+v", items[0])
	}
	if items[0].Metadata["price"] != 999.0 || items[0].Metadata["chunk_type"] != "product_info" {
		t.Errorf("metadata = %v", items[0].Metadata)
	}
}

func TestSearch_MissingQuery_400(t *testing.T) {
	s := &mockSearcher{searchFn: func(context.Context, string) (searchuc.Response, error) {
		t.Fatal("search must not be called")
		return searchuc.Response{}, nil
	}}
	h := newTestHandler(NewServer(s, nil, &mockHealth{}, nil))

	rr := do(t, h, http.MethodGet, "/v1/search", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSearch_EmbeddingFailure_502(t *testing.T) {
	s := &mockSearcher{searchFn: func(context.Context, string) (searchuc.Response, error) {
		return searchuc.Response{}, fmt.Errorf("vectorize query: %w", domain.ErrEmbeddingProviderError)
	}}
	h := newTestHandler(NewServer(s, nil, &mockHealth{}, nil))

	rr := do(t, h, http.MethodGet, "/v1/search?q=x", "")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	var errResp ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp.Code != ErrorResponseCodeEmbeddingProviderError {
		t.Errorf("code = %s", errResp.Code)
	}
}

func TestSearch_UnknownError_500(t *testing.T) {
	s := &mockSearcher{searchFn: func(context.Context, string) (searchuc.Response, error) {
		return searchuc.Response{}, errors.New("secret internals")
	}}
	h := newTestHandler(NewServer(s, nil, &mockHealth{}, nil))

	rr := do(t, h, http.MethodGet, "/v1/search?q=x", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Error("internal error details leaked")
	}
}

func TestSearch_Explain(t *testing.T) {
	s := &mockSearcher{
		searchFn: func(context.Context, string) (searchuc.Response, error) {
			t.Fatal("search must not be called")
			return searchuc.Response{}, nil
		},
		explain: func(q string) searchuc.Plan {
			return searchuc.Plan{Query: q, EmbeddingText: q, Collections: collection.All()}
		},
	}
	h := newTestHandler(NewServer(s, nil, &mockHealth{}, nil))

	rr := do(t, h, http.MethodGet, "/v1/search?q=hello&explain=true", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp SearchResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Collections) != 2 || resp.Results != nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch_BadExplainFlag_400(t *testing.T) {
	h := newTestHandler(NewServer(&mockSearcher{}, nil, &mockHealth{}, nil))
	rr := do(t, h, http.MethodGet, "/v1/search?q=x&explain=maybe", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// --- Chat ---

func TestChat_OK(t *testing.T) {
	var got chatuc.Request
	a := &mockAsker{askFn: func(_ context.Context, req chatuc.Request) (chatuc.Answer, error) {
		got = req
		return chatuc.Answer{
			ConversationID: "c-1",
			Text:           "It costs $999.00.",
			Documents:      []result.Item{productItem()},
		}, nil
	}}
	h := newTestHandler(NewServer(&mockSearcher{}, a, &mockHealth{}, nil))

	body := `{"message":"price?","history":[{"user":"hi","assistant":"hello"}]}`
	rr := do(t, h, http.MethodPost, "/v1/chat", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got.Message != "price?" || len(got.History) != 1 || got.History[0].Assistant != "hello" {
		t.Errorf("request = %+v", got)
	}

	var resp ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "It costs $999.00." || resp.ConversationId != "c-1" || len(resp.Documents) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChat_Blocked(t *testing.T) {
	a := &mockAsker{askFn: func(context.Context, chatuc.Request) (chatuc.Answer, error) {
		return chatuc.Answer{Text: chatuc.Refusal, Blocked: true}, nil
	}}
	h := newTestHandler(NewServer(&mockSearcher{}, a, &mockHealth{}, nil))

	rr := do(t, h, http.MethodPost, "/v1/chat", `{"message":"bad"}`)
	var resp ChatResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Blocked || resp.Answer != chatuc.Refusal || resp.Documents == nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChat_Validation(t *testing.T) {
	a := &mockAsker{askFn: func(context.Context, chatuc.Request) (chatuc.Answer, error) {
		t.Fatal("ask must not be called")
		return chatuc.Answer{}, nil
	}}
	h := newTestHandler(NewServer(&mockSearcher{}, a, &mockHealth{}, nil))

	for _, body := range []string{`{`, `{"message":""}`} {
		rr := do(t, h, http.MethodPost, "/v1/chat", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestChat_Disabled_501(t *testing.T) {
	h := newTestHandler(NewServer(&mockSearcher{}, nil, &mockHealth{}, nil))
	rr := do(t, h, http.MethodPost, "/v1/chat", `{"message":"hi"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rr.Code)
	}
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		hc := &mockHealth{report: healthuc.Report{
			Status: tt.status,
			Checks: map[string]healthuc.CheckResult{"vector_store": healthuc.CheckOK},
		}}
		h := newTestHandler(NewServer(&mockSearcher{}, nil, hc, nil))

		rr := do(t, h, http.MethodGet, "/health", "")
		if rr.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.status, rr.Code, tt.want)
		}
		var resp HealthResponse
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Status != string(tt.status) || resp.Checks["vector_store"] != "ok" {
			t.Errorf("%s: resp = %+v", tt.status, resp)
		}
	}
}
