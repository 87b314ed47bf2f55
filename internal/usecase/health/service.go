package health

import (
	"context"

	"github.com/kailas-cloud/prodrag/internal/domain/collection"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers with reduced quality.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable and no query can succeed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing marks optional data that was not loaded.
	CheckMissing CheckResult = "missing"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store      StorePinger
	embedding  EmbeddingChecker
	vocabulary bool
	withVocab  bool

	colls CollectionChecker
	names collection.Set
}

// New creates a Service. embedding can be nil.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// WithVocabulary reports whether the filterable vocabulary was loaded at startup.
// Without it brand and category filtering is off, which degrades the service.
func (s *Service) WithVocabulary(loaded bool) *Service {
	s.withVocab = true
	s.vocabulary = loaded
	return s
}

// WithCollections checks that each named collection exists. A missing one means
// every query against it returns nothing, so it degrades the service.
func (s *Service) WithCollections(c CollectionChecker, names collection.Set) *Service {
	s.colls = c
	s.names = names
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeOK := s.store.Ping(ctx) == nil
	checks["vector_store"] = result(storeOK)

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx) == nil)
	}

	if s.withVocab {
		if s.vocabulary {
			checks["vocabulary"] = CheckOK
		} else {
			checks["vocabulary"] = CheckMissing
		}
	}

	if !storeOK {
		return Report{Status: Unhealthy, Checks: checks}
	}

	if s.colls != nil {
		for _, name := range s.names {
			checks["collection_"+name.String()] = s.collection(ctx, name)
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) collection(ctx context.Context, name collection.Name) CheckResult {
	ok, err := s.colls.Exists(ctx, name)
	switch {
	case err != nil:
		return CheckError
	case !ok:
		return CheckMissing
	default:
		return CheckOK
	}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
