package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/shelf-api/internal/api/shared"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/query"
	"github.com/phrazzld/shelf-api/internal/redact"
)

// QueryExecutor runs one query request. *query.Executor implements it.
type QueryExecutor interface {
	Execute(ctx context.Context, req query.Request) (*query.Response, error)
}

var _ QueryExecutor = (*query.Executor)(nil)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query         string         `json:"query" validate:"required,notblank"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// QueryHandler serves the query endpoint.
type QueryHandler struct {
	executor QueryExecutor
	logger   *slog.Logger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(executor QueryExecutor, logger *slog.Logger) *QueryHandler {
	if executor == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("executor cannot be nil for QueryHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for QueryHandler")
	}

	return &QueryHandler{
		executor: executor,
		logger:   logger.With(slog.String("component", "query_handler")),
	}
}

// Post handles POST /api/query. Both queries and mutations are accepted.
func (h *QueryHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.execute(w, r, req, false)
}

// Get handles GET /api/query?query=...&variables=...&operationName=...
// Mutations are refused with 405.
func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := QueryRequest{
		Query:         params.Get("query"),
		OperationName: params.Get("operationName"),
	}
	if raw := params.Get("variables"); raw != "" {
		if err := shared.DecodeJSONString(raw, &req.Variables); err != nil {
			h.respondInvalid(w, r, "variables must be a JSON object", err)
			return
		}
	}

	h.execute(w, r, req, true)
}

func (h *QueryHandler) execute(w http.ResponseWriter, r *http.Request, req QueryRequest, readOnly bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := shared.ValidateRequest(&req); err != nil {
		h.respondInvalid(w, r, "query is required", err)
		return
	}

	resp, err := h.executor.Execute(r.Context(), query.Request{
		Query:         req.Query,
		Variables:     req.Variables,
		OperationName: req.OperationName,
		ReadOnly:      readOnly,
	})

	status := MapErrorToStatusCode(err)
	if err != nil {
		log.LogAttrs(r.Context(), shared.LogLevelFor(status), "query request failed",
			slog.String("trace_id", shared.GetTraceID(r.Context())),
			slog.Int("status_code", status),
			slog.String("error", redact.Error(err)))
	}
	if status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}

	shared.RespondWithJSON(w, r, status, resp)
}

// respondInvalid answers a malformed request in the query response shape.
func (h *QueryHandler) respondInvalid(w http.ResponseWriter, r *http.Request, message string, err error) {
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("query request rejected",
		slog.String("trace_id", shared.GetTraceID(r.Context())),
		slog.String("reason", message),
		slog.String("error", redact.Error(err)))

	shared.RespondWithJSON(w, r, http.StatusBadRequest, &query.Response{
		Errors: []*query.Error{{
			Message:    message,
			Extensions: query.ErrorExtensions{Code: query.CodeValidationFailed},
		}},
	})
}
