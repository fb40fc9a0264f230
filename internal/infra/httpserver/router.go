package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/polycode-insight/internal/application/analysis"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/middleware"
	"github.com/bryanwahyu/polycode-insight/internal/report"
)

// StatusClientClosedRequest is returned for cancelled submissions.
const StatusClientClosedRequest = 499

type Options struct {
	AllowedOrigins []string
	// APIKeys maps tenant to key; empty disables auth.
	APIKeys        map[string]string
	RateCapacity   int
	RateRefill     int // per minute
	MaxCodeBytes   int64
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	svc          *appanalysis.Service
	maxCodeBytes int64
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	r := &Router{svc: svc, maxCodeBytes: opts.MaxCodeBytes}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "apikey"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateCapacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(opts.RateCapacity, opts.RateRefill))
	}
	mux.Use(middleware.MaxBodyBytes(opts.MaxCodeBytes))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler(svc.InFlight))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Get("/v1/languages", r.wrap(r.handleLanguages))

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/summary", r.wrap(r.handleSummary))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/analyses/{id}/report", r.wrap(r.handleReport))
		rt.Delete("/analyses/{id}", r.wrap(r.handleCancel))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// requestError is a malformed HTTP request, before any domain rule runs.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Error    string           `json:"error"`
	Kind     domain.ErrorKind `json:"kind,omitempty"`
	Category domain.Category  `json:"category,omitempty"`
	Advice   string           `json:"advice,omitempty"`
	ID       string           `json:"id,omitempty"`
}

func newErrorBody(err error, id domain.SubmissionID) errorBody {
	cat, advice := domain.Advise(err)
	return errorBody{Error: err.Error(), Kind: domain.KindOf(err), Category: cat, Advice: advice, ID: string(id)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err, "")
		}
	}
}

func writeError(w http.ResponseWriter, err error, id domain.SubmissionID) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), ID: string(id)}
	var re *requestError
	if !errors.As(err, &re) && status != http.StatusNotFound && status != http.StatusNotImplemented {
		body = newErrorBody(err, id)
	}
	if status >= 500 && status != http.StatusNotImplemented {
		log.Printf("[Router] request failed status=%d kind=%s: %v", status, body.Kind, err)
	}
	writeJSON(w, status, body)
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var (
		re *requestError
		ve *domain.ValidationError
		te *domain.TransportError
		ae *domain.AggregateError
	)
	switch {
	case errors.As(err, &re):
		return re.status
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appanalysis.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusBadGateway
	case errors.As(err, &te):
		switch {
		case te.Kind == domain.KindTimeout:
			return http.StatusGatewayTimeout
		case te.Transient():
			return http.StatusBadGateway
		default:
			return http.StatusServiceUnavailable
		}
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /v1/languages
func (r *Router) handleLanguages(w http.ResponseWriter, req *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]any{"languages": domain.SupportedLanguages()})
	return nil
}

// analyzeBody accepts both "code" and "sourceCode" for the source text.
type analyzeBody struct {
	Code            string   `json:"code"`
	SourceCode      string   `json:"sourceCode"`
	SourceLanguage  string   `json:"sourceLanguage"`
	TargetLanguages []string `json:"targetLanguages"`
}

func (b analyzeBody) request() domain.AnalysisRequest {
	code := b.SourceCode
	if code == "" {
		code = b.Code
	}
	return domain.AnalysisRequest{
		SourceCode:      code,
		SourceLanguage:  b.SourceLanguage,
		TargetLanguages: b.TargetLanguages,
	}
}

// POST /v1/{tenant}/analyses
// Body: {"sourceCode": "...", "sourceLanguage": "Python", "targetLanguages": ["Go"]}
// With "Accept: text/event-stream" every state transition is streamed before the result.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body analyzeBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var mb *http.MaxBytesError
		if errors.As(err, &mb) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: err.Error()}
		}
		return badRequest("invalid JSON body: %v", err)
	}
	areq := body.request()
	if err := middleware.ValidateCodeSize(areq.SourceCode, r.maxCodeBytes); err != nil {
		return &requestError{status: http.StatusRequestEntityTooLarge, msg: err.Error()}
	}

	if strings.Contains(req.Header.Get("Accept"), "text/event-stream") {
		if f, ok := w.(http.Flusher); ok {
			return r.streamAnalyze(w, req, f, tenant, areq)
		}
	}

	rec, err := r.analyze(req, tenant, areq, nil)
	if err != nil {
		writeError(w, err, rec.ID)
		return nil
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

func (r *Router) analyze(req *http.Request, tenant string, areq domain.AnalysisRequest, observe appanalysis.Observer) (*domain.Submission, error) {
	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	rec, err := r.svc.Analyze(req.Context(), tenant, areq, observe)
	middleware.RecordAnalysisOutcome(string(rec.Status), errors.Is(err, domain.ErrCancelled))
	return rec, err
}

// streamAnalyze writes server-sent events: "submitted", one "state" per transition,
// then "result" or "error".
func (r *Router) streamAnalyze(w http.ResponseWriter, req *http.Request, f http.Flusher, tenant string, areq domain.AnalysisRequest) error {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	announced := false
	observe := func(id domain.SubmissionID, ev domain.Event) {
		if !announced {
			announced = true
			writeEvent(w, "submitted", map[string]string{"id": string(id)})
		}
		writeEvent(w, "state", ev)
		f.Flush()
	}

	rec, err := r.analyze(req, tenant, areq, observe)
	if err != nil {
		writeEvent(w, "error", newErrorBody(err, rec.ID))
	} else {
		writeEvent(w, "result", rec)
	}
	f.Flush()
	return nil
}

func writeEvent(w http.ResponseWriter, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Router] encode %s event: %v", name, err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

// GET /v1/{tenant}/analyses?page=1&page_size=20
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	q := req.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return badRequest("invalid page number")
		}
		page = n
	}
	pageSize := 0
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return badRequest("invalid page size")
		}
		pageSize = n
	}

	res, err := r.svc.List(req.Context(), tenant, page, middleware.ValidateLimit(pageSize))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/{tenant}/analyses/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days := 7
	if v := req.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return badRequest("invalid days")
		}
		days = n
	}
	sum, err := r.svc.Summary(req.Context(), tenant, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, sum)
	return nil
}

func submissionID(req *http.Request) (domain.SubmissionID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSubmissionID(id); err != nil {
		return "", badRequest("%v", err)
	}
	return domain.SubmissionID(id), nil
}

// GET /v1/{tenant}/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := submissionID(req)
	if err != nil {
		return err
	}
	sub, err := r.svc.Get(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, sub)
	return nil
}

// GET /v1/{tenant}/analyses/{id}/report
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := submissionID(req)
	if err != nil {
		return err
	}
	sub, err := r.svc.Get(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = w.Write(report.HTML(sub))
	return err
}

// DELETE /v1/{tenant}/analyses/{id} cancels an in-flight submission
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id, err := submissionID(req)
	if err != nil {
		return err
	}
	if !r.svc.Cancel(chi.URLParam(req, "tenant"), id) {
		return fmt.Errorf("no running submission %s: %w", id, domain.ErrNotFound)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "cancelled": true})
	return nil
}
