package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsdex/internal/domain"
	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/export"
	logpkg "github.com/kailas-cloud/cmsdex/internal/logger"
	"github.com/kailas-cloud/cmsdex/internal/transport/chi/validation"
	healthuc "github.com/kailas-cloud/cmsdex/internal/usecase/health"
)

// Client-facing messages. Internal causes never reach the response body.
const (
	msgServerError = "Unknown server-side error."
	msgExportError = "Error creating XLS"
	msgInvalidBody = "The request body is invalid."
	msgInvalidEnd  = "The end must be a date after or equal to start."
	msgRangeTooBig = "The date range is too large."
	msgNotFound    = "Not found."
	msgBadMethod   = "Method not allowed."
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the CMS record API.
type Server struct {
	ingest        Ingestor
	search        Searcher
	exporter      Exporter
	health        HealthChecker
	validator     *validation.Validator
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest Ingestor,
	search Searcher,
	exporter Exporter,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ingest:    ingest,
		search:    search,
		exporter:  exporter,
		health:    health,
		validator: validation.New(),
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		invalidRangeHandler,
		dispatchHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, msgNotFound),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessages(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessages(w, http.StatusMethodNotAllowed, msgBadMethod)
	})

	r.Route("/api/cms", func(r chi.Router) {
		r.Post("/", s.ScheduleIngest)
		r.Get("/", s.SearchRecords)
		r.Get("/file", s.ExportRecords)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type ingestRequest struct {
	Start string `json:"start" validate:"required,cmsdate"`
	End   string `json:"end,omitempty" validate:"omitempty,cmsdate"`
}

type ingestResponse struct {
	DatesToFetch []string `json:"dates_to_fetch"`
}

type searchParams struct {
	Keyword string `json:"keyword" validate:"notblank,max=256"`
}

type messagesResponse struct {
	Messages    []string `json:"messages"`
	FailedDates []string `json:"failed_dates,omitempty"`
}

// ScheduleIngest handles POST /api/cms.
func (s *Server) ScheduleIngest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeIngestRequest(w, r)
	if err != nil {
		writeMessages(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	// Both values passed cmsdate, so Parse cannot fail here.
	start, _ := day.Parse(req.Start)
	var end *day.Day
	if req.End != "" {
		e, _ := day.Parse(req.End)
		end = &e
	}

	days, err := s.ingest.Schedule(r.Context(), start, end)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{DatesToFetch: day.Strings(days)})
}

// SearchRecords handles GET /api/cms.
func (s *Server) SearchRecords(w http.ResponseWriter, r *http.Request) {
	params, err := s.bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	records, err := s.search.Search(r.Context(), params.Keyword)
	if err != nil {
		if !errors.Is(err, domain.ErrSearchBackend) {
			s.handleDomainError(w, r, err)
			return
		}
		logpkg.FromContext(r.Context()).Error("Unknown exception during search",
			zap.String("keyword", params.Keyword),
			zap.Error(err),
		)
		writeMessages(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// ExportRecords handles GET /api/cms/file.
func (s *Server) ExportRecords(w http.ResponseWriter, r *http.Request) {
	params, err := s.bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, log := logpkg.With(r.Context(), zap.String("keyword", params.Keyword))
	lc := export.NewLifecycle(log)
	_ = lc.Advance(export.StateQueried)

	art, err := s.exporter.Build(ctx, params.Keyword, s.search.Stream(ctx, params.Keyword))
	if err != nil {
		lc.Fail(err)
		if errors.Is(err, domain.ErrSearchBackend) {
			log.Error("Unknown exception during search", zap.Error(err))
		} else {
			log.Error("Exception building XLS", zap.Error(err))
		}
		writeMessage(w, http.StatusInternalServerError, msgExportError)
		return
	}
	_ = lc.Advance(export.StateBuilt)

	sent := false
	defer func() {
		if !sent {
			lc.Fail(errors.New("delivery aborted"))
		}
		if err := art.Release(); err != nil {
			log.Error("Failed to remove export", zap.String("path", art.Path), zap.Error(err))
		}
		_ = lc.Advance(export.StateCleaned)
	}()

	if err := sendArtifact(w, art); err != nil {
		log.Warn("Export delivery failed", zap.String("file", art.Name), zap.Error(err))
		return
	}
	sent = true
	_ = lc.Advance(export.StateSent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	}
	if report.QueueDepth != nil {
		resp["queue_depth"] = *report.QueueDepth
	}
	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeIngestRequest accepts a JSON body, or form/query values like a classic form post.
func decodeIngestRequest(w http.ResponseWriter, r *http.Request) (ingestRequest, error) {
	var req ingestRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			return ingestRequest{}, fmt.Errorf("decode body: %w", err)
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return ingestRequest{}, fmt.Errorf("parse form: %w", err)
	}
	req.Start = r.Form.Get("start")
	req.End = r.Form.Get("end")
	return req, nil
}

func (s *Server) bindSearchParams(r *http.Request) (searchParams, error) {
	var p searchParams
	if err := runtime.BindQueryParameter("form", true, false, "keyword", r.URL.Query(), &p.Keyword); err != nil {
		return searchParams{}, &validation.Error{Messages: []string{"The keyword is invalid."}}
	}
	p.Keyword = strings.TrimSpace(p.Keyword)
	if err := s.validator.Struct(p); err != nil {
		return searchParams{}, err
	}
	return p, nil
}

func sendArtifact(w http.ResponseWriter, art *export.Artifact) error {
	f, err := art.Open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}

	h := w.Header()
	h.Set("Content-Type", export.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	h.Set("Content-Length", strconv.FormatInt(st.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("stream artifact: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessages(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, messagesResponse{Messages: messages})
}

// writeMessage keeps the file endpoint's scalar "messages" shape.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"messages": message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeMessages(w, status, msg)
		return true
	}
}

// validationHandler surfaces field messages as they are.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *validation.Error
	if errors.As(err, &ve) {
		writeMessages(w, http.StatusBadRequest, ve.Messages...)
		return true
	}
	if errors.Is(err, domain.ErrValidation) {
		writeMessages(w, http.StatusBadRequest, "The request is invalid.")
		return true
	}
	return false
}

func invalidRangeHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidRange) {
		return false
	}
	var tooWide *domain.RangeTooWideError
	if errors.As(err, &tooWide) {
		writeMessages(w, http.StatusBadRequest,
			fmt.Sprintf("%s At most %d days may be requested at once.", msgRangeTooBig, tooWide.Max))
		return true
	}
	writeMessages(w, http.StatusBadRequest, msgInvalidEnd)
	return true
}

// dispatchHandler reports which days must be resubmitted.
func dispatchHandler(w http.ResponseWriter, err error) bool {
	var de *domain.DispatchError
	if !errors.As(err, &de) {
		return false
	}
	writeJSON(w, http.StatusInternalServerError, messagesResponse{
		Messages:    []string{msgServerError},
		FailedDates: de.Failed,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidRange) {
				log.Debug("client error", zap.Error(err))
			} else {
				log.Warn("domain error", zap.Error(err))
			}
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeMessages(w, http.StatusInternalServerError, msgServerError)
}
