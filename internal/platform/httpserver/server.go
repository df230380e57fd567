package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	demandservice "subroflow/contexts/subrogation/demand-service"
	application "subroflow/contexts/subrogation/demand-service/application"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	httptransport "subroflow/contexts/subrogation/demand-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "subroflow/internal/platform/httpserver/docs"
)

const maxUploadRequestBytes = 52 << 20

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	demand demandservice.Module
}

func New(demand demandservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		demand: demand,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for httptest-driven tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/cases", s.handleCreateCase)
	s.mux.HandleFunc("GET /api/v1/cases", s.handleListCases)
	s.mux.HandleFunc("GET /api/v1/cases/{case_id}", s.handleGetCase)
	s.mux.HandleFunc("PUT /api/v1/cases/{case_id}/status", s.handleUpdateCaseStatus)
	s.mux.HandleFunc("GET /api/v1/cases/{case_id}/packages", s.handleListPackages)

	s.mux.HandleFunc("POST /api/v1/packages", s.handleCreatePackage)
	s.mux.HandleFunc("GET /api/v1/packages/{package_id}", s.handleGetPackage)
	s.mux.HandleFunc("POST /api/v1/packages/{package_id}/generate", s.handleGeneratePackage)
	s.mux.HandleFunc("POST /api/v1/packages/{package_id}/send", s.handleSendPackage)

	s.mux.HandleFunc("POST /api/v1/packages/{package_id}/documents", s.handleAddDocument)
	s.mux.HandleFunc("POST /api/v1/packages/{package_id}/documents/upload", s.handleUploadDocument)
	s.mux.HandleFunc("PUT /api/v1/packages/{package_id}/documents/order", s.handleReorderDocuments)
	s.mux.HandleFunc("DELETE /api/v1/documents/{document_id}", s.handleDeleteDocument)

	s.mux.HandleFunc("GET /api/v1/packages/{package_id}/communications", s.handleListCommunications)
	s.mux.HandleFunc("GET /api/v1/communications/{communication_id}", s.handleGetCommunication)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req httptransport.CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.demand.Handler.CreateCaseHandler(r.Context(), identity, suppliedTenant(r), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	offset, limit := 0, 0
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		offset = parsed
	}
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.demand.Handler.ListCasesHandler(r.Context(), identity, suppliedTenant(r), offset, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resp, err := s.demand.Handler.GetCaseHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("case_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateCaseStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req httptransport.UpdateCaseStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.demand.Handler.UpdateCaseStatusHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("case_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resp, err := s.demand.Handler.ListPackagesHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("case_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req httptransport.CreatePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.demand.Handler.CreatePackageHandler(r.Context(), identity, suppliedTenant(r), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	withDocuments := strings.Contains(r.URL.Query().Get("include"), "documents")
	resp, err := s.demand.Handler.GetPackageHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("package_id"), withDocuments)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGeneratePackage accepts the request and hands it to the queue; 202
// signals the asynchronous boundary.
func (s *Server) handleGeneratePackage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resp, err := s.demand.Handler.GeneratePackageHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("package_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleSendPackage(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req httptransport.SendPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.demand.Handler.SendPackageHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("package_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req httptransport.AddDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.demand.Handler.AddDocumentHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("package_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequestBytes)
	if err := r.ParseMultipartForm(maxUploadRequestBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "upload exceeds the size limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "multipart field 'file' is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_file", "could not read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	resp, err := s.demand.Handler.UploadDocumentHandler(
		r.Context(),
		identity,
		suppliedTenant(r),
		r.PathValue("package_id"),
		header.Filename,
		contentType,
		content,
		r.FormValue("document_name"),
		r.FormValue("kind"),
		r.FormValue("is_sensitive") == "true",
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleReorderDocuments(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req httptransport.ReorderDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.demand.Handler.ReorderDocumentsHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("package_id"), req); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := s.demand.Handler.DeleteDocumentHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("document_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCommunications(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resp, err := s.demand.Handler.ListCommunicationsHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("package_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCommunication(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	resp, err := s.demand.Handler.GetCommunicationHandler(r.Context(), identity, suppliedTenant(r), r.PathValue("communication_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (application.Identity, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return application.Identity{}, false
	}
	return application.Identity{
		UserID:   userID,
		TenantID: strings.TrimSpace(r.Header.Get("X-Tenant-Id")),
	}, true
}

// suppliedTenant is the caller-provided tenant id; the claim header wins
// over it inside the application layer.
func suppliedTenant(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("tenant_id"))
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrCaseNotFound):
		writeError(w, http.StatusNotFound, "case_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrPackageNotFound):
		writeError(w, http.StatusNotFound, "package_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrCommunicationNotFound):
		writeError(w, http.StatusNotFound, "communication_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, "tenant_mismatch", err.Error())
	case errors.Is(err, domainerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domainerrors.ErrPackageNotGenerated):
		writeError(w, http.StatusConflict, "package_not_generated", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domainerrors.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())
	case errors.Is(err, domainerrors.ErrUnsupportedFileType):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_file_type", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
