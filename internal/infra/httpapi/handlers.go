// internal/infra/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
	"gift_delivery_bot/internal/infra/export"
	"gift_delivery_bot/internal/infra/importer"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 10 << 20

// Handler exposes the roster over HTTP.
type Handler struct {
	roster   *app.RosterService
	reporter *export.Reporter
	logger   *logrus.Entry
}

func NewHandler(roster *app.RosterService, reporter *export.Reporter, logger *logrus.Entry) *Handler {
	return &Handler{roster: roster, reporter: reporter, logger: logger}
}

// ListMembers handles GET /api/members?q=&filter=&agency=.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind, err := member.ParseFilterKind(query.Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: err.Error()})
		return
	}
	criteria := member.Criteria{Kind: kind, Agency: query.Get("agency")}

	var seq iter.Seq[member.Member]
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		found, err := h.roster.Search(r.Context(), q)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		seq = func(yield func(member.Member) bool) {
			for m := range found {
				if criteria.Matches(m) && !yield(m) {
					return
				}
			}
		}
	} else {
		seq, err = h.roster.FilterBy(r.Context(), criteria)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	resp := memberListResponse{Members: make([]memberResponse, 0)}
	for m := range seq {
		resp.Members = append(resp.Members, toResponse(m))
	}
	resp.Count = len(resp.Members)
	writeJSON(w, http.StatusOK, resp)
}

// GetMember handles GET /api/members/{id}.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r)
	if !ok {
		return
	}
	m, err := h.roster.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*m))
}

// CreateMember handles POST /api/members.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "invalid JSON body"})
		return
	}

	m := member.Member{
		Cedula:        req.Cedula,
		NameFirst:     req.NameFirst,
		NameSecond:    req.NameSecond,
		SurnameFirst:  req.SurnameFirst,
		SurnameSecond: req.SurnameSecond,
		Agency:        req.Agency,
		Company:       req.Company,
		Notes:         req.Notes,
	}
	if req.Status != "" {
		st, err := member.ParseStatus(req.Status)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		m.Status = st
	}

	created, err := h.roster.Add(r.Context(), m, actor(r, ""))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(*created))
}

// EditMember handles PATCH /api/members/{id} with a JSON object of field name to value.
func (h *Handler) EditMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r)
	if !ok {
		return
	}
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "body must be a JSON object of string fields"})
		return
	}
	updates := make(app.Updates, len(body))
	for k, v := range body {
		updates[member.Field(k)] = v
	}

	m, err := h.roster.Edit(r.Context(), id, updates, actor(r, ""))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*m))
}

// DeliverMember handles POST /api/members/{id}/deliver.
func (h *Handler) DeliverMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r)
	if !ok {
		return
	}
	var req deliverRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "invalid JSON body"})
			return
		}
	}

	m, err := h.roster.MarkDelivered(r.Context(), id, actor(r, req.Actor))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*m))
}

// Stats handles GET /api/stats; with by=agency it returns the per-agency summary.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("by") {
	case "":
		stats, err := h.roster.Statistics(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case "agency":
		agencies, err := h.roster.AgencySummary(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, agencySummaryResponse{Agencies: agencies})
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "by must be empty or \"agency\""})
	}
}

// History handles GET /api/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	delivered, err := h.roster.History(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := memberListResponse{Members: make([]memberResponse, 0, len(delivered)), Count: len(delivered)}
	for _, m := range delivered {
		resp.Members = append(resp.Members, toResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Import handles POST /api/import with a multipart "file" field (CSV or XLSX).
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	src, err := importer.Read(header.Filename, file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: err.Error()})
		return
	}

	res, err := h.roster.Import(r.Context(), src, app.DetectColumns(src.Columns))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResponse(res))
}

// ExportCSV handles GET /api/export.csv.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="roster-`+time.Now().Format("20060102")+`.csv"`)
	if err := h.reporter.CSV(r.Context(), w); err != nil {
		h.logger.WithError(err).Error("Failed to export csv")
	}
}

// ReportPDF handles GET /api/report.pdf.
func (h *Handler) ReportPDF(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+time.Now().Format("20060102")+`.pdf"`)
	if err := h.reporter.PDF(r.Context(), w); err != nil {
		h.logger.WithError(err).Error("Failed to render pdf report")
	}
}

// ClearMembers handles DELETE /api/members?confirm=yes.
func (h *Handler) ClearMembers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "clearing the roster requires confirm=yes"})
		return
	}
	if err := h.roster.Clear(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func memberID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: "member id must be a number"})
		return 0, false
	}
	return id, true
}

// actor prefers an explicit value, then the X-Actor header.
func actor(r *http.Request, explicit string) string {
	if a := strings.TrimSpace(explicit); a != "" {
		return a
	}
	return strings.TrimSpace(r.Header.Get("X-Actor"))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: member.Kind(err), Message: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrEmptySearchTerm):
		status, resp.Error = http.StatusBadRequest, "BadRequest"
	case errors.Is(err, member.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, member.ErrDuplicateKey), errors.Is(err, member.ErrAlreadyDelivered):
		status = http.StatusConflict
	case errors.Is(err, member.ErrSchema):
		status = http.StatusUnprocessableEntity
		var schemaErr *member.SchemaError
		if errors.As(err, &schemaErr) {
			resp.Missing = schemaErr.Missing
		}
	case errors.Is(err, member.ErrValidation):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		resp = errorResponse{Error: "Internal", Message: "Internal server error"}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
