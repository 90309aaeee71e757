package http

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"expirygenie/internal/core"
	"expirygenie/internal/gemini"
)

// maxImageBytes caps uploaded photos at 10 MB.
const maxImageBytes = 10 << 20

// handleExtractVoice turns a transcribed voice note into item drafts
// and renders the confirmation preview.
func (s *Server) handleExtractVoice(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.extractor == nil {
		ErrorResponse(http.StatusServiceUnavailable, "AI extraction is not configured").Write(w)
		return
	}

	// HTMX posts a form; API clients may post JSON.
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	transcript := parser.Get("transcript")
	if transcript == "" {
		UnprocessableEntityError("Nothing to extract: empty transcript").Write(w)
		return
	}

	drafts, err := s.extractor.ExtractFromText(r.Context(), transcript, core.Today())
	if err != nil {
		slog.ErrorContext(r.Context(), "Voice extraction failed", "email", email, "error", err)
		InternalServerError("Could not understand that. Try rephrasing.").Write(w)
		return
	}

	s.renderExtractPreview(w, r, email, drafts, core.MethodVoice)
}

// handleExtractImage runs the vision model over an uploaded photo,
// receipt or barcode shot.
func (s *Server) handleExtractImage(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.extractor == nil {
		ErrorResponse(http.StatusServiceUnavailable, "AI extraction is not configured").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		BadRequestError("Image too large or malformed upload").Write(w)
		return
	}

	kind := gemini.ImageKind(r.FormValue("kind"))
	if !kind.Valid() {
		kind = gemini.ImagePhoto
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		BadRequestError("Missing image upload").Write(w)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		InternalServerError("Could not read image").Write(w)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		UnprocessableEntityError("Upload must be an image").Write(w)
		return
	}

	drafts, err := s.extractor.ExtractFromImage(r.Context(), data, mimeType, kind, core.Today())
	if err != nil {
		slog.ErrorContext(r.Context(), "Image extraction failed",
			"email", email, "kind", string(kind), "error", err)
		InternalServerError("Could not read any items from that image.").Write(w)
		return
	}

	s.renderExtractPreview(w, r, email, drafts, core.MethodImage)
}

// previewItem is an item draft row plus its duplicate flag.
type previewItem struct {
	itemView
	Duplicate bool
}

// renderExtractPreview shows editable drafts; confirming posts them to
// /items/bulk. Drafts that look like repeat purchases are flagged.
func (s *Server) renderExtractPreview(w http.ResponseWriter, r *http.Request, email string, drafts []core.FoodItem, method core.AddedMethod) {
	if len(drafts) == 0 {
		NewHTMXResponse().
			BodyHTML(`<div class="warning">No food items found. Add them manually instead.</div>`).
			Write(w)
		return
	}

	report := s.duplicateReport(r, email, drafts)
	dup := make(map[string]bool, len(report.Duplicates))
	for _, name := range report.Duplicates {
		dup[strings.ToLower(name)] = true
	}

	rows := make([]previewItem, 0, len(drafts))
	for _, view := range makeItemViews(drafts, core.Today(), s.soonWindow) {
		rows = append(rows, previewItem{
			itemView:  view,
			Duplicate: dup[strings.ToLower(view.Name)],
		})
	}

	data := struct {
		Items           []previewItem
		Method          core.AddedMethod
		Categories      []string
		Recommendations []string
	}{
		Items:           rows,
		Method:          method,
		Categories:      core.Categories,
		Recommendations: report.Recommendations,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "extract_preview.html", data)
}

// duplicateReport checks drafts against the user's inventory. The
// preview renders fine without it, so any failure just logs.
func (s *Server) duplicateReport(r *http.Request, email string, drafts []core.FoodItem) gemini.DuplicateReport {
	if s.advisor == nil {
		return gemini.DuplicateReport{}
	}

	existing, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.WarnContext(r.Context(), "Duplicate check item load failed", "email", email, "error", err)
		return gemini.DuplicateReport{}
	}
	if len(existing) == 0 {
		return gemini.DuplicateReport{}
	}

	report, err := s.advisor.DetectDuplicates(r.Context(), drafts, existing)
	if err != nil {
		slog.WarnContext(r.Context(), "Duplicate check failed", "email", email, "error", err)
		return gemini.DuplicateReport{}
	}
	return report
}
