package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hpungsan/meishi/internal/blob"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/extract"
	"github.com/hpungsan/meishi/internal/ops"
	"github.com/hpungsan/meishi/internal/record"
	"github.com/hpungsan/meishi/internal/state"
)

// Handlers contains HTTP route handlers for the API.
type Handlers struct {
	st      *state.State
	svc     extract.Service
	images  blob.Store
	cfg     *config.Config
	version string
}

// NewHandlers creates a new Handlers instance. images may be nil.
func NewHandlers(st *state.State, svc extract.Service, images blob.Store, cfg *config.Config, version string) *Handlers {
	if svc == nil {
		svc = extract.Unconfigured{}
	}
	return &Handlers{st: st, svc: svc, images: images, cfg: cfg, version: version}
}

// maxBody is the request size limit for JSON bodies and uploads.
func (h *Handlers) maxBody() int64 {
	mb := h.cfg.MaxUploadMB
	if mb <= 0 {
		mb = config.DefaultConfig().MaxUploadMB
	}
	return int64(mb) << 20
}

// decodeBody reads a JSON request body into v.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBody())
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if err == io.EOF {
			return errors.NewInvalidRequest("request body is required")
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": h.version})
}

// imagesRequest is the body of the extraction endpoints.
type imagesRequest struct {
	Images []string `json:"images"`
}

// readImages decodes an imagesRequest into images.
func (h *Handlers) readImages(w http.ResponseWriter, r *http.Request) ([]extract.Image, error) {
	var req imagesRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	return extract.ParseDataURLs(req.Images)
}

// saveImages stores images when object storage is configured.
// A storage failure is returned as a warning; the extraction result is still usable.
func (h *Handlers) saveImages(r *http.Request, images []extract.Image) ([]string, string) {
	if h.images == nil {
		return nil, ""
	}
	keys, err := blob.SaveImages(r.Context(), h.images, h.st.Now(), images)
	if err != nil {
		slog.Warn("image upload failed", "stored", len(keys), "error", err)
		return keys, err.Error()
	}
	return keys, ""
}

// HandleExtractContact handles POST /api/extract/contact.
// The body carries the front and optionally the back of one card as data URLs.
func (h *Handlers) HandleExtractContact(w http.ResponseWriter, r *http.Request) {
	images, err := h.readImages(w, r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	c, err := h.svc.ExtractContact(r.Context(), images)
	if err != nil {
		renderError(w, r, err)
		return
	}

	keys, warning := h.saveImages(r, images)
	if len(keys) > 0 {
		c.ImageURL = record.String(keys[0])
	}
	if len(keys) > 1 {
		c.ImageURLBack = record.String(keys[1])
	}

	resp := map[string]any{"contact": c, "imageUrls": keysOrEmpty(keys)}
	if warning != "" {
		resp["warning"] = warning
	}
	renderJSON(w, http.StatusOK, resp)
}

// HandleExtractPolicy handles POST /api/extract/policy.
func (h *Handlers) HandleExtractPolicy(w http.ResponseWriter, r *http.Request) {
	images, err := h.readImages(w, r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	fields, err := h.svc.ExtractPolicy(r.Context(), images)
	if err != nil {
		renderError(w, r, err)
		return
	}

	keys, warning := h.saveImages(r, images)
	resp := map[string]any{"fields": fields, "imageUrls": keysOrEmpty(keys)}
	if warning != "" {
		resp["warning"] = warning
	}
	renderJSON(w, http.StatusOK, resp)
}

func keysOrEmpty(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

// HandleSummarize handles POST /api/summarize.
func (h *Handlers) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	summary, err := h.svc.Summarize(r.Context(), req.Text)
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"html":    string(renderMarkdown(summary)),
	})
}

// HandleListContacts handles GET /api/contacts.
func (h *Handlers) HandleListContacts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "contacts")
}

// HandleListPolicies handles GET /api/policies.
func (h *Handlers) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "policies")
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, kind string) {
	result, err := ops.List(h.st, ops.ListInput{
		Kind:   kind,
		Query:  r.URL.Query().Get("q"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleRecentContacts handles GET /api/contacts/recent.
func (h *Handlers) HandleRecentContacts(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"items": ops.Recent(h.st)})
}

// HandleFetchContact handles GET /api/contacts/{id}.
func (h *Handlers) HandleFetchContact(w http.ResponseWriter, r *http.Request) {
	result, err := ops.FetchContact(r.Context(), h.st, r.PathValue("id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleCreateContact handles POST /api/contacts.
func (h *Handlers) HandleCreateContact(w http.ResponseWriter, r *http.Request) {
	var c record.Contact
	if err := h.decodeBody(w, r, &c); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.CreateContact(r.Context(), h.st, c)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleUpdateContact handles PUT /api/contacts/{id}.
func (h *Handlers) HandleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var c record.Contact
	if err := h.decodeBody(w, r, &c); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.UpdateContact(r.Context(), h.st, r.PathValue("id"), c)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDeleteContact handles DELETE /api/contacts/{id}.
func (h *Handlers) HandleDeleteContact(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "contacts")
}

// HandleDeletePolicy handles DELETE /api/policies/{id}.
func (h *Handlers) HandleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "policies")
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request, kind string) {
	result, err := ops.Delete(r.Context(), h.st, ops.DeleteInput{Kind: kind, ID: r.PathValue("id")})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleFetchPolicy handles GET /api/policies/{id}.
func (h *Handlers) HandleFetchPolicy(w http.ResponseWriter, r *http.Request) {
	result, err := ops.FetchPolicy(h.st, r.PathValue("id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleCreatePolicy handles POST /api/policies.
func (h *Handlers) HandleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var p record.Policy
	if err := h.decodeBody(w, r, &p); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.CreatePolicy(r.Context(), h.st, p)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleUpdatePolicy handles PUT /api/policies/{id}.
func (h *Handlers) HandleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var p record.Policy
	if err := h.decodeBody(w, r, &p); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.UpdatePolicy(r.Context(), h.st, r.PathValue("id"), p)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleListMemos handles GET /api/memos.
func (h *Handlers) HandleListMemos(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"items": h.st.Memos()})
}

// HandleAddMemo handles POST /api/memos.
func (h *Handlers) HandleAddMemo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		Summarize bool   `json:"summarize"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.AddMemo(r.Context(), h.st, h.svc, ops.AddMemoInput{Text: req.Text, Summarize: req.Summarize})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleDeleteMemo handles DELETE /api/memos/{id}.
func (h *Handlers) HandleDeleteMemo(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteMemo(r.Context(), h.st, r.PathValue("id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
