package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hpungsan/meishi/internal/codec"
	"github.com/hpungsan/meishi/internal/colmap"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/ops"
)

var contentTypes = map[codec.Dialect]string{
	codec.DialectCSV:  "text/csv; charset=utf-8",
	codec.DialectTXT:  "text/plain; charset=utf-8",
	codec.DialectXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// readUpload returns the named multipart file and its original file name.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody())
	if err := r.ParseMultipartForm(h.maxBody()); err != nil {
		return nil, "", errors.NewInvalidRequest(fmt.Sprintf("invalid upload (limit %d MB): %v", h.maxBody()>>20, err))
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", errors.NewInvalidRequest(fmt.Sprintf("multipart field %q is required", field))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errors.NewInvalidRequest(fmt.Sprintf("failed to read upload: %v", err))
	}
	return data, header.Filename, nil
}

// HandleImport handles POST /api/import with a multipart "file" field.
// The kind and dialect are sniffed from the file name and content.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.readUpload(w, r, "file")
	if err != nil {
		renderError(w, r, err)
		return
	}

	result, err := ops.Import(r.Context(), h.st, h.cfg, ops.ImportInput{Filename: filename, Content: string(data)})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleExport handles GET /api/export?kind=&format= and returns the file as an attachment.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := ops.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	format, err := ops.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := ops.Encode(&buf, h.st, kind, format); err != nil {
		renderError(w, r, err)
		return
	}
	renderAttachment(w, contentTypes[format], ops.ExportFilename(kind, format, h.st.Now()), buf.Bytes())
}

// HandleProposeColumns handles POST /api/columns/propose.
// When internal is omitted, the field names of kind are used.
func (h *Handlers) HandleProposeColumns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		External []string `json:"external"`
		Internal []string `json:"internal"`
		Kind     string   `json:"kind"`
	}
	if err := h.decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	if len(req.External) == 0 {
		renderError(w, r, errors.NewInvalidRequest("external headers are required"))
		return
	}

	internal := req.Internal
	if len(internal) == 0 {
		kind, err := ops.ParseKind(req.Kind)
		if err != nil {
			renderError(w, r, err)
			return
		}
		internal = ops.InternalFields(h.st, kind)
	}

	m, err := colmap.Propose(r.Context(), h.svc, req.External, internal)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, m)
}

// HandleTemplateFill handles POST /api/template/fill.
//
// Multipart fields: "template" (xlsx file), "kind", "mapping" (JSON object of
// external header to internal field) and "propose" ("true" to ask the
// extraction service for the undecided columns).
func (h *Handlers) HandleTemplateFill(w http.ResponseWriter, r *http.Request) {
	tmpl, filename, err := h.readUpload(w, r, "template")
	if err != nil {
		renderError(w, r, err)
		return
	}

	set := map[string]string{}
	if raw := strings.TrimSpace(r.FormValue("mapping")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &set); err != nil {
			renderError(w, r, errors.NewInvalidRequest("mapping must be a JSON object of strings: "+err.Error()))
			return
		}
	}

	res, err := ops.Fill(r.Context(), h.st, h.svc, ops.FillInput{
		MappingInput: ops.MappingInput{
			Kind:    r.FormValue("kind"),
			Set:     set,
			Propose: r.FormValue("propose") == "true",
		},
		Template: tmpl,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer res.Workbook.Close()

	var buf bytes.Buffer
	if _, err := res.Workbook.WriteTo(&buf); err != nil {
		renderError(w, r, errors.NewInternal(fmt.Errorf("write workbook: %w", err)))
		return
	}
	renderAttachment(w, contentTypes[codec.DialectXLSX], ops.FilledFilename(filename, h.st.Now()), buf.Bytes())
}
