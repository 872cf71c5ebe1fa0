package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/meishi/internal/errors"
)

// renderError writes a MeishiError as {"error":{code,message,status[,details]}}.
// Errors of any other type become a generic INTERNAL response.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	mErr, ok := errors.As(err)
	if !ok {
		mErr = errors.NewInternal(err)
	}
	if mErr.Status >= 500 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", mErr.Code, "error", err)
	}

	message := mErr.Message
	if mErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	}
	errorObj := map[string]any{
		"code":    string(mErr.Code),
		"message": message,
		"status":  mErr.Status,
	}
	if mErr.Code != errors.ErrInternal && mErr.Details != nil {
		errorObj["details"] = mErr.Details
	}
	renderJSON(w, mErr.Status, map[string]any{"error": errorObj})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderAttachment writes body as a file download.
func renderAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the input is omitted by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
