package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/docbuild"
	"github.com/dgallion1/mathdocx/internal/latex"
	"github.com/dgallion1/mathdocx/internal/omml"
)

// maxPreviewBytes bounds the JSON body of a preview request.
const maxPreviewBytes = 64 << 10

// handleRender builds a document synchronously from an analysis JSON body.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	res, err := analysis.Decode(body)
	if err != nil {
		jsonError(w, "invalid analysis: "+err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	rep, err := s.orchestrator.Builder().Render(res, &buf)
	if err != nil {
		s.log.Error("render failed", "error", err)
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = "document"
	}
	w.Header().Set("X-Formula-Count", fmt.Sprint(rep.Formulas+rep.InlineMath))
	w.Header().Set("X-Formula-Fallbacks", fmt.Sprint(rep.Fallbacks))
	writeAttachment(w, docxContentType, docbuild.OutputName(sanitizeFilename(name)), buf.Bytes())
}

type previewRequest struct {
	Latex *string `json:"latex"`
	Text  *string `json:"text"`
}

type previewSpan struct {
	Kind  string       `json:"kind"`
	Text  string       `json:"text,omitempty"`
	Raw   string       `json:"raw,omitempty"`
	Nodes []latex.Node `json:"nodes,omitempty"`
}

// handlePreview shows how an expression or a line of mixed text is parsed.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxPreviewBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case req.Latex != nil:
		sanitized := latex.Sanitize(*req.Latex)
		nodes := latex.Parse(sanitized)
		if nodes == nil {
			nodes = []latex.Node{}
		}
		resp := map[string]any{
			"sanitized": sanitized,
			"nodes":     nodes,
			"plain":     latex.PlainText(nodes),
		}
		if m, err := omml.Build(nodes, s.cfg.MaxMathDepth); err != nil {
			resp["error"] = err.Error()
		} else if x, err := m.XML(); err == nil {
			resp["omml"] = x
		}
		writeJSON(w, http.StatusOK, resp)

	case req.Text != nil:
		spans := make([]previewSpan, 0)
		for _, line := range strings.Split(*req.Text, "\n") {
			for _, sp := range latex.SplitInline(line) {
				switch v := sp.(type) {
				case latex.Literal:
					spans = append(spans, previewSpan{Kind: "literal", Text: v.Text})
				case latex.Math:
					spans = append(spans, previewSpan{Kind: "math", Raw: v.Raw, Nodes: v.Nodes})
				}
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"spans": spans})

	default:
		jsonError(w, `one of "latex" or "text" is required`, http.StatusBadRequest)
	}
}
