// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"arttemplate/pkg/templating"
)

// maxBodyBytes bounds request bodies of /render and /compile.
const maxBodyBytes = 1 << 20

// handleRender renders a template.
//
// GET /render/{id}?name=Ann
// POST /render/{id} with a JSON (default) or YAML body
//
// The output is returned as text/html. A failed render answers 500 with the
// reporter's output.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "template id is required")
		return
	}

	var data any
	if r.Method == http.MethodPost {
		var err error
		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		data, err = DecodeData(body, FormatForContentType(r.Header.Get("Content-Type")))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		data = queryData(r)
	}

	out := s.engine.Render(id, data)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if out == templating.Sentinel {
		s.logger.Warn("render failed",
			"request_id", RequestID(r.Context()),
			"template", id)
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, _ = io.WriteString(w, out)
}

// queryData turns query parameters into a data object. Repeated parameters
// become lists.
func queryData(r *http.Request) map[string]any {
	data := map[string]any{}
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			data[key] = values[0]
		} else {
			data[key] = values
		}
	}
	return data
}

// compileResponse is the body of a successful /compile.
type compileResponse struct {
	Code      string            `json:"code"`
	Variables map[string]string `json:"variables"`
	Debug     bool              `json:"debug"`
}

// diagnosticResponse is the body of a failed /compile.
type diagnosticResponse struct {
	Error  string `json:"error"`
	Name   string `json:"name"`
	Line   int    `json:"line,omitempty"`
	Report string `json:"report"`
}

// handleCompile compiles the request body and returns the generated function.
//
// POST /compile?debug=true
//
//	{"code": "function anonymous($data,$methods) {...}", "variables": {"name": "$data.name"}, "debug": true}
//
// Sandbox violations and syntax errors answer 422 with the diagnostic.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	source, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}

	debug, _ := strconv.ParseBool(r.URL.Query().Get("debug"))

	unit, err := s.engine.Compile(string(source), debug)
	if err != nil {
		d := templating.NewSyntaxDiagnostic("", string(source), err)
		WriteJSON(w, http.StatusUnprocessableEntity, diagnosticResponse{
			Error:  d.Message,
			Name:   d.Name,
			Line:   d.Line,
			Report: templating.FormatDiagnostic(d),
		})
		return
	}

	program := unit.Program()
	variables := make(map[string]string, len(program.Bindings))
	for _, b := range program.Bindings {
		variables[b.Name] = b.Expr
	}

	WriteJSON(w, http.StatusOK, compileResponse{
		Code:      program.Function(),
		Variables: variables,
		Debug:     program.Debug,
	})
}

// handleTemplates lists the cached template ids.
//
// GET /templates
//
//	{"templates": ["index", "partials/footer"], "count": 2}
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	ids := s.engine.IDs()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": ids,
		"count":     len(ids),
	})
}

// diagnosticEntry is one element of a /diagnostics response.
type diagnosticEntry struct {
	Time       time.Time `json:"time"`
	Template   string    `json:"template"`
	Phase      string    `json:"phase"`
	Name       string    `json:"name"`
	Message    string    `json:"message"`
	Line       int       `json:"line,omitempty"`
	SourceLine string    `json:"source_line,omitempty"`
}

// handleDiagnostics lists recently reported diagnostics, oldest first.
//
// GET /diagnostics?limit=10
//
//	{"diagnostics": [{"time": "...", "template": "index", "phase": "Render Error", "name": "TypeError", ...}], "count": 1}
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", v))
			return
		}
		limit = n
	}

	entries := s.history.Last(limit)
	out := make([]diagnosticEntry, 0, len(entries))
	for _, e := range entries {
		d := e.Diagnostic
		out = append(out, diagnosticEntry{
			Time:       e.Time,
			Template:   d.ID,
			Phase:      d.Phase.String(),
			Name:       d.Name,
			Message:    d.Message,
			Line:       d.Line,
			SourceLine: d.SourceLine,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"diagnostics": out,
		"count":       len(out),
	})
}

// handleHealth serves GET /health and GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "not found: "+strings.TrimPrefix(r.URL.Path, "/"))
}
