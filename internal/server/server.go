package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/TobiSchelling/CommentGender/internal/pipeline"
	"github.com/TobiSchelling/CommentGender/internal/telemetry"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Runner runs the extraction pipeline for one video URL.
type Runner interface {
	Run(ctx context.Context, videoURL string) (*pipeline.Report, error)
}

// Server is the HTTP server for the extraction form.
type Server struct {
	runner Runner
	logger *zap.Logger
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(runner Runner, logger *zap.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"csvURL":   csvDataURL,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "result.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{runner: runner, logger: logger, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	s.mux.Handle("/metrics", telemetry.Handler())

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/extract", s.handleExtract)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, http.StatusOK, "index.html", map[string]any{})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	videoURL := strings.TrimSpace(r.FormValue("url"))
	if videoURL == "" {
		s.render(w, http.StatusBadRequest, "index.html", map[string]any{
			"Error": "Enter a YouTube video link.",
		})
		return
	}

	report, err := s.runner.Run(r.Context(), videoURL)
	if err != nil {
		s.render(w, statusFor(err), "index.html", map[string]any{
			"URL":   videoURL,
			"Error": err.Error(),
		})
		return
	}

	if r.FormValue("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.Filename}))
		w.Write(report.CSV)
		return
	}

	s.render(w, http.StatusOK, "result.html", map[string]any{
		"URL":     videoURL,
		"Report":  report,
		"Summary": pipeline.Summary(report),
	})
}

// statusFor maps a run failure to a response code: upstream failures are 502.
func statusFor(err error) int {
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	if se.Stage == pipeline.StageExport {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// csvDataURL returns the CSV as a base64 data: URL for the download link.
func csvDataURL(data []byte) template.URL {
	return template.URL("data:text/csv;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(data)) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(runner Runner, logger *zap.Logger, port int) error {
	srv, err := New(runner, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logger.Info("server listening", zap.String("url", "http://"+addr))
	return http.ListenAndServe(addr, srv.Handler())
}
