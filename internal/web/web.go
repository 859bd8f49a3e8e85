// Package web serves the review UI: submit a report, watch progress, edit
// the extracted fields, download the CSV.
package web

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"

	"github.com/local/finsight/internal/analyzer"
	"github.com/local/finsight/internal/csvexport"
	"github.com/local/finsight/internal/fetch"
	"github.com/local/finsight/internal/filetype"
	"github.com/local/finsight/internal/pages"
	"github.com/local/finsight/internal/preview"
	"github.com/local/finsight/internal/report"
	"github.com/local/finsight/internal/store"
)

// Options wires the server's collaborators.
type Options struct {
	Analyzer  *analyzer.Analyzer // nil when no API key is configured
	Sessions  store.Store
	Fetch     fetch.Options
	UploadDir string
	MaxUpload int64
	Username  string
	Password  string
	Templates string // glob; defaults to web/templates/*.html
}

type Server struct {
	tpl       *template.Template
	analyzer  *analyzer.Analyzer
	sessions  store.Store
	fetchOpts fetch.Options
	uploadDir string
	maxUpload int64
	username  string
	authToken string
}

func New(opts Options) (*Server, error) {
	glob := opts.Templates
	if glob == "" {
		glob = filepath.Join("web", "templates", "*.html")
	}
	tpl, err := template.ParseGlob(glob)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 64 << 20
	}
	s := &Server{
		tpl:       tpl,
		analyzer:  opts.Analyzer,
		sessions:  opts.Sessions,
		fetchOpts: opts.Fetch,
		uploadDir: opts.UploadDir,
		maxUpload: opts.MaxUpload,
		username:  opts.Username,
	}
	if opts.Username != "" && opts.Password != "" {
		s.authToken = deriveToken(opts.Username, opts.Password)
	}
	return s, nil
}

// deriveToken turns the configured credentials into the opaque cookie value.
// Stretched so the cookie never leaks the raw password.
func deriveToken(username, password string) string {
	key := pbkdf2.Key([]byte(password), []byte("finsight:"+username), 4096, 32, sha256.New)
	return hex.EncodeToString(key)
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/", s.requireAuth(s.handleIndex))
	mux.HandleFunc("/analyze", s.requireAuth(s.handleAnalyze))
	mux.HandleFunc("/progress/", s.requireAuth(s.handleProgress))
	mux.HandleFunc("/result/", s.requireAuth(s.handleResult))
	mux.HandleFunc("/export/", s.requireAuth(s.handleExport))
	mux.HandleFunc("/preview/", s.requireAuth(s.handlePreview))
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.tpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("template render failed")
	}
}

// requireAuth is a no-op when no credentials are configured.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		c, err := r.Cookie("auth")
		if err != nil || subtle.ConstantTimeCompare([]byte(c.Value), []byte(s.authToken)) != 1 {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "login.html", map[string]any{"Error": r.URL.Query().Get("error")})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/login?error=invalid+form", http.StatusSeeOther)
			return
		}
		token := deriveToken(r.Form.Get("username"), r.Form.Get("password"))
		if r.Form.Get("username") == s.username && subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1 {
			http.SetCookie(w, &http.Cookie{Name: "auth", Value: s.authToken, Path: "/", HttpOnly: true})
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login?error=invalid+credentials", http.StatusSeeOther)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "auth", Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "index.html", map[string]any{
		"Ready": s.analyzer != nil,
		"Error": r.URL.Query().Get("error"),
	})
}

// handleAnalyze accepts either an uploaded file or a source reference
// (URL, s3 or server path), creates a session and runs the pipeline in
// the background.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.analyzer == nil {
		http.Error(w, "analyzer not configured: missing API key", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		http.Redirect(w, r, "/?error=invalid+or+oversized+form", http.StatusSeeOther)
		return
	}

	rangeExpr := r.FormValue("pages")
	sourceRef := strings.TrimSpace(r.FormValue("source"))

	sess := store.Session{
		ID:        uuid.NewString(),
		Status:    store.StateQueued,
		Message:   "queued",
		CreatedAt: time.Now(),
	}

	var uploadPath string
	file, hdr, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		uploadPath, err = s.saveUpload(file)
		if err != nil {
			http.Redirect(w, r, "/?error="+template.URLQueryEscaper(err.Error()), http.StatusSeeOther)
			return
		}
		sess.SourceName = hdr.Filename
	case errors.Is(err, http.ErrMissingFile):
		if sourceRef == "" {
			http.Redirect(w, r, "/?error=provide+a+file+or+a+source+url", http.StatusSeeOther)
			return
		}
		sess.SourceName = filepath.Base(sourceRef)
	default:
		http.Redirect(w, r, "/?error="+template.URLQueryEscaper("malformed upload: "+err.Error()), http.StatusSeeOther)
		return
	}

	if err := s.sessions.Set(r.Context(), sess); err != nil {
		http.Error(w, "session store unavailable", http.StatusInternalServerError)
		return
	}

	go s.run(sess, uploadPath, sourceRef, rangeExpr)

	http.Redirect(w, r, "/result/"+sess.ID, http.StatusSeeOther)
}

func (s *Server) saveUpload(file io.Reader) (string, error) {
	f, err := os.CreateTemp(s.uploadDir, "finsight-up-*.pdf")
	if err != nil {
		return "", fmt.Errorf("staging upload: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(file, s.maxUpload+1))
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("staging upload: %w", err)
	}
	if n > s.maxUpload {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("upload exceeds %d byte limit", s.maxUpload)
	}
	if err := filetype.EnsurePDF(f.Name()); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// run is the per-session pipeline: stage the source, resolve the page
// selection, slice if needed, analyze, record the outcome.
func (s *Server) run(sess store.Session, uploadPath, sourceRef, rangeExpr string) {
	ctx := context.Background()

	fail := func(msg string) {
		now := time.Now()
		sess.Status = store.StateFailed
		sess.Message = msg
		sess.FinishedAt = &now
		s.save(ctx, sess)
		log.Warn().Str("session", sess.ID).Str("reason", msg).Msg("analysis failed")
	}

	sess.Status = store.StateStaging
	sess.Message = "staging source document"
	s.save(ctx, sess)

	srcPath := uploadPath
	if srcPath == "" {
		path, cleanup, err := fetch.ToTemp(ctx, sourceRef, s.fetchOpts)
		if err != nil {
			fail(err.Error())
			return
		}
		// downloaded copies are removed by Delete via SourcePath; in-place
		// local paths get a no-op cleanup
		_ = cleanup
		srcPath = path
	}
	sess.SourcePath = srcPath

	total, err := pages.Count(srcPath)
	if err != nil {
		fail(err.Error())
		return
	}
	sess.PageCount = total

	sel, err := pages.ParseRanges(rangeExpr, total)
	if err != nil {
		fail(err.Error())
		return
	}

	target := srcPath
	if !sel.All {
		if len(sel.Indices) == 0 {
			sess.Warning = "requested pages are out of bounds; analyzing the whole document"
			log.Warn().Str("session", sess.ID).Str("pages", rangeExpr).Int("total_pages", total).
				Msg("page selection entirely out of bounds; using whole document")
		} else {
			sess.Pages = sel.Indices
			slice, err := pages.ExtractPages(srcPath, sel.Indices)
			if err != nil {
				fail(err.Error())
				return
			}
			defer os.Remove(slice)
			target = slice
		}
	}

	sess.Status = store.StateAnalyzing
	sess.Message = "document staged; extracting fields"
	s.save(ctx, sess)

	raw := s.analyzer.Analyze(ctx, target)
	sess.RawResult = raw

	now := time.Now()
	sess.FinishedAt = &now
	if res, derr := report.Decode(raw); derr != nil {
		sess.Status = store.StateFailed
		sess.Message = derr.Error()
	} else if res.Failed() {
		sess.Status = store.StateFailed
		sess.Message = res.Err
	} else {
		sess.Status = store.StateDone
		sess.Message = "done"
	}
	s.save(ctx, sess)
	log.Info().Str("session", sess.ID).Str("status", sess.Status).
		Int("page_count", sess.PageCount).Msg("analysis finished")
}

func (s *Server) save(ctx context.Context, sess store.Session) {
	if err := s.sessions.Set(ctx, sess); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("session save failed")
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request, prefix string) (store.Session, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" {
		http.NotFound(w, r)
		return store.Session{}, false
	}
	sess, ok, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "session store unavailable", http.StatusInternalServerError)
		return store.Session{}, false
	}
	if !ok {
		http.NotFound(w, r)
		return store.Session{}, false
	}
	return sess, true
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "/progress/")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":         sess.ID,
		"status":     sess.Status,
		"message":    sess.Message,
		"warning":    sess.Warning,
		"page_count": sess.PageCount,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "/result/")
	if !ok {
		return
	}

	data := map[string]any{
		"Session": sess,
		"Done":    sess.Status == store.StateDone || sess.Status == store.StateFailed,
	}
	if sess.Status == store.StateDone {
		res, err := report.Decode(sess.RawResult)
		if err == nil && !res.Failed() {
			data["Fields"] = res.Fields
		} else if err != nil {
			data["DecodeError"] = err.Error()
		}
	}
	s.render(w, "result.html", data)
}

// handleExport streams the reviewed rows as CSV. Values come from the form,
// not the stored result, so reviewer edits survive into the download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := s.session(w, r, "/export/")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	values := make(map[string]string)
	for _, key := range report.Keys() {
		values[key] = strings.TrimSpace(r.Form.Get("field_" + key))
	}
	fields := report.FromValues(values)

	name := strings.TrimSuffix(sess.SourceName, filepath.Ext(sess.SourceName))
	filename := csvexport.BuildFilename(name)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(csvexport.BOM)

	cw := csvexport.NewWriter(w)
	if err := cw.WriteHeader(); err == nil {
		_ = cw.WriteFields(fields)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("csv export failed")
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r, "/preview/")
	if !ok {
		return
	}
	if sess.SourcePath == "" {
		http.NotFound(w, r)
		return
	}
	page := 0
	if len(sess.Pages) > 0 {
		page = sess.Pages[0]
	}
	img, err := preview.PageJPEG(sess.SourcePath, page, 96, 80)
	if err != nil {
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(img)
}
