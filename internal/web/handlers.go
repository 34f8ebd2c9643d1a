package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/sessions"

	"Skythread/internal/api/handlers/comments"
	"Skythread/internal/core/commentview"
	"Skythread/internal/core/display"
)

const (
	// MinSessionSecretLength is the minimum key size accepted for the
	// preference cookie
	MinSessionSecretLength = 32

	preferencesSession = "skythread_prefs"
	sortPreferenceKey  = "sort"
)

// NewPreferenceStore creates the cookie store remembering viewer preferences
func NewPreferenceStore(secret string) (*sessions.CookieStore, error) {
	if len(secret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
	return store, nil
}

// Handlers serves the comment widget.
type Handlers struct {
	templates *Templates
	renderer  *comments.PageRenderer
	store     sessions.Store
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance. store may be nil, in which
// case no preferences are remembered.
func NewHandlers(templates *Templates, renderer *comments.PageRenderer, store sessions.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		templates: templates,
		renderer:  renderer,
		store:     store,
		logger:    logger,
	}
}

// CommentsPageData holds data for the comments template.
type CommentsPageData struct {
	Page        *commentview.PageView
	Action      string
	Ref         string
	LoadMoreURL string
}

// ErrorPageData holds data for the error template.
type ErrorPageData struct {
	Message string
}

// CommentsHandler handles GET /comments and renders one page of a thread.
// A sort chosen explicitly is remembered; requests without one reuse it.
func (h *Handlers) CommentsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	explicitSort := query.Get("sort")

	session := h.preferences(r)
	if explicitSort == "" && session != nil {
		if remembered, ok := session.Values[sortPreferenceKey].(string); ok {
			query.Set("sort", remembered)
		}
	}

	req, err := comments.ParseRequest(query)
	if err != nil {
		h.renderError(w, err)
		return
	}

	page, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		h.renderError(w, err)
		return
	}

	if explicitSort != "" && session != nil {
		session.Values[sortPreferenceKey] = string(req.Sort)
		if err := session.Save(r, w); err != nil {
			h.logger.Warn("failed to save preference cookie", "error", err)
		}
	}

	data := CommentsPageData{
		Page:        page,
		Action:      r.URL.Path,
		Ref:         req.Ref,
		LoadMoreURL: loadMoreURL(r.URL.Path, req, page),
	}
	if err := h.templates.Render(w, http.StatusOK, "comments.html", data); err != nil {
		h.logger.Error("failed to render comments page", "error", err, "uri", req.Ref)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handlers) preferences(r *http.Request) *sessions.Session {
	if h.store == nil {
		return nil
	}
	session, err := h.store.Get(r, preferencesSession)
	if err != nil {
		// tampered or rotated-key cookies yield a fresh session
		h.logger.Debug("discarding unreadable preference cookie", "error", err)
	}
	return session
}

func (h *Handlers) renderError(w http.ResponseWriter, err error) {
	status, _, message := comments.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("failed to load comments", "error", err)
	}
	if renderErr := h.templates.Render(w, status, "error.html", ErrorPageData{Message: message}); renderErr != nil {
		h.logger.Error("failed to render error page", "error", renderErr)
		http.Error(w, message, status)
	}
}

// loadMoreURL links to the same view with the cursor advanced by one batch
func loadMoreURL(path string, req *comments.Request, page *commentview.PageView) string {
	if !page.Pagination.HasMore {
		return ""
	}
	q := url.Values{}
	q.Set("uri", req.Ref)
	if page.State.SearchTerm != "" {
		q.Set("q", page.State.SearchTerm)
	}
	if page.State.SortMode != display.DefaultSortMode {
		q.Set("sort", string(page.State.SortMode))
	}
	q.Set("revealed", strconv.Itoa(page.State.RevealedCount+page.Pagination.NextBatchSize))
	return path + "?" + q.Encode()
}
