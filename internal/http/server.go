package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expirygenie/internal/auth"
	"expirygenie/internal/cache"
	"expirygenie/internal/core"
	"expirygenie/internal/gemini"
	applog "expirygenie/internal/log"
	"expirygenie/internal/services"
	"expirygenie/internal/store"
	appweb "expirygenie/web"
)

// Deps carries the collaborators the server needs. Extractor and
// Advisor may be nil; the AI routes then answer 503.
type Deps struct {
	Sessions  *auth.Sessions
	Users     store.UserStore
	Items     *services.ItemService
	Extractor gemini.Extractor
	Advisor   gemini.Advisor

	// SoonWindow is the number of days ahead of expiry that puts an
	// item in the "Expiring Soon" bucket. Zero means the default.
	SoonWindow int
}

type Server struct {
	http.Server
	templates *template.Template

	sessions  *auth.Sessions
	users     store.UserStore
	items     *services.ItemService
	extractor gemini.Extractor
	advisor   gemini.Advisor

	soonWindow int

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Per-user inventory snapshots, invalidated on every write.
	itemsCache *cache.LRUCache[[]core.FoodItem]
	cacheMgr   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		sessions:    deps.Sessions,
		users:       deps.Users,
		items:       deps.Items,
		extractor:   deps.Extractor,
		advisor:     deps.Advisor,
		soonWindow:  deps.SoonWindow,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		itemsCache:  cache.NewLRUCache[[]core.FoodItem](500, 5*time.Minute),
		cacheMgr:    cache.NewManager(),
	}

	if s.soonWindow <= 0 {
		s.soonWindow = core.SoonWindowDays
	}

	s.cacheMgr.Register(s.itemsCache)
	if s.sessions != nil {
		s.cacheMgr.Register(s.sessions)
	}
	s.cacheMgr.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS).
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/", s.withSecurity(s.handleIndex))
	mux.HandleFunc("/auth", s.withSecurity(s.handleAuthPage))
	mux.HandleFunc("/auth/register", s.withSecurity(s.handleRegister))
	mux.HandleFunc("/auth/login", s.withSecurity(s.handleLogin))
	mux.HandleFunc("/auth/logout", s.withSecurity(s.handleLogout))
	mux.HandleFunc("/auth/reset", s.withSecurity(s.handleResetPassword))

	mux.HandleFunc("/dashboard", s.withSecurity(s.withAuth(s.handleDashboard)))
	mux.HandleFunc("/items", s.withSecurity(s.withAuth(s.handleCreateItem)))
	mux.HandleFunc("/items/update", s.withSecurity(s.withAuth(s.handleUpdateItem)))
	mux.HandleFunc("/items/date", s.withSecurity(s.withAuth(s.handleUpdateItemDate)))
	mux.HandleFunc("/items/delete", s.withSecurity(s.withAuth(s.handleDeleteItem)))
	mux.HandleFunc("/items/consume", s.withSecurity(s.withAuth(s.handleConsumeItem)))
	mux.HandleFunc("/items/expired/clear", s.withSecurity(s.withAuth(s.handleClearExpired)))
	mux.HandleFunc("/items/bulk", s.withSecurity(s.withAuth(s.handleBulkCreate)))
	mux.HandleFunc("/ui/items", s.withSecurity(s.withAuth(s.handleItemList)))
	mux.HandleFunc("/ui/suggest", s.withSecurity(s.withAuth(s.handleSuggest)))

	mux.HandleFunc("/extract/voice", s.withSecurity(s.withAuth(s.handleExtractVoice)))
	mux.HandleFunc("/extract/image", s.withSecurity(s.withAuth(s.handleExtractImage)))

	mux.HandleFunc("/calendar", s.withSecurity(s.withAuth(s.handleCalendarPage)))
	mux.HandleFunc("/ui/calendar", s.withSecurity(s.withAuth(s.handleCalendarMonth)))

	mux.HandleFunc("/stats", s.withSecurity(s.withAuth(s.handleStatsPage)))
	mux.HandleFunc("/ui/stats", s.withSecurity(s.withAuth(s.handleStatsOverview)))
	mux.HandleFunc("/ui/recipes", s.withSecurity(s.withAuth(s.handleRecipes)))
	mux.HandleFunc("/ui/waste", s.withSecurity(s.withAuth(s.handleWasteAnalysis)))
	mux.HandleFunc("/ui/shopping", s.withSecurity(s.withAuth(s.handleShoppingList)))
	mux.HandleFunc("/export/csv", s.withSecurity(s.withAuth(s.handleExportCSV)))

	return s
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"statusClass": statusClass,
		"dollars":     formatDollars,
		"daysLeft":    daysLeftLabel,
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurity adds security headers, rate limiting and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.String())
		}

		// Rate-limit mutations only; partial refreshes stay cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// authedHandler receives the logged-in user's email.
type authedHandler func(w http.ResponseWriter, r *http.Request, email string)

// withAuth resolves the session cookie. Browsers get redirected to the
// auth page, HTMX requests get a 401 partial.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.sessions.FromRequest(r)
		if !ok {
			if r.Header.Get("HX-Request") == "true" {
				UnauthorizedError("Session expired. Please log in again.").
					Header("HX-Redirect", "/auth").
					Write(w)
				return
			}
			http.Redirect(w, r, "/auth", http.StatusSeeOther)
			return
		}
		next(w, r, email)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cachedItems returns the user's inventory, serving repeated partial
// refreshes from cache.
func (s *Server) cachedItems(ctx context.Context, email string) ([]core.FoodItem, error) {
	if items, found := s.itemsCache.Get(email); found {
		result := make([]core.FoodItem, len(items))
		copy(result, items)
		return result, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	items, err := s.items.Items(cctx, email)
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", email, err)
	}

	s.itemsCache.Set(email, items)
	return items, nil
}

func (s *Server) invalidateItems(email string) {
	s.itemsCache.Delete(email)
}

// renderTemplate executes a template, logging failures.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
