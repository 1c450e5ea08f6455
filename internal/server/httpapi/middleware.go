package httpapi

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := logging.WithRequestID(r.Context(), id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.logger.Info(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// originMatcher matches exact origins and patterns where "*" stands for any
// run of characters, e.g. "https://*.example.com".
type originMatcher struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

func newOriginMatcher(allowed []string) *originMatcher {
	m := &originMatcher{exact: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		if !strings.Contains(o, "*") {
			m.exact[o] = struct{}{}
			continue
		}
		parts := strings.Split(o, "*")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		m.patterns = append(m.patterns, regexp.MustCompile("^"+strings.Join(parts, ".*")+"$"))
	}
	return m
}

func (m *originMatcher) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, p := range m.patterns {
		if p.MatchString(origin) {
			return true
		}
	}
	return false
}

func corsHandler(allowed []string) func(http.Handler) http.Handler {
	m := newOriginMatcher(allowed)
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return m.Allowed(origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
