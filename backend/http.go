package backend

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "gopkg.in/inconshreveable/log15.v2"
)

//go:embed assets/index.html assets/static
var assetsFS embed.FS

type environment struct {
	reader *Reader
	logger log.Logger
}

// NewAppServer returns the handler for the reader page, its static assets, and the JSON API.
func NewAppServer(config HTTPConfig, reader *Reader, logger log.Logger) (http.Handler, error) {
	indexTemplate, err := template.ParseFS(assetsFS, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("Bad index template: %v", err)
	}

	env := &environment{reader: reader, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := indexTemplate.Execute(w, struct{ Feeds []FeedDescriptor }{reader.Feeds})
		if err != nil {
			logger.Error("Failed to render index", "error", err)
		}
	})

	if config.StaticURL != "" {
		staticURL, err := url.Parse(config.StaticURL)
		if err != nil {
			return nil, fmt.Errorf("Bad static-url: %v", err)
		}
		r.Handle("/static/*", httputil.NewSingleHostReverseProxy(staticURL))
	} else {
		staticFS, err := fs.Sub(assetsFS, "assets/static")
		if err != nil {
			return nil, err
		}
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/feeds", env.GetFeedsHandler)
		r.Get("/feeds/{index}/entries", env.GetFeedEntriesHandler)
		r.Get("/view", env.GetViewHandler)
		r.Post("/menu/toggle", env.ToggleMenuHandler)
	})

	return r, nil
}

func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, req)
			logger.Debug("HTTP request", "method", req.Method, "path", req.URL.Path, "status", ww.Status(), "duration", time.Since(start))
		})
	}
}

func (env *environment) GetFeedsHandler(w http.ResponseWriter, req *http.Request) {
	type feedJSON struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	feeds := make([]feedJSON, len(env.reader.Feeds))
	for i, f := range env.reader.Feeds {
		feeds[i] = feedJSON{ID: i, Name: f.Name, URL: f.URL}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feeds)
}

func (env *environment) GetFeedEntriesHandler(w http.ResponseWriter, req *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(req, "index"))
	if err != nil {
		// If not an integer it clearly can't be found
		http.NotFound(w, req)
		return
	}

	content, err := env.reader.Loader.Render(req.Context(), index)
	if err != nil {
		var fetchErr *FetchError
		switch {
		case errors.Is(err, ErrFeedIndexOutOfRange):
			http.NotFound(w, req)
		case errors.Is(err, context.Canceled):
			// client went away
		case errors.As(err, &fetchErr):
			http.Error(w, fetchErr.Error(), http.StatusBadGateway)
		default:
			env.logger.Error("Failed to render feed", "index", index, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, content)
}

type viewStateJSON struct {
	MenuHidden bool `json:"menuHidden"`
	EntryCount int  `json:"entryCount"`
}

func writeViewState(w http.ResponseWriter, state ViewState) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewStateJSON{
		MenuHidden: state.CurrentVisibility() == Hidden,
		EntryCount: state.EntryCount(),
	})
}

func (env *environment) GetViewHandler(w http.ResponseWriter, req *http.Request) {
	writeViewState(w, env.reader)
}

func (env *environment) ToggleMenuHandler(w http.ResponseWriter, req *http.Request) {
	env.reader.ToggleMenu()
	writeViewState(w, env.reader)
}
