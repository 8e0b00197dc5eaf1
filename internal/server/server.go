package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-switcher/internal/api"
	"github.com/joeblew999/plat-switcher/internal/api/ui"
	"github.com/joeblew999/plat-switcher/internal/config"
	"github.com/joeblew999/plat-switcher/internal/db"
	"github.com/joeblew999/plat-switcher/internal/humastar"
	"github.com/joeblew999/plat-switcher/internal/logging"
	"github.com/joeblew999/plat-switcher/internal/metrics"
	"github.com/joeblew999/plat-switcher/internal/service"
	"github.com/joeblew999/plat-switcher/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	ConfigPath string // switcher.yaml; defaults to <DataDir>/switcher.yaml
	LogLevel   string
}

// Server is the switcher HTTP server.
type Server struct {
	config   Config
	settings *config.Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	services *api.Services
	renderer *templates.Renderer
	metrics  *metrics.Metrics
	log      zerolog.Logger
	stop     context.CancelFunc
}

// New creates a new switcher server.
func New(cfg Config) (*Server, error) {
	log := logging.New(cfg.LogLevel)

	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(cfg.DataDir, "switcher.yaml")
	}
	settings, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfg.ConfigPath, err)
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		config:   cfg,
		settings: settings,
		mux:      mux,
		renderer: renderer,
		metrics:  metrics.New(),
		log:      log,
	}

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-switcher API", api.Version)
	humaConfig.Info.Description = "Minimap base layer switcher: basemaps, widget sessions and switch history."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = []huma.Transformer{
		humastar.LinkTransformer(func() *humastar.Links { return s.links }),
	}
	s.humaAPI = humago.New(mux, humaConfig)

	history := service.HistoryStore(service.NewMemoryHistory())
	if settings.History.Enabled {
		conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: settings.History.DBName})
		if err != nil {
			log.Warn().Err(err).Msg("history database unavailable, keeping switches in memory")
		} else {
			s.db = conn
			history = service.NewDuckDBHistory(conn)
		}
	}

	basemaps := service.NewBasemapService(cfg.DataDir, settings.Basemaps, log)
	s.services = &api.Services{
		Basemaps: basemaps,
		Sessions: service.NewSessionService(basemaps, settings.Widget, settings.Map, history, service.NewEventBus(), s.metrics, log),
		DB:       s.db,
		DataDir:  cfg.DataDir,
	}
	s.services.Sessions.SetLimits(settings.Sessions)

	ctx, stop := context.WithCancel(context.Background())
	s.stop = stop
	if idle := settings.Sessions.IdleTimeout; idle > 0 {
		go s.services.Sessions.Run(ctx, sweepInterval(idle))
	}

	s.routes()
	s.handler = s.metrics.Middleware(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services exposes the server's services to the CLI.
func (s *Server) Services() *api.Services { return s.services }

// Logger returns the server logger.
func (s *Server) Logger() zerolog.Logger { return s.log }

// Close stops the session sweeper and closes server resources.
func (s *Server) Close() error {
	s.stop()
	return db.Close()
}

// sweepInterval checks for idle sessions a few times per timeout, at most
// once a minute.
func sweepInterval(idle time.Duration) time.Duration {
	return max(min(idle/4, time.Minute), time.Second)
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes driving the widget in the browser
	widgets := ui.NewWidgetHandler(s.services.Sessions, s.renderer)
	widgets.RegisterRoutes(s.humaAPI)
	ui.NewEventHandler(widgets).RegisterRoutes(s.humaAPI)

	s.links = humastar.AutoLinks(s.humaAPI, "ui")

	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

// handleRoot sends browsers to the widget page and API clients to the link
// index.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/ui", http.StatusFound)
		return
	}
	for _, l := range s.links.Root() {
		w.Header().Add("Link", l)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-switcher",
		"status":  "running",
		"version": api.Version,
	})
}
