package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-terrain/internal/api"
	"github.com/joeblew999/plat-terrain/internal/config"
	"github.com/joeblew999/plat-terrain/internal/db"
	"github.com/joeblew999/plat-terrain/internal/humastar"
	"github.com/joeblew999/plat-terrain/internal/service"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	DataDir  string
	Pipeline config.Config
}

// Server is the terrain HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.LinkSet
	db       *db.Lazy
	services *api.Services
}

// New creates a new terrain server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()
	links := humastar.NewLinkSet()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-terrain API", "1.0.0")
	humaConfig.Info.Description = "Elevation raster aggregation, coordinate transforms, contours and border proximity for terrain visualizers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	duck := db.NewLazy(db.Config{DataDir: cfg.DataDir, DBName: "terrain"})
	regions := service.NewRegionService(cfg.DataDir)
	borders := service.NewBorderService(cfg.DataDir, duck)
	services := &api.Services{
		Regions: regions,
		Borders: borders,
		Terrain: service.NewTerrainService(regions, borders, service.NewEventBus(), cfg.Pipeline),
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		links:    links,
		db:       duck,
		services: services,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Terrain returns the pipeline service.
func (s *Server) Terrain() *service.TerrainService {
	return s.services.Terrain
}

// Close closes server resources.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.services.Terrain).RegisterRoutes(s.humaAPI)

	// Links are derived from the registered operations.
	s.links.Build(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Get("/health") {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-terrain",
		"status":  "running",
	})
}
