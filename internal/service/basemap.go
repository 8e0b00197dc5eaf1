package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
)

var (
	ErrBasemapNotFound = errors.New("basemap not found")
	ErrBasemapExists   = errors.New("basemap already exists")
	ErrBasemapInvalid  = errors.New("invalid basemap")
)

// BasemapService manages the ordered set of switchable basemaps.
type BasemapService struct {
	dataDir  string
	basemaps []BasemapConfig
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewBasemapService loads basemaps from dataDir, falling back to seed when
// nothing has been saved yet.
func NewBasemapService(dataDir string, seed []BasemapConfig, log zerolog.Logger) *BasemapService {
	s := &BasemapService{
		dataDir: dataDir,
		log:     log.With().Str("component", "basemaps").Logger(),
	}
	if !s.loadFromDisk() {
		for _, b := range seed {
			if _, err := s.add(b); err != nil {
				s.log.Warn().Err(err).Str("name", b.Name).Msg("skipping seed basemap")
			}
		}
	}
	return s
}

// List returns all basemaps in switcher order.
func (s *BasemapService) List() []BasemapConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.basemaps)
}

// Get returns a basemap by ID.
func (s *BasemapService) Get(id string) (BasemapConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return BasemapConfig{}, false
	}
	return s.basemaps[i], true
}

// Create appends a basemap.
func (s *BasemapService) Create(b BasemapConfig) (BasemapConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.add(b)
	if err != nil {
		return BasemapConfig{}, err
	}
	if err := s.saveToDisk(); err != nil {
		return BasemapConfig{}, err
	}
	return created, nil
}

// Update replaces a basemap in place, keeping its position.
func (s *BasemapService) Update(id string, b BasemapConfig) (BasemapConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return BasemapConfig{}, fmt.Errorf("%w: %q", ErrBasemapNotFound, id)
	}
	b.ID = id
	if err := validate(b); err != nil {
		return BasemapConfig{}, err
	}
	s.basemaps[i] = b
	if err := s.saveToDisk(); err != nil {
		return BasemapConfig{}, err
	}
	return b, nil
}

// Delete removes a basemap.
func (s *BasemapService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrBasemapNotFound, id)
	}
	s.basemaps = slices.Delete(s.basemaps, i, i+1)
	return s.saveToDisk()
}

// BasemapLayer pairs a basemap with a freshly built engine layer.
type BasemapLayer struct {
	Config BasemapConfig
	Layer  mapengine.Layer
}

// Instantiate builds new engine layers for every basemap. Each widget gets its
// own instances so sessions never share layer state.
func (s *BasemapService) Instantiate() []BasemapLayer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]BasemapLayer, len(s.basemaps))
	for i, b := range s.basemaps {
		out[i] = BasemapLayer{Config: b, Layer: b.Layer()}
	}
	return out
}

func (s *BasemapService) add(b BasemapConfig) (BasemapConfig, error) {
	if b.ID == "" {
		b.ID = generateID(b.Name)
	}
	if err := validate(b); err != nil {
		return BasemapConfig{}, err
	}
	if s.index(b.ID) >= 0 {
		return BasemapConfig{}, fmt.Errorf("%w: %q", ErrBasemapExists, b.ID)
	}
	s.basemaps = append(s.basemaps, b)
	return b, nil
}

func (s *BasemapService) index(id string) int {
	return slices.IndexFunc(s.basemaps, func(b BasemapConfig) bool { return b.ID == id })
}

func validate(b BasemapConfig) error {
	switch {
	case b.ID == "":
		return fmt.Errorf("%w: name %q yields an empty id", ErrBasemapInvalid, b.Name)
	case b.URL == "" && len(b.Group) == 0:
		return fmt.Errorf("%w: %q needs a url or a group", ErrBasemapInvalid, b.ID)
	case b.URL != "" && len(b.Group) > 0:
		return fmt.Errorf("%w: %q has both a url and a group", ErrBasemapInvalid, b.ID)
	}
	for _, src := range b.Group {
		if src.URL == "" {
			return fmt.Errorf("%w: %q has a group member without url", ErrBasemapInvalid, b.ID)
		}
	}
	return nil
}

// configFile returns the path to the basemaps file.
func (s *BasemapService) configFile() string {
	return filepath.Join(s.dataDir, "basemaps.json")
}

// loadFromDisk loads basemaps from disk and reports whether a file was found.
func (s *BasemapService) loadFromDisk() bool {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return false // File doesn't exist yet
	}

	var basemaps []BasemapConfig
	if err := json.Unmarshal(data, &basemaps); err != nil {
		s.log.Warn().Err(err).Str("file", s.configFile()).Msg("ignoring unreadable basemaps file")
		return false
	}

	s.basemaps = nil
	for _, b := range basemaps {
		if _, err := s.add(b); err != nil {
			s.log.Warn().Err(err).Str("file", s.configFile()).Msg("skipping basemap")
		}
	}
	return true
}

// saveToDisk persists basemaps to disk.
func (s *BasemapService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.basemaps, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	// Remove any characters that aren't alphanumeric or underscore
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// DefaultBasemaps is the seed set used when no basemaps are configured.
func DefaultBasemaps() []BasemapConfig {
	return []BasemapConfig{
		{
			ID:          "osm",
			Name:        "OpenStreetMap",
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "&copy; OpenStreetMap contributors",
			Subdomains:  []string{"a", "b", "c"},
			MaxZoom:     19,
		},
		{
			ID:          "topo",
			Name:        "OpenTopoMap",
			URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
			Attribution: "&copy; OpenTopoMap (CC-BY-SA)",
			Subdomains:  []string{"a", "b", "c"},
			MaxZoom:     17,
		},
		{
			ID:   "imagery",
			Name: "Imagery",
			Group: []TileSource{
				{URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}", Attribution: "Tiles &copy; Esri", MaxZoom: 19},
				{URL: "https://server.arcgisonline.com/ArcGIS/rest/services/Reference/World_Boundaries_and_Places/MapServer/tile/{z}/{y}/{x}", MaxZoom: 19},
			},
		},
	}
}
