package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-switcher/internal/mapengine"
	"github.com/joeblew999/plat-switcher/internal/metrics"
	"github.com/joeblew999/plat-switcher/internal/switcher"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("too many open sessions")
)

// MapDefaults is the initial view of every session's primary map.
type MapDefaults struct {
	Center  orb.Point `json:"center" yaml:"center"`
	Zoom    float64   `json:"zoom" yaml:"zoom"`
	MinZoom float64   `json:"minZoom" yaml:"minZoom"`
	MaxZoom float64   `json:"maxZoom" yaml:"maxZoom"`
}

// Session is one browser's widget, attached to a headless primary map.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	primary  *mapengine.HeadlessMap
	factory  *mapengine.HeadlessFactory
	widget   *switcher.Widget
	view     *ViewModel
	basemaps map[switcher.LayerID]BasemapConfig
	pending  []switcher.BaseLayerChange

	lastAccessed atomic.Int64 // unix nanoseconds
	streams      atomic.Int32 // open event streams
}

// SessionService owns every open session.
type SessionService struct {
	basemaps *BasemapService
	opts     switcher.Options
	defaults MapDefaults
	history  HistoryStore
	bus      *EventBus
	metrics  *metrics.Metrics
	log      zerolog.Logger
	limits   SessionLimits
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a session service. history, bus and m may be nil.
func NewSessionService(basemaps *BasemapService, opts switcher.Options, defaults MapDefaults, history HistoryStore, bus *EventBus, m *metrics.Metrics, log zerolog.Logger) *SessionService {
	if history == nil {
		history = NewMemoryHistory()
	}
	if bus == nil {
		bus = NewEventBus()
	}
	return &SessionService{
		basemaps: basemaps,
		opts:     opts,
		defaults: defaults,
		history:  history,
		bus:      bus,
		metrics:  m,
		log:      log.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Bus returns the event bus sessions publish to.
func (s *SessionService) Bus() *EventBus { return s.bus }

// History returns the switch history store.
func (s *SessionService) History() HistoryStore { return s.history }

// Options returns the widget options every session is built with.
func (s *SessionService) Options() switcher.Options { return s.opts }

// Create opens a session with a fresh widget over the current basemaps. When
// initial names a basemap, it starts out shown on the primary map and is
// picked as the initial layer.
func (s *SessionService) Create(initial string) (SwitcherView, error) {
	if err := s.makeRoom(); err != nil {
		return SwitcherView{}, err
	}

	sess := &Session{
		ID:       uuid.NewString(),
		Created:  s.now().UTC(),
		factory:  mapengine.NewHeadlessFactory(),
		view:     NewViewModel(),
		basemaps: make(map[switcher.LayerID]BasemapConfig),
	}

	built := s.basemaps.Instantiate()
	layers := make([]switcher.NamedLayer, len(built))
	var shown []mapengine.Layer
	for i, b := range built {
		layers[i] = switcher.NamedLayer{Name: b.Config.Name, Layer: b.Layer}
		if initial != "" && b.Config.ID == initial {
			shown = append(shown, b.Layer)
		}
	}
	if initial != "" && len(shown) == 0 {
		return SwitcherView{}, fmt.Errorf("%w: %q", ErrBasemapNotFound, initial)
	}

	sess.primary = mapengine.NewMap(mapengine.MapOptions{
		Center:  s.defaults.Center,
		Zoom:    s.defaults.Zoom,
		MinZoom: s.defaults.MinZoom,
		MaxZoom: s.defaults.MaxZoom,
		Layers:  shown,
	})

	// Layer identities are the stamps of the definitions handed to the widget.
	for _, b := range built {
		sess.basemaps[switcher.LayerID(mapengine.Stamp(b.Layer))] = b.Config
	}

	sess.primary.Ready()
	w := switcher.New(layers, s.opts, sess.factory, sess.view, s.log.With().Str("session", sess.ID).Logger())
	if _, err := w.AddTo(sess.primary); err != nil {
		return SwitcherView{}, err
	}
	sess.widget = w
	if !w.Hidden() {
		w.OnBaseLayerChange(func(c switcher.BaseLayerChange) {
			sess.pending = append(sess.pending, c)
		})
	}

	sess.lastAccessed.Store(s.now().UnixNano())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetSessionsActive(n)
	s.log.Info().Str("session", sess.ID).Int("layers", len(layers)).Msg("session created")
	return s.snapshot(sess), nil
}

// Get returns the view of a session.
func (s *SessionService) Get(id string) (SwitcherView, error) {
	sess, err := s.session(id)
	if err != nil {
		return SwitcherView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.snapshot(sess), nil
}

// IDs returns the open session IDs, oldest first.
func (s *SessionService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	slices.SortFunc(sessions, func(a, b *Session) int { return a.Created.Compare(b.Created) })
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	return ids
}

// Delete closes a session and detaches its widget.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	sess.widget.Remove()
	sess.mu.Unlock()

	s.metrics.SetSessionsActive(n)
	s.bus.Publish(Event{Session: id, Action: ActionClosed})
	return nil
}

// Result is a session view plus whether the browser must apply it with
// transitions suspended.
type Result struct {
	View   SwitcherView
	Reflow bool
}

// Select switches the session's primary map to a basemap, as a click on its
// minimap. It is ignored while the widget is collapsed.
func (s *SessionService) Select(ctx context.Context, id, basemap string) (Result, error) {
	sess, err := s.session(id)
	if err != nil {
		return Result{}, err
	}

	sess.mu.Lock()
	layerID, ok := sess.layerFor(basemap)
	if !ok {
		sess.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %q", ErrBasemapNotFound, basemap)
	}
	err = sess.widget.Select(layerID)
	changes := sess.pending
	sess.pending = nil
	res := Result{View: s.snapshot(sess), Reflow: sess.view.TakeReflow()}
	sess.mu.Unlock()
	if err != nil {
		return Result{}, err
	}

	for _, c := range changes {
		s.recordSwitch(ctx, sess, c)
	}
	return res, nil
}

// Expand opens the session's widget.
func (s *SessionService) Expand(id string) (SwitcherView, error) {
	return s.apply(id, ActionExpanded, (*switcher.Widget).Expand)
}

// Collapse closes the session's widget.
func (s *SessionService) Collapse(id string) (SwitcherView, error) {
	return s.apply(id, ActionCollapsed, (*switcher.Widget).Collapse)
}

// Toggle opens or closes the session's widget.
func (s *SessionService) Toggle(id string) (SwitcherView, error) {
	return s.apply(id, "", (*switcher.Widget).Toggle)
}

// Move sets the primary map view. Minimaps follow.
func (s *SessionService) Move(id string, center orb.Point, zoom float64) (SwitcherView, error) {
	sess, err := s.session(id)
	if err != nil {
		return SwitcherView{}, err
	}

	sess.mu.Lock()
	sess.primary.SetView(center, zoom, mapengine.ViewOptions{})
	v := s.snapshot(sess)
	sess.mu.Unlock()

	s.metrics.IncViewportMove()
	s.bus.Publish(Event{Session: id, Action: ActionMoved})
	return v, nil
}

func (s *SessionService) apply(id, action string, op func(*switcher.Widget) error) (SwitcherView, error) {
	sess, err := s.session(id)
	if err != nil {
		return SwitcherView{}, err
	}

	sess.mu.Lock()
	err = op(sess.widget)
	v := s.snapshot(sess)
	sess.mu.Unlock()
	if err != nil {
		return SwitcherView{}, err
	}

	if action == "" {
		action = ActionCollapsed
		if v.Expanded {
			action = ActionExpanded
		}
	}
	s.bus.Publish(Event{Session: id, Action: action})
	return v, nil
}

func (s *SessionService) recordSwitch(ctx context.Context, sess *Session, c switcher.BaseLayerChange) {
	to := sess.basemaps[c.Current.ID]
	entry := HistoryEntry{
		SessionID: sess.ID,
		From:      sess.basemaps[c.Previous].ID,
		To:        to.ID,
		Name:      c.Current.Name,
		At:        time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("failed to record switch")
	}
	s.metrics.IncLayerSwitch(to.ID)
	s.bus.Publish(Event{Session: sess.ID, Action: ActionSwitched, LayerID: to.ID})
}

func (s *SessionService) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	sess.lastAccessed.Store(s.now().UnixNano())
	return sess, nil
}

func (sess *Session) layerFor(basemap string) (switcher.LayerID, bool) {
	for id, b := range sess.basemaps {
		if b.ID == basemap {
			return id, true
		}
	}
	return 0, false
}

// snapshot renders the session. Callers hold sess.mu.
func (s *SessionService) snapshot(sess *Session) SwitcherView {
	w := sess.widget
	opts := w.Options()
	layout := sess.view.Layout()
	state := w.State()
	center := sess.primary.Center()

	v := SwitcherView{
		SessionID:     sess.ID,
		Hidden:        w.Hidden(),
		Expanded:      w.Expanded(),
		NoTransition:  sess.view.NoTransition(),
		Position:      opts.Position,
		Width:         layout.Width,
		Height:        opts.Height(),
		MiniMapWidth:  opts.MiniMapWidth,
		MiniMapHeight: opts.MiniMapHeight,
		Active:        sess.basemaps[state.Active].ID,
		Suggested:     sess.basemaps[state.Suggested].ID,
		Lon:           center.Lon(),
		Lat:           center.Lat(),
		Zoom:          sess.primary.Zoom(),
		MiniMaps:      []MiniMapView{},
	}
	if v.Hidden {
		v.Active, v.Suggested = "", ""
	}

	for _, l := range w.Layers() {
		b := sess.basemaps[l.ID]
		mv := MiniMapView{
			LayerID:   l.ID,
			Basemap:   b.ID,
			Name:      l.Name,
			Container: string(switcher.ContainerID(l.ID)),
			URL:       previewURL(l.Preview),
			Active:    !v.Hidden && l.ID == state.Active,
			Suggested: !v.Hidden && l.ID == state.Suggested,
			Left:      layout.Offsets[l.ID],
		}
		if c, ok := sess.view.Container(l.ID); ok {
			mv.Container = string(c)
		}
		if mm, ok := sess.factory.MiniMap(switcher.ContainerID(l.ID)); ok {
			if last, ok := mm.LastView(); ok {
				mv.Lon, mv.Lat, mv.Zoom = last.Center.Lon(), last.Center.Lat(), last.Zoom
			}
		}
		v.MiniMaps = append(v.MiniMaps, mv)
	}
	return v
}

// previewURL returns the tile template of a preview, or the first member's
// for a group.
func previewURL(l mapengine.Layer) string {
	switch t := l.(type) {
	case *mapengine.TileLayer:
		return t.URL
	case *mapengine.LayerGroup:
		for _, sub := range t.Layers() {
			if u := previewURL(sub); u != "" {
				return u
			}
		}
	}
	return ""
}
