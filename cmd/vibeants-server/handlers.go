package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ozlphrt/vibeants/internal/colony"
	"github.com/ozlphrt/vibeants/internal/colony/notifiers"
)

// extractWorldID extracts the world ID from a path like "/world/{worldID}/..."
// Returns the world ID and the remaining path, or empty strings if not found.
func extractWorldID(path string) (colony.WorldID, string) {
	if !strings.HasPrefix(path, "/world/") {
		return "", ""
	}

	rest := path[len("/world/"):]

	idx := strings.Index(rest, "/")
	if idx == -1 {
		return colony.WorldID(rest), ""
	}
	return colony.WorldID(rest[:idx]), rest[idx:]
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
	}
}

// routeWorld dispatches /world/{id}[/op] requests.
func (s *Server) routeWorld(w http.ResponseWriter, r *http.Request) {
	worldID, rest := extractWorldID(r.URL.Path)
	if worldID == "" {
		http.Error(w, "world ID is required in path: /world/{worldID}", http.StatusBadRequest)
		return
	}

	if rest == "" || rest == "/" {
		switch r.Method {
		case http.MethodPost, http.MethodPut:
			s.handleCreateWorld(w, r, worldID)
		case http.MethodDelete:
			s.handleDeleteWorld(w, r, worldID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	world, exists := s.manager.GetWorld(worldID)
	if !exists {
		http.Error(w, "world not found", http.StatusNotFound)
		return
	}

	switch {
	case rest == "/tick" && r.Method == http.MethodPost:
		s.handleTick(w, r, world)
	case rest == "/run" && r.Method == http.MethodPost:
		s.handleRun(w, r, world)
	case rest == "/stop" && r.Method == http.MethodPost:
		world.Stop()
		writeJSON(w, map[string]string{"status": "stopped"})
	case rest == "/frame" && r.Method == http.MethodGet:
		s.handleFrame(w, r, world)
	case rest == "/stats" && r.Method == http.MethodGet:
		writeJSON(w, world.Stats())
	case rest == "/deliveries" && r.Method == http.MethodGet:
		writeJSON(w, world.Deliveries())
	case rest == "/reset" && r.Method == http.MethodPost:
		world.Reset()
		s.logger.Infof("World reset: world_id=%s", worldID)
		writeJSON(w, map[string]string{"status": "reset"})
	case rest == "/population" && r.Method == http.MethodPost:
		s.handlePopulation(w, r, world)
	case rest == "/obstacle/translate" && r.Method == http.MethodPost:
		s.handleTranslateObstacle(w, r, world)
	case rest == "/obstacle/regenerate" && r.Method == http.MethodPost:
		s.handleRegenerateObstacle(w, r, world)
	case rest == "/food/move" && r.Method == http.MethodPost:
		s.handleMoveFood(w, r, world)
	case rest == "/nest/move" && r.Method == http.MethodPost:
		s.handleMoveNest(w, r, world)
	case rest == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r, world)
	case rest == "/restore" && r.Method == http.MethodPost:
		s.handleRestore(w, r, world)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// POST /world/{worldID}
// Body: optional colony.Config JSON; an empty body uses the defaults.
func (s *Server) handleCreateWorld(w http.ResponseWriter, r *http.Request, worldID colony.WorldID) {
	defer r.Body.Close()

	cfg := colony.DefaultConfig()
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "invalid config json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := colony.ValidateConfig(cfg); err != nil {
		http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
		return
	}

	world, err := s.manager.CreateWorld(worldID, cfg)
	if err != nil {
		http.Error(w, "cannot create world: "+err.Error(), http.StatusConflict)
		return
	}
	s.configureWorld(world)

	s.logger.Infof("World created: world_id=%s ants=%d food=%d obstacles=%d", worldID, cfg.NumAnts, cfg.NumFood, cfg.NumObstacles)
	writeJSON(w, map[string]string{"status": "created", "world_id": string(worldID)})
}

// DELETE /world/{worldID}
func (s *Server) handleDeleteWorld(w http.ResponseWriter, r *http.Request, worldID colony.WorldID) {
	if err := s.manager.DeleteWorld(worldID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Infof("World deleted: world_id=%s", worldID)
	writeJSON(w, map[string]string{"status": "deleted"})
}

// GET /worlds
func (s *Server) handleListWorlds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.manager.ListWorlds())
}

// POST /world/{worldID}/tick?steps=N
// Manually advance the world; useful when auto-running is disabled.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request, world *colony.World) {
	steps := 1
	if v := r.URL.Query().Get("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "steps must be a positive integer", http.StatusBadRequest)
			return
		}
		steps = n
	}
	world.StepN(steps)
	writeJSON(w, map[string]int64{"tick": world.Tick()})
}

// POST /world/{worldID}/run
// Body: optional { "interval_ms": N }
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	interval := s.tickInterval
	if r.ContentLength != 0 {
		var req struct {
			IntervalMS int `json:"interval_ms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.IntervalMS > 0 {
			interval = time.Duration(req.IntervalMS) * time.Millisecond
		}
	}
	world.Run(interval)
	writeJSON(w, map[string]string{"status": "running"})
}

// GET /world/{worldID}/frame?threshold=X
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, world *colony.World) {
	threshold := colony.DefaultDisplayThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			http.Error(w, "threshold must be a non-negative number", http.StatusBadRequest)
			return
		}
		threshold = t
	}
	writeJSON(w, world.Frame(threshold))
}

// POST /world/{worldID}/population
// Body: { "count": N }
func (s *Server) handlePopulation(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := world.SetPopulation(req.Count); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]int{"count": req.Count})
}

// POST /world/{worldID}/obstacle/translate
// Body: { "index": N, "dx": X, "dy": Y }
func (s *Server) handleTranslateObstacle(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	var req struct {
		Index int     `json:"index"`
		DX    float64 `json:"dx"`
		DY    float64 `json:"dy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := world.TranslateObstacle(req.Index, colony.Vec2{X: req.DX, Y: req.DY}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// POST /world/{worldID}/obstacle/regenerate
// Body: { "index": N, "x": X, "y": Y, "radius": R }
func (s *Server) handleRegenerateObstacle(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	var req struct {
		Index  int     `json:"index"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Radius float64 `json:"radius"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := world.RegenerateObstacle(req.Index, colony.Vec2{X: req.X, Y: req.Y}, req.Radius); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// POST /world/{worldID}/food/move
// Body: { "index": N, "x": X, "y": Y }
func (s *Server) handleMoveFood(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	var req struct {
		Index int     `json:"index"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := world.MoveFood(req.Index, colony.Vec2{X: req.X, Y: req.Y}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// POST /world/{worldID}/nest/move
// Body: { "x": X, "y": Y }
func (s *Server) handleMoveNest(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	world.MoveNest(colony.Vec2{X: req.X, Y: req.Y})
	writeJSON(w, map[string]string{"status": "ok"})
}

// POST /world/{worldID}/snapshot
// Writes a snapshot file into the configured snapshot directory.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request, world *colony.World) {
	dir := s.snapshotDir
	if dir == "" {
		dir = "./data"
	}
	path, err := world.SaveSnapshot(dir)
	if err != nil {
		s.logger.Errorf("Snapshot save failed: world_id=%s error=%v", world.ID(), err)
		http.Error(w, "cannot save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "path": path})
}

// POST /world/{worldID}/restore
// Body: colony.Snapshot JSON
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request, world *colony.World) {
	defer r.Body.Close()

	var snap colony.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "invalid snapshot json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := world.Restore(snap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infof("World restored: world_id=%s tick=%d", world.ID(), snap.Tick)
	writeJSON(w, map[string]string{"status": "restored"})
}

// GET /ws
// Upgrades to a WebSocket subscribed to the event stream.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.wsNotifier.GetUpgrader()
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	s.wsNotifier.RegisterClient(conn)

	// Drain reads so close frames are processed; unregister on error.
	go func() {
		defer s.wsNotifier.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// POST /notifiers/webhook
// Body: { "id": "...", "url": "..." }
func (s *Server) handleRegisterWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.URL == "" {
		http.Error(w, "id and url are required", http.StatusBadRequest)
		return
	}

	notifier := notifiers.NewWebhookNotifier(req.ID, req.URL)
	if err := s.events.RegisterNotifier(notifier); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// Existing worlds pick up the new notifier too.
	for _, id := range s.manager.ListWorlds() {
		if world, ok := s.manager.GetWorld(id); ok {
			world.SetEventManager(s.events, s.events.ListNotifiers()...)
		}
	}
	s.logger.Infof("Webhook notifier registered: id=%s url=%s", req.ID, req.URL)
	writeJSON(w, map[string]string{"status": "registered", "id": req.ID})
}
