package main

import (
	"time"

	"github.com/ozlphrt/vibeants/internal/colony"
	"github.com/ozlphrt/vibeants/internal/colony/notifiers"
)

// colonyLoggerAdapter adapts the server's Logger to the colony.Logger interface
type colonyLoggerAdapter struct {
	logger *Logger
}

func (a *colonyLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *colonyLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *colonyLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *colonyLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// Server is the HTTP server exposing worlds to renderers and controllers.
type Server struct {
	manager            *colony.WorldManager
	events             *colony.EventManager
	wsNotifier         *notifiers.WebSocketNotifier
	snapshotDir        string
	snapshotEveryTicks int
	tickInterval       time.Duration
	logger             *Logger
}

// NewServer creates a new server instance with a WebSocket event stream
// registered under the "ws" notifier ID.
func NewServer(logger *Logger) *Server {
	adapter := &colonyLoggerAdapter{logger: logger}
	events := colony.NewEventManagerWithLogger(adapter)
	ws := notifiers.NewWebSocketNotifier("ws")
	if err := events.RegisterNotifier(ws); err != nil {
		logger.Errorf("Failed to register websocket notifier: %v", err)
	}
	return &Server{
		manager:      colony.NewWorldManagerWithLogger(adapter),
		events:       events,
		wsNotifier:   ws,
		tickInterval: 16 * time.Millisecond,
		logger:       logger,
	}
}

// SetSnapshotDir sets the snapshot directory applied to new worlds.
func (s *Server) SetSnapshotDir(dir string) {
	s.snapshotDir = dir
}

// SetSnapshotEveryTicks sets the snapshot frequency applied to new worlds.
func (s *Server) SetSnapshotEveryTicks(ticks int) {
	s.snapshotEveryTicks = ticks
}

// configureWorld wires a freshly created world to the server's event
// manager and snapshot settings.
func (s *Server) configureWorld(w *colony.World) {
	w.SetEventManager(s.events, s.events.ListNotifiers()...)
	if s.snapshotDir != "" {
		w.SetSnapshotDir(s.snapshotDir)
	}
	if s.snapshotEveryTicks >= 0 {
		w.SetSnapshotEveryNTicks(s.snapshotEveryTicks)
	}
}

// Close stops all worlds and shuts down the event pipeline.
func (s *Server) Close() {
	s.manager.StopAll()
	if err := s.events.Close(); err != nil {
		s.logger.Errorf("Error closing event manager: %v", err)
	}
}
