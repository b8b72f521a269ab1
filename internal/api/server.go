package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/entity"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultCommandTimeout bounds a value write made through the API.
const defaultCommandTimeout = 10 * time.Second

// NumberService is the entity host the API reads and writes through.
// *hass.Platform implements it.
type NumberService interface {
	Entity(uniqueID string) (*number.Entity, error)
	Entities() []*number.Entity
	SetValue(ctx context.Context, uniqueID string, value float64) error
}

// HistoryStore serves recorded values. *entity.Registry implements it.
type HistoryStore interface {
	History(ctx context.Context, uniqueID string, limit int) ([]entity.HistoryEntry, error)
}

// StatusProvider reports the vendor controller's poll status.
// *alarmdotcom.Controller implements it.
type StatusProvider interface {
	Status() alarmdotcom.ControllerStatus
}

// BrokerStatus reports the broker connection and how many topic
// subscriptions the bridge holds. *mqtt.Client implements it.
type BrokerStatus interface {
	IsConnected() bool
	SubscriptionCount() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Numbers  NumberService
	History  HistoryStore      // Optional: history endpoint returns 503 without it
	Status   StatusProvider    // Optional
	MQTT     BrokerStatus      // Optional
	Hub      *Hub              // If set, the server uses this hub instead of creating its own
	Version  string

	// CommandTimeout bounds PUT /numbers/{id}/value. Defaults to 10s.
	CommandTimeout time.Duration
}

// Server is the HTTP API server for the bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	numbers     NumberService
	history     HistoryStore
	status      StatusProvider
	mqtt        BrokerStatus
	version     string
	timeout     time.Duration
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool // true if hub was injected externally
	tickets     *ticketStore
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Numbers == nil {
		return nil, fmt.Errorf("number service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		numbers:   deps.Numbers,
		history:   deps.History,
		status:    deps.Status,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		timeout:   deps.CommandTimeout,
		startTime: time.Now(),
		hub:       deps.Hub,
		tickets:   newTicketStore(),
	}
	if s.timeout <= 0 {
		s.timeout = defaultCommandTimeout
	}
	if s.hub != nil {
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It runs the WebSocket hub (unless injected), starts ticket cleanup and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
