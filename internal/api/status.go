package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
)

// SystemStatus is the response for GET /status.
type SystemStatus struct {
	Timestamp     string                        `json:"timestamp"`
	Version       string                        `json:"version"`
	UptimeSeconds int64                         `json:"uptime_seconds"`
	Runtime       RuntimeMetrics                `json:"runtime"`
	WebSocket     WSMetrics                     `json:"websocket"`
	MQTT          *MQTTMetrics                  `json:"mqtt,omitempty"`
	Controller    *alarmdotcom.ControllerStatus `json:"controller,omitempty"`
	Numbers       NumberMetrics                 `json:"numbers"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected     bool `json:"connected"`
	Subscriptions int  `json:"subscriptions"`
}

// NumberMetrics counts exported entities.
type NumberMetrics struct {
	Total   int `json:"total"`
	NoValue int `json:"no_value"`
}

// handleStatus reports bridge health for monitoring.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
	}

	if s.mqtt != nil {
		status.MQTT = &MQTTMetrics{
			Connected:     s.mqtt.IsConnected(),
			Subscriptions: s.mqtt.SubscriptionCount(),
		}
	}
	if s.status != nil {
		cs := s.status.Status()
		status.Controller = &cs
	}

	for _, e := range s.numbers.Entities() {
		status.Numbers.Total++
		if e.State().Value == nil {
			status.Numbers.NoValue++
		}
	}

	writeJSON(w, http.StatusOK, status)
}
