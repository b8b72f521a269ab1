package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/entity"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

// defaultCommandTimeout bounds a single vendor write triggered by a command.
const defaultCommandTimeout = 10 * time.Second

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the interface for MQTT operations.
// *mqtt.Client implements it; tests use a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Registry persists exported entities and their observed values.
// *entity.Registry implements it.
type Registry interface {
	Upsert(ctx context.Context, rec entity.Record) error
	RecordValue(ctx context.Context, uniqueID string, value float64, source string) error
	List() []entity.Record
	Delete(ctx context.Context, uniqueID string) error
}

// ValueWriter records values in a time-series store.
// *influxdb.Client implements it.
type ValueWriter interface {
	WriteNumberValue(v influxdb.NumberValue)
}

// Broadcaster pushes state changes to live listeners such as websocket clients.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// EventNumberState is the Broadcaster event type for state changes.
const EventNumberState = "number.state"

// PlatformOptions holds the dependencies for creating a Platform.
type PlatformOptions struct {
	MQTT           MQTTClient
	Topics         mqtt.Topics
	QoS            byte
	CommandTimeout time.Duration
	Version        string

	Registry Registry    // Optional
	Values   ValueWriter // Optional
	Logger   Logger      // Optional
}

// Platform is the host side of the number platform. It renders entity
// state into Home Assistant MQTT discovery, state and availability
// messages, and turns set-topic commands into SetNativeValue calls.
//
// Thread Safety: All methods are safe for concurrent use.
type Platform struct {
	mqtt           MQTTClient
	topics         mqtt.Topics
	qos            byte
	commandTimeout time.Duration
	version        string
	registry       Registry
	values         ValueWriter
	logger         Logger

	broadcastMu sync.RWMutex
	broadcaster Broadcaster

	entitiesMu sync.RWMutex
	entities   map[string]*number.Entity
	order      []string

	// lastValues holds the last value recorded per entity, for change detection.
	lastValuesMu sync.Mutex
	lastValues   map[string]float64

	// lifeMu orders wg.Add against Stop; stopped is set under it.
	lifeMu    sync.Mutex
	stopped   bool
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// NewPlatform creates a platform. Call Start before AddEntities.
func NewPlatform(opts PlatformOptions) (*Platform, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("hass: MQTT client is required")
	}
	if opts.Topics.DiscoveryPrefix == "" || opts.Topics.NodeID == "" {
		return nil, fmt.Errorf("hass: discovery prefix and node id are required")
	}

	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Platform{
		mqtt:           opts.MQTT,
		topics:         opts.Topics,
		qos:            opts.QoS,
		commandTimeout: timeout,
		version:        opts.Version,
		registry:       opts.Registry,
		values:         opts.Values,
		logger:         opts.Logger,
		entities:       make(map[string]*number.Entity),
		lastValues:     make(map[string]float64),
		done:           make(chan struct{}),
		ctx:            ctx,
		ctxCancel:      cancel,
	}, nil
}

// SetBroadcaster sets the live-update sink. It may be called at any time.
func (p *Platform) SetBroadcaster(b Broadcaster) {
	p.broadcastMu.Lock()
	p.broadcaster = b
	p.broadcastMu.Unlock()
}

// Start subscribes to Home Assistant's status topic and announces the
// bridge as online.
func (p *Platform) Start(_ context.Context) error {
	statusTopic := p.topics.HomeAssistantStatus()
	if err := p.mqtt.Subscribe(statusTopic, p.qos, p.handleHomeAssistantStatus); err != nil {
		return fmt.Errorf("subscribe to %s: %w", statusTopic, err)
	}

	if err := p.mqtt.Publish(p.topics.Availability(), []byte(mqtt.PayloadOnline), p.qos, true); err != nil {
		p.logWarn("failed to publish availability", "error", err)
	}

	p.logInfo("home assistant platform started", "discovery_prefix", p.topics.DiscoveryPrefix, "node_id", p.topics.NodeID)
	return nil
}

// Stop detaches every entity, cancels in-flight commands and marks the
// bridge offline. Safe to call multiple times.
func (p *Platform) Stop() {
	p.stopOnce.Do(func() {
		p.lifeMu.Lock()
		p.stopped = true
		close(p.done)
		p.lifeMu.Unlock()
		p.ctxCancel()

		for _, e := range p.Entities() {
			e.Detach()
			p.unsubscribe(p.topics.EntityCommand(componentNumber, e.UniqueID()))
		}
		p.unsubscribe(p.topics.HomeAssistantStatus())
		p.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown; the LWT covers failure
		p.mqtt.Publish(p.topics.Availability(), []byte(mqtt.PayloadOffline), p.qos, true)

		p.logInfo("home assistant platform stopped")
	})
}

// goTracked runs fn on a goroutine that Stop waits for. It returns false,
// without running fn, once Stop has begun.
func (p *Platform) goTracked(fn func()) bool {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.stopped {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
	return true
}

func (p *Platform) unsubscribe(topic string) {
	if err := p.mqtt.Unsubscribe(topic); err != nil {
		p.logDebug("unsubscribe failed", "topic", topic, "error", err)
	}
}

// AddEntities registers entities with Home Assistant. It matches
// number.AddEntitiesFunc.
//
// For each entity it upserts the registry record, publishes the retained
// discovery config and current state, subscribes to the command topic and
// attaches to controller updates. An entity already added is skipped.
func (p *Platform) AddEntities(ctx context.Context, entities []*number.Entity) error {
	select {
	case <-p.done:
		return ErrStopped
	default:
	}

	for _, e := range entities {
		id := e.UniqueID()

		if _, err := p.Entity(id); err == nil {
			p.logDebug("entity already added", "unique_id", id)
			continue
		}

		st := e.State()
		if p.registry != nil {
			if err := p.registry.Upsert(ctx, entity.RecordFromState(st)); err != nil {
				p.logWarn("failed to register entity", "unique_id", id, "error", err)
			}
		}

		if err := p.publishDiscovery(st); err != nil {
			return fmt.Errorf("publishing discovery for %s: %w", id, err)
		}

		commandTopic := p.topics.EntityCommand(componentNumber, id)
		if err := p.mqtt.Subscribe(commandTopic, p.qos, p.handleCommand); err != nil {
			return fmt.Errorf("subscribe to %s: %w", commandTopic, err)
		}

		p.entitiesMu.Lock()
		if _, exists := p.entities[id]; exists {
			p.entitiesMu.Unlock()
			continue
		}
		p.entities[id] = e
		p.order = append(p.order, id)
		p.entitiesMu.Unlock()

		p.stateWritten(st, nil)
		e.Attach(p.stateWritten)

		p.logInfo("number entity added", "unique_id", id, "name", st.Name, "mode", st.Mode)
	}
	return nil
}

// Entity looks up an added entity.
func (p *Platform) Entity(uniqueID string) (*number.Entity, error) {
	p.entitiesMu.RLock()
	defer p.entitiesMu.RUnlock()
	e, ok := p.entities[uniqueID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	return e, nil
}

// Entities returns every added entity in the order added.
func (p *Platform) Entities() []*number.Entity {
	p.entitiesMu.RLock()
	defer p.entitiesMu.RUnlock()
	out := make([]*number.Entity, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entities[id])
	}
	return out
}

// SetValue forwards a user value to the entity's device. It blocks until
// the vendor answers or ctx ends. Errors are returned unchanged. An
// accepted value is recorded in the history as a command; the displayed
// value still follows the next refresh.
func (p *Platform) SetValue(ctx context.Context, uniqueID string, value float64) error {
	e, err := p.Entity(uniqueID)
	if err != nil {
		return err
	}
	if err := e.SetNativeValue(ctx, value); err != nil {
		return err
	}

	if p.registry != nil {
		if err := p.registry.RecordValue(ctx, uniqueID, math.Trunc(value), entity.SourceCommand); err != nil {
			p.logWarn("failed to record command value", "unique_id", uniqueID, "error", err)
		}
	}
	return nil
}

// PruneStale removes entities that the registry remembers but the bridge
// no longer exports. Their retained discovery config and state are cleared
// so Home Assistant drops them, and their records and history are deleted.
// Call it after discovery has run against a successful refresh.
func (p *Platform) PruneStale(ctx context.Context) (int, error) {
	if p.registry == nil {
		return 0, nil
	}

	pruned := 0
	for _, rec := range p.registry.List() {
		if _, err := p.Entity(rec.UniqueID); err == nil {
			continue
		}

		for _, topic := range []string{
			p.topics.DiscoveryConfig(componentNumber, rec.UniqueID),
			p.topics.EntityState(componentNumber, rec.UniqueID),
		} {
			if err := p.mqtt.Publish(topic, nil, p.qos, true); err != nil {
				return pruned, fmt.Errorf("clearing %s: %w", topic, err)
			}
		}
		if err := p.registry.Delete(ctx, rec.UniqueID); err != nil {
			return pruned, fmt.Errorf("deleting %s: %w", rec.UniqueID, err)
		}

		p.logInfo("stale number entity removed", "unique_id", rec.UniqueID, "name", rec.Name)
		pruned++
	}
	return pruned, nil
}

// stateWritten is the entity state hook. It publishes the state, records
// changed values and notifies live listeners.
func (p *Platform) stateWritten(st number.State, err error) {
	if err != nil {
		p.logWarn("entity refresh failed", "unique_id", st.UniqueID, "error", err)
		return
	}
	if st.Value == nil {
		return
	}

	payload := []byte(strconv.FormatFloat(*st.Value, 'f', -1, 64))
	if err := p.mqtt.Publish(p.topics.EntityState(componentNumber, st.UniqueID), payload, p.qos, true); err != nil {
		p.logWarn("failed to publish state", "unique_id", st.UniqueID, "error", err)
	}

	if p.valueChanged(st.UniqueID, *st.Value) {
		p.recordValue(st)
	}

	p.broadcastMu.RLock()
	b := p.broadcaster
	p.broadcastMu.RUnlock()
	if b != nil {
		b.Broadcast(EventNumberState, StateEvent{State: st})
	}
}

func (p *Platform) valueChanged(uniqueID string, v float64) bool {
	p.lastValuesMu.Lock()
	defer p.lastValuesMu.Unlock()
	prev, seen := p.lastValues[uniqueID]
	if seen && prev == v {
		return false
	}
	p.lastValues[uniqueID] = v
	return true
}

func (p *Platform) recordValue(st number.State) {
	if p.registry != nil {
		if err := p.registry.RecordValue(p.ctx, st.UniqueID, *st.Value, entity.SourcePoll); err != nil && p.ctx.Err() == nil {
			p.logWarn("failed to record value", "unique_id", st.UniqueID, "error", err)
		}
	}
	if p.values != nil {
		p.values.WriteNumberValue(influxdb.NumberValue{
			UniqueID:   st.UniqueID,
			DeviceID:   st.DeviceID,
			OptionType: string(st.OptionType),
			Value:      *st.Value,
			Time:       st.UpdatedAt,
		})
	}
}

func (p *Platform) publishDiscovery(st number.State) error {
	cfg := DiscoveryConfig{
		Name:              st.Name,
		UniqueID:          st.UniqueID,
		ObjectID:          st.UniqueID,
		CommandTopic:      p.topics.EntityCommand(componentNumber, st.UniqueID),
		StateTopic:        p.topics.EntityState(componentNumber, st.UniqueID),
		AvailabilityTopic: p.topics.Availability(),
		Min:               st.Min,
		Max:               st.Max,
		Step:              1,
		Mode:              st.Mode,
		Icon:              st.Icon,
		EntityCategory:    st.EntityCategory,
		Device: DeviceInfo{
			Identifiers:  []string{p.topics.NodeID + "_" + st.DeviceID},
			Name:         st.DeviceName,
			Manufacturer: manufacturer,
		},
		Origin: OriginInfo{
			Name:      "gray-logic-alarmdotcom",
			SWVersion: p.version,
		},
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling discovery config: %w", err)
	}
	return p.mqtt.Publish(p.topics.DiscoveryConfig(componentNumber, st.UniqueID), payload, p.qos, true)
}

// handleHomeAssistantStatus re-sends discovery and state when Home
// Assistant comes back online, since it may have lost retained messages.
func (p *Platform) handleHomeAssistantStatus(_ string, payload []byte) error {
	if strings.TrimSpace(string(payload)) != mqtt.PayloadOnline {
		return nil
	}

	started := p.goTracked(func() {
		for _, e := range p.Entities() {
			st := e.State()
			if err := p.publishDiscovery(st); err != nil {
				p.logWarn("failed to republish discovery", "unique_id", st.UniqueID, "error", err)
				continue
			}
			p.stateWritten(st, nil)
		}
	})
	if started {
		p.logInfo("home assistant online, republishing discovery")
	}
	return nil
}

// handleCommand processes a value published to an entity's set topic.
// The vendor write runs off the MQTT delivery goroutine.
func (p *Platform) handleCommand(topic string, payload []byte) error {
	_, uniqueID, channel, ok := mqtt.ParseEntityTopic(topic)
	if !ok || channel != "set" {
		return fmt.Errorf("%w: unexpected command topic %s", ErrInvalidPayload, topic)
	}

	commandID := uuid.NewString()
	value, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		p.publishAck(commandID, uniqueID, nil, ErrCodeInvalidPayload, fmt.Errorf("%w: %q", ErrInvalidPayload, payload))
		return nil
	}

	if !p.goTracked(func() { p.executeCommand(commandID, uniqueID, value) }) {
		return ErrStopped
	}
	return nil
}

func (p *Platform) executeCommand(commandID, uniqueID string, value float64) {
	ctx, cancel := context.WithTimeout(p.ctx, p.commandTimeout)
	defer cancel()

	p.logInfo("received command", "command_id", commandID, "unique_id", uniqueID, "value", value)

	err := p.SetValue(ctx, uniqueID, value)
	if err == nil {
		p.publishAck(commandID, uniqueID, &value, "", nil)
		return
	}

	code := ErrCodeVendorError
	switch {
	case errors.Is(err, ErrEntityNotFound), errors.Is(err, number.ErrInvalidValue):
		code = ErrCodeInvalidValue
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}
	p.logWarn("command failed", "command_id", commandID, "unique_id", uniqueID, "error", err)
	p.publishAck(commandID, uniqueID, &value, code, err)
}

// publishAck sends an ack; a nil err means accepted.
func (p *Platform) publishAck(commandID, uniqueID string, value *float64, code string, err error) {
	ack := AckMessage{
		CommandID: commandID,
		Timestamp: time.Now().UTC(),
		UniqueID:  uniqueID,
		Value:     value,
		Status:    AckAccepted,
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: code, Message: err.Error()}
	}

	payload, mErr := json.Marshal(ack)
	if mErr != nil {
		p.logError("failed to marshal ack", "error", mErr)
		return
	}
	if pErr := p.mqtt.Publish(p.topics.EntityAck(componentNumber, uniqueID), payload, p.qos, false); pErr != nil {
		p.logWarn("failed to publish ack", "unique_id", uniqueID, "error", pErr)
	}
}

func (p *Platform) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Platform) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Platform) logWarn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Platform) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
