package alarmdotcom

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Controller defaults.
const (
	// defaultPollInterval is used when ControllerOptions.PollInterval is zero.
	defaultPollInterval = 60 * time.Second

	// defaultMaxParallel bounds concurrent settings fetches.
	defaultMaxParallel = 4
)

// API is the subset of the vendor client used by the controller.
// *Client implements it.
type API interface {
	SettingWriter
	FetchCameras(ctx context.Context) ([]CameraInfo, error)
	FetchSettings(ctx context.Context, cameraID string) ([]Setting, error)
}

// ControllerOptions holds the dependencies for creating a Controller.
type ControllerOptions struct {
	API          API
	PollInterval time.Duration
	MaxParallel  int
	Logger       Logger // Optional
}

// ControllerStatus summarises the last refresh.
type ControllerStatus struct {
	Cameras     int       `json:"cameras"`
	LastRefresh time.Time `json:"last_refresh"`
	LastError   string    `json:"last_error,omitempty"`
}

// Controller owns the camera collection and keeps it current by polling.
//
// Devices and their configuration options are discovered by the first
// successful Refresh. Later refreshes update current values in place on the
// existing *ConfigurationOption objects, then notify that device's listeners.
// Bounds, names and slugs stay as first discovered.
//
// Listeners run synchronously on the goroutine that called Refresh and must
// not block.
//
// Thread Safety: All methods are safe for concurrent use.
type Controller struct {
	api          API
	pollInterval time.Duration
	maxParallel  int
	logger       Logger

	mu      sync.RWMutex
	cameras []*Device
	byID    map[string]*Device

	listenersMu    sync.Mutex
	listeners      map[string]map[uint64]func()
	nextListenerID uint64

	// refreshMu serialises Refresh so merges never interleave.
	refreshMu sync.Mutex
	refreshCh chan struct{}

	statusMu    sync.RWMutex
	lastRefresh time.Time
	lastErr     error

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewController creates a controller. Call Refresh once to discover devices,
// then Start to begin polling.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("alarmdotcom: API client is required")
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	parallel := opts.MaxParallel
	if parallel <= 0 {
		parallel = defaultMaxParallel
	}

	return &Controller{
		api:          opts.API,
		pollInterval: interval,
		maxParallel:  parallel,
		logger:       opts.Logger,
		byID:         make(map[string]*Device),
		listeners:    make(map[string]map[uint64]func()),
		refreshCh:    make(chan struct{}, 1),
		done:         make(chan struct{}),
	}, nil
}

// Cameras returns the known cameras in vendor order.
func (c *Controller) Cameras() []*Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.cameras)
}

// Subscribe registers fn to run after every refresh that updates deviceID.
// The returned function removes the registration.
func (c *Controller) Subscribe(deviceID string, fn func()) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	if c.listeners[deviceID] == nil {
		c.listeners[deviceID] = make(map[uint64]func())
	}
	c.listeners[deviceID][id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners[deviceID], id)
			if len(c.listeners[deviceID]) == 0 {
				delete(c.listeners, deviceID)
			}
			c.listenersMu.Unlock()
		})
	}
}

// Refresh fetches every camera and its settings and merges the result.
//
// Settings are fetched concurrently, at most MaxParallel at a time. A camera
// whose settings fail to load keeps its previous values; the failures are
// joined into the returned error. Listeners of every camera that did load
// are notified, in camera order, before Refresh returns.
func (c *Controller) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	err := c.refresh(ctx)

	c.statusMu.Lock()
	c.lastErr = err
	if err == nil {
		c.lastRefresh = time.Now()
	}
	c.statusMu.Unlock()

	return err
}

func (c *Controller) refresh(ctx context.Context) error {
	infos, err := c.api.FetchCameras(ctx)
	if err != nil {
		return fmt.Errorf("fetching cameras: %w", err)
	}

	settings := make([][]Setting, len(infos))
	errs := make([]error, len(infos))

	var g errgroup.Group
	g.SetLimit(c.maxParallel)
	for i, info := range infos {
		g.Go(func() error {
			s, err := c.api.FetchSettings(ctx, info.ID)
			if err != nil {
				errs[i] = fmt.Errorf("fetching settings for camera %s: %w", info.ID, err)
				return nil
			}
			settings[i] = s
			return nil
		})
	}
	g.Wait() //nolint:errcheck // Workers record errors per index

	updated := c.merge(infos, settings, errs)
	c.notify(updated)

	return errors.Join(errs...)
}

// merge applies fetched settings and returns the IDs of existing cameras
// whose values were updated.
func (c *Controller) merge(infos []CameraInfo, settings [][]Setting, errs []error) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var updated []string
	for i, info := range infos {
		if errs[i] != nil {
			continue
		}

		existing, ok := c.byID[info.ID]
		if !ok {
			d := NewDevice(info.ID, info.Name, info.Model, settings[i], c.api, c.RequestRefresh)
			c.cameras = append(c.cameras, d)
			c.byID[info.ID] = d
			c.logDebug("camera discovered", "camera_id", info.ID, "name", info.Name, "settings", len(settings[i]))
			continue
		}

		for _, s := range settings[i] {
			fresh, ok := s.(*ConfigurationOption)
			if !ok {
				continue
			}
			current, found := existing.Setting(fresh.Slug)
			if !found {
				c.logDebug("ignoring setting added after discovery", "camera_id", info.ID, "slug", fresh.Slug)
				continue
			}
			if opt, isOpt := current.(*ConfigurationOption); isOpt {
				opt.SetCurrentValue(fresh.CurrentValue())
			}
		}
		updated = append(updated, info.ID)
	}
	return updated
}

// notify runs listeners outside every controller lock, in registration order.
func (c *Controller) notify(deviceIDs []string) {
	for _, id := range deviceIDs {
		c.listenersMu.Lock()
		ids := make([]uint64, 0, len(c.listeners[id]))
		for lid := range c.listeners[id] {
			ids = append(ids, lid)
		}
		slices.Sort(ids)
		fns := make([]func(), 0, len(ids))
		for _, lid := range ids {
			fns = append(fns, c.listeners[id][lid])
		}
		c.listenersMu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}

// RequestRefresh schedules a refresh on the poll loop without waiting.
// Requests made while one is already pending are coalesced.
func (c *Controller) RequestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Start begins polling. The loop stops when ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.pollLoop(ctx)
	c.logInfo("controller started", "poll_interval", c.pollInterval.String())
}

// Stop halts polling and waits for an in-flight refresh to finish.
// Safe to call multiple times.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.logInfo("controller stopped")
	})
}

func (c *Controller) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.refreshCh:
		}

		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			c.logWarn("refresh failed", "error", err)
		}
	}
}

// Status reports the outcome of the most recent refresh.
func (c *Controller) Status() ControllerStatus {
	c.mu.RLock()
	n := len(c.cameras)
	c.mu.RUnlock()

	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	st := ControllerStatus{Cameras: n, LastRefresh: c.lastRefresh}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
