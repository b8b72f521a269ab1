package alarmdotcom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// API paths, relative to the configured base URL.
const (
	pathCameras       = "/web/api/video/devices/cameras"
	pathCameraSetting = "/web/api/video/devices/cameras/{id}/settings"
	pathChangeSetting = "/web/api/video/devices/cameras/{id}/settings/{slug}"
)

// Setting resource types in the settings response.
const (
	resourceConfigurationOption = "configurationOption"
	resourceReadOnlyAttribute   = "readOnlyAttribute"
)

// defaultRequestTimeout applies when ClientConfig.Timeout is zero.
const defaultRequestTimeout = 15 * time.Second

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ClientConfig holds vendor API connection settings.
type ClientConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
	Logger    Logger
}

// Client talks to the Alarm.com web API.
//
// Requests are not retried; the controller's next poll is the retry for
// reads, and writes are never repeated.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	http   *resty.Client
	logger Logger
}

// document is a JSON:API top-level object.
type document[T any] struct {
	Data T `json:"data"`
}

// resource is a JSON:API resource object.
type resource[A any] struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes A      `json:"attributes"`
}

type cameraAttributes struct {
	Description string `json:"description"`
	DeviceModel string `json:"deviceModel"`
}

type settingAttributes struct {
	Name             string   `json:"name"`
	OptionType       string   `json:"optionType"`
	CurrentValue     any      `json:"currentValue"`
	ValueMin         *float64 `json:"valueMin"`
	ValueMax         *float64 `json:"valueMax"`
	UserConfigurable bool     `json:"userConfigurable"`
}

// errorDocument is a JSON:API error response.
type errorDocument struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (d *errorDocument) detail() string {
	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		switch {
		case e.Detail != "":
			parts = append(parts, e.Detail)
		case e.Title != "":
			parts = append(parts, e.Title)
		}
	}
	return strings.Join(parts, "; ")
}

type changeSettingRequest struct {
	Value int `json:"value"`
}

// NewClient creates a vendor API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "graylogic-alarmdotcom"
	}

	http := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/vnd.api+json").
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent)

	if cfg.Token != "" {
		http.SetAuthToken(cfg.Token)
	}
	if cfg.Logger != nil {
		http.SetLogger(restyLogger{cfg.Logger})
	}

	return &Client{
		http:   http,
		logger: cfg.Logger,
	}
}

// FetchCameras lists the cameras on the account in vendor order.
func (c *Client) FetchCameras(ctx context.Context) ([]CameraInfo, error) {
	var doc document[[]resource[cameraAttributes]]
	if err := c.do(ctx, resty.MethodGet, pathCameras, nil, nil, &doc); err != nil {
		return nil, err
	}

	cameras := make([]CameraInfo, 0, len(doc.Data))
	for _, r := range doc.Data {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: camera without id", ErrInvalidResponse)
		}
		cameras = append(cameras, CameraInfo{
			ID:    r.ID,
			Name:  r.Attributes.Description,
			Model: r.Attributes.DeviceModel,
		})
	}
	return cameras, nil
}

// FetchSettings returns a camera's settings in vendor order.
// Resource types other than configuration options and read-only attributes are skipped.
func (c *Client) FetchSettings(ctx context.Context, cameraID string) ([]Setting, error) {
	var doc document[[]resource[settingAttributes]]
	params := map[string]string{"id": cameraID}
	if err := c.do(ctx, resty.MethodGet, pathCameraSetting, params, nil, &doc); err != nil {
		return nil, err
	}

	settings := make([]Setting, 0, len(doc.Data))
	for _, r := range doc.Data {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: setting without id on camera %s", ErrInvalidResponse, cameraID)
		}
		a := r.Attributes
		switch r.Type {
		case resourceConfigurationOption:
			opt := NewConfigurationOption(r.ID, a.Name, OptionType(a.OptionType), a.ValueMin, a.ValueMax, a.CurrentValue)
			opt.UserConfigurable = a.UserConfigurable
			settings = append(settings, opt)
		case resourceReadOnlyAttribute:
			settings = append(settings, &ReadOnlyAttribute{Slug: r.ID, Name: a.Name, Value: a.CurrentValue})
		default:
			c.logDebug("skipping unknown setting type", "camera_id", cameraID, "slug", r.ID, "type", r.Type)
		}
	}
	return settings, nil
}

// ChangeSetting writes value to a camera setting. It implements SettingWriter.
func (c *Client) ChangeSetting(ctx context.Context, deviceID, slug string, value int) error {
	params := map[string]string{"id": deviceID, "slug": slug}
	if err := c.do(ctx, resty.MethodPut, pathChangeSetting, params, changeSettingRequest{Value: value}, nil); err != nil {
		return err
	}
	c.logDebug("setting changed", "device_id", deviceID, "slug", slug, "value", value)
	return nil
}

// do executes a request and decodes a 2xx body into result (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body, result any) error {
	var apiErr errorDocument
	req := c.http.R().
		SetContext(ctx).
		SetError(&apiErr)
	if params != nil {
		req.SetPathParams(params)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}

	if !resp.IsSuccess() {
		return &APIError{
			Method:     method,
			Path:       resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Detail:     apiErr.detail(),
		}
	}
	return nil
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// restyLogger routes resty's printf-style logging into the structured logger.
type restyLogger struct {
	logger Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error("resty: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn("resty: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug("resty: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}
