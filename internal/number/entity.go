package number

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
)

// Mode is how the host should render the number input.
type Mode string

// Display modes.
const (
	ModeAuto   Mode = "auto"
	ModeSlider Mode = "slider"
)

// EntityCategoryConfig marks an entity as device configuration rather than
// a primary control.
const EntityCategoryConfig = "config"

// optionTraits describes how an option type is presented.
type optionTraits struct {
	Icon string
}

// optionTypes lists the option types exposed as numbers. Membership is
// also the discovery filter used by Setup.
var optionTypes = map[alarmdotcom.OptionType]optionTraits{
	alarmdotcom.OptionBrightness: {Icon: "mdi:brightness-5"},
}

// Supported reports whether options of type t become number entities.
func Supported(t alarmdotcom.OptionType) bool {
	_, ok := optionTypes[t]
	return ok
}

// Coordinator supplies cameras and change notifications.
// *alarmdotcom.Controller implements it.
type Coordinator interface {
	Cameras() []*alarmdotcom.Device
	Subscribe(deviceID string, fn func()) (unsubscribe func())
}

// State is the entity's exported state. Pointer fields are nil when the
// value is absent.
type State struct {
	UniqueID       string                 `json:"unique_id"`
	Name           string                 `json:"name"`
	DeviceID       string                 `json:"device_id"`
	DeviceName     string                 `json:"device_name"`
	Slug           string                 `json:"slug"`
	OptionType     alarmdotcom.OptionType `json:"option_type"`
	Min            *float64               `json:"min,omitempty"`
	Max            *float64               `json:"max,omitempty"`
	Mode           Mode                   `json:"mode"`
	Value          *float64               `json:"value"`
	Icon           string                 `json:"icon,omitempty"`
	EntityCategory string                 `json:"entity_category"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (s State) clone() State {
	s.Min = clonePtr(s.Min)
	s.Max = clonePtr(s.Max)
	s.Value = clonePtr(s.Value)
	return s
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StateHook receives the entity state after each refresh. err is the
// refresh error, if any; state is then the unchanged previous state.
type StateHook func(state State, err error)

// Entity is one (camera, configuration option) pair exposed as a number.
//
// Thread Safety: All methods are safe for concurrent use.
type Entity struct {
	coordinator Coordinator
	device      *alarmdotcom.Device
	option      *alarmdotcom.ConfigurationOption

	mu    sync.RWMutex
	state State

	attachMu    sync.Mutex
	unsubscribe func()
}

// NewEntity builds an entity for option on device.
//
// Min and Max are copied from the option when present; an absent bound
// leaves that side unbounded. Mode is slider only when both bounds are
// present. Bound ordering is not checked.
func NewEntity(coordinator Coordinator, device *alarmdotcom.Device, option *alarmdotcom.ConfigurationOption) *Entity {
	st := State{
		UniqueID:       device.ID + "_" + option.Slug,
		Name:           strings.TrimSpace(device.Name + " " + option.Name),
		DeviceID:       device.ID,
		DeviceName:     device.Name,
		Slug:           option.Slug,
		OptionType:     option.Type,
		Min:            clonePtr(option.ValueMin),
		Max:            clonePtr(option.ValueMax),
		Mode:           ModeAuto,
		Icon:           iconFor(option.Type),
		EntityCategory: EntityCategoryConfig,
	}
	if st.Min != nil && st.Max != nil {
		st.Mode = ModeSlider
	}

	return &Entity{
		coordinator: coordinator,
		device:      device,
		option:      option,
		state:       st,
	}
}

// iconFor maps an option type to its icon. Types without one get the
// base entity icon, which is empty.
func iconFor(t alarmdotcom.OptionType) string {
	return optionTypes[t].Icon
}

// UniqueID returns the stable entity identifier.
func (e *Entity) UniqueID() string { return e.state.UniqueID }

// DeviceID returns the camera ID.
func (e *Entity) DeviceID() string { return e.state.DeviceID }

// Slug returns the option slug used for writes.
func (e *Entity) Slug() string { return e.state.Slug }

// Icon returns the current icon.
func (e *Entity) Icon() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Icon
}

// State returns a copy of the current state.
func (e *Entity) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.clone()
}

// Refresh copies the option's current value into the entity.
//
// An absent current value (nil or an empty string) keeps the previous
// displayed value. A value that is not a finite number returns
// ErrValueConversion and leaves the state untouched.
func (e *Entity) Refresh() error {
	current := e.option.CurrentValue()

	var value *float64
	if !isUnset(current) {
		f, err := toFloat(current)
		if err != nil {
			return fmt.Errorf("%w: %s on %s: %w", ErrValueConversion, e.state.Slug, e.state.DeviceID, err)
		}
		value = &f
	}

	e.mu.Lock()
	if value != nil {
		e.state.Value = value
	}
	e.state.Icon = iconFor(e.state.OptionType)
	e.state.UpdatedAt = time.Now()
	e.mu.Unlock()
	return nil
}

// SetNativeValue asks the device to set the option to value, truncated
// toward zero. It blocks until the vendor answers. Vendor errors are
// returned wrapped, so errors.Is still matches them. The displayed value
// is not changed here.
func (e *Entity) SetNativeValue(ctx context.Context, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value >= math.MaxInt64 || value < math.MinInt64 {
		return fmt.Errorf("%w: %v", ErrInvalidValue, value)
	}
	if err := e.device.ChangeSetting(ctx, e.state.Slug, int(value)); err != nil {
		return fmt.Errorf("setting %s on %s: %w", e.state.Slug, e.state.DeviceID, err)
	}
	return nil
}

// Attach subscribes the entity to controller updates. After every update
// the entity refreshes and hook (if non-nil) receives the result. Calling
// Attach again replaces the previous subscription.
func (e *Entity) Attach(hook StateHook) {
	e.attachMu.Lock()
	defer e.attachMu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.unsubscribe = e.coordinator.Subscribe(e.state.DeviceID, func() {
		err := e.Refresh()
		if hook != nil {
			hook(e.State(), err)
		}
	})
}

// Detach removes the controller subscription. Safe to call when not attached.
func (e *Entity) Detach() {
	e.attachMu.Lock()
	defer e.attachMu.Unlock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// isUnset reports whether the vendor left the option without a value.
func isUnset(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// toFloat converts a vendor value to a finite float64. Strings are parsed
// after trimming; booleans convert to 0 or 1.
func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}
