package alarmdotcom

import (
	"context"
	"slices"
	"sync"
)

// OptionType identifies what a configuration option controls.
type OptionType string

// Known configuration option types.
const (
	OptionBrightness        OptionType = "brightness"
	OptionColor             OptionType = "color"
	OptionMotionSensitivity OptionType = "motion_sensitivity"
	OptionAdjustableChime   OptionType = "adjustable_chime"
	OptionBinaryChime       OptionType = "binary_chime"
)

// Setting is an entry in a device's settings collection.
type Setting interface {
	// SettingSlug returns the vendor key used to address the setting.
	SettingSlug() string
}

// ConfigurationOption is a user-adjustable device setting.
//
// Slug, Name, Type, bounds and UserConfigurable are fixed once the option
// is discovered. The current value is replaced by every controller refresh
// and must be read through CurrentValue.
type ConfigurationOption struct {
	Slug             string
	Name             string
	Type             OptionType
	ValueMin         *float64 // nil when the vendor reports no lower bound
	ValueMax         *float64 // nil when the vendor reports no upper bound
	UserConfigurable bool

	mu           sync.RWMutex
	currentValue any // nil, string, bool, or a JSON number (float64)
}

// NewConfigurationOption creates an option with an initial current value.
func NewConfigurationOption(slug, name string, optionType OptionType, valueMin, valueMax *float64, current any) *ConfigurationOption {
	return &ConfigurationOption{
		Slug:             slug,
		Name:             name,
		Type:             optionType,
		ValueMin:         valueMin,
		ValueMax:         valueMax,
		UserConfigurable: true,
		currentValue:     current,
	}
}

// SettingSlug implements Setting.
func (o *ConfigurationOption) SettingSlug() string { return o.Slug }

// CurrentValue returns the last value reported by the vendor. nil means absent.
func (o *ConfigurationOption) CurrentValue() any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.currentValue
}

// SetCurrentValue replaces the current value.
func (o *ConfigurationOption) SetCurrentValue(v any) {
	o.mu.Lock()
	o.currentValue = v
	o.mu.Unlock()
}

// ReadOnlyAttribute is an informational device attribute such as firmware
// version or signal strength. It is never writable.
type ReadOnlyAttribute struct {
	Slug  string
	Name  string
	Value any
}

// SettingSlug implements Setting.
func (a *ReadOnlyAttribute) SettingSlug() string { return a.Slug }

// SettingWriter writes a setting value to the vendor.
// *Client implements it.
type SettingWriter interface {
	ChangeSetting(ctx context.Context, deviceID, slug string, value int) error
}

// Device is a vendor device with an ordered settings collection.
type Device struct {
	ID    string
	Name  string
	Model string

	settings []Setting
	bySlug   map[string]Setting

	writer    SettingWriter
	onChanged func()
}

// NewDevice creates a device. settings keep their vendor order.
// onChanged, if non-nil, runs after every successful ChangeSetting.
func NewDevice(id, name, model string, settings []Setting, writer SettingWriter, onChanged func()) *Device {
	d := &Device{
		ID:        id,
		Name:      name,
		Model:     model,
		settings:  slices.Clone(settings),
		bySlug:    make(map[string]Setting, len(settings)),
		writer:    writer,
		onChanged: onChanged,
	}
	for _, s := range d.settings {
		d.bySlug[s.SettingSlug()] = s
	}
	return d
}

// Settings returns the device's settings in vendor order.
func (d *Device) Settings() []Setting {
	return slices.Clone(d.settings)
}

// Setting looks up a setting by slug.
func (d *Device) Setting(slug string) (Setting, bool) {
	s, ok := d.bySlug[slug]
	return s, ok
}

// ChangeSetting asks the vendor to set slug to value.
//
// It blocks until the vendor responds. Errors come from the SettingWriter
// unchanged; nothing is retried and the local current value is not touched.
func (d *Device) ChangeSetting(ctx context.Context, slug string, value int) error {
	if err := d.writer.ChangeSetting(ctx, d.ID, slug, value); err != nil {
		return err
	}
	if d.onChanged != nil {
		d.onChanged()
	}
	return nil
}

// CameraInfo is a camera as listed by the vendor, before its settings are fetched.
type CameraInfo struct {
	ID    string
	Name  string
	Model string
}
