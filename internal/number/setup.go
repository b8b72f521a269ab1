package number

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
)

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// AddEntitiesFunc registers entities with the host.
type AddEntitiesFunc func(ctx context.Context, entities []*Entity) error

// discoverDevice builds one entity per supported configuration option of
// device, in vendor order. Settings that are not configuration options, and
// options of unsupported types, are skipped. Each entity is refreshed once
// so it starts with the option's current value.
func discoverDevice(coordinator Coordinator, device *alarmdotcom.Device, logger Logger) []*Entity {
	var entities []*Entity
	for _, s := range device.Settings() {
		opt, ok := s.(*alarmdotcom.ConfigurationOption)
		if !ok || !Supported(opt.Type) {
			continue
		}

		if opt.ValueMin != nil && opt.ValueMax != nil && *opt.ValueMin > *opt.ValueMax && logger != nil {
			logger.Warn("configuration option has min above max",
				"device_id", device.ID,
				"slug", opt.Slug,
				"min", *opt.ValueMin,
				"max", *opt.ValueMax)
		}

		e := NewEntity(coordinator, device, opt)
		if err := e.Refresh(); err != nil && logger != nil {
			logger.Warn("initial refresh failed", "unique_id", e.UniqueID(), "error", err)
		}
		entities = append(entities, e)
	}
	return entities
}

// Setup discovers entities and hands them to add, one call per camera that
// has any, in controller order. Cameras without supported options produce
// no call.
func Setup(ctx context.Context, coordinator Coordinator, add AddEntitiesFunc, logger Logger) error {
	total := 0
	for _, device := range coordinator.Cameras() {
		entities := discoverDevice(coordinator, device, logger)
		if len(entities) == 0 {
			continue
		}
		if err := add(ctx, entities); err != nil {
			return fmt.Errorf("adding number entities for %s: %w", device.ID, err)
		}
		total += len(entities)
	}

	if logger != nil {
		logger.Debug("number platform set up", "entities", total)
	}
	return nil
}
