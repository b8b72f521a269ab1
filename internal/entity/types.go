package entity

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

// Value history source values.
const (
	SourcePoll    = "poll"
	SourceCommand = "command"
)

// Record is a number entity as persisted in the registry.
//
// The registry remembers every entity the bridge has exported so that
// Home Assistant discovery can be cleaned up and value history survives
// restarts. It is a record of what was published, not a source of truth
// for option values.
type Record struct {
	UniqueID       string    `json:"unique_id"`
	Name           string    `json:"name"`
	DeviceID       string    `json:"device_id"`
	DeviceName     string    `json:"device_name"`
	Slug           string    `json:"slug"`
	OptionType     string    `json:"option_type"`
	Min            *float64  `json:"min,omitempty"`
	Max            *float64  `json:"max,omitempty"`
	Mode           string    `json:"mode"`
	Icon           string    `json:"icon,omitempty"`
	EntityCategory string    `json:"entity_category"`
	LastValue      *float64  `json:"last_value,omitempty"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// RecordFromState builds a registry record from an entity state.
func RecordFromState(st number.State) Record {
	return Record{
		UniqueID:       st.UniqueID,
		Name:           st.Name,
		DeviceID:       st.DeviceID,
		DeviceName:     st.DeviceName,
		Slug:           st.Slug,
		OptionType:     string(st.OptionType),
		Min:            copyFloat(st.Min),
		Max:            copyFloat(st.Max),
		Mode:           string(st.Mode),
		Icon:           st.Icon,
		EntityCategory: st.EntityCategory,
		LastValue:      copyFloat(st.Value),
	}
}

// DeepCopy returns a copy that shares no pointers with r.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	cpy := *r
	cpy.Min = copyFloat(r.Min)
	cpy.Max = copyFloat(r.Max)
	cpy.LastValue = copyFloat(r.LastValue)
	return &cpy
}

// Validate checks the fields the schema requires.
func (r *Record) Validate() error {
	switch {
	case r.UniqueID == "":
		return fmt.Errorf("%w: unique_id is required", ErrInvalidEntity)
	case r.DeviceID == "":
		return fmt.Errorf("%w: device_id is required", ErrInvalidEntity)
	case r.Slug == "":
		return fmt.Errorf("%w: slug is required", ErrInvalidEntity)
	case r.OptionType == "":
		return fmt.Errorf("%w: option_type is required", ErrInvalidEntity)
	}
	return nil
}

// HistoryEntry is one observed value of an entity.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	UniqueID   string    `json:"unique_id"`
	Value      float64   `json:"value"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
