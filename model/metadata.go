package model

import "slices"

// UploadState reports whether telemetry upload is currently permitted.
// Implementations must be safe for concurrent use and must not block.
type UploadState interface {
	IsUploadEnabled() bool
}

// MetadataConfig lists the attributes of a metric declaration.
// Lifetime defaults to LifetimePing and Disabled to false.
type MetadataConfig struct {
	Name        string   // Metric name, unique within its category.
	Category    string   // Grouping name; may be empty.
	SendInPings []string // Pings the value is stored for.
	Lifetime    Lifetime // When the stored value is cleared.
	Disabled    bool     // Administratively turned off.
}

// CommonMetricData is the identity and recording policy shared by every
// metric instrument. It is immutable once constructed; the zero value is a
// valid, enabled, ping-lifetime declaration with no destination pings.
type CommonMetricData struct {
	name        string
	category    string
	sendInPings []string
	lifetime    Lifetime
	disabled    bool
}

// NewCommonMetricData builds metadata from cfg. The ping list is copied.
func NewCommonMetricData(cfg MetadataConfig) CommonMetricData {
	return CommonMetricData{
		name:        cfg.Name,
		category:    cfg.Category,
		sendInPings: slices.Clone(cfg.SendInPings),
		lifetime:    cfg.Lifetime,
		disabled:    cfg.Disabled,
	}
}

func (m CommonMetricData) Name() string       { return m.name }
func (m CommonMetricData) Category() string   { return m.category }
func (m CommonMetricData) Lifetime() Lifetime { return m.lifetime }
func (m CommonMetricData) Disabled() bool     { return m.disabled }

// Fullname returns "category.name". An empty category still yields the
// separator, storage keys rely on it.
func (m CommonMetricData) Fullname() string {
	return m.category + "." + m.name
}

// ShouldRecord reports whether a recording call should take effect.
// The local disabled flag is checked before the upload state is queried.
// A nil state is treated as upload disabled.
func (m CommonMetricData) ShouldRecord(state UploadState) bool {
	if m.disabled {
		return false
	}
	if state == nil || !state.IsUploadEnabled() {
		return false
	}
	return true
}

// StorageNames returns the destination pings in declaration order.
// The result is a copy.
func (m CommonMetricData) StorageNames() []string {
	if len(m.sendInPings) == 0 {
		return []string{}
	}
	return slices.Clone(m.sendInPings)
}

// WithDisabled returns a copy of m with the disabled flag replaced.
func (m CommonMetricData) WithDisabled(disabled bool) CommonMetricData {
	m.disabled = disabled
	m.sendInPings = slices.Clone(m.sendInPings)
	return m
}
