// Package model contains core data types for the project.
package model

// MetricType defines the type of a stored metric value.
type MetricType string

const (
	Counter MetricType = "counter" // Counter represents an accumulating int64 metric.
	String  MetricType = "string"  // String represents a last-write-wins text metric.
	Boolean MetricType = "boolean" // Boolean represents a last-write-wins flag metric.
)

// Metric represents a single stored metric value keyed by its full name.
type Metric struct {
	ID       string     `json:"id"`              // Full metric name (category.name).
	Type     MetricType `json:"type"`            // Metric type.
	Lifetime Lifetime   `json:"lifetime"`        // When the stored value is cleared.
	Delta    *int64     `json:"delta,omitempty"` // Value for counter metrics.
	Text     *string    `json:"text,omitempty"`  // Value for string metrics.
	Flag     *bool      `json:"flag,omitempty"`  // Value for boolean metrics.
}

// Clone returns a deep copy of m.
func (m *Metric) Clone() *Metric {
	c := *m
	if m.Delta != nil {
		v := *m.Delta
		c.Delta = &v
	}
	if m.Text != nil {
		v := *m.Text
		c.Text = &v
	}
	if m.Flag != nil {
		v := *m.Flag
		c.Flag = &v
	}
	return &c
}
