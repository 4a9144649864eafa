package metrics

import (
	"sync"
	"time"

	m "github.com/statsprof/statsprof/metrics"
)

// MeasurementKind identifies which Client method produced a measurement.
type MeasurementKind string

const (
	KindCounter      MeasurementKind = "counter"
	KindDistribution MeasurementKind = "distribution"
	KindGauge        MeasurementKind = "gauge"
	KindTiming       MeasurementKind = "timing"
)

// Measurement is one recorded (name, value, tags) triple.
type Measurement struct {
	Kind  MeasurementKind
	Name  string
	Value float64
	Tags  m.Tags
}

// RecordingClient captures measurements in memory. Used by tests across the
// module. Safe for concurrent use.
type RecordingClient struct {
	mu       sync.Mutex
	recorded []Measurement
	tags     m.Tags
}

var _ m.Client = (*RecordingClient)(nil)

func NewRecordingClient() *RecordingClient {
	return &RecordingClient{}
}

func (rc *RecordingClient) Counter(name string, tags m.Tags, value int64) {
	rc.record(KindCounter, name, tags, float64(value))
}

func (rc *RecordingClient) Distribution(name string, tags m.Tags, value float64) {
	rc.record(KindDistribution, name, tags, value)
}

func (rc *RecordingClient) Gauge(name string, tags m.Tags, value int64) {
	rc.record(KindGauge, name, tags, float64(value))
}

func (rc *RecordingClient) Timing(name string, tags m.Tags, duration time.Duration) {
	rc.record(KindTiming, name, tags, float64(duration/time.Millisecond))
}

func (rc *RecordingClient) WithTags(tags m.Tags) m.Client {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	merged := make(m.Tags, len(rc.tags)+len(tags))
	for k, v := range rc.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	return &taggedRecordingClient{parent: rc, tags: merged}
}

// Recorded returns a copy of all measurements captured so far.
func (rc *RecordingClient) Recorded() []Measurement {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := make([]Measurement, len(rc.recorded))
	copy(out, rc.recorded)
	return out
}

// ByName returns the recorded measurements with the given name.
func (rc *RecordingClient) ByName(name string) []Measurement {
	var out []Measurement
	for _, r := range rc.Recorded() {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func (rc *RecordingClient) record(kind MeasurementKind, name string, tags m.Tags, value float64) {
	copied := make(m.Tags, len(tags))
	for k, v := range tags {
		copied[k] = v
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.recorded = append(rc.recorded, Measurement{Kind: kind, Name: name, Value: value, Tags: copied})
}

type taggedRecordingClient struct {
	parent *RecordingClient
	tags   m.Tags
}

var _ m.Client = (*taggedRecordingClient)(nil)

func (tc *taggedRecordingClient) Counter(name string, tags m.Tags, value int64) {
	tc.parent.record(KindCounter, name, tc.merge(tags), float64(value))
}

func (tc *taggedRecordingClient) Distribution(name string, tags m.Tags, value float64) {
	tc.parent.record(KindDistribution, name, tc.merge(tags), value)
}

func (tc *taggedRecordingClient) Gauge(name string, tags m.Tags, value int64) {
	tc.parent.record(KindGauge, name, tc.merge(tags), float64(value))
}

func (tc *taggedRecordingClient) Timing(name string, tags m.Tags, duration time.Duration) {
	tc.parent.record(KindTiming, name, tc.merge(tags), float64(duration/time.Millisecond))
}

func (tc *taggedRecordingClient) WithTags(tags m.Tags) m.Client {
	return &taggedRecordingClient{parent: tc.parent, tags: tc.merge(tags)}
}

func (tc *taggedRecordingClient) merge(tags m.Tags) m.Tags {
	merged := make(m.Tags, len(tc.tags)+len(tags))
	for k, v := range tc.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return merged
}
