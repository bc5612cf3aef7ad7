package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Sample is the canonical unit of host telemetry.
type Sample struct {
	ID         int64              `json:"id,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	CPUPercent float64            `json:"cpu_percent"`
	Memory     map[string]float64 `json:"memory"`
	Disk       map[string]float64 `json:"disk"`
	NetIO      map[string]float64 `json:"net_io"`
}

// Valid reports whether every metric field is present and non-zero.
func (s *Sample) Valid() bool {
	if s == nil {
		return false
	}
	return !s.Timestamp.IsZero() &&
		s.CPUPercent != 0 &&
		len(s.Memory) > 0 &&
		len(s.Disk) > 0 &&
		len(s.NetIO) > 0
}

// Clone returns a deep copy so each sink owns its sample.
func (s *Sample) Clone() *Sample {
	if s == nil {
		return nil
	}
	return &Sample{
		ID:         s.ID,
		Timestamp:  s.Timestamp,
		CPUPercent: s.CPUPercent,
		Memory:     copyValues(s.Memory),
		Disk:       copyValues(s.Disk),
		NetIO:      copyValues(s.NetIO),
	}
}

// Encode serializes the sample into its wire form.
func (s *Sample) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSample parses a wire-form sample, rejecting unknown fields.
func DecodeSample(raw []byte) (*Sample, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var s Sample
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return &s, nil
}

func copyValues(src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
