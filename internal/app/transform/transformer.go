package transform

import (
	"errors"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// ErrInvalidSample marks a sample missing one or more required fields.
var ErrInvalidSample = errors.New("invalid sample")

const version uint16 = 1

// SampleTransformer normalizes timestamps to UTC at microsecond
// precision and rejects samples that fail domain validation.
type SampleTransformer struct{}

func NewSampleTransformer() *SampleTransformer {
	return &SampleTransformer{}
}

func (t *SampleTransformer) Transform(in *domain.Sample) (*domain.Sample, error) {
	if in == nil {
		return nil, ErrInvalidSample
	}
	out := in.Clone()
	out.Timestamp = normalize(out.Timestamp)
	if !out.Valid() {
		return nil, ErrInvalidSample
	}
	return out, nil
}

func (t *SampleTransformer) Version() uint16 { return version }

// TransformAll applies Transform to every item and keeps only the
// survivors, in order.
func (t *SampleTransformer) TransformAll(items []*domain.Sample) []*domain.Sample {
	out := make([]*domain.Sample, 0, len(items))
	for _, item := range items {
		s, err := t.Transform(item)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalize(ts time.Time) time.Time {
	if ts.IsZero() {
		return ts
	}
	return ts.UTC().Truncate(time.Microsecond)
}

var _ ports.Transformer = (*SampleTransformer)(nil)
