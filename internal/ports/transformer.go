package ports

import "github.com/kateb7566/system-health-monitor-etl/internal/domain"

type Transformer interface {
	Transform(*domain.Sample) (*domain.Sample, error)
	Version() uint16
}
