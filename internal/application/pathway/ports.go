package pathway

import (
	"context"
	"time"

	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Cache holds pathway documents keyed by pathway id. Get returns nil, nil on
// a miss.
type Cache interface {
	Get(ctx context.Context, id string) (*chem.PathwayDTO, error)
	Set(ctx context.Context, doc *chem.PathwayDTO) error
	Invalidate(ctx context.Context, id string) error
}

// EventPublisher ships drained domain events to the message bus.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events ...common.DomainEvent) error
}

// SnapshotStore keeps immutable copies of pathway documents per version.
type SnapshotStore interface {
	Put(ctx context.Context, doc *chem.PathwayDTO) (*chem.SnapshotInfo, error)
	Get(ctx context.Context, pathwayID string, version int) (*chem.PathwayDTO, error)
	List(ctx context.Context, pathwayID string) ([]chem.SnapshotInfo, error)
}

// Locker serializes writers of one pathway across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Metrics receives service-level measurements.
type Metrics interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
	ObserveCache(hit bool)
	ObservePathwaySize(reactions, compounds int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, error, time.Duration) {}
func (nopMetrics) ObserveCache(bool)                             {}
func (nopMetrics) ObservePathwaySize(int, int)                   {}
