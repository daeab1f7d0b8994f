// End-to-end tests drive the REST surface through the Go SDK. The stack is
// assembled in process: the real router, handlers and pathway service over
// an in-memory repository, with the document cache on miniredis.
package e2e_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/turtacn/chemlite/internal/application/pathway"
	"github.com/turtacn/chemlite/internal/infrastructure/database/redis"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/chemlite/internal/interfaces/http"
	"github.com/turtacn/chemlite/internal/interfaces/http/handlers"
	"github.com/turtacn/chemlite/internal/testutil"
	"github.com/turtacn/chemlite/pkg/client"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// testEnv holds the shared stack of every test in this package.
type testEnv struct {
	server    *httptest.Server
	sdk       *client.Client
	repo      *testutil.MemoryPathwayRepository
	redis     *miniredis.Miniredis
	events    *eventLog
	snapshots *memorySnapshots
	cleanup   []func()
}

var env *testEnv

func TestMain(m *testing.M) {
	var err error
	env, err = setupTestEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2e setup failed: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	for i := len(env.cleanup) - 1; i >= 0; i-- {
		env.cleanup[i]()
	}
	os.Exit(code)
}

func setupTestEnv() (*testEnv, error) {
	e := &testEnv{
		repo:      testutil.NewMemoryPathwayRepository(),
		events:    &eventLog{},
		snapshots: newMemorySnapshots(),
	}
	logger := logging.NewNopLogger()

	mr, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	e.redis = mr
	e.cleanup = append(e.cleanup, mr.Close)

	rc, err := redis.NewClient(&redis.RedisConfig{Addr: mr.Addr()}, logger)
	if err != nil {
		return nil, err
	}
	e.cleanup = append(e.cleanup, func() { _ = rc.Close() })
	cache := redis.NewPathwayCache(redis.NewRedisCache(rc, logger, redis.WithPrefix("e2e:")), time.Minute)

	svc := pathway.NewService(e.repo, logger,
		pathway.WithCache(cache),
		pathway.WithPublisher(e.events),
		pathway.WithSnapshots(e.snapshots),
	)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Mode:           "test",
		PathwayHandler: handlers.NewPathwayHandler(svc, logger),
		HealthHandler:  handlers.NewHealthHandler("e2e", handlers.NewChecker("redis", rc.Ping)),
		MaxBodySize:    1 << 20,
		Logger:         logger,
	})
	e.server = httptest.NewServer(router)
	e.cleanup = append(e.cleanup, e.server.Close)

	e.sdk, err = client.NewClient(e.server.URL, client.WithRetryMax(0), client.WithTimeout(10*time.Second))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// eventLog records published event types in order.
type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) PublishEvents(_ context.Context, events ...common.DomainEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range events {
		l.types = append(l.types, ev.EventType())
	}
	return nil
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.types...)
}

// memorySnapshots is a SnapshotStore keyed by pathway and version.
type memorySnapshots struct {
	mu   sync.Mutex
	docs map[string]map[int]*chem.PathwayDTO
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{docs: make(map[string]map[int]*chem.PathwayDTO)}
}

func snapshotKey(id string, version int) string {
	return fmt.Sprintf("pathways/%s/v%d.json", id, version)
}

func (s *memorySnapshots) Put(_ context.Context, doc *chem.PathwayDTO) (*chem.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[doc.ID] == nil {
		s.docs[doc.ID] = make(map[int]*chem.PathwayDTO)
	}
	s.docs[doc.ID][doc.Version] = doc
	return &chem.SnapshotInfo{
		PathwayID: doc.ID,
		Version:   doc.Version,
		Key:       snapshotKey(doc.ID, doc.Version),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *memorySnapshots) Get(_ context.Context, id string, version int) (*chem.PathwayDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id][version]
	if !ok {
		return nil, errors.New(errors.ErrCodeSnapshotNotFound, "snapshot not found")
	}
	return doc, nil
}

func (s *memorySnapshots) List(_ context.Context, id string) ([]chem.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chem.SnapshotInfo, 0, len(s.docs[id]))
	for v := range s.docs[id] {
		out = append(out, chem.SnapshotInfo{PathwayID: id, Version: v, Key: snapshotKey(id, v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
