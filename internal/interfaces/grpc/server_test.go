package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/turtacn/chemlite/internal/config"
)

type flakyChecker struct {
	name string
	down atomic.Bool
}

func (c *flakyChecker) Name() string { return c.name }

func (c *flakyChecker) Check(context.Context) error {
	if c.down.Load() {
		return errors.New(c.name + " unreachable")
	}
	return nil
}

func localConfig() config.GRPCConfig {
	return config.GRPCConfig{Enabled: true, Host: "127.0.0.1", Port: 0}
}

func startServer(t *testing.T, opts ...Option) (*Server, healthpb.HealthClient) {
	t.Helper()
	s, err := NewServer(localConfig(), opts...)
	require.NoError(t, err)

	go func() { _ = s.Start() }()
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	conn, err := grpc.Dial(s.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return s, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service}, grpc.WaitForReady(true))
	require.NoError(t, err)
	return resp.Status
}

func TestServer_OverallServingWithoutCheckers(t *testing.T) {
	_, client := startServer(t)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
}

func TestServer_CheckResponseMessage(t *testing.T) {
	_, client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{}, grpc.WaitForReady(true))
	require.NoError(t, err)
	want := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	assert.True(t, proto.Equal(want, resp), "got %v", resp)
}

func TestServer_ComponentStatusFollowsProbe(t *testing.T) {
	pg := &flakyChecker{name: "postgres"}
	redis := &flakyChecker{name: "redis"}
	s, client := startServer(t, WithCheckers(pg, redis), WithProbeInterval(time.Hour))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "redis"))

	redis.down.Store(true)
	assert.False(t, s.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, "redis"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "postgres"))

	redis.down.Store(false)
	assert.True(t, s.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
}

func TestServer_UnknownServiceIsNotFound(t *testing.T) {
	_, client := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "chemlite.Nothing"}, grpc.WaitForReady(true))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_StopBeforeStart(t *testing.T) {
	s, err := NewServer(localConfig())
	require.NoError(t, err)

	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
	assert.Error(t, s.Start())
}

func TestServer_DoubleStart(t *testing.T) {
	s, _ := startServer(t)

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.started
	}, time.Second, 10*time.Millisecond)
	assert.Error(t, s.Start())
}

func TestNewServer_InvalidAddress(t *testing.T) {
	_, err := NewServer(config.GRPCConfig{Host: "256.0.0.1", Port: 1})
	assert.Error(t, err)
}

func TestIsHealthCheck(t *testing.T) {
	assert.True(t, isHealthCheck("/grpc.health.v1.Health/Check"))
	assert.False(t, isHealthCheck("/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo"))
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	s, err := NewServer(localConfig())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	interceptor := recoveryUnaryInterceptor(s.opts.logger)
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })

	assert.Equal(t, codes.Internal, status.Code(err))
}
