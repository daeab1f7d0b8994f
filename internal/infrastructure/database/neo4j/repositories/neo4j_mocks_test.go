package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	driver "github.com/turtacn/chemlite/internal/infrastructure/database/neo4j"
)

// mockDriver runs the work it is given against tx.
type mockDriver struct {
	mock.Mock
	tx *mockTransaction
}

func (m *mockDriver) ExecuteRead(ctx context.Context, work driver.TransactionWork) (any, error) {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return work(m.tx)
}

func (m *mockDriver) ExecuteWrite(ctx context.Context, work driver.TransactionWork) (any, error) {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return work(m.tx)
}

func (m *mockDriver) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockTransaction struct {
	mock.Mock
}

func (m *mockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (driver.Result, error) {
	args := m.Called(ctx, cypher, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driver.Result), args.Error(1)
}

type mockResult struct {
	records []*neo4j.Record
	pos     int
}

func (r *mockResult) Next(context.Context) bool {
	if r.pos < len(r.records) {
		r.pos++
		return true
	}
	return false
}

func (r *mockResult) Record() *neo4j.Record { return r.records[r.pos-1] }
func (r *mockResult) Err() error            { return nil }
func (r *mockResult) Consume(context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

func idRecords(ids ...string) *mockResult {
	res := &mockResult{}
	for _, id := range ids {
		res.records = append(res.records, &neo4j.Record{Keys: []string{"id"}, Values: []any{id}})
	}
	return res
}
