package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockPathwayService struct {
	mock.Mock
}

func (m *mockPathwayService) pathway(args mock.Arguments) (*chem.PathwayDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chem.PathwayDTO), args.Error(1)
}

func (m *mockPathwayService) Create(ctx context.Context, doc *chem.PathwayDTO) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, doc))
}

func (m *mockPathwayService) Get(ctx context.Context, id string) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, id))
}

func (m *mockPathwayService) Render(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *mockPathwayService) List(ctx context.Context, page common.Pagination) ([]chem.PathwaySummary, int64, error) {
	args := m.Called(ctx, page)
	var items []chem.PathwaySummary
	if v := args.Get(0); v != nil {
		items = v.([]chem.PathwaySummary)
	}
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockPathwayService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPathwayService) AddReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, id, req))
}

func (m *mockPathwayService) ReplaceReaction(ctx context.Context, id string, req *chem.ReactionRequest) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, id, req))
}

func (m *mockPathwayService) DeleteReaction(ctx context.Context, id, reactionID string, prune bool) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, id, reactionID, prune))
}

func (m *mockPathwayService) ScaleReaction(ctx context.Context, id, reactionID string, mult float64) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, id, reactionID, mult))
}

func (m *mockPathwayService) RenameCompound(ctx context.Context, id string, req *chem.RenameCompoundRequest) (*chem.PathwayDTO, error) {
	return m.pathway(m.Called(ctx, id, req))
}

func (m *mockPathwayService) NetReaction(ctx context.Context, id string, reactionIDs []string) (*chem.NetDTO, error) {
	args := m.Called(ctx, id, reactionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chem.NetDTO), args.Error(1)
}

func (m *mockPathwayService) PseudoReaction(ctx context.Context, id string, reactionIDs []string) (*chem.BalanceDTO, error) {
	args := m.Called(ctx, id, reactionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chem.BalanceDTO), args.Error(1)
}

func (m *mockPathwayService) Matrix(ctx context.Context, id string) (*chem.MatrixDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chem.MatrixDTO), args.Error(1)
}

func (m *mockPathwayService) ReactionSMILES(ctx context.Context, id, reactionID string) (string, error) {
	args := m.Called(ctx, id, reactionID)
	return args.String(0), args.Error(1)
}

func (m *mockPathwayService) Trace(ctx context.Context, id, compoundID string, downstream bool, depth int) ([]string, error) {
	args := m.Called(ctx, id, compoundID, downstream, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockPathwayService) Snapshot(ctx context.Context, id string) (*chem.SnapshotInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chem.SnapshotInfo), args.Error(1)
}

func (m *mockPathwayService) Snapshots(ctx context.Context, id string) ([]chem.SnapshotInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chem.SnapshotInfo), args.Error(1)
}

func (m *mockPathwayService) SearchCompounds(ctx context.Context, query string, limit int) ([]chem.CompoundHit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]chem.CompoundHit), args.Error(1)
}

// envelope mirrors common.APIResponse without the timestamp.
type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Error      *common.ErrorDetail `json:"error"`
	Pagination *common.Pagination  `json:"pagination"`
}

func newTestRouter(svc *mockPathwayService) *gin.Engine {
	r := gin.New()
	NewPathwayHandler(svc, logging.NewNopLogger()).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
