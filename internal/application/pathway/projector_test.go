package pathway

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/testutil"
	"github.com/turtacn/chemlite/pkg/errors"
)

func newTestProjector(t *testing.T) (*Projector, *MockGraph, *MockSearcher) {
	t.Helper()
	repo := testutil.NewMemoryPathwayRepository()
	repo.Put(linearDoc())
	graph := new(MockGraph)
	searcher := new(MockSearcher)
	return NewProjector(repo, graph, searcher, testutil.NewMockLogger()), graph, searcher
}

func TestProjector_HandleRefreshes(t *testing.T) {
	for _, eventType := range []string{
		domain.EventPathwayCreated,
		domain.EventReactionAdded,
		domain.EventReactionDeleted,
		domain.EventReactionReplaced,
		domain.EventCompoundRenamed,
	} {
		t.Run(eventType, func(t *testing.T) {
			p, graph, searcher := newTestProjector(t)
			graph.On("Project", mock.Anything, mock.MatchedBy(func(pw *domain.Pathway) bool {
				return pw.ID() == "pw1" && pw.NumReactions() == 2
			})).Return(nil).Once()
			searcher.On("Index", mock.Anything, mock.Anything).Return(nil).Once()

			require.NoError(t, p.Handle(context.Background(), eventType, "pw1"))
			graph.AssertExpectations(t)
			searcher.AssertExpectations(t)
		})
	}
}

func TestProjector_HandleDeleted(t *testing.T) {
	p, graph, searcher := newTestProjector(t)
	graph.On("Remove", mock.Anything, "pw1").Return(nil).Once()

	require.NoError(t, p.Handle(context.Background(), domain.EventPathwayDeleted, "pw1"))
	graph.AssertExpectations(t)
	searcher.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}

func TestProjector_RefreshMissingPathwayRemoves(t *testing.T) {
	p, graph, _ := newTestProjector(t)
	graph.On("Remove", mock.Anything, "gone").Return(nil).Once()

	require.NoError(t, p.Refresh(context.Background(), "gone"))
	graph.AssertExpectations(t)
}

func TestProjector_UnknownEventIgnored(t *testing.T) {
	p, graph, _ := newTestProjector(t)
	assert.NoError(t, p.Handle(context.Background(), "pathway.archived", "pw1"))
	graph.AssertNotCalled(t, "Project", mock.Anything, mock.Anything)
}

func TestProjector_GraphFailure(t *testing.T) {
	p, graph, _ := newTestProjector(t)
	graph.On("Project", mock.Anything, mock.Anything).Return(fmt.Errorf("bolt: connection refused"))

	err := p.Refresh(context.Background(), "pw1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestProjector_NilCollaborators(t *testing.T) {
	repo := testutil.NewMemoryPathwayRepository()
	repo.Put(linearDoc())
	p := NewProjector(repo, nil, nil, testutil.NewMockLogger())

	assert.NoError(t, p.Refresh(context.Background(), "pw1"))
	assert.NoError(t, p.Remove(context.Background(), "pw1"))
}
