package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/chemlite/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"unresolved", errors.ErrCodeUnresolvedReference, "compound MNXM4 not indexed"},
		{"invalid param", errors.CodeInvalidParam, "identifier must not be empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestError_Format(t *testing.T) {
	ae := errors.New(errors.ErrCodeDuplicateIdentifier, "reaction already exists")
	assert.Equal(t, "[CHEM_002] reaction already exists", ae.Error())

	withDetail := ae.WithDetail("reaction_id=rxn_1")
	assert.Equal(t, "[CHEM_002] reaction already exists: reaction_id=rxn_1", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")

	withCause := withDetail.WithCause(fmt.Errorf("boom"))
	assert.Equal(t, "[CHEM_002] reaction already exists: reaction_id=rxn_1: boom", withCause.Error())
}

func TestWithDetail_NilReceiver(t *testing.T) {
	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(fmt.Errorf("x")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))

	root := stderrors.New("connection refused")
	wrapped := errors.Wrap(root, errors.ErrCodeDatabaseError, "save pathway")
	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeDatabaseError, wrapped.Code)
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_UnknownCodeKeepsOriginal(t *testing.T) {
	inner := errors.Unresolved("reaction", "rxn_9")
	outer := errors.Wrap(inner, errors.CodeUnknown, "delete reaction")
	assert.Equal(t, errors.ErrCodeUnresolvedReference, outer.Code)
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := errors.Duplicate("compound", "MNXM4")
	err := fmt.Errorf("add reaction: %w", errors.Wrap(inner, errors.CodeInternal, "outer"))

	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateIdentifier))
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
	assert.False(t, errors.IsCode(err, errors.CodeNotFound))
	assert.False(t, errors.IsCode(nil, errors.CodeNotFound))
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"generic", errors.NotFound("not found"), true},
		{"unresolved", errors.Unresolved("compound", "X"), true},
		{"pathway", errors.New(errors.ErrCodePathwayNotFound, "missing"), true},
		{"wrapped", fmt.Errorf("ctx: %w", errors.Unresolved("reaction", "R")), true},
		{"conflict", errors.Conflict("dup"), false},
		{"plain", stderrors.New("plain"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, errors.IsNotFound(tc.err))
		})
	}
}

func TestIsConflictAndValidation(t *testing.T) {
	assert.True(t, errors.IsConflict(errors.Duplicate("reaction", "R1")))
	assert.True(t, errors.IsConflict(errors.New(errors.ErrCodeVersionConflict, "stale")))
	assert.False(t, errors.IsConflict(errors.NotFound("x")))

	assert.True(t, errors.IsValidation(errors.InvalidParam("empty id")))
	assert.True(t, errors.IsValidation(errors.New(errors.ErrCodeDocumentInvalid, "bad doc")))
	assert.False(t, errors.IsValidation(errors.Internal("x")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeUnresolvedReference, errors.GetCode(errors.Unresolved("compound", "A")))
}

func TestUnresolvedAndDuplicate_Detail(t *testing.T) {
	assert.Equal(t, "compound_id=MNXM4", errors.Unresolved("compound", "MNXM4").Detail)
	assert.Equal(t, "reaction already exists", errors.Duplicate("reaction", "rxn_1").Message)
}
