package pathway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

func TestDTO_RoundTrip(t *testing.T) {
	p := muconate(t)
	p.SetName("cis,cis-muconate")
	p.MarkPersisted(3, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	dto := p.ToDTO()
	assert.Equal(t, []string{"rxn_4", "rxn_3", "rxn_2", "rxn_1"}, reactionIDs(dto))

	back, err := FromDTO(dto)
	require.NoError(t, err)
	assert.Equal(t, dto, back.ToDTO())
	assert.Equal(t, p.String(), back.String())
	assert.Equal(t, 3, back.Version())
	assert.Empty(t, back.PullEvents(), "rebuilding records no events")
}

func TestDTO_RoundTripKeepsInfos(t *testing.T) {
	p := muconate(t)
	p.AddInfo("organism", "E. coli")
	p.AddInfo("thermo", map[string]interface{}{"dG": -12.5})

	back, err := FromDTO(p.ToDTO())
	require.NoError(t, err)
	assert.True(t, p.Equal(back))
	v, ok := back.Info("organism")
	require.True(t, ok)
	assert.Equal(t, "E. coli", v)

	back.AddInfo("organism", "S. cerevisiae")
	assert.False(t, p.Equal(back))
	v, _ = p.Info("organism")
	assert.Equal(t, "E. coli", v, "rebuilt pathway owns its infos")
}

func TestEqual(t *testing.T) {
	p := muconate(t)
	same := muconate(t)
	assert.True(t, p.Equal(same))

	require.NoError(t, same.ScaleReaction("rxn_1", 2))
	assert.False(t, p.Equal(same))

	other := muconate(t)
	require.NoError(t, other.RenameCompound("MNXM23", "pyruvate"))
	assert.False(t, p.Equal(other))

	assert.False(t, p.Equal(nil))
	var n *Pathway
	assert.True(t, n.Equal(nil))
}

func TestFromDTO_Invalid(t *testing.T) {
	_, err := FromDTO(nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentInvalid))

	_, err = FromDTO(&chem.PathwayDTO{ID: ""})
	assert.True(t, errors.IsValidation(err))

	_, err = FromDTO(&chem.PathwayDTO{
		ID: "pw",
		Reactions: []chem.ReactionDTO{{
			ID:        "r1",
			Reactants: map[string]float64{"A": 1},
			Products:  map[string]float64{"B": 1},
		}},
		Compounds: []chem.CompoundDTO{{ID: "A"}},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnresolvedReference))

	_, err = FromDTO(&chem.PathwayDTO{
		ID:        "pw",
		Compounds: []chem.CompoundDTO{{ID: "A"}, {ID: "A"}},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateIdentifier))

	_, err = FromDTO(&chem.PathwayDTO{ID: "pw", Compounds: []chem.CompoundDTO{{ID: ""}}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentInvalid))
}

func TestSummary(t *testing.T) {
	p := linear(t)
	s := p.Summary()
	assert.Equal(t, "linear", s.ID)
	assert.Equal(t, 2, s.ReactionCount)
	assert.Equal(t, 3, s.CompoundCount)
}

func reactionIDs(dto *chem.PathwayDTO) []string {
	ids := make([]string, 0, len(dto.Reactions))
	for _, r := range dto.Reactions {
		ids = append(ids, r.ID)
	}
	return ids
}
