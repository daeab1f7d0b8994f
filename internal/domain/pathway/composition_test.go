package pathway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/pkg/errors"
)

// muconate builds the four-step route to TARGET_0000000001.
func muconate(t *testing.T) *Pathway {
	t.Helper()
	p := MustNew("test_pathway")
	require.NoError(t, p.AddReaction(
		rxn("rxn_4", map[string]float64{"CMPD_0000000003": 1, "MNXM4": 1}, map[string]float64{"TARGET_0000000001": 1, "MNXM1": 2}),
		cmpds("CMPD_0000000003", "MNXM4", "TARGET_0000000001", "MNXM1")...))
	require.NoError(t, p.AddReaction(
		rxn("rxn_3", map[string]float64{"CMPD_0000000010": 1, "MNXM1": 1}, map[string]float64{"CMPD_0000000003": 1, "MNXM13": 1}),
		cmpds("CMPD_0000000010", "MNXM13")...))
	require.NoError(t, p.AddReaction(
		rxn("rxn_2",
			map[string]float64{"CMPD_0000000025": 1, "MNXM4": 1, "MNXM6": 1, "MNXM1": 1},
			map[string]float64{"CMPD_0000000010": 1, "MNXM2": 1, "MNXM5": 1}),
		cmpds("CMPD_0000000025", "MNXM6", "MNXM2", "MNXM5")...))
	require.NoError(t, p.AddReaction(
		rxn("rxn_1", map[string]float64{"MNXM337": 1}, map[string]float64{"CMPD_0000000025": 1, "MNXM23": 1}),
		cmpds("MNXM337", "MNXM23")...))
	return p
}

func TestNetReaction_AllReactions(t *testing.T) {
	p := muconate(t)
	net, err := p.NetReaction()
	require.NoError(t, err)

	assert.Equal(t, NetReactionID, net.ID())
	assert.Equal(t, map[string]float64{
		"MNXM4":             -2,
		"TARGET_0000000001": 1,
		"MNXM13":            1,
		"MNXM6":             -1,
		"MNXM2":             1,
		"MNXM5":             1,
		"MNXM337":           -1,
		"MNXM23":            1,
	}, net.Stoichiometry())
}

func TestNetReaction_LinearChain(t *testing.T) {
	p := linear(t)
	net, err := p.NetReaction("r1", "r2")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"X": -1, "Z": 1}, net.Stoichiometry())
	assert.Equal(t, "Reaction net_rxn: 1 X = 1 Z", net.String())
}

func TestNetReaction_SingleStepIsIdentity(t *testing.T) {
	p := linear(t)
	net, err := p.NetReaction("r2")
	require.NoError(t, err)
	r2, _ := p.Reaction("r2")
	assert.Equal(t, r2.Stoichiometry(), net.Stoichiometry())
}

func TestNetReaction_Unresolved(t *testing.T) {
	p := linear(t)
	_, err := p.NetReaction("r1", "ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnresolvedReference))
}

func TestNet_Associative(t *testing.T) {
	p := muconate(t)
	rs := p.Reactions()

	left := Net(Net(rs[0], rs[1]), rs[2], rs[3])
	right := Net(rs[0], Net(rs[1], Net(rs[2], rs[3])))
	flat := Net(rs...)

	assert.Equal(t, flat.Stoichiometry(), left.Stoichiometry())
	assert.Equal(t, flat.Stoichiometry(), right.Stoichiometry())
}

func TestNet_Empty(t *testing.T) {
	net := Net()
	assert.Equal(t, 0, net.NumSpecies())
	assert.Equal(t, "Reaction net_rxn", net.String())
}

func TestPseudoReaction(t *testing.T) {
	p := muconate(t)
	b, err := p.PseudoReaction()
	require.NoError(t, err)

	assert.Equal(t, PseudoReactionID, b.Reaction.ID())
	assert.Equal(t, []string{"CMPD_0000000003", "CMPD_0000000010", "CMPD_0000000025", "MNXM1"}, b.Intermediates)
	assert.Equal(t, []string{"MNXM337", "MNXM4", "MNXM6"}, b.Imports)
	assert.Equal(t, []string{"MNXM13", "MNXM2", "MNXM23", "MNXM5", "TARGET_0000000001"}, b.Exports)

	dto := b.ToDTO()
	assert.Equal(t, PseudoReactionID, dto.Reaction.ID)
	assert.Equal(t, 2.0, dto.Reaction.Reactants["MNXM4"])
	assert.Equal(t, "1 MNXM337 + 2 MNXM4 + 1 MNXM6 = 1 MNXM13 + 1 MNXM2 + 1 MNXM23 + 1 MNXM5 + 1 TARGET_0000000001", dto.Equation)
}

func TestPseudoReaction_Segment(t *testing.T) {
	p := linear(t)
	b, err := p.PseudoReaction("r1")
	require.NoError(t, err)
	assert.Empty(t, b.Intermediates)
	assert.Equal(t, []string{"X"}, b.Imports)
	assert.Equal(t, []string{"Y"}, b.Exports)
	assert.Equal(t, "1 X = 1 Y", b.ToDTO().Equation)

	_, err = p.PseudoReaction("ghost")
	assert.True(t, errors.IsNotFound(err))
}
