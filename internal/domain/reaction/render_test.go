package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/chemlite/pkg/errors"
)

var smilesByID = map[string]string{
	"CMPD_0000000010": "[H]OC(=O)c1c([H])c([H])c(O[H])c(O[H])c1[H]",
	"MNXM1":           "[H+]",
	"CMPD_0000000003": "[H]Oc1c([H])c([H])c([H])c([H])c1O[H]",
	"MNXM13":          "O=C=O",
}

func lookup(id string) (string, bool) {
	s, ok := smilesByID[id]
	return s, ok
}

func TestString_SortedAlphabetically(t *testing.T) {
	r := MustNew("rxn")
	r.AddProduct("MNXM13", 1)
	r.AddReactant("MNXM1", 1)
	r.AddProduct("CMPD_0000000003", 1)
	r.AddReactant("CMPD_0000000010", 1)

	assert.Equal(t,
		"Reaction rxn: 1 CMPD_0000000010 + 1 MNXM1 = 1 CMPD_0000000003 + 1 MNXM13",
		r.String())
	assert.Equal(t, "1 CMPD_0000000010 + 1 MNXM1 = 1 CMPD_0000000003 + 1 MNXM13", r.Equation())
}

func TestString_FractionalCoefficients(t *testing.T) {
	r := MustNew("half")
	r.AddReactant("O2", 0.5)
	r.AddReactant("H2", 1)
	r.AddProduct("H2O", 1)
	assert.Equal(t, "Reaction half: 1 H2 + 0.5 O2 = 1 H2O", r.String())
}

func TestString_OneSided(t *testing.T) {
	r := MustNew("sink")
	assert.Equal(t, "Reaction sink", r.String())
	assert.Equal(t, "", r.Equation())

	r.AddReactant("A", 2)
	assert.Equal(t, "Reaction sink", r.String())
	assert.Equal(t, "2 A =", r.Equation())

	src := MustNew("source")
	src.AddProduct("B", 1)
	assert.Equal(t, "= 1 B", src.Equation())
}

func TestSMILES(t *testing.T) {
	r := newDecarboxylation(t)
	got, err := r.SMILES(lookup)
	require.NoError(t, err)
	assert.Equal(t,
		"[H]OC(=O)c1c([H])c([H])c(O[H])c(O[H])c1[H].[H+]>>[H]Oc1c([H])c([H])c([H])c([H])c1O[H].O=C=O",
		got)
}

func TestSMILES_RepeatsByCoefficient(t *testing.T) {
	r := MustNew("dimer")
	r.AddReactant("MNXM1", 2)
	r.AddProduct("MNXM13", 0.4)
	got, err := r.SMILES(lookup)
	require.NoError(t, err)
	assert.Equal(t, "[H+].[H+]>>O=C=O", got)
}

func TestSMILES_MissingCompound(t *testing.T) {
	r := newDecarboxylation(t)
	r.AddProduct("NO_SMILES", 1)
	_, err := r.SMILES(lookup)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnresolvedReference))
}

func TestSMILES_CoefficientCap(t *testing.T) {
	atCap := MustNew("cap")
	atCap.AddReactant("MNXM1", MaxSMILESRepeat)
	atCap.AddProduct("MNXM13", 1)
	got, err := atCap.SMILES(lookup)
	require.NoError(t, err)
	assert.Len(t, got, MaxSMILESRepeat*len("[H+]")+(MaxSMILESRepeat-1)+len(">>O=C=O"))

	for _, coeff := range []float64{MaxSMILESRepeat + 1, 2e6, 1e20} {
		r := MustNew("big")
		r.AddReactant("MNXM1", coeff)
		r.AddProduct("MNXM13", 1)
		got, err := r.SMILES(lookup)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCoefficient), coeff)
		assert.Empty(t, got)
	}
}

func TestFormatCoefficient(t *testing.T) {
	assert.Equal(t, "1", FormatCoefficient(1))
	assert.Equal(t, "0.25", FormatCoefficient(0.25))
	assert.Equal(t, "12", FormatCoefficient(12))
}
