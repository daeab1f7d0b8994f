package pathway

import (
	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

// Matrix is the stoichiometric matrix of a pathway: one row per species
// (sorted), one column per reaction (insertion order), signed coefficients.
type Matrix struct {
	Species   []string
	Reactions []string
	// Dense is nil when the pathway has no species.
	Dense *mat.Dense
}

// StoichiometricMatrix builds the species by reaction matrix.
func (p *Pathway) StoichiometricMatrix() *Matrix {
	m := &Matrix{Species: p.SpeciesIDs(), Reactions: p.ReactionIDs()}
	if len(m.Species) == 0 || len(m.Reactions) == 0 {
		return m
	}
	row := make(map[string]int, len(m.Species))
	for i, sid := range m.Species {
		row[sid] = i
	}
	m.Dense = mat.NewDense(len(m.Species), len(m.Reactions), nil)
	for j, rid := range m.Reactions {
		for sid, v := range p.reactions[rid].Stoichiometry() {
			m.Dense.Set(row[sid], j, v)
		}
	}
	return m
}

// Exchange multiplies the matrix by a flux vector keyed by reaction id and
// returns the resulting net production per species, zeros dropped. Reactions
// missing from fluxes carry zero flux.
func (m *Matrix) Exchange(fluxes map[string]float64) (map[string]float64, error) {
	for rid := range fluxes {
		if !m.hasReaction(rid) {
			return nil, errors.Unresolved("reaction", rid)
		}
	}
	out := make(map[string]float64)
	if m.Dense == nil {
		return out, nil
	}
	v := mat.NewVecDense(len(m.Reactions), nil)
	for j, rid := range m.Reactions {
		v.SetVec(j, fluxes[rid])
	}
	var res mat.VecDense
	res.MulVec(m.Dense, v)
	for i, sid := range m.Species {
		if x := res.AtVec(i); x > 1e-9 || x < -1e-9 {
			out[sid] = x
		}
	}
	return out, nil
}

func (m *Matrix) hasReaction(id string) bool {
	for _, rid := range m.Reactions {
		if rid == id {
			return true
		}
	}
	return false
}

// ToDTO converts the matrix to nested rows.
func (m *Matrix) ToDTO() chem.MatrixDTO {
	dto := chem.MatrixDTO{
		Species:   append([]string{}, m.Species...),
		Reactions: append([]string{}, m.Reactions...),
		Values:    make([][]float64, len(m.Species)),
	}
	for i := range m.Species {
		dto.Values[i] = make([]float64, len(m.Reactions))
		if m.Dense != nil {
			mat.Row(dto.Values[i], i, m.Dense)
		}
	}
	return dto
}
