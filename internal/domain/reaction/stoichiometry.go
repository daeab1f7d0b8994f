package reaction

import "math"

// Tolerance is the magnitude below which a summed coefficient counts as zero.
const Tolerance = 1e-9

func isZero(v float64) bool {
	return math.Abs(v) < Tolerance
}

// SumStoichiometry adds signed coefficient maps per identifier. Identifiers
// whose total is zero are left out, so a species consumed in one step and
// produced in another collapses to its net contribution.
func SumStoichiometry(adjustments ...map[string]float64) map[string]float64 {
	total := make(map[string]float64)
	for _, adj := range adjustments {
		for id, coeff := range adj {
			total[id] += coeff
		}
	}
	for id, coeff := range total {
		if isZero(coeff) {
			delete(total, id)
		}
	}
	return total
}

// SumSides is SumStoichiometry over unsigned side maps: reactant magnitudes
// are subtracted, product magnitudes added.
func SumSides(reactants, products []map[string]float64) map[string]float64 {
	adjustments := make([]map[string]float64, 0, len(reactants)+len(products))
	for _, side := range reactants {
		neg := make(map[string]float64, len(side))
		for id, coeff := range side {
			neg[id] = -math.Abs(coeff)
		}
		adjustments = append(adjustments, neg)
	}
	for _, side := range products {
		pos := make(map[string]float64, len(side))
		for id, coeff := range side {
			pos[id] = math.Abs(coeff)
		}
		adjustments = append(adjustments, pos)
	}
	return SumStoichiometry(adjustments...)
}
