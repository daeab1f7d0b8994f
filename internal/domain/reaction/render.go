package reaction

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/chemlite/pkg/errors"
)

// String renders "Reaction <id>: 1 A + 2 B = 1 C" with both sides sorted by
// identifier. A reaction missing either side renders as "Reaction <id>".
func (r *Reaction) String() string {
	if r.NumReactants() == 0 || r.NumProducts() == 0 {
		return "Reaction " + r.id
	}
	return "Reaction " + r.id + ": " + r.Equation()
}

// Equation renders only the "1 A + 2 B = 1 C" part. An empty side leaves the
// equals sign at the edge ("1 A =").
func (r *Reaction) Equation() string {
	if len(r.stoich) == 0 {
		return ""
	}
	eq := "="
	if left := r.side(r.ReactantIDs()); left != "" {
		eq = left + " " + eq
	}
	if right := r.side(r.ProductIDs()); right != "" {
		eq += " " + right
	}
	return eq
}

func (r *Reaction) side(ids []string) string {
	terms := make([]string, 0, len(ids))
	for _, id := range ids {
		terms = append(terms, FormatCoefficient(math.Abs(r.stoich[id]))+" "+id)
	}
	return strings.Join(terms, " + ")
}

// FormatCoefficient prints a coefficient in its shortest exact form.
func FormatCoefficient(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// MaxSMILESRepeat caps how many times one compound may be repeated in a
// reaction SMILES.
const MaxSMILESRepeat = 1000

// SMILES builds a reaction SMILES "a.a.b>>c" where each compound's SMILES is
// repeated by its rounded coefficient (at least once). lookup returns the
// SMILES for an identifier; a missing or empty value fails with
// ErrCodeUnresolvedReference. A coefficient that rounds above MaxSMILESRepeat
// fails with ErrCodeInvalidCoefficient.
func (r *Reaction) SMILES(lookup func(id string) (string, bool)) (string, error) {
	left, err := r.smilesSide(r.ReactantIDs(), lookup)
	if err != nil {
		return "", err
	}
	right, err := r.smilesSide(r.ProductIDs(), lookup)
	if err != nil {
		return "", err
	}
	return left + ">>" + right, nil
}

func (r *Reaction) smilesSide(ids []string, lookup func(string) (string, bool)) (string, error) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		smi, ok := lookup(id)
		if !ok || smi == "" {
			return "", errors.Unresolved("compound", id).WithDetail("no SMILES for compound_id=" + id)
		}
		rounded := math.Round(math.Abs(r.stoich[id]))
		if math.IsNaN(rounded) || rounded > MaxSMILESRepeat {
			return "", errors.New(errors.ErrCodeInvalidCoefficient, "coefficient too large for reaction SMILES").
				WithDetail(fmt.Sprintf("reaction_id=%s compound_id=%s coefficient=%s max=%d",
					r.id, id, FormatCoefficient(r.stoich[id]), MaxSMILESRepeat))
		}
		n := int(rounded)
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			parts = append(parts, smi)
		}
	}
	return strings.Join(parts, "."), nil
}
