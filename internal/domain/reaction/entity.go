// Package reaction models a chemical transformation as a single signed
// stoichiometry map: negative coefficients are consumed (reactants), positive
// coefficients are produced (products). Reactions reference compounds by
// identifier only; resolving identifiers is the pathway's job.
package reaction

import (
	"math"
	"sort"
	"strings"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Reaction is a stoichiometric transformation plus its EC number labels.
type Reaction struct {
	id        string
	stoich    map[string]float64
	ecNumbers []string
	infos     common.Metadata
}

// New creates an empty reaction. The identifier must be non-blank.
func New(id string) (*Reaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("reaction identifier must not be empty")
	}
	return &Reaction{id: id, stoich: make(map[string]float64)}, nil
}

// MustNew is New that panics on error. Fixtures only.
func MustNew(id string) *Reaction {
	r, err := New(id)
	if err != nil {
		panic(err)
	}
	return r
}

// NewFromStoichiometry builds a reaction from a signed coefficient map.
// Near-zero entries are dropped.
func NewFromStoichiometry(id string, signed map[string]float64) (*Reaction, error) {
	r, err := New(id)
	if err != nil {
		return nil, err
	}
	for species, coeff := range signed {
		if !isZero(coeff) {
			r.stoich[species] = coeff
		}
	}
	return r, nil
}

// ID returns the reaction identifier.
func (r *Reaction) ID() string { return r.id }

// WithID returns a deep copy carrying a different identifier.
func (r *Reaction) WithID(id string) *Reaction {
	cp := r.Clone()
	cp.id = id
	return cp
}

// Clone returns a deep copy.
func (r *Reaction) Clone() *Reaction {
	cp := &Reaction{
		id:        r.id,
		stoich:    make(map[string]float64, len(r.stoich)),
		ecNumbers: append([]string(nil), r.ecNumbers...),
		infos:     r.infos.Clone(),
	}
	for k, v := range r.stoich {
		cp.stoich[k] = v
	}
	return cp
}

// ─────────────────────────────────────────────────────────────────────────────
// Editing
// ─────────────────────────────────────────────────────────────────────────────

// AddReactant consumes |coeff| more of species. If the species is currently a
// product it collapses to the net coefficient. A zero coefficient is a no-op:
// the species is not recorded.
func (r *Reaction) AddReactant(species string, coeff float64) {
	r.adjust(species, -math.Abs(coeff))
}

// AddProduct produces |coeff| more of species. Like AddReactant, a zero
// coefficient adds nothing.
func (r *Reaction) AddProduct(species string, coeff float64) {
	r.adjust(species, math.Abs(coeff))
}

// SetReactant makes species a reactant with magnitude |coeff|, replacing any
// previous entry. A zero coefficient removes the species.
func (r *Reaction) SetReactant(species string, coeff float64) {
	r.set(species, -math.Abs(coeff))
}

// SetProduct makes species a product with magnitude |coeff|.
func (r *Reaction) SetProduct(species string, coeff float64) {
	r.set(species, math.Abs(coeff))
}

// SetReactants replaces the whole reactant side.
func (r *Reaction) SetReactants(reactants map[string]float64) {
	for _, id := range r.ReactantIDs() {
		delete(r.stoich, id)
	}
	for species, coeff := range reactants {
		r.AddReactant(species, coeff)
	}
}

// SetProducts replaces the whole product side.
func (r *Reaction) SetProducts(products map[string]float64) {
	for _, id := range r.ProductIDs() {
		delete(r.stoich, id)
	}
	for species, coeff := range products {
		r.AddProduct(species, coeff)
	}
}

// RemoveReactant drops species from the reactant side.
func (r *Reaction) RemoveReactant(species string) error {
	if v, ok := r.stoich[species]; !ok || v > 0 {
		return errors.Unresolved("reactant", species).WithDetail("reaction_id=" + r.id + " reactant_id=" + species)
	}
	delete(r.stoich, species)
	return nil
}

// RemoveProduct drops species from the product side.
func (r *Reaction) RemoveProduct(species string) error {
	if v, ok := r.stoich[species]; !ok || v < 0 {
		return errors.Unresolved("product", species).WithDetail("reaction_id=" + r.id + " product_id=" + species)
	}
	delete(r.stoich, species)
	return nil
}

// RenameSpecies moves the coefficient of old to new.
func (r *Reaction) RenameSpecies(old, new string) error {
	if old == new {
		return nil
	}
	coeff, ok := r.stoich[old]
	if !ok {
		return errors.Unresolved("compound", old).WithDetail("reaction_id=" + r.id + " compound_id=" + old)
	}
	if _, clash := r.stoich[new]; clash {
		return errors.Duplicate("compound", new).WithDetail("reaction_id=" + r.id + " compound_id=" + new)
	}
	delete(r.stoich, old)
	r.stoich[new] = coeff
	return nil
}

// Scale multiplies every coefficient by mult. A multiplier of -1 reverses the
// reaction. Zero, NaN and infinite multipliers are rejected, as is any
// multiplier that would push a coefficient to infinity or below Tolerance.
// The reaction is unchanged on error.
func (r *Reaction) Scale(mult float64) error {
	if mult == 0 || math.IsNaN(mult) || math.IsInf(mult, 0) {
		return errors.New(errors.ErrCodeInvalidCoefficient, "multiplier must be finite and non-zero").
			WithDetail("reaction_id=" + r.id)
	}
	scaled := make(map[string]float64, len(r.stoich))
	for k, v := range r.stoich {
		nv := v * mult
		if math.IsInf(nv, 0) || isZero(nv) {
			return errors.New(errors.ErrCodeInvalidCoefficient, "scaled coefficient out of range").
				WithDetail("reaction_id=" + r.id + " compound_id=" + k + " multiplier=" + FormatCoefficient(mult))
		}
		scaled[k] = nv
	}
	for k, v := range scaled {
		r.set(k, v)
	}
	return nil
}

func (r *Reaction) adjust(species string, delta float64) {
	r.set(species, r.stoich[species]+delta)
}

func (r *Reaction) set(species string, v float64) {
	if isZero(v) {
		delete(r.stoich, species)
		return
	}
	r.stoich[species] = v
}

// ─────────────────────────────────────────────────────────────────────────────
// EC numbers
// ─────────────────────────────────────────────────────────────────────────────

// AddECNumber appends an EC number. Blank and duplicate values are ignored.
func (r *Reaction) AddECNumber(ec string) {
	ec = strings.TrimSpace(ec)
	if ec == "" {
		return
	}
	for _, existing := range r.ecNumbers {
		if existing == ec {
			return
		}
	}
	r.ecNumbers = append(r.ecNumbers, ec)
}

// SetECNumbers replaces the EC number set.
func (r *Reaction) SetECNumbers(ecs []string) {
	r.ecNumbers = nil
	for _, ec := range ecs {
		r.AddECNumber(ec)
	}
}

// ECNumbers returns a copy of the EC numbers in insertion order.
func (r *Reaction) ECNumbers() []string {
	return append([]string(nil), r.ecNumbers...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Metadata
// ─────────────────────────────────────────────────────────────────────────────

// Infos returns a copy of the free-form metadata.
func (r *Reaction) Infos() common.Metadata { return r.infos.Clone() }

// Info returns one metadata value.
func (r *Reaction) Info(key string) (interface{}, bool) { return r.infos.Get(key) }

// SetInfos replaces the metadata with a copy of infos.
func (r *Reaction) SetInfos(infos common.Metadata) { r.infos = infos.Clone() }

// AddInfo stores value under key.
func (r *Reaction) AddInfo(key string, value interface{}) { r.infos = r.infos.Set(key, value) }

// DelInfo removes key and reports whether it was present.
func (r *Reaction) DelInfo(key string) bool {
	_, ok := r.infos[key]
	delete(r.infos, key)
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

// Coefficient returns the signed coefficient of species.
func (r *Reaction) Coefficient(species string) (float64, bool) {
	v, ok := r.stoich[species]
	return v, ok
}

// Has reports whether species takes part in the reaction.
func (r *Reaction) Has(species string) bool {
	_, ok := r.stoich[species]
	return ok
}

// Reactant returns the magnitude of species on the reactant side.
func (r *Reaction) Reactant(species string) (float64, bool) {
	v, ok := r.stoich[species]
	if !ok || v > 0 {
		return 0, false
	}
	return -v, true
}

// Product returns the magnitude of species on the product side.
func (r *Reaction) Product(species string) (float64, bool) {
	v, ok := r.stoich[species]
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

// Reactants returns a copy of the reactant side as positive magnitudes.
func (r *Reaction) Reactants() map[string]float64 {
	out := make(map[string]float64)
	for k, v := range r.stoich {
		if v < 0 {
			out[k] = -v
		}
	}
	return out
}

// Products returns a copy of the product side.
func (r *Reaction) Products() map[string]float64 {
	out := make(map[string]float64)
	for k, v := range r.stoich {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// Stoichiometry returns a copy of the signed coefficient map.
func (r *Reaction) Stoichiometry() map[string]float64 {
	out := make(map[string]float64, len(r.stoich))
	for k, v := range r.stoich {
		out[k] = v
	}
	return out
}

// ReactantIDs returns the consumed species, sorted.
func (r *Reaction) ReactantIDs() []string {
	return sortedKeys(r.stoich, func(v float64) bool { return v < 0 })
}

// ProductIDs returns the produced species, sorted.
func (r *Reaction) ProductIDs() []string {
	return sortedKeys(r.stoich, func(v float64) bool { return v > 0 })
}

// SpeciesIDs returns every species on either side, sorted.
func (r *Reaction) SpeciesIDs() []string {
	return sortedKeys(r.stoich, nil)
}

// NumReactants counts the reactant side.
func (r *Reaction) NumReactants() int { return len(r.ReactantIDs()) }

// NumProducts counts the product side.
func (r *Reaction) NumProducts() int { return len(r.ProductIDs()) }

// NumSpecies counts the species on both sides.
func (r *Reaction) NumSpecies() int { return len(r.stoich) }

// Equal compares identifier, coefficients, EC numbers and metadata.
func (r *Reaction) Equal(o *Reaction) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.id != o.id || len(r.stoich) != len(o.stoich) || len(r.ecNumbers) != len(o.ecNumbers) {
		return false
	}
	for k, v := range r.stoich {
		if ov, ok := o.stoich[k]; !ok || ov != v {
			return false
		}
	}
	for i := range r.ecNumbers {
		if r.ecNumbers[i] != o.ecNumbers[i] {
			return false
		}
	}
	return r.infos.Equal(o.infos)
}

// ToDTO converts the reaction to its wire form.
func (r *Reaction) ToDTO() chem.ReactionDTO {
	return chem.ReactionDTO{
		ID:        r.id,
		Reactants: r.Reactants(),
		Products:  r.Products(),
		ECNumbers: r.ECNumbers(),
		Infos:     r.infos.Clone(),
	}
}

// FromDTO rebuilds a reaction from its wire form. A species listed on both
// sides nets out.
func FromDTO(dto chem.ReactionDTO) (*Reaction, error) {
	signed := SumSides([]map[string]float64{dto.Reactants}, []map[string]float64{dto.Products})
	r, err := NewFromStoichiometry(dto.ID, signed)
	if err != nil {
		return nil, err
	}
	r.SetECNumbers(dto.ECNumbers)
	r.SetInfos(dto.Infos)
	return r, nil
}

func sortedKeys(m map[string]float64, keep func(float64) bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if keep == nil || keep(v) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
