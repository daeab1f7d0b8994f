// Package compound models a chemical species. Structural identifiers (formula,
// SMILES, InChI, InChIKey) are opaque strings supplied by callers; nothing in
// this package derives or validates them.
package compound

import (
	"strings"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Compound is a named chemical species. The identifier is fixed at
// construction; a pathway renames a compound by replacing it with WithID.
type Compound struct {
	id       string
	name     string
	formula  string
	smiles   string
	inchi    string
	inchiKey string
	infos    common.Metadata
}

// Option sets an optional attribute at construction time.
type Option func(*Compound)

// WithName, WithFormula, WithSMILES, WithInChI and WithInChIKey set the
// matching annotation.
func WithName(name string) Option       { return func(c *Compound) { c.name = name } }
func WithFormula(formula string) Option { return func(c *Compound) { c.formula = formula } }
func WithSMILES(smiles string) Option   { return func(c *Compound) { c.smiles = smiles } }
func WithInChI(inchi string) Option     { return func(c *Compound) { c.inchi = inchi } }
func WithInChIKey(key string) Option    { return func(c *Compound) { c.inchiKey = key } }

// WithInfos attaches a copy of infos.
func WithInfos(infos common.Metadata) Option { return func(c *Compound) { c.infos = infos.Clone() } }

// New builds a Compound. The identifier must be non-blank.
func New(id string, opts ...Option) (*Compound, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("compound identifier must not be empty")
	}
	c := &Compound{id: id}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustNew is New that panics on error. Fixtures only.
func MustNew(id string, opts ...Option) *Compound {
	c, err := New(id, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ID and the annotation getters return the stored values; unset annotations
// are empty strings.
func (c *Compound) ID() string       { return c.id }
func (c *Compound) Name() string     { return c.name }
func (c *Compound) Formula() string  { return c.formula }
func (c *Compound) SMILES() string   { return c.smiles }
func (c *Compound) InChI() string    { return c.inchi }
func (c *Compound) InChIKey() string { return c.inchiKey }

// Setters overwrite one annotation. The identifier is immutable; use WithID.
func (c *Compound) SetName(name string)       { c.name = name }
func (c *Compound) SetFormula(formula string) { c.formula = formula }
func (c *Compound) SetSMILES(smiles string)   { c.smiles = smiles }
func (c *Compound) SetInChI(inchi string)     { c.inchi = inchi }
func (c *Compound) SetInChIKey(key string)    { c.inchiKey = key }

// Infos returns a copy of the free-form metadata.
func (c *Compound) Infos() common.Metadata { return c.infos.Clone() }

// Info returns one metadata value.
func (c *Compound) Info(key string) (interface{}, bool) { return c.infos.Get(key) }

// SetInfos replaces the metadata with a copy of infos.
func (c *Compound) SetInfos(infos common.Metadata) { c.infos = infos.Clone() }

// AddInfo stores value under key, replacing any previous value.
func (c *Compound) AddInfo(key string, value interface{}) { c.infos = c.infos.Set(key, value) }

// DelInfo removes key and reports whether it was present.
func (c *Compound) DelInfo(key string) bool {
	_, ok := c.infos[key]
	delete(c.infos, key)
	return ok
}

// Clone returns an independent copy.
func (c *Compound) Clone() *Compound {
	cp := *c
	cp.infos = c.infos.Clone()
	return &cp
}

// WithID returns a copy carrying a different identifier.
func (c *Compound) WithID(id string) *Compound {
	cp := c.Clone()
	cp.id = id
	return cp
}

// Equal reports whether both compounds carry the same identifier,
// attributes and metadata.
func (c *Compound) Equal(o *Compound) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.id == o.id &&
		c.name == o.name &&
		c.formula == o.formula &&
		c.smiles == o.smiles &&
		c.inchi == o.inchi &&
		c.inchiKey == o.inchiKey &&
		c.infos.Equal(o.infos)
}

// String renders "Compound(<id>)".
func (c *Compound) String() string {
	return "Compound(" + c.id + ")"
}

// ToDTO converts the compound to its wire form.
func (c *Compound) ToDTO() chem.CompoundDTO {
	return chem.CompoundDTO{
		ID:       c.id,
		Name:     c.name,
		Formula:  c.formula,
		SMILES:   c.smiles,
		InChI:    c.inchi,
		InChIKey: c.inchiKey,
		Infos:    c.infos.Clone(),
	}
}

// FromDTO rebuilds a compound from its wire form.
func FromDTO(dto chem.CompoundDTO) (*Compound, error) {
	return New(dto.ID,
		WithName(dto.Name),
		WithFormula(dto.Formula),
		WithSMILES(dto.SMILES),
		WithInChI(dto.InChI),
		WithInChIKey(dto.InChIKey),
		WithInfos(dto.Infos),
	)
}
