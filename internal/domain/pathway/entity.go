// Package pathway holds the Pathway aggregate: an ordered list of reactions
// together with the index of every compound those reactions reference.
//
// A Pathway is single-writer state. It performs no locking; callers that share
// one across goroutines serialize access themselves.
package pathway

import (
	"sort"
	"strings"
	"time"

	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Identifiers given to synthetic reactions derived from a pathway.
const (
	NetReactionID    = "net_rxn"
	PseudoReactionID = "pseudo_rxn"
)

const banner = "----------------"

// Pathway is the aggregate root. Every species referenced by a contained
// reaction resolves through the compound index.
type Pathway struct {
	id        string
	name      string
	order     []string
	reactions map[string]*reaction.Reaction
	compounds map[string]*compound.Compound
	infos     common.Metadata

	events    []common.DomainEvent
	version   int
	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty pathway.
func New(id string) (*Pathway, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("pathway identifier must not be empty")
	}
	now := time.Now().UTC()
	return &Pathway{
		id:        id,
		reactions: make(map[string]*reaction.Reaction),
		compounds: make(map[string]*compound.Compound),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// MustNew is New that panics on error.
func MustNew(id string) *Pathway {
	p, err := New(id)
	if err != nil {
		panic(err)
	}
	return p
}

// ID, Name and Version identify the pathway; Version is the persisted
// revision and is 0 until the first save.
func (p *Pathway) ID() string           { return p.id }
func (p *Pathway) Name() string         { return p.name }
func (p *Pathway) SetName(name string)  { p.name = name }
func (p *Pathway) Version() int         { return p.version }
func (p *Pathway) CreatedAt() time.Time { return p.createdAt }
func (p *Pathway) UpdatedAt() time.Time { return p.updatedAt }
func (p *Pathway) NumReactions() int    { return len(p.order) }
func (p *Pathway) NumCompounds() int    { return len(p.compounds) }
func (p *Pathway) NumSpecies() int      { return len(p.SpeciesIDs()) }

// HasReaction reports whether a reaction with id is part of the pathway.
func (p *Pathway) HasReaction(id string) bool {
	_, ok := p.reactions[id]
	return ok
}

// Infos returns a copy of the free-form metadata.
func (p *Pathway) Infos() common.Metadata { return p.infos.Clone() }

// Info returns one metadata value.
func (p *Pathway) Info(key string) (interface{}, bool) { return p.infos.Get(key) }

// SetInfos replaces the metadata with a copy of infos.
func (p *Pathway) SetInfos(infos common.Metadata) { p.infos = infos.Clone() }

// AddInfo stores value under key.
func (p *Pathway) AddInfo(key string, value interface{}) { p.infos = p.infos.Set(key, value) }

// DelInfo removes key and reports whether it was present.
func (p *Pathway) DelInfo(key string) bool {
	_, ok := p.infos[key]
	delete(p.infos, key)
	return ok
}

// Equal compares identifier, name, metadata, the ordered reactions and the
// compound index. Version, timestamps and pending events are ignored.
func (p *Pathway) Equal(o *Pathway) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.id != o.id || p.name != o.name || !p.infos.Equal(o.infos) ||
		len(p.order) != len(o.order) || len(p.compounds) != len(o.compounds) {
		return false
	}
	for i, rid := range p.order {
		if o.order[i] != rid || !p.reactions[rid].Equal(o.reactions[rid]) {
			return false
		}
	}
	for cid, c := range p.compounds {
		if !c.Equal(o.compounds[cid]) {
			return false
		}
	}
	return true
}

// MarkPersisted records the version and timestamp assigned by storage.
func (p *Pathway) MarkPersisted(version int, at time.Time) {
	p.version = version
	p.updatedAt = at
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// Reaction returns a copy of the reaction with id.
func (p *Pathway) Reaction(id string) (*reaction.Reaction, bool) {
	r, ok := p.reactions[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Reactions returns copies of all reactions in insertion order.
func (p *Pathway) Reactions() []*reaction.Reaction {
	out := make([]*reaction.Reaction, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.reactions[id].Clone())
	}
	return out
}

// ReactionIDs returns reaction identifiers in insertion order.
func (p *Pathway) ReactionIDs() []string {
	return append([]string(nil), p.order...)
}

// Compound returns a copy of the indexed compound with id.
func (p *Pathway) Compound(id string) (*compound.Compound, bool) {
	c, ok := p.compounds[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Compounds returns copies of every indexed compound, sorted by identifier.
func (p *Pathway) Compounds() []*compound.Compound {
	ids := p.CompoundIDs()
	out := make([]*compound.Compound, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.compounds[id].Clone())
	}
	return out
}

// CompoundIDs returns the sorted identifiers of the compound index.
func (p *Pathway) CompoundIDs() []string {
	ids := make([]string, 0, len(p.compounds))
	for id := range p.compounds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SpeciesIDs is the sorted union of species over all reactions.
func (p *Pathway) SpeciesIDs() []string {
	return p.collect((*reaction.Reaction).SpeciesIDs)
}

// ReactantIDs is the sorted union of reactant identifiers over all reactions.
func (p *Pathway) ReactantIDs() []string {
	return p.collect((*reaction.Reaction).ReactantIDs)
}

// ProductIDs is the sorted union of product identifiers over all reactions.
func (p *Pathway) ProductIDs() []string {
	return p.collect((*reaction.Reaction).ProductIDs)
}

func (p *Pathway) collect(ids func(*reaction.Reaction) []string) []string {
	seen := make(map[string]struct{})
	for _, r := range p.reactions {
		for _, id := range ids(r) {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ReactionSMILES renders the reaction SMILES of one reaction from the
// compound index.
func (p *Pathway) ReactionSMILES(id string) (string, error) {
	r, ok := p.reactions[id]
	if !ok {
		return "", errors.Unresolved("reaction", id)
	}
	return r.SMILES(func(cid string) (string, bool) {
		c, ok := p.compounds[cid]
		if !ok {
			return "", false
		}
		return c.SMILES(), true
	})
}

// String renders a banner with the pathway id followed by one line per
// reaction in insertion order.
func (p *Pathway) String() string {
	var sb strings.Builder
	sb.WriteString(banner + "\nPathway " + p.id + "\n" + banner + "\n")
	lines := make([]string, 0, len(p.order))
	for _, id := range p.order {
		lines = append(lines, p.reactions[id].String())
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

// Validate checks the reference invariant: every species of every reaction
// is indexed.
func (p *Pathway) Validate() error {
	for _, rid := range p.order {
		for _, sid := range p.reactions[rid].SpeciesIDs() {
			if _, ok := p.compounds[sid]; !ok {
				return errors.Unresolved("compound", sid).WithDetail("reaction_id=" + rid + " compound_id=" + sid)
			}
		}
	}
	return nil
}
