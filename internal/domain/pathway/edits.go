package pathway

import (
	"strings"
	"time"

	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/pkg/errors"
)

// AddReaction stores a copy of rxn. Species not yet indexed must be supplied
// in compounds; supplied compounds the reaction does not reference are
// indexed too. On failure the pathway is unchanged.
func (p *Pathway) AddReaction(rxn *reaction.Reaction, compounds ...*compound.Compound) error {
	if rxn == nil {
		return errors.InvalidParam("reaction must not be nil")
	}
	return p.AddReactionAs(rxn.ID(), rxn, compounds...)
}

// AddReactionAs is AddReaction under an overriding identifier.
func (p *Pathway) AddReactionAs(id string, rxn *reaction.Reaction, compounds ...*compound.Compound) error {
	if rxn == nil {
		return errors.InvalidParam("reaction must not be nil")
	}
	if strings.TrimSpace(id) == "" {
		return errors.InvalidParam("reaction identifier must not be empty")
	}
	if _, taken := p.reactions[id]; taken {
		return errors.Duplicate("reaction", id).WithDetail("pathway_id=" + p.id + " reaction_id=" + id)
	}
	staged, err := p.stage(id, rxn, compounds)
	if err != nil {
		return err
	}
	p.commitCompounds(staged)
	p.reactions[id] = rxn.WithID(id)
	p.order = append(p.order, id)
	p.record(newReactionAddedEvent(p, id, staged))
	return nil
}

// AddCompound indexes a standalone compound.
func (p *Pathway) AddCompound(c *compound.Compound) error {
	if c == nil {
		return errors.InvalidParam("compound must not be nil")
	}
	if _, taken := p.compounds[c.ID()]; taken {
		return errors.Duplicate("compound", c.ID()).WithDetail("pathway_id=" + p.id + " compound_id=" + c.ID())
	}
	p.compounds[c.ID()] = c.Clone()
	p.touch()
	return nil
}

// DeleteReaction removes the reaction with id. Compounds stay indexed; see
// PruneCompounds.
func (p *Pathway) DeleteReaction(id string) error {
	if _, ok := p.reactions[id]; !ok {
		return errors.Unresolved("reaction", id).WithDetail("pathway_id=" + p.id + " reaction_id=" + id)
	}
	delete(p.reactions, id)
	for i, rid := range p.order {
		if rid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.record(newReactionDeletedEvent(p, id))
	return nil
}

// ReplaceReaction swaps the reaction carrying rxn's identifier for a copy of
// rxn at the same position. References are re-validated against the index
// plus compounds.
func (p *Pathway) ReplaceReaction(rxn *reaction.Reaction, compounds ...*compound.Compound) error {
	if rxn == nil {
		return errors.InvalidParam("reaction must not be nil")
	}
	id := rxn.ID()
	if _, ok := p.reactions[id]; !ok {
		return errors.Unresolved("reaction", id).WithDetail("pathway_id=" + p.id + " reaction_id=" + id)
	}
	staged, err := p.stage(id, rxn, compounds)
	if err != nil {
		return err
	}
	p.commitCompounds(staged)
	p.reactions[id] = rxn.Clone()
	p.record(newReactionReplacedEvent(p, id, staged))
	return nil
}

// RenameCompound moves the compound old to identifier new, in the index and
// in every reaction, keeping coefficients. All checks run before anything
// changes.
func (p *Pathway) RenameCompound(old, new string) error {
	c, ok := p.compounds[old]
	if !ok {
		return errors.Unresolved("compound", old).WithDetail("pathway_id=" + p.id + " compound_id=" + old)
	}
	if old == new {
		return nil
	}
	if strings.TrimSpace(new) == "" {
		return errors.InvalidParam("new compound identifier must not be empty")
	}
	if _, taken := p.compounds[new]; taken {
		return errors.Duplicate("compound", new).WithDetail("pathway_id=" + p.id + " compound_id=" + new)
	}

	var touched []string
	for _, rid := range p.order {
		r := p.reactions[rid]
		if r.Has(new) {
			return errors.Duplicate("compound", new).WithDetail("pathway_id=" + p.id + " reaction_id=" + rid + " compound_id=" + new)
		}
		if r.Has(old) {
			touched = append(touched, rid)
		}
	}
	for _, rid := range touched {
		// old present, new absent: checked above.
		_ = p.reactions[rid].RenameSpecies(old, new)
	}
	delete(p.compounds, old)
	p.compounds[new] = c.WithID(new)
	p.record(newCompoundRenamedEvent(p, old, new, touched))
	return nil
}

// PruneCompounds drops indexed compounds that no reaction references and
// returns their identifiers, sorted.
func (p *Pathway) PruneCompounds() []string {
	used := make(map[string]struct{})
	for _, r := range p.reactions {
		for _, id := range r.SpeciesIDs() {
			used[id] = struct{}{}
		}
	}
	var pruned []string
	for _, id := range p.CompoundIDs() {
		if _, ok := used[id]; !ok {
			delete(p.compounds, id)
			pruned = append(pruned, id)
		}
	}
	if len(pruned) > 0 {
		p.touch()
	}
	return pruned
}

// ScaleReaction multiplies the coefficients of one reaction.
func (p *Pathway) ScaleReaction(id string, mult float64) error {
	r, ok := p.reactions[id]
	if !ok {
		return errors.Unresolved("reaction", id).WithDetail("pathway_id=" + p.id + " reaction_id=" + id)
	}
	next := r.Clone()
	if err := next.Scale(mult); err != nil {
		return err
	}
	p.reactions[id] = next
	p.record(newReactionReplacedEvent(p, id, nil))
	return nil
}

// stage resolves every species of rxn against the index and the supplied
// compounds, and returns the compounds that would be added. It does not
// mutate the pathway.
func (p *Pathway) stage(rid string, rxn *reaction.Reaction, supplied []*compound.Compound) (map[string]*compound.Compound, error) {
	offered := make(map[string]*compound.Compound, len(supplied))
	for _, c := range supplied {
		if c == nil {
			continue
		}
		offered[c.ID()] = c
	}
	staged := make(map[string]*compound.Compound)
	for _, sid := range rxn.SpeciesIDs() {
		if _, ok := p.compounds[sid]; ok {
			continue
		}
		c, ok := offered[sid]
		if !ok {
			return nil, errors.Unresolved("compound", sid).WithDetail("pathway_id=" + p.id + " reaction_id=" + rid + " compound_id=" + sid)
		}
		staged[sid] = c.Clone()
	}
	for id, c := range offered {
		if _, ok := p.compounds[id]; !ok {
			staged[id] = c.Clone()
		}
	}
	return staged, nil
}

func (p *Pathway) commitCompounds(staged map[string]*compound.Compound) {
	for id, c := range staged {
		p.compounds[id] = c
	}
}

func (p *Pathway) touch() {
	p.updatedAt = time.Now().UTC()
}
