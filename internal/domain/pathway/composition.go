package pathway

import (
	"sort"

	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

// Net composes detached reactions into one reaction identified by
// NetReactionID whose coefficients are the algebraic sum. Species whose sum
// is zero are dropped. Composition is associative, and Net of a single
// reaction carries that reaction's coefficients.
func Net(reactions ...*reaction.Reaction) *reaction.Reaction {
	adjustments := make([]map[string]float64, 0, len(reactions))
	for _, r := range reactions {
		adjustments = append(adjustments, r.Stoichiometry())
	}
	net, _ := reaction.NewFromStoichiometry(NetReactionID, reaction.SumStoichiometry(adjustments...))
	return net
}

// NetReaction composes the named reactions in the given order. With no
// identifiers every reaction is composed.
func (p *Pathway) NetReaction(ids ...string) (*reaction.Reaction, error) {
	rs, err := p.segment(ids)
	if err != nil {
		return nil, err
	}
	return Net(rs...), nil
}

// Balance is the boundary view of a pathway segment.
type Balance struct {
	// Reaction is the net exchange, identified by PseudoReactionID.
	Reaction *reaction.Reaction
	// Intermediates are species the segment touches whose net is zero.
	Intermediates []string
	// Imports are consumed from outside the segment.
	Imports []string
	// Exports are produced for outside the segment.
	Exports []string
}

// PseudoReaction reduces the named reactions (all when none given) to the
// exchange they make with their surroundings.
func (p *Pathway) PseudoReaction(ids ...string) (*Balance, error) {
	rs, err := p.segment(ids)
	if err != nil {
		return nil, err
	}
	net := Net(rs...).WithID(PseudoReactionID)

	touched := make(map[string]struct{})
	for _, r := range rs {
		for _, sid := range r.SpeciesIDs() {
			touched[sid] = struct{}{}
		}
	}
	b := &Balance{
		Reaction:      net,
		Intermediates: []string{},
		Imports:       net.ReactantIDs(),
		Exports:       net.ProductIDs(),
	}
	for sid := range touched {
		if !net.Has(sid) {
			b.Intermediates = append(b.Intermediates, sid)
		}
	}
	sort.Strings(b.Intermediates)
	return b, nil
}

// ToDTO converts the balance to its wire form.
func (b *Balance) ToDTO() chem.BalanceDTO {
	return chem.BalanceDTO{
		Reaction:      b.Reaction.ToDTO(),
		Equation:      b.Reaction.Equation(),
		Intermediates: append([]string{}, b.Intermediates...),
		Imports:       append([]string{}, b.Imports...),
		Exports:       append([]string{}, b.Exports...),
	}
}

func (p *Pathway) segment(ids []string) ([]*reaction.Reaction, error) {
	if len(ids) == 0 {
		ids = p.order
	}
	out := make([]*reaction.Reaction, 0, len(ids))
	for _, id := range ids {
		r, ok := p.reactions[id]
		if !ok {
			return nil, errors.Unresolved("reaction", id).WithDetail("pathway_id=" + p.id + " reaction_id=" + id)
		}
		out = append(out, r)
	}
	return out, nil
}
