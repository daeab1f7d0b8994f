package pathway

import (
	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

// ToDTO converts the pathway to its document form.
func (p *Pathway) ToDTO() *chem.PathwayDTO {
	dto := &chem.PathwayDTO{
		ID:        p.id,
		Name:      p.name,
		Reactions: make([]chem.ReactionDTO, 0, len(p.order)),
		Compounds: make([]chem.CompoundDTO, 0, len(p.compounds)),
		Infos:     p.infos.Clone(),
		Version:   p.version,
		CreatedAt: p.createdAt,
		UpdatedAt: p.updatedAt,
	}
	for _, id := range p.order {
		dto.Reactions = append(dto.Reactions, p.reactions[id].ToDTO())
	}
	for _, id := range p.CompoundIDs() {
		dto.Compounds = append(dto.Compounds, p.compounds[id].ToDTO())
	}
	return dto
}

// FromDTO rebuilds a pathway from a document. The document's compounds are
// indexed first, then reactions are added in order, so an unresolved or
// duplicate identifier fails exactly as the equivalent edits would. No events
// are recorded.
func FromDTO(dto *chem.PathwayDTO) (*Pathway, error) {
	if dto == nil {
		return nil, errors.New(errors.ErrCodeDocumentInvalid, "pathway document is empty")
	}
	p, err := New(dto.ID)
	if err != nil {
		return nil, err
	}
	p.name = dto.Name
	p.infos = dto.Infos.Clone()
	for _, cd := range dto.Compounds {
		c, err := compound.FromDTO(cd)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDocumentInvalid, "invalid compound in pathway document")
		}
		if err := p.AddCompound(c); err != nil {
			return nil, err
		}
	}
	for _, rd := range dto.Reactions {
		r, err := reaction.FromDTO(rd)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDocumentInvalid, "invalid reaction in pathway document")
		}
		if err := p.AddReaction(r); err != nil {
			return nil, err
		}
	}
	p.events = nil
	p.version = dto.Version
	if !dto.CreatedAt.IsZero() {
		p.createdAt = dto.CreatedAt
	}
	if !dto.UpdatedAt.IsZero() {
		p.updatedAt = dto.UpdatedAt
	}
	return p, nil
}

// Summary projects the pathway for list views.
func (p *Pathway) Summary() chem.PathwaySummary {
	return chem.PathwaySummary{
		ID:            p.id,
		Name:          p.name,
		ReactionCount: len(p.order),
		CompoundCount: len(p.compounds),
		Version:       p.version,
		UpdatedAt:     p.updatedAt,
	}
}
