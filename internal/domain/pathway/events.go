package pathway

import (
	"sort"

	"github.com/turtacn/chemlite/internal/domain/compound"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// Event types recorded by pathway mutations.
const (
	EventReactionAdded    = "pathway.reaction_added"
	EventReactionDeleted  = "pathway.reaction_deleted"
	EventReactionReplaced = "pathway.reaction_replaced"
	EventCompoundRenamed  = "pathway.compound_renamed"
)

type ReactionAddedEvent struct {
	common.BaseEvent
	ReactionID     string   `json:"reaction_id"`
	AddedCompounds []string `json:"added_compounds,omitempty"`
}

func (e *ReactionAddedEvent) EventType() string { return EventReactionAdded }

func newReactionAddedEvent(p *Pathway, rid string, staged map[string]*compound.Compound) *ReactionAddedEvent {
	return &ReactionAddedEvent{
		BaseEvent:      common.NewBaseEvent(p.id),
		ReactionID:     rid,
		AddedCompounds: stagedIDs(staged),
	}
}

type ReactionDeletedEvent struct {
	common.BaseEvent
	ReactionID string `json:"reaction_id"`
}

func (e *ReactionDeletedEvent) EventType() string { return EventReactionDeleted }

func newReactionDeletedEvent(p *Pathway, rid string) *ReactionDeletedEvent {
	return &ReactionDeletedEvent{BaseEvent: common.NewBaseEvent(p.id), ReactionID: rid}
}

type ReactionReplacedEvent struct {
	common.BaseEvent
	ReactionID     string   `json:"reaction_id"`
	AddedCompounds []string `json:"added_compounds,omitempty"`
}

func (e *ReactionReplacedEvent) EventType() string { return EventReactionReplaced }

func newReactionReplacedEvent(p *Pathway, rid string, staged map[string]*compound.Compound) *ReactionReplacedEvent {
	return &ReactionReplacedEvent{
		BaseEvent:      common.NewBaseEvent(p.id),
		ReactionID:     rid,
		AddedCompounds: stagedIDs(staged),
	}
}

// CompoundRenamedEvent lists the reactions whose keys were rewritten.
type CompoundRenamedEvent struct {
	common.BaseEvent
	OldID     string   `json:"old_id"`
	NewID     string   `json:"new_id"`
	Reactions []string `json:"reactions,omitempty"`
}

func (e *CompoundRenamedEvent) EventType() string { return EventCompoundRenamed }

func newCompoundRenamedEvent(p *Pathway, old, new string, reactions []string) *CompoundRenamedEvent {
	return &CompoundRenamedEvent{
		BaseEvent: common.NewBaseEvent(p.id),
		OldID:     old,
		NewID:     new,
		Reactions: reactions,
	}
}

func (p *Pathway) record(e common.DomainEvent) {
	p.events = append(p.events, e)
	p.updatedAt = e.OccurredAt()
}

// PullEvents returns and clears the events recorded since the last pull.
func (p *Pathway) PullEvents() []common.DomainEvent {
	out := p.events
	p.events = nil
	return out
}

func stagedIDs(staged map[string]*compound.Compound) []string {
	if len(staged) == 0 {
		return nil
	}
	ids := make([]string, 0, len(staged))
	for id := range staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lifecycle events are raised by the application layer rather than by
// mutations of a loaded pathway.
const (
	EventPathwayCreated = "pathway.created"
	EventPathwayDeleted = "pathway.deleted"
)

type PathwayCreatedEvent struct {
	common.BaseEvent
	ReactionCount int `json:"reaction_count"`
	CompoundCount int `json:"compound_count"`
}

func (e *PathwayCreatedEvent) EventType() string { return EventPathwayCreated }

// NewPathwayCreatedEvent records the first save of p.
func NewPathwayCreatedEvent(p *Pathway) *PathwayCreatedEvent {
	return &PathwayCreatedEvent{
		BaseEvent:     common.NewBaseEvent(p.id),
		ReactionCount: len(p.order),
		CompoundCount: len(p.compounds),
	}
}

type PathwayDeletedEvent struct {
	common.BaseEvent
}

func (e *PathwayDeletedEvent) EventType() string { return EventPathwayDeleted }

// NewPathwayDeletedEvent records the removal of pathway id.
func NewPathwayDeletedEvent(id string) *PathwayDeletedEvent {
	return &PathwayDeletedEvent{BaseEvent: common.NewBaseEvent(id)}
}
