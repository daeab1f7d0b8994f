// Package chem defines the transport representation of compounds, reactions
// and pathways. The same structs back the JSON API, the JSONB column, the
// event payloads and the YAML/JSON pathway files read by the CLI.
package chem

import (
	"time"

	"github.com/turtacn/chemlite/pkg/types/common"
)

// CompoundDTO is the wire form of a compound.
type CompoundDTO struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name,omitempty" yaml:"name,omitempty"`
	Formula  string          `json:"formula,omitempty" yaml:"formula,omitempty"`
	SMILES   string          `json:"smiles,omitempty" yaml:"smiles,omitempty"`
	InChI    string          `json:"inchi,omitempty" yaml:"inchi,omitempty"`
	InChIKey string          `json:"inchikey,omitempty" yaml:"inchikey,omitempty"`
	Infos    common.Metadata `json:"infos,omitempty" yaml:"infos,omitempty"`
}

// ReactionDTO is the wire form of a reaction. Coefficients on both sides are
// positive magnitudes.
type ReactionDTO struct {
	ID        string             `json:"id" yaml:"id"`
	Reactants map[string]float64 `json:"reactants" yaml:"reactants"`
	Products  map[string]float64 `json:"products" yaml:"products"`
	ECNumbers []string           `json:"ec_numbers,omitempty" yaml:"ec_numbers,omitempty"`
	Infos     common.Metadata    `json:"infos,omitempty" yaml:"infos,omitempty"`
}

// PathwayDTO is the wire form of a pathway. Reactions keep their insertion
// order; compounds are sorted by identifier.
type PathwayDTO struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name,omitempty" yaml:"name,omitempty"`
	Reactions []ReactionDTO   `json:"reactions" yaml:"reactions"`
	Compounds []CompoundDTO   `json:"compounds" yaml:"compounds"`
	Infos     common.Metadata `json:"infos,omitempty" yaml:"infos,omitempty"`
	Version   int             `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// PathwaySummary is the list-view projection of a stored pathway.
type PathwaySummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	ReactionCount int       `json:"reaction_count"`
	CompoundCount int       `json:"compound_count"`
	Version       int       `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BalanceDTO is the wire form of a pseudo reaction: the boundary exchange of a
// pathway segment together with the classification of its species.
type BalanceDTO struct {
	Reaction      ReactionDTO `json:"reaction" yaml:"reaction"`
	Equation      string      `json:"equation" yaml:"equation"`
	Intermediates []string    `json:"intermediates" yaml:"intermediates"`
	Imports       []string    `json:"imports" yaml:"imports"`
	Exports       []string    `json:"exports" yaml:"exports"`
}

// MatrixDTO is a dense stoichiometric matrix, species by reactions.
type MatrixDTO struct {
	Species   []string    `json:"species" yaml:"species"`
	Reactions []string    `json:"reactions" yaml:"reactions"`
	Values    [][]float64 `json:"values" yaml:"values"`
}

// RenameCompoundRequest is the body of the rename endpoint.
type RenameCompoundRequest struct {
	OldID string `json:"old_id" binding:"required"`
	NewID string `json:"new_id" binding:"required"`
}

// ReactionRequest carries a reaction with the compounds it may introduce.
type ReactionRequest struct {
	Reaction  ReactionDTO   `json:"reaction" binding:"required"`
	Compounds []CompoundDTO `json:"compounds"`
}

// NetDTO is the wire form of a net reaction.
type NetDTO struct {
	Reaction ReactionDTO `json:"reaction" yaml:"reaction"`
	Equation string      `json:"equation" yaml:"equation"`
}

// SnapshotInfo describes one stored pathway snapshot.
type SnapshotInfo struct {
	PathwayID string    `json:"pathway_id"`
	Version   int       `json:"version"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// CompoundHit is one compound search result.
type CompoundHit struct {
	Compound CompoundDTO `json:"compound"`
	Score    float64     `json:"score"`
}
