// Package repositories holds the Neo4j projection of pathway reaction graphs.
//
// A pathway projects to (:Compound) and (:Reaction) nodes tagged with the
// pathway id. Reactants point at their reaction with CONSUMED_BY and the
// reaction points at its products with PRODUCES, both carrying the absolute
// stoichiometric coefficient.
package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	driver "github.com/turtacn/chemlite/internal/infrastructure/database/neo4j"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
)

// MaxTraversalDepth bounds Downstream and Upstream in reaction steps.
const MaxTraversalDepth = 10

const (
	removePathwayCypher = `
		MATCH (n {pathway_id: $pathwayId})
		WHERE n:Compound OR n:Reaction
		DETACH DELETE n`

	createSpeciesCypher = `
		UNWIND $species AS s
		CREATE (:Compound {pathway_id: $pathwayId, id: s.id, name: s.name, formula: s.formula})`

	createReactionsCypher = `
		UNWIND $reactions AS r
		CREATE (rx:Reaction {pathway_id: $pathwayId, id: r.id, equation: r.equation, ec_numbers: r.ec_numbers})
		WITH rx, r
		UNWIND r.reactants AS sr
		MATCH (s:Compound {pathway_id: $pathwayId, id: sr.id})
		CREATE (s)-[:CONSUMED_BY {coefficient: sr.coefficient}]->(rx)`

	linkProductsCypher = `
		UNWIND $reactions AS r
		MATCH (rx:Reaction {pathway_id: $pathwayId, id: r.id})
		WITH rx, r
		UNWIND r.products AS sp
		MATCH (s:Compound {pathway_id: $pathwayId, id: sp.id})
		CREATE (rx)-[:PRODUCES {coefficient: sp.coefficient}]->(s)`

	// %s is the relationship pattern, %d the hop bound. Variable-length
	// bounds cannot be parameters in Cypher.
	traverseCypher = `
		MATCH (start:Compound {pathway_id: $pathwayId, id: $compoundId})
		MATCH %s
		WHERE target.pathway_id = $pathwayId AND target <> start
		RETURN DISTINCT target.id AS id
		ORDER BY id`
)

// PathwayGraphRepository implements domain.GraphProjection on Neo4j.
type PathwayGraphRepository struct {
	driver driver.DriverInterface
	logger logging.Logger
}

var _ domain.GraphProjection = (*PathwayGraphRepository)(nil)

func NewPathwayGraphRepository(d driver.DriverInterface, log logging.Logger) *PathwayGraphRepository {
	return &PathwayGraphRepository{driver: d, logger: log}
}

// Project replaces the stored graph of p in one write transaction.
func (r *PathwayGraphRepository) Project(ctx context.Context, p *domain.Pathway) error {
	params := projectParams(p)
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		for _, q := range []string{removePathwayCypher, createSpeciesCypher, createReactionsCypher, linkProductsCypher} {
			res, err := tx.Run(ctx, q, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to project pathway graph").WithDetail("pathway=" + p.ID())
	}
	r.logger.Debug("pathway graph projected",
		logging.String("pathway_id", p.ID()),
		logging.Int("reactions", p.NumReactions()))
	return nil
}

func projectParams(p *domain.Pathway) map[string]any {
	species := make([]any, 0, p.NumSpecies())
	for _, id := range p.SpeciesIDs() {
		node := map[string]any{"id": id, "name": "", "formula": ""}
		if c, ok := p.Compound(id); ok {
			node["name"] = c.Name()
			node["formula"] = c.Formula()
		}
		species = append(species, node)
	}

	reactions := make([]any, 0, p.NumReactions())
	for _, rx := range p.Reactions() {
		reactants := make([]any, 0, rx.NumReactants())
		for _, id := range rx.ReactantIDs() {
			c, _ := rx.Reactant(id)
			reactants = append(reactants, map[string]any{"id": id, "coefficient": c})
		}
		products := make([]any, 0, rx.NumProducts())
		for _, id := range rx.ProductIDs() {
			c, _ := rx.Product(id)
			products = append(products, map[string]any{"id": id, "coefficient": c})
		}
		ecs := make([]any, 0, len(rx.ECNumbers()))
		for _, ec := range rx.ECNumbers() {
			ecs = append(ecs, ec)
		}
		reactions = append(reactions, map[string]any{
			"id":         rx.ID(),
			"equation":   rx.Equation(),
			"ec_numbers": ecs,
			"reactants":  reactants,
			"products":   products,
		})
	}

	return map[string]any{
		"pathwayId": p.ID(),
		"species":   species,
		"reactions": reactions,
	}
}

// Remove deletes every node of the pathway. Removing an unknown pathway is
// not an error.
func (r *PathwayGraphRepository) Remove(ctx context.Context, pathwayID string) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, removePathwayCypher, map[string]any{"pathwayId": pathwayID})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to remove pathway graph").WithDetail("pathway=" + pathwayID)
	}
	return nil
}

// Downstream lists the species reachable from compoundID within depth
// reaction steps, following reactant to product.
func (r *PathwayGraphRepository) Downstream(ctx context.Context, pathwayID, compoundID string, depth int) ([]string, error) {
	return r.traverse(ctx, pathwayID, compoundID, depth, "(start)-[:CONSUMED_BY|PRODUCES*1..%d]->(target:Compound)")
}

// Upstream lists the species compoundID can be made from within depth
// reaction steps.
func (r *PathwayGraphRepository) Upstream(ctx context.Context, pathwayID, compoundID string, depth int) ([]string, error) {
	return r.traverse(ctx, pathwayID, compoundID, depth, "(start)<-[:CONSUMED_BY|PRODUCES*1..%d]-(target:Compound)")
}

func (r *PathwayGraphRepository) traverse(ctx context.Context, pathwayID, compoundID string, depth int, pattern string) ([]string, error) {
	if depth < 1 || depth > MaxTraversalDepth {
		return nil, errors.InvalidParam(fmt.Sprintf("depth must be between 1 and %d", MaxTraversalDepth))
	}
	// Each reaction step is two hops: species to reaction to species.
	query := fmt.Sprintf(traverseCypher, fmt.Sprintf(pattern, 2*depth))
	params := map[string]any{"pathwayId": pathwayID, "compoundId": compoundID}

	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, res, func(rec *neo4j.Record) (string, error) {
			id, _, err := neo4j.GetRecordValue[string](rec, "id")
			return id, err
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "graph traversal failed").WithDetail("pathway=" + pathwayID)
	}
	ids, _ := out.([]string)
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
