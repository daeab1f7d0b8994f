package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/domain/reaction"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

// result is what a command hands to PrintResult: data for json, text for
// text, and an optional table.
type result struct {
	data    interface{}
	text    string
	headers []string
	rows    [][]string
}

func (r result) MarshalJSON() ([]byte, error) { return json.Marshal(r.data) }
func (r result) String() string               { return r.text }
func (r result) TableHeaders() []string       { return r.headers }
func (r result) TableRows() [][]string        { return r.rows }

// decodePathwayFile decodes a YAML or JSON pathway document, picking the
// format from the extension.
func decodePathwayFile(path string) (*chem.PathwayDTO, chem.Format, error) {
	format := chem.FormatForPath(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, format, fmt.Errorf("open pathway file: %w", err)
	}
	defer f.Close()

	doc, err := chem.DecodePathway(f, format)
	if err != nil {
		return nil, format, errors.Wrap(err, errors.ErrCodeDocumentInvalid, "invalid pathway document").WithDetail(path)
	}
	return doc, format, nil
}

// loadPathwayFile decodes a pathway file and rebuilds the aggregate from it.
func loadPathwayFile(path string) (*domain.Pathway, chem.Format, error) {
	doc, format, err := decodePathwayFile(path)
	if err != nil {
		return nil, format, err
	}
	p, err := domain.FromDTO(doc)
	if err != nil {
		return nil, format, err
	}
	return p, format, nil
}

func writePathwayFile(path string, p *domain.Pathway, format chem.Format) error {
	data, err := chem.MarshalPathway(p.ToDTO(), format)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}

func pathwayResult(p *domain.Pathway) result {
	rows := make([][]string, 0, p.NumReactions())
	for _, r := range p.Reactions() {
		rows = append(rows, []string{r.ID(), r.Equation()})
	}
	return result{
		data:    p.ToDTO(),
		text:    p.String(),
		headers: []string{"REACTION", "EQUATION"},
		rows:    rows,
	}
}

func stoichRows(r *reaction.Reaction) [][]string {
	rows := make([][]string, 0, r.NumSpecies())
	for _, sid := range r.ReactantIDs() {
		c, _ := r.Reactant(sid)
		rows = append(rows, []string{sid, "reactant", reaction.FormatCoefficient(c)})
	}
	for _, sid := range r.ProductIDs() {
		c, _ := r.Product(sid)
		rows = append(rows, []string{sid, "product", reaction.FormatCoefficient(c)})
	}
	return rows
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Render a pathway file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, pathwayResult(p))
		},
	}
}

func newNetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "net <file> [reaction...]",
		Short: "Print the net reaction of a pathway segment",
		Long:  "Sums the named reactions in order. With no reaction identifiers every reaction of the pathway is summed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			net, err := p.NetReaction(args[1:]...)
			if err != nil {
				return err
			}
			return PrintResult(cmd, result{
				data:    chem.NetDTO{Reaction: net.ToDTO(), Equation: net.Equation()},
				text:    net.String(),
				headers: []string{"SPECIES", "SIDE", "COEFFICIENT"},
				rows:    stoichRows(net),
			})
		},
	}
}

func newPseudoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pseudo <file> [reaction...]",
		Short: "Print the boundary exchange of a pathway segment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			b, err := p.PseudoReaction(args[1:]...)
			if err != nil {
				return err
			}

			var sb strings.Builder
			sb.WriteString(b.Reaction.String())
			fmt.Fprintf(&sb, "\nimports:       %s", strings.Join(b.Imports, ", "))
			fmt.Fprintf(&sb, "\nexports:       %s", strings.Join(b.Exports, ", "))
			fmt.Fprintf(&sb, "\nintermediates: %s", strings.Join(b.Intermediates, ", "))

			rows := make([][]string, 0, len(b.Imports)+len(b.Exports)+len(b.Intermediates))
			for _, s := range b.Imports {
				rows = append(rows, []string{s, "import"})
			}
			for _, s := range b.Exports {
				rows = append(rows, []string{s, "export"})
			}
			for _, s := range b.Intermediates {
				rows = append(rows, []string{s, "intermediate"})
			}
			return PrintResult(cmd, result{
				data:    b.ToDTO(),
				text:    sb.String(),
				headers: []string{"SPECIES", "ROLE"},
				rows:    rows,
			})
		},
	}
}

// editOptions is shared by the commands that modify a pathway file.
type editOptions struct {
	write bool
}

func (o *editOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.write, "write", "w", false, "write the result back to the file")
}

// finishEdit saves the edited pathway when --write is set, else prints it.
func (o *editOptions) finishEdit(cmd *cobra.Command, path string, p *domain.Pathway, format chem.Format, what string) error {
	if !o.write {
		return PrintResult(cmd, pathwayResult(p))
	}
	if err := writePathwayFile(path, p, format); err != nil {
		return err
	}
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		cliCtx.Logger.Info("pathway file updated", logging.String("file", path), logging.String("edit", what))
	}
	PrintSuccess(cmd, what+" written to "+path)
	return nil
}

func newRenameCmd() *cobra.Command {
	opts := &editOptions{}
	cmd := &cobra.Command{
		Use:   "rename <file> <old> <new>",
		Short: "Rename a compound everywhere in a pathway",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, format, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			if err := p.RenameCompound(args[1], args[2]); err != nil {
				return err
			}
			return opts.finishEdit(cmd, args[0], p, format, "rename "+args[1]+" -> "+args[2])
		},
	}
	opts.bind(cmd)
	return cmd
}

func newScaleCmd() *cobra.Command {
	opts := &editOptions{}
	cmd := &cobra.Command{
		Use:   "scale <file> <reaction> <multiplier>",
		Short: "Multiply the coefficients of one reaction",
		Long:  "Multiplies every coefficient of the reaction. A multiplier of -1 reverses it; put -- before a negative multiplier.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mult, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errors.InvalidParam("multiplier must be a number").WithDetail(args[2])
			}
			p, format, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			if err := p.ScaleReaction(args[1], mult); err != nil {
				return err
			}
			return opts.finishEdit(cmd, args[0], p, format, "scale "+args[1]+" by "+args[2])
		},
	}
	opts.bind(cmd)
	return cmd
}

type matrixOptions struct {
	flux map[string]string
}

func newMatrixCmd() *cobra.Command {
	opts := &matrixOptions{}
	cmd := &cobra.Command{
		Use:   "matrix <file>",
		Short: "Print the stoichiometric matrix (species by reaction)",
		Long:  "Prints the species by reaction matrix. With --flux the matrix is multiplied by the given reaction fluxes and the net production per species is printed instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			if len(opts.flux) > 0 {
				return printExchange(cmd, p.StoichiometricMatrix(), opts.flux)
			}
			m := p.StoichiometricMatrix().ToDTO()

			headers := append([]string{"SPECIES"}, m.Reactions...)
			rows := make([][]string, 0, len(m.Species))
			for i, sid := range m.Species {
				row := []string{sid}
				for _, v := range m.Values[i] {
					row = append(row, reaction.FormatCoefficient(v))
				}
				rows = append(rows, row)
			}
			return PrintResult(cmd, result{
				data:    m,
				text:    strings.TrimRight(FormatTable(headers, rows), "\n"),
				headers: headers,
				rows:    rows,
			})
		},
	}
	cmd.Flags().StringToStringVar(&opts.flux, "flux", nil, "reaction fluxes as id=value pairs, e.g. r1=1,r2=0.5")
	return cmd
}

// printExchange prints the net production per species for the given fluxes.
// Negative values are consumption.
func printExchange(cmd *cobra.Command, m *domain.Matrix, raw map[string]string) error {
	fluxes := make(map[string]float64, len(raw))
	for rid, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.InvalidParam("flux must be a number").WithDetail(rid + "=" + v)
		}
		fluxes[rid] = f
	}
	net, err := m.Exchange(fluxes)
	if err != nil {
		return err
	}
	species := make([]string, 0, len(net))
	for sid := range net {
		species = append(species, sid)
	}
	sort.Strings(species)

	headers := []string{"SPECIES", "NET"}
	rows := make([][]string, 0, len(species))
	for _, sid := range species {
		rows = append(rows, []string{sid, reaction.FormatCoefficient(net[sid])})
	}
	return PrintResult(cmd, result{
		data:    net,
		text:    strings.TrimRight(FormatTable(headers, rows), "\n"),
		headers: headers,
		rows:    rows,
	})
}

func newSmilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smiles <file> <reaction>",
		Short: "Print the reaction SMILES built from compound SMILES",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPathwayFile(args[0])
			if err != nil {
				return err
			}
			smi, err := p.ReactionSMILES(args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, result{
				data:    map[string]string{"reaction": args[1], "smiles": smi},
				text:    smi,
				headers: []string{"REACTION", "SMILES"},
				rows:    [][]string{{args[1], smi}},
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{"version": Version, "commit": GitCommit, "build_date": BuildDate}
			return PrintResult(cmd, result{
				data: info,
				text: fmt.Sprintf("chemlite %s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
			})
		},
	}
}
