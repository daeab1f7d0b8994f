package cli

import (
	"context"
	stderrors "errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/chemlite/internal/domain/compound"
	domain "github.com/turtacn/chemlite/internal/domain/pathway"
	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/client"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/chem"
)

// serverContext returns the CLI context with a usable API client and a
// context bounded by --timeout.
func serverContext(cmd *cobra.Command) (*CLIContext, context.Context, context.CancelFunc, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if cliCtx.Client == nil {
		return nil, nil, nil, errors.New(errors.ErrCodeExternalService, "API client is not configured").
			WithDetail("set --server or server.http in the config file")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	return cliCtx, ctx, cancel, nil
}

type pullOptions struct {
	file   string
	format string
}

func newPullCmd() *cobra.Command {
	opts := &pullOptions{}
	cmd := &cobra.Command{
		Use:   "pull <pathway-id>",
		Short: "Download a pathway from the server",
		Long:  "Fetches a stored pathway and writes it to --file, or to stdout when no file is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, ctx, cancel, err := serverContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			doc, err := cliCtx.Client.Pathways().Get(ctx, args[0])
			if err != nil {
				return err
			}
			cliCtx.Logger.Debug("pathway pulled",
				logging.String("pathway_id", doc.ID), logging.Int("version", doc.Version))

			if opts.file == "" {
				return chem.EncodePathway(cmd.OutOrStdout(), doc, chem.Format(opts.format))
			}
			data, err := chem.MarshalPathway(doc, chem.FormatForPath(opts.file))
			if err != nil {
				return err
			}
			if err := os.WriteFile(opts.file, data, 0o644); err != nil {
				return err
			}
			PrintSuccess(cmd, "pathway "+doc.ID+" v"+strconv.Itoa(doc.Version)+" written to "+opts.file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "destination file; .yaml/.yml selects YAML, anything else JSON")
	cmd.Flags().StringVar(&opts.format, "format", string(chem.FormatYAML), "stdout format when no file is given (yaml, json)")
	return cmd
}

type pushOptions struct {
	replace bool
	library string
}

func newPushCmd() *cobra.Command {
	opts := &pushOptions{}
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Upload a pathway file to the server",
		Long:  "Validates the pathway file locally and creates it on the server. With --replace an existing pathway of the same id is deleted first. With --library, compounds missing from the file are taken from the compound list of another pathway file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPushDocument(cmd.Context(), args[0], opts.library)
			if err != nil {
				return err
			}
			cliCtx, ctx, cancel, err := serverContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			out, err := pushPathway(ctx, cliCtx.Client.Pathways(), p, opts.replace)
			if err != nil {
				return err
			}
			cliCtx.Logger.Info("pathway pushed",
				logging.String("pathway_id", out.ID), logging.Int("version", out.Version))
			s := chem.PathwaySummary{
				ID:            out.ID,
				Name:          out.Name,
				ReactionCount: len(out.Reactions),
				CompoundCount: len(out.Compounds),
				Version:       out.Version,
				UpdatedAt:     out.UpdatedAt,
			}
			return PrintResult(cmd, result{
				data:    s,
				text:    "pushed pathway " + s.ID + " (version " + strconv.Itoa(s.Version) + ")",
				headers: []string{"ID", "REACTIONS", "COMPOUNDS", "VERSION"},
				rows: [][]string{{
					s.ID, strconv.Itoa(s.ReactionCount), strconv.Itoa(s.CompoundCount), strconv.Itoa(s.Version),
				}},
			})
		},
	}
	cmd.Flags().BoolVar(&opts.replace, "replace", false, "delete an existing pathway with the same id before creating")
	cmd.Flags().StringVar(&opts.library, "library", "", "pathway file whose compounds fill in species the pushed file does not list")
	return cmd
}

// loadPushDocument reads the file to push and, when library is set, completes
// its compound list from the library file before validating it.
func loadPushDocument(ctx context.Context, path, library string) (*domain.Pathway, error) {
	doc, _, err := decodePathwayFile(path)
	if err != nil {
		return nil, err
	}
	if library != "" {
		lib, _, err := decodePathwayFile(library)
		if err != nil {
			return nil, err
		}
		known := make([]*compound.Compound, 0, len(lib.Compounds))
		for _, cd := range lib.Compounds {
			c, err := compound.FromDTO(cd)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeDocumentInvalid, "invalid compound in library").WithDetail(library)
			}
			known = append(known, c)
		}
		if err := compound.CompleteDocument(ctx, compound.NewMapResolver(known...), doc); err != nil {
			return nil, err
		}
	}
	return domain.FromDTO(doc)
}

func pushPathway(ctx context.Context, pc *client.PathwaysClient, p *domain.Pathway, replace bool) (*chem.PathwayDTO, error) {
	doc := p.ToDTO()
	doc.Version = 0
	out, err := pc.Create(ctx, doc)
	if err == nil || !replace {
		return out, err
	}
	var apiErr *client.APIError
	if !stderrors.As(err, &apiErr) || !apiErr.IsConflict() {
		return nil, err
	}
	if err := pc.Delete(ctx, doc.ID); err != nil {
		return nil, err
	}
	return pc.Create(ctx, doc)
}
