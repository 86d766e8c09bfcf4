package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/service"
)

func (a *app) seriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Administer numbering series",
	}
	cmd.AddCommand(
		a.seriesListCommand(),
		a.seriesCreateCommand(),
		a.seriesSeedCommand(),
		a.seriesActivationCommand("activate", true),
		a.seriesActivationCommand("deactivate", false),
	)
	return cmd
}

// withSeries runs fn against the configured series service.
func (a *app) withSeries(ctx context.Context, fn func(svc service.SeriesService) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	store, release, err := a.deps.OpenSeriesStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()
	return fn(service.NewSeriesService(store, a.deps.Logger))
}

func (a *app) seriesListCommand() *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List series with their counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := a.jsonOutput()
			if err != nil {
				return err
			}
			return a.withSeries(cmd.Context(), func(svc service.SeriesService) error {
				list, err := svc.List(cmd.Context(), docType)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				return writeSeriesTable(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "", "filter by document type (code or name)")
	return cmd
}

func (a *app) seriesCreateCommand() *cobra.Command {
	var in service.CreateSeriesInput
	cmd := &cobra.Command{
		Use:     "create CODE",
		Short:   "Open a numbering series",
		Example: `  fiscalctl series create F002 --type invoice --start-after 1500 --default`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Code = args[0]
			return a.withSeries(cmd.Context(), func(svc service.SeriesService) error {
				s, err := svc.Create(cmd.Context(), &in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "series %s opened for %s, next number %d\n",
					s.Code, s.DocumentType.Name(), s.CurrentNumber+1)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&in.DocumentType, "type", "t", "", "document type (code or name)")
	cmd.Flags().Int64Var(&in.StartAfter, "start-after", 0, "last number already used")
	cmd.Flags().Int64Var(&in.MaxNumber, "max", 0, "highest number the series may issue")
	cmd.Flags().BoolVar(&in.IsDefault, "default", false, "make it the default series for its type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (a *app) seriesSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Open the standard default series that do not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSeries(cmd.Context(), func(svc service.SeriesService) error {
				n, err := service.SeedSeries(cmd.Context(), svc, service.DefaultSeries)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d series created\n", n)
				return nil
			})
		},
	}
}

func (a *app) seriesActivationCommand(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CODE",
		Short: fmt.Sprintf("Mark a series as %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSeries(cmd.Context(), func(svc service.SeriesService) error {
				s, err := svc.SetActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "series %s active=%v\n", s.Code, s.IsActive)
				return nil
			})
		},
	}
}

func writeSeriesTable(w io.Writer, list []domain.DocumentSeries) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tTYPE\tCURRENT\tMAX\tDEFAULT\tACTIVE")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%v\t%v\n",
			s.Code, s.DocumentType.Name(), s.CurrentNumber, s.MaxNumber, s.IsDefault, s.IsActive)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
