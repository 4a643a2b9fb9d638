package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/listingclean/internal/core"
)

func cleanCmd(a *app) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "clean --input PATH --output PATH",
		Short: "Clean a local CSV file",
		Long: `Clean reads a listings CSV, removes duplicate, incomplete and unreviewed rows,
normalizes host names, strips double quotes and writes the result.

With --schema the cleaned columns are checked against the document and a
mismatch fails the command without writing output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := pipelineOptions(a.cfg)
			if err != nil {
				return err
			}

			svc := core.NewService(core.ServiceConfig{
				Pipeline: opts,
				WorkDir:  a.cfg.Pipeline.WorkDir,
			})
			result, err := svc.RunFile(cmd.Context(), input, output, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Raw CSV file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination for the cleaned CSV")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}
