package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/listingclean/internal/core"
)

func processCmd(a *app) *cobra.Command {
	var ev core.Event

	cmd := &cobra.Command{
		Use:   "process --bucket BUCKET --object NAME",
		Short: "Clean one stored object into the clean bucket",
		Long: `Process downloads the object, cleans it, uploads the result to CLEAN_BUCKET
under the same name and, when DATABASE_URL is set, replaces the warehouse
table's contents with the cleaned rows. Objects without a .csv suffix are
skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := objectService(cmd.Context(), a.cfg, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.ProcessObject(cmd.Context(), ev)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&ev.Bucket, "bucket", "", "Bucket holding the raw object")
	cmd.Flags().StringVar(&ev.Name, "object", "", "Object name")
	cmd.MarkFlagRequired("bucket")
	cmd.MarkFlagRequired("object")

	return cmd
}

func sweepCmd(a *app) *cobra.Command {
	var bucket, prefix string

	cmd := &cobra.Command{
		Use:   "sweep [--bucket BUCKET] [--prefix PREFIX]",
		Short: "Process every .csv object not yet in the clean bucket",
		Long: `Sweep lists the bucket (RAW_BUCKET by default) and processes each .csv object
that has no counterpart in CLEAN_BUCKET. Objects that fail are reported and
the command exits non-zero after the sweep completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				bucket = a.cfg.Sweep.Bucket
			}
			if !cmd.Flags().Changed("prefix") {
				prefix = a.cfg.Sweep.Prefix
			}
			if bucket == "" {
				return fmt.Errorf("invalid sweep: --bucket or RAW_BUCKET is required")
			}

			svc, closeFn, err := objectService(cmd.Context(), a.cfg, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.Sweep(cmd.Context(), bucket, prefix)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if n := len(result.Failed); n > 0 {
				return fmt.Errorf("sweep finished with %d failed object(s)", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket to sweep (default RAW_BUCKET)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only consider objects under this prefix (default SWEEP_PREFIX)")

	return cmd
}
