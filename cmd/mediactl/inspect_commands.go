package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maauso/mediakit/internal/loudness"
)

func newLoudnessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "loudness FILE...",
		Short: "Print the decibel level and windowed median of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := ctx.editor()
			if err != nil {
				return err
			}
			stats := make([]loudness.Stats, len(args))
			for i, p := range args {
				s, err := ed.Loudness(cmd.Context(), p)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				stats[i] = s
			}
			printLoudness(cmd.OutOrStdout(), args, stats)
			return nil
		},
	}
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Print container and stream metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := ctx.editor()
			if err != nil {
				return err
			}
			info, err := ed.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List conversion presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := ctx.editor()
			if err != nil {
				return err
			}
			catalog := ed.Presets()
			var rows [][]string
			for _, name := range catalog.Names() {
				t, err := catalog.Get(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, t.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Preset", "Description"}, rows, nil))
			return nil
		},
	}
}
