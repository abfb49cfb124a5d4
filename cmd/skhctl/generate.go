package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [idea]",
		Short: "Generate a strategic project plan for a business idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			svc, err := buildAssistant(ctx, opts)
			if err != nil {
				return err
			}
			plan, err := svc.GeneratePlan(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}

func newDemoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "demo [idea]",
		Short: "Generate a landing-page mockup config for a business idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			svc, err := buildAssistant(ctx, opts)
			if err != nil {
				return err
			}
			demo, err := svc.GenerateVisualDemo(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if demo == nil {
				fmt.Fprintln(out, "No visual demo could be generated for this idea.")
				return nil
			}
			b, err := json.MarshalIndent(demo, "", "  ")
			if err != nil {
				return fmt.Errorf("encode demo: %w", err)
			}
			fmt.Fprintf(out, "# %s\n%s\n", demo.PreviewHost(), b)
			return nil
		},
	}
}
