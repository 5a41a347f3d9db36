package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/vinoplan-backend/internal/jobs/pipeline/plan_warmup"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting/policy"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

func triggerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Start a new warmup run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient(flags.apiURL, flags.adminToken)
			out, err := c.Trigger(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", out.InstanceID, out.Status)
			return nil
		},
	}
}

func statusCmd(flags *globalFlags) *cobra.Command {
	var watch time.Duration
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status [instance-id]",
		Short: "Show the progress of a warmup run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient(flags.apiURL, flags.adminToken)
			for {
				st, err := c.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(st); err != nil {
						return err
					}
				} else {
					printStatus(cmd.OutOrStdout(), st)
				}
				if watch <= 0 || st.FinishedAt != nil {
					if st.Status == "failed" {
						return fmt.Errorf("warmup %s failed at %s", st.InstanceID, st.FailedStep)
					}
					return nil
				}
				if err := sleepCtx(cmd.Context(), watch); err != nil {
					return nil
				}
			}
		},
	}
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "poll until the run finishes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status document")
	return cmd
}

func enumerateCmd() *cobra.Command {
	var policyFile string
	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "List the anonymous combinations a warmup run generates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := policy.Load(policyFile)
			if err != nil {
				return err
			}
			combos := plan_warmup.Enumerate(table)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tOCCASION\tFOOD")
			for _, c := range combos {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Step, c.Occasion, c.FoodPairing)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d combinations\n", len(combos))
			return nil
		},
	}
	cmd.Flags().StringVar(&policyFile, "policy", os.Getenv("TIER_POLICY_FILE"), "tier policy YAML (defaults when empty)")
	return cmd
}

func printStatus(w io.Writer, st *services.WarmupStatus) {
	fmt.Fprintf(w, "instance: %s\nstatus:   %s\nstage:    %s\n", st.InstanceID, st.Status, st.Stage)
	if st.Summary != nil {
		done := st.Summary.Generated + st.Summary.Skipped
		fmt.Fprintf(w, "progress: %d/%d (generated %d, skipped %d)\n", done, st.Summary.Total, st.Summary.Generated, st.Summary.Skipped)
	}
	if st.ResumeAfter != nil {
		fmt.Fprintf(w, "resume:   %s\n", st.ResumeAfter.Format(time.RFC3339))
	}
	if st.FailedStep != "" {
		fmt.Fprintf(w, "failed:   %s\nerror:    %s\n", st.FailedStep, strings.TrimSpace(st.Error))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
