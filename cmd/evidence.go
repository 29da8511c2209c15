package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/steps"
)

var evidenceFlags struct {
	service  string
	locality string
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Collect and print search evidence for one service/locality pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("evidence"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svcs, err := st.ListServices(ctx, evidenceFlags.service)
		if err != nil {
			return err
		}
		locs, err := st.ListLocalities(ctx, evidenceFlags.locality)
		if err != nil {
			return err
		}
		if len(svcs) != 1 || len(locs) != 1 {
			return eris.Errorf("evidence: need exactly one active service and locality, found %d and %d", len(svcs), len(locs))
		}
		item := model.NewWorkItem(svcs[0], locs[0], false)

		plan, err := steps.PlanFor(item.ServiceType)
		if err != nil {
			return err
		}
		collector, err := initCollector(cfg, logger)
		if err != nil {
			return err
		}

		queries := plan.Queries(item)
		ev, err := collector.Collect(ctx, queries)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(struct {
			Item     model.WorkItem       `json:"item"`
			Queries  []string             `json:"queries"`
			Evidence []model.EvidenceItem `json:"evidence"`
		}{item, queries, ev}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal evidence")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	evidenceCmd.Flags().StringVar(&evidenceFlags.service, "service", "", "service key")
	evidenceCmd.Flags().StringVar(&evidenceFlags.locality, "locality", "", "locality slug")
	_ = evidenceCmd.MarkFlagRequired("service")
	_ = evidenceCmd.MarkFlagRequired("locality")
	rootCmd.AddCommand(evidenceCmd)
}
