package commands

import (
	"fmt"
	"text/tabwriter"

	"contract_deployer/internal/app/provider"
	"contract_deployer/internal/app/service"
	"contract_deployer/internal/domain/entity"

	"github.com/spf13/cobra"
)

// recommend: rank the candidate chains for the given importance weights.
func recommendCmd() *cobra.Command {
	weights := entity.DefaultUserWeights()

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank candidate chains by weighted score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := provider.NewMetricTableProvider(cfg.Recommendation.MetricsFile, service.DefaultMetricTable(), appLogger)
			if err != nil {
				return err
			}
			engine, err := service.NewRecommendationEngine(tables, registry, appLogger)
			if err != nil {
				return err
			}
			ranked, err := engine.Recommend(weights)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tCHAIN\tSCORE\tDEPLOY WITH")
			for i, r := range ranked {
				target := "-"
				if r.Deployable {
					target = r.NetworkKey
				}
				fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\n", i+1, r.Name, r.Score, target)
			}
			return w.Flush()
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&weights.Scalability, "scalability", entity.DefaultWeight, "importance of scalability (1-10)")
	flags.Float64Var(&weights.Security, "security", entity.DefaultWeight, "importance of security (1-10)")
	flags.Float64Var(&weights.Decentralization, "decentralization", entity.DefaultWeight, "importance of decentralization (1-10)")
	flags.Float64Var(&weights.CostEfficiency, "cost-efficiency", entity.DefaultWeight, "importance of cost efficiency (1-10)")
	flags.Float64Var(&weights.DevExperience, "dev-experience", entity.DefaultWeight, "importance of developer experience (1-10)")
	return cmd
}
