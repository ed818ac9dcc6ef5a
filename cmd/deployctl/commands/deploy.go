package commands

import (
	"context"
	"fmt"

	"contract_deployer/internal/app/service"
	"contract_deployer/internal/domain/entity"
	networkclient "contract_deployer/internal/infrastructure/network/client"
	"contract_deployer/internal/pkg/utils"

	"github.com/spf13/cobra"
)

// deploy <artifact.json>: deploy a compiled artifact through the configured wallet.
func deployCmd() *cobra.Command {
	var (
		network  string
		from     string
		doSwitch bool
	)

	cmd := &cobra.Command{
		Use:   "deploy <artifact.json>",
		Short: "Deploy a compiled artifact to the selected network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := utils.LoadJSONFile[entity.CompileResult](args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			receipts := networkclient.NewEVMClientProvider(cfg.RpcClient, appLogger)
			defer receipts.Close()
			wallet, err := networkclient.NewWalletClient(ctx, cfg.Wallet.Endpoint, registry, receipts, cfg.RpcClient, appLogger)
			if err != nil {
				return err
			}
			defer wallet.Close()

			coordinator, err := service.NewNetworkCoordinator(registry, wallet, appLogger)
			if err != nil {
				return err
			}
			if network != "" {
				if _, err := coordinator.SelectNetworkByKey(network); err != nil {
					return err
				}
			}
			if err := observeWallet(ctx, wallet, coordinator); err != nil {
				return err
			}

			if !coordinator.IsCorrect() && doSwitch {
				fmt.Fprintf(cmd.OutOrStdout(), "switching wallet to %s\n", coordinator.SelectedNetwork())
				if err := coordinator.SwitchToSelected(ctx); err != nil {
					return err
				}
				if err := observeWallet(ctx, wallet, coordinator); err != nil {
					return err
				}
			}

			controller := service.NewDeploymentController(coordinator, wallet, appLogger)
			fmt.Fprintf(cmd.OutOrStdout(), "deploying to %s from %s\n", coordinator.SelectedNetwork(), from)
			session, err := controller.Deploy(ctx, entity.DeployRequest{
				ABI:             artifact.ABI,
				Bytecode:        artifact.Bytecode,
				DeployerAddress: from,
			})
			if err != nil {
				return err
			}

			view := service.NewDeploymentView(registry, session)
			if view.TransactionURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "transaction: %s\n", view.TransactionURL)
			}
			if session.Status != entity.DeploymentSucceeded {
				return fmt.Errorf("deployment %s: %s", session.Status, session.ErrorMessage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "contract deployed at %s\n%s\n", session.ContractAddress, view.ContractURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "network key (default: first registry entry)")
	cmd.Flags().StringVar(&from, "from", "", "deployer account managed by the wallet")
	cmd.Flags().BoolVar(&doSwitch, "switch", false, "ask the wallet to switch chains when it is on another network")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func observeWallet(ctx context.Context, wallet *networkclient.WalletClient, coordinator *service.NetworkCoordinator) error {
	chainID, err := wallet.ChainID(ctx)
	if err != nil {
		return err
	}
	coordinator.ObserveWalletChain(&chainID)
	return nil
}
