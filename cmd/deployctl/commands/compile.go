package commands

import (
	"context"
	"fmt"
	"os"

	"contract_deployer/internal/infrastructure/httpclient"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

// compile <source.sol>: send the source to the compile service and write the {abi, bytecode} artifact.
func compileCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compile <source.sol>",
		Short: "Compile a contract through the compile service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Compiler.RequestTimeout())
			defer cancel()
			result, err := httpclient.NewCompilerClient(cfg.Compiler, zapLogger).Compile(ctx, string(source))
			if err != nil {
				return err
			}

			artifact, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(artifact))
				return err
			}
			if err := os.WriteFile(out, append(artifact, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "artifact written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the artifact to this file instead of stdout")
	return cmd
}
