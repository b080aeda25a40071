package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stageCommand builds a cobra command running one pipeline stage in
// isolation. Operators use these to re-run a failed stage without
// repeating the stages before it.
func stageCommand(use, short string, fn func(env *pipelineEnv, ctx context.Context) (int64, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := initPipeline()
			if err != nil {
				return err
			}
			defer env.Close()

			rows, err := fn(env, cmd.Context())
			if err != nil {
				return err
			}
			zap.L().Info("stage finished", zap.String("stage", use), zap.Int64("rows", rows))
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		stageCommand("bronze", "Ingest raw transactions into the bronze layer",
			func(env *pipelineEnv, ctx context.Context) (int64, error) {
				return env.Pipeline.RunBronze(ctx)
			}),
		stageCommand("silver", "Rebuild the cleaned silver table from bronze",
			func(env *pipelineEnv, ctx context.Context) (int64, error) {
				return env.Pipeline.RunSilver(ctx)
			}),
		stageCommand("gold", "Rebuild the gold analytics views from silver",
			func(env *pipelineEnv, ctx context.Context) (int64, error) {
				return env.Pipeline.RunGold(ctx)
			}),
	)
}
