package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full bronze → silver → gold pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline()
		if err != nil {
			return err
		}
		defer env.Close()

		result, runErr := env.Pipeline.Run(cmd.Context())

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run result as JSON")
	rootCmd.AddCommand(runCmd)
}
