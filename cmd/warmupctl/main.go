package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/vinoplan-backend/internal/platform/envutil"
)

var Version = "dev"

type globalFlags struct {
	apiURL     string
	adminToken string
}

func main() {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:     "warmupctl",
		Short:   "Trigger and inspect plan cache warmup runs",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVar(&flags.apiURL, "api", envutil.String("VINOPLAN_API_URL", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&flags.adminToken, "token", envutil.String("WARMUP_ADMIN_TOKEN", ""), "admin token for warmup endpoints")

	rootCmd.AddCommand(triggerCmd(flags))
	rootCmd.AddCommand(statusCmd(flags))
	rootCmd.AddCommand(enumerateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
