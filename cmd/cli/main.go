// Command uptimectl reads uptime reports from the query API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/wanuptime/internal/client"
)

var rootCmd = &cobra.Command{
	Use:   "uptimectl",
	Short: "Query WAN uptime reports",
	Long: `A command line client for the uptime query API.
Prints uptime, outages and disruptions, or downloads exports.`,
	SilenceUsage: true,
}

func init() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().String("api", api, "query API base URL (overrides API_BASE)")
	rootCmd.PersistentFlags().String("start", "", "window start, RFC 3339 or unix seconds")
	rootCmd.PersistentFlags().String("end", "", "window end, RFC 3339 or unix seconds")

	uptimeCmd.Flags().String("bucket", "", "bucket width, e.g. 1h or 3600")
	exportCmd.Flags().String("bucket", "", "bucket width, e.g. 1h or 3600")
	exportCmd.Flags().StringP("format", "f", "csv", "export format: csv, xlsx, svg or png")
	exportCmd.Flags().StringP("output", "o", "", "output file, - for stdout (default uptime.<format>)")
	recordsCmd.Flags().Bool("failures", false, "only print failed probes")

	rootCmd.AddCommand(uptimeCmd, recordsCmd, disruptionsCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func apiClient(cmd *cobra.Command) *client.Client {
	base, _ := cmd.Flags().GetString("api")
	return client.New(base)
}
