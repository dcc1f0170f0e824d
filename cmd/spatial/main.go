package main

import (
	"github.com/spf13/cobra"
)

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the Flight exchange server",
		Args:  cobra.NoArgs,
		Run:   serve}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "query path expr...",
		Short: "Evaluate expressions over a GeoParquet file or directory",
		Args:  cobra.MinimumNArgs(2),
		Run:   query}
	addQueryFlags(cmd)
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "explain path expr...",
		Short: "Print the analyzed plan of a query",
		Args:  cobra.MinimumNArgs(2),
		Run:   explain}
	addQueryFlags(cmd)
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "list-functions",
		Short: "List the registered spatial functions",
		Args:  cobra.NoArgs,
		Run:   listFunctions}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "duckdb sql",
		Short: "Run SQL in DuckDB with the WKB spatial functions registered",
		Args:  cobra.ExactArgs(1),
		Run:   duckdbQuery}
	cmd.Flags().String("database", "", "DuckDB database file (default: SPATIAL_DUCKDB_PATH, else in-memory)")
	root.AddCommand(cmd)
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("table", "t", "name the file is registered under")
	cmd.Flags().String("where", "", "filter predicate")
	cmd.Flags().Int64("limit", 0, "maximum number of rows (0: no limit)")
	cmd.Flags().String("geometry-column", "geometry", "WKB column written as feature geometry with --format geojson")
}

func main() {
	var root = &cobra.Command{Use: "spatial"}
	root.PersistentFlags().String("env", ".env", "env file with SPATIAL_* settings")
	root.PersistentFlags().String("log-level", "", "log level (default: SPATIAL_LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "log format, 'json' or 'console' (default: SPATIAL_LOG_FORMAT)")
	root.PersistentFlags().String("format", "json", "format results, 'json', 'pretty' or 'geojson'")
	addCommands(root)
	root.Execute()
}
