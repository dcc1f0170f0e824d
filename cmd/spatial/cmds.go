package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"arrow-spatial/pkg/api"
	"arrow-spatial/pkg/config"
	"arrow-spatial/pkg/duckdb"
	"arrow-spatial/pkg/engine"
	"arrow-spatial/pkg/flight"
	"arrow-spatial/pkg/geojson"
	"arrow-spatial/pkg/geoparquet"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/spatial"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

// Represents the state used when processing a command.
type Action struct {
	cmd *cobra.Command
	cfg config.Config
	log *zap.Logger
}

func newAction(cmd *cobra.Command) *Action {
	cfg, err := config.Load(getString(cmd, "env"))
	if err != nil {
		fatal("%v", err)
	}
	if level := getString(cmd, "log-level"); level != "" {
		cfg.LogLevel = level
	}
	if format := getString(cmd, "log-format"); format != "" {
		cfg.LogFormat = format
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fatal("%v", err)
	}
	logging.Set(log)
	return &Action{cmd: cmd, cfg: cfg, log: log}
}

func getString(cmd *cobra.Command, name string) string {
	result, _ := cmd.Flags().GetString(name)
	return result
}

func (a *Action) Context() context.Context {
	ctx := a.cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, a.log)
}

func (a *Action) getString(name string) string {
	return getString(a.cmd, name)
}

func (a *Action) getInt64(name string) int64 {
	result, _ := a.cmd.Flags().GetInt64(name)
	return result
}

func (a *Action) sessionOptions() []engine.Option {
	return []engine.Option{
		engine.WithPartitions(a.cfg.Partitions),
		engine.WithBatchSize(a.cfg.BatchSize),
	}
}

// session opens path as the table named by --table.
func (a *Action) session(path string) (*engine.Session, engine.Query) {
	s, err := spatial.NewSession(a.sessionOptions()...)
	if err != nil {
		fatal("%v", err)
	}
	table, err := geoparquet.OpenTable(afero.NewOsFs(), path, geoparquet.WithBatchSize(a.cfg.BatchSize))
	if err != nil {
		fatal("%v", err)
	}
	q := engine.Query{
		Table: a.getString("table"),
		Where: a.getString("where"),
		Limit: a.getInt64("limit"),
	}
	if err := s.RegisterTable(q.Table, table); err != nil {
		fatal("%v", err)
	}
	return s, q
}

func (a *Action) sync() {
	a.log.Sync()
}

func serve(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	defer action.sync()
	cfg := action.cfg

	ctx, stop := signal.NotifyContext(action.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewAPIServer(cfg.DataDir, cfg.RESTPort, action.sessionOptions()...)
	flightServer := flight.NewFlightServer(flight.Options{
		Session:   action.sessionOptions(),
		Fs:        afero.NewOsFs(),
		DataDir:   cfg.DataDir,
		SpillRows: cfg.SpillRows,
	})
	if err := flightServer.Init(fmt.Sprintf(":%d", cfg.FlightPort)); err != nil {
		fatal("failed to listen on flight port %d: %v", cfg.FlightPort, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := apiServer.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		action.log.Info("starting spatial flight server", zap.Stringer("addr", flightServer.Addr()))
		return flightServer.Serve()
	})
	g.Go(func() error {
		<-ctx.Done()
		action.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		flightServer.Shutdown()
		return apiServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fatal("%v", err)
	}
}

func query(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	defer action.sync()

	s, q := action.session(args[0])
	q.Select = args[1:]

	recs, err := s.Run(action.Context(), q)
	if err != nil {
		fatal("%v", err)
	}
	defer engine.ReleaseBatches(recs)

	switch action.getString("format") {
	case "pretty":
		err = printPretty(os.Stdout, recs)
	case "geojson":
		err = geojson.Write(os.Stdout, recs, action.getString("geometry-column"))
	default:
		err = printJSON(os.Stdout, recs)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func explain(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	defer action.sync()

	s, q := action.session(args[0])
	q.Select = args[1:]

	plan, err := s.Explain(action.Context(), q)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Print(plan)
}

func listFunctions(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	defer action.sync()

	s, err := spatial.NewSession()
	if err != nil {
		fatal("%v", err)
	}
	if action.getString("format") == "pretty" {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tALIASES\tSIGNATURE")
		for _, f := range s.Functions() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, f.Kind, strings.Join(f.Aliases, ","), f.Signature)
		}
		w.Flush()
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(s.Functions())
}

func duckdbQuery(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	defer action.sync()
	ctx := action.Context()

	path := action.getString("database")
	if path == "" {
		path = action.cfg.DuckDBPath
	}
	connector, db, err := duckdb.Open(path)
	if err != nil {
		fatal("%v", err)
	}
	defer connector.Close()
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		fatal("failed to get sql connection: %v", err)
	}
	defer conn.Close()

	if err := duckdb.RegisterUDFs(ctx, conn); err != nil {
		fatal("%v", err)
	}

	rows, err := conn.QueryContext(ctx, args[0])
	if err != nil {
		fatal("%v", err)
	}
	defer rows.Close()
	if err := printRows(os.Stdout, rows); err != nil {
		fatal("%v", err)
	}
}

func printJSON(w io.Writer, recs []arrow.RecordBatch) error {
	for _, rec := range recs {
		if err := array.RecordToJSON(rec, w); err != nil {
			return err
		}
	}
	return nil
}

func printPretty(w io.Writer, recs []arrow.RecordBatch) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, rec := range recs {
		if i == 0 {
			var names []string
			for _, f := range rec.Schema().Fields() {
				names = append(names, f.Name)
			}
			fmt.Fprintln(tw, strings.Join(names, "\t"))
		}
		for r := 0; r < int(rec.NumRows()); r++ {
			cells := make([]string, rec.NumCols())
			for c, col := range rec.Columns() {
				cells[c] = col.ValueStr(r)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	return tw.Flush()
}

func printRows(w io.Writer, rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		cells := make([]string, len(cols))
		for i, v := range vals {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return tw.Flush()
}
