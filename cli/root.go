// Package cli provides the command-line entry point that drives one
// board to completion: load it from its board store, build an
// execution graph against the registered node kinds, and run it through
// the scheduler, wiring whichever object/trace/cache backends the
// environment names.
//
// Grounded on oriys-nova's cmd/nova/main.go root command (persistent
// flags for backend addresses, a --config file flag, graceful shutdown on
// SIGINT/SIGTERM via signal.Notify), with the Firecracker/gRPC/executor
// daemon wiring that command builds for a long-running server replaced by
// the store/scheduler wiring a one-shot run needs instead. viper is not
// part of oriys-nova's stack (its internal/config reads flags and env
// directly); it is used here as the config package's own layered
// file/env/flag source, a real ecosystem pairing with cobra.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evalgo/flowengine/board"
	"github.com/evalgo/flowengine/boardstore"
	"github.com/evalgo/flowengine/boardstore/couchstore"
	"github.com/evalgo/flowengine/config"
	"github.com/evalgo/flowengine/execctx"
	"github.com/evalgo/flowengine/execctx/rediscache"
	"github.com/evalgo/flowengine/flowlog"
	"github.com/evalgo/flowengine/graph"
	"github.com/evalgo/flowengine/nodekit"
	"github.com/evalgo/flowengine/objectstore"
	"github.com/evalgo/flowengine/objectstore/s3store"
	"github.com/evalgo/flowengine/registry"
	"github.com/evalgo/flowengine/runevent"
	"github.com/evalgo/flowengine/scheduler"
	"github.com/evalgo/flowengine/tracelog"
	"github.com/evalgo/flowengine/tracelog/dynamostore"
	"github.com/evalgo/flowengine/tracelog/pgstore"
)

// cfgFile holds the path to the configuration file specified via
// command-line flag, following the same $HOME/./.flowengine.yaml search
// order as the original cli/root.go's .flow-service.yaml.
var cfgFile string

// RootCmd runs one board to completion against whichever board/object/
// trace/cache backends FLOWENGINE_* environment variables name. The run is
// seeded from the --node flag's node, or the board's Start nodes when it is
// empty; which nodes are wired to which is read from the board itself.
var RootCmd = &cobra.Command{
	Use:   "flowengine",
	Short: "run a visual dataflow board to completion",
	Long: `flowengine loads one board from its board store, lowers it into an
execution graph against the registered node kinds, and drives it through
the scheduler until the run succeeds, fails, or is cancelled.

Board, object, and trace store credentials are read from FLOWENGINE_*
environment variables (see config.LoadEngineConfig); --app, --board,
--node, --run-id, --concurrency and --config are the only knobs this
command itself exposes.`,
	RunE: runFlow,
}

// Execute runs RootCmd, the entry point cmd/flowengine/main.go calls.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flowengine.yaml)")

	RootCmd.Flags().String("app", "", "app id the board belongs to (required)")
	RootCmd.Flags().String("board", "", "board id to load and run (required)")
	RootCmd.Flags().String("node", "", "node id to seed the run from (default: the board's Start nodes)")
	RootCmd.Flags().String("run-id", "", "run id to use (default: a fresh uuid)")
	RootCmd.Flags().Int("concurrency", 0, "per-node in-flight activation limit (default: config.EngineConfig.ConcurrencyLimit)")

	viper.BindPFlag("app", RootCmd.Flags().Lookup("app"))
	viper.BindPFlag("board", RootCmd.Flags().Lookup("board"))
	viper.BindPFlag("node", RootCmd.Flags().Lookup("node"))
	viper.BindPFlag("run_id", RootCmd.Flags().Lookup("run-id"))
	viper.BindPFlag("concurrency", RootCmd.Flags().Lookup("concurrency"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".flowengine")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func runFlow(cmd *cobra.Command, args []string) error {
	appID := viper.GetString("app")
	boardID := viper.GetString("board")
	if appID == "" || boardID == "" {
		return fmt.Errorf("flowengine: --app and --board are required")
	}

	cfg := config.LoadEngineConfig("FLOWENGINE")
	if cfg.Service.Name == "" {
		cfg.Service.Name = "flowengine"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flowengine: invalid configuration: %w", err)
	}

	runID := viper.GetString("run_id")
	if runID == "" {
		runID = uuid.NewString()
	}
	if c := viper.GetInt("concurrency"); c > 0 {
		cfg.ConcurrencyLimit = c
	}

	log := flowlog.New(cfg.Service.LogLevel, cfg.Service.LogFormat == "json")
	runLog := log.WithField("run_id", runID).WithField("board_id", boardID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			runLog.Warn("received shutdown signal, cancelling run")
			cancel()
		case <-ctx.Done():
		}
	}()

	boards, err := couchstore.New(ctx, cfg.Board.URL, cfg.Board.Database, cfg.Board.Username, cfg.Board.Password)
	if err != nil {
		return fmt.Errorf("flowengine: connect board store: %w", err)
	}
	defer boards.Close()

	b, err := loadBoard(ctx, boards, boardID)
	if err != nil {
		return fmt.Errorf("flowengine: load board %s: %w", boardID, err)
	}

	var objects objectstore.Store
	if cfg.ObjectStoreBucket != "" {
		objects, err = s3store.New(ctx, s3store.Config{
			Bucket:    cfg.ObjectStoreBucket,
			Region:    cfg.ObjectStoreRegion,
			Endpoint:  cfg.ObjectStoreEndpoint,
			AccessKey: cfg.ObjectStoreAccessKey,
			SecretKey: cfg.ObjectStoreSecretKey,
		})
		if err != nil {
			return fmt.Errorf("flowengine: connect object store: %w", err)
		}
	} else {
		runLog.Info("no object store bucket configured, run result archiving disabled")
	}

	var traceStore tracelog.Store
	var logSink execctx.LogSink
	if cfg.TracePostgresDSN != "" {
		pg, err := pgstore.New(ctx, cfg.TracePostgresDSN)
		if err != nil {
			return fmt.Errorf("flowengine: connect trace store: %w", err)
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx, runID, boardID); err != nil {
			return fmt.Errorf("flowengine: create trace schema: %w", err)
		}
		traceStore = pg
		logSink = tracelog.NewStoreSink(runID, pg)
		log.AddHook(flowlog.NewStoreHook(pg, 100, 5*time.Second))
	} else {
		runLog.Info("no trace store DSN configured, logging to memory only")
		logSink = tracelog.NewRecorder(runID)
	}

	var cache execctx.Cache
	if cfg.Cache.URL != "" {
		c, err := rediscache.New(rediscache.Config{
			Addr:     cfg.Cache.URL,
			Password: cfg.Cache.Password,
			Prefix:   cfg.Service.Name,
		})
		if err != nil {
			runLog.WithError(err).Warn("cache unavailable, continuing without it")
		} else {
			defer c.Close()
			cache = c
		}
	}

	bus := runevent.NewInProcessBus()

	reg := registry.New()
	nodekit.Register(reg)

	if err := registry.Fixate(b, reg); err != nil {
		return fmt.Errorf("flowengine: fixate board %s: %w", boardID, err)
	}

	if objects != nil {
		if saveErr := board.Save(ctx, objects, b); saveErr != nil {
			runLog.WithError(saveErr).Warn("failed to archive fixated board snapshot")
		}
	}

	seeds, err := seedNodeIDs(b, viper.GetString("node"))
	if err != nil {
		return fmt.Errorf("flowengine: %w", err)
	}

	g, err := graph.Build(b, reg, graph.RunPayload{NodeID: viper.GetString("node")}, graph.BuildOptions{PrecomputeDependencies: true})
	if err != nil {
		return fmt.Errorf("flowengine: build execution graph: %w", err)
	}

	run := scheduler.NewRun(runID, g, cache, logSink, bus, bus, cfg.ConcurrencyLimit)
	runLog.WithField("seeds", seeds).Info("starting run")

	started := time.Now()
	status, runErr := run.Run(ctx, seeds, 0)
	elapsed := time.Since(started)

	runLog.WithField("status", status).WithField("elapsed", elapsed).Info("run finished")

	if objects != nil {
		if archiveErr := archiveResult(ctx, objects, appID, boardID, runID, status, runErr, elapsed); archiveErr != nil {
			runLog.WithError(archiveErr).Warn("failed to archive run result")
		}
	}

	if cfg.MeteringDynamoTable != "" && traceStore != nil {
		if meterErr := meterRun(ctx, cfg, traceStore, runID); meterErr != nil {
			runLog.WithError(meterErr).Warn("failed to record metering data")
		}
	}

	if runErr != nil {
		return fmt.Errorf("flowengine: run %s failed: %w", runID, runErr)
	}
	return nil
}

func loadBoard(ctx context.Context, store boardstore.Store, boardID string) (*board.Board, error) {
	doc, err := store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc.Doc)
	if err != nil {
		return nil, fmt.Errorf("marshal board document: %w", err)
	}
	b := &board.Board{}
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, fmt.Errorf("unmarshal board document: %w", err)
	}
	return b, nil
}

// seedNodeIDs resolves the run's entry points: the named node if one was
// given, otherwise every Start node the board declares.
func seedNodeIDs(b *board.Board, nodeID string) ([]string, error) {
	if nodeID != "" {
		if _, ok := b.Nodes[nodeID]; !ok {
			return nil, fmt.Errorf("node %s not found on board %s", nodeID, b.ID)
		}
		return []string{nodeID}, nil
	}
	starts := b.StartNodes()
	if len(starts) == 0 {
		return nil, fmt.Errorf("board %s has no Start nodes and no --node was given", b.ID)
	}
	ids := make([]string, 0, len(starts))
	for _, n := range starts {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

type runResult struct {
	RunID    string    `json:"run_id"`
	AppID    string    `json:"app_id"`
	BoardID  string    `json:"board_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Elapsed  string    `json:"elapsed"`
	FinishAt time.Time `json:"finish_at"`
}

func archiveResult(ctx context.Context, objects objectstore.Store, appID, boardID, runID string, status scheduler.Status, runErr error, elapsed time.Duration) error {
	res := runResult{
		RunID:    runID,
		AppID:    appID,
		BoardID:  boardID,
		Status:   string(status),
		Elapsed:  elapsed.String(),
		FinishAt: time.Now(),
	}
	if runErr != nil {
		res.Error = runErr.Error()
	}
	body, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return objects.Put(ctx, objectstore.RunResultPath(appID, boardID, runID), body)
}

func meterRun(ctx context.Context, cfg config.EngineConfig, store tracelog.Store, runID string) error {
	sink, err := dynamostore.New(ctx, cfg.MeteringDynamoTable, cfg.MeteringTTL)
	if err != nil {
		return err
	}
	traces, err := store.Traces(runID)
	if err != nil {
		return err
	}
	for _, tr := range traces {
		if err := sink.RecordTrace(ctx, tr); err != nil {
			return err
		}
	}
	return nil
}

