package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sverrirab/generic-rest/internal/auth"
	"github.com/sverrirab/generic-rest/internal/config"
	"github.com/sverrirab/generic-rest/internal/idgen"
	"github.com/sverrirab/generic-rest/internal/schema"
	"github.com/sverrirab/generic-rest/internal/server"
	"github.com/sverrirab/generic-rest/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may take to finish.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	API       string
	FileName  string
	Token     string
	StrictPut bool
	Addr      string

	// IDs overrides the identifier generator (for testing).
	IDs idgen.Generator

	// OnListen is called with the bound address once the listener is open
	// (for testing with ":0").
	OnListen func(addr net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "serve [field ...]",
		Short: "Start the REST server",
		Long: `Start the REST server for records with the given fields.

Each field token is a name plus optional modifiers joined by "_":
  optional   field may be omitted (default "" or 0)
  required   field must be present (the default)
  int        value is an integer
  str        value is a string (the default)

Without fields the schema is "text count_optional_int help_optional".

Example:
  generic-rest serve -f items.json name age_int_optional
  generic-rest serve -t s3cret -s --api /v1/items -f items.db title`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.API, "api", "a", d.API, "API root")
	cmd.Flags().StringVarP(&opts.FileName, "file-name", "f", "", "file for persistent storage (.json, or .db/.sqlite/.sqlite3)")
	cmd.Flags().StringVarP(&opts.Token, "token", "t", "", "authorization token required for updates (env "+config.TokenEnv+")")
	cmd.Flags().BoolVarP(&opts.StrictPut, "strict-put", "s", false, "only allow PUT on existing records")
	cmd.Flags().StringVar(&opts.Addr, "addr", d.Addr, "listen address")

	return cmd
}

// resolveConfig loads the config file and applies explicitly set flags and
// positional fields on top of it.
func resolveConfig(opts *ServeOptions, fields []string, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.API = opts.API
	}
	if flags.Changed("file-name") {
		cfg.FileName = opts.FileName
	}
	if flags.Changed("token") {
		cfg.Token = opts.Token
	}
	if flags.Changed("strict-put") {
		cfg.StrictPut = opts.StrictPut
	}
	if flags.Changed("addr") {
		cfg.Addr = opts.Addr
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.Verbose
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.Debug
	}
	if len(fields) > 0 {
		cfg.Fields = fields
	}

	cfg.Normalize()
	return cfg, nil
}

func runServe(opts *ServeOptions, fields []string, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts, fields, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	setupLogging(cmd.ErrOrStderr(), cfg.Verbose, cfg.Debug)

	sch, err := schema.Parse(cfg.Fields)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid field list", err)
	}
	for _, f := range sch.Fields() {
		slog.Info("adding field", "field", f.Name, "required", f.Required, "type", f.Type)
	}

	st, err := store.Open(store.Options{
		Path:  cfg.FileName,
		Guard: auth.New(cfg.Token),
		IDs:   opts.IDs,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load data", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	srv := server.New(server.Options{
		API:       cfg.API,
		Store:     st,
		Schema:    sch,
		StrictPut: cfg.StrictPut,
		Debug:     cfg.Debug,
	})

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// The writer outlives ctx so requests still in flight during shutdown
	// get their answer.
	storeCtx, storeCancel := context.WithCancel(context.Background())
	defer storeCancel()
	storeDone := make(chan error, 1)
	go func() { storeDone <- st.Run(storeCtx) }()

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	slog.Info("server starting", "addr", ln.Addr().String(), "api", srv.CollectionPath(),
		"storage", cfg.FileName, "auth", cfg.Token != "", "strict_put", cfg.StrictPut)
	fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on %s%s\n", ln.Addr(), srv.CollectionPath())
	if opts.OnListen != nil {
		opts.OnListen(ln.Addr())
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = WrapExitError(ExitFailure, "server error", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	storeCancel()
	<-storeDone

	slog.Info("server stopped gracefully")
	return runErr
}
