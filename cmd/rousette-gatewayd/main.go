// Command rousette-gatewayd is the standalone entrypoint for the RESTCONF
// gateway: it loads configuration, opens a YANG module, wires the
// in-memory reference datastore engine and starts serving, the way
// serve.go's serveCmd starts its own net/http server but with the
// config/signal-context ceremony of main.go's rootCtx setup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeconf/yang/fc"
	"github.com/freeconf/yang/parser"
	"github.com/freeconf/yang/source"
	"github.com/spf13/cobra"

	restconf "github.com/CESNET/rousette-go"
	"github.com/CESNET/rousette-go/config"
	"github.com/CESNET/rousette-go/datastore"
	"github.com/CESNET/rousette-go/secure"
	"github.com/CESNET/rousette-go/subscribe"
)

var (
	configFile string
	yangDir    string
	yangModule string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rousette-gatewayd",
	Short: "RESTCONF/YANG gateway",
	Long: `rousette-gatewayd serves RESTCONF (RFC 8040) and YANG-Patch (RFC 8072)
over a YANG data tree, with dynamic subscriptions (RFC 8639) delivered as
Server-Sent Events.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML/JSON config file (optional; env vars always apply)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.Flags().StringVar(&yangDir, "yang-dir", ".", "directory to search for YANG modules")
	rootCmd.Flags().StringVar(&yangModule, "yang-module", "", "top-level YANG module to serve (required)")
	rootCmd.MarkFlagRequired("yang-module")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rousette-gatewayd:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	fc.DebugLog(verbose)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ypath := source.Dir(yangDir)
	module, err := parser.LoadModule(ypath, yangModule)
	if err != nil {
		return fmt.Errorf("loading YANG module %q from %q: %w", yangModule, yangDir, err)
	}

	engine := datastore.NewMemEngine(module)
	recovery := secure.NewRole()
	recovery.Grant("", secure.Full)
	engine.GrantRole(subscribe.RecoveryUser, recovery)

	anonymousPolicy := secure.AnonymousPolicyFunc(func() bool {
		return secure.AnonymousAccessAllowed(engine.NacmRuleLists())
	})
	gate := secure.NewGate(secure.DenyAllAuthenticator(0), anonymousPolicy)
	subs := subscribe.NewManager(engine, cfg.InactivityTimeout)

	srv := restconf.NewServer(engine, gate, restconf.SingleModuleLookup(module), subs, nil)
	srv.KeepAlive = cfg.KeepAlive
	srv.MaxEventsPerWake = cfg.MaxEventsPerWake

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fc.Debug.Printf("serving %s on %s", yangModule, cfg.Addr())
		errCh <- srv.ListenAndServe(cfg.Addr())
	}()

	select {
	case <-ctx.Done():
		fc.Debug.Printf("shutting down")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
