// Copyright 2025 Shadow Atlas Contributors
//
// shadow-atlas is a thin operator surface over the build pipeline's
// snapshot and distribution layers. It does not run ingestion itself —
// that requires provider-specific network transports that live outside
// this module — but it lets an operator inspect, diff, publish, and
// offline-verify the snapshots a build already produced.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/shadowatlas/core/internal/authority"
	"github.com/shadowatlas/core/internal/cas"
	"github.com/shadowatlas/core/internal/cas/azblob"
	"github.com/shadowatlas/core/internal/changedetector"
	"github.com/shadowatlas/core/internal/config"
	"github.com/shadowatlas/core/internal/distributor"
	"github.com/shadowatlas/core/internal/geoid"
	"github.com/shadowatlas/core/internal/kv"
	"github.com/shadowatlas/core/internal/orchestrator"
	"github.com/shadowatlas/core/internal/payload"
	"github.com/shadowatlas/core/internal/snapshot"
	"github.com/shadowatlas/core/internal/snapshotstore/filestore"
	"github.com/shadowatlas/core/internal/snapshotstore/relational"
	"github.com/shadowatlas/core/internal/validator"
)

// Exit codes per the operator contract: 0 success, 1 success with
// warnings, 2 validation halt, 3 configuration error, 4 network error, 5
// data-integrity failure.
const (
	exitOK                = 0
	exitWarnings          = 1
	exitHaltValidation    = 2
	exitHaltConfiguration = 3
	exitHaltNetwork       = 4
	exitHaltDataIntegrity = 5
)

var logger = log.New(os.Stderr, "[shadow-atlas] ", log.LstdFlags)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitHaltConfiguration
	}

	switch args[0] {
	case "snapshot":
		return runSnapshot(args[1:])
	case "publish":
		return runPublish(args[1:])
	case "verify":
		return runVerify(args[1:])
	case "config":
		return runConfig(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return exitHaltConfiguration
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  shadow-atlas snapshot ls     -config <path>
  shadow-atlas snapshot get    -config <path> -version <n>
  shadow-atlas snapshot diff   -config <path> -a <n> -b <n>
  shadow-atlas publish         -config <path> -version <n> -payload <file>
  shadow-atlas verify          -payload <file>
  shadow-atlas config check    -config <path>`)
}

func loadStorage(cfgPath string) (snapshot.Storage, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Snapshot.Backend {
	case "relational":
		store, err := relational.Open(cfg.Snapshot.DatabaseURL)
		if err != nil {
			return nil, cfg, fmt.Errorf("opening relational snapshot store: %w", err)
		}
		if err := store.Migrate(context.Background()); err != nil {
			return nil, cfg, fmt.Errorf("migrating relational snapshot store: %w", err)
		}
		return store, cfg, nil
	case "file":
		store, err := filestore.Open(cfg.Snapshot.Directory)
		if err != nil {
			return nil, cfg, fmt.Errorf("opening file snapshot store: %w", err)
		}
		return store, cfg, nil
	default:
		return nil, cfg, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}

func loadCAS(cfg *config.Config) (cas.Store, error) {
	switch cfg.Distributor.Backend {
	case "azblob":
		return azblob.Open(cfg.Distributor.ConnectionString, cfg.Distributor.Container)
	case "memory":
		return cas.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown distributor backend %q", cfg.Distributor.Backend)
	}
}

func runSnapshot(args []string) int {
	if len(args) == 0 {
		usage()
		return exitHaltConfiguration
	}

	sub := args[0]
	fs := flag.NewFlagSet("snapshot "+sub, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to YAML config")
	version := fs.Int64("version", 0, "snapshot version")
	a := fs.Int64("a", 0, "first version to diff")
	b := fs.Int64("b", 0, "second version to diff")
	if err := fs.Parse(args[1:]); err != nil {
		return exitHaltConfiguration
	}
	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "-config is required")
		return exitHaltConfiguration
	}

	store, _, err := loadStorage(*cfgPath)
	if err != nil {
		logger.Printf("configuration error: %v", err)
		return exitHaltConfiguration
	}

	ctx := context.Background()
	switch sub {
	case "ls":
		versions, err := store.List(ctx)
		if err != nil {
			logger.Printf("listing snapshots: %v", err)
			return exitHaltNetwork
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return exitOK
	case "get":
		rec, err := store.Get(ctx, *version)
		if errors.Is(err, snapshot.ErrNotFound) {
			logger.Printf("no such snapshot version %d", *version)
			return exitHaltConfiguration
		}
		if err != nil {
			logger.Printf("fetching snapshot: %v", err)
			return exitHaltNetwork
		}
		return printJSON(rec)
	case "diff":
		manager := snapshot.New(store)
		diff, err := manager.Diff(ctx, *a, *b)
		if err != nil {
			logger.Printf("diffing snapshots: %v", err)
			return exitHaltNetwork
		}
		return printJSON(diff)
	default:
		fmt.Fprintf(os.Stderr, "unknown snapshot subcommand %q\n", sub)
		usage()
		return exitHaltConfiguration
	}
}

func runPublish(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to YAML config")
	version := fs.Int64("version", 0, "snapshot version to attach the published payload to")
	payloadPath := fs.String("payload", "", "path to the canonical committed payload JSON")
	if err := fs.Parse(args); err != nil {
		return exitHaltConfiguration
	}
	if *cfgPath == "" || *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "-config and -payload are required")
		return exitHaltConfiguration
	}

	store, cfg, err := loadStorage(*cfgPath)
	if err != nil {
		logger.Printf("configuration error: %v", err)
		return exitHaltConfiguration
	}
	casStore, err := loadCAS(cfg)
	if err != nil {
		logger.Printf("configuration error: %v", err)
		return exitHaltConfiguration
	}

	raw, err := os.ReadFile(*payloadPath)
	if err != nil {
		logger.Printf("reading payload: %v", err)
		return exitHaltConfiguration
	}

	manager := snapshot.New(store)
	dist := distributor.New(casStore, manager)

	contentID, err := dist.Publish(context.Background(), *version, raw)
	if err != nil {
		logger.Printf("publishing snapshot: %v", err)
		return exitHaltNetwork
	}
	fmt.Println(contentID)
	return exitOK
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	payloadPath := fs.String("payload", "", "path to the canonical committed payload JSON")
	if err := fs.Parse(args); err != nil {
		return exitHaltConfiguration
	}
	if *payloadPath == "" {
		fmt.Fprintln(os.Stderr, "-payload is required")
		return exitHaltConfiguration
	}

	raw, err := os.ReadFile(*payloadPath)
	if err != nil {
		logger.Printf("reading payload: %v", err)
		return exitHaltConfiguration
	}

	var doc payload.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Printf("parsing payload: %v", err)
		return exitHaltDataIntegrity
	}

	ok, err := payload.Verify(&doc)
	if err != nil || !ok {
		logger.Printf("verification failed: %v", err)
		return exitHaltDataIntegrity
	}

	fmt.Println("ok:", doc.GlobalRoot)
	return exitOK
}

// runConfig dispatches the "config" subcommands.
func runConfig(args []string) int {
	if len(args) == 0 {
		usage()
		return exitHaltConfiguration
	}
	switch args[0] {
	case "check":
		return runConfigCheck(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand %q\n", args[0])
		usage()
		return exitHaltConfiguration
	}
}

// runConfigCheck loads a YAML config and wires every section into the real
// component it configures (orchestrator, validator, authority resolver,
// change-detector cache), so a misconfigured section fails here rather than
// silently going unused during a real build. It performs no ingestion and
// opens no network connection; the checkpoint/cache store it opens is the
// same embedded cometbft-db instance a real build would use.
func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return exitHaltConfiguration
	}
	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "-config is required")
		return exitHaltConfiguration
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Printf("loading config: %v", err)
		return exitHaltConfiguration
	}
	if err := cfg.Validate(); err != nil {
		logger.Printf("invalid config: %v", err)
		return exitHaltConfiguration
	}

	registry, err := geoid.LoadFile(cfg.Validator.GeoidRegistryPath)
	if err != nil {
		logger.Printf("loading GEOID registry: %v", err)
		return exitHaltConfiguration
	}
	if _, err := validator.New(registry, cfg.ValidatorConfig()); err != nil {
		logger.Printf("wiring validator: %v", err)
		return exitHaltConfiguration
	}
	authority.New(cfg.AuthorityConfig())

	store, err := kv.Open("shadow-atlas", cfg.ChangeCache.KVPath, dbm.BackendType(cfg.ChangeCache.KVBackend))
	if err != nil {
		logger.Printf("opening checkpoint/cache store: %v", err)
		return exitHaltConfiguration
	}
	defer store.Close()

	if _, err := orchestrator.New(store, cfg.OrchestratorConfig()); err != nil {
		logger.Printf("wiring orchestrator: %v", err)
		return exitHaltConfiguration
	}
	changedetector.New(changedetector.NewCache(store), changedetector.WithTTLPolicy(cfg.ChangeCacheTTLPolicy()))

	fmt.Println("ok: configuration wires a complete pipeline")
	return exitOK
}

func printJSON(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Printf("encoding output: %v", err)
		return exitHaltDataIntegrity
	}
	return exitOK
}
