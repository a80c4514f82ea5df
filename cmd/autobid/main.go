package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/autobid/config"
	"github.com/alejandrodnm/autobid/internal/adapters/feed"
	"github.com/alejandrodnm/autobid/internal/adapters/httpapi"
	"github.com/alejandrodnm/autobid/internal/adapters/notify"
	"github.com/alejandrodnm/autobid/internal/adapters/onchain"
	"github.com/alejandrodnm/autobid/internal/adapters/storage"
	"github.com/alejandrodnm/autobid/internal/application/engine"
	"github.com/alejandrodnm/autobid/internal/application/scheduler"
	"github.com/alejandrodnm/autobid/internal/auditlog"
	"github.com/alejandrodnm/autobid/internal/orderstore"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	list := flag.Bool("list", false, "print standing orders and exit")
	showLog := flag.Bool("log", false, "print the audit log and exit")
	importPath := flag.String("import", "", "create orders from a YAML drafts file and exit")
	toggleID := flag.String("toggle", "", "pause/resume the order with this id and exit")
	deleteID := flag.String("delete", "", "delete the order with this id and exit")
	approve := flag.String("approve", "", "approve the spender for this collateral amount and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv, err := storage.NewSQLiteKV(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer kv.Close()
	state := storage.NewStateStore(kv)

	console := notify.NewConsole()
	audit := auditlog.New(auditlog.Config{
		Capacity:  cfg.Engine.AuditLogCapacity,
		DedupSize: cfg.Engine.NotificationCache,
	}, state, console)
	if err := audit.Load(ctx); err != nil {
		slog.Error("failed to load audit log", "err", err)
		os.Exit(1)
	}

	orders := orderstore.New(state, audit)
	orders.SetDecimals(cfg.Chain.Decimals)
	if err := orders.Load(ctx); err != nil {
		slog.Error("failed to load orders", "err", err)
		os.Exit(1)
	}

	api := httpapi.NewClient(httpapi.Config{
		RelayBase:   cfg.API.RelayBase,
		CatalogURL:  cfg.API.GraphQLURL,
		GeofenceURL: cfg.API.GeofenceURL,
	})

	switch {
	case *list:
		console.PrintOrders(ctx, orders.Snapshot(), httpapi.NewCatalog(api))
		return
	case *showLog:
		console.PrintLog(audit.Entries())
		return
	case *importPath != "":
		exitOn(importDrafts(ctx, orders, *importPath))
		return
	case *toggleID != "":
		o, err := orders.ToggleStatus(ctx, *toggleID)
		exitOn(err)
		fmt.Printf("%s is now %s\n", orders.Label(o), o.Status)
		return
	case *deleteID != "":
		exitOn(orders.Delete(ctx, *deleteID))
		return
	case *approve != "":
		exitOn(runApprove(ctx, cfg, *approve))
		return
	}

	if err := run(ctx, cfg, orders, audit, api); err != nil {
		slog.Error("autobid exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("autobid stopped cleanly")
}

// run arranca el engine y el scheduler hasta SIGINT/SIGTERM.
func run(ctx context.Context, cfg *config.Config, orders *orderstore.Store, audit *auditlog.Log, api *httpapi.Client) error {
	if cfg.Chain.PrivateKey == "" {
		return fmt.Errorf("AUTOBID_PRIVATE_KEY is not set")
	}
	if cfg.API.FeedWSURL == "" {
		return fmt.Errorf("api.feed_ws_url is not set")
	}

	key, err := onchain.ParsePrivateKey(cfg.Chain.PrivateKey)
	if err != nil {
		return err
	}
	signer := onchain.NewLocalSigner(key, onchain.Domain{
		Name:              cfg.Chain.EIP712Name,
		Version:           cfg.Chain.EIP712Version,
		ChainID:           cfg.Chain.ChainID,
		VerifyingContract: cfg.Chain.VerifyingContract,
	})

	token, err := onchain.Dial(cfg.Chain.RPCURL, cfg.Chain.CollateralToken, cfg.Chain.ChainID)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		Spender:         cfg.Chain.Spender,
		Decimals:        cfg.Chain.Decimals,
		BidExpiry:       cfg.BidExpiry(),
		SubmitTimeout:   cfg.SubmitTimeout(),
		MessageIDs:      cfg.Engine.MessageIDCache,
		ProcessedBids:   cfg.Engine.ProcessedBidCache,
		AuctionContexts: cfg.Engine.AuctionCache,
	}, orders, audit, token, httpapi.NewGeofence(api), signer, httpapi.NewRelay(api))
	if err != nil {
		return err
	}

	slog.Info("autobid starting",
		"account", signer.Address(),
		"orders", orders.Len(),
		"feed", cfg.API.FeedWSURL,
		"chain_id", cfg.Chain.ChainID,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.New(orders, cfg.AutoPauseInterval()).Run(gctx)
	})
	g.Go(func() error {
		return eng.Run(gctx, feed.NewClient(feed.Config{URL: cfg.API.FeedWSURL}))
	})
	return g.Wait()
}

func exitOn(err error) {
	if err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
