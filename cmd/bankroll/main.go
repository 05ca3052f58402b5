package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/bankroll/config"
	"github.com/alejandrodnm/bankroll/internal/adapters/ledger"
	"github.com/alejandrodnm/bankroll/internal/adapters/notify"
	"github.com/alejandrodnm/bankroll/internal/adapters/oracle"
	"github.com/alejandrodnm/bankroll/internal/adapters/storage"
	"github.com/alejandrodnm/bankroll/internal/application/exchange"
	"github.com/alejandrodnm/bankroll/internal/domain"
)

const usage = `usage: bankroll [flags] <command>

commands:
  serve      HTTP API + oracle signer + payout dispatcher (default)
  status     print the bankroll state and exit
  simulate   Monte-Carlo check of the capital requirement
  keygen     generate a signer key pair

flags:
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "serve"
	}
	args := flag.Args()
	if len(args) > 0 {
		args = args[1:]
	}

	// keygen no necesita configuración ni base de datos.
	if cmd == "keygen" {
		if err := runKeygen(os.Stdout); err != nil {
			slog.Error("keygen failed", "err", err)
			os.Exit(1)
		}
		return
	}

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

	switch cmd {
	case "simulate":
		err = runSimulate(ctx, cfg, args)
	case "serve", "status":
		var a *app
		a, err = build(cfg)
		if err != nil {
			break
		}
		defer a.store.Close()
		if cmd == "status" {
			err = runStatus(ctx, a)
		} else {
			err = runServe(ctx, cfg, a)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("bankroll exited with error", "command", cmd, "err", err)
		os.Exit(1)
	}
}

// app agrupa los componentes cableados.
type app struct {
	store  *storage.SQLiteStorage
	ledger *ledger.Ledger
	oracle *oracle.Oracle
	ex     *exchange.Exchange
}

// build abre el store y conecta ledger, oráculo y exchange: el exchange
// recibe las transferencias a su cuenta y las entregas de aleatoriedad.
func build(cfg *config.Config) (*app, error) {
	exCfg, err := cfg.ExchangeSettings()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}

	l := ledger.New()
	o := oracle.New(store, domain.Account(cfg.Oracle.Account), domain.Account(cfg.Oracle.Admin))
	ex, err := exchange.New(exCfg, store, l, o, notify.NewAudit(nil, exCfg.Asset))
	if err != nil {
		store.Close()
		return nil, err
	}
	l.Register(exCfg.Account, ex)
	o.Register(exCfg.Account, ex)

	slog.Info("bankroll ready",
		"account", exCfg.Account,
		"asset", exCfg.Asset,
		"share_mode", exCfg.ShareMode,
		"oracle", cfg.Oracle.Account,
		"dsn", cfg.Storage.DSN,
	)
	return &app{store: store, ledger: l, oracle: o, ex: ex}, nil
}

func runStatus(ctx context.Context, a *app) error {
	snap, err := a.ex.Status(ctx)
	if err != nil {
		return err
	}
	notify.NewConsole().PrintStatus(snap)
	return nil
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
