package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campwatch/pkg/api"
	"campwatch/pkg/chain"
	"campwatch/pkg/config"
	"campwatch/pkg/metrics"
	"campwatch/pkg/render"
	"campwatch/pkg/server"
	"campwatch/pkg/theme"
	"campwatch/pkg/tui"
	"campwatch/pkg/watcher"

	"github.com/charmbracelet/log"
)

// Version should be set during build
var Version = "dev"

func main() {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	dryRunFlag := flag.Bool("dry-run", false, "Perform a trial run with no changes made")
	configFlag := flag.String("config", "", "Path to configuration file")
	contractFlag := flag.String("contract", "", "Token contract address to watch (overrides config)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	portFlag := flag.Int("port", 8080, "Port for API server")
	initFlag := flag.Bool("init", false, "Write a default configuration file and exit")
	restoreFlag := flag.Bool("restore", false, "Restore the most recent configuration backup and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("campwatch version %s\n", Version)
		os.Exit(0)
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		os.Exit(1)
	}

	if *initFlag {
		if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
			fmt.Printf("Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		os.Exit(0)
	}

	if *restoreFlag {
		if err := config.RestoreLastBackup(path); err != nil {
			fmt.Printf("Failed to restore backup: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Restored latest backup of %s\n", path)
		os.Exit(0)
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		os.Exit(1)
	}

	if *testFlag || *testLongFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, code := runConfigTest(ctx, cfg, path, testOptions{
			JSON:     *jsonFlag,
			DryRun:   *dryRunFlag,
			Contract: *contractFlag,
		}, os.Stdout)
		cancel()
		os.Exit(code)
	}

	if *contractFlag != "" {
		cfg.ContractAddress = *contractFlag
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		fmt.Printf("Error: invalid configuration at %s: %s\n", path, problems[0])
		fmt.Println("Run with -init to write a default configuration, or -t to test it.")
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(*serverFlag, cfg.LogFile)
	if err != nil {
		fmt.Printf("Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger, *serverFlag, *portFlag); err != nil {
		logger.Error("exiting", "err", err)
		closeLog()
		os.Exit(1)
	}
}

// newLogger logs to stderr in server mode. The dashboard owns the terminal,
// so TUI runs log to a file instead.
func newLogger(serverMode bool, logFile string) (*log.Logger, func(), error) {
	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "campwatch",
	}
	if serverMode {
		return log.NewWithOptions(os.Stderr, opts), func() {}, nil
	}

	if logFile == "" {
		logFile = config.DefaultLogPath()
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return log.NewWithOptions(f, opts), func() { _ = f.Close() }, nil
}

func run(cfg config.Config, logger *log.Logger, serverMode bool, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics("campwatch")
	client := api.NewClient(cfg, api.WithLogger(logger), api.WithMetrics(m))

	var reader *chain.BalanceReader
	if cfg.SolanaRPCURL != "" {
		headers := map[string]string{}
		if h := cfg.ProxyHeader; h.Name != "" {
			headers[h.Name] = h.Value
		}
		reader = chain.NewBalanceReader(cfg.SolanaRPCURL, headers)
		defer reader.Close()
	}

	board := render.NewBoard()
	w := watcher.New(watcher.NewRealDataSource(client, reader, logger), board, watcher.Options{
		ContractAddress: cfg.ContractAddress,
		WalletAddress:   cfg.WalletAddress,
		PollInterval:    cfg.PollInterval(),
		DefaultPrice:    cfg.DefaultPrice,
		ExplorerURL:     cfg.ExplorerURL,
		LaunchpadURL:    cfg.LaunchpadURL,
		Logger:          logger,
		Metrics:         m,
	})
	defer w.Close()

	themePath := cfg.ThemePath
	if themePath == "" {
		themePath = config.DefaultStatePath()
	}
	th := theme.NewController(theme.NewFileStore(themePath), board, logger)
	th.Init()

	w.StartClock(ctx)

	if serverMode {
		srv := server.NewServer(w, board, th, m, logger)
		go func() {
			if err := w.Load(ctx); err != nil && !errors.Is(err, watcher.ErrStale) {
				logger.Error("initial load failed", "err", err)
			}
		}()
		logger.Info("running in server mode", "port", port, "contract", cfg.ContractAddress)
		return srv.Start(ctx, port)
	}

	return tui.Start(w, tui.Options{
		Board:  board,
		Theme:  th,
		Config: cfg,
		Logger: logger,
	}, Version)
}
