package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"prizepool/config"
	"prizepool/core/events"
	"prizepool/core/types"
	"prizepool/gateway"
	"prizepool/gateway/middleware"
	"prizepool/indexer"
	"prizepool/native/lottery"
	"prizepool/native/random"
	"prizepool/native/staking"
	"prizepool/native/token"
	"prizepool/observability/logging"
	"prizepool/storage"
	statestore "prizepool/storage/state"
)

const (
	stakeSymbol  = "STK"
	rewardSymbol = "RWD"
	prizeSymbol  = "PRZ"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PRIZEPOOL_ENV"))
	logger := logging.Setup("prizepoold", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env != "" {
		cfg.Environment = env
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("Failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	store := statestore.NewStore(db)

	vault, err := types.ParseAddress(cfg.VaultAddress)
	if err != nil {
		logger.Error("Invalid vault address", slog.Any("error", err))
		os.Exit(1)
	}
	stakingAuthority, err := resolveAuthority(cfg.Staking.Authority, vault)
	if err != nil {
		logger.Error("Invalid staking authority", slog.Any("error", err))
		os.Exit(1)
	}
	lotteryAuthority, err := resolveAuthority(cfg.Lottery.Authority, vault)
	if err != nil {
		logger.Error("Invalid lottery authority", slog.Any("error", err))
		os.Exit(1)
	}

	stakeLedger := token.NewLedger(stakeSymbol)
	stakeLedger.SetState(store)
	rewardLedger := token.NewLedger(rewardSymbol)
	rewardLedger.SetState(store)
	rewardLedger.SetMinter(vault)
	prizeLedger := token.NewLedger(prizeSymbol)
	prizeLedger.SetState(store)
	prizeLedger.SetMinter(vault)

	hub := gateway.NewHub()
	sinks := []events.Emitter{hub}

	var eventIndexer *indexer.Indexer
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		eventIndexer, err = indexer.Open(dsn, logger)
		if err != nil {
			logger.Error("Failed to open event indexer", slog.Any("error", err))
			os.Exit(1)
		}
		defer eventIndexer.Close()
		sinks = append(sinks, eventIndexer)
	}
	emitter := events.NewMultiEmitter(sinks...)

	stakingEngine := staking.NewEngine(vault)
	stakingEngine.SetState(store)
	stakingEngine.SetStakeToken(stakeLedger.Bind(vault))
	stakingEngine.SetRewardMinter(rewardLedger.Bind(vault))
	stakingEngine.SetAuthority(stakingAuthority)
	stakingEngine.SetEmitter(emitter)

	lotteryEngine := lottery.NewEngine(vault)
	lotteryEngine.SetState(store)
	lotteryEngine.SetEntryToken(rewardLedger.Bind(vault))
	lotteryEngine.SetPrizeToken(prizeLedger.Bind(vault))
	lotteryEngine.SetAuthority(lotteryAuthority)
	lotteryEngine.SetEmitter(emitter)

	service := gateway.NewService(stakingEngine, lotteryEngine, vault, stakeLedger, rewardLedger, prizeLedger)

	src := random.NewLocalSource(randomSeed(cfg), service.Fulfill)
	src.SetLogger(logger)
	if err := src.SetNonceStore(store); err != nil {
		logger.Error("Failed to load randomness nonce", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Lottery.DeliveryDelaySeconds > 0 {
		src.SetDelay(time.Duration(cfg.Lottery.DeliveryDelaySeconds) * time.Second)
	}
	lotteryEngine.SetRandomSource(src)

	if err := seedRewardRate(store, stakingEngine, stakingAuthority, cfg.Staking.RewardRatePerSecond); err != nil {
		logger.Error("Failed to seed reward rate", slog.Any("error", err))
		os.Exit(1)
	}

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		HMACSecret: cfg.Gateway.AuthSecret,
		Issuer:     cfg.Gateway.AuthIssuer,
	})
	var limiter *middleware.RateLimiter
	if cfg.Gateway.RequestsPerMinute > 0 {
		limiter = middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
			Burst:             cfg.Gateway.Burst,
		})
	}

	server := gateway.NewServer(service, hub, logger, auth, limiter, lotteryAuthority)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("Failed to listen", slog.String("address", cfg.ListenAddress), slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		logger.Info("Gateway listening", slog.String("address", listener.Addr().String()), slog.String("environment", cfg.Environment))
		if serveErr := httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("Serve failed", slog.Any("error", serveErr))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	case "bolt", "boltdb":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "state.db"))
	case "memory":
		return storage.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func resolveAuthority(raw string, fallback [20]byte) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return types.ParseAddress(raw)
}

func randomSeed(cfg *config.Config) []byte {
	seed := strings.TrimSpace(cfg.Lottery.RandomSeed)
	if seed == "" {
		seed = "prizepool-local"
	}
	return []byte(seed)
}

// seedRewardRate applies the configured emission rate on first boot. A rate
// already recorded in state wins over the config file so operator changes made
// through the admin endpoint survive restarts.
func seedRewardRate(store *statestore.Store, engine *staking.Engine, authority [20]byte, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	rate, ok := new(big.Int).SetString(raw, 10)
	if !ok || rate.Sign() < 0 {
		return fmt.Errorf("invalid reward rate %q", raw)
	}
	global, err := store.StakingGlobal()
	if err != nil {
		return err
	}
	if global != nil && global.RewardRate.Sign() > 0 {
		return nil
	}
	if rate.Sign() == 0 {
		return nil
	}
	return engine.SetRewardRate(authority, rate)
}
