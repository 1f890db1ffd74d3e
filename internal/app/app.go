package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"savings-vault-engine/internal/config"
	"savings-vault-engine/internal/faucet"
	"savings-vault-engine/internal/ledger"
	"savings-vault-engine/internal/plan"
	"savings-vault-engine/internal/poller"
	"savings-vault-engine/internal/position"
	"savings-vault-engine/internal/service"
	"savings-vault-engine/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// engine bundles the wired lifecycle components behind one vault client.
type engine struct {
	client    *ledger.EVMClient
	plans     *plan.Registry
	positions *position.Ledger
	limiter   *faucet.RateLimiter
	svc       *service.Service
}

func (a *App) newLedgerClient() (*ledger.EVMClient, error) {
	cfg := a.Config.Ledger
	return ledger.NewEVMClient(ledger.EVMOptions{
		RPCURL:              cfg.RPCURL,
		VaultAddress:        cfg.VaultAddress,
		TokenAddress:        cfg.TokenAddress,
		OwnerAddress:        cfg.OwnerAddress,
		PrivateKey:          cfg.PrivateKey,
		ChainID:             cfg.ChainID,
		RequestTimeout:      cfg.RequestTimeout,
		ConfirmTimeout:      cfg.ConfirmTimeout,
		ConfirmPollInterval: cfg.ConfirmPollInterval,
		GasLimit:            cfg.GasLimit,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newEngine wires the deposit lifecycle engine around a vault client.
func (a *App) newEngine(store *storage.Store) (*engine, error) {
	client, err := a.newLedgerClient()
	if err != nil {
		return nil, err
	}

	penaltyFloor, err := a.parseAmount(a.Config.Penalty.MinFloor)
	if err != nil {
		return nil, fmt.Errorf("penalty.min_floor: %w", err)
	}
	claimAmount, err := a.parseAmount(a.Config.Faucet.ClaimAmount)
	if err != nil {
		return nil, fmt.Errorf("faucet.claim_amount: %w", err)
	}

	plans := plan.NewRegistry()

	positions := position.NewLedger(position.Options{
		Gateway: client,
		Plans:   plans,
		Penalty: position.PenaltyTerms{
			RateBps:  a.Config.Penalty.RateBps,
			MinFloor: penaltyFloor,
		},
	}, a.Logger)

	limiter := faucet.NewRateLimiter(faucet.Options{
		Gateway:     client,
		Cooldown:    a.Config.Faucet.Cooldown,
		ClaimAmount: claimAmount,
	}, a.Logger)

	opts := service.Options{
		Owner:      client.OwnerAddress(),
		PlanIDs:    a.Config.Plans.IDs,
		Positions:  positions,
		Plans:      plans,
		PlanSource: client,
		Limiter:    limiter,
		LockKey:    a.Config.Poller.AdvisoryLockKey,
	}
	if store != nil {
		opts.Snapshots = store
		opts.FaucetCache = store
		opts.Locker = store
	}

	return &engine{
		client:    client,
		plans:     plans,
		positions: positions,
		limiter:   limiter,
		svc:       service.New(opts, a.Logger),
	}, nil
}

// Run executes the long-running reconciliation service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; snapshot cache disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	eng, err := a.newEngine(store)
	if err != nil {
		return err
	}

	if err := eng.svc.SyncPlans(ctx); err != nil {
		return err
	}

	refresher := poller.New(poller.Options{
		Interval:        a.Config.Poller.Interval,
		AlignToInterval: a.Config.Poller.AlignToInterval,
		StartupDelay:    a.Config.Poller.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Str("owner", eng.client.OwnerAddress()).Msg("starting reconciliation service")
	err = eng.svc.RunWith(ctx, refresher)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("reconciliation service stopped")
	return nil
}

// parseAmount converts a human token amount string into smallest units.
func (a *App) parseAmount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	scaled := d.Shift(a.Config.Ledger.TokenDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return decimal.Decimal{}, fmt.Errorf("amount %q has more precision than the token supports", value)
	}
	return scaled.Truncate(0), nil
}

// formatAmount renders smallest units back into a human token amount.
func (a *App) formatAmount(d decimal.Decimal) string {
	return d.Shift(-a.Config.Ledger.TokenDecimals).String()
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ProjectOptions hold parameters for the accrual projection export.
type ProjectOptions struct {
	Amount    string
	PlanID    uint32
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
