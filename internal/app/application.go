package app

import (
	"context"

	"github.com/blackhole-labs/burn-engine/internal/app/domain/burn"
	"github.com/blackhole-labs/burn-engine/internal/app/ledger"
	burnersvc "github.com/blackhole-labs/burn-engine/internal/app/services/burner"
	proofsvc "github.com/blackhole-labs/burn-engine/internal/app/services/proof"
	reputationsvc "github.com/blackhole-labs/burn-engine/internal/app/services/reputation"
	"github.com/blackhole-labs/burn-engine/internal/app/storage"
	"github.com/blackhole-labs/burn-engine/internal/app/storage/memory"
	"github.com/blackhole-labs/burn-engine/internal/app/system"
	"github.com/blackhole-labs/burn-engine/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	History     storage.HistoryStore
	Leaderboard storage.LeaderboardStore
	Stats       storage.StatsStore
}

// Application ties the engine services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Burner     *burnersvc.Service
	Reputation *reputationsvc.Calculator
	Proofs     *proofsvc.Service
}

// New builds a fully initialised application around the given ledger gateway.
func New(gateway ledger.Gateway, stores Stores, spender string, tokens []burn.Token, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.History == nil {
		stores.History = mem
	}
	if stores.Leaderboard == nil {
		stores.Leaderboard = mem
	}
	if stores.Stats == nil {
		stores.Stats = mem
	}

	manager := system.NewManager()

	burnerService := burnersvc.New(gateway, stores.History, stores.Leaderboard, stores.Stats, spender, tokens, log)
	calc := reputationsvc.New(log)
	proofService := proofsvc.New(gateway, log)

	if err := manager.Register(burnerService); err != nil {
		return nil, err
	}
	if err := manager.Register(system.NoopService{ServiceName: "reputation"}); err != nil {
		return nil, err
	}
	if err := manager.Register(system.NoopService{ServiceName: "proofs"}); err != nil {
		return nil, err
	}

	return &Application{
		manager:    manager,
		log:        log,
		Burner:     burnerService,
		Reputation: calc,
		Proofs:     proofService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
