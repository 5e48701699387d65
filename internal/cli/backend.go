package cli

import (
	"context"
	"fmt"

	"strafen/internal/backend"
	"strafen/internal/config"
	"strafen/internal/ledger"
	"strafen/internal/log"
)

// OpenLedger builds the configured backend and an engine running on it.
// The caller owns res.Cleanup.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*ledger.Engine, *backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("backend config: %w", err)
	}

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	logger.InfoContext(ctx, "Initialized backend",
		"backend", bcfg.Type.String(),
		"catalog_range", bcfg.CatalogRange,
		"ledger_range", bcfg.LedgerRange)

	return ledger.NewEngine(res.Backend, bcfg.CatalogRange, bcfg.LedgerRange), res, nil
}
