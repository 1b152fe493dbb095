package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/npc"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/roster"
	"github.com/zeusync/arena/internal/server"
)

// ServerSet builds a *server.Server from the process configuration.
var ServerSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideServerConfig,
	ProvideRosterTable,
	ProvideBrainConfig,
	bus.New,
	server.NewServer,
)

// ProvideLogger returns the process logger; the cleanup flushes it.
func ProvideLogger(cfg config.Config) (*log.Logger, func()) {
	logger := log.Provide(cfg.LogLevel)
	return logger, func() { _ = logger.Sync() }
}

func ProvideServerConfig(cfg config.Config) server.Config {
	sc := server.DefaultServerConfig()
	sc.ListenAddr = cfg.ListenAddr
	sc.ShutdownTimeout = cfg.ShutdownTimeout
	sc.MaxClients = cfg.MaxClients
	sc.Seed = cfg.ResolveSeed()
	sc.RosterSize = cfg.RosterSize
	sc.TeamSize = cfg.TeamSize
	sc.Battle = cfg.Battle()
	return sc
}

func ProvideRosterTable(cfg config.Config) (*roster.Table, error) {
	return roster.LoadTable(cfg.RosterFile)
}

func ProvideBrainConfig(cfg config.Config) (*npc.Config, error) {
	return npc.LoadConfig(cfg.BrainFile)
}
