// Package bootstrap assembles the two deliverables of the SDK: a configured
// AA plugin usecase on the plugin side, and the simulator app on the host
// side.
package bootstrap

import (
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	aaoutadapter "gatekit/internal/modules/aa/adapter/out"
	"gatekit/internal/modules/aa/adapter/out/rpc"
	aain "gatekit/internal/modules/aa/port/in"
	aaservice "gatekit/internal/modules/aa/service"
	aausecase "gatekit/internal/modules/aa/usecase"
	siminadapter "gatekit/internal/modules/simulator/adapter/in"
	simoutadapter "gatekit/internal/modules/simulator/adapter/out"
	simout "gatekit/internal/modules/simulator/port/out"
	simservice "gatekit/internal/modules/simulator/service"
	simusecase "gatekit/internal/modules/simulator/usecase"
	"gatekit/internal/platform/clock"
	"gatekit/internal/platform/configuration"
	"gatekit/internal/platform/logging"
	"gatekit/internal/platform/proxyenv"
)

// AuthenticatorFactory builds the plugin's Authenticator once the
// configuration is available.
type AuthenticatorFactory func(cfg *configuration.Configuration, logger hclog.Logger) (aaservice.Authenticator, error)

// PluginSpec describes one concrete plugin built on the SDK.
type PluginSpec struct {
	// Name labels log lines.
	Name string
	// Defaults is design-time INI text layered under the host-supplied
	// configuration.
	Defaults string
	// NewAuthenticator builds the decision logic. When nil the plugin
	// accepts everything the pipeline lets through.
	NewAuthenticator AuthenticatorFactory
}

// NewPlugin assembles the AA usecase for one Configure call: parse the
// configuration, wire the adapters it enables and hand the result to the
// orchestrator.
func NewPlugin(configText string, spec PluginSpec) (aain.PluginUsecase, error) {
	var cfg *configuration.Configuration
	provider := func() (configuration.CredentialStore, error) {
		return aaoutadapter.OpenFileCredentialStore(cfg)
	}
	opts := []configuration.Option{configuration.WithCredentialStore(provider)}
	if spec.Defaults != "" {
		opts = append(opts, configuration.WithDefaults(spec.Defaults))
	}
	cfg, err := configuration.New(configText, opts...)
	if err != nil {
		return nil, err
	}
	if err := proxyenv.Apply(cfg); err != nil {
		return nil, err
	}
	logger, err := logging.New(spec.Name, cfg)
	if err != nil {
		return nil, err
	}

	directory, err := aaoutadapter.NewLDAPDirectoryFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	authCache, err := aaoutadapter.NewAuthCacheFromConfig(cfg, clock.SystemClock{})
	if err != nil {
		return nil, err
	}
	limiter, err := aaoutadapter.NewConnectionLimiterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var authenticator aaservice.Authenticator = aaservice.BaseAuthenticator{}
	if spec.NewAuthenticator != nil {
		authenticator, err = spec.NewAuthenticator(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("build authenticator: %w", err)
		}
	}

	svc := aaservice.NewAAService(cfg, logger, authenticator, aaservice.Deps{
		Directory:         directory,
		AuthCache:         authCache,
		ConnectionLimiter: limiter,
	})
	return aausecase.NewInteractor(svc), nil
}

// ServePlugin is the entry point of a plugin main: it serves the hook ABI,
// assembling a fresh usecase on every Configure.
func ServePlugin(spec PluginSpec) {
	rpc.Serve(func(configText string) (aain.PluginUsecase, error) {
		return NewPlugin(configText, spec)
	})
}

// App is the assembled host-side simulator.
type App struct {
	SimulatorCLI siminadapter.CLIHandler

	audit simout.AuditSink
}

// NewApp wires the simulator against real plugin binaries. An empty
// auditDBPath discards audit records.
func NewApp(auditDBPath string) (*App, error) {
	logger := hclog.New(&hclog.LoggerOptions{Name: "gatekit"})

	var audit simout.AuditSink = simoutadapter.NoopAuditSink{}
	if auditDBPath != "" {
		var err error
		audit, err = simoutadapter.NewSQLiteAuditSink(auditDBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit db: %w", err)
		}
	}

	hostUC := aausecase.NewHostInteractor(aaoutadapter.NewGRPCHost())
	simUC := simusecase.NewInteractor(simservice.NewSimulatorService(
		hostUC,
		simoutadapter.NewYAMLScenarioStore(),
		audit,
		clock.SystemClock{},
		logger,
	))

	return &App{
		SimulatorCLI: siminadapter.NewCLIHandler(simUC),
		audit:        audit,
	}, nil
}

func (a *App) Close() error {
	return a.audit.Close()
}
