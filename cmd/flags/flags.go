// Package flags bundles the CLI flags shared by the service binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/attestd/device-attestation-backend/common"
	"github.com/attestd/device-attestation-backend/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var TrustedRootFlag = &cli.StringFlag{
	Name:     "trusted-root",
	Required: true,
	Usage:    "path to the PEM-encoded trusted attestation root certificate",
}

var IssuerNameFlag = &cli.StringFlag{
	Name:     "issuer-name",
	Required: true,
	Usage:    "expected issuer common name on attestation leaf certificates",
}

var MaxChainLengthFlag = &cli.IntFlag{
	Name:  "max-chain-length",
	Value: 0,
	Usage: "maximum accepted certificate chain length, 0 for the default",
}

var ChallengeTTLFlag = &cli.Int64Flag{
	Name:  "challenge-ttl-seconds",
	Value: 300,
	Usage: "lifetime of issued attestation challenges",
}

var CredentialTTLFlag = &cli.Int64Flag{
	Name:  "credential-ttl-seconds",
	Value: 3600,
	Usage: "lifetime of issued device credentials",
}

var SigningSeedFlag = &cli.StringFlag{
	Name:     "signing-seed",
	Required: true,
	Usage:    "hex-encoded 32-byte master seed for the credential signing key",
}

var IdentityStoreFlag = &cli.StringFlag{
	Name:  "identity-store",
	Value: "mem://",
	Usage: "identity store location URI: mem://, file://, s3:// or vault://",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "attestation-server",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
