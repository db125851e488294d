// The attestation-server binary serves the device attestation API:
// challenge issuance, attestation verification, and credential issuance
// backed by a pluggable identity store.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/attestd/device-attestation-backend/attestation"
	"github.com/attestd/device-attestation-backend/challenge"
	"github.com/attestd/device-attestation-backend/cmd/flags"
	"github.com/attestd/device-attestation-backend/credential"
	"github.com/attestd/device-attestation-backend/httpserver"
	"github.com/attestd/device-attestation-backend/interfaces"
	"github.com/attestd/device-attestation-backend/registry"
	"github.com/attestd/device-attestation-backend/storage"
)

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.TrustedRootFlag,
	flags.IssuerNameFlag,
	flags.MaxChainLengthFlag,
	flags.ChallengeTTLFlag,
	flags.CredentialTTLFlag,
	flags.SigningSeedFlag,
	flags.IdentityStoreFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "attestation-server",
		Usage:  "Serve the device attestation and credential API",
		Flags:  serverFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
	trustedRootPath := cCtx.String(flags.TrustedRootFlag.Name)
	issuerName := cCtx.String(flags.IssuerNameFlag.Name)
	maxChainLength := cCtx.Int(flags.MaxChainLengthFlag.Name)
	challengeTTL := time.Duration(cCtx.Int64(flags.ChallengeTTLFlag.Name)) * time.Second
	credentialTTL := time.Duration(cCtx.Int64(flags.CredentialTTLFlag.Name)) * time.Second
	signingSeedHex := cCtx.String(flags.SigningSeedFlag.Name)
	identityStoreURI := cCtx.String(flags.IdentityStoreFlag.Name)

	logger := flags.SetupLogger(cCtx)

	// All configuration problems surface here, before the server binds
	// its listeners.
	trustedRootPEM, err := os.ReadFile(trustedRootPath)
	if err != nil {
		return fmt.Errorf("could not read trusted root certificate: %w", err)
	}

	cfg, err := attestation.NewConfig(trustedRootPEM, issuerName, maxChainLength)
	if err != nil {
		return fmt.Errorf("invalid attestation configuration: %w", err)
	}

	signingSeed, err := hex.DecodeString(signingSeedHex)
	if err != nil {
		return fmt.Errorf("invalid signing seed: %w", err)
	}

	location, err := interfaces.NewStoreLocation(identityStoreURI)
	if err != nil {
		return fmt.Errorf("invalid identity store URI: %w", err)
	}

	store, err := storage.NewFactory(logger).StoreFor(location)
	if err != nil {
		return fmt.Errorf("could not create identity store: %w", err)
	}
	logger.Info("Using identity store", "store", store.Name())

	identityRegistry := registry.New(store, logger)
	verifier := attestation.NewVerifier(cfg, identityRegistry, logger)
	challenges := challenge.NewStore(challengeTTL, logger)

	issuer, err := credential.NewIssuer(signingSeed, identityRegistry, logger)
	if err != nil {
		return fmt.Errorf("could not create credential issuer: %w", err)
	}

	go func() {
		for range time.Tick(time.Minute) {
			if n := challenges.Prune(); n > 0 {
				logger.Debug("Pruned expired challenges", "count", n)
			}
		}
	}()

	handler := httpserver.NewHandler(verifier, challenges, issuer, credentialTTL, logger)

	srvCfg := flags.ConfigureServer(cCtx, logger, listenAddr)
	srv, err := httpserver.New(srvCfg, handler)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	logger.Info("Shutting down")
	srv.Shutdown()
	return nil
}
