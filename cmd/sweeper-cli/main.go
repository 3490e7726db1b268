package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

const (
	passphraseEnv = "SWEEPER_PASSPHRASE"
	defaultRPC    = "http://127.0.0.1:8545"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sweeper-cli",
		Usage: "Operate forwarder factories and sweep deposits",
		Description: `Signs transactions with a local keystore and submits them to a sweeperd
JSON-RPC endpoint.

Example:
  sweeper-cli generate-key --out ops.key
  sweeper-cli --keystore ops.key deploy-factory
  sweeper-cli --keystore ops.key clone --factory 0x... --destination 0x... --salt 1`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "sweeperd JSON-RPC endpoint",
				EnvVars: []string{"SWEEPER_RPC"},
				Value:   defaultRPC,
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token granting the sweep:write scope",
				EnvVars: []string{"SWEEPER_RPC_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "keystore",
				Aliases: []string{"k"},
				Usage:   "Keystore file holding the signing key",
				EnvVars: []string{"SWEEPER_KEYSTORE"},
				Value:   "sweeper.key",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Commands: []*cli.Command{
			generateKeyCommand(),
			addressCommand(),
			deployFactoryCommand(),
			cloneCommand(),
			predictCommand(),
			flushNativeCommand(),
			flushTokenCommand(),
			deployForwarderCommand(),
			initForwarderCommand(),
			depositCommand(),
			deployTokenCommand(),
			tokenTransferCommand(),
			factoryCommand(),
			forwarderCommand(),
			forwardersCommand(),
			balanceCommand(),
			tokenBalanceCommand(),
		},
	}
}
