package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"sweeper/cmd/internal/passphrase"
	"sweeper/crypto"
)

func loadKey(c *cli.Context) (*crypto.PrivateKey, error) {
	path := c.String("keystore")
	if path == "" {
		return nil, errors.New("--keystore is required")
	}
	pass, err := passphrase.NewSource(passphraseEnv, "keystore").Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

func generateKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate-key",
		Usage: "Create a new secp256k1 key in an encrypted keystore file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Keystore path to write (defaults to --keystore)",
			},
			&cli.BoolFlag{
				Name:  "light-kdf",
				Usage: "Use cheap scrypt parameters (tests and throwaway keys only)",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("out")
			if path == "" {
				path = c.String("keystore")
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			pass, err := passphrase.NewSource(passphraseEnv, "new keystore").Get()
			if err != nil {
				return err
			}
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			kdf := crypto.StandardKDF
			if c.Bool("light-kdf") {
				kdf = crypto.LightKDF
			}
			if err := crypto.SaveToKeystoreWithKDF(path, key, pass, kdf); err != nil {
				return err
			}
			return printAddress(c, key)
		},
	}
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Print the address of the keystore key",
		Action: func(c *cli.Context) error {
			key, err := loadKey(c)
			if err != nil {
				return err
			}
			return printAddress(c, key)
		},
	}
}

func printAddress(c *cli.Context, key *crypto.PrivateKey) error {
	addr := key.PubKey().Address()
	return output(c, map[string]string{
		"address": addr.Hex(),
		"bech32":  crypto.FromCommon(addr).String(),
	}, func() {
		fmt.Fprintf(c.App.Writer, "Address: %s\nBech32:  %s\n", addr.Hex(), crypto.FromCommon(addr).String())
	})
}
