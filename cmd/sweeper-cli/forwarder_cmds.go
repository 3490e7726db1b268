package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"sweeper/core/types"
	"sweeper/rpc"
)

func factoryFlag() cli.Flag {
	return &cli.StringFlag{Name: "factory", Usage: "Forwarder factory address (hex or swp bech32)"}
}

func saltFlag() cli.Flag {
	return &cli.StringFlag{Name: "salt", Usage: "Clone salt (decimal or 0x hex word)", Required: true}
}

func deployFactoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy-factory",
		Usage: "Deploy a forwarder factory owned by the keystore key",
		Action: func(c *cli.Context) error {
			_, err := submit(c, types.TxTypeDeployFactory, nil, nil, nil)
			return err
		},
	}
}

func cloneCommand() *cli.Command {
	return &cli.Command{
		Name:  "clone",
		Usage: "Clone a forwarder bound to a destination",
		Flags: []cli.Flag{
			factoryFlag(),
			&cli.StringFlag{Name: "destination", Usage: "Address swept funds are delivered to", Required: true},
			saltFlag(),
		},
		Action: func(c *cli.Context) error {
			factory, err := addressFlag(c, "factory")
			if err != nil {
				return err
			}
			destination, err := addressFlag(c, "destination")
			if err != nil {
				return err
			}
			salt, err := rpc.ParseSalt(c.String("salt"))
			if err != nil {
				return err
			}
			_, err = submit(c, types.TxTypeCloneForwarder, &factory, nil, types.ClonePayload{Destination: destination, Salt: salt.Bytes32()})
			return err
		},
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Print the address a clone would receive for a salt",
		Flags: []cli.Flag{factoryFlag(), saltFlag()},
		Action: func(c *cli.Context) error {
			factory, err := addressFlag(c, "factory")
			if err != nil {
				return err
			}
			salt, err := rpc.ParseSalt(c.String("salt"))
			if err != nil {
				return err
			}
			addr, err := client(c).ForwarderAddress(c.Context, factory, salt)
			if err != nil {
				return err
			}
			return output(c, map[string]string{"address": addr.Hex(), "salt": salt.Dec()}, func() {
				fmt.Fprintln(c.App.Writer, addr.Hex())
			})
		},
	}
}

// flushTarget returns the factory (zero when sweeping directly) and the
// forwarder named by the flags.
func flushTarget(c *cli.Context) (common.Address, common.Address, error) {
	target, err := addressFlag(c, "forwarder")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if c.String("factory") == "" {
		return common.Address{}, target, nil
	}
	factory, err := addressFlag(c, "factory")
	return factory, target, err
}

func flushNativeCommand() *cli.Command {
	return &cli.Command{
		Name:  "flush-native",
		Usage: "Sweep a forwarder's native balance to its destination",
		Description: `With --factory the sweep is proxied through the factory, which must own the
forwarder and be owned by the keystore key. Without it the keystore key must
own the forwarder itself.`,
		Flags: []cli.Flag{
			factoryFlag(),
			&cli.StringFlag{Name: "forwarder", Usage: "Forwarder to sweep", Required: true},
		},
		Action: func(c *cli.Context) error {
			factory, target, err := flushTarget(c)
			if err != nil {
				return err
			}
			if factory == (common.Address{}) {
				_, err = submit(c, types.TxTypeForwarderFlushNative, &target, nil, nil)
				return err
			}
			_, err = submit(c, types.TxTypeFactoryFlushNative, &factory, nil, types.FactoryFlushPayload{Forwarder: target})
			return err
		},
	}
}

func flushTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "flush-token",
		Usage: "Sweep a forwarder's token balance to its destination",
		Flags: []cli.Flag{
			factoryFlag(),
			&cli.StringFlag{Name: "forwarder", Usage: "Forwarder to sweep", Required: true},
			&cli.StringFlag{Name: "token", Usage: "Token contract address", Required: true},
		},
		Action: func(c *cli.Context) error {
			factory, target, err := flushTarget(c)
			if err != nil {
				return err
			}
			tokenAddr, err := addressFlag(c, "token")
			if err != nil {
				return err
			}
			if factory == (common.Address{}) {
				_, err = submit(c, types.TxTypeForwarderFlushToken, &target, nil, types.TokenFlushPayload{Token: tokenAddr})
				return err
			}
			_, err = submit(c, types.TxTypeFactoryFlushToken, &factory, nil, types.FactoryFlushPayload{Forwarder: target, Token: tokenAddr})
			return err
		},
	}
}

func deployForwarderCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy-forwarder",
		Usage: "Deploy a stand-alone, uninitialised forwarder",
		Action: func(c *cli.Context) error {
			_, err := submit(c, types.TxTypeDeployForwarder, nil, nil, nil)
			return err
		},
	}
}

func initForwarderCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Bind an uninitialised forwarder to a destination; the keystore key becomes its owner",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "forwarder", Usage: "Forwarder to initialise", Required: true},
			&cli.StringFlag{Name: "destination", Usage: "Address swept funds are delivered to", Required: true},
		},
		Action: func(c *cli.Context) error {
			target, err := addressFlag(c, "forwarder")
			if err != nil {
				return err
			}
			destination, err := addressFlag(c, "destination")
			if err != nil {
				return err
			}
			_, err = submit(c, types.TxTypeInitForwarder, &target, nil, types.InitPayload{Destination: destination})
			return err
		},
	}
}

func depositCommand() *cli.Command {
	return &cli.Command{
		Name:  "deposit",
		Usage: "Transfer native currency to any address, e.g. a forwarder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
			&cli.StringFlag{Name: "amount", Usage: "Amount in base units", Required: true},
		},
		Action: func(c *cli.Context) error {
			to, err := addressFlag(c, "to")
			if err != nil {
				return err
			}
			amount, err := amountFlag(c, "amount")
			if err != nil {
				return err
			}
			_, err = submit(c, types.TxTypeTransfer, &to, amount, nil)
			return err
		},
	}
}

func factoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "factory",
		Usage: "Show a factory's owner and parent forwarder",
		Flags: []cli.Flag{factoryFlag()},
		Action: func(c *cli.Context) error {
			factory, err := addressFlag(c, "factory")
			if err != nil {
				return err
			}
			info, err := client(c).Factory(c.Context, factory)
			if err != nil {
				return err
			}
			return output(c, info, func() {
				fmt.Fprintf(c.App.Writer, "Factory: %s\nOwner:   %s\nParent:  %s\n", info.Address, info.Owner, info.ParentForwarder)
			})
		},
	}
}

func forwarderCommand() *cli.Command {
	return &cli.Command{
		Name:  "forwarder",
		Usage: "Show a forwarder's owner and destination",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Usage: "Forwarder address", Required: true},
		},
		Action: func(c *cli.Context) error {
			addr, err := addressFlag(c, "address")
			if err != nil {
				return err
			}
			info, err := client(c).Forwarder(c.Context, addr)
			if err != nil {
				return err
			}
			return output(c, info, func() {
				fmt.Fprintf(c.App.Writer, "Forwarder:      %s\nImplementation: %s\nOwner:          %s\nDestination:    %s\nInitialized:    %t\n",
					info.Address, info.Implementation, info.Owner, info.DestinationAddress, info.Initialized)
			})
		},
	}
}
