package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"sweeper/core/types"
)

func deployTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy-token",
		Usage: "Deploy a fungible token minting the whole supply to the keystore key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "symbol", Required: true},
			&cli.UintFlag{Name: "decimals", Value: 18},
			&cli.StringFlag{Name: "supply", Usage: "Total supply in base units", Required: true},
		},
		Action: func(c *cli.Context) error {
			supply, err := amountFlag(c, "supply")
			if err != nil {
				return err
			}
			decimals := c.Uint("decimals")
			if decimals > 255 {
				return fmt.Errorf("--decimals must fit in a byte, got %d", decimals)
			}
			_, err = submit(c, types.TxTypeDeployToken, nil, nil, types.DeployTokenPayload{
				Name:     c.String("name"),
				Symbol:   c.String("symbol"),
				Decimals: uint8(decimals),
				Supply:   supply,
			})
			return err
		},
	}
}

func tokenTransferCommand() *cli.Command {
	return &cli.Command{
		Name:  "token-transfer",
		Usage: "Transfer tokens, e.g. to fund a forwarder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "Token contract address", Required: true},
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
			&cli.StringFlag{Name: "amount", Usage: "Amount in base units", Required: true},
		},
		Action: func(c *cli.Context) error {
			tokenAddr, err := addressFlag(c, "token")
			if err != nil {
				return err
			}
			to, err := addressFlag(c, "to")
			if err != nil {
				return err
			}
			amount, err := amountFlag(c, "amount")
			if err != nil {
				return err
			}
			_, err = submit(c, types.TxTypeTokenTransfer, &tokenAddr, nil, types.TokenTransferPayload{Recipient: to, Amount: amount})
			return err
		},
	}
}

func tokenBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "token-balance",
		Usage: "Show a holder's balance of a token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Usage: "Token contract address", Required: true},
			&cli.StringFlag{Name: "holder", Usage: "Holder address", Required: true},
		},
		Action: func(c *cli.Context) error {
			tokenAddr, err := addressFlag(c, "token")
			if err != nil {
				return err
			}
			holder, err := addressFlag(c, "holder")
			if err != nil {
				return err
			}
			res, err := client(c).TokenBalance(c.Context, tokenAddr, holder)
			if err != nil {
				return err
			}
			return output(c, res, func() {
				fmt.Fprintf(c.App.Writer, "%s %s (decimals %d)\n", res.Balance, res.Symbol, res.Decimals)
			})
		},
	}
}
