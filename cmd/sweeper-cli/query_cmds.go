package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"sweeper/integrations/exports"
	"sweeper/rpc"
	"sweeper/storage/index"
)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show the native balance and nonce of an address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Usage: "Address to query (defaults to the keystore key)"},
		},
		Action: func(c *cli.Context) error {
			var addr common.Address
			if c.String("address") != "" {
				parsed, err := addressFlag(c, "address")
				if err != nil {
					return err
				}
				addr = parsed
			} else {
				key, err := loadKey(c)
				if err != nil {
					return err
				}
				addr = key.PubKey().Address()
			}
			res, err := client(c).Balance(c.Context, addr)
			if err != nil {
				return err
			}
			return output(c, res, func() {
				fmt.Fprintf(c.App.Writer, "Address: %s\nBalance: %s\nNonce:   %d\n", res.Address, res.Balance, res.Nonce)
			})
		},
	}
}

func forwardersCommand() *cli.Command {
	return &cli.Command{
		Name:  "forwarders",
		Usage: "List indexed clones of a factory",
		Flags: []cli.Flag{
			factoryFlag(),
			&cli.StringFlag{Name: "destination", Usage: "Only list clones bound to this destination"},
			&cli.StringFlag{Name: "format", Usage: "table, csv or jsonl", Value: "table"},
		},
		Action: func(c *cli.Context) error {
			factory, err := addressFlag(c, "factory")
			if err != nil {
				return err
			}
			var destination *common.Address
			if c.String("destination") != "" {
				dest, err := addressFlag(c, "destination")
				if err != nil {
					return err
				}
				destination = &dest
			}
			results, err := client(c).ListForwarders(c.Context, factory, destination)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return output(c, results, nil)
			}
			return writeForwarders(c, results)
		},
	}
}

func writeForwarders(c *cli.Context, results []rpc.CloneRecordResult) error {
	format := strings.ToLower(c.String("format"))
	switch format {
	case "table":
		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tDESTINATION\tSALT")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Address, r.Destination, r.Salt)
		}
		return w.Flush()
	case "csv", "jsonl":
		records := make([]index.Record, 0, len(results))
		for _, r := range results {
			records = append(records, index.Record{
				Factory:     common.HexToAddress(r.Factory),
				Address:     common.HexToAddress(r.Address),
				Destination: common.HexToAddress(r.Destination),
				Salt:        r.Salt,
				IndexedAt:   time.Unix(r.IndexedAt, 0).UTC(),
			})
		}
		render := exports.ForwardersCSV
		if format == "jsonl" {
			render = exports.ForwardersJSONL
		}
		data, _, err := render(records)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(data)
		return err
	}
	return fmt.Errorf("unknown --format %q", c.String("format"))
}
