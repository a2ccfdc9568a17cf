// Command matchctl runs the matching and rationing algorithms offline over a
// market read from a JSON file.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/efreitasn/marketmatch/internal/matching"
)

func main() {
	app := &cli.App{
		Name:  "matchctl",
		Usage: "Clear or ration a market described in JSON",
		Commands: []*cli.Command{
			matchCmd,
			rationCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error: ", err)
		os.Exit(1)
	}
}

var commonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "input",
		Value: "-",
		Usage: "specify the input market.json (- for stdin)",
	},
	&cli.StringFlag{
		Name:  "rationing",
		Value: matching.RationingHomogeneous,
		Usage: "specify the rationing algorithm (homogeneous, random_deny, worst_proposition)",
	},
	&cli.Float64Flag{
		Name:  "inhomogeneity",
		Value: matching.DefaultInhomogeneity,
		Usage: "specify the random_deny inhomogeneity (0.0-1.0)",
	},
	&cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "specify the random seed",
	},
}

var matchCmd = &cli.Command{
	Name:    "match",
	Usage:   "Match sellers against buyers",
	Aliases: []string{"m"},
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "algorithm",
			Value: matching.AlgorithmCallAuction,
			Usage: "specify the matching algorithm (call_auction, forager)",
		},
		&cli.StringFlag{
			Name:  "tie-break",
			Value: "lowest_price",
			Usage: "specify the call auction tie break (lowest_price, first_scanned)",
		},
	}, commonFlags...),
	Action: func(ctx *cli.Context) error {
		opts, err := readOptions(ctx)
		if err != nil {
			return err
		}
		in, closeIn, err := openInput(ctx.String("input"))
		if err != nil {
			return err
		}
		defer closeIn()
		return doMatch(in, ctx.App.Writer, opts)
	},
}

var rationCmd = &cli.Command{
	Name:    "ration",
	Usage:   "Ration both sides to a common volume without pairing them",
	Aliases: []string{"r"},
	Flags:   commonFlags,
	Action: func(ctx *cli.Context) error {
		opts, err := readOptions(ctx)
		if err != nil {
			return err
		}
		in, closeIn, err := openInput(ctx.String("input"))
		if err != nil {
			return err
		}
		defer closeIn()
		return doRation(in, ctx.App.Writer, opts)
	},
}

func readOptions(ctx *cli.Context) (options, error) {
	opts := options{
		algorithm:     ctx.String("algorithm"),
		rationing:     ctx.String("rationing"),
		inhomogeneity: ctx.Float64("inhomogeneity"),
		tieBreak:      ctx.String("tie-break"),
		seed:          ctx.Int64("seed"),
	}
	if !(opts.inhomogeneity >= 0.0 && opts.inhomogeneity <= 1.0) {
		return opts, errors.New("invalid inhomogeneity")
	}
	return opts, nil
}

func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
