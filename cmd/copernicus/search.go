package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

const defaultCollection = "SENTINEL-2"

var (
	collectionFlag = &cli.StringFlag{
		Name:    "collection",
		Aliases: []string{"c"},
		Usage:   "collection to list",
		Value:   defaultCollection,
	}
	allPagesFlag = &cli.BoolFlag{
		Name:  "all",
		Usage: "follow next links until the last page",
	}
)

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List the products of one collection",
		Flags:  append([]cli.Flag{collectionFlag, allPagesFlag}, filterFlags()...),
		Action: listAction,
	}
}

func newSearchCommand() *cli.Command {
	return &cli.Command{
		Name:   "search",
		Usage:  "Search products across collections",
		Flags:  append([]cli.Flag{collectionsFlag, allPagesFlag}, filterFlags()...),
		Action: searchAction,
	}
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	filter, err := filterFromCommand(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	fc, err := s.client.List(ctx, cmd.String(collectionFlag.Name), filter, s.token)
	if err != nil {
		return err
	}
	return printPages(ctx, cmd, s, fc)
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	filter, err := filterFromCommand(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	fc, err := s.client.Search(ctx, filter, s.token)
	if err != nil {
		return err
	}
	return printPages(ctx, cmd, s, fc)
}

// printPages prints fc and, with --all, every following page.
func printPages(ctx context.Context, cmd *cli.Command, s *session, fc *stac.FeatureCollection) error {
	out, err := newPrinter(os.Stdout, cmd.String(outputFlag.Name))
	if err != nil {
		return err
	}
	if !cmd.Bool(allPagesFlag.Name) {
		return out.print(fc)
	}
	for page, err := range s.client.Pages(ctx, fc, s.token) {
		if err != nil {
			return err
		}
		if err := out.print(page); err != nil {
			return err
		}
	}
	return nil
}
