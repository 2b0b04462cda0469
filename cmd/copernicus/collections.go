package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	stac "github.com/planetlabs/go-stac"
	"github.com/urfave/cli/v3"
)

func newCollectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List the collections offered by the catalogue",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Fetch a collection by ID",
				ArgsUsage: "<collection-id>",
				Action:    getCollectionAction,
			},
		},
		Action: listCollectionsAction,
	}
}

func getCollectionAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected 1 argument: collection id")
	}
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	collection, err := s.client.GetCollection(ctx, cmd.Args().First(), s.token)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(newCollectionSummary(collection), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func listCollectionsAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 0 {
		return fmt.Errorf("no arguments expected")
	}
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}

	var collections []*stac.Collection
	for col, err := range s.client.GetCollections(ctx, s.token) {
		if err != nil {
			return err
		}
		collections = append(collections, col)
	}

	if cmd.String(outputFlag.Name) == outputJSON {
		summaries := make([]*collectionSummary, len(collections))
		for i, c := range collections {
			summaries[i] = newCollectionSummary(c)
		}
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}
	return writeCollectionTable(os.Stdout, collections)
}

type collectionSummary struct {
	ID          string       `json:"id"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Extent      *stac.Extent `json:"extent,omitempty"`
}

func newCollectionSummary(collection *stac.Collection) *collectionSummary {
	return &collectionSummary{
		ID:          collection.Id,
		Title:       collection.Title,
		Description: collection.Description,
		Extent:      collection.Extent,
	}
}

func writeCollectionTable(w io.Writer, collections []*stac.Collection) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, c := range collections {
		title := c.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", c.Id, title)
	}
	return tw.Flush()
}
