package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/copernicus-cli/pkg/query"
)

var (
	idsFlag = &cli.StringFlag{
		Name:  "ids",
		Usage: "comma-separated product ids",
	}
	bboxFlag = &cli.StringFlag{
		Name:  "bbox",
		Usage: "bounding box minx,miny,maxx,maxy",
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "start date, YYYY-MM-DD (start of day) or RFC3339",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "end date, YYYY-MM-DD (end of day) or RFC3339",
	}
	sortByFlag = &cli.StringFlag{
		Name:  "sortby",
		Usage: "sort expression, e.g. -datetime",
	}
	limitFlag = &cli.StringFlag{
		Name:    "limit",
		Aliases: []string{"l"},
		Usage:   "maximum number of results per page",
	}
	pageFlag = &cli.StringFlag{
		Name:  "page",
		Usage: "result page to fetch",
	}
	collectionsFlag = &cli.StringFlag{
		Name:  "collections",
		Usage: "comma-separated collection ids",
	}
)

func filterFlags() []cli.Flag {
	return []cli.Flag{idsFlag, bboxFlag, fromFlag, toFlag, sortByFlag, limitFlag, pageFlag}
}

// flagValues is the subset of *cli.Command used to read filter flags.
type flagValues interface {
	String(name string) string
}

func filterFromCommand(cmd flagValues) (query.Filter, error) {
	f := query.Filter{
		IDs:         cmd.String(idsFlag.Name),
		BBox:        cmd.String(bboxFlag.Name),
		SortBy:      cmd.String(sortByFlag.Name),
		Collections: cmd.String(collectionsFlag.Name),
	}

	if s := cmd.String(fromFlag.Name); s != "" {
		t, err := query.ParseDate(s, query.Start)
		if err != nil {
			return f, fmt.Errorf("--%s: %w", fromFlag.Name, err)
		}
		f.From = &t
	}
	if s := cmd.String(toFlag.Name); s != "" {
		t, err := query.ParseDate(s, query.End)
		if err != nil {
			return f, fmt.Errorf("--%s: %w", toFlag.Name, err)
		}
		f.To = &t
	}
	if s := cmd.String(limitFlag.Name); s != "" {
		n, err := query.ParseUint16(s)
		if err != nil {
			return f, fmt.Errorf("--%s: %w", limitFlag.Name, err)
		}
		f.Limit = &n
	}
	if s := cmd.String(pageFlag.Name); s != "" {
		n, err := query.ParseUint16(s)
		if err != nil {
			return f, fmt.Errorf("--%s: %w", pageFlag.Name, err)
		}
		f.Page = &n
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, fmt.Errorf("--%s is after --%s", fromFlag.Name, toFlag.Name)
	}
	return f, nil
}
