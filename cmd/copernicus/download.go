package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/robert-malhotra/copernicus-cli/internal/config"
	"github.com/robert-malhotra/copernicus-cli/pkg/downloader"
	"github.com/robert-malhotra/copernicus-cli/pkg/format"
	"github.com/robert-malhotra/copernicus-cli/pkg/query"
	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

var (
	downloadIDsFlag = &cli.StringFlag{
		Name:     "ids",
		Usage:    "comma-separated ids of the products to download",
		Required: true,
	}
	outputDirFlag = &cli.StringFlag{
		Name:    "output-dir",
		Aliases: []string{"d"},
		Usage:   "directory the <id>.zip archives are written to",
		Value:   ".",
	}
	downloadTimeoutFlag = &cli.DurationFlag{
		Name:  "download-timeout",
		Usage: "upper bound for a single product download (default 12h or the configured value)",
	}
	rewriteFlag = &cli.StringFlag{
		Name:  "rewrite",
		Usage: "replace a host label of product hrefs, as from=to",
	}
	noRewriteFlag = &cli.BoolFlag{
		Name:  "no-rewrite",
		Usage: "use product hrefs exactly as the catalogue returns them",
	}
	noProgressFlag = &cli.BoolFlag{
		Name:  "no-progress",
		Usage: "do not draw a progress bar",
	}
)

func newDownloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download products by id",
		Flags: []cli.Flag{
			downloadIDsFlag, outputDirFlag, downloadTimeoutFlag,
			rewriteFlag, noRewriteFlag, noProgressFlag,
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	rewrite, err := rewriteFromCommand(cmd, s.file.Settings)
	if err != nil {
		return err
	}

	ids := cmd.String(downloadIDsFlag.Name)
	fc, err := s.client.Search(ctx, query.Filter{IDs: ids}, s.token)
	if err != nil {
		return err
	}
	if len(fc.Features) == 0 {
		return fmt.Errorf("no products match %s", ids)
	}

	d := downloader.New(downloaderOptions(cmd, s.file.Settings, s.logger, rewrite)...)
	return downloadAll(ctx, d, s, fc.Features, cmd.String(outputDirFlag.Name), !cmd.Bool(noProgressFlag.Name))
}

func downloaderOptions(cmd *cli.Command, settings config.Settings, logger *log.Logger, rewrite downloader.Rewrite) []downloader.Option {
	opts := []downloader.Option{
		downloader.WithLogger(logger),
		downloader.WithRewrite(rewrite),
		downloader.WithTimeout(settings.DownloadTimeout),
		downloader.WithS3Endpoint(settings.S3Endpoint),
	}
	if cmd.IsSet(downloadTimeoutFlag.Name) {
		opts = append(opts, downloader.WithTimeout(cmd.Duration(downloadTimeoutFlag.Name)))
	}
	return opts
}

// rewriteFromCommand picks the href rewrite: --no-rewrite, then --rewrite,
// then the configured pair, then the built-in catalogue to download rule.
func rewriteFromCommand(cmd *cli.Command, settings config.Settings) (downloader.Rewrite, error) {
	if cmd.Bool(noRewriteFlag.Name) {
		return downloader.NoRewrite, nil
	}
	if pair := cmd.String(rewriteFlag.Name); pair != "" {
		return parseRewrite(pair)
	}
	if settings.RewriteFrom != "" {
		return downloader.SubdomainRewrite(settings.RewriteFrom, settings.RewriteTo), nil
	}
	return downloader.DefaultRewrite, nil
}

func parseRewrite(pair string) (downloader.Rewrite, error) {
	from, to, ok := strings.Cut(pair, "=")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !ok || from == "" || to == "" || strings.ContainsAny(from+to, "./:") {
		return nil, fmt.Errorf("--%s %q: want a host label pair like catalogue=download", rewriteFlag.Name, pair)
	}
	return downloader.SubdomainRewrite(from, to), nil
}

// downloadAll fetches features one after another. It stops at the first
// failure; a partial archive stays on disk and is reported.
func downloadAll(ctx context.Context, d *downloader.Downloader, s *session, features []*stac.Feature, outputDir string, showProgress bool) error {
	var p *mpb.Progress
	if showProgress {
		p = mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	}

	var results []*downloader.Result
	var failure error
	for _, f := range features {
		name, _ := f.DisplayID()
		bar, progress := newBar(p, name)

		res, err := d.FetchWithProgress(ctx, f, s.token, outputDir, progress)
		if bar != nil {
			if err != nil {
				bar.Abort(false)
			} else {
				bar.SetTotal(-1, true)
			}
		}
		if err != nil {
			failure = describeFailure(name, err)
			break
		}
		results = append(results, res)
	}
	if p != nil {
		p.Wait()
	}

	for _, r := range results {
		fmt.Fprintf(os.Stdout, "%s (%s)\n", r.Path, format.FormatBytes(int64(r.BytesWritten)))
	}
	return failure
}

func newBar(p *mpb.Progress, name string) (*mpb.Bar, downloader.ProgressFunc) {
	if p == nil {
		return nil, nil
	}
	bar := p.New(0,
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "Complete",
			),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .2f / % .2f"),
		),
	)
	return bar, func(downloaded, total int64) {
		if downloaded == 0 && total > 0 {
			bar.SetTotal(total, false)
		}
		bar.SetCurrent(downloaded)
	}
}

func describeFailure(id string, err error) error {
	var werr *downloader.WriteError
	if errors.As(err, &werr) && werr.BytesWritten > 0 {
		return fmt.Errorf("download %s: %w (partial file %s kept, %s written)",
			id, err, werr.Path, format.FormatBytes(int64(werr.BytesWritten)))
	}
	return fmt.Errorf("download %s: %w", id, err)
}
