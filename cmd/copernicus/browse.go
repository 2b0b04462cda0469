package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/copernicus-cli/pkg/downloader"
	"github.com/robert-malhotra/copernicus-cli/pkg/format"
	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

func newBrowseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Pick a search result interactively and download it",
		Flags: append([]cli.Flag{
			collectionsFlag, outputDirFlag, downloadTimeoutFlag, rewriteFlag, noRewriteFlag,
		}, filterFlags()...),
		Action: browseAction,
	}
}

func browseAction(ctx context.Context, cmd *cli.Command) error {
	filter, err := filterFromCommand(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	rewrite, err := rewriteFromCommand(cmd, s.file.Settings)
	if err != nil {
		return err
	}

	fc, err := s.client.Search(ctx, filter, s.token)
	if err != nil {
		return err
	}
	if len(fc.Features) == 0 {
		fmt.Println("no products found")
		return nil
	}

	b := newBrowser(ctx, fc, func(ctx context.Context, page *stac.FeatureCollection) (*stac.FeatureCollection, error) {
		return s.client.NextPage(ctx, page, s.token)
	})
	if err := b.run(); err != nil {
		return err
	}
	if b.selected == nil {
		return nil
	}

	d := downloader.New(downloaderOptions(cmd, s.file.Settings, s.logger, rewrite)...)
	return downloadAll(ctx, d, s, []*stac.Feature{b.selected}, cmd.String(outputDirFlag.Name), true)
}

type pageFunc func(context.Context, *stac.FeatureCollection) (*stac.FeatureCollection, error)

// browser shows features in a list with the highlighted one rendered beside
// it. Enter selects and quits, n loads the next page, j toggles the raw JSON
// of the highlighted feature, q or Esc quits.
type browser struct {
	ctx      context.Context
	app      *tview.Application
	list     *tview.List
	detail   *tview.TextView
	status   *tview.TextView
	renderer *format.Renderer
	next     pageFunc

	page     *stac.FeatureCollection
	features []*stac.Feature
	selected *stac.Feature
	showJSON bool
	loading  atomic.Bool
}

func newBrowser(ctx context.Context, first *stac.FeatureCollection, next pageFunc) *browser {
	b := &browser{
		ctx:      ctx,
		app:      tview.NewApplication(),
		list:     tview.NewList(),
		detail:   tview.NewTextView(),
		status:   tview.NewTextView(),
		renderer: &format.Renderer{},
		next:     next,
	}

	b.list.ShowSecondaryText(true).
		SetWrapAround(false).
		SetChangedFunc(func(index int, _, _ string, _ rune) { b.showDetail(index) }).
		SetSelectedFunc(func(index int, _, _ string, _ rune) { b.choose(index) })
	b.list.SetBorder(true).SetTitle("Products")

	b.detail.SetDynamicColors(false).SetWrap(true)
	b.detail.SetBorder(true).SetTitle("Details")

	b.status.SetTextAlign(tview.AlignCenter)

	b.addPage(first)
	b.app.SetInputCapture(b.onInputCapture)
	return b
}

func (b *browser) run() error {
	body := tview.NewFlex().
		AddItem(b.list, 0, 1, true).
		AddItem(b.detail, 0, 1, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(b.status, 1, 0, false)

	release := stopOnCancel(b.ctx, b.app.Stop)
	defer release()
	return b.app.SetRoot(root, true).Run()
}

// stopOnCancel calls stop once ctx is cancelled. The returned release func
// ends the wait and returns after the watcher has exited, so stop is never
// called after release. It must be called exactly once.
func stopOnCancel(ctx context.Context, stop func()) (release func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func (b *browser) addPage(fc *stac.FeatureCollection) {
	b.page = fc
	for _, f := range fc.Features {
		b.features = append(b.features, f)
		primary, secondary := itemLabels(f)
		b.list.AddItem(primary, secondary, 0, nil)
	}
	if len(b.features) > 0 && b.list.GetCurrentItem() == 0 {
		b.showDetail(0)
	}
	b.updateStatus("")
}

func (b *browser) showDetail(index int) {
	if index < 0 || index >= len(b.features) {
		return
	}
	f := b.features[index]
	if !b.showJSON {
		b.detail.SetTitle("Details")
		b.detail.SetText(b.renderer.RenderFeature(f))
		b.detail.ScrollToBeginning()
		return
	}
	encoded, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		b.updateStatus(fmt.Sprintf("render JSON: %v", err))
		return
	}
	b.detail.SetTitle("JSON")
	b.detail.SetText(string(encoded))
	b.detail.ScrollToBeginning()
}

func (b *browser) toggleJSON() {
	b.showJSON = !b.showJSON
	b.showDetail(b.list.GetCurrentItem())
}

func (b *browser) choose(index int) {
	if index < 0 || index >= len(b.features) {
		return
	}
	b.selected = b.features[index]
	b.app.Stop()
}

func (b *browser) updateStatus(msg string) {
	hint := "Enter: download  n: next page  j: JSON  q/Esc: quit"
	if b.page == nil || b.page.FindLink("next") == nil {
		hint = "Enter: download  j: JSON  q/Esc: quit"
	}
	text := fmt.Sprintf("%d products  |  %s", len(b.features), hint)
	if msg != "" {
		text = msg + "  |  " + text
	}
	b.status.SetText(text)
}

func (b *browser) loadNextPage() {
	if b.next == nil || b.page == nil || b.page.FindLink("next") == nil {
		return
	}
	if !b.loading.CompareAndSwap(false, true) {
		return
	}
	current := b.page
	b.updateStatus("loading...")

	go func() {
		defer b.loading.Store(false)
		fc, err := b.next(b.ctx, current)
		b.app.QueueUpdateDraw(func() {
			switch {
			case err != nil:
				b.updateStatus("next page failed: " + err.Error())
			case fc == nil:
				b.page = nil
				b.updateStatus("")
			default:
				b.addPage(fc)
			}
		})
	}()
}

func (b *browser) onInputCapture(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		b.app.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			b.app.Stop()
			return nil
		case 'n', 'N':
			b.loadNextPage()
			return nil
		case 'j', 'J':
			b.toggleJSON()
			return nil
		}
	}
	return event
}

// itemLabels returns the list text for f: its id, then platform, product
// type and acquisition time.
func itemLabels(f *stac.Feature) (string, string) {
	id, ok := f.DisplayID()
	if !ok {
		id = stac.NotAvailable
	}
	secondary := fmt.Sprintf("%s  %s  %s",
		stac.Display(f.Property("platformShortName")),
		stac.Display(f.Property("productType")),
		stac.Display(f.Property("datetime")),
	)
	return tview.Escape(id), tview.Escape(secondary)
}
