package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/v0xg/votebot/internal/page"
)

// Options configures the browser session
type Options struct {
	Width       int
	Height      int
	Timeout     time.Duration // Bound on every wait
	Headless    bool
	ProfileDir  string // Chrome/Chromium profile directory for authenticated sessions
	UserAgent   string
	ScrollSteps int           // Viewport-heights scrolled before each snapshot, to trigger lazy content
	ScrollPause time.Duration // Pause after each scroll step
}

// Browser wraps the Rod browser and the page (or frame) the ballot lives in
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	frame   *rod.Page
	offset  page.Position // Top-left of the frame within the page
	opts    Options
}

// Launch starts Chromium and opens a blank tab
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1440, 900
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Context(ctx).Bin(path).Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-sandbox")

	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	p, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err == nil && opts.UserAgent != "" {
		err = p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent})
	}
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to configure tab: %w", err)
	}

	slog.Debug("browser launched", "headless", opts.Headless, "width", opts.Width, "height", opts.Height)
	return &Browser{browser: browser, page: p, opts: opts}, nil
}

// Close cleans up browser resources
func (b *Browser) Close() {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
}

// Page returns the underlying Rod page
func (b *Browser) Page() *rod.Page {
	return b.page
}

// target is the document snapshots and clicks operate on
func (b *Browser) target() *rod.Page {
	if b.frame != nil {
		return b.frame
	}
	return b.page
}

// bounded returns the target bound to ctx and the configured timeout
func (b *Browser) bounded(ctx context.Context) (*rod.Page, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	return b.target().Context(ctx), cancel
}

// Open navigates the tab to url and waits for it to settle
func (b *Browser) Open(ctx context.Context, url string) error {
	b.frame = nil
	b.offset = page.Position{}

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	p := b.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	settle(p)
	return nil
}

// EnterFrame switches snapshots and clicks into the first iframe whose src
// contains match. When frameURL is set, the frame is then navigated to it.
func (b *Browser) EnterFrame(ctx context.Context, match, frameURL string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	p := b.page.Context(ctx)

	frames, err := p.Elements("iframe")
	if err != nil {
		return fmt.Errorf("failed to list iframes: %w", err)
	}
	slog.Debug("found iframes", "count", len(frames))

	for i, el := range frames {
		src, err := el.Attribute("src")
		if err != nil || src == nil {
			continue
		}
		slog.Debug("iframe", "n", i+1, "src", *src)
		if !contains(*src, match) {
			continue
		}

		frame, err := el.Frame()
		if err != nil {
			return fmt.Errorf("failed to enter iframe %s: %w", *src, err)
		}
		if x, y, err := elementOrigin(el); err == nil {
			b.offset = page.Position{X: x, Y: y}
		}
		b.frame = frame

		if frameURL != "" {
			fp := frame.Context(ctx)
			if err := fp.Navigate(frameURL); err != nil {
				return fmt.Errorf("failed to navigate frame to %s: %w", frameURL, err)
			}
			if err := fp.WaitLoad(); err != nil {
				return fmt.Errorf("failed waiting for frame %s: %w", frameURL, err)
			}
		}
		slog.Info("switched to ballot frame", "src", *src)
		return nil
	}

	return fmt.Errorf("no iframe with src containing %q", match)
}

// Snapshot scrolls through the document to trigger lazy rendering, then
// reads every visible text node with its position and clickability.
func (b *Browser) Snapshot(ctx context.Context) (*page.Snapshot, error) {
	p, cancel := b.bounded(ctx)
	defer cancel()

	if err := waitForText(ctx, p, b.opts.Timeout); err != nil {
		return nil, err
	}

	for i := 0; i < b.opts.ScrollSteps; i++ {
		if _, err := p.Eval(`() => window.scrollBy(0, window.innerHeight)`); err != nil {
			return nil, fmt.Errorf("failed to scroll: %w", err)
		}
		if err := sleep(ctx, b.opts.ScrollPause); err != nil {
			return nil, err
		}
	}
	if _, err := p.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		return nil, fmt.Errorf("failed to scroll to top: %w", err)
	}

	res, err := p.Eval(extractJS)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page text: %w", err)
	}

	v := res.Value
	var elements []page.Element
	for _, item := range v.Get("elements").Arr() {
		elements = append(elements, elementFromJSON(item))
	}

	s := page.New(v.Get("url").Str(), v.Get("title").Str(), elements, v.Get("text").Str())
	slog.Debug("snapshot taken", "url", s.URL, "elements", len(s.Elements))
	return s, nil
}

func elementFromJSON(v gson.JSON) page.Element {
	return page.Element{
		Text: v.Get("text").Str(),
		Tag:  v.Get("tag").Str(),
		Position: page.Position{
			X: v.Get("x").Num(),
			Y: v.Get("y").Num(),
		},
		Clickable: v.Get("clickable").Bool(),
	}
}

// Click clicks the element captured in a snapshot, or the actionable node
// nearest to it. It returns the viewport point that was clicked.
func (b *Browser) Click(ctx context.Context, el page.Element) (page.Position, error) {
	p, cancel := b.bounded(ctx)
	defer cancel()

	res, err := p.Eval(clickJS, el.Text, el.Position.X, el.Position.Y)
	if err != nil {
		return page.Position{}, fmt.Errorf("failed to click %q: %w", el.Text, err)
	}
	if !res.Value.Get("ok").Bool() {
		return page.Position{}, fmt.Errorf("nothing clickable under %q at (%.0f, %.0f)", el.Text, el.Position.X, el.Position.Y)
	}

	settle(p)

	return page.Position{
		X: res.Value.Get("x").Num() + b.offset.X,
		Y: res.Value.Get("y").Num() + b.offset.Y,
	}, nil
}

// Screenshot captures the visible viewport of the top-level page
func (b *Browser) Screenshot(ctx context.Context) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	data, err := b.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// settle waits briefly for network activity to stop. Pages with long-lived
// connections never go idle, so the wait is capped and its outcome ignored.
func settle(p *rod.Page) {
	withTimeout(p, 5*time.Second, func(tp *rod.Page) {
		tp.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	})
}

// withTimeout runs fn on a copy of p bounded by d and releases the timeout afterwards
func withTimeout(p *rod.Page, d time.Duration, fn func(*rod.Page)) {
	tp := p.Timeout(d)
	defer tp.CancelTimeout()
	fn(tp)
}

// waitForText polls until the document has rendered some visible text
func waitForText(ctx context.Context, p *rod.Page, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for time.Now().Before(deadline) {
		res, err := p.Eval(`() => (document.body && document.body.innerText || '').trim().length`)
		if err == nil && res.Value.Int() > 0 {
			return nil
		}
		if err := sleep(ctx, checkInterval); err != nil {
			return err
		}
	}
	return errors.New("timed out waiting for page text")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// elementOrigin returns the top-left corner of an element's first quad
func elementOrigin(el *rod.Element) (float64, float64, error) {
	box, err := el.Shape()
	if err != nil {
		return 0, 0, err
	}
	if len(box.Quads) == 0 {
		return 0, 0, errors.New("element has no shape")
	}
	quad := box.Quads[0]
	return quad[0], quad[1], nil
}

func contains(s, sub string) bool {
	return sub == "" || strings.Contains(s, sub)
}
