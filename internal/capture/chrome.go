package capture

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// BrowserConfig configures the browser-backed renderers.
type BrowserConfig struct {
	// RemoteURL is the DevTools endpoint of a running Chrome. Empty launches
	// a local headless Chrome per capture.
	RemoteURL string
	// ExecPath overrides the Chrome binary for local launches.
	ExecPath string
	// ViewportWidth and ViewportHeight size the window the page lays out in.
	ViewportWidth  int
	ViewportHeight int
	// NoSandbox disables the Chrome sandbox (needed in most containers).
	NoSandbox bool

	Logger *log.Logger
}

func (c *BrowserConfig) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1024
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// ChromeRenderer captures subtrees with headless Chrome via chromedp.
type ChromeRenderer struct {
	cfg BrowserConfig
}

// NewChromeRenderer creates a chromedp-backed renderer.
func NewChromeRenderer(cfg BrowserConfig) *ChromeRenderer {
	cfg.defaults()
	return &ChromeRenderer{cfg: cfg}
}

// Capture implements Renderer.
func (r *ChromeRenderer) Capture(ctx context.Context, ref ContentRef, opts Options) (*Raster, error) {
	if ref.URL == "" || ref.Selector == "" {
		return nil, errors.New(errors.ErrCodeCapture, "content reference needs a URL and a selector, got %q", ref.String())
	}
	opts = opts.withDefaults()
	logger := r.cfg.Logger

	allocCtx, cancelAlloc := r.allocator(ctx, opts)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(int64(r.cfg.ViewportWidth), int64(r.cfg.ViewportHeight)),
		chromedp.Navigate(ref.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "load %s", ref.URL)
	}

	eval := func(ctx context.Context, expr string) (string, error) {
		var out string
		err := chromedp.Run(ctx, chromedp.Evaluate(expr, &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
		return out, err
	}

	var shot []byte
	err = Scoped(taskCtx, newApplier(eval, ref.Selector, opts.Override), func(ctx context.Context) error {
		st := settleImages(ctx, eval, ref.Selector)
		if st.Failed > 0 {
			logger.Warn("capture: images failed to load, capturing without them", "failed", st.Failed, "total", st.Total)
		}

		b, err := measure(ctx, eval, ref.Selector)
		if err != nil {
			return err
		}
		w, h := scaledSize(b.Width, b.Height, opts.Magnification)
		logger.Debug("capture: chrome screenshot", "selector", ref.Selector, "css", [2]float64{b.Width, b.Height}, "px", [2]int{w, h})

		return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				WithClip(&page.Viewport{
					X:      b.X,
					Y:      b.Y,
					Width:  b.Width,
					Height: b.Height,
					Scale:  opts.Magnification,
				}).
				Do(ctx)
			return err
		}))
	})
	if err != nil {
		return nil, asCaptureError(err, "chrome capture of %s", ref)
	}

	return decodeRaster(shot, opts.Background)
}

func (r *ChromeRenderer) allocator(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if r.cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, r.cfg.RemoteURL)
	}

	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(r.cfg.ViewportWidth, r.cfg.ViewportHeight),
	)
	if r.cfg.NoSandbox {
		flags = append(flags,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	if opts.AllowCrossOrigin {
		flags = append(flags,
			chromedp.Flag("disable-web-security", true),
			chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		)
	}
	if r.cfg.ExecPath != "" {
		flags = append(flags, chromedp.ExecPath(r.cfg.ExecPath))
	}
	return chromedp.NewExecAllocator(ctx, flags...)
}
