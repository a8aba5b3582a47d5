package capture

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// RodRenderer captures subtrees with Chrome driven by go-rod.
type RodRenderer struct {
	cfg BrowserConfig
}

// NewRodRenderer creates a rod-backed renderer. BrowserConfig.RemoteURL is
// used as the rod control URL.
func NewRodRenderer(cfg BrowserConfig) *RodRenderer {
	cfg.defaults()
	return &RodRenderer{cfg: cfg}
}

// Capture implements Renderer.
func (r *RodRenderer) Capture(ctx context.Context, ref ContentRef, opts Options) (*Raster, error) {
	if ref.URL == "" || ref.Selector == "" {
		return nil, errors.New(errors.ErrCodeCapture, "content reference needs a URL and a selector, got %q", ref.String())
	}
	opts = opts.withDefaults()
	logger := r.cfg.Logger

	controlURL := r.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(true).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("hide-scrollbars")
		if r.cfg.NoSandbox {
			l = l.NoSandbox(true)
		}
		if opts.AllowCrossOrigin {
			l = l.Set("disable-web-security").Set("disable-features", "IsolateOrigins,site-per-process")
		}
		if r.cfg.ExecPath != "" {
			l = l.Bin(r.cfg.ExecPath)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCapture, err, "launch chrome")
		}
		defer l.Cleanup()
		controlURL = u
		logger.Debug("capture: launched local chrome", "url", controlURL)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "connect to chrome")
	}
	if r.cfg.RemoteURL == "" {
		defer b.Close()
	}

	p, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "create tab")
	}
	defer p.Close()

	err = proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.ViewportWidth,
		Height:            r.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}.Call(p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "set viewport")
	}
	if err := p.Navigate(ref.URL); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "navigate %s", ref.URL)
	}
	if err := p.WaitLoad(); err != nil {
		logger.Warn("capture: wait load failed", "url", ref.URL, "error", err)
	}

	eval := func(ctx context.Context, expr string) (string, error) {
		res, err := p.Context(ctx).Eval(`() => ` + expr)
		if err != nil {
			return "", err
		}
		return res.Value.Str(), nil
	}

	var shot []byte
	err = Scoped(ctx, newApplier(eval, ref.Selector, opts.Override), func(ctx context.Context) error {
		st := settleImages(ctx, eval, ref.Selector)
		if st.Failed > 0 {
			logger.Warn("capture: images failed to load, capturing without them", "failed", st.Failed, "total", st.Total)
		}

		bx, err := measure(ctx, eval, ref.Selector)
		if err != nil {
			return err
		}
		w, h := scaledSize(bx.Width, bx.Height, opts.Magnification)
		logger.Debug("capture: rod screenshot", "selector", ref.Selector, "css", [2]float64{bx.Width, bx.Height}, "px", [2]int{w, h})

		res, err := proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
			Clip: &proto.PageViewport{
				X:      bx.X,
				Y:      bx.Y,
				Width:  bx.Width,
				Height: bx.Height,
				Scale:  opts.Magnification,
			},
			FromSurface:           true,
			CaptureBeyondViewport: true,
		}.Call(p.Context(ctx))
		if err != nil {
			return err
		}
		shot = res.Data
		return nil
	})
	if err != nil {
		return nil, asCaptureError(err, "rod capture of %s", ref)
	}

	return decodeRaster(shot, opts.Background)
}
