package capture

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// Every script is a function literal; callJS applies it to JSON-encoded
// arguments so selectors and CSS never need manual quoting. Results are
// strings (JSON where structured) so both browser drivers decode them the
// same way.

const measureJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return JSON.stringify({found: false});
	const rect = el.getBoundingClientRect();
	return JSON.stringify({
		found: true,
		x: rect.left + window.scrollX,
		y: rect.top + window.scrollY,
		width: Math.max(el.scrollWidth, rect.width),
		height: Math.max(el.scrollHeight, rect.height)
	});
}`

const settleImagesJS = `(sel) => {
	const el = document.querySelector(sel);
	const imgs = el ? Array.from(el.querySelectorAll('img')) : [];
	const settled = imgs.map((img) => {
		if (img.complete) return Promise.resolve(img.naturalWidth > 0);
		return new Promise((resolve) => {
			img.addEventListener('load', () => resolve(true), {once: true});
			img.addEventListener('error', () => resolve(false), {once: true});
		});
	});
	const fonts = document.fonts ? document.fonts.ready : Promise.resolve();
	return Promise.all(settled).then((ok) => fonts.then(() => JSON.stringify({
		total: ok.length,
		failed: ok.filter((loaded) => !loaded).length
	})));
}`

const applyOverrideJS = `(sel, cls, css, id) => {
	const el = document.querySelector(sel);
	if (!el) return "missing";
	if (cls) el.classList.add(cls);
	if (css) {
		const style = document.createElement('style');
		style.id = id;
		style.textContent = css;
		document.head.appendChild(style);
	}
	return "ok";
}`

const restoreOverrideJS = `(sel, cls, id) => {
	const el = document.querySelector(sel);
	if (el && cls) el.classList.remove(cls);
	const style = document.getElementById(id);
	if (style) style.remove();
	return "ok";
}`

// callJS renders an expression that calls fn with args.
func callJS(fn string, args ...any) string {
	enc := make([]string, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		enc[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(enc, ", ") + ")"
}

// box is the document-space rectangle of the captured element in CSS pixels.
type box struct {
	Found  bool    `json:"found"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func measure(ctx context.Context, eval evaluator, selector string) (box, error) {
	out, err := eval(ctx, callJS(measureJS, selector))
	if err != nil {
		return box{}, errors.Wrap(errors.ErrCodeCapture, err, "measure %q", selector)
	}
	var b box
	if err := json.Unmarshal([]byte(out), &b); err != nil {
		return box{}, errors.Wrap(errors.ErrCodeCapture, err, "decode measurement of %q", selector)
	}
	if !b.Found {
		return box{}, errors.New(errors.ErrCodeCapture, "no element matches %q", selector)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return box{}, errors.New(errors.ErrCodeCapture, "element %q has zero rendered area (%.0fx%.0f)", selector, b.Width, b.Height)
	}
	return b, nil
}

// imageStats reports how many images of the subtree failed to load.
type imageStats struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

// settleImages waits until every image in the subtree has loaded or failed.
// Failed images are left out of the capture rather than failing it.
func settleImages(ctx context.Context, eval evaluator, selector string) imageStats {
	out, err := eval(ctx, callJS(settleImagesJS, selector))
	if err != nil {
		return imageStats{}
	}
	var st imageStats
	_ = json.Unmarshal([]byte(out), &st)
	return st
}
