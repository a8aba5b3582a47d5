package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/gompdf/rasterpdf/internal/parser/css"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// ExportModeClass is the class lesson plan pages style their export
// layout with.
const ExportModeClass = "pdf-export-mode"

// ThaiFontStack renders Thai and Latin glyphs with the fonts the lesson
// plans are designed for.
const ThaiFontStack = `'Sarabun', 'Noto Sans Thai', 'Arial', sans-serif`

// overrideStyleID names the temporary <style> element.
const overrideStyleID = "rasterpdf-capture-override"

// StyleOverride is a temporary change to the document applied only while
// a capture runs.
type StyleOverride struct {
	// Class is added to the captured element.
	Class string
	// FontFamily replaces the font family of every element.
	FontFamily string
	// HideSelectors are hidden during the capture.
	HideSelectors []string
	// CSS is appended verbatim.
	CSS string
}

// IsZero reports whether the override changes nothing.
func (o StyleOverride) IsZero() bool {
	return o.Class == "" && o.FontFamily == "" && len(o.HideSelectors) == 0 && strings.TrimSpace(o.CSS) == ""
}

// Stylesheet renders the CSS injected for the override.
func (o StyleOverride) Stylesheet() string {
	var b strings.Builder
	if o.FontFamily != "" {
		fmt.Fprintf(&b, "* { font-family: %s !important; -webkit-font-smoothing: antialiased; }\n", o.FontFamily)
	}
	var hidden []string
	for _, sel := range o.HideSelectors {
		if sel = strings.TrimSpace(sel); sel != "" {
			hidden = append(hidden, sel)
		}
	}
	if len(hidden) > 0 {
		fmt.Fprintf(&b, "%s { display: none !important; }\n", strings.Join(hidden, ", "))
	}
	if css := strings.TrimSpace(o.CSS); css != "" {
		b.WriteString(css)
		b.WriteByte('\n')
	}
	return b.String()
}

// Validate checks that the override renders to well-formed CSS.
func (o StyleOverride) Validate() error {
	if strings.ContainsAny(o.Class, " \t\n") {
		return errors.New(errors.ErrCodeInvalidInput, "class %q is not a single class name", o.Class)
	}
	if err := css.Validate(o.Stylesheet()); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "style override")
	}
	return nil
}

// Applier applies and removes a temporary change to shared state.
type Applier interface {
	Apply(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Scoped runs fn between a.Apply and a.Restore. Restore runs on every exit
// path: when Apply fails part way, when fn fails, when fn panics and when
// ctx is cancelled. A failed restore is reported even if fn succeeded,
// since the document is then left altered.
func Scoped(ctx context.Context, a Applier, fn func(context.Context) error) (err error) {
	restored := false
	restore := func() error {
		if restored {
			return nil
		}
		restored = true
		return a.Restore(context.WithoutCancel(ctx))
	}
	defer func() {
		if r := recover(); r != nil {
			_ = restore()
			panic(r)
		}
	}()

	if err := a.Apply(ctx); err != nil {
		if rerr := restore(); rerr != nil {
			return stderrors.Join(err, rerr)
		}
		return err
	}

	err = fn(ctx)
	if rerr := restore(); rerr != nil {
		rerr = errors.Wrap(errors.ErrCodeCapture, rerr, "restore style override")
		if err == nil {
			return rerr
		}
		return stderrors.Join(err, rerr)
	}
	return err
}

// evaluator runs a JavaScript expression in a live page and returns its
// string result.
type evaluator func(ctx context.Context, expr string) (string, error)

// domOverride applies a StyleOverride to the element matched by selector.
type domOverride struct {
	eval     evaluator
	selector string
	override StyleOverride
}

func (d *domOverride) Apply(ctx context.Context) error {
	out, err := d.eval(ctx, callJS(applyOverrideJS, d.selector, d.override.Class, d.override.Stylesheet(), overrideStyleID))
	if err != nil {
		return errors.Wrap(errors.ErrCodeCapture, err, "apply style override")
	}
	if out != "ok" {
		return errors.New(errors.ErrCodeCapture, "no element matches %q", d.selector)
	}
	return nil
}

func (d *domOverride) Restore(ctx context.Context) error {
	_, err := d.eval(ctx, callJS(restoreOverrideJS, d.selector, d.override.Class, overrideStyleID))
	return err
}

// noopApplier is used when there is nothing to override.
type noopApplier struct{}

func (noopApplier) Apply(context.Context) error   { return nil }
func (noopApplier) Restore(context.Context) error { return nil }

func newApplier(eval evaluator, selector string, o StyleOverride) Applier {
	if o.IsZero() {
		return noopApplier{}
	}
	return &domOverride{eval: eval, selector: selector, override: o}
}
