package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gompdf/rasterpdf/internal/capture"
	"github.com/gompdf/rasterpdf/internal/config"
	"github.com/gompdf/rasterpdf/internal/filename"
	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/internal/parser/html"
	"github.com/gompdf/rasterpdf/internal/res"
	"github.com/gompdf/rasterpdf/internal/store"
	"github.com/gompdf/rasterpdf/pkg/api"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// defaultSelector captures the whole body when no element is named.
const defaultSelector = "body"

// exportOpts holds the flags of the export command.
type exportOpts struct {
	configPath string
	selector   string
	id         string
	output     string // file name, path, or "-" for stdout
	dir        string
	title      string
	subject    string
	scale      float64
	quality    float64
	format     string
	landscape  bool
	fit        string
	backend    string
	font       string
	class      string
	hide       []string
	searchPath []string
	lessonPlan bool
	timeout    time.Duration
	dryRun     bool
	verify     bool
}

func newExportCmd() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export <url-or-file>",
		Short: "Capture an element and write it as a PDF",
		Long: `Capture the element selected by --selector (or --id) in the page at
<url-or-file>, scale it to the page width and write it over as many pages
as it needs. With --backend image the argument is an already rendered image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.StringVarP(&opts.selector, "selector", "s", "", "CSS selector of the element to capture (default body)")
	f.StringVar(&opts.id, "id", "", "id of the element to capture")
	f.StringVarP(&opts.output, "output", "o", "", `output file name or path, "-" for stdout`)
	f.StringVar(&opts.dir, "dir", "", "output directory")
	f.StringVar(&opts.title, "title", "", "document title (default: the page <title>)")
	f.StringVar(&opts.subject, "subject", "", "document subject")
	f.Float64Var(&opts.scale, "scale", 0, "capture magnification (default 1.5)")
	f.Float64Var(&opts.quality, "quality", 0, "JPEG quality in (0, 1] (default 0.95)")
	f.StringVar(&opts.format, "format", "", "page format: A3, A4, A5, Letter, Legal")
	f.BoolVar(&opts.landscape, "landscape", false, "landscape pages")
	f.StringVar(&opts.fit, "fit", "", `scaling: "width" fills the page width, "page" fits everything on one page`)
	f.StringVar(&opts.backend, "backend", "", "renderer: chrome, rod or image")
	f.StringVar(&opts.font, "font", "", `font family forced while capturing ("thai" for the Thai stack)`)
	f.StringVar(&opts.class, "class", "", "class added to the element while capturing")
	f.StringSliceVar(&opts.hide, "hide", nil, "selectors hidden while capturing")
	f.StringSliceVar(&opts.searchPath, "search-path", nil, "directories searched for image sources (image backend)")
	f.BoolVar(&opts.lessonPlan, "lesson-plan", false, "apply the lesson plan export styling")
	f.DurationVar(&opts.timeout, "timeout", 0, "abort the export after this long")
	f.BoolVar(&opts.dryRun, "dry-run", false, "capture and print the page layout without writing a PDF")
	f.BoolVar(&opts.verify, "verify", false, "read the PDF back and check its page count")
	cmd.MarkFlagsMutuallyExclusive("selector", "id")

	return cmd
}

func runExport(cmd *cobra.Command, source string, opts *exportOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg, opts); err != nil {
		return err
	}
	if cfg.Browser.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Browser.Timeout)
		defer cancel()
	}

	ref, err := contentRef(source, cfg.Browser.Backend, opts)
	if err != nil {
		return err
	}

	title := opts.title
	if cfg.Browser.Backend != config.BackendImage && (title == "" || opts.id != "") {
		doc := readDocument(ctx, logger, source)
		if doc != nil && title == "" {
			title = doc.Title()
		}
		// A local page that lacks the element would only fail after the
		// browser started.
		if doc != nil && opts.id != "" && res.IsLocal(source) {
			if err := checkElement(logger, doc, opts.id); err != nil {
				return err
			}
		}
	}

	dir, name := cfg.Output.Dir, opts.output
	if name != "" && name != "-" && strings.ContainsAny(name, `/\`) {
		dir, name = filepath.Dir(name), filepath.Base(name)
	}

	exp, err := newExporter(cfg, dir, logger)
	if err != nil {
		return err
	}
	req := api.ExportRequest{
		Content:       ref,
		OutputName:    name,
		Title:         title,
		Subject:       opts.subject,
		Magnification: cfg.Capture.Scale,
		ImageQuality:  cfg.Capture.Quality,
	}

	out := cmd.OutOrStdout()
	p := newProgress(logger)
	logger.Info("Exporting", "content", ref.String(), "backend", cfg.Browser.Backend)

	if opts.dryRun {
		plan, err := exp.Plan(ctx, req)
		if err != nil {
			return err
		}
		printPlan(out, plan)
		p.done("Planned", "pages", len(plan.Slices))
		return nil
	}

	if name == "-" {
		result, err := exp.ExportTo(ctx, req, out)
		if err != nil {
			return err
		}
		p.done("Exported", "pages", result.Pages, "bytes", result.Size)
		return nil
	}

	result, err := exp.Export(ctx, req)
	if err != nil {
		return err
	}
	p.done("Exported", "pages", result.Pages, "bytes", result.Size)
	fmt.Fprintf(out, "%s\t%d pages\t%d bytes\n", result.Location, result.Pages, result.Size)
	return nil
}

// applyFlags overlays explicitly set flags onto the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *exportOpts) error {
	set := cmd.Flags().Changed
	if set("backend") {
		cfg.Browser.Backend = opts.backend
	}
	if set("format") {
		cfg.Page.Format = opts.format
	}
	if set("landscape") {
		cfg.Page.Orientation = string(geometry.Portrait)
		if opts.landscape {
			cfg.Page.Orientation = string(geometry.Landscape)
		}
	}
	if set("fit") {
		cfg.Page.Fit = opts.fit
	}
	if set("scale") {
		cfg.Capture.Scale = opts.scale
	}
	if set("quality") {
		cfg.Capture.Quality = opts.quality
	}
	if opts.lessonPlan {
		o := api.LessonPlanOverride()
		cfg.Capture.Class, cfg.Capture.Font = o.Class, o.FontFamily
		cfg.Capture.Hide = append(cfg.Capture.Hide, o.HideSelectors...)
	}
	if set("font") {
		cfg.Capture.Font = opts.font
		if strings.EqualFold(opts.font, "thai") {
			cfg.Capture.Font = capture.ThaiFontStack
		}
	}
	if set("class") {
		cfg.Capture.Class = opts.class
	}
	if set("hide") {
		cfg.Capture.Hide = append(cfg.Capture.Hide, opts.hide...)
	}
	if set("search-path") {
		cfg.Capture.SearchPaths = append(cfg.Capture.SearchPaths, opts.searchPath...)
	}
	if set("timeout") {
		cfg.Browser.Timeout = opts.timeout
	}
	if set("dir") {
		cfg.Output.Dir = opts.dir
	}
	if set("verify") {
		cfg.Output.Verify = opts.verify
	}
	if cfg.Capture.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "--scale must be positive, got %v", cfg.Capture.Scale)
	}
	if cfg.Capture.Quality <= 0 || cfg.Capture.Quality > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "--quality must be in (0, 1], got %v", cfg.Capture.Quality)
	}
	return cfg.Validate()
}

func contentRef(source, backend string, opts *exportOpts) (capture.ContentRef, error) {
	if backend == config.BackendImage {
		return capture.ContentRef{URL: source}, nil
	}
	u, err := res.NavigableURL(source)
	if err != nil {
		return capture.ContentRef{}, err
	}
	switch {
	case opts.id != "":
		return capture.ElementRef(u, opts.id), nil
	case opts.selector != "":
		return capture.ContentRef{URL: u, Selector: opts.selector}, nil
	}
	return capture.ContentRef{URL: u, Selector: defaultSelector}, nil
}

// readDocument parses the page at source. A page that cannot be read
// yields nil; the capture reports the real failure.
func readDocument(ctx context.Context, logger *log.Logger, source string) *html.Document {
	r, err := res.NewLoader("").LoadHTML(ctx, source)
	if err != nil {
		logger.Debug("document not read", "source", source, "error", err)
		return nil
	}
	doc, err := html.Parse(r.Reader())
	if err != nil {
		logger.Debug("document not parsed", "source", source, "error", err)
		return nil
	}
	return doc
}

// maxListedIDs bounds the ids quoted in a missing element error.
const maxListedIDs = 10

func checkElement(logger *log.Logger, doc *html.Document, id string) error {
	el, ok := doc.ElementByID(id)
	if !ok {
		ids := doc.IDs()
		if len(ids) > maxListedIDs {
			ids = append(ids[:maxListedIDs:maxListedIDs], "...")
		}
		if len(ids) == 0 {
			return errors.New(errors.ErrCodeCapture, "no element with id %q: the document has no ids", id)
		}
		return errors.New(errors.ErrCodeCapture, "no element with id %q, document ids: %s", id, strings.Join(ids, ", "))
	}
	images := el.Images()
	if el.Text() == "" && len(images) == 0 {
		logger.Warn("Element has no text or images", "id", id, "tag", el.Tag())
	}
	logger.Debug("Element found", "id", id, "tag", el.Tag(), "images", len(images))
	return nil
}

func newExporter(cfg *config.Config, dir string, logger *log.Logger) (*api.Exporter, error) {
	format, err := cfg.PageFormat()
	if err != nil {
		return nil, err
	}
	fit, err := geometry.ParseFitMode(cfg.Page.Fit)
	if err != nil {
		return nil, err
	}
	bg, err := cfg.Capture.BackgroundColor()
	if err != nil {
		return nil, err
	}
	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		return nil, err
	}

	var sink store.Sink = store.NewFileSink(dir)
	if cfg.Output.S3.Enabled() {
		s, err := store.NewMinioSink(cfg.Output.S3)
		if err != nil {
			return nil, err
		}
		sink = s
	}

	resolver := filename.Default()
	resolver.Prefix = cfg.Output.Prefix

	opts := []api.Option{
		api.WithPageFormat(format),
		api.WithOrientation(format.Orientation()),
		api.WithFit(fit),
		api.WithMagnification(cfg.Capture.Scale),
		api.WithImageQuality(cfg.Capture.Quality),
		api.WithBackground(bg),
		api.WithStyleOverride(cfg.Capture.Override()),
		api.WithCrossOrigin(cfg.Browser.AllowCrossOrigin),
		api.WithRenderer(renderer),
		api.WithSink(sink),
		api.WithVerify(cfg.Output.Verify),
		api.WithFilenameResolver(resolver),
		api.WithAuthor(cfg.Document.Author),
		api.WithKeywords(cfg.Document.Keywords),
		api.WithLogger(logger),
	}
	if cfg.Document.Creator != "" {
		opts = append(opts, api.WithCreator(cfg.Document.Creator))
	}
	return api.New(opts...), nil
}

func newRenderer(cfg *config.Config, logger *log.Logger) (capture.Renderer, error) {
	bc := capture.BrowserConfig{
		RemoteURL:      cfg.Browser.Remote,
		ExecPath:       cfg.Browser.ExecPath,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		NoSandbox:      cfg.Browser.NoSandbox,
		Logger:         logger,
	}
	switch cfg.Browser.Backend {
	case config.BackendChrome:
		return capture.NewChromeRenderer(bc), nil
	case config.BackendRod:
		return capture.NewRodRenderer(bc), nil
	case config.BackendImage:
		return capture.NewImageRenderer(cfg.Capture.Loader()), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown backend %q", cfg.Browser.Backend)
}

func printPlan(w io.Writer, p *api.Plan) {
	fmt.Fprintf(w, "file:     %s\n", p.Filename)
	fmt.Fprintf(w, "raster:   %dx%d px\n", p.RasterWidth, p.RasterHeight)
	fmt.Fprintf(w, "page:     %s %.1fx%.1f mm\n", p.Format.Name, p.Format.Width, p.Format.Height)
	fmt.Fprintf(w, "geometry: %s\n", p.Geometry)
	fmt.Fprintf(w, "pages:    %d\n", len(p.Slices))
	for _, s := range p.Slices {
		fmt.Fprintf(w, "  %3d  rows %6d-%-6d  %.1f mm\n", s.Index+1, s.SourceY, s.End(), s.PlacedHeight)
	}
}
