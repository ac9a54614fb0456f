package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"cnext/internal/codegen"
	"cnext/internal/diag"
	"cnext/internal/headers"
	"cnext/internal/helpers"
	"cnext/internal/observ"
	"cnext/internal/project"
	"cnext/internal/source"
	"cnext/internal/symbols"
)

// Options configures one backend run.
type Options struct {
	// InputDir is scanned recursively for serialized tree documents.
	InputDir string
	// OutDir receives the generated sources. Nothing is written when any
	// file carries an error diagnostic.
	OutDir string
	// Config is the loaded project file; nil means defaults.
	Config *project.Config
	// Jobs bounds generation parallelism; zero or negative means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps each file's diagnostic bag.
	MaxDiagnostics int
}

// FileResult is everything one input file produced.
type FileResult struct {
	Path string
	Unit string
	Bag  *diag.Bag

	// Output is nil when declaration or generation failed.
	Output    *codegen.Output
	HeaderC   string
	HeaderCPP string
}

// Result is the outcome of a backend run.
type Result struct {
	Files []FileResult
	// FileSet resolves diagnostic positions back to paths.
	FileSet *source.FileSet
	// Bag holds project-level diagnostics not tied to one file.
	Bag *diag.Bag
	// Runtime is the synthesized helper header, empty when nothing demanded
	// a helper.
	Runtime string
	// Written lists the paths written to OutDir, in write order. Empty when
	// diagnostics suppressed output.
	Written []string
	// Timings records per-phase wall time for the run.
	Timings observ.Report
}

// HasErrors reports whether any bag in the result carries an error.
func (r *Result) HasErrors() bool {
	if r.Bag.HasErrors() {
		return true
	}
	for i := range r.Files {
		if r.Files[i].Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Build runs the whole backend: load every tree document, declare all files
// into one registry, generate each file in parallel against the read-only
// registry, merge helper demands deterministically, render the unit headers,
// and write the output tree only when no file errored.
func Build(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = project.Default()
	}
	res := &Result{
		Bag:     diag.NewBag(opts.MaxDiagnostics),
		FileSet: source.NewFileSet(),
	}
	timer := observ.NewTimer()
	defer func() { res.Timings = timer.Report() }()

	phase := timer.Begin("load")
	paths, err := listTreeFiles(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", opts.InputDir, err)
	}
	if len(paths) == 0 {
		return res, nil
	}

	fset := res.FileSet
	files, err := loadAll(paths, fset)
	if err != nil {
		return nil, err
	}
	timer.End(phase, fmt.Sprintf("%d files", len(files)))

	res.Files = make([]FileResult, len(files))
	for i, f := range files {
		res.Files[i] = FileResult{
			Path: f.Path,
			Unit: f.Unit,
			Bag:  diag.NewBag(opts.MaxDiagnostics),
		}
	}

	// Declaration pass, sequential and in sorted file order: the registry
	// contents must not depend on scheduling.
	phase = timer.Begin("declare")
	reg := symbols.NewTable(symbols.Hints{}, source.NewInterner())
	reg.SetEntryPoint(cfg.Entry)
	for i, f := range files {
		DeclareFile(reg, f, res.Files[i].Bag)
	}
	for i, f := range files {
		CheckTypes(reg, f, cfg.Headers, res.Files[i].Bag)
	}
	CheckEntry(reg, cfg.Entry, res.Bag)
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}

	mut := codegen.NewMutTable()
	SeedMutations(reg, mut)
	timer.End(phase, fmt.Sprintf("%d symbols", reg.Symbols.Len()))

	// Generation: the registry and mutation table are frozen now, so each
	// file runs independently. Indexes are unique per goroutine.
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	genOpts := codegen.Options{
		Mode:      cfg.Mode(),
		Entry:     cfg.Entry,
		HeaderFor: cfg.Headers,
	}

	phase = timer.Begin("generate")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if res.Files[i].Bag.HasErrors() {
				return nil
			}
			o := codegen.New(reg, mut, genOpts)
			out, err := o.GenerateFile(f)
			if err != nil {
				addDiagnostic(res.Files[i].Bag, err)
				return nil
			}
			res.Files[i].Output = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	timer.End(phase, fmt.Sprintf("%d jobs", min(jobs, len(files))))

	// Demand merge in sorted file order keeps the helper unit identical
	// across runs and across -jobs values.
	phase = timer.Begin("headers")
	demands := helpers.NewSet()
	for i := range res.Files {
		if out := res.Files[i].Output; out != nil {
			demands.Merge(out.Demands)
		}
	}
	synth := &helpers.Synthesizer{Mode: cfg.Mode()}
	res.Runtime = synth.Emit(demands)

	hg := headers.New(reg, mut, headers.Options{
		Entry:     cfg.Entry,
		HeaderFor: cfg.Headers,
	})
	for i, f := range files {
		fr := &res.Files[i]
		if fr.Output == nil {
			continue
		}
		hc, hcpp, err := hg.Unit(f, fr.Output)
		if err != nil {
			addDiagnostic(fr.Bag, err)
			fr.Output = nil
			continue
		}
		fr.HeaderC, fr.HeaderCPP = hc, hcpp
	}
	timer.End(phase, fmt.Sprintf("%d helpers", demands.Len()))

	if res.HasErrors() || opts.OutDir == "" {
		return res, nil
	}
	phase = timer.Begin("write")
	written, err := writeOutputs(opts.OutDir, res)
	if err != nil {
		return res, err
	}
	res.Written = written
	timer.End(phase, fmt.Sprintf("%d outputs", len(written)))
	return res, nil
}

// addDiagnostic files an error into a bag, preserving the structured form
// when the error carries one.
func addDiagnostic(bag *diag.Bag, err error) {
	var ge *codegen.GenError
	if errors.As(err, &ge) {
		bag.Add(ge.Diagnostic())
		return
	}
	var hd interface{ Diagnostic() diag.Diagnostic }
	if errors.As(err, &hd) {
		bag.Add(hd.Diagnostic())
		return
	}
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.GenUnsupportedNode,
		Message:  err.Error(),
	})
}
