// Package driver runs batches of constant conversions.  Each request is
// independent, so the batch fans out across workers; results come back in
// request order.
package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"bitsmith/internal/conv"
	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
)

// Request names one constant and the initializer to materialize for it.
type Request struct {
	Name string
	Init expr.Expr

	// AlignBits overrides the declared type's ABI alignment when nonzero.
	AlignBits int
}

// Result is the outcome for one request.
type Result struct {
	Name  string
	Sym   cval.SymID
	Value cval.Value

	// Bytes is the flattened storage image.  Nil when the value contains
	// link-time addresses, which have no bits until relocation.
	Bytes []byte

	Bag *diag.Bag
}

// Status is the lifecycle of one request inside a batch.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports batch progress for interactive front ends.
type Event struct {
	Constant string
	Status   Status
}

// Options tunes a batch run.
type Options struct {
	// Jobs caps worker parallelism; zero means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the bag of each request.
	MaxDiagnostics int
	// Events receives progress updates when non-nil.  Materialize closes
	// the channel when the batch is over.
	Events chan<- Event
}

// Materialize converts every request against one converter.  A failed
// request reports through its bag and leaves Value nil; the batch itself
// only fails on cancellation.
func Materialize(ctx context.Context, c *conv.Converter, reqs []Request, opts Options) ([]Result, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiags := opts.MaxDiagnostics
	if maxDiags == 0 {
		maxDiags = 64
	}

	// Declare every symbol up front so initializers can take each other's
	// addresses regardless of conversion order.
	syms := make([]cval.SymID, len(reqs))
	for i, req := range reqs {
		align := req.AlignBits
		if align == 0 {
			align = c.Layout.ABIAlignmentBits(req.Init.Type())
		}
		syms[i] = c.Syms.Declare(req.Name, req.Init.Type(), align)
	}

	emit := func(name string, st Status) {
		if opts.Events != nil {
			opts.Events <- Event{Constant: name, Status: st}
		}
	}
	if opts.Events != nil {
		defer close(opts.Events)
	}

	results := make([]Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(reqs), 1)))

	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			emit(req.Name, StatusWorking)
			bag := diag.NewBag(maxDiags)
			res := Result{Name: req.Name, Sym: syms[i], Bag: bag}

			v, err := c.ConvertInitializer(req.Init)
			if err != nil {
				addFailure(bag, req.Name, err)
				results[i] = res
				emit(req.Name, StatusError)
				return nil
			}
			res.Value = v
			c.Syms.Define(syms[i], v)

			img, err := ImageBytes(c, v)
			if err != nil {
				// Relocatable contents are not an error, the image is
				// just not available yet.
				bag.Add(diag.Diagnostic{
					Severity: diag.SevWarning,
					Code:     failureCode(err),
					Constant: req.Name,
					Message:  err.Error(),
				})
			} else {
				res.Bytes = img
			}

			results[i] = res
			emit(req.Name, StatusDone)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// ImageBytes flattens a converted value into its storage image, with
// undefined bytes read as zero.
func ImageBytes(c *conv.Converter, v cval.Value) (out []byte, err error) {
	defer diag.Recover(&err)
	units := c.Layout.AllocSizeBits(v.Type()) / 8
	out = make([]byte, units)
	if units == 0 {
		return out, nil
	}
	flat := c.View.InterpretAsType(v, c.Types.UnitArray(uint32(units)), 0)
	switch flat := flat.(type) {
	case *cval.Undef:
	case *cval.Array:
		for i, e := range flat.Elems {
			switch e := e.(type) {
			case *cval.Int:
				out[i] = byte(e.V.Uint64())
			case *cval.Undef:
			default:
				diag.Failf(diag.ConvRelocatable, "byte %d is not concrete", i)
			}
		}
	default:
		diag.Failf(diag.ConvUnsupportedKind, "unexpected image shape")
	}
	return out, nil
}

func addFailure(bag *diag.Bag, name string, err error) {
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     failureCode(err),
		Constant: name,
		Message:  err.Error(),
	})
}

func failureCode(err error) diag.Code {
	if f, ok := err.(*diag.Failure); ok {
		return f.Code
	}
	return diag.UnknownCode
}
