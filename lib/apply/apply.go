// Package apply resolves the placeholders of one artboard and writes back the
// values that changed.
package apply

import (
	"context"
	"time"

	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/state"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PaginationRegistrar records pagination placeholders met during other passes.
type PaginationRegistrar interface {
	Register(st *state.DocumentEngineState, entry state.PaginationEntry) bool
}

type Options struct {
	Location    *time.Location
	Concurrency int
	// Persist is called after image seeds were claimed and before any image is
	// rendered.
	Persist func(st *state.DocumentEngineState) error
}

type Applier struct {
	registry   *placeholder.Registry
	renderer   *ImageRenderer
	pagination PaginationRegistrar
	options    Options
	logger     *zap.SugaredLogger
}

func NewApplier(registry *placeholder.Registry, renderer *ImageRenderer, pagination PaginationRegistrar, options Options, logger *zap.SugaredLogger) *Applier {
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 4
	}
	return &Applier{registry: registry, renderer: renderer, pagination: pagination, options: options, logger: logger}
}

// Pass describes one resolution pass over an artboard.
type Pass struct {
	Document host.Mutator
	Artboard host.Layer
	Time     time.Time
	Kind     placeholder.Category
	Save     host.SaveEvent
}

// target is one placeholder instance: a layer or an override point of a layer.
type target struct {
	layer   host.Layer
	point   *host.OverridePoint
	token   placeholder.Token
	current string
}

func (t target) seedKey() string {
	if t.point != nil {
		return t.layer.ID() + "/" + t.point.Name
	}
	return t.layer.ID()
}

func (t target) outcome(status Status, reason string) Outcome {
	o := Outcome{LayerID: t.layer.ID(), Token: t.token.Name, Status: status, Reason: reason}
	if t.point != nil {
		o.Point = t.point.Name
	}
	return o
}

// job is a planned write. Plans are made sequentially so counters and seed
// claims are decided in document order; the writes themselves run concurrently.
type job struct {
	target
	index int
	value string
	image bool
}

// ApplyPlaceholders walks the direct children of the artboard and their
// override points, resolves every placeholder of the pass kind and writes the
// values that differ from the current ones. All writes are awaited.
func (a *Applier) ApplyPlaceholders(ctx context.Context, st *state.DocumentEngineState, pass Pass) Report {
	report := Report{ArtboardID: pass.Artboard.ID(), Kind: pass.Kind}
	ts := pass.Time.In(a.options.Location)
	artboardID := pass.Artboard.ID()
	incrementAllowed := !st.IncrementGuard.Has(artboardID)
	incremented := false
	seedsClaimed := false

	var jobs []job
	for _, t := range a.targets(pass.Artboard) {
		switch {
		case t.token.Category == placeholder.SaveDriven && pass.Kind == placeholder.ChangeDriven:
			st.SaveDeferred.Add(artboardID)
			st.Meta.SaveDiscovered = true
			report.Outcomes = append(report.Outcomes, t.outcome(Deferred, "resolved on save"))
			continue
		case t.token.Category == placeholder.PaginationDriven:
			if st.Pagination.IsIndexed && a.pagination != nil {
				entry := state.PaginationEntry{Token: t.token.Name, ObjectID: t.layer.ID(), ArtboardID: artboardID}
				if t.point != nil {
					entry.Point = t.point.Name
				}
				if a.pagination.Register(st, entry) {
					a.logger.Debugw("registered pagination placeholder", "token", t.token.Name, "layer", t.layer.ID())
				}
			}
			continue
		case t.token.Category != pass.Kind:
			continue
		}

		rctx := &placeholder.Context{
			Time:         ts,
			CurrentValue: t.current,
			ArtboardName: pass.Artboard.Name(),
			Save:         pass.Save,
		}

		if t.token.Kind == placeholder.KindImage {
			seed := t.token.Resolve(rctx)
			key := t.seedKey()
			if st.ImageSeeds[key] == seed {
				report.Outcomes = append(report.Outcomes, t.outcome(Unchanged, "seed unchanged"))
				continue
			}
			if t.point == nil && t.layer.FillCount() == 0 {
				report.Outcomes = append(report.Outcomes, t.outcome(Skipped, "no fill"))
				continue
			}
			st.ImageSeeds[key] = seed
			seedsClaimed = true
			jobs = append(jobs, job{target: t, index: len(report.Outcomes), value: seed, image: true})
			report.Outcomes = append(report.Outcomes, t.outcome(Applied, ""))
			continue
		}

		if t.token.Kind == placeholder.KindCounter && pass.Kind == placeholder.ChangeDriven && !incrementAllowed {
			report.Outcomes = append(report.Outcomes, t.outcome(Unchanged, "already incremented this save cycle"))
			continue
		}
		value := t.token.Resolve(rctx)
		if value == t.current {
			report.Outcomes = append(report.Outcomes, t.outcome(Unchanged, ""))
			continue
		}
		if t.token.Kind == placeholder.KindCounter && pass.Kind == placeholder.ChangeDriven {
			incremented = true
		}
		jobs = append(jobs, job{target: t, index: len(report.Outcomes), value: value})
		report.Outcomes = append(report.Outcomes, t.outcome(Applied, ""))
	}

	if incremented {
		st.IncrementGuard.Add(artboardID)
	}
	if seedsClaimed && a.options.Persist != nil {
		if err := a.options.Persist(st); err != nil {
			a.logger.Warnw("could not persist image seeds", "artboard", artboardID, "error", err)
		}
	}

	a.write(ctx, pass.Document, jobs, report.Outcomes)
	for _, j := range jobs {
		if j.image && report.Outcomes[j.index].Status == Failed {
			delete(st.ImageSeeds, j.seedKey())
		}
	}
	return report
}

func (a *Applier) targets(artboard host.Layer) []target {
	var out []target
	for _, child := range artboard.Children() {
		if token, ok := a.registry.Lookup(child.Name(), placeholder.FilterAll); ok {
			out = append(out, target{layer: child, token: token, current: child.StringValue()})
		}
		points := child.OverridePoints()
		for i := range points {
			token, ok := a.registry.Lookup(points[i].LayerName, placeholder.FilterAll)
			if !ok {
				continue
			}
			out = append(out, target{layer: child, point: &points[i], token: token, current: points[i].Value})
		}
	}
	return out
}

func (a *Applier) write(ctx context.Context, doc host.Mutator, jobs []job, outcomes []Outcome) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.options.Concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			value, err := a.perform(ctx, doc, j)
			if err != nil {
				outcomes[j.index].Status = Failed
				outcomes[j.index].Err = err
				outcomes[j.index].Reason = err.Error()
				a.logger.Warnw("placeholder write failed", "layer", j.layer.ID(), "token", j.token.Name, "error", err)
				return nil // keep the other writes going
			}
			outcomes[j.index].Value = value
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Applier) perform(ctx context.Context, doc host.Mutator, j job) (string, error) {
	if !j.image {
		if j.point != nil {
			return j.value, doc.SetOverrideValue(ctx, j.layer.ID(), j.point.Name, j.value)
		}
		return j.value, doc.SetStringValue(ctx, j.layer.ID(), j.value)
	}

	image, err := a.renderer.Render(ctx, j.value)
	if err != nil {
		return "", err
	}
	if j.point != nil {
		return j.value, doc.SetOverrideImage(ctx, j.layer.ID(), j.point.Name, image)
	}
	return j.value, doc.SetFillImage(ctx, j.layer.ID(), image)
}
