// Package engine wires the classifier, the throttle, the applier and the
// pagination indexer to the host's document events.
//
// An Engine is not safe for concurrent use. Every event handler and every
// scheduler callback must run on one logical thread, see Loop.
package engine

import (
	"context"
	"time"

	"github.com/ether/lastupdated-go/lib/apply"
	"github.com/ether/lastupdated-go/lib/classifier"
	"github.com/ether/lastupdated-go/lib/exception"
	"github.com/ether/lastupdated-go/lib/hooks"
	"github.com/ether/lastupdated-go/lib/hooks/events"
	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/metrics"
	"github.com/ether/lastupdated-go/lib/pagination"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/state"
	"github.com/ether/lastupdated-go/lib/throttle"
	"go.uber.org/zap"
)

type Options struct {
	Location     *time.Location
	HiddenPrefix string
	MovePolicy   classifier.MovePolicy
	Throttle     throttle.Options
	Renderer     apply.RendererOptions
	// Exporter renders identicons; nil uses the built-in PNG exporter.
	Exporter         host.BitmapExporter
	WriteConcurrency int
	// ResetOnClose drops the persisted state of a document when it is closed.
	ResetOnClose bool
	Now          func() time.Time
}

type Engine struct {
	registry   *placeholder.Registry
	classifier *classifier.Classifier
	throttle   *throttle.Store
	applier    *apply.Applier
	indexer    *pagination.Indexer
	states     *state.Manager
	hooks      *hooks.Hook
	metrics    *metrics.Metrics
	options    Options
	logger     *zap.SugaredLogger

	docs    map[string]host.Document
	saves   map[string]host.SaveEvent
	resumed map[string]bool
}

// New builds an engine. hook and m may be nil.
func New(registry *placeholder.Registry, states *state.Manager, scheduler host.Scheduler, hook *hooks.Hook, m *metrics.Metrics, options Options, logger *zap.SugaredLogger) (*Engine, error) {
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	renderer, err := apply.NewImageRenderer(options.Exporter, options.Renderer)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		registry:   registry,
		classifier: classifier.New(registry, options.MovePolicy, logger),
		throttle:   throttle.New(scheduler, options.Throttle, logger),
		indexer:    pagination.NewIndexer(registry, options.HiddenPrefix, logger),
		states:     states,
		hooks:      hook,
		metrics:    m,
		options:    options,
		logger:     logger,
		docs:       map[string]host.Document{},
		saves:      map[string]host.SaveEvent{},
		resumed:    map[string]bool{},
	}
	e.applier = apply.NewApplier(registry, renderer, e.indexer, apply.Options{
		Location:    options.Location,
		Concurrency: options.WriteConcurrency,
		Persist:     states.Flush,
	}, logger)
	e.throttle.OnDue(e.handleDue)
	return e, nil
}

// open loads the state of doc and remembers the document for scheduled passes.
// Entries persisted by an earlier process are rescheduled once.
func (e *Engine) open(doc host.Document) (*state.DocumentEngineState, error) {
	st, err := e.states.Load(doc.ID())
	if err != nil {
		return nil, err
	}
	e.docs[doc.ID()] = doc
	if !e.resumed[doc.ID()] {
		e.resumed[doc.ID()] = true
		if ids := e.throttle.Resume(st); len(ids) > 0 {
			e.logger.Infow("resumed pending artboards", "document", doc.ID(), "artboards", ids)
		}
	}
	return st, nil
}

func (e *Engine) flush(st *state.DocumentEngineState) {
	if err := e.states.Flush(st); err != nil {
		e.logger.Warnw("could not persist engine state", "document", st.DocumentID, "error", err)
	}
	e.metrics.Scheduled(e.throttle.Scheduled())
}

// OnDocumentChanged classifies a batch of change records, schedules the
// touched artboards and keeps the pagination index in step with artboard
// topology.
func (e *Engine) OnDocumentChanged(ctx context.Context, doc host.Document, changes []host.Change) error {
	st, err := e.open(doc)
	if err != nil {
		return err
	}
	now := e.options.Now()

	var touches []throttle.Touch
	seen := map[string]bool{}
	topology := false
	var added []classifier.Result
	for i, res := range e.classifier.ClassifyBatch(changes, doc) {
		switch {
		case res.SelfInflicted:
			e.metrics.Change("selfInflicted")
			e.hooks.ExecuteHooks(hooks.ChangeDiscarded, &events.ChangeDiscardedContext{
				DocumentID: doc.ID(), Path: changes[i].FullPath, Reason: res.Reason,
			})
			continue
		case res.Indeterminate:
			e.metrics.Change("indeterminate")
		case res.Artboard == nil:
			e.metrics.Change("unowned")
		default:
			e.metrics.Change("relevant")
		}

		if res.Artboard != nil && !seen[res.Artboard.ID()] {
			seen[res.Artboard.ID()] = true
			touches = append(touches, throttle.Touch{ArtboardID: res.Artboard.ID(), At: now, Handle: res.Artboard})
		}
		switch res.Trigger {
		case classifier.TriggerTopology:
			topology = true
		case classifier.TriggerPlaceholderAdded:
			added = append(added, res)
		}
	}

	for _, id := range e.throttle.RecordChanges(st, placeholder.ChangeDriven, touches) {
		e.hooks.ExecuteHooks(hooks.ArtboardScheduled, &events.ArtboardScheduledContext{
			DocumentID: doc.ID(), ArtboardID: id, Kind: placeholder.ChangeDriven.String(), At: now,
		})
	}

	if topology {
		e.indexer.Invalidate(st)
	} else {
		for _, res := range added {
			e.registerAdded(st, res)
		}
	}
	if topology || len(added) > 0 {
		e.updatePagination(ctx, doc, st)
	}
	e.flush(st)
	return nil
}

// registerAdded puts a freshly inserted pagination placeholder into a built
// index. Only direct children of an artboard are placeholders.
func (e *Engine) registerAdded(st *state.DocumentEngineState, res classifier.Result) {
	if res.Artboard == nil || res.Object == nil {
		return
	}
	parent := res.Object.Parent()
	if parent == nil || parent.ID() != res.Artboard.ID() {
		return
	}
	token, ok := e.registry.Lookup(res.Object.Name(), placeholder.FilterPagination)
	if !ok {
		return
	}
	e.indexer.Register(st, state.PaginationEntry{Token: token.Name, ObjectID: res.Object.ID(), ArtboardID: res.Artboard.ID()})
}

// OnDocumentSaved starts a new save cycle: the increment guard is cleared,
// seeds of deleted layers are dropped and every artboard known to hold save-driven placeholders is scheduled for a
// save pass.
func (e *Engine) OnDocumentSaved(ctx context.Context, doc host.Document, save host.SaveEvent) error {
	st, err := e.open(doc)
	if err != nil {
		return err
	}
	e.saves[doc.ID()] = save
	st.IncrementGuard = state.IDSet{}
	if n := st.PruneImageSeeds(func(id string) bool {
		_, ok := doc.LayerByID(id)
		return ok
	}); n > 0 {
		e.logger.Debugw("image seeds pruned", "document", doc.ID(), "seeds", n)
	}

	if !st.Meta.SaveDiscovered {
		e.discoverSaveArtboards(doc, st)
	}

	now := e.options.Now()
	ids := st.SaveDeferred.Sorted()
	touches := make([]throttle.Touch, 0, len(ids))
	for _, id := range ids {
		touches = append(touches, throttle.Touch{ArtboardID: id, At: now})
	}
	for _, id := range e.throttle.RecordChanges(st, placeholder.SaveDriven, touches) {
		e.hooks.ExecuteHooks(hooks.ArtboardScheduled, &events.ArtboardScheduledContext{
			DocumentID: doc.ID(), ArtboardID: id, Kind: placeholder.SaveDriven.String(), At: now,
		})
	}
	e.flush(st)
	return nil
}

// discoverSaveArtboards scans the current page once for save-driven
// placeholders, for documents whose save artboards were never seen by a
// change pass.
func (e *Engine) discoverSaveArtboards(doc host.Document, st *state.DocumentEngineState) {
	page := doc.CurrentPage()
	if page != nil {
		for _, ab := range doc.Artboards(page) {
			if e.hasSaveToken(ab) {
				st.SaveDeferred.Add(ab.ID())
			}
		}
	}
	st.Meta.SaveDiscovered = true
	e.logger.Debugw("save artboards discovered", "document", doc.ID(), "artboards", st.SaveDeferred.Sorted())
}

func (e *Engine) hasSaveToken(artboard host.Layer) bool {
	for _, child := range artboard.Children() {
		if _, ok := e.registry.Lookup(child.Name(), placeholder.FilterSave); ok {
			return true
		}
		for _, p := range child.OverridePoints() {
			if _, ok := e.registry.Lookup(p.LayerName, placeholder.FilterSave); ok {
				return true
			}
		}
	}
	return false
}

// handleDue runs the passes whose window elapsed. The state is re-read here,
// never captured when the pass was scheduled.
func (e *Engine) handleDue(documentID string) {
	doc, ok := e.docs[documentID]
	if !ok {
		e.logger.Debugw("window elapsed for a closed document", "document", documentID)
		return
	}
	st, err := e.states.Load(documentID)
	if err != nil {
		e.logger.Warnw("could not load engine state", "document", documentID, "error", err)
		return
	}

	ctx := context.Background()
	for _, due := range e.throttle.DrainDue(st) {
		artboard, ok := doc.LayerByID(due.ArtboardID)
		if !ok || artboard.Kind() != host.KindArtboard {
			e.logger.Debugw("scheduled artboard is gone", "document", documentID, "artboard", due.ArtboardID)
			e.throttle.Complete(st, due)
			if due.Category == placeholder.SaveDriven {
				delete(st.SaveDeferred, due.ArtboardID)
			}
			e.flush(st)
			continue
		}

		report := e.applier.ApplyPlaceholders(ctx, st, apply.Pass{
			Document: doc,
			Artboard: artboard,
			Time:     due.LastModified,
			Kind:     due.Category,
			Save:     e.saves[documentID],
		})
		if due.Category == placeholder.SaveDriven {
			delete(st.SaveDeferred, due.ArtboardID)
		}
		e.throttle.Complete(st, due)
		e.flush(st)
		e.report(documentID, report)
	}
}

func (e *Engine) report(documentID string, report apply.Report) {
	e.metrics.Pass(report.Kind.String())
	for _, status := range []apply.Status{apply.Applied, apply.Unchanged, apply.Skipped, apply.Deferred, apply.Failed} {
		e.metrics.Outcome(status.String(), report.Count(status))
	}
	e.logger.Infow("placeholders resolved",
		"document", documentID,
		"artboard", report.ArtboardID,
		"kind", report.Kind.String(),
		"writes", report.Writes(),
		"failed", report.Count(apply.Failed))
	e.hooks.ExecuteHooks(hooks.PlaceholderApplied, &events.PlaceholderAppliedContext{
		DocumentID: documentID,
		ArtboardID: report.ArtboardID,
		Kind:       report.Kind.String(),
		Applied:    report.Count(apply.Applied),
		Unchanged:  report.Count(apply.Unchanged),
		Skipped:    report.Count(apply.Skipped),
		Deferred:   report.Count(apply.Deferred),
		Failed:     report.Count(apply.Failed),
	})
}

// UpdatePagination rebuilds or refreshes the pagination index of doc.
func (e *Engine) UpdatePagination(ctx context.Context, doc host.Document) (pagination.Result, error) {
	st, err := e.open(doc)
	if err != nil {
		return pagination.Result{}, err
	}
	res := e.updatePagination(ctx, doc, st)
	e.flush(st)
	return res, nil
}

func (e *Engine) updatePagination(ctx context.Context, doc host.Document, st *state.DocumentEngineState) pagination.Result {
	res, err := e.indexer.UpdatePagination(ctx, doc, st)
	if err != nil {
		e.logger.Warnw("pagination update failed", "document", doc.ID(), "error", err)
		return res
	}
	if res.Stale {
		e.metrics.Stale()
		// The refresh stopped at a stale entry; rebuild right away.
		res, err = e.indexer.UpdatePagination(ctx, doc, st)
		if err != nil {
			e.logger.Warnw("pagination rebuild failed", "document", doc.ID(), "error", err)
			return res
		}
	}
	if res.Rebuilt {
		e.metrics.Rebuild()
		e.hooks.ExecuteHooks(hooks.PaginationRebuilt, &events.PaginationRebuiltContext{
			DocumentID: doc.ID(), Entries: res.Entries, Writes: res.Writes,
		})
	}
	return res
}

// OnSelectionChanged resolves the change-driven placeholders of the artboards
// owning the selected layers right away, without a throttle window.
func (e *Engine) OnSelectionChanged(ctx context.Context, doc host.Document, selection []host.Layer) ([]apply.Report, error) {
	st, err := e.open(doc)
	if err != nil {
		return nil, err
	}
	now := e.options.Now()
	seen := map[string]bool{}
	var reports []apply.Report
	for _, layer := range selection {
		artboard := host.ArtboardOf(layer)
		if artboard == nil || seen[artboard.ID()] {
			continue
		}
		seen[artboard.ID()] = true
		report := e.applier.ApplyPlaceholders(ctx, st, apply.Pass{
			Document: doc,
			Artboard: artboard,
			Time:     now,
			Kind:     placeholder.ChangeDriven,
		})
		e.report(doc.ID(), report)
		reports = append(reports, report)
	}
	e.flush(st)
	return reports, nil
}

// OnDocumentClosed cancels the windows of the document and forgets it. With
// ResetOnClose the persisted state is dropped as well.
func (e *Engine) OnDocumentClosed(documentID string) error {
	e.throttle.Stop(documentID)
	delete(e.docs, documentID)
	delete(e.saves, documentID)
	delete(e.resumed, documentID)
	if e.options.ResetOnClose {
		return e.reset(documentID)
	}
	e.states.Evict(documentID)
	return nil
}

// Reset clears every piece of engine state of the document.
func (e *Engine) Reset(documentID string) error {
	e.throttle.Stop(documentID)
	delete(e.saves, documentID)
	if _, open := e.docs[documentID]; open {
		// An open document keeps being tracked, there is nothing left to resume.
		e.resumed[documentID] = true
	}
	return e.reset(documentID)
}

func (e *Engine) reset(documentID string) error {
	if err := e.states.Reset(documentID); err != nil {
		return err
	}
	e.metrics.Scheduled(e.throttle.Scheduled())
	e.hooks.ExecuteHooks(hooks.StateReset, &events.StateResetContext{DocumentID: documentID})
	e.logger.Infow("engine state reset", "document", documentID)
	return nil
}

// State exposes the loaded state of a document.
func (e *Engine) State(documentID string) (*state.DocumentEngineState, error) {
	st, err := e.states.Load(documentID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Document returns an open document by id.
func (e *Engine) Document(documentID string) (host.Document, error) {
	doc, ok := e.docs[documentID]
	if !ok {
		return nil, exception.NewDocumentNotFoundError(documentID)
	}
	return doc, nil
}
