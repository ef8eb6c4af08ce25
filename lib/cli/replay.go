package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ether/lastupdated-go/lib/engine"
	"github.com/ether/lastupdated-go/lib/hooks"
	"github.com/ether/lastupdated-go/lib/hooks/events"
	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/host/memdoc"
	"github.com/ether/lastupdated-go/lib/metrics"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/state"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Script is a recorded editing session. Start sets the virtual clock; a zero
// Start uses the current time.
type Script struct {
	Start  time.Time `yaml:"start"`
	Events []Event   `yaml:"events"`
}

// Event is one host notification or user action. Op selects the fields used:
//
//	touch, remove: ID
//	rename: ID, Name
//	move: ID, Index
//	insert: Parent, Index, Layer
//	save: Size, Autosaved
//	advance: After
//	select: IDs
//	page: Page
//	pagination, close: none
type Event struct {
	Op        string            `yaml:"op"`
	ID        string            `yaml:"id,omitempty"`
	IDs       []string          `yaml:"ids,omitempty"`
	Name      string            `yaml:"name,omitempty"`
	Parent    string            `yaml:"parent,omitempty"`
	Index     *int              `yaml:"index,omitempty"`
	Layer     *memdoc.LayerFile `yaml:"layer,omitempty"`
	Size      int64             `yaml:"size,omitempty"`
	Autosaved bool              `yaml:"autosaved,omitempty"`
	After     string            `yaml:"after,omitempty"`
	Page      int               `yaml:"page,omitempty"`
}

func (e Event) index() int {
	if e.Index == nil {
		return -1
	}
	return *e.Index
}

func LoadScript(r io.Reader) (Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	return s, nil
}

func LoadScriptFile(path string) (Script, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Script{}, err
	}
	defer fh.Close()
	return LoadScript(fh)
}

// Replayer drives an engine with scripted events against an in-memory
// document and a virtual clock. The engine's own writes are delivered back to
// it after every event, as a host would.
type Replayer struct {
	engine *engine.Engine
	doc    *memdoc.Document
	sched  *memdoc.ManualScheduler
	step   time.Duration

	Passes  int
	Applied int
}

func NewReplayer(doc *memdoc.Document, sched *memdoc.ManualScheduler, registry *placeholder.Registry, states *state.Manager, m *metrics.Metrics, options engine.Options, logger *zap.SugaredLogger) (*Replayer, error) {
	r := &Replayer{doc: doc, sched: sched}

	hook := hooks.NewHook()
	hook.EnqueuePlaceholderAppliedHook(func(ctx *events.PlaceholderAppliedContext) {
		r.Passes++
		r.Applied += ctx.Applied
	})
	hook.EnqueueChangeDiscardedHook(func(ctx *events.ChangeDiscardedContext) {
		logger.Debugw("change discarded", "path", ctx.Path, "reason", ctx.Reason)
	})
	hook.EnqueuePaginationRebuiltHook(func(ctx *events.PaginationRebuiltContext) {
		logger.Debugw("pagination rebuilt", "entries", ctx.Entries, "writes", ctx.Writes)
	})

	options.Now = sched.Now
	e, err := engine.New(registry, states, sched, hook, m, options, logger)
	if err != nil {
		return nil, err
	}
	r.engine = e
	r.step = options.Throttle.ChangeDelay + options.Throttle.SaveDelay + time.Millisecond
	return r, nil
}

func (r *Replayer) Run(ctx context.Context, script []Event) error {
	for i, ev := range script {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.apply(ctx, ev); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.Op, err)
		}
		if err := r.echo(ctx); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.Op, err)
		}
	}
	return nil
}

// Settle advances the clock until no pass is scheduled.
func (r *Replayer) Settle(ctx context.Context) error {
	for i := 0; r.sched.Pending() > 0; i++ {
		if i == maxSettleRounds {
			return fmt.Errorf("passes still pending after %d rounds", maxSettleRounds)
		}
		r.sched.Advance(r.step)
		if err := r.echo(ctx); err != nil {
			return err
		}
	}
	return nil
}

const maxSettleRounds = 100

func (r *Replayer) echo(ctx context.Context) error {
	changes := r.doc.TakeChanges()
	if len(changes) == 0 {
		return nil
	}
	return r.engine.OnDocumentChanged(ctx, r.doc, changes)
}

func (r *Replayer) changed(ctx context.Context, changes ...host.Change) error {
	return r.engine.OnDocumentChanged(ctx, r.doc, changes)
}

func (r *Replayer) apply(ctx context.Context, ev Event) error {
	switch ev.Op {
	case "touch":
		change, err := r.doc.Touch(ev.ID)
		if err != nil {
			return err
		}
		return r.changed(ctx, change)
	case "rename":
		change, err := r.doc.Rename(ev.ID, ev.Name)
		if err != nil {
			return err
		}
		return r.changed(ctx, change)
	case "remove":
		change, err := r.doc.Remove(ev.ID)
		if err != nil {
			return err
		}
		return r.changed(ctx, change)
	case "move":
		changes, err := r.doc.Move(ev.ID, ev.index())
		if err != nil {
			return err
		}
		return r.changed(ctx, changes...)
	case "insert":
		if ev.Layer == nil {
			return fmt.Errorf("insert needs a layer")
		}
		change, err := r.doc.InsertFile(ev.Parent, ev.index(), *ev.Layer)
		if err != nil {
			return err
		}
		return r.changed(ctx, change)
	case "save":
		return r.engine.OnDocumentSaved(ctx, r.doc, host.SaveEvent{SizeBytes: ev.Size, Autosaved: ev.Autosaved})
	case "advance":
		d, err := time.ParseDuration(ev.After)
		if err != nil {
			return err
		}
		r.sched.Advance(d)
		return nil
	case "select":
		selection := make([]host.Layer, 0, len(ev.IDs))
		for _, id := range ev.IDs {
			layer, ok := r.doc.LayerByID(id)
			if !ok {
				return fmt.Errorf("layer %s not found", id)
			}
			selection = append(selection, layer)
		}
		_, err := r.engine.OnSelectionChanged(ctx, r.doc, selection)
		return err
	case "page":
		r.doc.SetCurrentPage(ev.Page)
		return nil
	case "pagination":
		_, err := r.engine.UpdatePagination(ctx, r.doc)
		return err
	case "close":
		return r.engine.OnDocumentClosed(r.doc.ID())
	default:
		return fmt.Errorf("unknown op %q", ev.Op)
	}
}
