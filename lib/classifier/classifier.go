// Package classifier decides what a raw change record means for the engine:
// which artboard it touches, whether it was caused by a placeholder write of
// the engine itself, and whether the pagination index has to follow.
package classifier

import (
	"fmt"
	"strings"

	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"go.uber.org/zap"
)

// MovePolicy controls how a removal plus re-addition of the same artboard in
// one batch affects pagination.
type MovePolicy string

const (
	// MoveOnce lets the addition half of a move trigger and suppresses the removal.
	MoveOnce MovePolicy = "once"
	// MoveIgnore suppresses both halves.
	MoveIgnore MovePolicy = "ignore"
)

func ParseMovePolicy(s string) (MovePolicy, error) {
	switch MovePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MoveOnce:
		return MoveOnce, nil
	case MoveIgnore:
		return MoveIgnore, nil
	default:
		return "", fmt.Errorf("unknown move policy %q", s)
	}
}

type Trigger int

const (
	TriggerNone Trigger = iota
	// TriggerTopology means artboards were added, removed or renamed.
	TriggerTopology
	// TriggerPlaceholderAdded means a pagination placeholder layer was inserted.
	TriggerPlaceholderAdded
)

type Result struct {
	SelfInflicted bool
	// Indeterminate is set when a parentless record could not be mapped onto
	// the document. It is never treated as self-inflicted.
	Indeterminate bool
	Trigger       Trigger
	// Artboard is the artboard to schedule, nil when nothing needs scheduling.
	Artboard host.Layer
	// Object is the added pagination placeholder for TriggerPlaceholderAdded.
	Object host.Layer
	Reason string
}

func (r Result) IsPaginationTrigger() bool {
	return r.Trigger != TriggerNone
}

type Classifier struct {
	registry   *placeholder.Registry
	movePolicy MovePolicy
	logger     *zap.SugaredLogger
}

func New(registry *placeholder.Registry, movePolicy MovePolicy, logger *zap.SugaredLogger) *Classifier {
	if movePolicy == "" {
		movePolicy = MoveOnce
	}
	return &Classifier{registry: registry, movePolicy: movePolicy, logger: logger}
}

// MovedIDs collects the ids of objects re-added as part of a move.
func MovedIDs(changes []host.Change) map[string]bool {
	moved := map[string]bool{}
	for _, c := range changes {
		if c.Type == host.ChangeAdded && c.IsMove && c.Object != nil {
			moved[c.Object.ID()] = true
		}
	}
	return moved
}

func (c *Classifier) ClassifyBatch(changes []host.Change, doc host.Tree) []Result {
	moved := MovedIDs(changes)
	results := make([]Result, len(changes))
	for i, change := range changes {
		results[i] = c.Classify(change, doc, moved)
	}
	return results
}

// Classify inspects one change. moved holds the ids re-added by a move in the
// same batch.
func (c *Classifier) Classify(change host.Change, doc host.Tree, moved map[string]bool) Result {
	obj := change.Object
	if obj == nil {
		return Result{Indeterminate: true, Reason: "change without object"}
	}

	start := obj
	if !obj.Kind().HasParentLink() {
		parent, err := ResolveLogicalParent(change.FullPath, doc)
		if err != nil {
			c.logger.Debugw("unresolvable change path", "path", change.FullPath, "error", err)
			return Result{Indeterminate: true, Reason: err.Error()}
		}
		if c.isOwnLeafWrite(obj, parent, change.FullPath) {
			return Result{SelfInflicted: true, Reason: "placeholder write on " + parent.Name()}
		}
		start = parent
	} else if change.Type == host.ChangeModified && isValueWrite(change.FullPath) && c.registry.IsToken(obj.Name()) {
		return Result{SelfInflicted: true, Reason: "placeholder write on " + obj.Name()}
	}

	res := Result{Artboard: host.ArtboardOf(start)}
	if obj.Kind() == host.KindArtboard && change.Type == host.ChangeRemoved {
		res.Artboard = nil
	}

	switch {
	case change.Type == host.ChangeAdded && obj.Kind() != host.KindArtboard && c.isPaginationToken(obj.Name()):
		res.Trigger = TriggerPlaceholderAdded
		res.Object = obj
	case obj.Kind() == host.KindArtboard && c.topologyChange(change, moved):
		res.Trigger = TriggerTopology
	}
	return res
}

// isOwnLeafWrite recognises the records produced by the engine's own writes:
// an override value whose point is a placeholder, or the fill image of a layer
// named after a placeholder.
func (c *Classifier) isOwnLeafWrite(leaf, parent host.Layer, path string) bool {
	switch leaf.Kind() {
	case host.KindOverrideValue:
		for _, p := range parent.OverridePoints() {
			if p.Name == leaf.Name() {
				return c.registry.IsToken(p.LayerName)
			}
		}
		return false
	case host.KindImmutableLeaf:
		return fillImagePattern.MatchString(path) && c.registry.IsToken(parent.Name())
	default:
		return false
	}
}

func (c *Classifier) isPaginationToken(name string) bool {
	_, ok := c.registry.Lookup(name, placeholder.FilterPagination)
	return ok
}

func (c *Classifier) topologyChange(change host.Change, moved map[string]bool) bool {
	switch change.Type {
	case host.ChangeAdded:
		if change.IsMove {
			return c.movePolicy == MoveOnce
		}
		return true
	case host.ChangeRemoved:
		return !moved[change.Object.ID()]
	default:
		return isRename(change.FullPath)
	}
}

func isRename(path string) bool {
	return strings.HasSuffix(path, ".name")
}

// isValueWrite matches the text value paths the engine writes to.
func isValueWrite(path string) bool {
	return strings.HasSuffix(path, ".attributedString") || strings.HasSuffix(path, ".stringValue")
}
