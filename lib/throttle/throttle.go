// Package throttle coalesces bursts of artboard changes into one deferred
// resolution pass per artboard and event kind.
package throttle

import (
	"sort"
	"strings"
	"time"

	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/state"
	"go.uber.org/zap"
)

const (
	DefaultChangeDelay = 5000 * time.Millisecond
	DefaultSaveDelay   = 0
)

// Touch is one classified, relevant change of an artboard.
type Touch struct {
	ArtboardID string
	At         time.Time
	// Handle is kept in memory only and handed back with the due entry.
	Handle host.Layer
}

// Due is a pending entry whose window has elapsed.
type Due struct {
	Key          string
	Category     placeholder.Category
	ArtboardID   string
	LastModified time.Time
	Handle       host.Layer
}

type Options struct {
	ChangeDelay time.Duration
	SaveDelay   time.Duration
	// RefreshFlagged keeps updating the timestamp of an entry that is already
	// scheduled, so the pass uses the last change of a burst.
	RefreshFlagged bool
}

type Store struct {
	scheduler host.Scheduler
	options   Options
	logger    *zap.SugaredLogger
	timers    map[string]host.Timer
	handles   map[string]host.Layer
	due       map[string][]string
	onDue     func(documentID string)
}

func New(scheduler host.Scheduler, options Options, logger *zap.SugaredLogger) *Store {
	return &Store{
		scheduler: scheduler,
		options:   options,
		logger:    logger,
		timers:    map[string]host.Timer{},
		handles:   map[string]host.Layer{},
		due:       map[string][]string{},
	}
}

// OnDue registers the callback run when a window elapses. It runs on the
// scheduler's thread and is expected to call DrainDue.
func (s *Store) OnDue(f func(documentID string)) {
	s.onDue = f
}

// Key is the pending-table key of an artboard for an event kind.
func Key(category placeholder.Category, artboardID string) string {
	if category == placeholder.SaveDriven {
		return "save:" + artboardID
	}
	return artboardID
}

func splitKey(key string) (placeholder.Category, string) {
	if id, ok := strings.CutPrefix(key, "save:"); ok {
		return placeholder.SaveDriven, id
	}
	return placeholder.ChangeDriven, key
}

func timerKey(documentID, key string) string {
	return documentID + "\x00" + key
}

func (s *Store) delay(category placeholder.Category) time.Duration {
	if category == placeholder.SaveDriven {
		return s.options.SaveDelay
	}
	return s.options.ChangeDelay
}

// RecordChanges upserts the touched artboards into the pending table of st and
// schedules every artboard that is not scheduled yet. It returns the ids that
// were newly scheduled.
func (s *Store) RecordChanges(st *state.DocumentEngineState, category placeholder.Category, touches []Touch) []string {
	var scheduled []string
	for _, touch := range touches {
		key := Key(category, touch.ArtboardID)
		tk := timerKey(st.DocumentID, key)
		if touch.Handle != nil {
			s.handles[tk] = touch.Handle
		}

		entry, exists := st.Pending[key]
		switch {
		case !exists:
			entry = &state.PendingUpdate{ArtboardID: touch.ArtboardID, LastModified: touch.At}
			st.Pending[key] = entry
		case !entry.WillBeUpdated || s.options.RefreshFlagged:
			if touch.At.After(entry.LastModified) {
				entry.LastModified = touch.At
			}
		}

		if entry.WillBeUpdated && s.isLive(st.DocumentID, key) {
			continue
		}
		s.schedule(st.DocumentID, key, category)
		entry.WillBeUpdated = true
		scheduled = append(scheduled, touch.ArtboardID)
	}
	return scheduled
}

func (s *Store) isLive(documentID, key string) bool {
	if _, ok := s.timers[timerKey(documentID, key)]; ok {
		return true
	}
	for _, k := range s.due[documentID] {
		if k == key {
			return true
		}
	}
	return false
}

func (s *Store) schedule(documentID, key string, category placeholder.Category) {
	tk := timerKey(documentID, key)
	s.timers[tk] = s.scheduler.AfterFunc(s.delay(category), func() {
		delete(s.timers, tk)
		s.due[documentID] = append(s.due[documentID], key)
		if s.onDue != nil {
			s.onDue(documentID)
		}
	})
}

// Resume schedules flagged entries that were loaded from storage without a
// live timer, e.g. after a restart.
func (s *Store) Resume(st *state.DocumentEngineState) []string {
	keys := make([]string, 0, len(st.Pending))
	for key := range st.Pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var resumed []string
	for _, key := range keys {
		entry := st.Pending[key]
		if s.isLive(st.DocumentID, key) {
			continue
		}
		category, _ := splitKey(key)
		s.schedule(st.DocumentID, key, category)
		entry.WillBeUpdated = true
		resumed = append(resumed, entry.ArtboardID)
	}
	return resumed
}

// DrainDue returns the entries of st whose window has elapsed. Entries that
// were consumed in the meantime are dropped silently.
func (s *Store) DrainDue(st *state.DocumentEngineState) []Due {
	keys := s.due[st.DocumentID]
	delete(s.due, st.DocumentID)

	out := make([]Due, 0, len(keys))
	for _, key := range keys {
		entry, ok := st.Pending[key]
		if !ok {
			s.logger.Debugw("pending entry already consumed", "document", st.DocumentID, "key", key)
			continue
		}
		category, _ := splitKey(key)
		out = append(out, Due{
			Key:          key,
			Category:     category,
			ArtboardID:   entry.ArtboardID,
			LastModified: entry.LastModified,
			Handle:       s.handles[timerKey(st.DocumentID, key)],
		})
	}
	return out
}

// Complete removes a resolved entry from the pending table.
func (s *Store) Complete(st *state.DocumentEngineState, due Due) {
	delete(st.Pending, due.Key)
	delete(s.handles, timerKey(st.DocumentID, due.Key))
}

// Stop cancels every timer of documentID. Pending entries stay in the state.
func (s *Store) Stop(documentID string) {
	prefix := documentID + "\x00"
	for tk, timer := range s.timers {
		if strings.HasPrefix(tk, prefix) {
			timer.Stop()
			delete(s.timers, tk)
		}
	}
	for tk := range s.handles {
		if strings.HasPrefix(tk, prefix) {
			delete(s.handles, tk)
		}
	}
	delete(s.due, documentID)
}

// Scheduled is the number of live timers.
func (s *Store) Scheduled() int {
	return len(s.timers)
}
