// Package dispatch coalesces optimistic toggles into bounded server
// traffic: each user action reschedules a quiet-window timer, and only the
// state read when the window finally elapses is synchronized. Failed
// dispatches roll the session cache back to the last confirmed snapshot.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/communelab/commune/internal/client/session"
	"github.com/communelab/commune/internal/entity"
	"github.com/google/uuid"
)

// DefaultQuietWindow is the debounce applied when Config leaves it unset.
const DefaultQuietWindow = 300 * time.Millisecond

// Channel identifies one coalescing lane per item. Reaction and favorite
// toggles debounce independently.
type Channel int

const (
	ChannelReaction Channel = iota
	ChannelFavorite
)

func (ch Channel) String() string {
	if ch == ChannelFavorite {
		return "favorite"
	}
	return "reaction"
}

// ReactionResult is the authoritative state a settled reaction dispatch
// brings back.
type ReactionResult struct {
	Score    int
	Reaction session.Reaction
}

// Syncer is the server contract the dispatcher drives. Implementations must
// map failures onto the apperror taxonomy.
type Syncer interface {
	SetReaction(ctx context.Context, postID uuid.UUID, kind entity.ReactionKind) (ReactionResult, error)
	SetFavorite(ctx context.Context, postID uuid.UUID, favorite bool) (bool, error)
}

// FailureHandler receives rollback notifications. The error is recoverable:
// the cache has already been restored and the user may simply repeat the
// action.
type FailureHandler func(postID uuid.UUID, ch Channel, err error)

// Config tunes a Dispatcher. Zero values select the production defaults.
type Config struct {
	QuietWindow time.Duration
	Scheduler   Scheduler
	OnFailure   FailureHandler
}

type channelKey struct {
	postID uuid.UUID
	ch     Channel
}

type channelState struct {
	timer Timer
	// seq identifies the scheduled window the timer belongs to. A fire
	// carrying an older seq lost a race with a reschedule and must yield
	// to the fresh timer.
	seq      uint64
	inFlight bool

	// queued holds the newest read-at-fire-time payload when a window
	// elapses while a dispatch is still in flight. Newest wins.
	queued         bool
	queuedReaction entity.ReactionKind
	queuedFavorite bool
}

// Dispatcher owns the per-channel timers and the in-flight serialization
// rule: never two concurrent writes for the same (item, channel) from one
// session.
type Dispatcher struct {
	cache  *session.Cache
	syncer Syncer
	sched  Scheduler
	quiet  time.Duration
	onFail FailureHandler

	mu       sync.Mutex
	channels map[channelKey]*channelState
}

func NewDispatcher(cache *session.Cache, syncer Syncer, cfg Config) *Dispatcher {
	quiet := cfg.QuietWindow
	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = NewScheduler()
	}

	return &Dispatcher{
		cache:    cache,
		syncer:   syncer,
		sched:    sched,
		quiet:    quiet,
		onFail:   cfg.OnFailure,
		channels: make(map[channelKey]*channelState),
	}
}

// ToggleReaction applies the optimistic prediction for a button press and
// (re)schedules the reaction channel's dispatch. The returned entry is what
// the UI shows immediately.
func (d *Dispatcher) ToggleReaction(postID uuid.UUID, pressed session.Button) (session.Entry, bool) {
	entry, ok := d.cache.PredictReaction(postID, pressed)
	if !ok {
		return session.Entry{}, false
	}

	d.schedule(postID, ChannelReaction)
	return entry, true
}

// ToggleFavorite flips the favorite flag optimistically and (re)schedules
// the favorite channel's dispatch.
func (d *Dispatcher) ToggleFavorite(postID uuid.UUID) (session.Entry, bool) {
	current, ok := d.cache.Get(postID)
	if !ok {
		return session.Entry{}, false
	}

	entry, ok := d.cache.PredictFavorite(postID, !current.Favorited)
	if !ok {
		return session.Entry{}, false
	}

	d.schedule(postID, ChannelFavorite)
	return entry, true
}

// schedule cancels any pending timer for the channel and starts a fresh
// quiet window. This is the coalescing behavior: N rapid toggles produce no
// dispatch until the window elapses once uninterrupted.
func (d *Dispatcher) schedule(postID uuid.UUID, ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.state(postID, ch)
	if st.timer != nil {
		st.timer.Stop()
	}
	st.seq++
	seq := st.seq
	st.timer = d.sched.AfterFunc(d.quiet, func() {
		d.fire(postID, ch, seq)
	})
}

// fire runs when a quiet window elapses without being reset. It reads the
// current cache entry, not a snapshot from action time: intermediate states
// skipped inside the window are intentionally never sent.
func (d *Dispatcher) fire(postID uuid.UUID, ch Channel, seq uint64) {
	d.mu.Lock()

	st := d.state(postID, ch)
	if seq != st.seq {
		// A press rescheduled the window after this timer elapsed but
		// before fire ran; the fresh timer owns the dispatch.
		d.mu.Unlock()
		return
	}
	st.timer = nil

	entry, ok := d.cache.Get(postID)
	if !ok {
		d.mu.Unlock()
		return
	}

	if st.inFlight {
		// Queue the fire-time state; it is sent once the in-flight call
		// resolves. A later window overwrites an earlier queued value.
		st.queued = true
		st.queuedReaction = reactionKind(entry.Reaction)
		st.queuedFavorite = entry.Favorited
		d.mu.Unlock()
		return
	}

	st.inFlight = true
	d.mu.Unlock()

	d.send(postID, ch, reactionKind(entry.Reaction), entry.Favorited)
}

func (d *Dispatcher) send(postID uuid.UUID, ch Channel, kind entity.ReactionKind, favorite bool) {
	ctx := context.Background()

	switch ch {
	case ChannelReaction:
		res, err := d.syncer.SetReaction(ctx, postID, kind)
		d.settleReaction(postID, res, err)
	case ChannelFavorite:
		favorited, err := d.syncer.SetFavorite(ctx, postID, favorite)
		d.settleFavorite(postID, favorited, err)
	}
}

func (d *Dispatcher) settleReaction(postID uuid.UUID, res ReactionResult, err error) {
	d.mu.Lock()
	st := d.state(postID, ChannelReaction)

	if err != nil {
		st.inFlight = false
		st.queued = false
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		// Invalidate a timer that already elapsed but has not fired yet
		st.seq++
		d.cache.RollbackReaction(postID)
		d.mu.Unlock()
		d.fail(postID, ChannelReaction, err)
		return
	}

	// The authoritative recount wins over the client's delta prediction,
	// unless a newer prediction is pending, whose own dispatch will settle
	// it shortly.
	newerPending := st.timer != nil || st.queued
	d.cache.ConfirmReaction(postID, res.Score, res.Reaction, !newerPending)

	if st.queued {
		st.queued = false
		kind := st.queuedReaction
		d.mu.Unlock()
		d.send(postID, ChannelReaction, kind, false)
		return
	}

	st.inFlight = false
	d.mu.Unlock()
}

func (d *Dispatcher) settleFavorite(postID uuid.UUID, favorited bool, err error) {
	d.mu.Lock()
	st := d.state(postID, ChannelFavorite)

	if err != nil {
		st.inFlight = false
		st.queued = false
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		st.seq++
		d.cache.RollbackFavorite(postID)
		d.mu.Unlock()
		d.fail(postID, ChannelFavorite, err)
		return
	}

	newerPending := st.timer != nil || st.queued
	d.cache.ConfirmFavorite(postID, favorited, !newerPending)

	if st.queued {
		st.queued = false
		favorite := st.queuedFavorite
		d.mu.Unlock()
		d.send(postID, ChannelFavorite, entity.KindNone, favorite)
		return
	}

	st.inFlight = false
	d.mu.Unlock()
}

func (d *Dispatcher) fail(postID uuid.UUID, ch Channel, err error) {
	if d.onFail != nil {
		d.onFail(postID, ch, err)
	}
}

// state must be called with d.mu held.
func (d *Dispatcher) state(postID uuid.UUID, ch Channel) *channelState {
	key := channelKey{postID: postID, ch: ch}
	st, ok := d.channels[key]
	if !ok {
		st = &channelState{}
		d.channels[key] = st
	}
	return st
}

func reactionKind(r session.Reaction) entity.ReactionKind {
	switch r {
	case session.ReactionLiked:
		return entity.KindLike
	case session.ReactionDisliked:
		return entity.KindDislike
	}
	return entity.KindNone
}
