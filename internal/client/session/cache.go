// Package session holds the client's in-memory picture of items: the last
// server-confirmed state plus any optimistic predictions layered on top. A
// Cache is owned by one viewer session, created on session start and
// discarded with it.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reaction is the viewer's personal reaction as the client models it.
type Reaction string

const (
	ReactionNone     Reaction = "none"
	ReactionLiked    Reaction = "liked"
	ReactionDisliked Reaction = "disliked"
)

// Button is a user-intended press direction.
type Button string

const (
	ButtonLike    Button = "like"
	ButtonDislike Button = "dislike"
)

// Entry is one item as currently believed to be. PendingSince is non-zero
// while a prediction awaits confirmation.
type Entry struct {
	Score        int
	Reaction     Reaction
	Favorited    bool
	PendingSince time.Time
}

type itemState struct {
	entry     Entry
	confirmed Entry
}

// Cache is the per-session item store. All predictions mutate the entry
// synchronously, so readers observe a toggle before any network round trip.
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[uuid.UUID]*itemState
}

func NewCache() *Cache {
	return &Cache{
		now:     time.Now,
		entries: make(map[uuid.UUID]*itemState),
	}
}

// Prime installs server state for an item, e.g. after the initial fetch.
// The entry becomes both the believed and the confirmed state.
func (c *Cache) Prime(postID uuid.UUID, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.PendingSince = time.Time{}
	c.entries[postID] = &itemState{entry: entry, confirmed: entry}
}

// Get returns the current believed state of an item.
func (c *Cache) Get(postID uuid.UUID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return Entry{}, false
	}
	return state.entry, true
}

// Forget evicts an item, e.g. when the viewer navigates away.
func (c *Cache) Forget(postID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, postID)
}

// Confirmed returns the last server-confirmed state, the rollback snapshot
// for an outgoing dispatch.
func (c *Cache) Confirmed(postID uuid.UUID) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return Entry{}, false
	}
	return state.confirmed, true
}

// PredictReaction applies the three-state toggle to the believed entry and
// returns the prediction. The score moves by the transition delta; the
// durable store is recounted server-side on settle, so a coalesced burst may
// reconcile to a different value later.
func (c *Cache) PredictReaction(postID uuid.UUID, pressed Button) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return Entry{}, false
	}

	next := NextReaction(state.entry.Reaction, pressed)
	state.entry.Score += ScoreDelta(state.entry.Reaction, next)
	state.entry.Reaction = next
	state.entry.PendingSince = c.now()

	return state.entry, true
}

// PredictFavorite sets the favorite flag directly; no score side effect.
func (c *Cache) PredictFavorite(postID uuid.UUID, next bool) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return Entry{}, false
	}

	state.entry.Favorited = next
	state.entry.PendingSince = c.now()

	return state.entry, true
}

// ConfirmReaction records the authoritative score and reaction returned by a
// settled dispatch. When overwrite is set the believed entry is replaced as
// well; the dispatcher withholds it while a newer prediction is pending so a
// late response cannot clobber the user's later action.
func (c *Cache) ConfirmReaction(postID uuid.UUID, score int, reaction Reaction, overwrite bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return
	}

	state.confirmed.Score = score
	state.confirmed.Reaction = reaction
	if overwrite {
		state.entry.Score = score
		state.entry.Reaction = reaction
		state.entry.PendingSince = time.Time{}
	}
}

// ConfirmFavorite is ConfirmReaction's counterpart for the favorite channel.
func (c *Cache) ConfirmFavorite(postID uuid.UUID, favorited bool, overwrite bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return
	}

	state.confirmed.Favorited = favorited
	if overwrite {
		state.entry.Favorited = favorited
		state.entry.PendingSince = time.Time{}
	}
}

// RollbackReaction restores the reaction channel's fields from the confirmed
// snapshot, discarding the optimistic prediction.
func (c *Cache) RollbackReaction(postID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return
	}

	state.entry.Score = state.confirmed.Score
	state.entry.Reaction = state.confirmed.Reaction
	state.entry.PendingSince = time.Time{}
}

// RollbackFavorite restores the favorite flag from the confirmed snapshot.
func (c *Cache) RollbackFavorite(postID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[postID]
	if !ok {
		return
	}

	state.entry.Favorited = state.confirmed.Favorited
	state.entry.PendingSince = time.Time{}
}

// NextReaction is the three-state toggle machine: pressing the button that
// matches the current state clears it; anything else moves to the pressed
// kind.
func NextReaction(current Reaction, pressed Button) Reaction {
	switch pressed {
	case ButtonLike:
		if current == ReactionLiked {
			return ReactionNone
		}
		return ReactionLiked
	case ButtonDislike:
		if current == ReactionDisliked {
			return ReactionNone
		}
		return ReactionDisliked
	}
	return current
}

// ScoreDelta is the predicted score movement for a transition.
func ScoreDelta(from, to Reaction) int {
	if from == to {
		return 0
	}
	return reactionWeight(to) - reactionWeight(from)
}

func reactionWeight(r Reaction) int {
	switch r {
	case ReactionLiked:
		return 1
	case ReactionDisliked:
		return -1
	}
	return 0
}
