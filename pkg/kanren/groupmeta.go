package kanren

import "sync/atomic"

var groupCounter int64

// nextGroupID mints a fresh GOAL_GROUP_ID value, spec §3.
func nextGroupID() int64 {
	return atomic.AddInt64(&groupCounter, 1)
}

// EnterGroup returns s annotated with frame pushed onto GOAL_GROUP_PATH,
// and frame.ID recorded as the current GOAL_GROUP_ID — spec §3's group
// metadata, set by And/Or (combinators.go) around each of their branches.
func EnterGroup(s *Subst, frame GroupFrame) *Subst {
	nm := s.meta.clone()
	nm.groupPath = append(nm.groupPath, frame)
	nm.groupID = frame.ID
	return &Subst{bindings: s.bindings, meta: nm, occursCheck: s.occursCheck}
}

// CurrentGroupID returns GOAL_GROUP_ID: the innermost enclosing
// conjunction or disjunction's id, or 0 at the top level.
func CurrentGroupID(s *Subst) int64 {
	return s.meta.groupID
}

// GroupPath returns a copy of GOAL_GROUP_PATH, outermost frame first.
func GroupPath(s *Subst) []GroupFrame {
	return append([]GroupFrame(nil), s.meta.groupPath...)
}

// RegisterGoal annotates s with h added to GOAL_GROUP_ALL_GOALS, and, when
// the innermost group frame is a conjunction, also to
// GOAL_GROUP_CONJ_GOALS — spec §3's per-goal bookkeeping, called by any
// goal implementation (chiefly sqlfacts.Relation) that wants to be
// discoverable by sibling goals for merge/cache-sharing purposes.
func RegisterGoal(s *Subst, h GoalHandle) *Subst {
	nm := s.meta.clone()
	nm.allGoals[h] = struct{}{}
	if n := len(nm.groupPath); n > 0 && nm.groupPath[n-1].Type == "and" {
		nm.conjGoals[h] = struct{}{}
	}
	return &Subst{bindings: s.bindings, meta: nm, occursCheck: s.occursCheck}
}

// ConjGoals returns every handle registered so far while the innermost
// group frame was a conjunction — candidates for query-merging peer
// discovery. The set is not reset when a new group is entered, so it can
// also hold handles registered in enclosing or earlier conjunctions.
func ConjGoals(s *Subst) []GoalHandle {
	out := make([]GoalHandle, 0, len(s.meta.conjGoals))
	for h := range s.meta.conjGoals {
		out = append(out, h)
	}
	return out
}

// AllGoals returns every handle registered anywhere in the substitution's
// history — candidates for cache-compatible (not necessarily mergeable)
// peer discovery.
func AllGoals(s *Subst) []GoalHandle {
	out := make([]GoalHandle, 0, len(s.meta.allGoals))
	for h := range s.meta.allGoals {
		out = append(out, h)
	}
	return out
}

// RowCache returns the opaque cached row payload a goal previously stashed
// on s under h, if any — spec §3/§4.D.4's ROW_CACHE.
func RowCache(s *Subst, h GoalHandle) (any, bool) {
	v, ok := s.meta.rowCache[h.ID]
	return v, ok
}

// WithRowCache returns s with h's cached row payload set to v.
func WithRowCache(s *Subst, h GoalHandle, v any) *Subst {
	nm := s.meta.clone()
	nm.rowCache[h.ID] = v
	return &Subst{bindings: s.bindings, meta: nm, occursCheck: s.occursCheck}
}
