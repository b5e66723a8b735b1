// Package set provides an unordered collection of unique, comparable
// values. mcproxy.Vector.Dump uses it to dedupe a proxy list down to its
// distinct addresses before sorting them for a stable diagnostic
// rendering; nothing in this module needs more than that, but the full
// set-algebra surface is kept since a diagnostics dump is exactly the
// kind of call site that tends to grow (union two vectors' address sets
// when diffing a reshard, say) without warranting its own type later.
package set

// Set is an unordered collection of unique elements, compared by Go
// equality. Not safe for concurrent use without external locking.
type Set interface {
	// Copy returns a new Set containing the same elements as this one.
	Copy() Set

	// Len returns the number of elements in the set.
	Len() int

	// Contains reports whether v is a member of the set.
	Contains(v interface{}) bool
	// Add inserts v into the set.
	Add(v interface{})
	// Remove deletes v from the set, reporting whether it was present.
	Remove(v interface{}) bool

	// Do calls f once for every element currently in the set. Mutating
	// the set from within f is undefined.
	Do(f func(interface{}))
	// DoWhile calls f once per element until f returns false or every
	// element has been visited. Mutating the set from within f is
	// undefined.
	DoWhile(f func(interface{}) bool)
	// Iter returns a channel that yields every element exactly once and
	// is then closed. Unlike ranging with Do, the channel can be
	// abandoned part-way through without leaking: the whole set is
	// snapshotted up front and sent from a pre-sized buffer.
	Iter() <-chan interface{}

	// Union adds every element of s into this set.
	Union(s Set)
	// Intersect removes every element from this set that is not also in
	// s.
	Intersect(s Set)
	// Subtract removes every element of s from this set.
	Subtract(s Set)
	// Init empties the set.
	Init()
	// IsSubset reports whether every element of this set is in s.
	IsSubset(s Set) bool
	// IsSuperset reports whether every element of s is in this set.
	IsSuperset(s Set) bool
	// IsEqual reports whether this set and s contain exactly the same
	// elements.
	IsEqual(s Set) bool
	// RemoveIf deletes every element v for which f(v) is true.
	RemoveIf(f func(interface{}) bool)
}

// NewSet returns a Set pre-populated with items.
func NewSet(items ...interface{}) Set {
	s := &hashSet{members: make(map[interface{}]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// hashSet backs Set with a map keyed on the elements themselves, so
// membership, insertion, and deletion are all O(1).
type hashSet struct {
	members map[interface{}]struct{}
}

func (s *hashSet) Len() int { return len(s.members) }

func (s *hashSet) Contains(v interface{}) bool {
	_, ok := s.members[v]
	return ok
}

func (s *hashSet) Add(v interface{}) {
	s.members[v] = struct{}{}
}

func (s *hashSet) Remove(v interface{}) bool {
	_, ok := s.members[v]
	delete(s.members, v)
	return ok
}

func (s *hashSet) Init() {
	s.members = make(map[interface{}]struct{})
}

func (s *hashSet) Copy() Set {
	dup := &hashSet{members: make(map[interface{}]struct{}, len(s.members))}
	for v := range s.members {
		dup.members[v] = struct{}{}
	}
	return dup
}

func (s *hashSet) Do(f func(interface{})) {
	for v := range s.members {
		f(v)
	}
}

func (s *hashSet) DoWhile(f func(interface{}) bool) {
	for v := range s.members {
		if !f(v) {
			return
		}
	}
}

// Iter snapshots every element into a buffer sized to the set up front,
// so the returned channel is fully populated and closed before the
// caller ever receives from it -- draining it partway through never
// leaves a goroutine blocked on a send nobody will read.
func (s *hashSet) Iter() <-chan interface{} {
	out := make(chan interface{}, len(s.members))
	for v := range s.members {
		out <- v
	}
	close(out)
	return out
}

// filter removes every member for which keep returns false; Intersect,
// Subtract, and RemoveIf are all one call to filter with a different
// predicate.
func (s *hashSet) filter(keep func(interface{}) bool) {
	var drop []interface{}
	for v := range s.members {
		if !keep(v) {
			drop = append(drop, v)
		}
	}
	for _, v := range drop {
		delete(s.members, v)
	}
}

func (s *hashSet) Union(other Set) {
	other.Do(func(v interface{}) { s.Add(v) })
}

func (s *hashSet) Intersect(other Set) {
	s.filter(other.Contains)
}

func (s *hashSet) Subtract(other Set) {
	other.Do(func(v interface{}) { s.Remove(v) })
}

func (s *hashSet) RemoveIf(f func(interface{}) bool) {
	s.filter(func(v interface{}) bool { return !f(v) })
}

func (s *hashSet) IsSubset(other Set) bool {
	isSubset := true
	s.DoWhile(func(v interface{}) bool {
		isSubset = other.Contains(v)
		return isSubset
	})
	return isSubset
}

func (s *hashSet) IsSuperset(other Set) bool {
	return other.IsSubset(s)
}

func (s *hashSet) IsEqual(other Set) bool {
	return s.Len() == other.Len() && s.IsSubset(other)
}
