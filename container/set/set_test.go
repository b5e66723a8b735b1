package set

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicSetOps(t *testing.T) {
	s := NewSet()
	require.False(t, s.Contains(1))
	require.False(t, s.Contains(2))
	require.Equal(t, 0, s.Len())
	s.Add(1)
	require.Equal(t, 1, s.Len())
	s.Add(2)
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains(1))
	require.True(t, s.Contains(2))
	s.Remove(1)
	require.Equal(t, 1, s.Len())
	require.False(t, s.Contains(1))
	require.True(t, s.Contains(2))
}

func TestUnion(t *testing.T) {
	s1 := NewSet()
	s1.Add(1)
	s1.Add(2)

	s2 := NewSet()
	s2.Add(2)
	s2.Add(4)

	s1.Union(s2)

	require.True(t, s1.Contains(1))
	require.True(t, s1.Contains(2))
	require.True(t, s1.Contains(4))

	require.False(t, s2.Contains(1))
	require.True(t, s2.Contains(2))
	require.True(t, s2.Contains(4))
}

func TestIntersect(t *testing.T) {
	s1 := NewSet()
	s1.Add(1)
	s1.Add(2)

	s2 := NewSet()
	s2.Add(2)
	s2.Add(4)

	s1.Intersect(s2)

	require.False(t, s1.Contains(1))
	require.True(t, s1.Contains(2))
	require.False(t, s1.Contains(4))

	require.False(t, s2.Contains(1))
	require.True(t, s2.Contains(2))
	require.True(t, s2.Contains(4))
}

func TestSubtract(t *testing.T) {
	s1 := NewSet()
	s1.Add(1)
	s1.Add(2)

	s2 := NewSet()
	s2.Add(2)
	s2.Add(4)

	s1.Subtract(s2)

	require.True(t, s1.Contains(1))
	require.False(t, s1.Contains(2))
	require.False(t, s1.Contains(4))

	require.False(t, s2.Contains(1))
	require.True(t, s2.Contains(2))
	require.True(t, s2.Contains(4))
}

func TestSubsets(t *testing.T) {
	s1 := NewSet()
	require.True(t, s1.IsSubset(s1))
	require.True(t, s1.IsSuperset(s1))
	s2 := NewSet()

	require.True(t, s1.IsSubset(s2))
	require.True(t, s2.IsSubset(s1))
	require.True(t, s1.IsSuperset(s2))
	require.True(t, s2.IsSuperset(s1))

	s2.Add(3)
	require.True(t, s1.IsSubset(s2))
	require.False(t, s2.IsSubset(s1))
	require.False(t, s1.IsSuperset(s2))
	require.True(t, s2.IsSuperset(s1))

	s2.Add(7)
	s1.Add(3)
	require.True(t, s1.IsSubset(s2))
	require.False(t, s2.IsSubset(s1))
	require.False(t, s1.IsSuperset(s2))
	require.True(t, s2.IsSuperset(s1))

	s1.Add(4)
	require.False(t, s1.IsSubset(s2))
	require.False(t, s2.IsSubset(s1))
	require.False(t, s1.IsSuperset(s2))
	require.False(t, s2.IsSuperset(s1))
}

func TestIter(t *testing.T) {
	elements := map[int]bool{1: true, 2: true, 3: true}
	s := NewSet()

	for key := range elements {
		s.Add(key)
	}

	for key := range s.Iter() {
		delete(elements, key.(int))
	}

	require.Empty(t, elements)
}

func TestRemoveIf(t *testing.T) {
	s := NewSet(1, 2, 3, 4, 5)
	s.RemoveIf(func(v interface{}) bool { return v.(int)%2 == 0 })

	require.True(t, s.Contains(1))
	require.False(t, s.Contains(2))
	require.True(t, s.Contains(3))
	require.False(t, s.Contains(4))
	require.True(t, s.Contains(5))
}

func TestCopy(t *testing.T) {
	s1 := NewSet(1, 2, 3)
	s2 := s1.Copy()

	s2.Add(4)

	require.False(t, s1.Contains(4))
	require.True(t, s2.Contains(4))
	require.True(t, s2.IsEqual(NewSet(1, 2, 3, 4)))
}
