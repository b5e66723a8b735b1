package mcproxy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seznam/gomcache/container/set"
)

// Vector is a fixed-length collection of Proxy instances, one per
// configured server address, indexed the same way the consistent-hashing
// ring indexes its addresses. It is built once at client construction and
// never resized -- adding or removing a server means building a new
// Vector (and a new ring alongside it).
type Vector struct {
	proxies []*Proxy
}

// NewVector wraps proxies, in address order, as a Vector.
func NewVector(proxies []*Proxy) *Vector {
	return &Vector{proxies: append([]*Proxy(nil), proxies...)}
}

// Len returns the number of proxies in the vector.
func (v *Vector) Len() int { return len(v.proxies) }

// At returns the proxy at index i.
func (v *Vector) At(i int) *Proxy { return v.proxies[i] }

// All returns every proxy in the vector, in index order.
func (v *Vector) All() []*Proxy { return append([]*Proxy(nil), v.proxies...) }

// Dump renders a one-line-per-server diagnostic summary, addresses sorted
// for stable output regardless of build order.
func (v *Vector) Dump() string {
	addrs := set.NewSet()
	byAddr := make(map[string]*Proxy, len(v.proxies))
	for _, p := range v.proxies {
		addrs.Add(p.Address)
		byAddr[p.Address] = p
	}

	sorted := make([]string, 0, addrs.Len())
	addrs.Do(func(v interface{}) { sorted = append(sorted, v.(string)) })
	sort.Strings(sorted)

	var b strings.Builder
	for _, addr := range sorted {
		fmt.Fprintf(&b, "%s\t%s\n", addr, byAddr[addr].State())
	}
	return b.String()
}
