// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	store := NewStore()
	store.AddAll([]Outcome{
		{Domain: "a.example", Resolver: "https://r1/", Category: CategoryUseful, Status: StatusResolved},
		{Domain: "b.example", Resolver: "https://r1/", Category: CategoryUseless, Status: StatusBlocked},
		{Domain: "a.example", Resolver: "https://r2/", Category: CategoryUseful, Status: StatusBlocked},
		{Domain: "b.example", Resolver: "https://r2/", Category: CategoryUseless, Status: StatusError},
	})
	return store
}

func TestStoreQuery(t *testing.T) {
	type testCase struct {
		// name is the subtest name.
		name string

		// filters are the filters to apply.
		filters []Filter

		// want are the expected (domain, resolver) pairs in order.
		want [][2]string
	}

	tests := []testCase{
		{
			name:    "no filters returns everything in insertion order",
			filters: nil,
			want: [][2]string{
				{"a.example", "https://r1/"},
				{"b.example", "https://r1/"},
				{"a.example", "https://r2/"},
				{"b.example", "https://r2/"},
			},
		},

		{
			name:    "by resolver",
			filters: []Filter{ByResolver("https://r2/")},
			want: [][2]string{
				{"a.example", "https://r2/"},
				{"b.example", "https://r2/"},
			},
		},

		{
			name:    "by status",
			filters: []Filter{ByStatus(StatusBlocked)},
			want: [][2]string{
				{"b.example", "https://r1/"},
				{"a.example", "https://r2/"},
			},
		},

		{
			name:    "filters are combined with AND",
			filters: []Filter{ByDomain("a.example"), ByCategory(CategoryUseful), ByStatus(StatusBlocked)},
			want: [][2]string{
				{"a.example", "https://r2/"},
			},
		},

		{
			name:    "nothing matches",
			filters: []Filter{ByResolver("https://unknown/")},
			want:    [][2]string{},
		},
	}

	store := newTestStore()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := store.Query(tc.filters...)
			require.NotNil(t, got)
			pairs := make([][2]string, 0, len(got))
			for _, o := range got {
				pairs = append(pairs, [2]string{o.Domain, o.Resolver})
			}
			assert.Equal(t, tc.want, pairs)
		})
	}
}

func TestStoreQueryReturnsCopy(t *testing.T) {
	store := newTestStore()
	got := store.Query()
	got[0].Domain = "mutated"
	assert.Equal(t, "a.example", store.Query()[0].Domain)
}

func TestStoreDistinct(t *testing.T) {
	store := newTestStore()
	assert.Equal(t, []string{"https://r1/", "https://r2/"}, store.Resolvers())
	assert.Equal(t, []string{"a.example", "b.example"}, store.Domains())

	empty := NewStore()
	assert.Equal(t, []string{}, empty.Resolvers())
	assert.Equal(t, []string{}, empty.Domains())
	assert.Equal(t, 0, empty.Len())
}

func TestStoreConcurrentAdd(t *testing.T) {
	var store Store
	var wg sync.WaitGroup
	for range 64 {
		wg.Go(func() {
			store.Add(Outcome{Domain: "a.example", Resolver: "https://r1/"})
			_ = store.Query(ByDomain("a.example"))
		})
	}
	wg.Wait()
	assert.Equal(t, 64, store.Len())
}
