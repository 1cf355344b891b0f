// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retention implements the retention index: a stalest-first
// priority queue over bucket keys, used to reclaim idle buckets. It is
// backed by container/heap ordered ascending by last-activity timestamp,
// so the stalest entry always surfaces first, with an index side-table so
// Touch and Drop are O(log n) updates in place rather than O(n) scans.
package retention

import (
	"container/heap"

	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

type entry struct {
	key       bucket.Key
	timestamp int64
	index     int
}

type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool { return q[i].timestamp < q[j].timestamp }

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// Index is the retention priority queue.
type Index struct {
	q     queue
	byKey map[bucket.Key]*entry
}

// New creates an empty retention Index.
func New() *Index {
	return &Index{byKey: make(map[bucket.Key]*entry)}
}

// Touch records activity on key at timestamp now, inserting it if it is
// not already tracked or updating its position if it is.
func (idx *Index) Touch(key bucket.Key, now int64) {
	if e, ok := idx.byKey[key]; ok {
		e.timestamp = now
		heap.Fix(&idx.q, e.index)
		return
	}
	e := &entry{key: key, timestamp: now}
	heap.Push(&idx.q, e)
	idx.byKey[key] = e
}

// Drop removes key from the index, wherever it sits in the heap.
func (idx *Index) Drop(key bucket.Key) {
	e, ok := idx.byKey[key]
	if !ok {
		return
	}
	heap.Remove(&idx.q, e.index)
	delete(idx.byKey, key)
}

// Len reports how many keys are currently tracked.
func (idx *Index) Len() int {
	return len(idx.q)
}

// Peek returns the stalest tracked key and its timestamp without removing
// it, and whether the index is non-empty.
func (idx *Index) Peek() (bucket.Key, int64, bool) {
	if len(idx.q) == 0 {
		return bucket.Key{}, 0, false
	}
	e := idx.q[0]
	return e.key, e.timestamp, true
}

// Sweep removes every key whose age (now - timestamp) is strictly greater
// than retention, calling remove for each one, and short-circuits as soon
// as it finds an entry that is not yet strictly stale (since the heap is
// timestamp ordered, nothing staler can remain beyond that point). Exact
// equality (age == retention) is not eviction-eligible.
func (idx *Index) Sweep(now int64, retention int64, remove func(bucket.Key)) {
	deadline := now - retention
	for idx.Len() > 0 {
		key, ts, _ := idx.Peek()
		if ts >= deadline {
			return
		}
		heap.Pop(&idx.q)
		delete(idx.byKey, key)
		remove(key)
	}
}
