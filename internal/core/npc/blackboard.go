package npc

import (
	"sort"
	"strings"
	"sync"
)

// bbMap is a map-based blackboard. Namespaced views share the root map.
type bbMap struct {
	mu     sync.RWMutex
	data   map[string]any
	prefix string
	root   *bbMap
}

func NewBlackboard() Blackboard {
	m := &bbMap{data: make(map[string]any)}
	m.root = m
	return m
}

func (b *bbMap) fullKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

func (b *bbMap) Get(key string) (any, bool) {
	bb := b.root
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	v, ok := bb.data[b.fullKey(key)]
	return v, ok
}

func (b *bbMap) Set(key string, value any) {
	bb := b.root
	bb.mu.Lock()
	bb.data[b.fullKey(key)] = value
	bb.mu.Unlock()
}

func (b *bbMap) Delete(key string) {
	bb := b.root
	bb.mu.Lock()
	delete(bb.data, b.fullKey(key))
	bb.mu.Unlock()
}

func (b *bbMap) Namespace(ns string) Blackboard {
	ns = strings.ReplaceAll(ns, ":", "_")
	return &bbMap{root: b.root, prefix: b.fullKey(ns)}
}

func (b *bbMap) Keys() []string {
	bb := b.root
	bb.mu.RLock()
	keys := make([]string, 0, len(bb.data))
	for k := range bb.data {
		keys = append(keys, k)
	}
	bb.mu.RUnlock()
	sort.Strings(keys)
	if b.prefix == "" {
		return keys
	}
	res := make([]string, 0)
	pref := b.prefix + ":"
	for _, k := range keys {
		if strings.HasPrefix(k, pref) {
			res = append(res, strings.TrimPrefix(k, pref))
		}
	}
	return res
}

func (b *bbMap) Clear() {
	bb := b.root
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if b.prefix == "" {
		clear(bb.data)
		return
	}
	pref := b.prefix + ":"
	for k := range bb.data {
		if strings.HasPrefix(k, pref) {
			delete(bb.data, k)
		}
	}
}
