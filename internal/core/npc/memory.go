package npc

import "sync"

const DefaultMemorySize = 128

// ringMemory keeps the last size decision records.
type ringMemory struct {
	mu   sync.RWMutex
	list []DecisionRecord
	size int
}

// NewMemory creates a memory that keeps at most size records.
// A non-positive size uses DefaultMemorySize.
func NewMemory(size int) Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &ringMemory{list: make([]DecisionRecord, 0, size), size: size}
}

func (m *ringMemory) AppendDecision(rec DecisionRecord) {
	m.mu.Lock()
	if len(m.list) == m.size {
		copy(m.list, m.list[1:])
		m.list = m.list[:m.size-1]
	}
	m.list = append(m.list, rec)
	m.mu.Unlock()
}

func (m *ringMemory) History() []DecisionRecord {
	m.mu.RLock()
	cp := make([]DecisionRecord, len(m.list))
	copy(cp, m.list)
	m.mu.RUnlock()
	return cp
}

func (m *ringMemory) Reset() {
	m.mu.Lock()
	m.list = m.list[:0]
	m.mu.Unlock()
}
