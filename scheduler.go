package main

import (
	"slices"
	"sync"
	"time"
)

type FrameID uint64

// FrameScheduler fires registered callbacks once, on the next display
// frame.
type FrameScheduler interface {
	RequestFrame(cb func(t time.Duration)) FrameID
	CancelFrame(id FrameID)
}

// ManualScheduler queues frame requests until Tick. The window loop ticks
// it once per presented frame; tests tick it directly.
type ManualScheduler struct {
	mu      sync.Mutex
	nextID  FrameID
	pending map[FrameID]func(time.Duration)
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		pending: make(map[FrameID]func(time.Duration)),
	}
}

func (s *ManualScheduler) RequestFrame(cb func(t time.Duration)) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.pending[s.nextID] = cb
	return s.nextID
}

func (s *ManualScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Tick runs every callback requested before the call, in request order,
// and returns how many ran. Callbacks requested during the tick wait for
// the next one. A callback cancelled by an earlier callback of the same
// tick does not run.
func (s *ManualScheduler) Tick(t time.Duration) int {
	s.mu.Lock()
	ids := make([]FrameID, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)

	ran := 0
	for _, id := range ids {
		s.mu.Lock()
		cb, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if !ok {
			continue
		}
		cb(t)
		ran++
	}
	return ran
}
