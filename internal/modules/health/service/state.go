package service

import (
	"sync/atomic"
	"time"
)

// State - живость процесса для /readyz и /healthz. Движок отмечает каждый
// завершённый цикл, готовность выставляется после первого.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastTickUnix atomic.Int64 // unix seconds
	cycles       atomic.Int64

	// тишина дольше maxSilence = движок завис, 0 - не проверять
	maxSilence time.Duration
}

func NewState(maxSilence time.Duration) *State {
	s := &State{startedAt: time.Now(), maxSilence: maxSilence}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) TouchTick(t time.Time) {
	s.lastTickUnix.Store(t.Unix())
	s.cycles.Add(1)
}

func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Cycles() int64 { return s.cycles.Load() }

// Stale - циклов не было дольше maxSilence.
func (s *State) Stale(now time.Time) bool {
	last := s.LastTick()
	if s.maxSilence <= 0 || last.IsZero() {
		return false
	}
	return now.Sub(last) > s.maxSilence
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
