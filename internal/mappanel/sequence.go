package mappanel

// sequence applies the results of one selection in a fixed order even
// though the fetches behind them run concurrently. Each step owns a slot;
// a slot holds its apply function once its fetch completes, and slots are
// drained strictly front to back. A failed step stops the drain.
type sequence struct {
	onFail   func(err error)
	onDone   func()
	slots    []*slot
	epoch    uint64
	next     int
	failed   bool
	doneCall bool
}

type slot struct {
	apply func()
	err   error
	name  string
	ready bool
}

func newSequence(epoch uint64, onFail func(error)) *sequence {
	return &sequence{epoch: epoch, onFail: onFail}
}

// add appends a step and returns its index.
func (s *sequence) add(name string) int {
	s.slots = append(s.slots, &slot{name: name})
	return len(s.slots) - 1
}

// complete records the outcome of step i and applies everything that is
// now unblocked.
func (s *sequence) complete(i int, apply func(), err error) {
	sl := s.slots[i]
	if sl.ready {
		return
	}
	sl.ready, sl.apply, sl.err = true, apply, err
	s.drain()
}

func (s *sequence) drain() {
	for !s.failed && s.next < len(s.slots) && s.slots[s.next].ready {
		sl := s.slots[s.next]
		if sl.err != nil {
			s.failed = true
			if s.onFail != nil {
				s.onFail(sl.err)
			}
			break
		}
		if sl.apply != nil {
			sl.apply()
		}
		s.next++
	}
	if s.finished() && !s.doneCall {
		s.doneCall = true
		if s.onDone != nil {
			s.onDone()
		}
	}
}

// queued returns the apply function of step i when its result has arrived
// without error but is still blocked behind an earlier step.
func (s *sequence) queued(i int) func() {
	if s.failed || i < s.next || i >= len(s.slots) {
		return nil
	}
	sl := s.slots[i]
	if !sl.ready || sl.err != nil {
		return nil
	}
	return sl.apply
}

// finished reports whether every step was applied or the sequence failed.
func (s *sequence) finished() bool {
	return s.failed || s.next == len(s.slots)
}

// pending returns the names of steps not yet applied.
func (s *sequence) pending() []string {
	var out []string
	for _, sl := range s.slots[s.next:] {
		out = append(out, sl.name)
	}
	return out
}
