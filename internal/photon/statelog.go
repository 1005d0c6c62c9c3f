package photon

import "github.com/sirupsen/logrus"

// TransitionLog counts state-machine transitions and termination reasons.
// One per worker; merge at the end of a run.
type TransitionLog struct {
	launched    uint64
	transitions [numStates][numStates]uint64
	reasons     [numReasons]uint64
}

func NewTransitionLog() *TransitionLog { return &TransitionLog{} }

// Count returns how often from -> to happened.
func (l *TransitionLog) Count(from, to State) uint64 { return l.transitions[from][to] }

// Terminations returns how many histories ended for r.
func (l *TransitionLog) Terminations(r Reason) uint64 { return l.reasons[r] }

func (l *TransitionLog) Launched() uint64 { return l.launched }

func (l *TransitionLog) Merge(o *TransitionLog) {
	if o == nil {
		return
	}
	l.launched += o.launched
	for i := range l.transitions {
		for j := range l.transitions[i] {
			l.transitions[i][j] += o.transitions[i][j]
		}
	}
	for i := range l.reasons {
		l.reasons[i] += o.reasons[i]
	}
}

// Report writes non-zero counters at debug level.
func (l *TransitionLog) Report(log logrus.FieldLogger) {
	log.Debugf("histories launched: %d", l.launched)
	for i := range l.transitions {
		for j, n := range l.transitions[i] {
			if n > 0 {
				log.Debugf("transition %s -> %s: %d", State(i), State(j), n)
			}
		}
	}
	for i, n := range l.reasons {
		if n > 0 {
			log.Debugf("terminated %s: %d", Reason(i), n)
		}
	}
}
