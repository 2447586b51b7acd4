package simulator

import (
	"github.com/ahmetb/go-linq/v3"

	"github.com/arloliu/secs-simulator/hsms"
)

func (s *Simulator) addPending(primary *hsms.DataMessage) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, primary)
	n := len(s.pending)
	s.pendingMu.Unlock()

	s.metrics.PendingPrimaries.Set(float64(n))
	s.logger.Debug("primary pending reply", hsms.MsgInfo(primary, "pending", n)...)
}

// takePending removes and returns the first pending primary reply answers:
// same stream, and a function code one less than the reply's.
func (s *Simulator) takePending(reply *hsms.DataMessage) (*hsms.DataMessage, bool) {
	if reply.IsPrimary() || reply.FunctionCode() == 0 {
		return nil, false
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	found := linq.From(s.pending).FirstWithT(func(primary *hsms.DataMessage) bool {
		return primary.StreamCode() == reply.StreamCode() && primary.FunctionCode()+1 == reply.FunctionCode()
	})
	if found == nil {
		return nil, false
	}

	primary := found.(*hsms.DataMessage) //nolint:forcetypeassert
	for i, p := range s.pending {
		if p == primary {
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			break
		}
	}
	s.metrics.PendingPrimaries.Set(float64(len(s.pending)))

	return primary, true
}

func (s *Simulator) clearPending() {
	s.pendingMu.Lock()
	n := len(s.pending)
	s.pending = nil
	s.pendingMu.Unlock()

	s.metrics.PendingPrimaries.Set(0)
	if n > 0 {
		s.logger.Info("pending primaries dropped on disconnection", "count", n)
	}
}
