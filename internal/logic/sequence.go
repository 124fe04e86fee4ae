package logic

import "time"

// ArmLead holds the fire output inactive until the arm output has been
// continuously active for a lead time. With a lead <= 0 it changes nothing.
type ArmLead struct {
	lead       time.Duration
	armed      bool
	armedSince time.Time
}

// NewArmLead creates an ArmLead with the given lead time.
func NewArmLead(lead time.Duration) *ArmLead {
	return &ArmLead{lead: lead}
}

// Apply returns the assertion to write at time now.
func (s *ArmLead) Apply(a Assertion, pol Polarities, now time.Time) Assertion {
	armed := a.Armed(pol)
	if armed && !s.armed {
		s.armedSince = now
	}
	s.armed = armed

	if s.lead <= 0 || !armed {
		return a
	}
	if now.Sub(s.armedSince) < s.lead {
		a.Fire = pol.FireOut.Inactive()
	}
	return a
}
