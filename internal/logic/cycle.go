package logic

// Evaluate decides readiness from the interlock list and decodes the mode
// switch. The selected fire level is left for Arbitrate.
func Evaluate(snap Snapshot, interlocks Interlocks, pol Polarities) State {
	failing := interlocks.Failing()
	return State{
		Ready:   len(failing) == 0,
		Manual:  pol.ModeSwitch.IsActive(snap.ModeSwitch),
		Failing: failing,
	}
}

// Arbitrate selects the raw fire request of the active source.
func Arbitrate(snap Snapshot, manual bool) Level {
	if manual {
		return snap.ManualFire
	}
	return snap.ExternalFire
}

// SafeAssertion returns both outputs at their inactive level.
func SafeAssertion(pol Polarities) Assertion {
	return Assertion{
		Arm:  pol.ArmOut.Inactive(),
		Fire: pol.FireOut.Inactive(),
	}
}

// Actuate converts a State into output levels. When the system is not ready
// both outputs are inactive regardless of any input.
func Actuate(st State, pol Polarities) Assertion {
	if !st.Ready {
		return SafeAssertion(pol)
	}
	source := pol.ExternalFire
	if st.Manual {
		source = pol.ManualFire
	}
	return Assertion{
		Arm:  pol.ArmOut.Active(),
		Fire: Translate(st.Selected, source, pol.FireOut),
	}
}

// Cycle is one pass of evaluate, arbitrate and actuate. It holds no state:
// identical inputs always produce identical outputs.
func Cycle(snap Snapshot, interlocks Interlocks, pol Polarities) (State, Assertion) {
	st := Evaluate(snap, interlocks, pol)
	st.Selected = Arbitrate(snap, st.Manual)
	return st, Actuate(st, pol)
}

// Armed reports whether an assertion drives the arm output active.
func (a Assertion) Armed(pol Polarities) bool {
	return pol.ArmOut.IsActive(a.Arm)
}

// Firing reports whether an assertion drives the fire output active.
func (a Assertion) Firing(pol Polarities) bool {
	return pol.FireOut.IsActive(a.Fire)
}
