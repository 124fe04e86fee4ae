package logic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var levels = []Level{Low, High}

var polarities = []Polarity{ActiveLow, ActiveHigh}

// allPolarities enumerates every combination of line polarities.
func allPolarities() []Polarities {
	var out []Polarities
	for _, mf := range polarities {
		for _, ef := range polarities {
			for _, ms := range polarities {
				for _, fo := range polarities {
					for _, ao := range polarities {
						out = append(out, Polarities{mf, ef, ms, fo, ao})
					}
				}
			}
		}
	}
	return out
}

// allSnapshots enumerates every combination of raw input levels.
func allSnapshots() []Snapshot {
	var out []Snapshot
	for _, m := range levels {
		for _, e := range levels {
			for _, s := range levels {
				out = append(out, Snapshot{ManualFire: m, ExternalFire: e, ModeSwitch: s})
			}
		}
	}
	return out
}

func unsafe(name string) Interlock {
	return InterlockFunc{Label: name, Check: func() bool { return false }}
}

func TestNotReadyForcesSafeOutputs(t *testing.T) {
	for _, pol := range allPolarities() {
		for _, snap := range allSnapshots() {
			st, got := Cycle(snap, Interlocks{Always("ok"), unsafe("door")}, pol)
			if st.Ready {
				t.Fatalf("expected not ready")
			}
			if diff := cmp.Diff(SafeAssertion(pol), got); diff != "" {
				t.Errorf("pol=%+v snap=%+v: outputs not safe (-want +got):\n%s", pol, snap, diff)
			}
			if got.Armed(pol) || got.Firing(pol) {
				t.Errorf("pol=%+v snap=%+v: armed=%v firing=%v", pol, snap, got.Armed(pol), got.Firing(pol))
			}
		}
	}
}

func TestManualRouting(t *testing.T) {
	for _, pol := range allPolarities() {
		for _, snap := range allSnapshots() {
			snap.ModeSwitch = pol.ModeSwitch.Active()
			st, got := Cycle(snap, nil, pol)
			if !st.Manual {
				t.Fatalf("expected manual mode")
			}
			want := pol.ManualFire.IsActive(snap.ManualFire)
			if got.Firing(pol) != want {
				t.Errorf("pol=%+v snap=%+v: firing=%v, want %v", pol, snap, got.Firing(pol), want)
			}
		}
	}
}

func TestExternalRouting(t *testing.T) {
	for _, pol := range allPolarities() {
		for _, snap := range allSnapshots() {
			snap.ModeSwitch = pol.ModeSwitch.Inactive()
			st, got := Cycle(snap, nil, pol)
			if st.Manual {
				t.Fatalf("expected external mode")
			}
			want := pol.ExternalFire.IsActive(snap.ExternalFire)
			if got.Firing(pol) != want {
				t.Errorf("pol=%+v snap=%+v: firing=%v, want %v", pol, snap, got.Firing(pol), want)
			}
		}
	}
}

func TestArmFollowsReady(t *testing.T) {
	for _, pol := range allPolarities() {
		for _, snap := range allSnapshots() {
			for _, ready := range []bool{true, false} {
				var l Interlocks
				if !ready {
					l = Interlocks{unsafe("flow")}
				}
				_, got := Cycle(snap, l, pol)
				if got.Armed(pol) != ready {
					t.Errorf("pol=%+v snap=%+v ready=%v: armed=%v", pol, snap, ready, got.Armed(pol))
				}
			}
		}
	}
}

func TestCycleIsStateless(t *testing.T) {
	pol := DefaultPolarities()
	l := Interlocks{Always("stub")}
	for _, snap := range allSnapshots() {
		st1, a1 := Cycle(snap, l, pol)
		st2, a2 := Cycle(snap, l, pol)
		if diff := cmp.Diff(a1, a2); diff != "" {
			t.Errorf("snap=%+v: assertions differ (-first +second):\n%s", snap, diff)
		}
		if diff := cmp.Diff(st1, st2); diff != "" {
			t.Errorf("snap=%+v: states differ (-first +second):\n%s", snap, diff)
		}
	}
}

func TestArbitrateDoesNotConvert(t *testing.T) {
	snap := Snapshot{ManualFire: High, ExternalFire: Low}
	if got := Arbitrate(snap, true); got != High {
		t.Errorf("manual: got %s, want HIGH", got)
	}
	if got := Arbitrate(snap, false); got != Low {
		t.Errorf("external: got %s, want LOW", got)
	}
}

func TestEvaluateDecodesMode(t *testing.T) {
	pol := DefaultPolarities()

	st := Evaluate(Snapshot{ModeSwitch: Low}, nil, pol)
	if !st.Manual {
		t.Error("active-low mode switch at LOW should select manual")
	}
	st = Evaluate(Snapshot{ModeSwitch: High}, nil, pol)
	if st.Manual {
		t.Error("active-low mode switch at HIGH should select external")
	}

	pol.ModeSwitch = ActiveHigh
	st = Evaluate(Snapshot{ModeSwitch: High}, nil, pol)
	if !st.Manual {
		t.Error("active-high mode switch at HIGH should select manual")
	}
}

func TestEvaluateReportsFailing(t *testing.T) {
	st := Evaluate(Snapshot{}, Interlocks{Always("stub"), unsafe("water")}, DefaultPolarities())
	if st.Ready {
		t.Error("expected not ready")
	}
	if diff := cmp.Diff([]string{"water"}, st.Failing); diff != "" {
		t.Errorf("Failing (-want +got):\n%s", diff)
	}
}

// Bench scenarios, all lines active-low.
func TestCycleScenarios(t *testing.T) {
	pol := DefaultPolarities()
	active, inactive := Low, High

	tests := []struct {
		name       string
		snap       Snapshot
		interlocks Interlocks
		want       Assertion
	}{
		{
			name:       "ready manual firing",
			snap:       Snapshot{ManualFire: active, ExternalFire: inactive, ModeSwitch: active},
			interlocks: Interlocks{Always("stub")},
			want:       Assertion{Arm: active, Fire: active},
		},
		{
			name:       "ready external ignores manual button",
			snap:       Snapshot{ManualFire: active, ExternalFire: inactive, ModeSwitch: inactive},
			interlocks: Interlocks{Always("stub")},
			want:       Assertion{Arm: active, Fire: inactive},
		},
		{
			name:       "not ready manual firing",
			snap:       Snapshot{ManualFire: active, ExternalFire: active, ModeSwitch: active},
			interlocks: Interlocks{unsafe("water")},
			want:       Assertion{Arm: inactive, Fire: inactive},
		},
		{
			name: "empty interlock list is ready",
			snap: Snapshot{ManualFire: inactive, ExternalFire: active, ModeSwitch: inactive},
			want: Assertion{Arm: active, Fire: active},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Cycle(tt.snap, tt.interlocks, pol)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("assertion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActuateTranslatesMixedPolarity(t *testing.T) {
	// Active-low button driving an active-high power supply input.
	pol := DefaultPolarities()
	pol.FireOut = ActiveHigh

	_, got := Cycle(Snapshot{ManualFire: Low, ModeSwitch: Low}, nil, pol)
	if got.Fire != High {
		t.Errorf("pressed button: fire got %s, want HIGH", got.Fire)
	}

	_, got = Cycle(Snapshot{ManualFire: High, ModeSwitch: Low}, nil, pol)
	if got.Fire != Low {
		t.Errorf("released button: fire got %s, want LOW", got.Fire)
	}
}
