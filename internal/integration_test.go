package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/sweeney/laser-interlock/internal/gpio"
	"github.com/sweeney/laser-interlock/internal/logic"
	"github.com/sweeney/laser-interlock/internal/metrics"
	"github.com/sweeney/laser-interlock/internal/mqtt"
	"github.com/sweeney/laser-interlock/internal/status"
)

var (
	pol = logic.DefaultPolarities()

	externalIdle   = logic.Snapshot{ManualFire: logic.High, ExternalFire: logic.High, ModeSwitch: logic.High}
	externalFiring = logic.Snapshot{ManualFire: logic.High, ExternalFire: logic.Low, ModeSwitch: logic.High}
	manualExtHigh  = logic.Snapshot{ManualFire: logic.High, ExternalFire: logic.Low, ModeSwitch: logic.Low}
	manualPressed  = logic.Snapshot{ManualFire: logic.Low, ExternalFire: logic.Low, ModeSwitch: logic.Low}
)

// session runs the control pipeline over the scripted samples the way the
// daemon does, one sample per period.
type session struct {
	lines      *gpio.FakeLines
	interlocks logic.Interlocks
	debouncer  *logic.Debouncer
	armLead    *logic.ArmLead
	monitor    *logic.Monitor
	publisher  mqtt.Publisher
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	start      time.Time
	period     time.Duration
}

func newSession(samples []logic.Snapshot, interlocks logic.Interlocks, pub mqtt.Publisher) *session {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &session{
		lines:      gpio.NewFakeLines(pol, samples),
		interlocks: interlocks,
		debouncer:  logic.NewDebouncer(0, pol),
		armLead:    logic.NewArmLead(0),
		monitor:    logic.NewMonitor(pol, start),
		publisher:  pub,
		tracker:    status.NewTracker(start, status.Config{Broker: "tcp://localhost:1883"}),
		metrics:    metrics.New(),
		start:      start,
		period:     5 * time.Millisecond,
	}
}

func (s *session) run(t *testing.T, n int) {
	t.Helper()
	if err := s.lines.Write(logic.SafeAssertion(pol)); err != nil {
		t.Fatalf("safe boot: %v", err)
	}
	for i := 0; i < n; i++ {
		now := s.start.Add(time.Duration(i+1) * s.period)

		raw, err := s.lines.Read()
		if err != nil {
			t.Fatalf("cycle %d: read: %v", i, err)
		}
		st, a := logic.Cycle(s.debouncer.Process(raw, now), s.interlocks, pol)
		a = s.armLead.Apply(a, pol, now)
		if err := s.lines.Write(a); err != nil {
			t.Fatalf("cycle %d: write: %v", i, err)
		}

		armed, firing := a.Armed(pol), a.Firing(pol)
		s.metrics.ObserveCycle(st, armed, firing, time.Millisecond)
		for _, e := range s.monitor.Process(st, a, now) {
			if err := s.publisher.Publish(e); err != nil {
				t.Fatalf("cycle %d: publish: %v", i, err)
			}
		}
		s.tracker.Update(st, armed, firing, s.monitor.Counts())
	}
}

// tripAt returns an interlock that becomes unsafe from check n onwards.
func tripAt(name string, n int) logic.Interlock {
	calls := 0
	return logic.InterlockFunc{Label: name, Check: func() bool {
		calls++
		return calls < n
	}}
}

// TestIntegrationFullFlow walks external firing, a switch to manual, a manual
// press and finally an interlock trip.
func TestIntegrationFullFlow(t *testing.T) {
	samples := []logic.Snapshot{
		externalIdle,   // 1: baseline, armed
		externalFiring, // 2: FIRE_ON from the external controller
		externalFiring, // 3
		manualExtHigh,  // 4: MODE_MANUAL, external request ignored, FIRE_OFF
		manualPressed,  // 5: FIRE_ON from the panel
		manualPressed,  // 6: door opens, DISARMED and FIRE_OFF
		manualPressed,  // 7
	}
	pub := mqtt.NewFakePublisher()
	s := newSession(samples, logic.Interlocks{logic.Always("stub"), tripAt("door", 6)}, pub)

	s.run(t, len(samples))

	wantEvents := []logic.EventType{
		logic.EventFireOn,
		logic.EventModeManual, logic.EventFireOff,
		logic.EventFireOn,
		logic.EventDisarmed, logic.EventFireOff,
	}
	gotEvents := make([]logic.EventType, len(pub.Events))
	for i, e := range pub.Events {
		gotEvents[i] = e.Type
	}
	if diff := cmp.Diff(wantEvents, gotEvents); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	wantWrites := []logic.Assertion{
		logic.SafeAssertion(pol),
		{Arm: logic.Low, Fire: logic.High},
		{Arm: logic.Low, Fire: logic.Low},
		{Arm: logic.Low, Fire: logic.Low},
		{Arm: logic.Low, Fire: logic.High},
		{Arm: logic.Low, Fire: logic.Low},
		logic.SafeAssertion(pol),
		logic.SafeAssertion(pol),
	}
	if diff := cmp.Diff(wantWrites, s.lines.Writes); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}

	counts := s.monitor.Counts()
	if counts.FireOn != 2 || counts.FireOff != 2 || counts.Disarmed != 1 || counts.ModeManual != 1 {
		t.Errorf("unexpected counts %+v", counts)
	}

	// The last payload carries the failing interlock.
	var payload mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[len(pub.Payloads)-1], &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Interlock.Event != "FIRE_OFF" || payload.Interlock.Mode != "MANUAL" {
		t.Errorf("unexpected payload %+v", payload.Interlock)
	}
	if diff := cmp.Diff([]string{"door"}, payload.Interlock.Failing); diff != "" {
		t.Errorf("failing mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegrationStatusReflectsPipeline(t *testing.T) {
	samples := []logic.Snapshot{externalIdle, externalFiring, externalFiring}
	s := newSession(samples, logic.Interlocks{logic.Always("stub")}, mqtt.NewFakePublisher())

	s.run(t, len(samples))

	var got status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(s.tracker.Snapshot()), &got); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	inner := got.Status
	if !inner.Running || !inner.Ready || !inner.Armed || !inner.Firing {
		t.Errorf("unexpected status %+v", inner)
	}
	if inner.Mode != "EXTERNAL" {
		t.Errorf("mode = %q, want EXTERNAL", inner.Mode)
	}
	if inner.Cycles != 3 {
		t.Errorf("cycles = %d, want 3", inner.Cycles)
	}
	if inner.Failing == nil || len(inner.Failing) != 0 {
		t.Errorf("failing_interlocks should be an empty array, got %v", inner.Failing)
	}
	if inner.Counts.FireOn != 1 {
		t.Errorf("fire_on = %d, want 1", inner.Counts.FireOn)
	}
}

func TestIntegrationAsyncDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	samples := []logic.Snapshot{externalIdle, externalFiring, externalIdle, externalFiring, externalIdle}
	inner := mqtt.NewFakePublisher()
	async := mqtt.NewAsync(inner, 16)
	s := newSession(samples, logic.Interlocks{logic.Always("stub")}, async)

	s.run(t, len(samples))
	if err := async.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []logic.EventType{logic.EventFireOn, logic.EventFireOff, logic.EventFireOn, logic.EventFireOff}
	got := make([]logic.EventType, len(inner.Events))
	for i, e := range inner.Events {
		got[i] = e.Type
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("delivered events mismatch (-want +got):\n%s", diff)
	}
	if !inner.Closed {
		t.Error("inner publisher should be closed")
	}
	if async.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", async.Dropped())
	}
}
