package main

import (
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/laser-interlock/internal/gpio"
	"github.com/sweeney/laser-interlock/internal/logic"
	"github.com/sweeney/laser-interlock/internal/metrics"
	"github.com/sweeney/laser-interlock/internal/mqtt"
	"github.com/sweeney/laser-interlock/internal/status"
)

// loop holds everything one control loop needs. The lines are owned by the
// loop for its whole lifetime; nothing else reads or writes them.
type loop struct {
	lines      gpio.Lines
	interlocks logic.Interlocks
	pol        logic.Polarities
	debounce   time.Duration
	armLead    time.Duration
	heartbeat  time.Duration
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	metrics    *metrics.Metrics      // may be nil
	now        func() time.Time
}

// runLoop asserts the safe outputs, then runs one cycle per tick until a
// signal arrives or a line fails. A signal returns nil after forcing the safe
// outputs; a line failure forces them and returns the error.
func runLoop(l loop, tick <-chan time.Time, sig <-chan os.Signal) error {
	safe := logic.SafeAssertion(l.pol)

	// Both outputs inactive before the first input is read.
	if err := l.lines.Write(safe); err != nil {
		return fmt.Errorf("assert safe outputs: %w", err)
	}
	l.observeSafe()

	startTime := l.now()
	debouncer := logic.NewDebouncer(l.debounce, l.pol)
	armLead := logic.NewArmLead(l.armLead)
	monitor := logic.NewMonitor(l.pol, startTime)

	l.publishStatus("STARTUP", "")

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if err := l.lines.Write(safe); err != nil {
				log.Printf("assert safe outputs on shutdown: %v", err)
			}
			l.observeSafe()
			l.publishStatus("SHUTDOWN", signalName(s))
			return nil

		case <-tick:
			t := l.now()
			if err := l.cycle(t, debouncer, armLead, monitor); err != nil {
				log.Printf("fault: %v", err)
				if werr := l.lines.Write(safe); werr != nil {
					log.Printf("assert safe outputs after fault: %v", werr)
				}
				l.observeSafe()
				l.publishStatus("FAULT", err.Error())
				return err
			}
		}
	}
}

// cycle runs sample, debounce, evaluate, arbitrate, assert for one tick.
func (l loop) cycle(t time.Time, debouncer *logic.Debouncer, armLead *logic.ArmLead, monitor *logic.Monitor) error {
	started := time.Now()

	raw, err := l.lines.Read()
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}

	snap := debouncer.Process(raw, t)
	st, a := logic.Cycle(snap, l.interlocks, l.pol)
	a = armLead.Apply(a, l.pol, t)
	if err := l.lines.Err(); err != nil {
		return err
	}

	if err := l.lines.Write(a); err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}

	armed, firing := a.Armed(l.pol), a.Firing(l.pol)
	l.metrics.ObserveCycle(st, armed, firing, time.Since(started))

	for _, event := range monitor.Process(st, a, t) {
		log.Printf("event: %s (armed=%v firing=%v mode=%s failing=%v)",
			event.Type, event.Armed, event.Firing, event.Mode, event.Failing)
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	if l.tracker != nil {
		l.tracker.Update(st, armed, firing, monitor.Counts())
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
	}

	if hb := monitor.CheckHeartbeat(t, l.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v armed=%d disarmed=%d fire_on=%d fire_off=%d",
			hb.Uptime, hb.Counts.Armed, hb.Counts.Disarmed, hb.Counts.FireOn, hb.Counts.FireOff)
		if l.tracker != nil {
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				l.tracker.SetNetwork(net)
			}
		}
		l.publishStatus("HEARTBEAT", "")
	}
	return nil
}

func (l loop) observeSafe() {
	l.metrics.ObserveSafe()
	if l.tracker != nil {
		l.tracker.SetSafe()
	}
}

// publishStatus publishes a system event carrying a full status snapshot
// when a tracker is available.
func (l loop) publishStatus(event, reason string) {
	e := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     event,
		Reason:    reason,
		Retained:  event != "HEARTBEAT",
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		e.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), event, reason)
	}
	l.publishSystem(e)
}

func (l loop) publishSystem(e mqtt.SystemEvent) {
	if err := l.publisher.PublishSystem(e); err != nil {
		log.Printf("failed to publish %s event: %v", e.Event, err)
		return
	}
	log.Printf("published %s event", e.Event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	}
	return "UNKNOWN"
}
