// Command laser-interlock gates the laser fire and arm outputs behind the
// interlock checks and routes the manual or external fire request to the
// power supply.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/laser-interlock/internal/gpio"
	"github.com/sweeney/laser-interlock/internal/logic"
	"github.com/sweeney/laser-interlock/internal/metrics"
	"github.com/sweeney/laser-interlock/internal/mqtt"
	"github.com/sweeney/laser-interlock/internal/status"
	"github.com/sweeney/laser-interlock/internal/web"
)

type options struct {
	chip        string
	pins        gpio.Pins
	polarity    logic.Polarities
	interlocks  interlockFlags
	period      time.Duration
	debounce    time.Duration
	armLead     time.Duration
	broker      string
	heartbeat   time.Duration
	httpAddr    string
	printInputs bool
}

func main() {
	var opts options
	defaults := gpio.DefaultPins()
	flag.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO chip device name")
	flag.IntVar(&opts.pins.ManualFire, "pin-manual-fire", defaults.ManualFire, "BCM pin for the panel fire button")
	flag.IntVar(&opts.pins.ExternalFire, "pin-external-fire", defaults.ExternalFire, "BCM pin for the external controller fire signal")
	flag.IntVar(&opts.pins.ModeSwitch, "pin-mode", defaults.ModeSwitch, "BCM pin for the manual/external mode switch")
	flag.IntVar(&opts.pins.FireOut, "pin-fire-out", defaults.FireOut, "BCM pin for the fire output to the power supply")
	flag.IntVar(&opts.pins.ArmOut, "pin-arm-out", defaults.ArmOut, "BCM pin for the arm output")
	manualPol := flag.String("manual-fire-polarity", "active-low", "Panel fire button polarity (active-low or active-high)")
	externalPol := flag.String("external-fire-polarity", "active-low", "External fire signal polarity")
	modePol := flag.String("mode-polarity", "active-low", "Level of the mode switch that selects manual")
	fireOutPol := flag.String("fire-out-polarity", "active-low", "Fire output polarity")
	armOutPol := flag.String("arm-polarity", "active-low", "Arm output polarity")
	flag.Var(&opts.interlocks, "interlock", "Interlock input as name:pin[:polarity]; the interlock is safe while the pin is active (repeatable)")
	flag.DurationVar(&opts.period, "period", 5*time.Millisecond, "Control cycle period")
	flag.DurationVar(&opts.debounce, "debounce", 0, "Input debounce duration (0 disables)")
	flag.DurationVar(&opts.armLead, "arm-lead", 0, "Minimum time arm is active before fire may follow (0 disables)")
	flag.StringVar(&opts.broker, "broker", "tcp://localhost:1883", "MQTT broker address for telemetry")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP diagnostics address (empty to disable)")
	flag.BoolVar(&opts.printInputs, "print-inputs", false, "Print current input levels and exit")

	flag.Parse()

	pol, err := parsePolarities(*manualPol, *externalPol, *modePol, *fireOutPol, *armOutPol)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	opts.polarity = pol

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func parsePolarities(manual, external, mode, fireOut, armOut string) (logic.Polarities, error) {
	var pol logic.Polarities
	for _, p := range []struct {
		flag string
		val  string
		dst  *logic.Polarity
	}{
		{"manual-fire-polarity", manual, &pol.ManualFire},
		{"external-fire-polarity", external, &pol.ExternalFire},
		{"mode-polarity", mode, &pol.ModeSwitch},
		{"fire-out-polarity", fireOut, &pol.FireOut},
		{"arm-polarity", armOut, &pol.ArmOut},
	} {
		v, err := logic.ParsePolarity(p.val)
		if err != nil {
			return logic.Polarities{}, fmt.Errorf("-%s: %w", p.flag, err)
		}
		*p.dst = v
	}
	return pol, nil
}

func run(opts options) error {
	if opts.period <= 0 {
		return fmt.Errorf("period must be positive, got %v", opts.period)
	}

	// Initialize GPIO. Outputs come up inactive; any failure here aborts
	// before the loop and leaves the outputs to the external pull resistors.
	lines, err := gpio.NewRealLines(gpio.Config{
		Chip:       opts.chip,
		Pins:       opts.pins,
		Polarity:   opts.polarity,
		Interlocks: opts.interlocks,
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := lines.Close(); err != nil {
			log.Printf("close gpio: %v", err)
		}
	}()

	// Print inputs mode
	if opts.printInputs {
		snap, err := lines.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Print(describeInputs(snap, opts.polarity))
		return nil
	}

	interlocks := lines.Interlocks()
	if len(interlocks) == 0 {
		log.Printf("warning: no interlocks configured, system is always ready")
		interlocks = logic.Interlocks{logic.Always("stub")}
	}

	// Initialize MQTT telemetry
	mqttPub, err := mqtt.NewRealPublisher(opts.broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	publisher := mqtt.NewAsync(mqttPub, mqtt.DefaultQueueSize)
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PeriodMs:    opts.period.Milliseconds(),
		DebounceMs:  opts.debounce.Milliseconds(),
		ArmLeadMs:   opts.armLead.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		Pins:        pinMap(opts.pins),
		Polarity:    polarityMap(opts.polarity),
		Interlocks:  interlockNames(interlocks),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	m := metrics.New()
	m.TrackDropped(publisher.Dropped)

	// Start HTTP diagnostics server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Printf("http diagnostics listening on %s", opts.httpAddr)
	}

	log.Printf("started: period=%v debounce=%v arm-lead=%v broker=%s heartbeat=%v interlocks=%s",
		opts.period, opts.debounce, opts.armLead, opts.broker, opts.heartbeat,
		strings.Join(interlockNames(interlocks), ","))

	ticker := time.NewTicker(opts.period)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	return runLoop(loop{
		lines:      lines,
		interlocks: interlocks,
		pol:        opts.polarity,
		debounce:   opts.debounce,
		armLead:    opts.armLead,
		heartbeat:  opts.heartbeat,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    m,
		now:        time.Now,
	}, ticker.C, sigCh)
}

func describeInputs(snap logic.Snapshot, pol logic.Polarities) string {
	state := func(active bool) string {
		if active {
			return "active"
		}
		return "inactive"
	}
	return fmt.Sprintf("manual fire: %s (%s)\nexternal fire: %s (%s)\nmode: %s (%s)\n",
		snap.ManualFire, state(pol.ManualFire.IsActive(snap.ManualFire)),
		snap.ExternalFire, state(pol.ExternalFire.IsActive(snap.ExternalFire)),
		snap.ModeSwitch, logic.ModeOf(pol.ModeSwitch.IsActive(snap.ModeSwitch)))
}

func pinMap(p gpio.Pins) map[string]int {
	return map[string]int{
		"manual_fire":   p.ManualFire,
		"external_fire": p.ExternalFire,
		"mode":          p.ModeSwitch,
		"fire_out":      p.FireOut,
		"arm_out":       p.ArmOut,
	}
}

func polarityMap(p logic.Polarities) map[string]string {
	return map[string]string{
		"manual_fire":   p.ManualFire.String(),
		"external_fire": p.ExternalFire.String(),
		"mode":          p.ModeSwitch.String(),
		"fire_out":      p.FireOut.String(),
		"arm_out":       p.ArmOut.String(),
	}
}

func interlockNames(l logic.Interlocks) []string {
	names := make([]string, len(l))
	for i, il := range l {
		names[i] = il.Name()
	}
	return names
}

// interlockFlags collects repeated -interlock flags.
type interlockFlags []gpio.InterlockPin

func (f *interlockFlags) String() string {
	parts := make([]string, len(*f))
	for i, p := range *f {
		parts[i] = fmt.Sprintf("%s:%d:%s", p.Name, p.Offset, p.Polarity)
	}
	return strings.Join(parts, ",")
}

func (f *interlockFlags) Set(s string) error {
	pin, err := gpio.ParseInterlockPin(s)
	if err != nil {
		return err
	}
	for _, p := range *f {
		if p.Name == pin.Name {
			return fmt.Errorf("interlock %q given twice", pin.Name)
		}
	}
	*f = append(*f, pin)
	return nil
}
