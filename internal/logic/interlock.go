package logic

// Interlock is a single safety condition that must hold for the system to be
// ready. New sensors (water flow, temperature, door) are added as Interlocks;
// the evaluator never special-cases them.
type Interlock interface {
	Name() string
	Safe() bool
}

// InterlockFunc adapts a plain predicate to the Interlock interface.
type InterlockFunc struct {
	Label string
	Check func() bool
}

// Name returns the interlock label.
func (f InterlockFunc) Name() string { return f.Label }

// Safe runs the predicate. A nil predicate is unsafe.
func (f InterlockFunc) Safe() bool {
	if f.Check == nil {
		return false
	}
	return f.Check()
}

// Always returns an interlock that is always safe. It stands in for a
// readiness check with no sensor behind it.
func Always(name string) Interlock {
	return InterlockFunc{Label: name, Check: func() bool { return true }}
}

// Interlocks is the ordered list of checks ANDed into readiness.
type Interlocks []Interlock

// Ready reports whether every interlock is safe. An empty list is ready.
func (l Interlocks) Ready() bool {
	return len(l.Failing()) == 0
}

// Failing evaluates every interlock once, in order, and returns the names of
// the unsafe ones.
func (l Interlocks) Failing() []string {
	var failing []string
	for _, il := range l {
		if !il.Safe() {
			failing = append(failing, il.Name())
		}
	}
	return failing
}
