package animscript

// instance is the default Instance implementation: elapsed time plus the
// starting-values snapshot it was created or resumed with.
type instance struct {
	script  Script
	elapsed float64
	start   Outputs
}

var _ Instance = (*instance)(nil)

// NewInstance creates a fresh instance of script with an empty
// starting-values snapshot, so FromStart endpoints fall back to Defaults.
func NewInstance(script Script) Instance {
	return &instance{script: script, start: Outputs{}}
}

// NewInstanceWithStart creates a fresh instance of script whose t=0
// starting-values snapshot is start, for the case where a new (not
// resumed) instance must still reproduce a known current value — e.g. a
// close animation's OPACITY must start from the window's opacity at the
// moment close triggers, not from whatever Defaults would otherwise
// guess.
func NewInstanceWithStart(script Script, start Outputs) Instance {
	return &instance{script: script, start: start}
}

// ResumeFrom creates a new instance of script initialized so its t=0
// outputs reproduce old's current observable outputs, per spec.md §4.3
// "let it resume-from the old instance (i.e. the new instance is
// initialized to reproduce the current observable outputs, then evolve
// toward the new target)".
func ResumeFrom(script Script, old Instance, ctx Context) Instance {
	var snapshot Outputs
	if old != nil {
		snapshot = old.Evaluate(ctx)
	} else {
		snapshot = Outputs{}
	}
	return &instance{script: script, start: snapshot}
}

func (i *instance) Script() Script     { return i.script }
func (i *instance) Elapsed() float64   { return i.elapsed }
func (i *instance) Start() Outputs     { return i.start }

func (i *instance) Advance(deltaSeconds float64) {
	if deltaSeconds > 0 {
		i.elapsed += deltaSeconds
	}
}

func (i *instance) Evaluate(ctx Context) Outputs {
	return i.script.Evaluate(i.elapsed, ctx, i.start)
}

func (i *instance) Finished() bool {
	d := i.script.Duration()
	return d > 0 && i.elapsed >= d
}

// EndValue forces instance to report its script's end-of-duration value
// under ctx immediately, for the "skip" cancellation mode of spec.md §4.3
// ("skip forces it to its computed target").
func EndValue(i Instance, ctx Context) Outputs {
	ins, ok := i.(*instance)
	if !ok {
		return i.Evaluate(ctx)
	}
	d := ins.script.Duration()
	if d <= 0 {
		d = ins.elapsed
	}
	return ins.script.Evaluate(d, ctx, ins.start)
}
