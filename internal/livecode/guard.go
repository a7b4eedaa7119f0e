package livecode

// Guard hands out generations and decides which completions may be applied.
// A completion is applied only for the latest issued generation, and only
// once.
type Guard struct {
	issued   uint64
	accepted uint64
	resolved uint64
}

// Issue returns the next generation.
func (g *Guard) Issue() uint64 {
	g.issued++
	return g.issued
}

// Accept reports whether a successful result for gen may replace the active
// sequence, and records it as accepted if so.
func (g *Guard) Accept(gen uint64) bool {
	if gen != g.issued || gen <= g.accepted {
		return false
	}
	g.accepted = gen
	g.resolved = gen
	return true
}

// Fail records that gen ended without a result. It reports false when gen
// was already superseded, in which case the failure is not surfaced.
func (g *Guard) Fail(gen uint64) bool {
	if gen != g.issued || gen <= g.resolved {
		return false
	}
	g.resolved = gen
	return true
}

// Latest returns the highest generation issued.
func (g *Guard) Latest() uint64 { return g.issued }

// Accepted returns the highest generation accepted.
func (g *Guard) Accepted() uint64 { return g.accepted }

// InFlight reports whether the latest issued generation is unresolved.
func (g *Guard) InFlight() bool { return g.issued > g.resolved }
