package core

// Readiness is the permission handshake state.
type Readiness int

const (
	ReadinessUnknown Readiness = iota
	ReadinessGranted
	ReadinessDenied
)

func (r Readiness) String() string {
	switch r {
	case ReadinessGranted:
		return "granted"
	case ReadinessDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// ReadinessGate tracks whether mutating operations are allowed.
// Explicit host results always apply; inference only moves Unknown to Granted.
type ReadinessGate struct {
	state      Readiness
	resultSeen bool
	inferred   bool
}

// Grant records an explicit permission grant.
func (g *ReadinessGate) Grant() {
	g.state = ReadinessGranted
	g.resultSeen = true
	g.inferred = false
}

// Deny records an explicit permission denial.
func (g *ReadinessGate) Deny() {
	g.state = ReadinessDenied
	g.resultSeen = true
	g.inferred = false
}

// Infer promotes Unknown to Granted when a usable snapshot arrived without an
// explicit result. It reports whether the state changed.
func (g *ReadinessGate) Infer() bool {
	if g.state != ReadinessUnknown || g.resultSeen {
		return false
	}
	g.state = ReadinessGranted
	g.inferred = true
	return true
}

// Granted reports whether mutating operations are allowed.
func (g *ReadinessGate) Granted() bool {
	return g.state == ReadinessGranted
}

// State returns the current readiness.
func (g *ReadinessGate) State() Readiness {
	return g.state
}

// ResultSeen reports whether the host delivered an explicit result.
func (g *ReadinessGate) ResultSeen() bool {
	return g.resultSeen
}

// Denied reports whether the host explicitly denied permissions.
func (g *ReadinessGate) Denied() bool {
	return g.state == ReadinessDenied
}

// Inferred reports whether the grant was inferred from a snapshot.
func (g *ReadinessGate) Inferred() bool {
	return g.inferred
}
