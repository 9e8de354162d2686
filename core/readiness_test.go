package core

import "testing"

func TestReadinessInferOnlyFromUnknown(t *testing.T) {
	var g ReadinessGate
	if !g.Infer() || !g.Granted() || !g.Inferred() {
		t.Fatalf("expected inference to grant from unknown")
	}

	var denied ReadinessGate
	denied.Deny()
	if denied.Infer() || denied.Granted() {
		t.Fatalf("expected denial to block inference")
	}
	if denied.State().String() != "denied" {
		t.Fatalf("unexpected state %s", denied.State())
	}
}

func TestReadinessExplicitResultWins(t *testing.T) {
	var g ReadinessGate
	g.Infer()
	g.Deny()
	if g.Granted() {
		t.Fatalf("expected explicit denial to override inferred grant")
	}
	g.Grant()
	if !g.Granted() || g.Inferred() {
		t.Fatalf("expected explicit grant")
	}
}
