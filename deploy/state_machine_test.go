package deploy

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()

	legal := []StepTransition{
		{StepIdle, StepApproving},
		{StepApproving, StepDeploying},
		{StepApproving, StepError},
		{StepDeploying, StepSuccess},
		{StepDeploying, StepError},
		{StepSuccess, StepIdle},
		{StepError, StepIdle},
		{StepError, StepApproving},
	}
	for _, tr := range legal {
		if err := sm.ValidateTransition(tr.From, tr.To); err != nil {
			t.Fatalf("expected %s -> %s legal: %v", tr.From, tr.To, err)
		}
	}

	illegal := []StepTransition{
		{StepIdle, StepDeploying},  // 不能跳过授权阶段
		{StepIdle, StepSuccess},
		{StepApproving, StepSuccess},
		{StepSuccess, StepApproving}, // success 必须先 clearSuccess
		{StepSuccess, StepError},
		{StepDeploying, StepApproving},
	}
	for _, tr := range illegal {
		if err := sm.ValidateTransition(tr.From, tr.To); err == nil {
			t.Fatalf("expected %s -> %s illegal", tr.From, tr.To)
		}
	}

	// 相同状态幂等
	if err := sm.ValidateTransition(StepApproving, StepApproving); err != nil {
		t.Fatalf("same-state transition should be allowed: %v", err)
	}
}

func TestStateMachineTerminalSteps(t *testing.T) {
	sm := NewStateMachine()
	if !sm.IsTerminalStep(StepSuccess) || !sm.IsTerminalStep(StepError) {
		t.Fatal("success/error should be terminal")
	}
	if sm.IsTerminalStep(StepIdle) || sm.IsTerminalStep(StepApproving) || sm.IsTerminalStep(StepDeploying) {
		t.Fatal("only success/error are terminal")
	}
	if !sm.IsInFlight(StepApproving) || !sm.IsInFlight(StepDeploying) {
		t.Fatal("approving/deploying should be in flight")
	}
	if sm.IsInFlight(StepSuccess) {
		t.Fatal("success is not in flight")
	}
}
