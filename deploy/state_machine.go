package deploy

import (
	"fmt"
	"sync"
)

// Step 部署流程所处阶段
type Step string

const (
	StepIdle      Step = "idle"      // 未开始
	StepApproving Step = "approving" // 授权交易提交中
	StepDeploying Step = "deploying" // 部署交易提交中
	StepSuccess   Step = "success"   // 部署成功
	StepError     Step = "error"     // 部署失败
)

// StepTransition 状态转换
type StepTransition struct {
	From Step
	To   Step
}

// StateMachine 部署步骤状态机
type StateMachine struct {
	transitions map[StepTransition]bool
	mu          sync.RWMutex
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StepTransition]bool),
	}
	sm.initializeTransitions()
	return sm
}

// initializeTransitions 初始化所有合法的状态转换
func (sm *StateMachine) initializeTransitions() {
	legalTransitions := []StepTransition{
		// 新一轮部署
		{StepIdle, StepApproving},

		// 授权阶段
		{StepApproving, StepDeploying},
		{StepApproving, StepError},

		// 部署阶段
		{StepDeploying, StepSuccess},
		{StepDeploying, StepError},

		// success/error 是终态，只能显式清除或重试
		{StepSuccess, StepIdle},     // clearSuccess
		{StepError, StepIdle},       // reset
		{StepError, StepApproving},  // 重新进入 startDeployment
	}

	for _, t := range legalTransitions {
		sm.transitions[t] = true
	}
}

// ValidateTransition 验证状态转换是否合法
func (sm *StateMachine) ValidateTransition(from, to Step) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	// 相同状态允许（幂等性）
	if from == to {
		return nil
	}

	transition := StepTransition{From: from, To: to}
	if !sm.transitions[transition] {
		return fmt.Errorf("illegal deployment step transition: %s -> %s", from, to)
	}

	return nil
}

// AllowedTransitions 返回当前状态所有合法的目标状态
func (sm *StateMachine) AllowedTransitions(current Step) []Step {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	allowed := make([]Step, 0)
	for transition := range sm.transitions {
		if transition.From == current {
			allowed = append(allowed, transition.To)
		}
	}
	return allowed
}

// IsTerminalStep 判断是否是终态（需要显式清除）
func (sm *StateMachine) IsTerminalStep(step Step) bool {
	switch step {
	case StepSuccess, StepError:
		return true
	default:
		return false
	}
}

// IsInFlight 判断是否有交易在途
func (sm *StateMachine) IsInFlight(step Step) bool {
	switch step {
	case StepApproving, StepDeploying:
		return true
	default:
		return false
	}
}
