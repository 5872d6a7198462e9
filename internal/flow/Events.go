/*

Callback surface for execution flows. The HTTP layer registers an
implementation to push flow progress out; tests register a recorder.

*/

package flow

import "github.com/yieldsplit/ysa/internal/types"

// Events receives flow lifecycle notifications. Implementations must be
// safe for concurrent use; callbacks run on the flow goroutine.
type Events interface {
	// StateChanged fires on every transition, including the reset to idle
	// after a failure.
	StateChanged(flowID string, state types.FlowState)

	// StepFailed fires once per failure with the step that was active. The
	// flow has already been reset to idle when this fires.
	StepFailed(flowID string, step types.FlowState, err error)

	// Completed fires when the flow reaches its terminal success state.
	Completed(flowID string)

	// RefreshRequested fires RefreshDelay after completion so the caller
	// can re-read balances once downstream indexers catch up.
	RefreshRequested(flowID string)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) StateChanged(string, types.FlowState)      {}
func (NopEvents) StepFailed(string, types.FlowState, error) {}
func (NopEvents) Completed(string)                          {}
func (NopEvents) RefreshRequested(string)                   {}
