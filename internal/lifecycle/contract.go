package lifecycle

import "gigwork-engine/internal/models"

// ContractEvent is an input to the contract state machine.
type ContractEvent string

const (
	EventStartWork    ContractEvent = "start_work"
	EventCompleteWork ContractEvent = "complete_work"
	EventConfirm      ContractEvent = "confirm_completion"
	EventCancel       ContractEvent = "cancel"
)

// ContractNext returns the state that follows event in state. The machine is
// strictly linear with a cancel branch reachable only before the worker has
// submitted completion.
func ContractNext(state models.ContractStatus, event ContractEvent) (models.ContractStatus, error) {
	switch state {
	case models.ContractActive:
		switch event {
		case EventStartWork:
			return models.ContractInProgress, nil
		case EventCancel:
			return models.ContractCancelled, nil
		}
	case models.ContractInProgress:
		switch event {
		case EventCompleteWork:
			return models.ContractAwaitingClient, nil
		case EventCancel:
			return models.ContractCancelled, nil
		}
	case models.ContractAwaitingClient:
		if event == EventConfirm {
			return models.ContractCompleted, nil
		}
	case models.ContractCompleted, models.ContractCancelled:
		// terminal
	}
	return state, &ErrTransition{Entity: "contract", State: string(state), Event: string(event)}
}
