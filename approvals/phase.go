package approvals

// Phase is the stage of the approval call.
//
//	Received → Validated → Mutated → OutboundDispatched → ReceiverSucceeded|ReceiverFailed → Completed
//
// Approval without message goes from Mutated directly to Completed, failed
// validation ends the call in Rejected.
type Phase int

const (
	PhaseReceived Phase = iota
	PhaseValidated
	PhaseMutated
	PhaseOutboundDispatched
	PhaseReceiverSucceeded
	PhaseReceiverFailed
	PhaseCompleted
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseReceived:
		return "received"
	case PhaseValidated:
		return "validated"
	case PhaseMutated:
		return "mutated"
	case PhaseOutboundDispatched:
		return "outbound-dispatched"
	case PhaseReceiverSucceeded:
		return "receiver-succeeded"
	case PhaseReceiverFailed:
		return "receiver-failed"
	case PhaseCompleted:
		return "completed"
	case PhaseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Final returns true for the phases the call can't leave.
func (p Phase) Final() bool {
	return p == PhaseCompleted || p == PhaseRejected
}
