package types

import (
	"errors"

	"github.com/alphabill-org/alphabill-nft/cbor"
)

var ErrOutOfGas = errors.New("out of gas")

const (
	// StatusFailure is the status of a receipt if execution failed.
	StatusFailure ExecutionStatus = 0
	// StatusSuccessValue means the method returned a value.
	StatusSuccessValue ExecutionStatus = 1
	// StatusSuccessReceipt means the method returned a promise and the
	// result of the call is the result of the receipt it was forwarded to.
	StatusSuccessReceipt ExecutionStatus = 2
	// StatusOutOfGas execution ran out of gas, try with bigger budget.
	StatusOutOfGas ExecutionStatus = 3
)

type (
	ExecutionStatus uint64

	// Outcome is the result of executing single receipt.
	Outcome struct {
		_           struct{} `cbor:",toarray"`
		Version     ABVersion
		ReceiptID   string
		Executor    AccountID // account the method was executed on
		Predecessor AccountID // account which created the receipt
		Status      ExecutionStatus
		Value       cbor.RawCBOR // return value when Status is StatusSuccessValue
		ForwardedTo string       // receipt ID when Status is StatusSuccessReceipt
		GasBurnt    Gas
		Logs        []string
		Error       string
		errDetail   error
	}
)

func (s ExecutionStatus) String() string {
	switch s {
	case StatusFailure:
		return "failure"
	case StatusSuccessValue:
		return "success"
	case StatusSuccessReceipt:
		return "forwarded"
	case StatusOutOfGas:
		return "out of gas"
	default:
		return "unknown"
	}
}

func (o *Outcome) IsSuccess() bool {
	return o != nil && (o.Status == StatusSuccessValue || o.Status == StatusSuccessReceipt)
}

func (o *Outcome) SetValue(v cbor.RawCBOR) {
	o.Status = StatusSuccessValue
	if v.IsNil() {
		v = cbor.Null()
	}
	o.Value = v
}

func (o *Outcome) SetForwarded(receiptID string) {
	o.Status = StatusSuccessReceipt
	o.ForwardedTo = receiptID
}

func (o *Outcome) SetError(e error) {
	if o == nil {
		return
	}
	if errors.Is(e, ErrOutOfGas) {
		o.Status = StatusOutOfGas
	} else {
		o.Status = StatusFailure
	}
	o.Value = nil
	o.ForwardedTo = ""
	o.Error = e.Error()
	o.errDetail = e
}

// ErrDetail returns the error the execution failed with, it's available
// only on the node which executed the receipt (ie it's not serialized).
func (o *Outcome) ErrDetail() error {
	if o == nil {
		return nil
	}
	return o.errDetail
}

func (o *Outcome) UnmarshalValue(v any) error {
	if o == nil {
		return ErrOutcomeIsNil
	}
	if o.Status != StatusSuccessValue {
		return errors.New("outcome has no value: " + o.Status.String())
	}
	return cbor.Unmarshal(o.Value, v)
}

func (o *Outcome) GetVersion() ABVersion {
	if o == nil || o.Version == 0 {
		return 1
	}
	return o.Version
}

func (o *Outcome) MarshalCBOR() ([]byte, error) {
	type alias Outcome
	if o.Version == 0 {
		o.Version = o.GetVersion()
	}
	return cbor.MarshalTaggedValue(OutcomeTag, (*alias)(o))
}

func (o *Outcome) UnmarshalCBOR(data []byte) error {
	type alias Outcome
	if err := cbor.UnmarshalTaggedValue(OutcomeTag, data, (*alias)(o)); err != nil {
		return err
	}
	return EnsureVersion(o, o.Version, 1)
}
