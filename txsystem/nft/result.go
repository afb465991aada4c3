package nft

import (
	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/types"
)

/*
ReceiverCallFailed is the value nft_approve resolves to when the approved
account's nft_on_approve failed or ran out of gas. It is encoded with the
types.ReceiverCallFailedTag so it can't be confused with whatever value
a receiver might return.
*/
type ReceiverCallFailed struct {
	_          struct{}        `cbor:",toarray"`
	Receiver   types.AccountID `json:"receiver"`
	TokenID    TokenID         `json:"token_id"`
	ApprovalID uint64          `json:"approval_id"`
	Reason     string          `json:"reason"`
}

func (r *ReceiverCallFailed) MarshalCBOR() ([]byte, error) {
	type alias ReceiverCallFailed
	return cbor.MarshalTaggedValue(types.ReceiverCallFailedTag, (*alias)(r))
}

func (r *ReceiverCallFailed) UnmarshalCBOR(data []byte) error {
	type alias ReceiverCallFailed
	return cbor.UnmarshalTaggedValue(types.ReceiverCallFailedTag, data, (*alias)(r))
}

func (r *ReceiverCallFailed) Err() *ReceiverCallFailedError {
	return &ReceiverCallFailedError{
		Receiver:   r.Receiver,
		TokenID:    r.TokenID,
		ApprovalID: r.ApprovalID,
		Reason:     r.Reason,
	}
}

// IsReceiverCallFailed returns true when value is encoded ReceiverCallFailed.
func IsReceiverCallFailed(value cbor.RawCBOR) bool {
	return cbor.HasTag(value, types.ReceiverCallFailedTag)
}

/*
DecodeApproveResult decodes the final value of the nft_approve call into v.
When the receiver failed to handle the notification *ReceiverCallFailedError
is returned (and v is not modified). v may be nil when the caller is not
interested in the value.
*/
func DecodeApproveResult(value cbor.RawCBOR, v any) error {
	if IsReceiverCallFailed(value) {
		var rcf ReceiverCallFailed
		if err := rcf.UnmarshalCBOR(value); err != nil {
			return err
		}
		return rcf.Err()
	}
	if v == nil {
		return nil
	}
	return cbor.Unmarshal(value, v)
}
