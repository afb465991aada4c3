package types

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/alphabill-org/alphabill-nft/cbor"
)

var (
	ErrCallOrderIsNil = errors.New("call order is nil")
	ErrOutcomeIsNil   = errors.New("outcome is nil")
)

type (
	// CallOrder is a request, signed by Signer, to execute Method of the
	// contract deployed on the Receiver account.
	CallOrder struct {
		_       struct{} `cbor:",toarray"`
		Version ABVersion
		Payload // the embedded Payload field is "flattened" in CBOR array
	}

	Payload struct {
		_        struct{} `cbor:",toarray"`
		Signer   AccountID
		Receiver AccountID
		Method   string
		Args     cbor.RawCBOR // method specific arguments
		Deposit  Amount       // funds transferred to the Receiver with the call
		Gas      Gas          // compute budget of the call, including calls it schedules
		Nonce    uint64
	}
)

func NewCallOrder(signer, receiver AccountID, method string, args any, deposit Amount, gas Gas) (*CallOrder, error) {
	co := &CallOrder{
		Version: 1,
		Payload: Payload{
			Signer:   signer,
			Receiver: receiver,
			Method:   method,
			Deposit:  deposit,
			Gas:      gas,
		},
	}
	if err := co.SetArgs(args); err != nil {
		return nil, err
	}
	return co, nil
}

/*
SetArgs serializes "args" and assigns the result to payload's Args field.
nil args are encoded as CBOR null.
*/
func (c *CallOrder) SetArgs(args any) error {
	if c == nil {
		return ErrCallOrderIsNil
	}
	if args == nil {
		c.Args = cbor.Null()
		return nil
	}
	argsCBOR, err := cbor.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshaling %T as call arguments: %w", args, err)
	}
	c.Args = argsCBOR
	return nil
}

func (c *CallOrder) UnmarshalArgs(v any) error {
	if c == nil {
		return ErrCallOrderIsNil
	}
	return cbor.Unmarshal(c.Args, v)
}

func (c *CallOrder) IsValid() error {
	if c == nil {
		return ErrCallOrderIsNil
	}
	if c.Version != 1 {
		return ErrInvalidVersion(c)
	}
	if err := c.Signer.Validate(); err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	if err := c.Receiver.Validate(); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	if c.Method == "" {
		return errors.New("method name is empty")
	}
	if c.Gas == 0 {
		return errors.New("no gas attached")
	}
	return nil
}

func (c *CallOrder) Hash(algorithm crypto.Hash) ([]byte, error) {
	return HashCBOR(c, algorithm)
}

func (c *CallOrder) GetVersion() ABVersion {
	if c == nil || c.Version == 0 {
		return 1
	}
	return c.Version
}

func (c *CallOrder) MarshalCBOR() ([]byte, error) {
	type alias CallOrder
	if c.Version == 0 {
		c.Version = c.GetVersion()
	}
	return cbor.MarshalTaggedValue(CallOrderTag, (*alias)(c))
}

func (c *CallOrder) UnmarshalCBOR(data []byte) error {
	type alias CallOrder
	if err := cbor.UnmarshalTaggedValue(CallOrderTag, data, (*alias)(c)); err != nil {
		return err
	}
	return EnsureVersion(c, c.Version, 1)
}
