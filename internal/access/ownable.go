package access

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
)

var (
	ErrUnauthorized = errors.New("caller is not the owner")
	ErrInvalidOwner = errors.New("new owner is the zero address")
)

// Ownable is a single-owner capability embedded by administered components.
type Ownable struct {
	owner common.Address
}

func NewOwnable(owner common.Address) Ownable {
	return Ownable{owner: owner}
}

// Owner returns the current owner.
func (o *Ownable) Owner() common.Address {
	return o.owner
}

// OnlyOwner fails unless the immediate caller is the owner.
func (o *Ownable) OnlyOwner(tx *engine.Tx) error {
	if tx.Sender() != o.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, tx.Sender().Hex())
	}
	return nil
}

// TransferOwnership hands the capability to newOwner. contract identifies the
// component in the emitted event.
func (o *Ownable) TransferOwnership(tx *engine.Tx, contract, newOwner common.Address) error {
	if err := o.OnlyOwner(tx); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrInvalidOwner
	}
	previous := o.owner
	o.owner = newOwner
	tx.Emit(model.Event{
		Contract: contract.Hex(),
		Name:     model.EventOwnershipTransferred,
		Account:  newOwner.Hex(),
		Data:     map[string]string{"previous_owner": previous.Hex()},
	})
	return nil
}
