// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pagetree

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// AccountData is the balance and nonce record stored under an account key.
// The code hash and the storage root are stored under their own key types.
type AccountData struct {
	Nonce   uint64
	Balance uint256.Int
}

// IsEmpty checks whether the account information is empty, and thus, the
// default value.
func (a *AccountData) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero()
}

// rlpAccount is the canonical wire form of an account record.
type rlpAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// EncodeAccount serializes the account record into its canonical RLP form.
func EncodeAccount(account AccountData) ([]byte, error) {
	return rlp.EncodeToBytes(rlpAccount{
		Nonce:   account.Nonce,
		Balance: account.Balance.ToBig(),
	})
}

// DecodeAccount deserializes an account record from its RLP form.
func DecodeAccount(data []byte) (AccountData, error) {
	var decoded rlpAccount
	if err := rlp.DecodeBytes(data, &decoded); err != nil {
		return AccountData{}, fmt.Errorf("failed to decode account record: %w", err)
	}
	balance, overflow := uint256.FromBig(decoded.Balance)
	if overflow {
		return AccountData{}, fmt.Errorf("account balance exceeds 256 bits")
	}
	return AccountData{Nonce: decoded.Nonce, Balance: *balance}, nil
}
