package origins

import (
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
)

type OriginRegistered struct {
	Owner  ledger.Identity `json:"owner"`
	Origin origin.Hash     `json:"origin"`
}

func (OriginRegistered) EventName() string { return "OriginRegistered" }

type OriginUnregistered struct {
	Owner  ledger.Identity `json:"owner"`
	Origin origin.Hash     `json:"origin"`
}

func (OriginUnregistered) EventName() string { return "OriginUnregistered" }

type MinimumBalanceChanged struct {
	Old ledger.Value `json:"old"`
	New ledger.Value `json:"new"`
}

func (MinimumBalanceChanged) EventName() string { return "MinimumBalanceChanged" }

type Withdrawn struct {
	To     ledger.Identity `json:"to"`
	Amount ledger.Value    `json:"amount"`
}

func (Withdrawn) EventName() string { return "Withdrawn" }
