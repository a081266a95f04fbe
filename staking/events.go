package staking

import "blocksui.xyz/ledger/ledger"

type NodeRegistered struct {
	Node   ledger.Identity `json:"node"`
	Amount ledger.Value    `json:"amount"`
}

func (NodeRegistered) EventName() string { return "NodeRegistered" }

type NodeUnregistered struct {
	Node   ledger.Identity `json:"node"`
	Amount ledger.Value    `json:"amount"`
}

func (NodeUnregistered) EventName() string { return "NodeUnregistered" }

type StakingCostChanged struct {
	Old ledger.Value `json:"old"`
	New ledger.Value `json:"new"`
}

func (StakingCostChanged) EventName() string { return "StakingCostChanged" }
