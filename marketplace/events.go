package marketplace

import "blocksui.xyz/ledger/ledger"

// ListingCreated is emitted for new and replaced listings.
type ListingCreated struct {
	TokenID    ledger.TokenID `json:"token_id"`
	Licensable bool           `json:"licensable"`
	Tier       int64          `json:"tier"`
}

func (ListingCreated) EventName() string { return "BUIListingCreated" }

type ListingRemoved struct {
	TokenID ledger.TokenID `json:"token_id"`
}

func (ListingRemoved) EventName() string { return "BUIListingRemoved" }

type ListingFeeChanged struct {
	Old ledger.Value `json:"old"`
	New ledger.Value `json:"new"`
}

func (ListingFeeChanged) EventName() string { return "ListingFeeChanged" }

type Withdrawn struct {
	To     ledger.Identity `json:"to"`
	Amount ledger.Value    `json:"amount"`
}

func (Withdrawn) EventName() string { return "Withdrawn" }
