package marketplace

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"blocksui.xyz/ledger/ledger"
)

type state struct {
	ListingFee ledger.Value `json:"listing_fee"`
	Listings   []Listing    `json:"listings"`
}

func (r *Registry) ModuleName() string { return ModuleName }

func (r *Registry) ExportState() (json.RawMessage, error) {
	st := state{ListingFee: r.fee, Listings: make([]Listing, 0, len(r.listings))}
	for _, l := range r.listings {
		st.Listings = append(st.Listings, l)
	}
	slices.SortFunc(st.Listings, func(a, b Listing) int { return cmp.Compare(a.TokenID, b.TokenID) })
	return json.Marshal(st)
}

func (r *Registry) ImportState(raw json.RawMessage) error {
	st := state{ListingFee: r.initial}
	if raw != nil {
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
	}
	listings := make(map[ledger.TokenID]Listing, len(st.Listings))
	for _, l := range st.Listings {
		if l.TokenID == 0 {
			return fmt.Errorf("marketplace: listing without token id")
		}
		if _, dup := listings[l.TokenID]; dup {
			return fmt.Errorf("marketplace: duplicate listing for token %d", l.TokenID)
		}
		listings[l.TokenID] = l
	}
	r.fee = st.ListingFee
	r.listings = listings
	r.logger.Debug("state imported", "listings", len(listings))
	return nil
}
