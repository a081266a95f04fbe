package origins

import (
	"encoding/json"
	"fmt"
	"slices"

	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
)

type deposit struct {
	Account ledger.Identity `json:"account"`
	Amount  ledger.Value    `json:"amount"`
}

// state lists records grouped by owner, each group in registration order.
type state struct {
	MinimumBalance ledger.Value `json:"minimum_balance"`
	Records        []Record     `json:"records"`
	Deposits       []deposit    `json:"deposits"`
}

func (r *Registry) ModuleName() string { return ModuleName }

func (r *Registry) ExportState() (json.RawMessage, error) {
	st := state{MinimumBalance: r.minimum, Records: []Record{}, Deposits: []deposit{}}
	owners := make([]ledger.Identity, 0, len(r.byOwner))
	for id := range r.byOwner {
		owners = append(owners, id)
	}
	slices.SortFunc(owners, ledger.Identity.Compare)
	for _, id := range owners {
		for _, h := range r.byOwner[id] {
			st.Records = append(st.Records, r.records[h])
		}
	}
	for id, v := range r.deposits {
		st.Deposits = append(st.Deposits, deposit{Account: id, Amount: v})
	}
	slices.SortFunc(st.Deposits, func(a, b deposit) int { return a.Account.Compare(b.Account) })
	return json.Marshal(st)
}

func (r *Registry) ImportState(raw json.RawMessage) error {
	st := state{MinimumBalance: r.initial}
	if raw != nil {
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
	}
	records := make(map[origin.Hash]Record, len(st.Records))
	byOwner := make(map[ledger.Identity][]origin.Hash)
	for _, rec := range st.Records {
		if origin.Of(rec.Origin) != rec.Hash {
			return fmt.Errorf("origins: hash mismatch for %q", rec.Origin)
		}
		if _, dup := records[rec.Hash]; dup {
			return fmt.Errorf("origins: duplicate origin %q", rec.Origin)
		}
		records[rec.Hash] = rec
		byOwner[rec.Owner] = append(byOwner[rec.Owner], rec.Hash)
	}
	deposits := make(map[ledger.Identity]ledger.Value, len(st.Deposits))
	for _, d := range st.Deposits {
		if d.Amount != 0 {
			deposits[d.Account] = d.Amount
		}
	}
	r.minimum = st.MinimumBalance
	r.records = records
	r.byOwner = byOwner
	r.deposits = deposits
	r.logger.Debug("state imported", "records", len(records))
	return nil
}
