package content

import (
	"encoding/json"
	"fmt"

	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
)

type state struct {
	PublishPrice ledger.Value `json:"publish_price"`
	Tokens       []Token      `json:"tokens"`
}

func (r *Registry) ModuleName() string { return ModuleName }

func (r *Registry) ExportState() (json.RawMessage, error) {
	st := state{PublishPrice: r.price, Tokens: make([]Token, 0, len(r.tokens))}
	for _, t := range r.tokens {
		st.Tokens = append(st.Tokens, *t)
	}
	return json.Marshal(st)
}

// ImportState requires tokens in id order starting at 1 with unique
// fingerprints.
func (r *Registry) ImportState(raw json.RawMessage) error {
	st := state{PublishPrice: r.initial}
	if raw != nil {
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
	}
	tokens := make([]*Token, 0, len(st.Tokens))
	byFP := make(map[fingerprint.Fingerprint]ledger.TokenID, len(st.Tokens))
	for i, t := range st.Tokens {
		if want := ledger.TokenID(i + 1); t.ID != want {
			return fmt.Errorf("content: token %d out of sequence, want %d", t.ID, want)
		}
		if _, dup := byFP[t.Fingerprint]; dup {
			return fmt.Errorf("content: duplicate fingerprint %s", t.Fingerprint)
		}
		if t.Origins == nil {
			t.Origins = []string{}
		}
		t := t.clone()
		tokens = append(tokens, &t)
		byFP[t.Fingerprint] = t.ID
	}
	r.price = st.PublishPrice
	r.tokens = tokens
	r.byFP = byFP
	r.logger.Debug("state imported", "tokens", len(tokens))
	return nil
}
