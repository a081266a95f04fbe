package license

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

type state struct {
	Licenses []License `json:"licenses"`
}

func (r *Registry) ModuleName() string { return ModuleName }

func (r *Registry) ExportState() (json.RawMessage, error) {
	st := state{Licenses: make([]License, 0, len(r.licenses))}
	for _, l := range r.licenses {
		st.Licenses = append(st.Licenses, l)
	}
	slices.SortFunc(st.Licenses, func(a, b License) int {
		if c := cmp.Compare(a.TokenID, b.TokenID); c != 0 {
			return c
		}
		return bytes.Compare(a.Origin[:], b.Origin[:])
	})
	return json.Marshal(st)
}

func (r *Registry) ImportState(raw json.RawMessage) error {
	var st state
	if raw != nil {
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
	}
	licenses := make(map[key]License, len(st.Licenses))
	for _, l := range st.Licenses {
		k := key{token: l.TokenID, origin: l.Origin}
		if _, dup := licenses[k]; dup {
			return fmt.Errorf("license: duplicate license for token %d origin %s", l.TokenID, l.Origin)
		}
		licenses[k] = l
	}
	r.licenses = licenses
	r.logger.Debug("state imported", "licenses", len(licenses))
	return nil
}
