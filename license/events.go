package license

import (
	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
)

type LicensePurchased struct {
	TokenID         ledger.TokenID          `json:"token_id"`
	DurationSeconds uint64                  `json:"duration_seconds"`
	Fingerprint     fingerprint.Fingerprint `json:"fingerprint"`
	Origin          origin.Hash             `json:"origin"`
	Licensee        ledger.Identity         `json:"licensee"`
	Paid            ledger.Value            `json:"paid"`
}

func (LicensePurchased) EventName() string { return "BUILicensePurchased" }
