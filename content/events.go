package content

import (
	"time"

	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
)

type BlockPublished struct {
	TokenID     ledger.TokenID          `json:"token_id"`
	Owner       ledger.Identity         `json:"owner"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

func (BlockPublished) EventName() string { return "BlockPublished" }

type BlockTransferred struct {
	TokenID ledger.TokenID  `json:"token_id"`
	From    ledger.Identity `json:"from"`
	To      ledger.Identity `json:"to"`
}

func (BlockTransferred) EventName() string { return "BlockTransferred" }

type MetaURIUpdated struct {
	TokenID     ledger.TokenID `json:"token_id"`
	MetadataURI string         `json:"metadata_uri"`
}

func (MetaURIUpdated) EventName() string { return "MetaURIUpdated" }

type BlockDeprecated struct {
	TokenID ledger.TokenID `json:"token_id"`
	At      time.Time      `json:"at"`
}

func (BlockDeprecated) EventName() string { return "BlockDeprecated" }

type OriginAdded struct {
	TokenID ledger.TokenID `json:"token_id"`
	Origin  origin.Hash    `json:"origin"`
}

func (OriginAdded) EventName() string { return "OriginAdded" }

type OriginRemoved struct {
	TokenID ledger.TokenID `json:"token_id"`
	Origin  origin.Hash    `json:"origin"`
}

func (OriginRemoved) EventName() string { return "OriginRemoved" }

type PublishPriceChanged struct {
	Old ledger.Value `json:"old"`
	New ledger.Value `json:"new"`
}

func (PublishPriceChanged) EventName() string { return "PublishPriceChanged" }

type Withdrawn struct {
	To     ledger.Identity `json:"to"`
	Amount ledger.Value    `json:"amount"`
}

func (Withdrawn) EventName() string { return "Withdrawn" }
