// Package license sells time-bound licenses against marketplace listings and
// pays the content owner.
package license

import (
	"context"
	"log/slog"
	"time"

	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origin"
)

const ModuleName = "license"

// Account is the transit account for license payments. It is empty between
// transitions.
var Account = ledger.AccountFor(ModuleName)

// Day is the billing unit. Partial days are charged as whole days.
const Day = 24 * time.Hour

// BlockSource resolves token ownership and fingerprints.
type BlockSource interface {
	OwnerOf(ctx context.Context, id ledger.TokenID) (ledger.Identity, error)
	BlockForToken(ctx context.Context, id ledger.TokenID) (fingerprint.Fingerprint, []string, error)
}

// ListingSource resolves listing terms.
type ListingSource interface {
	Lookup(ctx context.Context, id ledger.TokenID) (marketplace.Listing, bool)
}

// License is the latest grant for one (token, origin) pair.
type License struct {
	TokenID         ledger.TokenID  `json:"token_id"`
	Origin          origin.Hash     `json:"origin"`
	Licensee        ledger.Identity `json:"licensee"`
	DurationSeconds uint64          `json:"duration_seconds"`
	IssuedAt        time.Time       `json:"issued_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// Active reports whether the license has not expired at the given time.
func (l License) Active(at time.Time) bool {
	return at.Before(l.ExpiresAt)
}

type key struct {
	token  ledger.TokenID
	origin origin.Hash
}

type Registry struct {
	l        *ledger.Ledger
	blocks   BlockSource
	listings ListingSource
	logger   *slog.Logger

	licenses map[key]License
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func New(l *ledger.Ledger, blocks BlockSource, listings ListingSource, opts ...Option) *Registry {
	r := &Registry{
		l:        l,
		blocks:   blocks,
		listings: listings,
		logger:   l.Logger(ModuleName),
		licenses: make(map[key]License),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PurchaseLicense licenses token id for the origin with hash originHash. The
// whole attached value is paid to the token's current owner.
func (r *Registry) PurchaseLicense(ctx context.Context, call ledger.Call, id ledger.TokenID, duration time.Duration, originHash origin.Hash) (License, error) {
	var issued License
	err := r.l.Apply(ctx, call, Account, ModuleName+".purchaseLicense", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		owner, err := r.blocks.OwnerOf(ctx, id)
		if err != nil {
			return &ledger.Error{Kind: ledger.KindTokenNotFound, Identity: caller, TokenID: id, Message: "Token does not exist", Cause: err}
		}
		if caller == owner {
			return &ledger.Error{Kind: ledger.KindOwnerLicenseNotRequired, Identity: caller, TokenID: id, Message: "License not required for Block owner"}
		}
		listing, ok := r.listings.Lookup(ctx, id)
		if !ok {
			return &ledger.Error{Kind: ledger.KindNoListingFound, Identity: caller, TokenID: id, Message: "No listing for this Block"}
		}
		if !listing.Licensable {
			return &ledger.Error{Kind: ledger.KindNotLicensable, Identity: caller, TokenID: id, Message: "Block cannot be licensed"}
		}
		required, err := price(listing, duration)
		if err != nil {
			return err
		}
		if tx.Value() < required {
			return &ledger.Error{Kind: ledger.KindInsufficientFunds, Identity: caller, TokenID: id, Message: "Insufficient funds"}
		}
		fp, _, err := r.blocks.BlockForToken(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Transfer(Account, owner, tx.Value()); err != nil {
			return err
		}

		seconds := durationSeconds(duration)
		now := tx.Now().UTC()
		issued = License{
			TokenID:         id,
			Origin:          originHash,
			Licensee:        caller,
			DurationSeconds: seconds,
			IssuedAt:        now,
			ExpiresAt:       expiry(now, seconds),
		}
		k := key{token: id, origin: originHash}
		prev, existed := r.licenses[k]
		if existed && prev.ExpiresAt.After(issued.ExpiresAt) {
			issued.ExpiresAt = prev.ExpiresAt
		}
		tx.OnRollback(func() {
			if existed {
				r.licenses[k] = prev
				return
			}
			delete(r.licenses, k)
		})
		r.licenses[k] = issued
		tx.Emit(LicensePurchased{TokenID: id, DurationSeconds: seconds, Fingerprint: fp, Origin: originHash, Licensee: caller, Paid: tx.Value()})
		return nil
	})
	if err != nil {
		return License{}, err
	}
	return issued, nil
}

// Quote returns the payment required to license id for duration.
func (r *Registry) Quote(ctx context.Context, id ledger.TokenID, duration time.Duration) (ledger.Value, error) {
	listing, ok := r.listings.Lookup(ctx, id)
	if !ok {
		return 0, &ledger.Error{Kind: ledger.KindNoListingFound, TokenID: id, Message: "No listing for this Block"}
	}
	if !listing.Licensable {
		return 0, &ledger.Error{Kind: ledger.KindNotLicensable, TokenID: id, Message: "Block cannot be licensed"}
	}
	return price(listing, duration)
}

func (r *Registry) LicenseFor(ctx context.Context, id ledger.TokenID, h origin.Hash) (License, bool) {
	defer r.l.View(ctx)()
	l, ok := r.licenses[key{token: id, origin: h}]
	return l, ok
}

// IsLicensed reports whether origin h holds a license for id at the given
// time.
func (r *Registry) IsLicensed(ctx context.Context, id ledger.TokenID, h origin.Hash, at time.Time) bool {
	l, ok := r.LicenseFor(ctx, id, h)
	return ok && l.Active(at)
}

func price(l marketplace.Listing, duration time.Duration) (ledger.Value, error) {
	if duration <= 0 {
		return 0, ledger.Errorf(ledger.KindInvalidArgument, "license duration must be positive, got %s", duration)
	}
	days := (durationSeconds(duration) + uint64(Day/time.Second) - 1) / uint64(Day/time.Second)
	return l.PricePerDay.Mul(days)
}

// durationSeconds rounds a positive duration up to whole seconds.
func durationSeconds(d time.Duration) uint64 {
	s := uint64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

// expiry adds seconds to issued. The last second is added separately since
// the rounded-up duration of math.MaxInt64 does not fit in a time.Duration.
func expiry(issued time.Time, seconds uint64) time.Time {
	return issued.Add(time.Duration(seconds-1) * time.Second).Add(time.Second)
}
