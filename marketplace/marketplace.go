// Package marketplace holds one listing per content token.
//
// Listing terms are written by the token's current owner, as reported by an
// OwnershipOracle, and read by the license registry and a paginated
// enumeration.
package marketplace

import (
	"context"
	"log/slog"

	"blocksui.xyz/ledger/ledger"
)

const ModuleName = "marketplace"

// Account holds listing fees until the administrator withdraws them.
var Account = ledger.AccountFor(ModuleName)

// MaxPageSize bounds GetListings.
const MaxPageSize = 1000

// OwnershipOracle resolves the current owner of a token. Implementations must
// fail for unminted tokens.
type OwnershipOracle interface {
	OwnerOf(ctx context.Context, id ledger.TokenID) (ledger.Identity, error)
}

// Terms are the caller-supplied parts of a listing.
type Terms struct {
	MetadataURI string
	PricePerDay ledger.Value
	Price       ledger.Value
	Tier        int64
	Licensable  bool
}

type Listing struct {
	TokenID     ledger.TokenID  `json:"token_id"`
	MetadataURI string          `json:"metadata_uri"`
	PricePerDay ledger.Value    `json:"price_per_day"`
	Price       ledger.Value    `json:"price"`
	Tier        int64           `json:"tier"`
	Licensable  bool            `json:"licensable"`
	Owner       ledger.Identity `json:"owner"`
}

// IsZero reports whether l is the default listing returned for unlisted
// tokens.
func (l Listing) IsZero() bool { return l == Listing{} }

type Registry struct {
	l       *ledger.Ledger
	admin   ledger.Identity
	owners  OwnershipOracle
	logger  *slog.Logger
	initial ledger.Value

	fee      ledger.Value
	listings map[ledger.TokenID]Listing
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry administered by admin that charges listingFee per
// listing.
func New(l *ledger.Ledger, admin ledger.Identity, owners OwnershipOracle, listingFee ledger.Value, opts ...Option) *Registry {
	r := &Registry{
		l:        l,
		admin:    admin,
		owners:   owners,
		logger:   l.Logger(ModuleName),
		initial:  listingFee,
		fee:      listingFee,
		listings: make(map[ledger.TokenID]Listing),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Admin() ledger.Identity { return r.admin }

// ListBlock creates or replaces the listing for id.
func (r *Registry) ListBlock(ctx context.Context, call ledger.Call, id ledger.TokenID, terms Terms) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".listBlock", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		if tx.Value() < r.fee {
			return &ledger.Error{Kind: ledger.KindInsufficientListingFunds, Identity: caller, TokenID: id, Message: "Insufficient listing funds"}
		}
		if err := r.requireOwner(ctx, caller, id); err != nil {
			return err
		}
		r.put(tx, id, Listing{
			TokenID:     id,
			MetadataURI: terms.MetadataURI,
			PricePerDay: terms.PricePerDay,
			Price:       terms.Price,
			Tier:        terms.Tier,
			Licensable:  terms.Licensable,
			Owner:       caller,
		})
		tx.Emit(ListingCreated{TokenID: id, Licensable: terms.Licensable, Tier: terms.Tier})
		return nil
	})
}

// Delist removes the listing for id. Only the token's current owner may
// delist.
func (r *Registry) Delist(ctx context.Context, call ledger.Call, id ledger.TokenID) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".delist", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		if _, ok := r.listings[id]; !ok {
			return &ledger.Error{Kind: ledger.KindNoListingFound, Identity: caller, TokenID: id, Message: "No listing for this Block"}
		}
		if err := r.requireOwner(ctx, caller, id); err != nil {
			return err
		}
		r.put(tx, id, Listing{})
		tx.Emit(ListingRemoved{TokenID: id})
		return nil
	})
}

func (r *Registry) requireOwner(ctx context.Context, caller ledger.Identity, id ledger.TokenID) error {
	owner, err := r.owners.OwnerOf(ctx, id)
	if err != nil || owner != caller {
		return &ledger.Error{Kind: ledger.KindUnauthorized, Identity: caller, TokenID: id, Message: "Unauthorized: Not the owner.", Cause: err}
	}
	return nil
}

// put stores l for id; a zero listing deletes.
func (r *Registry) put(tx *ledger.Tx, id ledger.TokenID, l Listing) {
	prev, existed := r.listings[id]
	tx.OnRollback(func() {
		if existed {
			r.listings[id] = prev
			return
		}
		delete(r.listings, id)
	})
	if l.IsZero() {
		delete(r.listings, id)
		return
	}
	r.listings[id] = l
}

// ListingForTokenID returns the listing for id, or a zero Listing.
func (r *Registry) ListingForTokenID(ctx context.Context, id ledger.TokenID) Listing {
	l, _ := r.Lookup(ctx, id)
	return l
}

func (r *Registry) Lookup(ctx context.Context, id ledger.TokenID) (Listing, bool) {
	defer r.l.View(ctx)()
	l, ok := r.listings[id]
	return l, ok
}

// GetListings returns exactly limit entries for token ids offset+1 through
// offset+limit. Unlisted ids are zero listings.
func (r *Registry) GetListings(ctx context.Context, limit, offset uint64) ([]Listing, error) {
	if limit > MaxPageSize {
		return nil, ledger.Errorf(ledger.KindInvalidArgument, "limit %d exceeds %d", limit, MaxPageSize)
	}
	if offset > ^uint64(0)-limit {
		return nil, ledger.Errorf(ledger.KindInvalidArgument, "offset %d out of range", offset)
	}
	defer r.l.View(ctx)()
	out := make([]Listing, limit)
	for i := range out {
		out[i] = r.listings[ledger.TokenID(offset+uint64(i)+1)]
	}
	return out, nil
}

func (r *Registry) ListingFee(ctx context.Context) ledger.Value {
	defer r.l.View(ctx)()
	return r.fee
}

func (r *Registry) SetListingPrice(ctx context.Context, call ledger.Call, fee ledger.Value) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".setListingPrice", func(ctx context.Context, tx *ledger.Tx) error {
		if err := ledger.RequireAdmin(r.admin, tx.Caller()); err != nil {
			return err
		}
		prev := r.fee
		tx.OnRollback(func() { r.fee = prev })
		r.fee = fee
		tx.Emit(ListingFeeChanged{Old: prev, New: fee})
		return nil
	})
}

// Withdraw pays collected listing fees to the administrator.
func (r *Registry) Withdraw(ctx context.Context, call ledger.Call) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".withdraw", func(ctx context.Context, tx *ledger.Tx) error {
		if err := ledger.RequireAdmin(r.admin, tx.Caller()); err != nil {
			return err
		}
		amount := tx.BalanceOf(Account)
		if err := tx.Transfer(Account, r.admin, amount); err != nil {
			return err
		}
		tx.Emit(Withdrawn{To: r.admin, Amount: amount})
		return nil
	})
}
