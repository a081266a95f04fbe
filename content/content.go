// Package content implements the block registry: one ownership token per
// unique content fingerprint.
//
// Tokens are never burned. Ids are sequential from 1. Only the current owner
// may change a token's metadata URI, deprecation time or origin whitelist.
package content

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/origin"
)

const ModuleName = "content"

// Account holds publish fees until the administrator withdraws them.
var Account = ledger.AccountFor(ModuleName)

// Token is a minted block.
type Token struct {
	ID           ledger.TokenID          `json:"id"`
	Fingerprint  fingerprint.Fingerprint `json:"fingerprint"`
	Owner        ledger.Identity         `json:"owner"`
	MetadataURI  string                  `json:"metadata_uri"`
	DeprecatedAt *time.Time              `json:"deprecated_at,omitempty"`
	Origins      []string                `json:"origins"`
}

func (t Token) clone() Token {
	t.Origins = slices.Clone(t.Origins)
	if t.DeprecatedAt != nil {
		at := *t.DeprecatedAt
		t.DeprecatedAt = &at
	}
	return t
}

func (t Token) originIndex(h origin.Hash) int {
	return slices.IndexFunc(t.Origins, func(raw string) bool { return origin.Of(raw) == h })
}

type Registry struct {
	l       *ledger.Ledger
	admin   ledger.Identity
	logger  *slog.Logger
	initial ledger.Value

	price  ledger.Value
	tokens []*Token
	byFP   map[fingerprint.Fingerprint]ledger.TokenID
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry administered by admin with the given publish price.
func New(l *ledger.Ledger, admin ledger.Identity, publishPrice ledger.Value, opts ...Option) *Registry {
	r := &Registry{
		l:       l,
		admin:   admin,
		logger:  l.Logger(ModuleName),
		initial: publishPrice,
		price:   publishPrice,
		byFP:    make(map[fingerprint.Fingerprint]ledger.TokenID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Admin() ledger.Identity { return r.admin }

// Publish mints the next token for fp with the caller as owner. The full
// attached value is retained.
func (r *Registry) Publish(ctx context.Context, call ledger.Call, fp fingerprint.Fingerprint, metadataURI string) (ledger.TokenID, error) {
	var id ledger.TokenID
	err := r.l.Apply(ctx, call, Account, ModuleName+".publish", func(ctx context.Context, tx *ledger.Tx) error {
		caller := tx.Caller()
		if tx.Value() < r.price {
			return &ledger.Error{Kind: ledger.KindInsufficientFunds, Identity: caller, Message: "Insufficient funds to publish"}
		}
		if existing, ok := r.byFP[fp]; ok {
			return &ledger.Error{
				Kind:     ledger.KindDuplicateFingerprint,
				Identity: caller,
				TokenID:  existing,
				Message:  "Block already exists: " + fp.CID(),
			}
		}
		id = ledger.TokenID(len(r.tokens) + 1)
		t := &Token{ID: id, Fingerprint: fp, Owner: caller, MetadataURI: metadataURI, Origins: []string{}}
		tx.OnRollback(func() {
			r.tokens = r.tokens[:len(r.tokens)-1]
			delete(r.byFP, fp)
		})
		r.tokens = append(r.tokens, t)
		r.byFP[fp] = id
		tx.Emit(BlockPublished{TokenID: id, Owner: caller, Fingerprint: fp})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Registry) UpdateMetaURI(ctx context.Context, call ledger.Call, id ledger.TokenID, uri string) error {
	return r.mutate(ctx, call, id, "updateMetaURI", func(tx *ledger.Tx, t *Token) error {
		t.MetadataURI = uri
		tx.Emit(MetaURIUpdated{TokenID: id, MetadataURI: uri})
		return nil
	})
}

// SetDeprecated records the time from which the block is deprecated.
func (r *Registry) SetDeprecated(ctx context.Context, call ledger.Call, id ledger.TokenID, at time.Time) error {
	return r.mutate(ctx, call, id, "setDeprecated", func(tx *ledger.Tx, t *Token) error {
		at := at.UTC()
		t.DeprecatedAt = &at
		tx.Emit(BlockDeprecated{TokenID: id, At: at})
		return nil
	})
}

// SetOrigin whitelists rawOrigin for the token. Adding a present origin is a
// no-op.
func (r *Registry) SetOrigin(ctx context.Context, call ledger.Call, id ledger.TokenID, rawOrigin string) error {
	h := origin.Of(rawOrigin)
	return r.mutate(ctx, call, id, "setOrigin", func(tx *ledger.Tx, t *Token) error {
		if rawOrigin == "" {
			return ledger.Errorf(ledger.KindInvalidArgument, "origin is required")
		}
		if t.originIndex(h) >= 0 {
			return nil
		}
		t.Origins = append(t.Origins, rawOrigin)
		tx.Emit(OriginAdded{TokenID: id, Origin: h})
		return nil
	})
}

// RemoveOrigin drops rawOrigin from the whitelist. Removing an absent origin
// is a no-op.
func (r *Registry) RemoveOrigin(ctx context.Context, call ledger.Call, id ledger.TokenID, rawOrigin string) error {
	h := origin.Of(rawOrigin)
	return r.mutate(ctx, call, id, "removeOrigin", func(tx *ledger.Tx, t *Token) error {
		i := t.originIndex(h)
		if i < 0 {
			return nil
		}
		t.Origins = slices.Delete(t.Origins, i, i+1)
		tx.Emit(OriginRemoved{TokenID: id, Origin: h})
		return nil
	})
}

// Transfer moves token ownership to a new identity.
func (r *Registry) Transfer(ctx context.Context, call ledger.Call, to ledger.Identity, id ledger.TokenID) error {
	return r.mutate(ctx, call, id, "transfer", func(tx *ledger.Tx, t *Token) error {
		if to.IsZero() {
			return ledger.Errorf(ledger.KindInvalidArgument, "ERC721: transfer to the zero address")
		}
		from := t.Owner
		t.Owner = to
		tx.Emit(BlockTransferred{TokenID: id, From: from, To: to})
		return nil
	})
}

// mutate runs fn on token id as its owner inside one transition. Argument
// checks belong in fn so that existence and ownership are reported first.
func (r *Registry) mutate(ctx context.Context, call ledger.Call, id ledger.TokenID, op string, fn func(tx *ledger.Tx, t *Token) error) error {
	return r.l.Apply(ctx, call, Account, ModuleName+"."+op, func(ctx context.Context, tx *ledger.Tx) error {
		t, err := r.lookup(id, "ERC721: invalid token ID")
		if err != nil {
			return err
		}
		if caller := tx.Caller(); caller != t.Owner {
			return notTokenOwner(caller, id)
		}
		prev := t.clone()
		tx.OnRollback(func() { *t = prev })
		return fn(tx, t)
	})
}

func notTokenOwner(caller ledger.Identity, id ledger.TokenID) *ledger.Error {
	e := ledger.Errorf(ledger.KindNotTokenOwner, "BlocksUI: account %s is not the owner of %d", caller, id)
	e.Identity = caller
	e.TokenID = id
	return e
}

func (r *Registry) lookup(id ledger.TokenID, msg string) (*Token, error) {
	if id == 0 || uint64(id) > uint64(len(r.tokens)) {
		return nil, &ledger.Error{Kind: ledger.KindTokenNotFound, TokenID: id, Message: msg}
	}
	return r.tokens[id-1], nil
}

// BlockForToken returns the fingerprint and whitelisted origins of a token.
func (r *Registry) BlockForToken(ctx context.Context, id ledger.TokenID) (fingerprint.Fingerprint, []string, error) {
	defer r.l.View(ctx)()
	t, err := r.lookup(id, "Token does not exist")
	if err != nil {
		return fingerprint.Fingerprint{}, nil, err
	}
	return t.Fingerprint, slices.Clone(t.Origins), nil
}

func (r *Registry) BlockExists(ctx context.Context, fp fingerprint.Fingerprint) bool {
	defer r.l.View(ctx)()
	_, ok := r.byFP[fp]
	return ok
}

// OwnerOfBlock reports whether id owns the token minted for fp.
func (r *Registry) OwnerOfBlock(ctx context.Context, fp fingerprint.Fingerprint, id ledger.Identity) bool {
	defer r.l.View(ctx)()
	tid, ok := r.byFP[fp]
	if !ok {
		return false
	}
	return r.tokens[tid-1].Owner == id
}

func (r *Registry) TokenURI(ctx context.Context, id ledger.TokenID) (string, error) {
	defer r.l.View(ctx)()
	t, err := r.lookup(id, "Token does not exist")
	if err != nil {
		return "", err
	}
	return t.MetadataURI, nil
}

// OwnerOf returns the current owner of a minted token.
func (r *Registry) OwnerOf(ctx context.Context, id ledger.TokenID) (ledger.Identity, error) {
	defer r.l.View(ctx)()
	t, err := r.lookup(id, "ERC721: invalid token ID")
	if err != nil {
		return ledger.Identity{}, err
	}
	return t.Owner, nil
}

func (r *Registry) Token(ctx context.Context, id ledger.TokenID) (Token, error) {
	defer r.l.View(ctx)()
	t, err := r.lookup(id, "ERC721: invalid token ID")
	if err != nil {
		return Token{}, err
	}
	return t.clone(), nil
}

func (r *Registry) TotalSupply(ctx context.Context) uint64 {
	defer r.l.View(ctx)()
	return uint64(len(r.tokens))
}

// AllowsOrigin reports whether h is on the token's whitelist. Unminted tokens
// allow nothing.
func (r *Registry) AllowsOrigin(ctx context.Context, id ledger.TokenID, h origin.Hash) bool {
	defer r.l.View(ctx)()
	t, err := r.lookup(id, "")
	if err != nil {
		return false
	}
	return t.originIndex(h) >= 0
}

// IsDeprecated reports whether the token is deprecated at the given time.
func (r *Registry) IsDeprecated(ctx context.Context, id ledger.TokenID, at time.Time) bool {
	defer r.l.View(ctx)()
	t, err := r.lookup(id, "")
	if err != nil || t.DeprecatedAt == nil {
		return false
	}
	return !at.Before(*t.DeprecatedAt)
}

func (r *Registry) PublishPrice(ctx context.Context) ledger.Value {
	defer r.l.View(ctx)()
	return r.price
}

func (r *Registry) SetPublishPrice(ctx context.Context, call ledger.Call, price ledger.Value) error {
	return r.l.Apply(ctx, call, Account, ModuleName+".setPublishPrice", func(ctx context.Context, tx *ledger.Tx) error {
		if err := ledger.RequireAdmin(r.admin, tx.Caller()); err != nil {
			return err
		}
		prev := r.price
		tx.OnRollback(func() { r.price = prev })
		r.price = price
		tx.Emit(PublishPriceChanged{Old: prev, New: price})
		return nil
	})
}

// Withdraw pays the whole custody balance to the administrator.
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
