package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origin"
)

// transact sends one transition on behalf of call with the given arguments.
func (c *Client) transact(ctx context.Context, method string, call ledger.Call, args map[string]any) (*structpb.Struct, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	fields := map[string]any{
		"caller": call.Caller.String(),
		"value":  call.Value.String(),
	}
	if !call.Time.IsZero() {
		fields["time"] = call.Time.Unix()
	}
	for k, v := range args {
		fields[k] = v
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	reply, err := c.tx.Invoke(ctx, method, req)
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply, nil
}

func (c *Client) exec(ctx context.Context, method string, call ledger.Call, args map[string]any) error {
	_, err := c.transact(ctx, method, call, args)
	return err
}

func (c *Client) RegisterStake(ctx context.Context, call ledger.Call) error {
	return c.exec(ctx, "RegisterStake", call, nil)
}

func (c *Client) UnregisterStake(ctx context.Context, call ledger.Call) error {
	return c.exec(ctx, "UnregisterStake", call, nil)
}

func (c *Client) SetStakingCost(ctx context.Context, call ledger.Call, cost ledger.Value) error {
	return c.exec(ctx, "SetStakingCost", call, map[string]any{"cost": cost.String()})
}

// Publish mints a token for fp and returns its id.
func (c *Client) Publish(ctx context.Context, call ledger.Call, fp fingerprint.Fingerprint, metadataURI string) (ledger.TokenID, error) {
	reply, err := c.transact(ctx, "Publish", call, map[string]any{"cid": fp.CID(), "metadata_uri": metadataURI})
	if err != nil {
		return 0, err
	}
	return ledger.TokenID(reply.GetFields()["token_id"].GetNumberValue()), nil
}

func (c *Client) UpdateMetaURI(ctx context.Context, call ledger.Call, id ledger.TokenID, uri string) error {
	return c.exec(ctx, "UpdateMetaURI", call, map[string]any{"token_id": uint64(id), "metadata_uri": uri})
}

func (c *Client) SetDeprecated(ctx context.Context, call ledger.Call, id ledger.TokenID, at time.Time) error {
	return c.exec(ctx, "SetDeprecated", call, map[string]any{"token_id": uint64(id), "at": at.Unix()})
}

func (c *Client) SetOrigin(ctx context.Context, call ledger.Call, id ledger.TokenID, rawOrigin string) error {
	return c.exec(ctx, "SetOrigin", call, map[string]any{"token_id": uint64(id), "origin": rawOrigin})
}

func (c *Client) RemoveOrigin(ctx context.Context, call ledger.Call, id ledger.TokenID, rawOrigin string) error {
	return c.exec(ctx, "RemoveOrigin", call, map[string]any{"token_id": uint64(id), "origin": rawOrigin})
}

func (c *Client) TransferBlock(ctx context.Context, call ledger.Call, to ledger.Identity, id ledger.TokenID) error {
	return c.exec(ctx, "TransferBlock", call, map[string]any{"token_id": uint64(id), "to": to.String()})
}

func (c *Client) SetPublishPrice(ctx context.Context, call ledger.Call, price ledger.Value) error {
	return c.exec(ctx, "SetPublishPrice", call, map[string]any{"price": price.String()})
}

// RegisterOrigin claims rawOrigin for the caller and returns its hash.
func (c *Client) RegisterOrigin(ctx context.Context, call ledger.Call, rawOrigin string) (origin.Hash, error) {
	reply, err := c.transact(ctx, "RegisterOrigin", call, map[string]any{"origin": rawOrigin})
	if err != nil {
		return origin.Hash{}, err
	}
	h, err := origin.ParseHash(reply.GetFields()["origin_hash"].GetStringValue())
	if err != nil {
		return origin.Hash{}, fmt.Errorf("rpc: bad origin_hash in reply: %w", err)
	}
	return h, nil
}

func (c *Client) UnregisterOrigin(ctx context.Context, call ledger.Call, h origin.Hash) error {
	return c.exec(ctx, "UnregisterOrigin", call, map[string]any{"origin_hash": h.Hex()})
}

func (c *Client) SetMinimumBalance(ctx context.Context, call ledger.Call, minimum ledger.Value) error {
	return c.exec(ctx, "SetMinimumBalance", call, map[string]any{"minimum": minimum.String()})
}

func (c *Client) ListBlock(ctx context.Context, call ledger.Call, id ledger.TokenID, terms marketplace.Terms) error {
	return c.exec(ctx, "ListBlock", call, map[string]any{
		"token_id":      uint64(id),
		"metadata_uri":  terms.MetadataURI,
		"price_per_day": terms.PricePerDay.String(),
		"price":         terms.Price.String(),
		"tier":          terms.Tier,
		"licensable":    terms.Licensable,
	})
}

func (c *Client) Delist(ctx context.Context, call ledger.Call, id ledger.TokenID) error {
	return c.exec(ctx, "Delist", call, map[string]any{"token_id": uint64(id)})
}

func (c *Client) SetListingPrice(ctx context.Context, call ledger.Call, fee ledger.Value) error {
	return c.exec(ctx, "SetListingPrice", call, map[string]any{"fee": fee.String()})
}

// PurchaseLicense buys a license for origin h. The duration is sent in whole
// seconds, rounded up.
func (c *Client) PurchaseLicense(ctx context.Context, call ledger.Call, id ledger.TokenID, d time.Duration, h origin.Hash) (LicenseStatus, error) {
	secs := int64(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	reply, err := c.transact(ctx, "PurchaseLicense", call, map[string]any{
		"token_id":         uint64(id),
		"duration_seconds": secs,
		"origin_hash":      h.Hex(),
	})
	if err != nil {
		return LicenseStatus{}, err
	}
	return decodeLicense(reply)
}

// Withdraw sweeps the fees held by the named registry to its admin.
func (c *Client) Withdraw(ctx context.Context, call ledger.Call, registry string) error {
	return c.exec(ctx, "Withdraw", call, map[string]any{"registry": registry})
}
