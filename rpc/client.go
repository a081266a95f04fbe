package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/license"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origin"
)

// Client is a typed wrapper over QueryClient and TransactClient. Ledger
// failures come back as *ledger.Error with their original Kind.
type Client struct {
	cc     *grpc.ClientConn
	client QueryClient
	tx     TransactClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies per RPC when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewQueryClient(cc), tx: NewTransactClient(cc), Timeout: opts.Timeout}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// LicenseStatus is a license record plus its activity at the server's clock.
type LicenseStatus struct {
	license.License
	Active bool
}

func (c *Client) VerifyStake(ctx context.Context, id ledger.Identity) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.VerifyStake(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) BlockExists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.BlockExists(ctx, wrapperspb.String(fp.CID()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) TokenURI(ctx context.Context, id ledger.TokenID) (string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.TokenURI(ctx, wrapperspb.UInt64(uint64(id)))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) BlockForToken(ctx context.Context, id ledger.TokenID) (fingerprint.Fingerprint, []string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.BlockForToken(ctx, wrapperspb.UInt64(uint64(id)))
	if err != nil {
		return fingerprint.Fingerprint{}, nil, mapRPC(err)
	}
	fields := reply.GetFields()
	fp, err := fingerprint.FromCID(fields["cid"].GetStringValue())
	if err != nil {
		return fingerprint.Fingerprint{}, nil, fmt.Errorf("rpc: bad cid in reply: %w", err)
	}
	var list []string
	for _, v := range fields["origins"].GetListValue().GetValues() {
		list = append(list, v.GetStringValue())
	}
	return fp, list, nil
}

// Listing returns the listing for id; unlisted tokens yield a zero Listing.
func (c *Client) Listing(ctx context.Context, id ledger.TokenID) (marketplace.Listing, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Listing(ctx, wrapperspb.UInt64(uint64(id)))
	if err != nil {
		return marketplace.Listing{}, mapRPC(err)
	}
	return decodeListing(reply)
}

func (c *Client) Listings(ctx context.Context, limit, offset uint64) ([]marketplace.Listing, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	req, err := structpb.NewStruct(map[string]any{"limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}
	reply, err := c.client.Listings(ctx, req)
	if err != nil {
		return nil, mapRPC(err)
	}
	out := make([]marketplace.Listing, 0, len(reply.GetValues()))
	for _, v := range reply.GetValues() {
		l, err := decodeListing(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (c *Client) VerifyOrigin(ctx context.Context, h origin.Hash, id ledger.Identity) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	req, err := structpb.NewStruct(map[string]any{"origin_hash": h.Hex(), "address": id.String()})
	if err != nil {
		return false, err
	}
	reply, err := c.client.VerifyOrigin(ctx, req)
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) OriginsFor(ctx context.Context, id ledger.Identity) ([]string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.OriginsFor(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	out := make([]string, 0, len(reply.GetValues()))
	for _, v := range reply.GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out, nil
}

func (c *Client) License(ctx context.Context, id ledger.TokenID, h origin.Hash) (LicenseStatus, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	req, err := structpb.NewStruct(map[string]any{"token_id": uint64(id), "origin_hash": h.Hex()})
	if err != nil {
		return LicenseStatus{}, err
	}
	reply, err := c.client.License(ctx, req)
	if err != nil {
		return LicenseStatus{}, mapRPC(err)
	}
	return decodeLicense(reply)
}

func decodeLicense(st *structpb.Struct) (LicenseStatus, error) {
	f := st.GetFields()
	licensee, err := ledger.ParseIdentity(f["licensee"].GetStringValue())
	if err != nil {
		return LicenseStatus{}, fmt.Errorf("rpc: bad licensee in reply: %w", err)
	}
	got, err := origin.ParseHash(f["origin"].GetStringValue())
	if err != nil {
		return LicenseStatus{}, fmt.Errorf("rpc: bad origin in reply: %w", err)
	}
	return LicenseStatus{
		License: license.License{
			TokenID:         ledger.TokenID(f["token_id"].GetNumberValue()),
			Origin:          got,
			Licensee:        licensee,
			DurationSeconds: uint64(f["duration_seconds"].GetNumberValue()),
			IssuedAt:        time.Unix(int64(f["issued_at"].GetNumberValue()), 0).UTC(),
			ExpiresAt:       time.Unix(int64(f["expires_at"].GetNumberValue()), 0).UTC(),
		},
		Active: f["active"].GetBoolValue(),
	}, nil
}

func (c *Client) Balance(ctx context.Context, id ledger.Identity) (ledger.Value, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Balance(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return 0, mapRPC(err)
	}
	return ledger.ParseEther(reply.GetValue())
}

func decodeListing(st *structpb.Struct) (marketplace.Listing, error) {
	f := st.GetFields()
	perDay, err := ledger.ParseEther(f["price_per_day"].GetStringValue())
	if err != nil {
		return marketplace.Listing{}, fmt.Errorf("rpc: bad price_per_day in reply: %w", err)
	}
	price, err := ledger.ParseEther(f["price"].GetStringValue())
	if err != nil {
		return marketplace.Listing{}, fmt.Errorf("rpc: bad price in reply: %w", err)
	}
	owner, err := ledger.ParseIdentity(f["owner"].GetStringValue())
	if err != nil {
		return marketplace.Listing{}, fmt.Errorf("rpc: bad owner in reply: %w", err)
	}
	return marketplace.Listing{
		TokenID:     ledger.TokenID(f["token_id"].GetNumberValue()),
		MetadataURI: f["metadata_uri"].GetStringValue(),
		PricePerDay: perDay,
		Price:       price,
		Tier:        int64(f["tier"].GetNumberValue()),
		Licensable:  f["licensable"].GetBoolValue(),
		Owner:       owner,
	}, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
