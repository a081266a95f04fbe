package rpc

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"blocksui.xyz/ledger/content"
	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/license"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origin"
	"blocksui.xyz/ledger/origins"
	"blocksui.xyz/ledger/staking"
)

var (
	admin = ledger.MustParseIdentity("0x00000000000000000000000000000000000000ad")
	alice = ledger.MustParseIdentity("0x0000000000000000000000000000000000000001")
	bob   = ledger.MustParseIdentity("0x0000000000000000000000000000000000000002")
	fp    = fingerprint.MustFromCID("QmWmyoMoctfbAaiEs2G46gpeUmhqFRDW6KWo64y5r581Vz")
	now   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	srv    *Server
	client *Client
	logs   *bytes.Buffer
	token  ledger.TokenID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	l := ledger.New(ledger.WithClock(func() time.Time { return now }))
	stakes := staking.New(l, admin, ledger.Ether)
	blocks := content.New(l, admin, ledger.MustParseEther("0.5"))
	sites := origins.New(l, admin, ledger.MustParseEther("0.1"))
	market := marketplace.New(l, admin, blocks, ledger.MustParseEther("0.01"))
	lic := license.New(l, blocks, market)
	for _, m := range []ledger.Module{stakes, blocks, sites, market, lic} {
		if err := l.Mount(m); err != nil {
			t.Fatalf("Mount: %v", err)
		}
	}
	for _, id := range []ledger.Identity{alice, bob} {
		if err := l.Fund(id, 10*ledger.Ether); err != nil {
			t.Fatalf("Fund: %v", err)
		}
	}

	if err := stakes.Register(ctx, ledger.Call{Caller: alice, Value: ledger.Ether}); err != nil {
		t.Fatalf("Register stake: %v", err)
	}
	token, err := blocks.Publish(ctx, ledger.Call{Caller: alice, Value: ledger.MustParseEther("0.5")}, fp, "ipfs://meta")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := blocks.SetOrigin(ctx, ledger.Call{Caller: alice}, token, "https://crcls.xyz"); err != nil {
		t.Fatalf("SetOrigin: %v", err)
	}
	if _, err := sites.Register(ctx, ledger.Call{Caller: bob, Value: ledger.MustParseEther("0.1")}, "https://bob.example"); err != nil {
		t.Fatalf("Register origin: %v", err)
	}
	err = market.ListBlock(ctx, ledger.Call{Caller: alice, Value: ledger.MustParseEther("0.01")}, token, marketplace.Terms{
		MetadataURI: "ipfs://listing",
		PricePerDay: ledger.MustParseEther("0.0001"),
		Price:       ledger.Ether,
		Tier:        2,
		Licensable:  true,
	})
	if err != nil {
		t.Fatalf("ListBlock: %v", err)
	}
	if _, err := lic.PurchaseLicense(ctx, ledger.Call{Caller: bob, Value: ledger.MustParseEther("0.003")}, token, 30*license.Day, origin.Of("https://bob.example")); err != nil {
		t.Fatalf("PurchaseLicense: %v", err)
	}

	srv := &Server{Ledger: l, Staking: stakes, Content: blocks, Origins: sites, Marketplace: market, Licenses: lic}
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger(logger)))
	RegisterQueryServer(gs, srv)
	RegisterTransactServer(gs, srv)
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial("passthrough:///bufnet", DialOptions{
		Timeout: 2 * time.Second,
		Extra:   []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &fixture{srv: srv, client: client, logs: logs, token: token}
}

func TestQuery_RegistryReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	staked, err := f.client.VerifyStake(ctx, alice)
	if err != nil || !staked {
		t.Fatalf("VerifyStake(alice) = %v, %v", staked, err)
	}
	staked, err = f.client.VerifyStake(ctx, bob)
	if err != nil || staked {
		t.Fatalf("VerifyStake(bob) = %v, %v", staked, err)
	}

	exists, err := f.client.BlockExists(ctx, fp)
	if err != nil || !exists {
		t.Fatalf("BlockExists = %v, %v", exists, err)
	}

	uri, err := f.client.TokenURI(ctx, f.token)
	if err != nil {
		t.Fatalf("TokenURI: %v", err)
	}
	if uri != "ipfs://meta" {
		t.Fatalf("TokenURI = %q", uri)
	}

	got, list, err := f.client.BlockForToken(ctx, f.token)
	if err != nil {
		t.Fatalf("BlockForToken: %v", err)
	}
	if got != fp {
		t.Fatalf("BlockForToken fingerprint = %s, want %s", got, fp)
	}
	if len(list) != 1 || list[0] != "https://crcls.xyz" {
		t.Fatalf("BlockForToken origins = %v", list)
	}

	mine, err := f.client.VerifyOrigin(ctx, origin.Of("https://bob.example"), bob)
	if err != nil || !mine {
		t.Fatalf("VerifyOrigin(bob) = %v, %v", mine, err)
	}
	mine, err = f.client.VerifyOrigin(ctx, origin.Of("https://bob.example"), alice)
	if err != nil || mine {
		t.Fatalf("VerifyOrigin(alice) = %v, %v", mine, err)
	}

	sites, err := f.client.OriginsFor(ctx, bob)
	if err != nil {
		t.Fatalf("OriginsFor: %v", err)
	}
	if len(sites) != 1 || sites[0] != "https://bob.example" {
		t.Fatalf("OriginsFor = %v", sites)
	}

	bal, err := f.client.Balance(ctx, bob)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	want := 10*ledger.Ether - ledger.MustParseEther("0.1") - ledger.MustParseEther("0.003")
	if bal != want {
		t.Fatalf("Balance = %s, want %s", bal, want)
	}
}

func TestQuery_Listings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.client.Listing(ctx, f.token)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if l.Owner != alice || l.Tier != 2 || !l.Licensable || l.PricePerDay != ledger.MustParseEther("0.0001") {
		t.Fatalf("Listing = %+v", l)
	}

	empty, err := f.client.Listing(ctx, f.token+1)
	if err != nil {
		t.Fatalf("Listing(unlisted): %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("expected zero listing, got %+v", empty)
	}

	page, err := f.client.Listings(ctx, 3, 0)
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(page) != 3 || page[0].TokenID != f.token || !page[1].IsZero() || !page[2].IsZero() {
		t.Fatalf("Listings = %+v", page)
	}

	_, err = f.client.Listings(ctx, marketplace.MaxPageSize+1, 0)
	if !ledger.IsKind(err, ledger.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestQuery_License(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.client.License(ctx, f.token, origin.Of("https://bob.example"))
	if err != nil {
		t.Fatalf("License: %v", err)
	}
	if got.Licensee != bob || !got.Active {
		t.Fatalf("License = %+v", got)
	}
	if !got.ExpiresAt.Equal(now.Add(30 * license.Day)) {
		t.Fatalf("ExpiresAt = %s", got.ExpiresAt)
	}

	_, err = f.client.License(ctx, f.token, origin.Of("https://nobody.example"))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestQuery_ErrorsKeepKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.TokenURI(ctx, 99)
	if !ledger.IsKind(err, ledger.KindTokenNotFound) {
		t.Fatalf("expected TokenNotFound, got %v", err)
	}
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound status in chain, got %v", status.Code(err))
	}
	if !strings.Contains(err.Error(), "Token does not exist") {
		t.Fatalf("message lost: %v", err)
	}

	// Malformed identities never reach a registry.
	_, err = f.client.client.VerifyStake(ctx, wrapperspb.String("not-an-address"))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if !strings.Contains(f.logs.String(), "VerifyStake") {
		t.Fatalf("expected interceptor log line, got %q", f.logs.String())
	}
}

func TestServer_MissingRegistry(t *testing.T) {
	var s Server
	_, err := s.BlockExists(context.Background(), nil)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}
