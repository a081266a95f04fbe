package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"blocksui.xyz/ledger/checkpoint"
	"blocksui.xyz/ledger/config"
	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/license"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origin"
	"blocksui.xyz/ledger/storage"
)

var (
	admin   = ledger.MustParseIdentity("0x00000000000000000000000000000000000000ad")
	node    = ledger.MustParseIdentity("0x0000000000000000000000000000000000000001")
	creator = ledger.MustParseIdentity("0x0000000000000000000000000000000000000002")
	site    = ledger.MustParseIdentity("0x0000000000000000000000000000000000000003")
	start   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func params() config.Params {
	return config.Params{
		Admin:          admin,
		StakingCost:    ledger.MustParseEther("0.1"),
		PublishPrice:   ledger.MustParseEther("0.1"),
		ListingFee:     ledger.MustParseEther("0.01"),
		MinimumBalance: ledger.MustParseEther("0.1"),
		Genesis: map[ledger.Identity]ledger.Value{
			node:    ledger.Ether,
			creator: ledger.Ether,
			site:    ledger.Ether,
		},
	}
}

type AppSuite struct {
	suite.Suite
	ctx context.Context
	reg *prometheus.Registry
	rec *ledger.Recorder
	app *App
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	s.ctx = context.Background()
	s.reg = prometheus.NewRegistry()
	s.rec = &ledger.Recorder{}
	a, err := New(params(), WithClock(func() time.Time { return start }), WithMetrics(s.reg), WithSink(s.rec))
	s.Require().NoError(err)
	s.app = a
}

// run drives one deployment through every registry.
func (s *AppSuite) run() {
	a := s.app
	s.Require().NoError(a.Staking.Register(s.ctx, ledger.Call{Caller: node, Value: ledger.MustParseEther("0.1")}))

	fp := fingerprint.MustFromCID("QmWmyoMoctfbAaiEs2G46gpeUmhqFRDW6KWo64y5r581Vz")
	id, err := a.Content.Publish(s.ctx, ledger.Call{Caller: creator, Value: ledger.MustParseEther("0.1")}, fp, "ipfs://meta")
	s.Require().NoError(err)

	_, err = a.Origins.Register(s.ctx, ledger.Call{Caller: site, Value: ledger.MustParseEther("0.1")}, "https://site.example")
	s.Require().NoError(err)

	s.Require().NoError(a.Marketplace.ListBlock(s.ctx, ledger.Call{Caller: creator, Value: ledger.MustParseEther("0.01")}, id, marketplace.Terms{
		MetadataURI: "ipfs://listing",
		PricePerDay: ledger.MustParseEther("0.0001"),
		Licensable:  true,
	}))

	_, err = a.License.PurchaseLicense(s.ctx, ledger.Call{Caller: site, Value: ledger.MustParseEther("0.003")}, id, 30*license.Day, origin.Of("https://site.example"))
	s.Require().NoError(err)
}

func (s *AppSuite) TestGenesis() {
	s.Equal(ledger.Ether, s.app.Ledger.Balance(s.ctx, node))
	s.Equal(uint64(0), s.app.Ledger.Height(s.ctx))
}

func (s *AppSuite) TestScenario() {
	s.run()
	a := s.app

	s.True(a.Staking.Verify(s.ctx, node))
	s.True(a.License.IsLicensed(s.ctx, 1, origin.Of("https://site.example"), start.Add(time.Hour)))
	want := ledger.Ether - ledger.MustParseEther("0.1") - ledger.MustParseEther("0.01") + ledger.MustParseEther("0.003")
	s.Equal(want, a.Ledger.Balance(s.ctx, creator))
	s.Equal(uint64(5), a.Ledger.Height(s.ctx))
	s.Len(s.rec.Envelopes(), 5)

	n, err := testutil.GatherAndCount(s.reg, "bui_ledger_height")
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *AppSuite) TestCheckpointRoundTrip() {
	s.run()
	cas := storage.NewMemCAS()

	id, err := s.app.Checkpoint(s.ctx, cas)
	s.Require().NoError(err)
	before, err := s.app.Snapshot(s.ctx)
	s.Require().NoError(err)

	fresh, err := New(params())
	s.Require().NoError(err)
	s.Require().NoError(fresh.RestoreCheckpoint(s.ctx, cas, id))
	after, err := fresh.Snapshot(s.ctx)
	s.Require().NoError(err)

	want, err := checkpoint.Encode(before)
	s.Require().NoError(err)
	got, err := checkpoint.Encode(after)
	s.Require().NoError(err)
	s.Equal(string(want), string(got))
	s.True(fresh.Staking.Verify(s.ctx, node))
}

func (s *AppSuite) TestRestoreCheckpointMissing() {
	other := storage.NewMemCAS()
	id, err := other.Put(s.ctx, []byte("elsewhere"))
	s.Require().NoError(err)

	err = s.app.RestoreCheckpoint(s.ctx, storage.NewMemCAS(), id)
	s.Require().ErrorIs(err, storage.ErrNotFound)
}

func (s *AppSuite) TestRPCServerSharesState() {
	s.run()
	q := s.app.RPCServer()
	s.Same(s.app.Content, q.Content)
	s.Same(s.app.Ledger, q.Ledger)
}
