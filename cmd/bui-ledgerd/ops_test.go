package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"blocksui.xyz/ledger/app"
	"blocksui.xyz/ledger/config"
	"blocksui.xyz/ledger/ledger"
)

func newTestApp(t *testing.T, reg *prometheus.Registry) *app.App {
	t.Helper()
	admin := ledger.MustParseIdentity("0x00000000000000000000000000000000000000ad")
	node := ledger.MustParseIdentity("0x0000000000000000000000000000000000000001")
	a, err := app.New(config.Params{
		Admin:       admin,
		StakingCost: ledger.Ether,
		Genesis:     map[ledger.Identity]ledger.Value{node: 2 * ledger.Ether},
	}, app.WithMetrics(reg))
	require.NoError(t, err)
	require.NoError(t, a.Staking.Register(context.Background(), ledger.Call{Caller: node, Value: ledger.Ether}))
	return a
}

func TestOpsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(newOpsRouter(newTestApp(t, reg), reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	require.Equal(t, health{Status: "ok", Height: 1}, h)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(body.String(), `bui_ledger_transitions_total{op="staking.register",outcome="committed"} 1`), body.String())
}

func TestRunListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"-list-backends"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	for _, name := range []string{"localfs", "memory", "pebble"} {
		require.Contains(t, out.String(), name)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Setenv("BUI_ADMIN", "")
	var out, errOut bytes.Buffer
	code := run(context.Background(), nil, &out, &errOut)
	require.Equal(t, 2, code)
	require.Contains(t, errOut.String(), "admin is required")
}
