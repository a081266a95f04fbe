//go:build integration

package redisstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/staking"
)

func TestSinkPublishesCommittedEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)
	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sink := New(client, "test:events", WithMaxLen(1000))
	l := ledger.New(ledger.WithSink(sink))
	reg := staking.New(l, ledger.AccountFor("admin"), ledger.Ether)
	node := ledger.MustParseIdentity("0x0000000000000000000000000000000000000001")
	require.NoError(t, l.Fund(node, 2*ledger.Ether))

	require.NoError(t, reg.Register(ctx, ledger.Call{Caller: node, Value: ledger.Ether}))
	// Rejected transitions publish nothing.
	require.Error(t, reg.Register(ctx, ledger.Call{Caller: node, Value: ledger.Ether}))
	require.NoError(t, reg.Unregister(ctx, ledger.Call{Caller: node}))

	entries, err := Read(ctx, client, "test:events", "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "NodeRegistered", entries[0].Event)
	require.Equal(t, uint64(1), entries[0].Height)
	require.Equal(t, "NodeUnregistered", entries[1].Event)
	require.Equal(t, uint64(2), entries[1].Height)

	rest, err := Read(ctx, client, "test:events", entries[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}
