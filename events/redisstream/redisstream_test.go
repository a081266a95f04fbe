package redisstream

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/staking"
)

func TestEntryValuesRoundTrip(t *testing.T) {
	node := ledger.MustParseIdentity("0x0000000000000000000000000000000000000001")
	env := ledger.Envelope{
		TxID:   uuid.New(),
		Height: 42,
		Op:     "staking.register",
		Caller: node,
	}
	ev := staking.NodeRegistered{Node: node, Amount: ledger.Ether}

	values, err := entryValues(env, ev)
	require.NoError(t, err)
	require.Equal(t, "NodeRegistered", values["event"])

	entry, err := decodeEntry(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	require.Equal(t, uint64(42), entry.Height)
	require.Equal(t, env.TxID.String(), entry.TxID)
	require.Equal(t, node.String(), entry.Caller)

	var got staking.NodeRegistered
	require.NoError(t, json.Unmarshal(entry.Payload, &got))
	require.Equal(t, ev, got)
}

func TestDecodeEntryRejectsBadHeight(t *testing.T) {
	_, err := decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]any{"height": "x"}})
	require.Error(t, err)
}
