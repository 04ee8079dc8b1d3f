package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pk(tag byte) common.PublicKey {
	var b [32]byte
	b[0] = 0x40
	b[31] = tag
	return common.PublicKeyFromBytes(b[:])
}

func encodeTable(authority common.PublicKey, lastExtendedSlot uint64, addresses ...common.PublicKey) []byte {
	data := make([]byte, tableMetaSize)
	binary.LittleEndian.PutUint32(data[0:4], tableTypeIndexActive)
	binary.LittleEndian.PutUint64(data[lastExtendedSlotStart:lastExtendedSlotStart+8], lastExtendedSlot)
	data[21] = 1
	copy(data[tableAuthorityOffset:tableAuthorityOffset+32], authority.Bytes())
	for _, a := range addresses {
		data = append(data, a.Bytes()...)
	}
	return data
}

func TestDecodeLookupTable(t *testing.T) {
	authority := pk(1)
	data := encodeTable(authority, 1234, pk(10), pk(11))

	table, err := decodeLookupTable(pk(5), data)
	require.NoError(t, err)

	assert.Equal(t, pk(5), table.Address)
	assert.Equal(t, authority, table.Authority)
	assert.EqualValues(t, 1234, table.LastExtendedSlot)
	require.Len(t, table.Addresses, 2)
	assert.Equal(t, pk(10), table.Addresses[0])
	assert.Equal(t, pk(11), table.Addresses[1])
}

func TestDecodeLookupTableRejectsShortAccount(t *testing.T) {
	_, err := decodeLookupTable(pk(5), make([]byte, 10))
	assert.Error(t, err)
}

func TestDecodeLookupTableRejectsWrongType(t *testing.T) {
	data := encodeTable(pk(1), 0)
	binary.LittleEndian.PutUint32(data[0:4], 0)
	_, err := decodeLookupTable(pk(5), data)
	assert.Error(t, err)
}

func TestDecodeLookupTableRejectsTruncatedList(t *testing.T) {
	data := encodeTable(pk(1), 0, pk(10))
	_, err := decodeLookupTable(pk(5), data[:len(data)-5])
	assert.Error(t, err)
}

func TestDecodeAccountData(t *testing.T) {
	raw := []any{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"}
	data, err := decodeAccountData(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestDecodeAccountDataRejectsOtherShapes(t *testing.T) {
	for _, raw := range []any{
		"AQID",
		[]any{"AQID"},
		[]any{"AQID", "base58"},
		[]any{7, "base64"},
	} {
		_, err := decodeAccountData(raw)
		assert.Error(t, err, "%v", raw)
	}
}

func rpcAccount(address common.PublicKey, data []byte) map[string]any {
	return map[string]any{
		"pubkey": address.ToBase58(),
		"account": map[string]any{
			"data":       []any{base64.StdEncoding.EncodeToString(data), "base64"},
			"executable": false,
			"lamports":   1,
			"owner":      common.AddressLookupTableProgramID.ToBase58(),
			"rentEpoch":  0,
		},
	}
}

func rpcServer(t *testing.T, body map[string]any) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListTablesByAuthority(t *testing.T) {
	authority := pk(1)
	server := rpcServer(t, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"result": []map[string]any{
			rpcAccount(pk(5), encodeTable(authority, 1234, pk(10), pk(11))),
			// frozen or foreign accounts decode to errors and are skipped
			rpcAccount(pk(6), make([]byte, 4)),
		},
	})

	chain := New(client.NewClient(server.URL), nil, types.Account{})
	tables, err := chain.ListTablesByAuthority(context.Background(), authority)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, pk(5), tables[0].Address)
	assert.Equal(t, authority, tables[0].Authority)
	assert.EqualValues(t, 1234, tables[0].LastExtendedSlot)
	require.Len(t, tables[0].Addresses, 2)
	assert.Equal(t, pk(10), tables[0].Addresses[0])
}

func TestListTablesByAuthorityRPCError(t *testing.T) {
	server := rpcServer(t, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"error":   map[string]any{"code": -32602, "message": "invalid params"},
	})

	chain := New(client.NewClient(server.URL), nil, types.Account{})
	_, err := chain.ListTablesByAuthority(context.Background(), pk(1))
	assert.Error(t, err)
}
