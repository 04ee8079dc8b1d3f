package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"liquidator/core"
	"liquidator/pkg/number"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	tableAddress = "4QUZQ4c7bZuJ4o4L8tYAEGnePFV27SUanEdi3U8DQorh"
)

type fakeChain struct {
	fetched []common.PublicKey
}

func (c *fakeChain) CurrentSlot(ctx context.Context) (uint64, error) { return 0, nil }
func (c *fakeChain) SubmitTableInstructions(ctx context.Context, instructions []types.Instruction) error {
	return nil
}
func (c *fakeChain) AwaitNextBlock(ctx context.Context) error { return nil }
func (c *fakeChain) FetchTable(ctx context.Context, address common.PublicKey) (*core.LookupTable, error) {
	c.fetched = append(c.fetched, address)
	return &core.LookupTable{Address: address}, nil
}
func (c *fakeChain) ListTablesByAuthority(ctx context.Context, authority common.PublicKey) ([]*core.LookupTable, error) {
	return nil, nil
}

func ix(tag byte) instructionPayload {
	return instructionPayload{
		ProgramID: tokenProgram,
		Accounts:  []accountMetaPayload{{PubKey: tokenProgram, IsWritable: true}},
		Data:      base64.StdEncoding.EncodeToString([]byte{tag}),
	}
}

func TestSwap(t *testing.T) {
	var gotRequest swapRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/swap-instructions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		_ = json.NewEncoder(w).Encode(swapResponse{
			ComputeBudgetInstructions: []instructionPayload{ix(1)},
			SetupInstructions:         []instructionPayload{ix(2)},
			SwapInstructions:          []instructionPayload{ix(3)},
			CleanupInstructions:       []instructionPayload{ix(4)},
			LookupTableAddresses:      []string{tableAddress},
			OutAmount:                 number.Decimal("995"),
			MinOutAmount:              number.Decimal("990"),
		})
	}))
	defer server.Close()

	chain := &fakeChain{}
	user := common.PublicKeyFromString(tokenProgram)
	svc := New(server.URL, user, chain)

	bundle, err := svc.Swap(context.Background(), user, user, number.Decimal("1000"), core.SwapConfig{
		SlippageBps:      50,
		WrapAndUnwrapSol: true,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 50, gotRequest.SlippageBps)
	assert.True(t, gotRequest.WrapAndUnwrapSol)
	assert.Equal(t, "1000", gotRequest.Amount)

	// submit order preserved: compute budget, setup, swap, cleanup
	flat := bundle.Flatten()
	require.Len(t, flat, 4)
	for i, instruction := range flat {
		assert.Equal(t, []byte{byte(i + 1)}, instruction.Data)
	}

	require.Len(t, bundle.LookupTables, 1)
	assert.Equal(t, common.PublicKeyFromString(tableAddress), bundle.LookupTables[0].Address)
	assert.True(t, bundle.MinOutAmount.Equal(number.Decimal("990")))
}

func TestSwapBadInstructionData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(swapResponse{
			SwapInstructions: []instructionPayload{{ProgramID: tokenProgram, Data: "not base64!"}},
		})
	}))
	defer server.Close()

	user := common.PublicKeyFromString(tokenProgram)
	svc := New(server.URL, user, &fakeChain{})

	_, err := svc.Swap(context.Background(), user, user, number.Decimal("1"), core.SwapConfig{})
	assert.Error(t, err)
}
