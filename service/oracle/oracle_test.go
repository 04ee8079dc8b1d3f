package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"liquidator/pkg/number"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mintA = "So11111111111111111111111111111111111111112"
	mintB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func newTestServer(t *testing.T, mintHits *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/prices":
			_ = json.NewEncoder(w).Encode([]pricePayload{
				{Mint: mintA, Price: number.Decimal("150.5")},
				{Mint: mintB, Price: number.Decimal("0")},
			})
		case strings.HasPrefix(r.URL.Path, "/v1/mints/"):
			atomic.AddInt64(mintHits, 1)
			_ = json.NewEncoder(w).Encode(mintPayload{Decimals: 9})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestSnapshot(t *testing.T) {
	var mintHits int64
	server := newTestServer(t, &mintHits)
	defer server.Close()

	svc := New(server.URL)
	mints := []common.PublicKey{
		common.PublicKeyFromString(mintA),
		common.PublicKeyFromString(mintB),
	}

	snapshot, err := svc.Snapshot(context.Background(), mints)
	require.NoError(t, err)

	price, ok := snapshot.Price(common.PublicKeyFromString(mintA))
	require.True(t, ok)
	assert.True(t, price.Price.Equal(number.Decimal("150.5")))
	assert.EqualValues(t, 9, price.Decimals)

	// zero price means the feed could not price the mint; no fallback
	_, ok = snapshot.Price(common.PublicKeyFromString(mintB))
	assert.False(t, ok)
}

func TestSnapshotCachesDecimalsOnly(t *testing.T) {
	var mintHits int64
	server := newTestServer(t, &mintHits)
	defer server.Close()

	svc := New(server.URL)
	mints := []common.PublicKey{common.PublicKeyFromString(mintA)}

	_, err := svc.Snapshot(context.Background(), mints)
	require.NoError(t, err)
	_, err = svc.Snapshot(context.Background(), mints)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt64(&mintHits), "decimals fetched once, then cached")
}

func TestSnapshotEmpty(t *testing.T) {
	svc := New("http://unreachable.invalid")
	snapshot, err := svc.Snapshot(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

