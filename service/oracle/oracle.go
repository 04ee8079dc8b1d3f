package oracle

import (
	"context"
	"fmt"
	"strings"

	"liquidator/core"
	"liquidator/pkg/resthttp"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

const decimalsCacheSize = 512

type priceOracleService struct {
	endpoint string
	// mint decimals are immutable chain metadata and safe to cache;
	// prices themselves are never cached
	decimalsCache gcache.Cache
}

// New new price oracle service
func New(endpoint string) core.IPriceOracleService {
	return &priceOracleService{
		endpoint:      endpoint,
		decimalsCache: gcache.New(decimalsCacheSize).LRU().Build(),
	}
}

type pricePayload struct {
	Mint  string          `json:"mint"`
	Price decimal.Decimal `json:"price"`
}

type mintPayload struct {
	Decimals int32 `json:"decimals"`
}

// Snapshot fetches one price per mint. Mints the feed cannot price are left
// out of the snapshot; consumers treat the absence as a stale oracle.
func (s *priceOracleService) Snapshot(ctx context.Context, mints []common.PublicKey) (core.OracleSnapshot, error) {
	log := logger.FromContext(ctx).WithField("service", "oracle")

	wanted := core.NewAddressSet(mints...)
	if wanted.Len() == 0 {
		return core.OracleSnapshot{}, nil
	}

	keys := make([]string, 0, wanted.Len())
	for _, mint := range wanted.Addresses() {
		keys = append(keys, mint.ToBase58())
	}
	url := fmt.Sprintf("%s/v1/prices?mints=%s", s.endpoint, strings.Join(keys, ","))

	var payloads []pricePayload
	if _, err := resthttp.Execute(resthttp.Request(ctx), "GET", url, nil, &payloads); err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	snapshot := make(core.OracleSnapshot, len(payloads))
	for _, payload := range payloads {
		if !payload.Price.IsPositive() {
			continue
		}
		mint := common.PublicKeyFromString(payload.Mint)
		if !wanted.Contains(mint) {
			continue
		}
		decimals, err := s.mintDecimals(ctx, payload.Mint)
		if err != nil {
			log.WithError(err).Warningln("skip mint without metadata:", payload.Mint)
			continue
		}
		snapshot[mint] = core.OraclePrice{
			Price:    payload.Price,
			Decimals: decimals,
		}
	}
	return snapshot, nil
}

func (s *priceOracleService) mintDecimals(ctx context.Context, mint string) (int32, error) {
	if cached, err := s.decimalsCache.Get(mint); err == nil {
		return cached.(int32), nil
	}

	url := fmt.Sprintf("%s/v1/mints/%s", s.endpoint, mint)
	var payload mintPayload
	if _, err := resthttp.Execute(resthttp.Request(ctx), "GET", url, nil, &payload); err != nil {
		return 0, fmt.Errorf("fetch mint %s: %w", mint, err)
	}

	_ = s.decimalsCache.Set(mint, payload.Decimals)
	return payload.Decimals, nil
}
