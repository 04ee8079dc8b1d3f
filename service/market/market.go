package market

import (
	"context"
	"fmt"

	"liquidator/core"
	"liquidator/pkg/resthttp"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

type marketService struct {
	client   *client.Client
	endpoint string
}

// New new market service backed by the lending state api for account data
// and the rpc node for slot reads
func New(c *client.Client, endpoint string) core.IMarketService {
	return &marketService{
		client:   c,
		endpoint: endpoint,
	}
}

func (s *marketService) CurrentSlot(ctx context.Context) (uint64, error) {
	return s.client.GetSlot(ctx)
}

func (s *marketService) LoadMarket(ctx context.Context, address common.PublicKey) (*core.Market, error) {
	url := fmt.Sprintf("%s/v1/markets/%s", s.endpoint, address.ToBase58())

	var payload marketPayload
	if _, err := resthttp.Execute(resthttp.Request(ctx), "GET", url, nil, &payload); err != nil {
		return nil, fmt.Errorf("load market %s: %w", address.ToBase58(), err)
	}
	return payload.toMarket()
}

func (s *marketService) LoadObligations(ctx context.Context, market *core.Market) ([]*core.Obligation, error) {
	url := fmt.Sprintf("%s/v1/markets/%s/obligations", s.endpoint, market.Address.ToBase58())

	var payloads []obligationPayload
	if _, err := resthttp.Execute(resthttp.Request(ctx), "GET", url, nil, &payloads); err != nil {
		return nil, fmt.Errorf("load obligations: %w", err)
	}

	obligations := make([]*core.Obligation, 0, len(payloads))
	for idx := range payloads {
		obligation, err := payloads[idx].toObligation()
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, obligation)
	}
	return obligations, nil
}

// wire shapes of the state api; addresses travel as base58 strings

type reservePayload struct {
	Address                 string             `json:"address"`
	LiquidityMint           string             `json:"liquidity_mint"`
	LiquidityDecimals       int32              `json:"liquidity_decimals"`
	CollateralMint          string             `json:"collateral_mint"`
	CollateralSupplyVault   string             `json:"collateral_supply_vault"`
	LiquiditySupplyVault    string             `json:"liquidity_supply_vault"`
	LiquidityFeeVault       string             `json:"liquidity_fee_vault"`
	PriceFeeds              []string           `json:"price_feeds"`
	Status                  int                `json:"status"`
	CollateralExchangeRate  decimal.Decimal    `json:"collateral_exchange_rate"`
	LiquidityAvailable      decimal.Decimal    `json:"liquidity_available"`
	TotalDeposits           decimal.Decimal    `json:"total_deposits"`
	TotalBorrows            decimal.Decimal    `json:"total_borrows"`
	DepositLimitCrossedSlot uint64             `json:"deposit_limit_crossed_slot"`
	BorrowLimitCrossedSlot  uint64             `json:"borrow_limit_crossed_slot"`
	Config                  core.ReserveConfig `json:"config"`
}

type marketPayload struct {
	Address               string                `json:"address"`
	Authority             string                `json:"authority"`
	ProgramID             string                `json:"program_id"`
	AutodeleverageEnabled bool                  `json:"autodeleverage_enabled"`
	ElevationGroups       []core.ElevationGroup `json:"elevation_groups"`
	Reserves              []reservePayload      `json:"reserves"`
}

type positionPayload struct {
	ReserveAddress string          `json:"reserve_address"`
	MintAddress    string          `json:"mint_address"`
	Amount         decimal.Decimal `json:"amount"`
}

type obligationPayload struct {
	Address        string            `json:"address"`
	Owner          string            `json:"owner"`
	ElevationGroup uint8             `json:"elevation_group"`
	Deposits       []positionPayload `json:"deposits"`
	Borrows        []positionPayload `json:"borrows"`
}

func parseKey(s string) (common.PublicKey, error) {
	if s == "" {
		return common.PublicKey{}, nil
	}
	key := common.PublicKeyFromString(s)
	if key == (common.PublicKey{}) {
		return common.PublicKey{}, fmt.Errorf("bad public key %q", s)
	}
	return key, nil
}

func (p *marketPayload) toMarket() (*core.Market, error) {
	address, err := parseKey(p.Address)
	if err != nil {
		return nil, err
	}
	authority, err := parseKey(p.Authority)
	if err != nil {
		return nil, err
	}
	programID, err := parseKey(p.ProgramID)
	if err != nil {
		return nil, err
	}

	market := &core.Market{
		Address:               address,
		Authority:             authority,
		ProgramID:             programID,
		AutodeleverageEnabled: p.AutodeleverageEnabled,
		ElevationGroups:       p.ElevationGroups,
		Reserves:              make(map[common.PublicKey]*core.Reserve, len(p.Reserves)),
	}
	for idx := range p.Reserves {
		reserve, err := p.Reserves[idx].toReserve()
		if err != nil {
			return nil, err
		}
		market.Reserves[reserve.Address] = reserve
	}
	return market, nil
}

func (p *reservePayload) toReserve() (*core.Reserve, error) {
	reserve := &core.Reserve{
		LiquidityDecimals:       p.LiquidityDecimals,
		Status:                  core.ReserveStatus(p.Status),
		CollateralExchangeRate:  p.CollateralExchangeRate,
		LiquidityAvailable:      p.LiquidityAvailable,
		TotalDeposits:           p.TotalDeposits,
		TotalBorrows:            p.TotalBorrows,
		DepositLimitCrossedSlot: p.DepositLimitCrossedSlot,
		BorrowLimitCrossedSlot:  p.BorrowLimitCrossedSlot,
		Config:                  p.Config,
	}

	var err error
	if reserve.Address, err = parseKey(p.Address); err != nil {
		return nil, err
	}
	if reserve.LiquidityMint, err = parseKey(p.LiquidityMint); err != nil {
		return nil, err
	}
	if reserve.CollateralMint, err = parseKey(p.CollateralMint); err != nil {
		return nil, err
	}
	if reserve.CollateralSupplyVault, err = parseKey(p.CollateralSupplyVault); err != nil {
		return nil, err
	}
	if reserve.LiquiditySupplyVault, err = parseKey(p.LiquiditySupplyVault); err != nil {
		return nil, err
	}
	if reserve.LiquidityFeeVault, err = parseKey(p.LiquidityFeeVault); err != nil {
		return nil, err
	}
	for _, feed := range p.PriceFeeds {
		key, err := parseKey(feed)
		if err != nil {
			return nil, err
		}
		reserve.PriceFeeds = append(reserve.PriceFeeds, key)
	}
	return reserve, nil
}

func (p *obligationPayload) toObligation() (*core.Obligation, error) {
	address, err := parseKey(p.Address)
	if err != nil {
		return nil, err
	}
	owner, err := parseKey(p.Owner)
	if err != nil {
		return nil, err
	}

	obligation := &core.Obligation{
		Address:        address,
		Owner:          owner,
		ElevationGroup: p.ElevationGroup,
		Deposits:       make(map[common.PublicKey]*core.Position, len(p.Deposits)),
		Borrows:        make(map[common.PublicKey]*core.Position, len(p.Borrows)),
	}
	for idx := range p.Deposits {
		position, err := p.Deposits[idx].toPosition()
		if err != nil {
			return nil, err
		}
		obligation.Deposits[position.ReserveAddress] = position
	}
	for idx := range p.Borrows {
		position, err := p.Borrows[idx].toPosition()
		if err != nil {
			return nil, err
		}
		obligation.Borrows[position.ReserveAddress] = position
	}
	return obligation, nil
}

func (p *positionPayload) toPosition() (*core.Position, error) {
	reserve, err := parseKey(p.ReserveAddress)
	if err != nil {
		return nil, err
	}
	mint, err := parseKey(p.MintAddress)
	if err != nil {
		return nil, err
	}
	return &core.Position{
		ReserveAddress: reserve,
		MintAddress:    mint,
		Amount:         p.Amount,
	}, nil
}
