package swap

import (
	"context"
	"encoding/base64"
	"fmt"

	"liquidator/core"
	"liquidator/pkg/resthttp"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
)

type swapService struct {
	endpoint string
	user     common.PublicKey
	chain    core.ITableChain
}

// New new swap service. The aggregator is a black box: instruction groups
// come back opaque and are submitted in the order received.
func New(endpoint string, user common.PublicKey, chain core.ITableChain) core.ISwapService {
	return &swapService{
		endpoint: endpoint,
		user:     user,
		chain:    chain,
	}
}

type accountMetaPayload struct {
	PubKey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

type instructionPayload struct {
	ProgramID string               `json:"program_id"`
	Accounts  []accountMetaPayload `json:"accounts"`
	Data      string               `json:"data"`
}

type swapRequest struct {
	InputMint               string `json:"input_mint"`
	OutputMint              string `json:"output_mint"`
	Amount                  string `json:"amount"`
	SlippageBps             int64  `json:"slippage_bps"`
	OnlyDirectRoutes        bool   `json:"only_direct_routes"`
	WrapAndUnwrapSol        bool   `json:"wrap_and_unwrap_sol"`
	UserPublicKey           string `json:"user_public_key"`
	DestinationTokenAccount string `json:"destination_token_account,omitempty"`
}

type swapResponse struct {
	ComputeBudgetInstructions []instructionPayload `json:"compute_budget_instructions"`
	SetupInstructions         []instructionPayload `json:"setup_instructions"`
	SwapInstructions          []instructionPayload `json:"swap_instructions"`
	CleanupInstructions       []instructionPayload `json:"cleanup_instructions"`
	LookupTableAddresses      []string             `json:"address_lookup_table_addresses"`
	OutAmount                 decimal.Decimal      `json:"out_amount"`
	MinOutAmount              decimal.Decimal      `json:"min_out_amount"`
}

func (s *swapService) Swap(ctx context.Context, inputMint, outputMint common.PublicKey, inputAmount decimal.Decimal, cfg core.SwapConfig) (*core.SwapBundle, error) {
	request := swapRequest{
		InputMint:        inputMint.ToBase58(),
		OutputMint:       outputMint.ToBase58(),
		Amount:           inputAmount.String(),
		SlippageBps:      cfg.SlippageBps,
		OnlyDirectRoutes: cfg.OnlyDirectRoutes,
		WrapAndUnwrapSol: cfg.WrapAndUnwrapSol,
		UserPublicKey:    s.user.ToBase58(),
	}
	if cfg.DestinationTokenAccount != nil {
		request.DestinationTokenAccount = cfg.DestinationTokenAccount.ToBase58()
	}

	url := fmt.Sprintf("%s/v1/swap-instructions", s.endpoint)
	var response swapResponse
	if _, err := resthttp.Execute(resthttp.Request(ctx), "POST", url, request, &response); err != nil {
		return nil, fmt.Errorf("swap %s -> %s: %w", inputMint.ToBase58(), outputMint.ToBase58(), err)
	}
	return s.toBundle(ctx, &response)
}

func (s *swapService) toBundle(ctx context.Context, response *swapResponse) (*core.SwapBundle, error) {
	bundle := &core.SwapBundle{
		OutAmount:    response.OutAmount,
		MinOutAmount: response.MinOutAmount,
	}

	var err error
	if bundle.ComputeBudgetInstructions, err = toInstructions(response.ComputeBudgetInstructions); err != nil {
		return nil, err
	}
	if bundle.SetupInstructions, err = toInstructions(response.SetupInstructions); err != nil {
		return nil, err
	}
	if bundle.SwapInstructions, err = toInstructions(response.SwapInstructions); err != nil {
		return nil, err
	}
	if bundle.CleanupInstructions, err = toInstructions(response.CleanupInstructions); err != nil {
		return nil, err
	}

	for _, address := range response.LookupTableAddresses {
		table, err := s.chain.FetchTable(ctx, common.PublicKeyFromString(address))
		if err != nil {
			return nil, fmt.Errorf("fetch swap table %s: %w", address, err)
		}
		bundle.LookupTables = append(bundle.LookupTables, table)
	}
	return bundle, nil
}

func toInstructions(payloads []instructionPayload) ([]types.Instruction, error) {
	instructions := make([]types.Instruction, 0, len(payloads))
	for _, payload := range payloads {
		instruction, err := payload.toInstruction()
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instruction)
	}
	return instructions, nil
}

func (p *instructionPayload) toInstruction() (types.Instruction, error) {
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("decode instruction data: %w", err)
	}
	accounts := make([]types.AccountMeta, 0, len(p.Accounts))
	for _, account := range p.Accounts {
		accounts = append(accounts, types.AccountMeta{
			PubKey:     common.PublicKeyFromString(account.PubKey),
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		})
	}
	return types.Instruction{
		ProgramID: common.PublicKeyFromString(p.ProgramID),
		Accounts:  accounts,
		Data:      data,
	}, nil
}
