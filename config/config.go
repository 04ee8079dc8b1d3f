package config

import (
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
)

type (
	// Chain rpc node and searcher keypair
	Chain struct {
		RPCEndpoint string `json:"rpc_endpoint" valid:"required"`
		// solana cli style keypair file (json byte array)
		KeystoreFile string `json:"keystore_file" valid:"required"`
	}

	// Relay express relay identities
	Relay struct {
		Program     string `json:"program" valid:"required"`
		Relayer     string `json:"relayer" valid:"required"`
		FeeReceiver string `json:"fee_receiver" valid:"required"`
	}

	// Lending lending protocol endpoints
	Lending struct {
		Program       string   `json:"program" valid:"required"`
		StateEndpoint string   `json:"state_endpoint" valid:"required"`
		Markets       []string `json:"markets" valid:"required"`
	}

	// Oracle price feed endpoint
	Oracle struct {
		Endpoint string `json:"endpoint" valid:"required"`
	}

	// Swap dex aggregator endpoint
	Swap struct {
		Endpoint    string `json:"endpoint" valid:"required"`
		SlippageBps int64  `json:"slippage_bps"`
	}

	// Assembler compute budget knobs
	Assembler struct {
		ComputeUnitLimit              uint32 `json:"compute_unit_limit"`
		ComputeUnitPriceMicroLamports uint64 `json:"compute_unit_price_micro_lamports"`
	}

	// Worker loop tuning
	Worker struct {
		// multiplier on the liquidation limit; 1 means fire exactly at the limit
		ThresholdBufferFactor decimal.Decimal `json:"threshold_buffer_factor"`
		Capacity              int             `json:"capacity"`
		BidLamports           decimal.Decimal `json:"bid_lamports"`
		Interval              time.Duration   `json:"interval"`
		ErrInterval           time.Duration   `json:"err_interval"`
		TableSyncInterval     time.Duration   `json:"table_sync_interval"`
	}

	// Config liquidator node config
	Config struct {
		Chain     Chain     `json:"chain"`
		Relay     Relay     `json:"relay"`
		Lending   Lending   `json:"lending"`
		Oracle    Oracle    `json:"oracle"`
		Swap      Swap      `json:"swap"`
		Assembler Assembler `json:"assembler"`
		Worker    Worker    `json:"worker"`
	}
)

func defaults(cfg *Config) {
	if cfg.Worker.ThresholdBufferFactor.IsZero() {
		cfg.Worker.ThresholdBufferFactor = decimal.New(1, 0)
	}
	if cfg.Worker.Capacity <= 0 {
		cfg.Worker.Capacity = 8
	}
	if cfg.Worker.Interval <= 0 {
		cfg.Worker.Interval = 10 * time.Second
	}
	if cfg.Worker.ErrInterval <= 0 {
		cfg.Worker.ErrInterval = 30 * time.Second
	}
	if cfg.Worker.TableSyncInterval <= 0 {
		cfg.Worker.TableSyncInterval = 5 * time.Minute
	}
	if cfg.Swap.SlippageBps <= 0 {
		cfg.Swap.SlippageBps = 50
	}
	if cfg.Assembler.ComputeUnitLimit == 0 {
		cfg.Assembler.ComputeUnitLimit = 1_000_000
	}
}

func validate(cfg *Config) error {
	_, err := govalidator.ValidateStruct(cfg)
	return err
}
