package ledger

import (
	"encoding/binary"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

const (
	// SlotDurationMs network slot duration in milliseconds
	SlotDurationMs = 450
	// PacketDataSize hard transaction size ceiling in bytes
	PacketDataSize = 1232
)

var (
	msPerSecond = decimal.NewFromInt(1000)
	msPerDay    = decimal.NewFromInt(24 * 60 * 60 * 1000)
	slotMs      = decimal.NewFromInt(SlotDurationMs)
)

// ToSeconds elapsed seconds for a slot count
func ToSeconds(slots uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(slots)).Mul(slotMs).Div(msPerSecond)
}

// ToDays elapsed days for a slot count
func ToDays(slots uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(slots)).Mul(slotMs).Div(msPerDay)
}

// DeriveLookupTableAddress table address for an authority and recent slot
func DeriveLookupTableAddress(authority common.PublicKey, recentSlot uint64) (common.PublicKey, uint8, error) {
	var slotBytes [8]byte
	binary.LittleEndian.PutUint64(slotBytes[:], recentSlot)
	return common.FindProgramAddress(
		[][]byte{authority.Bytes(), slotBytes[:]},
		common.AddressLookupTableProgramID,
	)
}
