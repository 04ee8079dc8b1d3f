package ledger

import "crypto/sha256"

// AnchorDiscriminator 8-byte instruction discriminator for anchor programs
func AnchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}
