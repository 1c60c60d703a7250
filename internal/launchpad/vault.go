package launchpad

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// VaultSeed prefixes the seeds of the curve vault PDA.
const VaultSeed = "bonding_curve"

// VaultAddress derives the PDA holding a sale's base reserve and unsold
// supply: seeds ["bonding_curve", mint] under programID.
func VaultAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(VaultSeed), mint[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive vault for %s: %w", mint, err)
	}
	return addr, nil
}
