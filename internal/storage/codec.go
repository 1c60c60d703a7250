// internal/storage/codec.go
package storage

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/rovshanmuradov/launchcurve/internal/sale"
)

// SaleDiscriminator prefixes every encoded sale account: the first eight
// bytes of sha256("account:Sale").
var SaleDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("account:Sale"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

type saleAccount struct {
	Discriminator [8]byte
	Sale          sale.Sale
}

// EncodeSale serializes a sale as a borsh account.
func EncodeSale(s sale.Sale) ([]byte, error) {
	buf := new(bytes.Buffer)
	acc := saleAccount{Discriminator: SaleDiscriminator, Sale: s}
	if err := bin.NewBorshEncoder(buf).Encode(&acc); err != nil {
		return nil, fmt.Errorf("encode sale %s: %w", s.Mint, err)
	}
	return buf.Bytes(), nil
}

// DecodeSale parses bytes produced by EncodeSale.
func DecodeSale(data []byte) (sale.Sale, error) {
	if len(data) < len(SaleDiscriminator) || !bytes.Equal(data[:8], SaleDiscriminator[:]) {
		return sale.Sale{}, fmt.Errorf("%w: bad discriminator", ErrCorruptAccount)
	}

	var acc saleAccount
	if err := bin.NewBorshDecoder(data).Decode(&acc); err != nil {
		return sale.Sale{}, fmt.Errorf("%w: %v", ErrCorruptAccount, err)
	}
	if err := acc.Sale.Validate(); err != nil {
		return sale.Sale{}, fmt.Errorf("%w: %v", ErrCorruptAccount, err)
	}
	return acc.Sale, nil
}
