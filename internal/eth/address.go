package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CanonicalAddress normalizes an Ethereum account identifier to a stable,
// comparable form: checksum parsing through go-ethereum followed by
// lower-casing. Inputs that are not syntactically valid addresses degrade to
// trim+lower rather than failing, so stored legacy values stay comparable.
func CanonicalAddress(raw string) string {
	s := strings.TrimSpace(raw)
	if common.IsHexAddress(s) {
		return strings.ToLower(common.HexToAddress(s).Hex())
	}
	return strings.ToLower(s)
}
