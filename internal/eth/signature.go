package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AuthPreamble is prefixed server-side to every message presented for wallet
// signing. The verifier must see the exact preamble-wrapped bytes the user
// signed, so a signature from an unrelated signing context cannot be replayed.
const AuthPreamble = "Sign this message to authenticate: "

// VerifyPersonalSignature recovers the personal_sign signer of message and
// compares it, case-insensitively, to the claimed address. It never returns
// an error: malformed signatures, wrong encodings, and recovery failures all
// report false.
func VerifyPersonalSignature(message, signature, claimedAddress string) bool {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit V as 27/28; go-ethereum recovery expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return strings.EqualFold(recovered.Hex(), strings.TrimSpace(claimedAddress))
}
