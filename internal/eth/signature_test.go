package eth

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func signMessage(t *testing.T, message string) (signature, address string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)

	return hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestVerifyPersonalSignatureRoundTrip(t *testing.T) {
	message := AuthPreamble + "hello"
	signature, address := signMessage(t, message)

	require.True(t, VerifyPersonalSignature(message, signature, address))
}

func TestVerifyPersonalSignatureCaseInsensitiveAddress(t *testing.T) {
	message := AuthPreamble + "hello"
	signature, address := signMessage(t, message)

	require.True(t, VerifyPersonalSignature(message, signature, CanonicalAddress(address)))
}

func TestVerifyPersonalSignatureLegacyRecoveryID(t *testing.T) {
	// Wallets commonly shift V to 27/28; the verifier must accept both forms
	message := AuthPreamble + "hello"
	signature, address := signMessage(t, message)

	raw, err := hexutil.Decode(signature)
	require.NoError(t, err)
	raw[crypto.RecoveryIDOffset] += 27

	require.True(t, VerifyPersonalSignature(message, hexutil.Encode(raw), address))
}

func TestVerifyPersonalSignatureWrongAddress(t *testing.T) {
	message := AuthPreamble + "hello"
	signature, _ := signMessage(t, message)

	require.False(t, VerifyPersonalSignature(message, signature, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
}

func TestVerifyPersonalSignatureTamperedMessage(t *testing.T) {
	signature, address := signMessage(t, AuthPreamble+"hello")

	require.False(t, VerifyPersonalSignature(AuthPreamble+"hello!", signature, address))
}

func TestVerifyPersonalSignatureMalformed(t *testing.T) {
	require.False(t, VerifyPersonalSignature("msg", "not-hex", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	require.False(t, VerifyPersonalSignature("msg", "0x0102", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	require.False(t, VerifyPersonalSignature("msg", "", ""))
}
