package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// KeyProvider is a Provider backed by a local secp256k1 identity key. It can
// connect and sign messages; swap execution needs a full Spark wallet.
type KeyProvider struct {
	priv *secp256k1.PrivateKey
	pub  string
}

func NewKeyProvider(privateKey string) (*KeyProvider, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("wallet: private key is required")
	}
	raw, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &KeyProvider{
		priv: priv,
		pub:  hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}, nil
}

func NewKeyProviderFromEnv() (*KeyProvider, error) {
	return NewKeyProvider(os.Getenv("WALLET_PRIVATE_KEY"))
}

// PublicKey is the compressed public key, hex encoded.
func (k *KeyProvider) PublicKey() string { return k.pub }

func (k *KeyProvider) Request(ctx context.Context, method string, params any) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch method {
	case MethodConnect:
		return Success(Account{PublicKey: k.pub})
	case MethodSignMessage:
		var p struct {
			Message string `json:"message"`
		}
		if err := remarshal(params, &p); err != nil {
			return Failure(-32602, "invalid params: "+err.Error()), nil
		}
		return Success(map[string]string{"signature": k.Sign(p.Message)})
	default:
		return Failure(-32601, fmt.Sprintf("%s: %s", ErrUnsupportedMethod.Error(), method)), nil
	}
}

// Sign returns the hex DER ECDSA signature of sha256(message).
func (k *KeyProvider) Sign(message string) string {
	hash := sha256.Sum256([]byte(message))
	return hex.EncodeToString(ecdsa.Sign(k.priv, hash[:]).Serialize())
}

// VerifySignature checks a signature produced by Sign.
func VerifySignature(publicKeyHex, message, signatureHex string) bool {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	hash := sha256.Sum256([]byte(message))
	return sig.Verify(hash[:], pub)
}

// parsePrivateKey accepts a 32-byte key as hex or as a JSON byte array.
func parsePrivateKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "[") {
		var arr []int
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		if len(arr) != 32 {
			return nil, fmt.Errorf("wallet: JSON private key must be 32 bytes, got %d", len(arr))
		}
		b := make([]byte, 32)
		for i, v := range arr {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: JSON private key contains out-of-range byte at %d", i)
			}
			b[i] = byte(v)
		}
		return b, nil
	}

	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid hex private key: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("wallet: private key must be 32 bytes, got %d", len(b))
	}
	return b, nil
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
