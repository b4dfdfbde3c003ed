// Package sig implements the fixed signature scheme of the protocol: ECDSA
// over NIST P-256, signing the SHA-256 digest of a canonical payload.
// Public keys travel as hex-encoded uncompressed points, signatures as
// hex-encoded ASN.1 DER.
package sig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
)

// Verify reports whether sigHex is a valid signature of message under the
// public key pubHex. Malformed signatures or keys report false rather than
// erroring: a bad frame from the network is not an exceptional condition.
func Verify(message []byte, sigHex, pubHex string) bool {
	der, err := hex.DecodeString(sigHex)
	if err != nil || len(der) == 0 {
		return false
	}
	pub, err := DecodePublicKey(pubHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return ecdsa.VerifyASN1(pub, digest[:], der)
}

// Sign produces a hex-encoded DER signature of message.
func Sign(message []byte, priv *ecdsa.PrivateKey) (string, error) {
	digest := sha256.Sum256(message)
	der, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(der), nil
}

func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// KeyFromPassphrase derives a deterministic key by using the SHA-256 digest
// of the passphrase as the private scalar, reduced into the curve order.
// The same passphrase always yields the same identity.
func KeyFromPassphrase(passphrase string) (*ecdsa.PrivateKey, error) {
	digest := sha256.Sum256([]byte(passphrase))
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(digest[:])
	d.Mod(d, curve.Params().N)
	if d.Sign() == 0 {
		return nil, errors.New("sig: passphrase digest reduces to zero scalar")
	}
	priv := &ecdsa.PrivateKey{D: d}
	priv.Curve = curve
	priv.X, priv.Y = curve.ScalarBaseMult(d.Bytes())
	return priv, nil
}

// EncodePublicKey renders pub as the hex of the uncompressed point (04||X||Y).
func EncodePublicKey(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
}

// DecodePublicKey parses a hex uncompressed P-256 point. It rejects hex that
// does not decode to a valid point on the curve.
func DecodePublicKey(pubHex string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, err
	}
	curve := elliptic.P256()
	x, y := elliptic.Unmarshal(curve, raw)
	if x == nil {
		return nil, errors.New("sig: not a valid P-256 point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
