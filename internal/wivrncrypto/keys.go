// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package wivrncrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/cloudflare/circl/dh/x448"
	"golang.org/x/crypto/curve25519"
)

// KeyKind identifies which DH/encapsulation primitive a keypair uses,
// grounded on the original's crypto::key class covering X25519, X448, and
// RSA in one type (original_source/common/crypto.h).
type KeyKind uint8

const (
	KeyKindX25519 KeyKind = iota
	KeyKindX448
	KeyKindRSA
)

// MinRSABits is the minimum RSA modulus size spec.md section 4.C requires.
const MinRSABits = 3072

// X25519KeyPair holds a Curve25519 DH keypair.
type X25519KeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateX25519 creates a new ephemeral or long-term X25519 keypair.
func GenerateX25519() (*X25519KeyPair, error) {
	var kp X25519KeyPair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return nil, fmt.Errorf("%w: generate x25519: %w", ErrCrypto, err)
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive x25519 public key: %w", ErrCrypto, err)
	}
	copy(kp.Public[:], pub)
	return &kp, nil
}

// DiffieHellman performs X25519 scalar multiplication against a peer's
// public key, producing the shared secret fed to the KDF.
func (kp *X25519KeyPair) DiffieHellman(peerPublic [32]byte) ([]byte, error) {
	shared, err := curve25519.X25519(kp.Private[:], peerPublic[:])
	if err != nil {
		return nil, fmt.Errorf("%w: x25519 dh: %w", ErrCrypto, err)
	}
	return shared, nil
}

// ToPEM exports the private key in PEM form for persistence.
func (kp *X25519KeyPair) ToPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "WIVRN X25519 PRIVATE KEY", Bytes: kp.Private[:]})
}

// X25519FromPEM parses a key produced by ToPEM.
func X25519FromPEM(data []byte) (*X25519KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil || len(block.Bytes) != 32 {
		return nil, fmt.Errorf("%w: malformed x25519 PEM", ErrCrypto)
	}
	var kp X25519KeyPair
	copy(kp.Private[:], block.Bytes)
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: derive x25519 public key: %w", ErrCrypto, err)
	}
	copy(kp.Public[:], pub)
	return &kp, nil
}

// X448KeyPair holds an X448 DH keypair, used where the headset or server
// negotiates the stronger curve (spec.md section 4.C). golang.org/x/crypto
// has no X448 implementation; github.com/cloudflare/circl supplies one and
// is already present in the example pack's dependency graph.
type X448KeyPair struct {
	Private x448.Key
	Public  x448.Key
}

// GenerateX448 creates a new X448 DH keypair.
func GenerateX448() (*X448KeyPair, error) {
	var kp X448KeyPair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return nil, fmt.Errorf("%w: generate x448: %w", ErrCrypto, err)
	}
	x448.KeyGen(&kp.Public, &kp.Private)
	return &kp, nil
}

// DiffieHellman performs X448 scalar multiplication against a peer's public key.
func (kp *X448KeyPair) DiffieHellman(peerPublic x448.Key) ([]byte, error) {
	var shared x448.Key
	if ok := x448.Shared(&shared, &kp.Private, &peerPublic); !ok {
		return nil, fmt.Errorf("%w: x448 dh produced low-order point", ErrCrypto)
	}
	return shared[:], nil
}

// ToPEM exports the private key in PEM form for persistence.
func (kp *X448KeyPair) ToPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "WIVRN X448 PRIVATE KEY", Bytes: kp.Private[:]})
}

// X448FromPEM parses a key produced by ToPEM.
func X448FromPEM(data []byte) (*X448KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil || len(block.Bytes) != x448.Size {
		return nil, fmt.Errorf("%w: malformed x448 PEM", ErrCrypto)
	}
	var kp X448KeyPair
	copy(kp.Private[:], block.Bytes)
	x448.KeyGen(&kp.Public, &kp.Private)
	return &kp, nil
}

// RSAKeyPair wraps an RSA key used for key encapsulation rather than DH
// (spec.md section 4.C: "RSA-3072+ (for key encapsulation)").
type RSAKeyPair struct {
	Private *rsa.PrivateKey
}

// GenerateRSA creates a new RSA keypair with at least MinRSABits bits.
func GenerateRSA(bits int) (*RSAKeyPair, error) {
	if bits < MinRSABits {
		bits = MinRSABits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate rsa key: %w", ErrCrypto, err)
	}
	return &RSAKeyPair{Private: key}, nil
}

// Encapsulate produces a fresh random secret of the given length and
// returns it alongside its RSA-OAEP encapsulation under the peer's public
// key, mirroring the original's key::encapsulate().
func Encapsulate(peer *rsa.PublicKey, secretLen int) (secret, encapsulated []byte, err error) {
	secret = make([]byte, secretLen)
	if _, err = rand.Read(secret); err != nil {
		return nil, nil, fmt.Errorf("%w: generate encapsulated secret: %w", ErrCrypto, err)
	}
	encapsulated, err = rsa.EncryptOAEP(sha256.New(), rand.Reader, peer, secret, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: rsa-oaep encapsulate: %w", ErrCrypto, err)
	}
	return secret, encapsulated, nil
}

// Decapsulate recovers the secret produced by Encapsulate, mirroring
// key::decapsulate().
func (kp *RSAKeyPair) Decapsulate(encapsulated []byte) ([]byte, error) {
	secret, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, kp.Private, encapsulated, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa-oaep decapsulate: %w", ErrCrypto, err)
	}
	return secret, nil
}

// ToPEM exports the RSA private key in PKCS8 PEM form.
func (kp *RSAKeyPair) ToPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal rsa private key: %w", ErrCrypto, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// RSAFromPEM parses a key produced by ToPEM.
func RSAFromPEM(data []byte) (*RSAKeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: malformed rsa PEM", ErrCrypto)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse rsa private key: %w", ErrCrypto, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: PEM does not contain an RSA key", ErrCrypto)
	}
	return &RSAKeyPair{Private: rsaKey}, nil
}
