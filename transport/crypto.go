package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// StdlibCrypto is the default Crypto adapter: it generates the self-signed
// certificate this client presents for DTLS-SRTP using only crypto/x509
// and friends. Unlike the transport/ICE/RNG adapters, there is no
// ecosystem library in this client's lineage for "generate one
// short-lived self-signed cert" — the standard library's x509 package is
// the idiomatic tool for exactly this, so no third-party replacement was
// sought.
type StdlibCrypto struct{}

// GenerateSelfSignedCert implements jingle.Crypto. It mirrors
// original_source's cert::cert_new + crypto::sha::calc_sha256 +
// pem::encode sequence: a fresh key pair, a self-signed certificate valid
// for one day (only ever used for the lifetime of one Jingle session), and
// the uppercase colon-separated hex SHA-256 fingerprint of its DER form.
func (StdlibCrypto) GenerateSelfSignedCert() (certPEM, privKeyPEM, fingerprintSHA256 string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", "", fmt.Errorf("transport: generating key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", "", "", fmt.Errorf("transport: generating serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "libjitsimeet"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return "", "", "", fmt.Errorf("transport: creating certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", "", fmt.Errorf("transport: marshaling key: %w", err)
	}

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	privKeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	fingerprintSHA256 = digestString(sha256.Sum256(der))
	return certPEM, privKeyPEM, fingerprintSHA256, nil
}

func digestString(digest [32]byte) string {
	parts := make([]string, len(digest))
	for i, b := range digest {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
