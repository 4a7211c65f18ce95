// Carga del certificado de firma desde .p12 (PKCS#12).

package signer

import (
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Certificate llave privada RSA y certificado hoja del firmante.
type Certificate struct {
	Key   *rsa.PrivateKey
	Leaf  *x509.Certificate
	Chain []*x509.Certificate
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer p12: %w", err)
	}
	return DecodeP12(data, password)
}

// DecodeP12 decodifica un contenedor PKCS#12 ya leído.
func DecodeP12(data []byte, password string) (*Certificate, error) {
	priv, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sri: el certificado debe incluir llave privada RSA (se obtuvo %T)", priv)
	}
	return &Certificate{Key: key, Leaf: leaf, Chain: chain}, nil
}

// certDigestAndIssuerSerial digest SHA-1 del certificado (Base64), emisor y serial decimal para XAdES.
func certDigestAndIssuerSerial(cert *x509.Certificate) (digestB64, issuerName, serial string) {
	h := sha1.Sum(cert.Raw)
	return base64.StdEncoding.EncodeToString(h[:]), cert.Issuer.String(), cert.SerialNumber.String()
}
