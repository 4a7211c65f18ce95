package signer_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

const sampleInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<factura id="comprobante" version="1.1.0"><infoTributaria><ambiente>1</ambiente><ruc>1790011674001</ruc><claveAcceso>0000</claveAcceso></infoTributaria><infoFactura><importeTotal>11.50</importeTotal></infoFactura></factura>`

func newTestCertificate(t *testing.T) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(4242),
		Subject:      pkix.Name{CommonName: "EMISOR DE PRUEBA", Organization: []string{"SRI Test"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return key, cert
}

func writeP12(t *testing.T, password string) string {
	t.Helper()
	key, cert := newTestCertificate(t)
	data, err := pkcs12.Modern.Encode(key, cert, nil, password)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "firma.p12")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFromP12(t *testing.T) {
	path := writeP12(t, "clave-segura")

	cert, err := signer.LoadFromP12(path, "clave-segura")
	require.NoError(t, err)
	assert.NotNil(t, cert.Key)
	assert.Equal(t, "EMISOR DE PRUEBA", cert.Leaf.Subject.CommonName)

	_, err = signer.LoadFromP12(path, "otra-clave")
	assert.Error(t, err)

	_, err = signer.LoadFromP12(filepath.Join(t.TempDir(), "no-existe.p12"), "")
	assert.Error(t, err)
}

func TestSign_ProducesVerifiableEnvelopedSignature(t *testing.T) {
	key, leaf := newTestCertificate(t)
	svc := signer.NewDigitalSignatureService()

	signed, err := svc.Sign([]byte(sampleInvoice), &signer.Certificate{Key: key, Leaf: leaf})
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	sig := root.FindElement("./ds:Signature")
	require.NotNil(t, sig, "la firma debe ser el último hijo del comprobante")
	assert.Equal(t, sig, root.ChildElements()[len(root.ChildElements())-1])

	// SignatureValue verifica contra la forma canónica de SignedInfo.
	signedInfo := sig.FindElement("./ds:SignedInfo")
	require.NotNil(t, signedInfo)
	siDoc := etree.NewDocument()
	siDoc.SetRoot(signedInfo.Copy())
	siXML, err := siDoc.WriteToBytes()
	require.NoError(t, err)
	canonical, err := signer.Canonicalize(siXML)
	require.NoError(t, err)
	sigValue, err := base64.StdEncoding.DecodeString(sig.FindElement("./ds:SignatureValue").Text())
	require.NoError(t, err)
	hash := sha1.Sum(canonical)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, hash[:], sigValue))

	// El digest del comprobante excluye la propia firma (enveloped).
	root.RemoveChild(sig)
	unsigned, err := doc.WriteToBytes()
	require.NoError(t, err)
	canonicalDoc, err := signer.Canonicalize(unsigned)
	require.NoError(t, err)
	docHash := sha1.Sum(canonicalDoc)
	var docDigest string
	for _, ref := range signedInfo.FindElements("./ds:Reference") {
		if ref.SelectAttrValue("URI", "") == "#"+signer.DocumentElementID {
			docDigest = ref.FindElement("./ds:DigestValue").Text()
		}
	}
	assert.Equal(t, base64.StdEncoding.EncodeToString(docHash[:]), docDigest)

	assert.NotNil(t, sig.FindElement(".//etsi:SigningCertificate"))
	assert.Equal(t, "4242", sig.FindElement(".//ds:X509SerialNumber").Text())
}

func TestSign_RejectsInvalidInput(t *testing.T) {
	key, leaf := newTestCertificate(t)
	svc := signer.NewDigitalSignatureService()
	cert := &signer.Certificate{Key: key, Leaf: leaf}

	_, err := svc.Sign(nil, cert)
	assert.Error(t, err)

	_, err = svc.Sign([]byte(sampleInvoice), nil)
	assert.Error(t, err)

	_, err = svc.Sign([]byte(`<factura id="otro"><a>1</a></factura>`), cert)
	assert.ErrorContains(t, err, "comprobante")
}
