// Firma XAdES-BES enveloped para comprobantes electrónicos del SRI.
// Agrega <ds:Signature> como último hijo del elemento raíz.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/ucarion/c14n"
)

// DigitalSignatureService firma comprobantes con XAdES-BES.
type DigitalSignatureService struct {
	now func() time.Time
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{now: time.Now}
}

// Sign firma el XML del comprobante. Las referencias son el comprobante (#comprobante, enveloped)
// y las SignedProperties; SignedInfo se firma con RSA-SHA1 sobre su forma canónica.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert *Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sri: XML vacío")
	}
	if cert == nil || cert.Key == nil || cert.Leaf == nil {
		return nil, fmt.Errorf("sri: certificado de firma incompleto")
	}

	ids := newSignatureIDs()

	canonicalDoc, err := Canonicalize(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar comprobante: %w", err)
	}
	docDigest := digestB64(canonicalDoc)

	certDigest, issuerName, serial := certDigestAndIssuerSerial(cert.Leaf)
	signingTime := s.now().Format(time.RFC3339)
	signedProps := buildSignedProperties(ids, signingTime, certDigest, issuerName, serial)
	canonicalProps, err := Canonicalize([]byte(signedProps))
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar SignedProperties: %w", err)
	}

	signedInfo := buildSignedInfo(ids, docDigest, digestB64(canonicalProps))
	canonicalSignedInfo, err := Canonicalize([]byte(signedInfo))
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar SignedInfo: %w", err)
	}
	hash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, cert.Key, crypto.SHA1, hash[:])
	if err != nil {
		return nil, fmt.Errorf("sri: firmar SignedInfo: %w", err)
	}

	signature := buildSignature(ids, signedInfo, base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(cert.Leaf.Raw), signedProps)
	return injectSignature(xmlBytes, signature)
}

// Canonicalize aplica C14N inclusiva. La declaración XML y el espacio fuera del elemento raíz
// no forman parte de la forma canónica.
func Canonicalize(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("<?xml")) {
		if end := bytes.Index(data, []byte("?>")); end >= 0 {
			data = bytes.TrimSpace(data[end+2:])
		}
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func digestB64(data []byte) string {
	h := sha1.Sum(data)
	return base64.StdEncoding.EncodeToString(h[:])
}

type signatureIDs struct {
	signature   string
	signedInfo  string
	signedProps string
	reference   string
	object      string
}

func newSignatureIDs() signatureIDs {
	n := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return signatureIDs{
		signature:   "Signature" + n,
		signedInfo:  "Signature-SignedInfo" + n,
		signedProps: "Signature" + n + "-SignedProperties",
		reference:   "Reference-ID-" + n,
		object:      "Signature" + n + "-Object",
	}
}

// nsDecl los fragmentos se canonicalizan por separado con los mismos namespaces que heredan
// dentro de ds:Signature, así su digest coincide con el que calcula el verificador.
const nsDecl = ` xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceXAdES + `"`

func buildSignedInfo(ids signatureIDs, docDigest, propsDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo` + nsDecl + ` Id="` + ids.signedInfo + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA1 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference Id="SignedPropertiesID-` + ids.signedProps + `" Type="` + TypeSignedProps + `" URI="#` + ids.signedProps + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`<ds:Reference Id="` + ids.reference + `" URI="#` + DocumentElementID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignedProperties(ids signatureIDs, signingTime, certDigest, issuerName, serial string) string {
	var sb strings.Builder
	sb.WriteString(`<etsi:SignedProperties` + nsDecl + ` Id="` + ids.signedProps + `">`)
	sb.WriteString(`<etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SigningTime>` + signingTime + `</etsi:SigningTime>`)
	sb.WriteString(`<etsi:SigningCertificate><etsi:Cert><etsi:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + certDigest + `</ds:DigestValue></etsi:CertDigest>`)
	sb.WriteString(`<etsi:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></etsi:IssuerSerial>`)
	sb.WriteString(`</etsi:Cert></etsi:SigningCertificate>`)
	sb.WriteString(`</etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SignedDataObjectProperties>`)
	sb.WriteString(`<etsi:DataObjectFormat ObjectReference="#` + ids.reference + `">`)
	sb.WriteString(`<etsi:Description>contenido comprobante</etsi:Description>`)
	sb.WriteString(`<etsi:MimeType>text/xml</etsi:MimeType>`)
	sb.WriteString(`</etsi:DataObjectFormat>`)
	sb.WriteString(`</etsi:SignedDataObjectProperties>`)
	sb.WriteString(`</etsi:SignedProperties>`)
	return sb.String()
}

func buildSignature(ids signatureIDs, signedInfo, signatureValue, certB64, signedProps string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature` + nsDecl + ` Id="` + ids.signature + `">`)
	sb.WriteString(signedInfo)
	sb.WriteString(`<ds:SignatureValue>` + signatureValue + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`<ds:Object Id="` + ids.object + `">`)
	sb.WriteString(`<etsi:QualifyingProperties Target="#` + ids.signature + `">`)
	sb.WriteString(signedProps)
	sb.WriteString(`</etsi:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// injectSignature agrega ds:Signature como último hijo del elemento raíz.
func injectSignature(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sri: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sri: documento sin raíz")
	}
	if id := root.SelectAttrValue("id", ""); id != DocumentElementID {
		return nil, fmt.Errorf("sri: el elemento raíz debe tener id=%q (tiene %q)", DocumentElementID, id)
	}
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sri: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		root.AddChild(sigRoot)
	}
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sri: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}
