package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"github.com/zombor/billed/internal/bill"
)

// scanPrompt is shared by every model back-end
var scanPrompt = `Tu analyses le justificatif d'une note de frais (ticket, facture, billet). Lis tout le texte de l'image et extrais :

1. "name" : le nom du commerçant suivi d'une courte description, par exemple "SNCF - Paris Marseille".
2. "date" : la date de la transaction au format AAAA-MM-JJ.
3. "amount" : le montant total TTC, sous forme de nombre (42.75 pour 42,75 €).
4. "vat" : le montant de TVA s'il est indiqué, sinon null.
5. "type" : la catégorie parmi ` + strings.Join(bill.ExpenseTypes, ", ") + `, ou null.

Réponds UNIQUEMENT avec un objet JSON de la forme :
{"name": "...", "date": "AAAA-MM-JJ", "amount": 0.00, "vat": null, "type": null}

Aucun texte avant ou après le JSON, pas de bloc markdown.`

// pdfToImage renders the first page of a PDF
func pdfToImage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEIC checks the ftyp box brand of an ISO media file
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// toPNG returns receipt data as PNG, which every back-end accepts
func toPNG(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "image/png" {
		return data, nil
	}

	var (
		img image.Image
		err error
	)
	switch {
	case mimeType == "application/pdf":
		img, err = pdfToImage(data)
	case isHEIC(data, mimeType):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding image: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
