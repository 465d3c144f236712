package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	"donorhub/pkg/domain"
)

const (
	docWidth   = 800
	docHeight  = 520
	thumbSize  = 180
	docMargin  = 40
	lineHeight = 34

	// Evidence larger than this on either side is not thumbnailed; decoding
	// it would allocate the full bitmap.
	maxEvidenceDimension = 4096
)

// Document is the content printed on a receipt.
type Document struct {
	Number       string
	Issuer       string
	DonationID   domain.DonationID
	CauseTitle   string
	Contribution string
	ReceivedAt   time.Time
	// Evidence is the donor's uploaded image, drawn as a thumbnail when it
	// decodes as PNG or JPEG.
	Evidence []byte
}

// NewDocument fills the printable fields from the donation and its cause.
func NewDocument(number, issuer string, d *donation.Donation, cause *catalog.Cause, evidence []byte, now time.Time) Document {
	return Document{
		Number:       number,
		Issuer:       issuer,
		DonationID:   d.ID,
		CauseTitle:   cause.Title,
		Contribution: describeContribution(d),
		ReceivedAt:   now,
		Evidence:     evidence,
	}
}

func describeContribution(d *donation.Donation) string {
	if d.Type == domain.ContributionMoney {
		return "Monetary donation of " + d.Amount.StringFixed(2)
	}
	return fmt.Sprintf("%d %s of %s", d.Quantity, d.Unit, d.Type)
}

// Renderer draws receipt documents as PNG. A truetype face keeps glyph caches
// that are not safe for concurrent use, so Render serializes on mu.
type Renderer struct {
	mu        sync.Mutex
	titleFace font.Face
	bodyFace  font.Face
}

func NewRenderer() (*Renderer, error) {
	parsed, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse receipt font: %w", err)
	}
	return &Renderer{
		titleFace: truetype.NewFace(parsed, &truetype.Options{Size: 30, DPI: 72, Hinting: font.HintingNone}),
		bodyFace:  truetype.NewFace(parsed, &truetype.Options{Size: 18, DPI: 72, Hinting: font.HintingNone}),
	}, nil
}

// Render draws doc. It gives up with ctx's error if ctx is done before
// drawing starts or before the PNG is encoded.
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	thumb := thumbnail(doc.Evidence)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(docWidth, docHeight)
	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, docWidth, docHeight)
	dc.Fill()

	dc.SetColor(color.NRGBA{R: 0x1f, G: 0x4e, B: 0x79, A: 0xff})
	dc.DrawRectangle(0, 0, docWidth, 8)
	dc.Fill()

	dc.SetColor(color.Black)
	dc.SetFontFace(r.titleFace)
	dc.DrawString(doc.Issuer+" donation receipt", docMargin, 70)

	dc.SetFontFace(r.bodyFace)
	lines := []string{
		"Receipt no. " + doc.Number,
		"Donation " + doc.DonationID.String(),
		"Cause: " + doc.CauseTitle,
		doc.Contribution,
		"Received " + doc.ReceivedAt.UTC().Format("2 January 2006 15:04 MST"),
	}
	y := 130.0
	for _, line := range lines {
		dc.DrawStringWrapped(line, docMargin, y, 0, 0, docWidth-2*docMargin-thumbSize-docMargin, 1.3, gg.AlignLeft)
		y += lineHeight
	}

	if thumb != nil {
		dc.DrawImage(thumb, docWidth-docMargin-thumbSize, 110)
	}

	dc.SetColor(color.Gray{Y: 0x80})
	dc.DrawString("Thank you for your contribution.", docMargin, docHeight-docMargin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode receipt png: %w", err)
	}
	return buf.Bytes(), nil
}

// thumbnail scales raw into a thumbSize square, or returns nil when raw is
// not a decodable image (PDF evidence, for example) or is too large to
// decode.
func thumbnail(raw []byte) image.Image {
	if len(raw) == 0 {
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxEvidenceDimension || cfg.Height > maxEvidenceDimension {
		return nil
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, thumbSize, thumbSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
