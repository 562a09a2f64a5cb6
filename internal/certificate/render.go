package certificate

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/fogleman/gg"
)

// Page geometry in points (A4 portrait), rendered at 2x.
const (
	pageWidth   = 595.0
	pageHeight  = 842.0
	renderScale = 2.0
)

// Certificate is the data printed on a quiz certificate.
type Certificate struct {
	Name     string
	Level    string
	Mode     string
	Score    int
	Total    int
	IssuedAt time.Time
}

// Percent is score/total rounded half to even, or 0 for an empty quiz.
func (c Certificate) Percent() int {
	if c.Total == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(c.Score) / float64(c.Total) * 100))
}

// FileName is the attachment name offered to the user.
func (c Certificate) FileName() string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '-'
		}
		return r
	}, c.Name)
	return fmt.Sprintf("dog-certificate-%s.png", name)
}

// Renderer draws certificates as PNG images.
type Renderer struct {
	fontPath string
}

// NewRenderer returns a renderer. An empty fontPath uses gg's built-in face.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

// Render draws c and returns the encoded PNG.
func (r *Renderer) Render(c Certificate) ([]byte, error) {
	dc := gg.NewContext(int(pageWidth*renderScale), int(pageHeight*renderScale))
	dc.Scale(renderScale, renderScale)

	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	if err := r.setFont(dc, 24); err != nil {
		return nil, err
	}
	dc.DrawStringAnchored("Dog Knowledge Certificate", pageWidth/2, 100, 0.5, 0.5)

	if err := r.setFont(dc, 14); err != nil {
		return nil, err
	}
	dc.DrawStringAnchored("Awarded to "+c.Name, pageWidth/2, 140, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("Level: %s   Mode: %s", c.Level, c.Mode), pageWidth/2, 165, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("Score: %d / %d  (%d%%)", c.Score, c.Total, c.Percent()), pageWidth/2, 190, 0.5, 0.5)
	dc.DrawStringAnchored(c.IssuedAt.Format("Date: 2006-01-02 15:04"), pageWidth/2, 220, 0.5, 0.5)

	dc.SetLineWidth(1)
	dc.DrawLine(100, 230, pageWidth-100, 230)
	dc.Stroke()

	if err := r.setFont(dc, 12); err != nil {
		return nil, err
	}
	dc.DrawStringAnchored("Great job learning about dogs!", pageWidth/2, 260, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) setFont(dc *gg.Context, points float64) error {
	if r.fontPath == "" {
		return nil
	}
	if err := dc.LoadFontFace(r.fontPath, points); err != nil {
		return fmt.Errorf("load certificate font: %w", err)
	}
	return nil
}
