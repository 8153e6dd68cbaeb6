// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/nickjwhite/gofpdf"
	"rescribe.xyz/nbhood/field"
)

const pageWidth = 5 // pageWidth in inches

// pxToPt converts a pixel value into a pt value (72 pts per inch)
// This uses pageWidth to determine the appropriate value
func pxToPt(i int) float64 {
	return float64(i) / pageWidth
}

const captionHeight = 24

// Report is a PDF with a page for each image added to it, used to
// compare fields before and after neighbourhood processing.
type Report struct {
	fpdf *gofpdf.Fpdf
	n    int
}

// Setup creates a new PDF with appropriate settings and fonts
func (p *Report) Setup() error {
	p.fpdf = gofpdf.New("P", "pt", "A4", "")
	p.fpdf.SetFont("Helvetica", "", 12)
	p.fpdf.SetAutoPageBreak(false, float64(0))
	return p.fpdf.Error()
}

// addPNG adds a page sized to fit the PNG in b, with a caption
// above it
func (p *Report) addPNG(b []byte, caption string) error {
	name := fmt.Sprintf("img%d", p.n)
	p.n++
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	info := p.fpdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(b))
	if p.fpdf.Err() {
		return fmt.Errorf("Could not add image %s: %v", caption, p.fpdf.Error())
	}
	w, h := info.Extent()

	p.fpdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h + captionHeight})
	p.fpdf.SetXY(0, 0)
	p.fpdf.CellFormat(w, captionHeight, caption, "", 0, "C", false, 0, "")
	p.fpdf.ImageOptions(name, 0, captionHeight, w, h, false, opts, 0, "")
	return p.fpdf.Error()
}

// AddField adds a page with one plane of a field drawn as an 8 bit
// greyscale image, as gofpdf can't read 16 bit PNGs
func (p *Report) AddField(f *field.Field, plane int, caption string) error {
	if plane < 0 || plane >= f.NumPlanes() {
		return fmt.Errorf("Plane %d out of range, field has %d planes", plane, f.NumPlanes())
	}
	var buf bytes.Buffer
	err := png.Encode(&buf, field.ToGrayImage(f, plane))
	if err != nil {
		return fmt.Errorf("Could not encode image: %v", err)
	}
	return p.addPNG(buf.Bytes(), caption)
}

// AddGraph adds a page with a PNG graph, as made by GraphProfile
func (p *Report) AddGraph(graph []byte, caption string) error {
	return p.addPNG(graph, caption)
}

// Pages returns the number of pages added so far
func (p *Report) Pages() int {
	return p.fpdf.PageCount()
}

// Save saves the PDF to the file at path
func (p *Report) Save(path string) error {
	return p.fpdf.OutputFileAndClose(path)
}
