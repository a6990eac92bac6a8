// Package pnm provides the minimal portable-pixmap (P6) support needed by
// the solver observers: fixed-size RGB images written in one shot, and
// row-streamed images grown one observation at a time.
package pnm

import (
	"bufio"
	"fmt"
	"os"
)

// An Image is an RGB raster written as a binary PPM (P6) file.
type Image struct {
	w, h int
	pix  []byte
}

// New returns a black image of the given size.
func New(w, h int) *Image {
	if w <= 0 || h <= 0 {
		return nil
	}
	return &Image{w: w, h: h, pix: make([]byte, 3*w*h)}
}

// Set colors the pixel at column x, row y.
func (img *Image) Set(x, y int, r, g, b byte) {
	i := 3 * (y*img.w + x)
	img.pix[i] = r
	img.pix[i+1] = g
	img.pix[i+2] = b
}

// WriteFile writes the image to path.
func (img *Image) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P6\n%d %d\n255\n", img.w, img.h)
	if _, err := w.Write(img.pix); err != nil {
		return err
	}
	return w.Flush()
}

// A Vector is a P6 file written one row per observation: each Push call
// appends one row of w pixels. The height written in the header is the
// expected number of rows; observers that stop early leave a short file,
// which most viewers accept.
type Vector struct {
	f *bufio.Writer
	c *os.File
	w int
}

// NewVector creates the file and writes the header for w pixels per row
// and h expected rows.
func NewVector(path string, w, h int) (*Vector, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", w, h)
	return &Vector{f: bw, c: f, w: w}, nil
}

// Push appends one row of RGB triplets. The row must hold 3*w bytes.
func (v *Vector) Push(row []byte) error {
	if len(row) != 3*v.w {
		return fmt.Errorf("pnm: row of %d bytes, want %d", len(row), 3*v.w)
	}
	_, err := v.f.Write(row)
	return err
}

// Close flushes and closes the file.
func (v *Vector) Close() error {
	if err := v.f.Flush(); err != nil {
		v.c.Close()
		return err
	}
	return v.c.Close()
}
