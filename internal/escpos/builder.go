// Package escpos builds ESC/POS byte streams for thermal receipt printers.
package escpos

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A

	// codePage858 is the ESC t index for PC858 (PC850 plus the euro sign) on
	// Epson-compatible printers. It carries the pound sign at 0x9C.
	codePage858 = 19
)

type Alignment byte

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

type Size byte

const (
	SizeNormal Size = 0x00
	SizeDouble Size = 0x11
)

// Builder accumulates directives and text lines. Text is encoded to CP858;
// runes outside the code page print as '?'.
type Builder struct {
	buf   bytes.Buffer
	width int
}

func NewBuilder(width int) *Builder {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Builder{width: width}
}

// Init resets the printer and selects the code page.
func (b *Builder) Init() *Builder {
	b.buf.Write([]byte{esc, '@', esc, 't', codePage858})
	return b
}

func (b *Builder) Align(a Alignment) *Builder {
	b.buf.Write([]byte{esc, 'a', byte(a)})
	return b
}

func (b *Builder) Bold(on bool) *Builder {
	b.buf.Write([]byte{esc, 'E', flag(on)})
	return b
}

func (b *Builder) Underline(on bool) *Builder {
	b.buf.Write([]byte{esc, '-', flag(on)})
	return b
}

func (b *Builder) Size(s Size) *Builder {
	b.buf.Write([]byte{gs, '!', byte(s)})
	return b
}

// Feed prints and advances n lines.
func (b *Builder) Feed(n int) *Builder {
	if n <= 0 {
		return b
	}
	if n > 255 {
		n = 255
	}
	b.buf.Write([]byte{esc, 'd', byte(n)})
	return b
}

// Cut feeds a few lines and performs a partial cut.
func (b *Builder) Cut() *Builder {
	b.buf.Write([]byte{gs, 'V', 0x41, 0x03})
	return b
}

func (b *Builder) Line(text string) *Builder {
	b.buf.Write(Encode(text))
	b.buf.WriteByte(lf)
	return b
}

func (b *Builder) Blank() *Builder {
	b.buf.WriteByte(lf)
	return b
}

func (b *Builder) Separator() *Builder {
	return b.Line(strings.Repeat("-", b.width))
}

// Columns prints left and right on one line, padding between them to the
// paper width. When both do not fit, right goes on its own line.
func (b *Builder) Columns(left, right string) *Builder {
	gap := b.width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		b.Line(left)
		gap = b.width - utf8.RuneCountInString(right)
		if gap < 0 {
			gap = 0
		}
		return b.Line(strings.Repeat(" ", gap) + right)
	}
	return b.Line(left + strings.Repeat(" ", gap) + right)
}

func (b *Builder) Width() int { return b.width }

func (b *Builder) Bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// Encode converts UTF-8 text to CP858 bytes. Control characters become
// spaces so order text can never smuggle printer commands.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			out = append(out, ' ')
			continue
		}
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if c, ok := charmap.CodePage858.EncodeRune(r); ok {
			out = append(out, c)
			continue
		}
		out = append(out, '?')
	}
	return out
}

func flag(on bool) byte {
	if on {
		return 1
	}
	return 0
}
