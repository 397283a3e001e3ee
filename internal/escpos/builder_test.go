package escpos

import (
	"bytes"
	"testing"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		in   string
		want []byte
	}{
		{"abc", []byte("abc")},
		{"£5", []byte{0x9C, '5'}},
		{"€", []byte{0xD5}},
		{"a\x1bb", []byte("a b")},
		{"漢", []byte("?")},
	}
	for _, tc := range cases {
		if got := Encode(tc.in); !bytes.Equal(got, tc.want) {
			t.Errorf("Encode(%q) = % x, want % x", tc.in, got, tc.want)
		}
	}
}

func TestBuilderDirectives(t *testing.T) {
	got := NewBuilder(10).
		Align(AlignRight).
		Bold(true).
		Underline(false).
		Size(SizeDouble).
		Feed(2).
		Line("hi").
		Bytes()
	want := []byte{
		esc, 'a', 2,
		esc, 'E', 1,
		esc, '-', 0,
		gs, '!', 0x11,
		esc, 'd', 2,
		'h', 'i', lf,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x\nwant % x", got, want)
	}
}

func TestBuilderColumns(t *testing.T) {
	got := NewBuilder(12).Columns("Naan", "£6.00").Bytes()
	want := append(Encode("Naan   £6.00"), lf)
	if !bytes.Equal(got, want) {
		t.Errorf("got %q want %q", got, want)
	}

	wrapped := NewBuilder(8).Columns("Chicken Jalfrezi", "£9.50").Bytes()
	want = append(append(Encode("Chicken Jalfrezi"), lf), append(Encode("   £9.50"), lf)...)
	if !bytes.Equal(wrapped, want) {
		t.Errorf("got %q want %q", wrapped, want)
	}
}

func TestFeedIgnoresNonPositive(t *testing.T) {
	if got := NewBuilder(0).Feed(0).Bytes(); len(got) != 0 {
		t.Errorf("Feed(0) wrote % x", got)
	}
}
