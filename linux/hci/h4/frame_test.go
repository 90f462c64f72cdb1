package h4

import (
	"bytes"
	"testing"
)

func TestFrameAssembleSplit(t *testing.T) {
	out := make(chan []byte, 4)
	f := newFrame(out)

	pkt := []byte{eventPacket, 0x0e, 0x04, 0x01, 0x1a, 0x0c, 0x00}
	f.Assemble(pkt[:2])
	f.Assemble(pkt[2:5])
	if len(out) != 0 {
		t.Fatal("packet emitted before it was complete")
	}
	f.Assemble(pkt[5:])

	select {
	case got := <-out:
		if !bytes.Equal(got, pkt) {
			t.Fatalf("expected % X, got % X", pkt, got)
		}
	default:
		t.Fatal("no packet emitted")
	}
}

func TestFrameAssembleMultiple(t *testing.T) {
	out := make(chan []byte, 4)
	f := newFrame(out)

	a := []byte{eventPacket, 0x01, 0x01, 0x00}
	b := []byte{aclPacket, 0x01, 0x20, 0x02, 0x00, 0xaa, 0xbb}
	c := []byte{eventPacket, 0x0f, 0x04, 0x00, 0x01, 0x01, 0x04}

	stream := append(append(append([]byte{0x00, 0x00}, a...), b...), c...)
	f.Assemble(stream)

	for _, exp := range [][]byte{a, b, c} {
		select {
		case got := <-out:
			if !bytes.Equal(got, exp) {
				t.Fatalf("expected % X, got % X", exp, got)
			}
		default:
			t.Fatalf("missing packet % X", exp)
		}
	}
}
