package cmd

import (
	"bytes"
	"testing"
)

func TestOpcodes(t *testing.T) {
	tests := []struct {
		c  interface{ OpCode() int }
		op int
	}{
		{&Inquiry{}, 0x0401},
		{&InquiryCancel{}, 0x0402},
		{&PeriodicInquiryMode{}, 0x0403},
		{&ExitPeriodicInquiryMode{}, 0x0404},
		{&AuthenticationRequested{}, 0x0411},
		{&WriteScanEnable{}, 0x0c1a},
		{&WriteCurrentIACLAP{}, 0x0c3a},
		{&ReadBDADDR{}, 0x1009},
	}
	for _, tt := range tests {
		if got := tt.c.OpCode(); got != tt.op {
			t.Errorf("%T: expected opcode 0x%04x, got 0x%04x", tt.c, tt.op, got)
		}
	}
	if OGF(0x0c1a) != 0x03 || OCF(0x0c1a) != 0x1a {
		t.Fatalf("OGF/OCF split is wrong")
	}
}

func TestMarshalInquiry(t *testing.T) {
	c := &Inquiry{LAP: LAP(GIAC), InquiryLength: 0x08}
	b := make([]byte, 16)
	if err := c.Marshal(b); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	exp := []byte{0x33, 0x8b, 0x9e, 0x08, 0x00}
	if !bytes.Equal(b[:c.Len()], exp) {
		t.Fatalf("expected % X, got % X", exp, b[:c.Len()])
	}
}

func TestMarshalPeriodicInquiry(t *testing.T) {
	c := &PeriodicInquiryMode{MaxPeriodLength: 24, MinPeriodLength: 16, LAP: LAP(GIAC), InquiryLength: 8}
	b := make([]byte, c.Len())
	if err := c.Marshal(b); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	exp := []byte{24, 0, 16, 0, 0x33, 0x8b, 0x9e, 0x08, 0x00}
	if !bytes.Equal(b, exp) {
		t.Fatalf("expected % X, got % X", exp, b)
	}
}

func TestMarshalShortBuffer(t *testing.T) {
	c := &WriteLocalName{}
	if err := c.Marshal(make([]byte, 10)); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}

func TestWriteCurrentIACLAP(t *testing.T) {
	c := &WriteCurrentIACLAP{IACLAP: [][3]byte{LAP(GIAC), LAP(LIAC)}}
	b := make([]byte, c.Len())
	if err := c.Marshal(b); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	exp := []byte{2, 0x33, 0x8b, 0x9e, 0x00, 0x8b, 0x9e}
	if !bytes.Equal(b, exp) {
		t.Fatalf("expected % X, got % X", exp, b)
	}

	if err := (&WriteCurrentIACLAP{}).Marshal(b); err == nil {
		t.Fatalf("expected error for empty IAC list")
	}
}

func TestUnmarshalVersion(t *testing.T) {
	rp := &ReadLocalVersionInformationRP{}
	b := []byte{0x00, 0x03, 0x57, 0x07, 0x03, 0x0b, 0x00, 0x57, 0x07}
	if err := rp.Unmarshal(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rp.HCIVersion != 3 || rp.HCIRevision != 0x0757 || rp.ManufacturerName != 11 || rp.LMPPALSubversion != 0x0757 {
		t.Fatalf("unexpected decode %+v", rp)
	}

	if err := rp.Unmarshal(b[:4]); err == nil {
		t.Fatalf("expected error for short return parameters")
	}
}

func TestNameString(t *testing.T) {
	rp := &ReadLocalNameRP{}
	copy(rp.LocalName[:], "dinovo")
	if rp.Name() != "dinovo" {
		t.Fatalf("expected dinovo, got %q", rp.Name())
	}
}

func TestHasFeature(t *testing.T) {
	var f [8]byte
	f[6] = 0x08
	if !HasFeature(f, FeatureSimplePair) {
		t.Fatalf("expected simple pairing")
	}
	if HasFeature(f, FeatureExtInquiry) {
		t.Fatalf("unexpected extended inquiry")
	}
}
