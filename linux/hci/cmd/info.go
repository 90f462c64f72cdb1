package cmd

// ReadLocalVersionInformation implements Read Local Version Information (0x04|0x0001) [Vol 2, Part E, 7.4.1].
type ReadLocalVersionInformation struct{}

func (c *ReadLocalVersionInformation) String() string {
	return "Read Local Version Information (0x04|0x0001)"
}
func (c *ReadLocalVersionInformation) OpCode() int            { return opcode(ogfInfo, 0x0001) }
func (c *ReadLocalVersionInformation) Len() int               { return 0 }
func (c *ReadLocalVersionInformation) Marshal(b []byte) error { return nil }

// ReadLocalVersionInformationRP returns the return parameter of Read Local Version Information.
type ReadLocalVersionInformationRP struct {
	Status           uint8
	HCIVersion       uint8
	HCIRevision      uint16
	LMPPALVersion    uint8
	ManufacturerName uint16
	LMPPALSubversion uint16
}

func (c *ReadLocalVersionInformationRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadLocalSupportedFeatures implements Read Local Supported Features (0x04|0x0003) [Vol 2, Part E, 7.4.3].
type ReadLocalSupportedFeatures struct{}

func (c *ReadLocalSupportedFeatures) String() string {
	return "Read Local Supported Features (0x04|0x0003)"
}
func (c *ReadLocalSupportedFeatures) OpCode() int            { return opcode(ogfInfo, 0x0003) }
func (c *ReadLocalSupportedFeatures) Len() int               { return 0 }
func (c *ReadLocalSupportedFeatures) Marshal(b []byte) error { return nil }

// ReadLocalSupportedFeaturesRP returns the return parameter of Read Local Supported Features.
type ReadLocalSupportedFeaturesRP struct {
	Status      uint8
	LMPFeatures [8]byte
}

func (c *ReadLocalSupportedFeaturesRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadBDADDR implements Read BD_ADDR (0x04|0x0009) [Vol 2, Part E, 7.4.6].
type ReadBDADDR struct{}

func (c *ReadBDADDR) String() string         { return "Read BD_ADDR (0x04|0x0009)" }
func (c *ReadBDADDR) OpCode() int            { return opcode(ogfInfo, 0x0009) }
func (c *ReadBDADDR) Len() int               { return 0 }
func (c *ReadBDADDR) Marshal(b []byte) error { return nil }

// ReadBDADDRRP returns the return parameter of Read BD_ADDR.
type ReadBDADDRRP struct {
	Status uint8
	BDADDR [6]byte
}

func (c *ReadBDADDRRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LMP feature bits [Vol 2, Part C, 3.3], as byte index and mask.
const (
	FeatureRSSIInquiry  = 3<<8 | 0x40
	FeatureSniffSubrate = 5<<8 | 0x02
	FeaturePauseEncrypt = 5<<8 | 0x04
	FeatureExtInquiry   = 6<<8 | 0x01
	FeatureSimplePair   = 6<<8 | 0x08
	FeatureEncapsulated = 6<<8 | 0x10
	FeatureNFLUSH       = 6<<8 | 0x40
	FeatureLSTO         = 7<<8 | 0x01
	FeatureEPC          = 7<<8 | 0x04
)

// HasFeature reports whether f is set in the LMP features page.
func HasFeature(features [8]byte, f int) bool {
	return features[f>>8]&byte(f) != 0
}
