package bluez

// IOCapability is the pairing input/output capability declared by an agent.
type IOCapability uint8

const (
	DisplayOnly IOCapability = iota
	DisplayYesNo
	KeyboardOnly
	NoInputNoOutput
	InvalidIOCapability IOCapability = 0xff
)

var capNames = []string{"DisplayOnly", "DisplayYesNo", "KeyboardOnly", "NoInputNoOutput"}

// ParseIOCapability parses a capability name; the empty string means
// DisplayYesNo. NoInputOutput is the older spelling of NoInputNoOutput.
func ParseIOCapability(s string) IOCapability {
	switch s {
	case "":
		return DisplayYesNo
	case "NoInputOutput":
		return NoInputNoOutput
	}
	for i, n := range capNames {
		if n == s {
			return IOCapability(i)
		}
	}
	return InvalidIOCapability
}

func (c IOCapability) String() string {
	if int(c) < len(capNames) {
		return capNames[c]
	}
	return "Invalid"
}
