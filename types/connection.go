package types

// ConnectionType is the network state pushed by the connectivity source.
type ConnectionType int

const (
	ConnectionUnknown ConnectionType = iota
	ConnectionNone
	ConnectionCellular
	ConnectionWifi
	ConnectionEthernet
	ConnectionOther
)

func (c ConnectionType) String() string {
	switch c {
	case ConnectionNone:
		return "none"
	case ConnectionCellular:
		return "cellular"
	case ConnectionWifi:
		return "wifi"
	case ConnectionEthernet:
		return "ethernet"
	case ConnectionOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseConnectionType is the inverse of String. Unrecognised names map to ConnectionUnknown.
func ParseConnectionType(name string) ConnectionType {
	for c := ConnectionUnknown; c <= ConnectionOther; c++ {
		if c.String() == name {
			return c
		}
	}
	return ConnectionUnknown
}
