package lighthouse

import "strconv"

// Command is the single control byte written to a base station.
type Command byte

const (
	Standby Command = 0x00
	PowerOn Command = 0x01
)

func (c Command) String() string {
	switch c {
	case Standby:
		return "standby"
	case PowerOn:
		return "power on"
	default:
		return "unknown (0x" + strconv.FormatUint(uint64(c), 16) + ")"
	}
}

func (c Command) Byte() byte {
	return byte(c)
}
