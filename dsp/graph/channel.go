package graph

// Channel identifies a logical EQ channel in the fixed processing topology.
// The master pair filters the incoming stereo stream; the out channels
// filter the three physical outputs derived from it.
type Channel uint8

const (
	MasterLeft Channel = iota
	MasterRight
	OutLeft
	OutRight
	OutSub
	ChannelCount
)

// MaxBands is the per-channel band capacity on the configuration surface.
const MaxBands = 12

// channelBands is the number of bands each channel actually runs.
var channelBands = [ChannelCount]int{
	MasterLeft:  10,
	MasterRight: 10,
	OutLeft:     2,
	OutRight:    2,
	OutSub:      2,
}

func (c Channel) String() string {
	switch c {
	case MasterLeft:
		return "master-left"
	case MasterRight:
		return "master-right"
	case OutLeft:
		return "out-left"
	case OutRight:
		return "out-right"
	case OutSub:
		return "out-sub"
	default:
		return "unknown"
	}
}

// Valid reports whether c names a real channel.
func (c Channel) Valid() bool {
	return c < ChannelCount
}

// Bands returns the number of active bands for c.
func (c Channel) Bands() int {
	if !c.Valid() {
		return 0
	}
	return channelBands[c]
}
