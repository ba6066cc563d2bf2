package protocol

// Message tags.
//
// The DTU firmware has shipped three revisions of the real-data message.
// All three share one shape and produce the same event.
const (
	TagRealDataRes    uint16 = 8716
	TagRealDataNewRes uint16 = 8717
	TagRealDataX      uint16 = 8718
	TagAppInfo        uint16 = 8705
)

// RealDataTags lists every tag that carries a RealDataMessage.
var RealDataTags = []uint16{TagRealDataRes, TagRealDataNewRes, TagRealDataX}

// IsRealData reports whether tag carries a RealDataMessage.
func IsRealData(tag uint16) bool {
	for _, t := range RealDataTags {
		if t == tag {
			return true
		}
	}
	return false
}
