package decoder

// H.264 Annex-B NAL unit type codes relevant to keyframe classification.
const (
	nalH264IDR = 5
)

// classifyH264 scans every NAL unit in the Annex-B byte stream and
// reports whether the access unit is self-sufficient (contains or is
// itself an IDR slice).
func classifyH264(data []byte) (isKeyframe bool) {
	for _, nal := range splitAnnexB(data) {
		if len(nal) == 0 {
			continue
		}
		nalType := nal[0] & 0x1f
		if nalType == nalH264IDR {
			return true
		}
	}
	return false
}

// splitAnnexB yields each NAL unit's payload (start code stripped) found
// in an Annex-B byte stream.
func splitAnnexB(data []byte) [][]byte {
	var units [][]byte
	start := -1
	i := 0
	for i < len(data) {
		if i+3 <= len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			if start >= 0 {
				units = append(units, data[start:i])
			}
			start = i + 3
			i += 3
			continue
		}
		if i+4 <= len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 0 && data[i+3] == 1 {
			if start >= 0 {
				units = append(units, data[start:i])
			}
			start = i + 4
			i += 4
			continue
		}
		i++
	}
	if start >= 0 && start < len(data) {
		units = append(units, data[start:])
	}
	return units
}
