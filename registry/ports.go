package registry

import "github.com/moyoez/speeder2raw-web/types"

const (
	BaseSpeederPort = 10001
	BaseUdp2rawPort = 10002
	PortStride      = 10
)

// NextPorts returns the first (speeder, udp2raw) pair, walking up from the base pair in steps of
// PortStride, where neither port is used by any existing group.
//
// The search has no upper bound. It always ends because the used set is finite.
func NextPorts(groups []types.Group) (speederPort, udp2rawPort int) {
	used := make(map[int]struct{}, len(groups)*2)
	for _, g := range groups {
		used[g.SpeederPort] = struct{}{}
		used[g.Udp2rawPort] = struct{}{}
	}

	speederPort, udp2rawPort = BaseSpeederPort, BaseUdp2rawPort
	for {
		_, speederUsed := used[speederPort]
		_, udp2rawUsed := used[udp2rawPort]
		if !speederUsed && !udp2rawUsed {
			return speederPort, udp2rawPort
		}
		speederPort += PortStride
		udp2rawPort += PortStride
	}
}
