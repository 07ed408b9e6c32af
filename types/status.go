package types

// SystemStatus is returned by GET /api/system/status.
type SystemStatus struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemUsed    uint64  `json:"mem_used"`
	MemTotal   uint64  `json:"mem_total"`
	MemPercent float64 `json:"mem_percent"`
	Groups     int     `json:"groups"`
}

// ProbeResult is the outcome of pinging the global remote host.
type ProbeResult struct {
	Host       string  `json:"host"`
	Addr       string  `json:"addr"`
	Sent       int     `json:"sent"`
	Received   int     `json:"received"`
	PacketLoss float64 `json:"packet_loss"`
	MinRttMs   float64 `json:"min_rtt_ms"`
	AvgRttMs   float64 `json:"avg_rtt_ms"`
	MaxRttMs   float64 `json:"max_rtt_ms"`
}
