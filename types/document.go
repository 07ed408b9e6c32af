package types

// GlobalConfig is shared by every tunnel group. It is always replaced as a whole.
type GlobalConfig struct {
	RemoteHost string `json:"remote_host"`
	Password   string `json:"password"`
}

// Group is one speeder + udp2raw tunnel configuration.
// SpeederPort and Udp2rawPort are assigned on creation and never change afterwards.
type Group struct {
	Name         string `json:"name"`
	SpeederPort  int    `json:"speeder_port"`
	Udp2rawPort  int    `json:"udp2raw_port"`
	FecConfig    string `json:"fec_config"`
	Mode         int    `json:"mode"`
	Timeout      int    `json:"timeout"`
	Queue        int    `json:"queue"`
	Interval     int    `json:"interval"`
	Udp2rawExtra string `json:"udp2raw_extra"`
}

// GroupInput is the request body for creating or replacing a group.
// Port fields are accepted so that clients may echo a group back, but they are ignored.
type GroupInput struct {
	Name         string `json:"name"`
	SpeederPort  int    `json:"speeder_port,omitempty"`
	Udp2rawPort  int    `json:"udp2raw_port,omitempty"`
	FecConfig    string `json:"fec_config"`
	Mode         int    `json:"mode"`
	Timeout      int    `json:"timeout"`
	Queue        int    `json:"queue"`
	Interval     int    `json:"interval"`
	Udp2rawExtra string `json:"udp2raw_extra"`
}

// RootDocument is the whole persisted configuration file.
// Groups are addressed by their position; indices shift after a delete.
type RootDocument struct {
	Global GlobalConfig `json:"global"`
	Groups []Group      `json:"groups"`
}

// ClientProfile is what a client needs to connect to one group, encoded into the QR code.
type ClientProfile struct {
	Name         string `json:"name"`
	RemoteHost   string `json:"remote_host"`
	Password     string `json:"password"`
	SpeederPort  int    `json:"speeder_port"`
	Udp2rawPort  int    `json:"udp2raw_port"`
	FecConfig    string `json:"fec_config"`
	Mode         int    `json:"mode"`
	Timeout      int    `json:"timeout"`
	Queue        int    `json:"queue"`
	Interval     int    `json:"interval"`
	Udp2rawExtra string `json:"udp2raw_extra"`
}
