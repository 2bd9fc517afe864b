package models

import (
	"net"
	"strconv"
	"strings"
)

type Cluster struct {
	Project        string
	AdminPublicKey string        `mapstructure:"admin_public_key"`
	TemplateDir    string        `mapstructure:"template_dir"`
	KeysDir        string        `mapstructure:"keys_dir"`
	OutputDir      string        `mapstructure:"output_dir"`
	KeygenScript   string        `mapstructure:"keygen_script"`
	StaticNetwork  StaticNetwork `mapstructure:"static_network"`
}

// StaticNetwork is the always-on backbone subnet that connects the
// control node and the linker to every queue.
type StaticNetwork struct {
	Network            net.IPNet
	Port               int
	ControlNodeAddress net.IP `mapstructure:"control_node_address"`
	ServerAddress      net.IP `mapstructure:"server_address"`
}

// Queue is a named group of worker hosts sharing one VPN subnet and
// one Slurm partition. The subnet must be a /24: worker addresses are
// allocated in the last octet.
type Queue struct {
	Name    string
	Subnet  net.IPNet
	Port    int
	Default bool
}

// FixedPart returns the first three octets of the queue subnet, the
// part shared by every worker address in the queue.
func (q Queue) FixedPart() string {
	ip := q.Subnet.IP.To4()
	if ip == nil {
		return ""
	}

	octets := make([]string, 3)
	for i := 0; i < 3; i++ {
		octets[i] = strconv.Itoa(int(ip[i]))
	}

	return strings.Join(octets, ".")
}
