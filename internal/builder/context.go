package builder

import (
	"github.com/samber/lo"
	"github.com/virtual-hpc/hpcctl/internal/models"
	"github.com/virtual-hpc/hpcctl/internal/template"
)

// rootFrame binds the full cluster view every role template can see:
// the project name, the static network record and the enriched queue
// sequence (each queue with its routes, node range and partition).
func (b *Builder) rootFrame() template.Frame {
	static := b.topology.StaticNetwork

	return template.Frame{
		"project": b.cluster.Project,
		"static_network": template.Frame{
			"network":              static.Network,
			"port":                 static.Port,
			"control_node_address": static.ControlNodeAddress,
			"server_address":       static.ServerAddress,
		},
		"queues": lo.Map(b.topology.Queues, func(qt models.QueueTopology, _ int) template.Frame {
			return queueFrame(qt)
		}),
	}
}

func queueFrame(qt models.QueueTopology) template.Frame {
	return template.Frame{
		"name":          qt.Queue.Name,
		"subnet":        qt.Queue.Subnet,
		"port":          qt.Queue.Port,
		"ip_fixed_part": qt.Queue.FixedPart(),
		"gateway":       qt.Gateway,
		"routes": lo.Map(qt.Routes, func(route models.Route, _ int) template.Frame {
			return template.Frame{"subnet": route.Subnet}
		}),
		"nodes": template.Frame{
			"names":     qt.Nodes.Names,
			"addresses": qt.Nodes.Addresses,
			"first":     qt.Nodes.First,
			"last":      qt.Nodes.Last,
		},
		"partition": template.Frame{
			"name":    qt.Partition.Name,
			"nodes":   qt.Partition.Nodes,
			"default": yesNo(qt.Partition.Default),
		},
	}
}

// slurm.conf spells booleans YES/NO.
func yesNo(b bool) string {
	if b {
		return "YES"
	}

	return "NO"
}
