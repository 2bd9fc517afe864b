package models

import "net"

// WorkerRangeFirst and WorkerRangeLast bound the last octet of worker
// addresses inside a queue subnet. Address .1 is reserved for the
// queue's VPN gateway and is never allocated to a worker.
const (
	WorkerRangeFirst = 2
	WorkerRangeLast  = 255
)

// Route instructs a VPN client to route traffic for a subnet through
// the tunnel.
type Route struct {
	Subnet net.IPNet
}

// NodeRange is the Slurm node-name/address range of one queue.
type NodeRange struct {
	Names     string
	Addresses string
	First     int
	Last      int
}

// Partition is a Slurm scheduling group equal to one queue's node range.
type Partition struct {
	Name    string
	Nodes   string
	Default bool
}

// QueueTopology is everything the renderer needs to know about one
// queue: its routes to the rest of the cluster, its gateway address,
// its node range and its partition.
type QueueTopology struct {
	Queue     Queue
	Gateway   net.IP
	Routes    []Route
	Nodes     NodeRange
	Partition Partition
}

type Topology struct {
	StaticNetwork StaticNetwork
	Queues        []QueueTopology
}
