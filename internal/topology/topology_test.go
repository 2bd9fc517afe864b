package topology

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtual-hpc/hpcctl/internal/models"
)

func mustCIDR(t *testing.T, s string) net.IPNet {
	t.Helper()

	_, network, err := net.ParseCIDR(s)
	if err != nil {
		t.Fatal(err)
	}

	return *network
}

func staticNetwork(t *testing.T) models.StaticNetwork {
	t.Helper()

	return models.StaticNetwork{
		Network:            mustCIDR(t, "10.100.0.0/24"),
		Port:               1194,
		ControlNodeAddress: net.ParseIP("10.100.0.10"),
		ServerAddress:      net.ParseIP("10.100.0.1"),
	}
}

func Test_Synthesize_Routes(t *testing.T) {
	queues := []models.Queue{
		{Name: "alpha", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201},
		{Name: "beta", Subnet: mustCIDR(t, "10.0.2.0/24"), Port: 1202},
		{Name: "gamma", Subnet: mustCIDR(t, "10.0.3.0/24"), Port: 1203},
	}

	topology, err := Synthesize(staticNetwork(t), queues)
	require.NoError(t, err)
	require.Len(t, topology.Queues, 3)

	for i, qt := range topology.Queues {
		// Static network first, then every other queue: exactly N
		// routes for N queues, never the queue's own subnet.
		require.Len(t, qt.Routes, 3)
		assert.Equal(t, "10.100.0.0/24", qt.Routes[0].Subnet.String())

		for _, route := range qt.Routes {
			assert.NotEqual(t, queues[i].Subnet.String(), route.Subnet.String())
		}
	}

	// Route order follows queue input order.
	assert.Equal(t, "10.0.2.0/24", topology.Queues[0].Routes[1].Subnet.String())
	assert.Equal(t, "10.0.3.0/24", topology.Queues[0].Routes[2].Subnet.String())
	assert.Equal(t, "10.0.1.0/24", topology.Queues[1].Routes[1].Subnet.String())
	assert.Equal(t, "10.0.3.0/24", topology.Queues[1].Routes[2].Subnet.String())
}

func Test_Synthesize_NodeRanges(t *testing.T) {
	queues := []models.Queue{
		{Name: "gpu", Subnet: mustCIDR(t, "10.0.7.0/24"), Port: 1201, Default: true},
	}

	topology, err := Synthesize(staticNetwork(t), queues)
	require.NoError(t, err)
	require.Len(t, topology.Queues, 1)

	qt := topology.Queues[0]
	assert.Equal(t, "gpu-WORKER-INT[2-255]", qt.Nodes.Names)
	assert.Equal(t, "10.0.7.[2-255]", qt.Nodes.Addresses)
	assert.Equal(t, 2, qt.Nodes.First)
	assert.Equal(t, 255, qt.Nodes.Last)

	// Address .1 belongs to the queue's VPN gateway, never a worker.
	assert.Equal(t, net.ParseIP("10.0.7.1").To4(), qt.Gateway)

	assert.Equal(t, "gpu", qt.Partition.Name)
	assert.Equal(t, "gpu-WORKER-INT[2-255]", qt.Partition.Nodes)
	assert.True(t, qt.Partition.Default)
}

func Test_Synthesize_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		queues []models.Queue
	}{
		{
			name:   "no queues",
			queues: nil,
		},
		{
			name: "duplicated queue names",
			queues: []models.Queue{
				{Name: "gpu", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201},
				{Name: "gpu", Subnet: mustCIDR(t, "10.0.2.0/24"), Port: 1202},
			},
		},
		{
			name: "overlapping queue subnets",
			queues: []models.Queue{
				{Name: "alpha", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201},
				{Name: "beta", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1202},
			},
		},
		{
			name: "queue subnet overlaps static network",
			queues: []models.Queue{
				{Name: "gpu", Subnet: mustCIDR(t, "10.100.0.0/24"), Port: 1201},
			},
		},
		{
			name: "two default partitions",
			queues: []models.Queue{
				{Name: "alpha", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201, Default: true},
				{Name: "beta", Subnet: mustCIDR(t, "10.0.2.0/24"), Port: 1202, Default: true},
			},
		},
		{
			name: "queue name with whitespace",
			queues: []models.Queue{
				{Name: "gpu nodes", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201},
			},
		},
		{
			name: "queue name too long",
			queues: []models.Queue{
				{Name: "abcdefghijklmnopqrstuvwxyz0123456789", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201},
			},
		},
		{
			name: "queue subnet not a /24",
			queues: []models.Queue{
				{Name: "gpu", Subnet: mustCIDR(t, "10.0.0.0/16"), Port: 1201},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Synthesize(staticNetwork(t), tc.queues)
			assert.ErrorIs(t, err, ErrInvalidTopology)
		})
	}
}

func Test_Synthesize_Deterministic(t *testing.T) {
	queues := []models.Queue{
		{Name: "alpha", Subnet: mustCIDR(t, "10.0.1.0/24"), Port: 1201},
		{Name: "beta", Subnet: mustCIDR(t, "10.0.2.0/24"), Port: 1202},
	}

	first, err := Synthesize(staticNetwork(t), queues)
	require.NoError(t, err)

	second, err := Synthesize(staticNetwork(t), queues)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
