package topology

import (
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/samber/lo"
	"github.com/virtual-hpc/hpcctl/internal/models"
	"github.com/virtual-hpc/hpcctl/pkg/utils"
)

// ErrInvalidTopology marks a cluster description that must not be
// rendered: duplicate or invalid queue names, overlapping subnets,
// more than one default partition. Detected before any rendering so
// no partial artifact set is ever produced from a bad topology.
var ErrInvalidTopology = errors.New("invalid topology")

const maxQueueNameLength = 32

// Queue names become VPN interface names, Slurm partition names and
// artifact directory names, so the charset is the intersection of
// what those accept.
var queueNameSyntax = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Synthesize computes the full route mesh and Slurm layout for the
// cluster. Queue order is preserved everywhere: it determines route
// order, node range order and partition order, keeping the output
// reproducible across runs.
func Synthesize(static models.StaticNetwork, queues []models.Queue) (models.Topology, error) {
	if err := validate(static, queues); err != nil {
		return models.Topology{}, err
	}

	topology := models.Topology{
		StaticNetwork: static,
		Queues:        make([]models.QueueTopology, 0, len(queues)),
	}

	for _, queue := range queues {
		nodes := nodeRangeFor(queue)

		topology.Queues = append(topology.Queues, models.QueueTopology{
			Queue:   queue,
			Gateway: utils.HostAddress(queue.Subnet, 1),
			Routes:  routesFor(queue, static, queues),
			Nodes:   nodes,
			Partition: models.Partition{
				Name:    queue.Name,
				Nodes:   nodes.Names,
				Default: queue.Default,
			},
		})
	}

	return topology, nil
}

// routesFor is the route set queue must push to its VPN clients: the
// static network first, then every other queue's subnet in input
// order. The queue's own subnet is never pushed.
func routesFor(queue models.Queue, static models.StaticNetwork, queues []models.Queue) []models.Route {
	routes := []models.Route{{Subnet: static.Network}}

	for _, other := range queues {
		if other.Name == queue.Name {
			continue
		}

		routes = append(routes, models.Route{Subnet: other.Subnet})
	}

	return routes
}

func nodeRangeFor(queue models.Queue) models.NodeRange {
	return models.NodeRange{
		Names: fmt.Sprintf("%s-WORKER-INT[%d-%d]",
			queue.Name, models.WorkerRangeFirst, models.WorkerRangeLast),
		Addresses: fmt.Sprintf("%s.[%d-%d]",
			queue.FixedPart(), models.WorkerRangeFirst, models.WorkerRangeLast),
		First: models.WorkerRangeFirst,
		Last:  models.WorkerRangeLast,
	}
}

func validate(static models.StaticNetwork, queues []models.Queue) error {
	if len(queues) == 0 {
		return fmt.Errorf("no queues defined: %w", ErrInvalidTopology)
	}

	for _, queue := range queues {
		if !queueNameSyntax.MatchString(queue.Name) {
			return fmt.Errorf("queue name %q is not a valid identifier: %w", queue.Name, ErrInvalidTopology)
		}

		if len(queue.Name) > maxQueueNameLength {
			return fmt.Errorf("queue name %q exceeds %d characters: %w",
				queue.Name, maxQueueNameLength, ErrInvalidTopology)
		}

		if ones, bits := queue.Subnet.Mask.Size(); bits != 32 || ones != 24 {
			return fmt.Errorf("queue %q: subnet %s is not a /24: %w",
				queue.Name, queue.Subnet.String(), ErrInvalidTopology)
		}
	}

	duplicated := lo.FindDuplicatesBy(queues, func(queue models.Queue) string {
		return queue.Name
	})
	if len(duplicated) > 0 {
		return fmt.Errorf("duplicated queue name %q: %w", duplicated[0].Name, ErrInvalidTopology)
	}

	subnets := append([]subnet{{name: "static network", network: static.Network}},
		lo.Map(queues, func(queue models.Queue, _ int) subnet {
			return subnet{name: "queue " + queue.Name, network: queue.Subnet}
		})...)

	for i, a := range subnets {
		for _, b := range subnets[i+1:] {
			if utils.NetworksOverlap(a.network, b.network) {
				return fmt.Errorf("%s subnet %s overlaps %s subnet %s: %w",
					a.name, a.network.String(), b.name, b.network.String(), ErrInvalidTopology)
			}
		}
	}

	defaults := lo.Filter(queues, func(queue models.Queue, _ int) bool {
		return queue.Default
	})
	if len(defaults) > 1 {
		return fmt.Errorf("queues %q and %q both request the default partition: %w",
			defaults[0].Name, defaults[1].Name, ErrInvalidTopology)
	}

	return nil
}

type subnet struct {
	name    string
	network net.IPNet
}
