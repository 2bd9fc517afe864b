package validate

import (
	"errors"
	"fmt"
	"net"

	"github.com/virtual-hpc/hpcctl/internal/models"
	"golang.org/x/crypto/ssh"
)

var (
	ErrEmptyProjectName      = errors.New("empty project name")
	ErrNoQueues              = errors.New("no queues defined")
	ErrEmptyQueueName        = errors.New("empty queue name")
	ErrMissingQueueSubnet    = errors.New("queue has no subnet")
	ErrInvalidPort           = errors.New("port outside range 1-65535")
	ErrInvalidPublicKey      = errors.New("invalid admin public key")
	ErrMissingStaticNetwork  = errors.New("static network is not configured")
	ErrMissingControlNode    = errors.New("control node address is not configured")
	ErrMissingServerAddress  = errors.New("server address is not configured")
	ErrAddressOutsideNetwork = errors.New("address outside the static network")
	ErrMissingTemplateDir    = errors.New("template directory is not configured")
)

// Validator checks the shape of a loaded cluster configuration before
// topology synthesis: required fields present, ports in range, the
// admin key parseable. Queue name uniqueness and subnet overlap are
// topology concerns and are checked there.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) Run(cluster models.Cluster, queues []models.Queue) error {
	if cluster.Project == "" {
		return ErrEmptyProjectName
	}

	if cluster.TemplateDir == "" {
		return ErrMissingTemplateDir
	}

	if cluster.AdminPublicKey != "" {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cluster.AdminPublicKey)); err != nil {
			return fmt.Errorf("failed to parse admin public key: %w", ErrInvalidPublicKey)
		}
	}

	if err := v.validateStaticNetwork(cluster.StaticNetwork); err != nil {
		return fmt.Errorf("failed to validate static network: %w", err)
	}

	if len(queues) == 0 {
		return ErrNoQueues
	}

	for _, queue := range queues {
		if err := v.validateQueue(queue); err != nil {
			return fmt.Errorf("failed to validate queue %q: %w", queue.Name, err)
		}
	}

	return nil
}

func (v *Validator) validateStaticNetwork(static models.StaticNetwork) error {
	if static.Network.IP == nil {
		return ErrMissingStaticNetwork
	}

	if static.Port < 1 || static.Port > 65535 {
		return ErrInvalidPort
	}

	if static.ControlNodeAddress == nil {
		return ErrMissingControlNode
	}

	if static.ServerAddress == nil {
		return ErrMissingServerAddress
	}

	for _, address := range []struct {
		name string
		ip   net.IP
	}{
		{"control node address", static.ControlNodeAddress},
		{"server address", static.ServerAddress},
	} {
		if !static.Network.Contains(address.ip) {
			return fmt.Errorf("%s: %w", address.name, ErrAddressOutsideNetwork)
		}
	}

	return nil
}

func (v *Validator) validateQueue(queue models.Queue) error {
	if queue.Name == "" {
		return ErrEmptyQueueName
	}

	if queue.Subnet.IP == nil {
		return ErrMissingQueueSubnet
	}

	if queue.Port < 1 || queue.Port > 65535 {
		return ErrInvalidPort
	}

	return nil
}
