package builder

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/virtual-hpc/hpcctl/internal/models"
	"github.com/virtual-hpc/hpcctl/internal/template"
	"github.com/virtual-hpc/hpcctl/pkg/constants"
	"golang.org/x/sync/errgroup"
)

const MaxConcurrentRenders = 3

// Store supplies template text and verbatim files for a role.
type Store interface {
	RoleTemplate(role models.Role) (string, error)
	Sub(role models.Role, name string) (string, error)
	Auxiliary(role models.Role) ([]models.Artifact, error)
}

// Builder turns the synthesized topology into per-role-instance
// artifact sets. Worker and submitter roles render once per queue
// with the queue bound alongside the full cluster view; linker and
// control render once.
type Builder struct {
	store     Store
	cluster   models.Cluster
	topology  models.Topology
	renderers map[models.Role]*template.Renderer
	logger    *slog.Logger
}

func New(store Store, cluster models.Cluster, topology models.Topology, logger *slog.Logger) *Builder {
	renderers := make(map[models.Role]*template.Renderer, len(models.Roles()))
	for _, role := range models.Roles() {
		renderers[role] = template.NewRenderer(&storeLoader{store: store, role: role})
	}

	return &Builder{
		store:     store,
		cluster:   cluster,
		topology:  topology,
		renderers: renderers,
		logger:    logger,
	}
}

// Instances lists every role-instance of the cluster in deterministic
// order: singletons first, then per-queue roles in queue order.
func (b *Builder) Instances() []models.RoleInstance {
	instances := make([]models.RoleInstance, 0, 2+2*len(b.topology.Queues))

	for _, role := range models.Roles() {
		if !role.PerQueue() {
			instances = append(instances, models.RoleInstance{Role: role})
			continue
		}

		for i := range b.topology.Queues {
			instances = append(instances, models.RoleInstance{
				Role:  role,
				Queue: &b.topology.Queues[i].Queue,
			})
		}
	}

	return instances
}

// InstanceResult is the outcome of one role-instance build. A failed
// instance never carries a partial artifact set.
type InstanceResult struct {
	Instance  models.RoleInstance
	Artifacts []models.Artifact
	Err       error
}

// BuildAll renders every role-instance. Instances are independent, so
// they render concurrently with a bounded group; a failure in one
// never aborts the others.
func (b *Builder) BuildAll(ctx context.Context) []InstanceResult {
	instances := b.Instances()
	results := make([]InstanceResult, len(instances))

	eg := &errgroup.Group{}
	eg.SetLimit(MaxConcurrentRenders)

	for i, instance := range instances {
		i, instance := i, instance

		eg.Go(func() error {
			results[i] = InstanceResult{Instance: instance}

			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			artifacts, err := b.Build(instance)
			if err != nil {
				b.logger.Error("failed to build role instance",
					"instance", instance.Name(), "error", err)
				results[i].Err = err
				return nil
			}

			b.logger.Info("built role instance",
				"instance", instance.Name(), "artifacts", len(artifacts))
			results[i].Artifacts = artifacts

			return nil
		})
	}

	eg.Wait()

	return results
}

// Build renders one role-instance into its full artifact set: the
// rendered Dockerfile, every insertion artifact, and the verbatim
// auxiliary and key files. All-or-nothing: any error drops the set.
func (b *Builder) Build(instance models.RoleInstance) ([]models.Artifact, error) {
	text, err := b.store.RoleTemplate(instance.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to load role template: %w", err)
	}

	tpl, err := template.Parse(instance.Role.String(), text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse role template: %w", err)
	}

	renderContext := template.NewContext(b.rootFrame())
	if instance.Queue != nil {
		queueTopology, found := lo.Find(b.topology.Queues, func(qt models.QueueTopology) bool {
			return qt.Queue.Name == instance.Queue.Name
		})
		if !found {
			return nil, fmt.Errorf("queue %q is not part of the topology", instance.Queue.Name)
		}

		renderContext = renderContext.Push(template.Frame{"queue": queueFrame(queueTopology)})
	}

	result, err := b.renderers[instance.Role].Render(tpl, renderContext)
	if err != nil {
		return nil, fmt.Errorf("failed to render role template: %w", err)
	}

	auxiliary, err := b.store.Auxiliary(instance.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to collect auxiliary files: %w", err)
	}

	primary := models.Artifact{
		DestinationPath: constants.DockerfileName,
		Content:         result.Output,
	}

	artifacts, err := mergeArtifacts([]models.Artifact{primary}, result.Inserts, auxiliary)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble artifact set: %w", err)
	}

	return artifacts, nil
}

// mergeArtifacts concatenates artifact sets, dropping exact
// duplicates and rejecting two different contents at one destination.
func mergeArtifacts(sets ...[]models.Artifact) ([]models.Artifact, error) {
	var merged []models.Artifact
	byPath := make(map[string]int)

	for _, set := range sets {
		for _, artifact := range set {
			if idx, ok := byPath[artifact.DestinationPath]; ok {
				if !bytes.Equal(merged[idx].Content, artifact.Content) {
					return nil, fmt.Errorf("destination %q produced twice with different content: %w",
						artifact.DestinationPath, template.ErrInsertionConflict)
				}

				continue
			}

			byPath[artifact.DestinationPath] = len(merged)
			merged = append(merged, artifact)
		}
	}

	return merged, nil
}

// storeLoader adapts the role-scoped store to the renderer's loader.
type storeLoader struct {
	store Store
	role  models.Role
}

func (l *storeLoader) Load(name string) (string, error) {
	return l.store.Sub(l.role, name)
}
