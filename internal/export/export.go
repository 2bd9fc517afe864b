package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/virtual-hpc/hpcctl/internal/builder"
	"github.com/virtual-hpc/hpcctl/internal/models"
	"github.com/virtual-hpc/hpcctl/pkg/constants"
	"gopkg.in/yaml.v3"
)

// WriteAll exports every successful build result under dir and sums up
// the run into a render manifest. A failed export is recorded against
// its role instance only; the remaining instances are still written.
func WriteAll(dir string, results []builder.InstanceResult, logger *slog.Logger) models.RenderResult {
	manifest := models.RenderResult{}

	for _, result := range results {
		info := models.RoleInstanceInfo{
			Name: result.Instance.Name(),
			Role: result.Instance.Role.String(),
		}
		if result.Instance.Queue != nil {
			info.Queue = result.Instance.Queue.Name
		}

		if result.Err != nil {
			info.Error = result.Err.Error()
			manifest.Failed = append(manifest.Failed, info)
			continue
		}

		if err := Write(dir, info.Name, result.Artifacts); err != nil {
			logger.Error("failed to export artifacts", "instance", info.Name, "error", err)
			info.Error = err.Error()
			manifest.Failed = append(manifest.Failed, info)
			continue
		}

		info.Artifacts = lo.Map(result.Artifacts, func(artifact models.Artifact, _ int) string {
			return artifact.DestinationPath
		})
		manifest.Rendered = append(manifest.Rendered, info)
	}

	return manifest
}

// Write places a role-instance artifact set under dir/<instance>.
// The set is staged in a temporary directory and renamed into place,
// so a failure never leaves a partial tree behind.
func Write(dir, instance string, artifacts []models.Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	staging, err := os.MkdirTemp(dir, "."+instance+"-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, artifact := range artifacts {
		path, err := artifactPath(staging, artifact.DestinationPath)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}

		if err := os.WriteFile(path, artifact.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write artifact %q: %w", artifact.DestinationPath, err)
		}
	}

	target := filepath.Join(dir, instance)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove previous artifact tree: %w", err)
	}

	if err := os.Rename(staging, target); err != nil {
		return fmt.Errorf("failed to move artifact tree into place: %w", err)
	}

	return nil
}

// WriteManifest records what a render run produced, next to the
// artifact trees, for the build collaborator to consume.
func WriteManifest(dir string, result models.RenderResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	content, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal render manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, constants.ManifestName), content, 0o644); err != nil {
		return fmt.Errorf("failed to write render manifest: %w", err)
	}

	return nil
}

// artifactPath maps an opaque destination path into the staging tree.
// Absolute destinations (image-internal paths) are re-rooted; paths
// escaping the tree are rejected.
func artifactPath(staging, destination string) (string, error) {
	relative := filepath.FromSlash(strings.TrimLeft(destination, "/"))
	cleaned := filepath.Clean(relative)

	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("destination %q escapes the artifact tree", destination)
	}

	return filepath.Join(staging, cleaned), nil
}
