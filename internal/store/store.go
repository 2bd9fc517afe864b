package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/virtual-hpc/hpcctl/internal/models"
	"github.com/virtual-hpc/hpcctl/pkg/constants"
)

// Dir serves role templates from a directory tree laid out as
// <templateDir>/<role>.template/ with a Dockerfile template plus
// auxiliary files, and key material from a flat keys directory.
type Dir struct {
	templateDir string
	keysDir     string
}

func NewDir(templateDir, keysDir string) *Dir {
	return &Dir{templateDir: templateDir, keysDir: keysDir}
}

func (d *Dir) roleDir(role models.Role) string {
	return filepath.Join(d.templateDir, role.String()+constants.TemplateExtension)
}

func (d *Dir) RoleTemplate(role models.Role) (string, error) {
	content, err := os.ReadFile(filepath.Join(d.roleDir(role), constants.DockerfileName))
	if err != nil {
		return "", fmt.Errorf("failed to read role template: %w", err)
	}

	return string(content), nil
}

// Sub resolves an insertion source name, first in the role's template
// directory, then in the keys directory.
func (d *Dir) Sub(role models.Role, name string) (string, error) {
	candidates := []string{filepath.Join(d.roleDir(role), name)}
	if d.keysDir != "" {
		candidates = append(candidates, filepath.Join(d.keysDir, name))
	}

	for _, candidate := range candidates {
		content, err := os.ReadFile(candidate)
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read template %q: %w", name, err)
		}
	}

	return "", fmt.Errorf("template %q not found for role %q", name, role)
}

// Auxiliary returns every non-Dockerfile file of the role's template
// directory plus every key file, verbatim, sorted by name.
func (d *Dir) Auxiliary(role models.Role) ([]models.Artifact, error) {
	artifacts, err := readDir(d.roleDir(role), constants.DockerfileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read role template directory: %w", err)
	}

	if d.keysDir != "" {
		keys, err := readDir(d.keysDir, "")
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read keys directory: %w", err)
		}

		artifacts = append(artifacts, keys...)
	}

	return artifacts, nil
}

func readDir(dir, skip string) ([]models.Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var artifacts []models.Artifact
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == skip {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, models.Artifact{
			DestinationPath: entry.Name(),
			Content:         content,
		})
	}

	return artifacts, nil
}
