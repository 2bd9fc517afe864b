package models

// Artifact is one rendered output file. DestinationPath is an opaque
// string chosen by the template author; interpretation belongs to the
// build collaborator that consumes the artifact set.
type Artifact struct {
	DestinationPath string
	Content         []byte
}

// RoleInstanceInfo describes one rendered role-instance in the render
// manifest handed to the build collaborator.
type RoleInstanceInfo struct {
	Name      string   `yaml:"name"`
	Role      string   `yaml:"role"`
	Queue     string   `yaml:"queue,omitempty"`
	Artifacts []string `yaml:"artifacts,omitempty"`
	Error     string   `yaml:"error,omitempty"`
}

// RenderResult is the manifest of a whole render run.
type RenderResult struct {
	Rendered []RoleInstanceInfo `yaml:"rendered"`
	Failed   []RoleInstanceInfo `yaml:"failed,omitempty"`
}
