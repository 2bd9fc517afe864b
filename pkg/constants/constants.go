package constants

const (
	TemplateExtension = ".template"
	DockerfileName    = "Dockerfile"
	ManifestName      = "render.yaml"
)
