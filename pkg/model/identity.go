package model

type Runtime string

const (
	RuntimeNone       Runtime = ""
	RuntimeDocker     Runtime = "docker"
	RuntimePodman     Runtime = "podman"
	RuntimeKubernetes Runtime = "kubernetes"
	RuntimeColima     Runtime = "colima"
	RuntimeContainerd Runtime = "containerd"
)

// Identity describes the agent instance to the collector.
type Identity struct {
	PodName  string
	Hostname string
	Runtime  Runtime
	// RunID changes on every process start, so the collector can tell that
	// the accumulated state was reset.
	RunID string
}
