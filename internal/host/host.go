package host

import (
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/kubesonde/netprobe/pkg/model"
)

const selfCgroup = "/proc/self/cgroup"

// Detect describes the running agent. podName falls back to the hostname.
func Detect(podName string) model.Identity {
	hostname, _ := os.Hostname()
	if podName == "" {
		podName = hostname
	}
	return model.Identity{
		PodName:  podName,
		Hostname: hostname,
		Runtime:  detectRuntime(selfCgroup),
		RunID:    uuid.NewString(),
	}
}

func detectRuntime(cgroupPath string) model.Runtime {
	data, err := os.ReadFile(cgroupPath)
	if err != nil {
		return model.RuntimeNone
	}
	content := string(data)

	switch {
	case strings.Contains(content, "kubepods"):
		return model.RuntimeKubernetes
	case strings.Contains(content, "docker"):
		return model.RuntimeDocker
	case strings.Contains(content, "podman") || strings.Contains(content, "libpod"):
		return model.RuntimePodman
	case strings.Contains(content, "colima"):
		return model.RuntimeColima
	case strings.Contains(content, "containerd"):
		// Only match containerd if not already matched by kubernetes/docker/colima
		return model.RuntimeContainerd
	}
	return model.RuntimeNone
}
