// Package engine defines the container engine facade the stack
// orchestrator drives, together with its Docker implementation.
//
// The Client interface covers exactly the primitive operations the
// orchestration layer depends on: container create/start/stop/restart/
// remove/inspect/logs, network and volume provisioning, and image pulls.
// Results are typed records (Handle, ContainerState) rather than the
// engine's open-ended inspect payloads.
//
// Docker is the production implementation, built on
// github.com/docker/docker/client with automatic socket detection
// (DOCKER_HOST, then platform default paths) and API version negotiation.
// Tests substitute an in-memory Client; nothing in the orchestrator
// reaches for ambient engine state.
package engine
