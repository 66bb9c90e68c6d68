package stack

import (
	"fmt"
	"strconv"
)

// Label key constants define the labels stamped onto every container a
// stack creates. Labels are the only durable state this layer owns: a
// fresh process can rebuild its realized-container table purely from a
// label-filtered container listing (see Attach).
//
// All keys share the "caravel." prefix to namespace them away from labels
// set by other tooling on the same host.
const (
	// labelPrefix is the common prefix for all caravel labels.
	labelPrefix = "caravel."

	// LabelManagedBy identifies containers managed by this library.
	// Key: "caravel.managed-by", value: always ManagedByValue.
	LabelManagedBy = labelPrefix + "managed-by"

	// LabelStack stores the owning stack's name.
	LabelStack = labelPrefix + "stack"

	// LabelService stores the logical service name within the stack.
	LabelService = labelPrefix + "service"

	// LabelReplicaIndex stores the 1-based replica index that also appears
	// in the container name ({stack}-{service}-{index}).
	LabelReplicaIndex = labelPrefix + "replica-index"

	// LabelDeployID stores the deployment ID minted for the Up call that
	// created the container, correlating containers from one rollout.
	LabelDeployID = labelPrefix + "deploy-id"
)

// ManagedByValue is the constant value of the LabelManagedBy label.
const ManagedByValue = "caravel"

// containerName derives the deterministic name for one replica.
// The 1-based index keeps replicas individually addressable and lets a
// re-run Up find containers it already created by name.
func containerName(stackName, serviceName string, index int) string {
	return fmt.Sprintf("%s-%s-%d", stackName, serviceName, index)
}

// buildLabels constructs the label map for one replica: the caravel
// management labels plus the service descriptor's user labels. User
// labels never override the management keys.
func buildLabels(stackName, serviceName string, index int, deployID string, user map[string]string) map[string]string {
	labels := make(map[string]string, len(user)+5)
	for k, v := range user {
		labels[k] = v
	}
	labels[LabelManagedBy] = ManagedByValue
	labels[LabelStack] = stackName
	labels[LabelService] = serviceName
	labels[LabelReplicaIndex] = strconv.Itoa(index)
	labels[LabelDeployID] = deployID
	return labels
}

// stackFilter returns the label filter selecting every container that
// belongs to the named stack.
func stackFilter(stackName string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelStack:     stackName,
	}
}

// parseReplicaLabels extracts the service name and replica index from a
// container's labels. Containers missing either label cannot be
// attributed to a service and are reported as an error.
func parseReplicaLabels(labels map[string]string) (service string, index int, err error) {
	service, ok := labels[LabelService]
	if !ok || service == "" {
		return "", 0, fmt.Errorf("missing required label %s", LabelService)
	}
	indexStr, ok := labels[LabelReplicaIndex]
	if !ok {
		return "", 0, fmt.Errorf("missing required label %s", LabelReplicaIndex)
	}
	index, err = strconv.Atoi(indexStr)
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("invalid label %s=%q", LabelReplicaIndex, indexStr)
	}
	return service, index, nil
}
