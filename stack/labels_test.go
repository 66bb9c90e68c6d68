package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerName(t *testing.T) {
	assert.Equal(t, "demo-web-1", containerName("demo", "web", 1))
	assert.Equal(t, "prod-api-gateway-12", containerName("prod", "api-gateway", 12))
}

func TestBuildLabels(t *testing.T) {
	labels := buildLabels("demo", "web", 2, "deploy-abc", map[string]string{
		"team": "platform",
		// A user label colliding with a management key must lose.
		LabelService: "spoofed",
	})

	assert.Equal(t, ManagedByValue, labels[LabelManagedBy])
	assert.Equal(t, "demo", labels[LabelStack])
	assert.Equal(t, "web", labels[LabelService])
	assert.Equal(t, "2", labels[LabelReplicaIndex])
	assert.Equal(t, "deploy-abc", labels[LabelDeployID])
	assert.Equal(t, "platform", labels["team"])
}

func TestParseReplicaLabels_RoundTrip(t *testing.T) {
	labels := buildLabels("demo", "web", 7, "deploy-abc", nil)

	service, index, err := parseReplicaLabels(labels)
	require.NoError(t, err)
	assert.Equal(t, "web", service)
	assert.Equal(t, 7, index)
}

func TestParseReplicaLabels_Invalid(t *testing.T) {
	cases := []map[string]string{
		{},
		{LabelService: "web"},
		{LabelReplicaIndex: "1"},
		{LabelService: "web", LabelReplicaIndex: "zero"},
		{LabelService: "web", LabelReplicaIndex: "0"},
		{LabelService: "", LabelReplicaIndex: "1"},
	}
	for _, labels := range cases {
		_, _, err := parseReplicaLabels(labels)
		assert.Error(t, err, "labels %v should be unattributable", labels)
	}
}

func TestStackFilter(t *testing.T) {
	filter := stackFilter("demo")
	assert.Equal(t, ManagedByValue, filter[LabelManagedBy])
	assert.Equal(t, "demo", filter[LabelStack])
	assert.Len(t, filter, 2)
}
