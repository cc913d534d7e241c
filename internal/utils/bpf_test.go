package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/internal/utils"
)

func TestCompileBpf_ValidFilterProducesInstructions(t *testing.T) {
	insns, err := utils.CompileBpf("tcp and port 80", 65535)
	require.NoError(t, err)
	assert.NotEmpty(t, insns)
}

func TestCompileBpf_InvalidFilterErrors(t *testing.T) {
	_, err := utils.CompileBpf("not a valid filter (((", 65535)
	assert.Error(t, err)
}
