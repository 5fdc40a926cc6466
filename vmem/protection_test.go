package vmem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Krantz-XRF/memory-manager/vmem"
)

func TestProtectionString(t *testing.T) {
	require.Equal(t, "ProtNone", vmem.ProtNone.String())
	require.Equal(t, "ProtRead", vmem.ProtRead.String())
	require.Equal(t, "ProtWrite", vmem.ProtWrite.String())
	require.Equal(t, "ProtExec", vmem.ProtExec.String())
	require.Equal(t, "ProtRead|ProtWrite", (vmem.ProtRead | vmem.ProtWrite).String())
	require.Equal(t, "ProtWrite|ProtExec", (vmem.ProtWrite | vmem.ProtExec).String())
	require.Equal(t, "ProtRead|ProtWrite|ProtExec", (vmem.ProtRead | vmem.ProtWrite | vmem.ProtExec).String())
}
