package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckShellCommandDeniesHead(t *testing.T) {
	v := CheckShellCommand("rm -rf /tmp/foo", "/work")
	require.True(t, v.Blocked)
	require.Contains(t, v.Reason, "rm")
}

func TestCheckShellCommandDeniesPipelineSegment(t *testing.T) {
	v := CheckShellCommand("echo hi | sudo tee /tmp/out", "/work")
	require.True(t, v.Blocked)
}

func TestCheckShellCommandDeniesCommandSubstitution(t *testing.T) {
	v := CheckShellCommand("echo $(cat /etc/shadow)", "/work")
	require.True(t, v.Blocked)
}

func TestCheckShellCommandAllowsPlainCommand(t *testing.T) {
	v := CheckShellCommand("ls -la /work/src", "/work")
	require.False(t, v.Blocked)
}

func TestCheckShellCommandCDEscapeBlocked(t *testing.T) {
	v := CheckShellCommand("cd ../../etc", "/work")
	require.True(t, v.Blocked)
}

func TestCheckShellCommandStripsNohupAndTrailingAmpersand(t *testing.T) {
	v := CheckShellCommand("nohup ls /work &", "/work")
	require.False(t, v.Blocked)
}

func TestTruncateOutputUnderLimit(t *testing.T) {
	require.Equal(t, "short", TruncateOutput("short"))
}

func TestTruncateOutputOverLimit(t *testing.T) {
	big := make([]byte, maxShellOutputBytes+10)
	out := TruncateOutput(string(big))
	require.Contains(t, out, "truncated")
}

func TestCheckFileWriteRefusesSystemRoot(t *testing.T) {
	err := CheckFileWrite("/etc/passwd", "/work")
	require.Error(t, err)
}

func TestCheckFileWriteAllowsWorkspace(t *testing.T) {
	err := CheckFileWrite("/work/out.txt", "/work")
	require.NoError(t, err)
}

func TestCheckFileWriteAllowsTmp(t *testing.T) {
	err := CheckFileWrite("/tmp/scratch.txt", "/work")
	require.NoError(t, err)
}

func TestCheckFileWriteRefusesDotfileOutsideWorkspace(t *testing.T) {
	err := CheckFileWrite("/home/user/.bashrc", "/work")
	require.Error(t, err)
}
