package procexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRsyncArgv_NoReference(t *testing.T) {
	argv := BuildRsyncArgv(RsyncArgs{
		RemoteHost: "localhost",
		LocalUser:  "alice",
		SourceDir:  "/data",
		DestName:   "1000-incomplete",
	})
	assert.Equal(t, []string{"-aq", "--delete", "/data", "1000-incomplete"}, argv)
}

func TestBuildRsyncArgv_WithReference(t *testing.T) {
	argv := BuildRsyncArgv(RsyncArgs{
		RemoteHost:    "localhost",
		LocalUser:     "alice",
		SourceDir:     "/data",
		ReferenceName: "100-200.a-b",
		DestName:      "1000-incomplete",
	})
	assert.Equal(t, []string{"-aq", "--delete", "--link-dest=../100-200.a-b", "/data", "1000-incomplete"}, argv)
}

func TestBuildRsyncArgv_RemoteSource(t *testing.T) {
	argv := BuildRsyncArgv(RsyncArgs{
		RemoteHost: "backup.example.com",
		RemoteUser: "bob",
		SourceDir:  "/data",
		DestName:   "1000-incomplete",
	})
	assert.Equal(t, []string{"-aq", "--delete", "bob@backup.example.com:/data/", "1000-incomplete"}, argv)
}

func TestBuildRsyncArgv_ExtraOptionsAndExclude(t *testing.T) {
	argv := BuildRsyncArgv(RsyncArgs{
		RemoteHost:      "localhost",
		LocalUser:       "alice",
		ExtraOptions:    []string{"--bwlimit=1000"},
		ExcludeFromFile: "/etc/snapguard/excludes",
		SourceDir:       "/data",
		DestName:        "1000-incomplete",
	})
	assert.Equal(t, []string{
		"-aq", "--delete", "--bwlimit=1000",
		"--exclude-from", "/etc/snapguard/excludes",
		"/data", "1000-incomplete",
	}, argv)
}

func TestIsLocal(t *testing.T) {
	assert.True(t, isLocal("localhost", "", "alice"))
	assert.True(t, isLocal("127.0.0.1", "alice", "alice"))
	assert.False(t, isLocal("127.0.0.1", "bob", "alice"))
	assert.False(t, isLocal("remote.example.com", "", "alice"))
}

func TestClassifyRsyncExit(t *testing.T) {
	assert.Equal(t, RsyncOK, ClassifyRsyncExit(0))
	assert.Equal(t, RsyncOK, ClassifyRsyncExit(23))
	assert.Equal(t, RsyncOK, ClassifyRsyncExit(24))
	assert.Equal(t, RsyncRestartable, ClassifyRsyncExit(12))
	assert.Equal(t, RsyncRestartable, ClassifyRsyncExit(13))
	assert.Equal(t, RsyncFatal, ClassifyRsyncExit(1))
}
