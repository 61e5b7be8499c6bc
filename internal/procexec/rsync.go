package procexec

import "fmt"

// RsyncArgs bundles the inputs needed to construct an rsync invocation
// a fixed base, user options, an
// optional --link-dest reference, a locality-dependent source, and an
// incomplete-name destination.
type RsyncArgs struct {
	ExtraOptions    []string
	ExcludeFromFile string
	ReferenceName   string // empty when there is no reference snapshot
	RemoteHost      string
	RemoteUser      string
	LocalUser       string
	SourceDir       string
	DestName        string // e.g. "<start>-incomplete"
}

// BuildRsyncArgv constructs the argv rsync will be spawned with. Locality
// is defined as remote_host being localhost/127.0.0.1 and remote_user
// matching the local user or being unset.
func BuildRsyncArgv(a RsyncArgs) []string {
	argv := []string{"-aq", "--delete"}
	argv = append(argv, a.ExtraOptions...)

	if a.ExcludeFromFile != "" {
		argv = append(argv, "--exclude-from", a.ExcludeFromFile)
	}

	if a.ReferenceName != "" {
		argv = append(argv, fmt.Sprintf("--link-dest=../%s", a.ReferenceName))
	}

	argv = append(argv, source(a), a.DestName)
	return argv
}

func source(a RsyncArgs) string {
	if isLocal(a.RemoteHost, a.RemoteUser, a.LocalUser) {
		return a.SourceDir
	}
	return fmt.Sprintf("%s@%s:%s/", a.RemoteUser, a.RemoteHost, a.SourceDir)
}

func isLocal(remoteHost, remoteUser, localUser string) bool {
	if remoteHost != "localhost" && remoteHost != "127.0.0.1" {
		return false
	}
	return remoteUser == "" || remoteUser == localUser
}

// RsyncExitMeaning classifies an rsync exit code into the three buckets
// the creation state machine reacts to.
type RsyncExitMeaning int

const (
	RsyncOK RsyncExitMeaning = iota
	RsyncRestartable
	RsyncFatal
)

// ClassifyRsyncExit maps a raw exit code to its meaning: 0/23/24 succeed
// (23/24 being partial-transfer, which is acceptable here), 12/13 are
// restartable, everything else is fatal for this attempt.
func ClassifyRsyncExit(code int) RsyncExitMeaning {
	switch code {
	case 0, 23, 24:
		return RsyncOK
	case 12, 13:
		return RsyncRestartable
	default:
		return RsyncFatal
	}
}
