package version

import (
	"fmt"
	"runtime"
)

// Build metadata injected through -ldflags. Zero values mean a plain
// `go build` without the release pipeline.
var (
	App       = "MattGitReview"
	Version   string
	GitCommit string
	BuildTime string
)

// String returns a one-line description for logs and the -version flag.
func String() string {
	s := fmt.Sprintf("%s version %s", App, versionOrDev())
	if GitCommit != "" {
		s += fmt.Sprintf(" (%s)", shortCommit())
	}
	return s
}

// PrintVersion writes the full build description to stdout.
func PrintVersion() {
	fmt.Println(String())
	if BuildTime != "" {
		fmt.Printf("Build time: %s\n", BuildTime)
	}
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("Built for:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func versionOrDev() string {
	if Version != "" {
		return Version
	}
	return "dev"
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
