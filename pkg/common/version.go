package common

import (
	"fmt"
	"strings"
)

// ProgramName is used in the User-Agent and the version banner
const ProgramName = "storefront-detector"

var (
	// PV is the current version object of the program
	PV ProgramVersion
	// Version is set at build time with -ldflags "-X ...common.Version=1.2.3"
	Version = "dev"
	// CommitHash is the current commit hash of the program
	CommitHash = "unknown"
	// BuildTime is the current build time of the program
	BuildTime = "unknown"
)

func init() {
	PV.Version = Version
	PV.CommitHash = CommitHash
	PV.BuildTime = BuildTime
}

// ProgramVersion is the version object of the program
type ProgramVersion struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
}

// Short returns the short version of the program
func (v ProgramVersion) Short() string {
	return fmt.Sprintf("v%s-%s-%s", v.Version, v.CommitHash, v.BuildTime)
}

// UserAgent returns the User-Agent sent to the classification service
func (v ProgramVersion) UserAgent() string {
	return fmt.Sprintf("%s/%s", ProgramName, v.Version)
}

// String returns the verbose version of the program
func (v ProgramVersion) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s\n", ProgramName, v.Version)
	fmt.Fprintf(&b, "Commit: %s\n", v.CommitHash)
	fmt.Fprintf(&b, "Build Date: %s", v.BuildTime)
	return b.String()
}
