// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X bandfx/pkg/build.buildVersion=0.3.0 \
//	    -X bandfx/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X bandfx/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds carry no ldflags; they report the "dev" version and
// still run.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = &Info{
	Name:        "bandfx",
	Description: "Band onset analysis and real-time playback effects",
	Time:        "unknown",
	Commit:      "unknown",
	Version:     "dev",
}

// ErrMissingFlags is returned by Initialize when some ldflags were not set.
var ErrMissingFlags = errors.New("build flags missing")

// Initialize copies the ldflags into the Info returned by Get. Flags that
// were not provided keep their development defaults and are reported in
// the returned error so release pipelines can fail loudly, while local
// builds can ignore it.
func Initialize() error {
	var missing []error
	set := func(dst *string, val, name string) {
		if val == "" {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingFlags, name))
			return
		}
		*dst = val
	}

	set(&info.Name, buildName, "name")
	set(&info.Time, buildTime, "time")
	set(&info.Commit, buildCommit, "commit")
	set(&info.Version, buildVersion, "version")

	return errors.Join(missing...)
}

// Get returns the current build information.
func Get() *Info {
	return info
}

// String renders a one-line version banner.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
