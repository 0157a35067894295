// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"strings"
	"testing"
)

var origInfo Info

func TestMain(m *testing.M) {
	origInfo = *info
	exitCode := m.Run()
	*info = origInfo
	os.Exit(exitCode)
}

func reset(name, tm, commit, version string) {
	*info = origInfo
	buildName, buildTime, buildCommit, buildVersion = name, tm, commit, version
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantMissing []string
	}{
		{"All flags", "bandfx", "2026-10-19", "abcdef1", "v0.3.0", nil},
		{"Missing commit", "bandfx", "2026-10-19", "", "v0.3.0", []string{"commit"}},
		{"Development build", "", "", "", "", []string{"name", "time", "commit", "version"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset(tt.buildName, tt.buildTime, tt.buildCommit, tt.buildVer)

			err := Initialize()

			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
				if info.Version != tt.buildVer || info.Commit != tt.buildCommit {
					t.Errorf("Get() = %+v, want version %s commit %s", info, tt.buildVer, tt.buildCommit)
				}
				return
			}

			if !errors.Is(err, ErrMissingFlags) {
				t.Fatalf("Initialize() error = %v, want ErrMissingFlags", err)
			}
			for _, flag := range tt.wantMissing {
				if !strings.Contains(err.Error(), flag) {
					t.Errorf("error %q does not mention %q", err, flag)
				}
			}
		})
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	reset("", "", "", "")
	_ = Initialize()

	got := Get()
	if got.Name != "bandfx" || got.Version != "dev" {
		t.Errorf("Get() = %+v, want development defaults", got)
	}
	if !strings.HasPrefix(got.String(), "bandfx dev") {
		t.Errorf("String() = %q", got.String())
	}
}
