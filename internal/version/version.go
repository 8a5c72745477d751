/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version holds build information.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via ldflags:
//
//	-X github.com/friendsincode/recruitd/internal/version.Version=X.Y.Z
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns a one-line build description.
func String() string {
	return fmt.Sprintf("recruitd %s (commit %s, built %s, %s)", Version, Commit, BuildDate, runtime.Version())
}
