// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"runtime/debug"
	"strings"
)

// BuildVersion is the latest tagged release of the server.
const BuildVersion string = "v1.0.0"

const shortRevisionLength = 8

type buildInfo struct {
	GoVersion   string
	VcsRevision string
	VcsTime     string
	VcsModified bool
}

// Revision returns "<date>-<short hash>[+dirty]" or "unknown" without VCS data.
func (b *buildInfo) Revision() string {
	if b.VcsRevision == "" {
		return "unknown"
	}

	revision := b.VcsRevision
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}

	s := strings.Split(b.VcsTime, "T")[0] + "-" + revision
	if b.VcsModified {
		s += "+dirty"
	}

	return s
}

func (b *buildInfo) load() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	b.GoVersion = info.GoVersion
	b.VcsRevision = getBuildSetting(info.Settings, "vcs.revision")
	b.VcsTime = getBuildSetting(info.Settings, "vcs.time")
	b.VcsModified = getBuildSetting(info.Settings, "vcs.modified") == "true"
}

func getBuildSetting(settings []debug.BuildSetting, key string) string {
	for _, kv := range settings {
		if key == kv.Key {
			return kv.Value
		}
	}

	return ""
}
