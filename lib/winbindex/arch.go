// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package winbindex

// Arch is the CPU target of a binary, derived from its PE machine type.
type Arch string

const (
	ArchX86     Arch = "x86"
	ArchAMD64   Arch = "amd64"
	ArchARM64   Arch = "arm64"
	ArchARM     Arch = "arm"
	ArchInvalid Arch = "invalid"
)

// PE machine types (IMAGE_FILE_MACHINE_*).
const (
	machineI386  = 0x14c
	machineARMNT = 0x1c4
	machineAMD64 = 0x8664
	machineARM64 = 0xaa64
)

// Arches lists the valid architectures in the order the orchestrator
// processes them.
var Arches = []Arch{ArchAMD64, ArchARM64, ArchX86, ArchARM}

// ArchFromMachineType maps a PE machine type to an Arch. Unrecognized
// machine types map to ArchInvalid.
func ArchFromMachineType(machineType uint32) Arch {
	switch machineType {
	case machineAMD64:
		return ArchAMD64
	case machineI386:
		return ArchX86
	case machineARMNT:
		return ArchARM
	case machineARM64:
		return ArchARM64
	default:
		return ArchInvalid
	}
}

// ParseArch maps an architecture name to an Arch. Unrecognized names
// map to ArchInvalid.
func ParseArch(name string) Arch {
	switch Arch(name) {
	case ArchX86, ArchAMD64, ArchARM64, ArchARM:
		return Arch(name)
	default:
		return ArchInvalid
	}
}

func (a Arch) String() string {
	return string(a)
}

// Valid reports whether a is a real architecture.
func (a Arch) Valid() bool {
	return a != ArchInvalid && ParseArch(string(a)) == a
}
