package vboxmanage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	vmLineRe    = regexp.MustCompile(`^"(.+?)" \{([\w-]+)\}$`)
	mediaUUIDRe = regexp.MustCompile(`^UUID:\s+(\S+)$`)
)

const warningPrefix = "WARNING: "

// CheckWarning returns the warning VBoxManage printed at the start of
// stdout, or "" if there is none. The text stops before the first
// "UUID:" line, which is where list output resumes.
func CheckWarning(stdout string) string {
	if !strings.HasPrefix(stdout, warningPrefix) {
		return ""
	}
	text := strings.TrimPrefix(stdout, warningPrefix)
	if i := strings.Index(text, "\nUUID:"); i >= 0 {
		text = text[:i]
	}
	return warningPrefix + strings.TrimSuffix(text, "\n")
}

// ParseVMList parses `VBoxManage list vms` output
func ParseVMList(out string) ([]VM, error) {
	var vms []VM
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := vmLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unexpected vm list line: %q", line)
		}
		if _, err := uuid.Parse(m[2]); err != nil {
			return nil, fmt.Errorf("invalid uuid for vm %q: %w", m[1], err)
		}
		vms = append(vms, VM{Name: m[1], UUID: m[2]})
	}
	return vms, nil
}

// ParseVMInfo parses `VBoxManage showvminfo --machinereadable` output
func ParseVMInfo(out string) (VMInfo, error) {
	info := make(VMInfo)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("unexpected vm info line: %q", line)
		}
		key = strings.ToLower(unquote(key))
		value = unquote(value)

		// firmware is reported as "BIOS"/"EFI" but modifyvm wants lower case
		if key == "firmware" {
			value = strings.ToLower(value)
		}
		info[key] = value
	}
	return info, nil
}

// ParseMediaUUIDs returns the UUIDs listed by `VBoxManage list <media>`
func ParseMediaUUIDs(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if m := mediaUUIDRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// ParseOSTypes parses `VBoxManage list ostypes` output. Each entry starts
// with an "ID:" line; its "Description:" line follows.
func ParseOSTypes(out string) []OSType {
	var types []OSType
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "ID":
			types = append(types, OSType{ID: value})
		case "Description":
			if len(types) > 0 {
				types[len(types)-1].Description = value
			}
		}
	}
	return types
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
