// Package cliaction adapts the single-action lifecycle to tools invoked as
// external executables: it assembles the command line from input artifact
// lists and extra arguments, emits a launch script with log siblings, waits
// for the script write to settle, runs the tool and optionally collects
// fanned-out output files.
package cliaction

import (
	"sort"
	"strings"

	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
)

// Assemble builds the full command line for one invocation.
//
// Layout rules:
//  1. The quoted executable URL.
//  2. Positional arguments in the configured order. A position names
//     either an input slot (each artifact url, quoted) or an extra-arg key
//     (its value, quoted).
//  3. One flag per remaining input slot followed by each artifact url,
//     quoted. Slots yielding no usable url are skipped entirely.
//  4. One flag per remaining extra-arg key, followed by its quoted value;
//     a nil value makes a bare switch.
//  5. Output destinations in indicated order, flag-tagged when a flag is
//     configured for that position, positional otherwise.
//
// Non-positional slots and keys are emitted in sorted order, so two calls
// with identical arguments yield byte-identical command strings.
func Assemble(exe string, inputs map[string][]*artefact.Artifact, extraArgs map[string]*string, positions []string, outputs []*artefact.Artifact, outputFlags []string) string {
	parts := []string{quote(exe)}
	positional := map[string]bool{}
	for _, p := range positions {
		positional[p] = true
	}

	for _, key := range positions {
		if list, ok := inputs[key]; ok {
			parts = append(parts, quoteURLs(list)...)
			continue
		}
		if value, ok := extraArgs[key]; ok && value != nil {
			parts = append(parts, quote(*value))
		}
	}

	for _, key := range sortedKeys(inputs) {
		if positional[key] {
			continue
		}
		urls := quoteURLs(inputs[key])
		if len(urls) == 0 {
			continue
		}
		parts = append(parts, flag(key))
		parts = append(parts, urls...)
	}

	for _, key := range sortedArgKeys(extraArgs) {
		if positional[key] {
			continue
		}
		parts = append(parts, flag(key))
		if value := extraArgs[key]; value != nil {
			parts = append(parts, quote(*value))
		}
	}

	for i, out := range outputs {
		if i < len(outputFlags) && outputFlags[i] != "" {
			parts = append(parts, "--"+outputFlags[i])
		}
		parts = append(parts, quote(out.URL))
	}

	return strings.Join(parts, " ")
}

// flag renders an argument key: single-character keys get one dash,
// longer keys two.
func flag(key string) string {
	if len(key) == 1 {
		return "-" + key
	}
	return "--" + key
}

func quote(s string) string {
	return `"` + s + `"`
}

func quoteURLs(list []*artefact.Artifact) []string {
	var out []string
	for _, a := range list {
		if a == nil || a.URL == "" {
			continue
		}
		out = append(out, quote(a.URL))
	}
	return out
}

func sortedKeys(m map[string][]*artefact.Artifact) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedArgKeys(m map[string]*string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
