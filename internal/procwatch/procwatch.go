// Package procwatch associates tracked agents with live processes. It is
// pure enrichment: a probe failure never affects status tracking, and
// results only decorate snapshots.
package procwatch

import (
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// cpuActiveThreshold is the CPU percentage above which an agent process
// is considered actively working rather than parked at a prompt.
const cpuActiveThreshold = 5.0

// Activity describes one agent process keyed by its working directory.
type Activity struct {
	PID       int32
	CPU       float64
	CPUActive bool
}

// agentBinaries are executable basenames recognized as coding-agent
// processes.
var agentBinaries = map[string]bool{
	"claude":      true,
	"claude-code": true,
	"codex":       true,
}

// Probe enumerates processes and returns agent activity keyed by working
// directory. When several agent processes share a directory the one with
// the higher CPU wins. All per-process errors are skipped.
func Probe() map[string]Activity {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	byDir := make(map[string]Activity)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if !isAgentProcess(p, name) {
			continue
		}

		cwd, err := p.Cwd()
		if err != nil || cwd == "" {
			continue
		}

		cpu, _ := p.CPUPercent()
		a := Activity{
			PID:       p.Pid,
			CPU:       cpu,
			CPUActive: cpu >= cpuActiveThreshold,
		}
		if existing, ok := byDir[cwd]; !ok || a.CPU > existing.CPU {
			byDir[cwd] = a
		}
	}
	return byDir
}

// isAgentProcess matches agent binaries directly, plus node processes
// whose command line runs one.
func isAgentProcess(p *process.Process, name string) bool {
	if agentBinaries[filepath.Base(name)] {
		return true
	}
	if filepath.Base(name) != "node" {
		return false
	}
	args, err := p.CmdlineSlice()
	if err != nil || len(args) < 2 {
		return false
	}
	for _, arg := range args[1:] {
		if strings.Contains(arg, "claude") && !strings.Contains(arg, "node_modules/.bin") {
			return true
		}
	}
	return false
}
