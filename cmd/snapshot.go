package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/example/riscv-core/machine"
)

// Snapshot is a point-in-time dump of a Machine's architectural state,
// hex-encoded the way the reference tooling's JSON state format does
// (via go-ethereum's hexutil types) so a snapshot is diffable and greppable
// without a custom decoder. This engine has no witness/proof format to
// preserve, so unlike the reference tooling's VMState dump, a Snapshot
// carries no Merkleization-related fields - it exists purely for
// inspection and diffing, not for on-chain dispute replay. Memory is
// recorded only as a page count and digest, and nothing in this tree
// restores a Machine from a Snapshot, so a run cannot be resumed from one.
type Snapshot struct {
	Step        uint64             `json:"step"`
	PC          hexutil.Uint64     `json:"pc"`
	Regs        [32]hexutil.Uint64 `json:"regs"`
	Exited      bool               `json:"exited"`
	ExitCode    uint8              `json:"exitCode"`
	Pages       int                `json:"pages"`
	PagesDigest hexutil.Bytes      `json:"pagesDigest"`
}

// TakeSnapshot captures m's current state.
func TakeSnapshot(m *machine.Machine, step uint64) *Snapshot {
	digest := m.Memory().Digest()
	s := &Snapshot{
		Step:        step,
		PC:          hexutil.Uint64(m.CPU().PC),
		Exited:      m.Exited(),
		ExitCode:    m.ExitCode(),
		Pages:       m.Memory().PageCount(),
		PagesDigest: digest[:],
	}
	for i := range s.Regs {
		s.Regs[i] = hexutil.Uint64(m.CPU().GetReg(uint8(i)))
	}
	return s
}

// WriteSnapshot writes a Snapshot of m as indented JSON to path.
func WriteSnapshot(m *machine.Machine, step uint64, path string) error {
	data, err := json.MarshalIndent(TakeSnapshot(m, step), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
