package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/alloc"
	"github.com/joshuapare/memkit/mem/report"
)

var (
	defragCapacity int
	defragOps      int
	defragSteps    int
	defragSeed     int64
)

func init() {
	cmd := newDefragCmd()
	cmd.Flags().IntVar(&defragCapacity, "capacity", 64<<10, "Initial free-list capacity in bytes")
	cmd.Flags().IntVar(&defragOps, "ops", 2000, "Random allocate/free steps before defragmenting")
	cmd.Flags().IntVar(&defragSteps, "steps", 64, "Maximum number of defragment calls")
	cmd.Flags().Int64Var(&defragSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newDefragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defrag",
		Short: "Fragment a free-list heap, then compact it incrementally",
		Long: `The defrag command churns a free-list allocator with random
allocations and frees, then calls Defragment up to --steps times. Each call
relocates one live block down into the lowest free region; the command
re-points its own handles after every move and verifies that no block's
contents changed.

Example:
  memctl defrag
  memctl defrag --ops 5000 --steps 200 -v
  memctl defrag --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefrag()
		},
	}
	return cmd
}

type defragResult struct {
	Before        report.Entry `json:"before"`
	After         report.Entry `json:"after"`
	LargestBefore int          `json:"largest_free_before"`
	LargestAfter  int          `json:"largest_free_after"`
	Moves         []alloc.Move `json:"moves"`
}

// compact fragments a FreeList with cfg and then runs up to steps
// Defragment calls, rebinding live blocks after each move.
func compact(cfg workload, steps int) (defragResult, error) {
	var out defragResult
	fl, err := alloc.NewFreeList(cfg.Capacity, nil)
	if err != nil {
		return out, err
	}
	defer fl.Close()

	var res runResult
	live, err := churn(fl, cfg, rand.New(rand.NewSource(cfg.Seed)), &res)
	if err != nil {
		return out, err
	}
	out.Before = report.Snapshot("before", fl)
	out.LargestBefore = fl.LargestFree()

	for range steps {
		m, moved, err := fl.Defragment()
		if err != nil {
			return out, err
		}
		if !moved {
			break
		}
		for i := range live {
			if blk, ok := m.Apply(live[i].blk); ok {
				live[i].blk = blk
			}
		}
		out.Moves = append(out.Moves, m)
		printVerbose("moved block %d -> %d (%d free regions)\n", m.From, m.To, len(fl.FreeBlocks()))
	}

	for _, lb := range live {
		for _, v := range fl.Bytes(lb.blk) {
			if v != lb.tag {
				return out, fmt.Errorf("block at %d changed during relocation", lb.blk.Off)
			}
		}
	}
	out.After = report.Snapshot("after", fl)
	out.LargestAfter = fl.LargestFree()

	for _, lb := range live {
		if err := fl.Deallocate(lb.blk); err != nil {
			return out, err
		}
	}
	return out, nil
}

func runDefrag() error {
	tag, err := outputLanguage()
	if err != nil {
		return err
	}

	printVerbose("Fragmenting %d-byte free list with %d steps (seed %d)\n", defragCapacity, defragOps, defragSeed)
	out, err := compact(workload{Capacity: defragCapacity, Ops: defragOps, Frames: 1, Seed: defragSeed}, defragSteps)
	if err != nil {
		return fmt.Errorf("defragmentation failed: %w", err)
	}

	if jsonOut {
		return printJSON(out)
	}
	if quiet {
		return nil
	}

	printInfo("\nDefragmentation complete:\n")
	printInfo("  Blocks moved: %d\n", len(out.Moves))
	printInfo("  Free regions: %d -> %d\n", out.Before.FreeBlocks, out.After.FreeBlocks)
	printInfo("  Largest free region: %s -> %s\n\n",
		report.Bytes(tag, out.LargestBefore), report.Bytes(tag, out.LargestAfter))
	return report.Text(os.Stdout, tag, out.Before, out.After)
}
