package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ostafen/flashpart/internal/logger"
	"github.com/ostafen/flashpart/pkg/dfxml"
	"github.com/ostafen/flashpart/pkg/partition"
	"github.com/spf13/cobra"
)

var errTableMismatch = errors.New("partition table mismatch")

func DefineVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <report.xml>",
		Short: "Check a DFXML partition table against the linked layout",
		Long: `The 'verify' command reads a partition table exported with
'table --format dfxml' and checks that every partition it lists exists in
this build with the same type, subtype, image offset and size, and that no
partition of the build is missing from it.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunVerify,
	}
	return cmd
}

func RunVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, logFile, err := logger.Open(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	reg := partition.Default().WithLogger(log)

	problems, err := verifyTable(reg, bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	for _, p := range problems {
		fmt.Fprintln(out, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %d problem(s) in %s", errTableMismatch, len(problems), args[0])
	}

	fmt.Fprintf(out, "%s matches the partition table (%d partitions)\n", args[0], reg.Len())
	return nil
}

// verifyTable lists the differences between the partitions described by a
// DFXML report and reg.
func verifyTable(reg *partition.Registry, r io.Reader) ([]string, error) {
	var problems []string
	seen := make(map[string]bool, reg.Len())

	err := dfxml.WalkFileObjects(r, func(fo dfxml.FileObject) error {
		if fo.Filename == "" {
			problems = append(problems, "file object without a partition label")
			return nil
		}
		if seen[fo.Filename] {
			problems = append(problems, fmt.Sprintf("%s: listed twice", fo.Filename))
			return nil
		}
		seen[fo.Filename] = true

		p, err := reg.FindFirst(partition.TypeData, partition.SubtypeAny, fo.Filename)
		if errors.Is(err, partition.ErrNotFound) {
			problems = append(problems, fmt.Sprintf("%s: not in the partition table", fo.Filename))
			return nil
		}
		if err != nil {
			return err
		}

		if fo.Type != p.Type.String() || fo.Subtype != p.Subtype.String() {
			problems = append(problems, fmt.Sprintf("%s: type %s/%s, want %s/%s",
				fo.Filename, fo.Type, fo.Subtype, p.Type, p.Subtype))
		}

		off, n, err := fo.Extent()
		if err != nil {
			problems = append(problems, err.Error())
			return nil
		}
		if off != uint64(p.Address) || n != uint64(p.Size) {
			problems = append(problems, fmt.Sprintf("%s: image range 0x%x+%d, want 0x%x+%d",
				fo.Filename, off, n, p.Address, p.Size))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for p := range reg.All(partition.TypeData, partition.SubtypeAny, "") {
		if !seen[p.Label] {
			problems = append(problems, fmt.Sprintf("%s: missing from the report", p.Label))
		}
	}
	return problems, nil
}
