package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/partition"
	osutil "github.com/ostafen/flashpart/pkg/util/os"
	"github.com/spf13/cobra"
)

func DefineReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <label>",
		Short: "Read a range of a partition",
		Long: `The 'read' command copies bytes out of a partition. Without --out the
range is printed as a hex dump.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunRead,
	}

	cmd.Flags().String("offset", "0", "offset within the partition")
	cmd.Flags().String("size", "", "number of bytes to read (default: up to the end of the partition)")
	cmd.Flags().StringP("out", "o", "", "write the raw bytes to the specified file")
	return cmd
}

func RunRead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.lookup(args[0])
	if err != nil {
		return err
	}

	offset, size, err := getRange(cmd, p)
	if err != nil {
		return err
	}
	if _, err := partition.CheckBounds(p, offset, size); err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")

	var w io.Writer
	if outPath != "" {
		f, err := osutil.CreateFile(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	} else {
		dumper := hex.Dumper(cmd.OutOrStdout())
		defer dumper.Close()
		w = dumper
	}

	r := io.NewSectionReader(s.pio.NewSectionReader(p), int64(offset), int64(size))

	var n int64
	err = lock.Do(func() error {
		var err error
		n, err = io.Copy(w, r)
		return err
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", p.Label, err)
	}

	s.logger.Info("partition read", "label", p.Label, "offset", offset, "bytes", n)
	return nil
}
