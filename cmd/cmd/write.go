package cmd

import (
	"fmt"
	"os"

	"github.com/ostafen/flashpart/pkg/flash"
	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/nvs"
	"github.com/spf13/cobra"
)

func DefineWriteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <label> <file>",
		Short: "Write the content of a file into a partition",
		Long: `The 'write' command programs the content of a file at the given offset of a
partition. Flash writes can only clear bits: pass --erase to erase the
sectors covering the range first. With --encrypted the length of the file
must be a multiple of the encryption block size.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunWrite,
	}

	cmd.Flags().String("offset", "0", "offset within the partition")
	cmd.Flags().Bool("erase", false, "erase the sectors covering the range before writing")
	cmd.Flags().Bool("encrypted", false, "use the block aligned write path")
	return cmd
}

func RunWrite(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	offset, err := getBytes(cmd, "offset", 0)
	if err != nil {
		return err
	}
	erase, _ := cmd.Flags().GetBool("erase")
	encrypted, _ := cmd.Flags().GetBool("encrypted")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := nvs.Open(s.pio, s.reg, args[0])
	if err != nil {
		return err
	}

	err = lock.Do(func() error {
		if erase {
			start, size := sectorSpan(offset, uint32(len(data)))
			if err := p.EraseRange(start, size); err != nil {
				return err
			}
		}
		if encrypted {
			return p.Write(offset, data)
		}
		return p.WriteRaw(offset, data)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", p.Name(), err)
	}

	if err := s.img.Sync(); err != nil {
		return err
	}
	s.logger.Info("partition written", "label", p.Name(), "offset", offset, "bytes", len(data), "erased", erase)
	return nil
}

// sectorSpan widens [offset, offset+n) to whole sectors. Partitions start on
// a sector boundary, so relative and absolute alignment agree.
func sectorSpan(offset, n uint32) (start, size uint32) {
	start = offset - offset%flash.SectorSize
	end := uint64(offset) + uint64(n)
	if rem := end % flash.SectorSize; rem != 0 {
		end += flash.SectorSize - rem
	}
	return start, uint32(end - uint64(start))
}
