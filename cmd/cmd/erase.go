package cmd

import (
	"fmt"

	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/pbar"
	"github.com/spf13/cobra"
)

func DefineEraseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "erase <label>",
		Short:        "Erase a sector aligned range of a partition",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunErase,
	}

	cmd.Flags().String("offset", "0", "offset within the partition, a multiple of the sector size")
	cmd.Flags().String("size", "", "number of bytes to erase (default: up to the end of the partition)")
	cmd.Flags().Bool("no-progress", false, "do not render the progress bar")
	return cmd
}

func RunErase(cmd *cobra.Command, args []string) error {
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

	noProgress, _ := cmd.Flags().GetBool("no-progress")

	var progress func(erased, total uint32)
	var bar *pbar.ProgressBarState
	if !noProgress {
		bar = pbar.NewProgressBarState(cmd.ErrOrStderr(), "Erasing "+p.Label, int64(size))
		progress = func(erased, total uint32) {
			bar.Update(int64(size) * int64(erased) / int64(total))
		}
	}

	err = lock.Do(func() error {
		return s.pio.EraseRangeFunc(p, offset, size, progress)
	})
	if bar != nil && bar.ProcessedBytes > 0 {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("erase %s: %w", p.Label, err)
	}

	if err := s.img.Sync(); err != nil {
		return err
	}
	s.logger.Info("partition range erased", "label", p.Label, "offset", offset, "size", size)
	return nil
}
