package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/spf13/cobra"
)

func DefineInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an erased flash image",
		Long: `The 'init' command creates the flash image file with every byte erased.
An existing image is left untouched unless --force is given, in which case
every partition of the image is erased.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunInit,
	}

	cmd.Flags().BoolP("force", "f", false, "erase all partitions of an existing image")
	return cmd
}

func RunInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !force {
		if err := checkImageAbsent(cfg.Image); err != nil {
			return err
		}
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if force {
		for i := range s.reg.Len() {
			p := s.reg.At(i)
			if err := lock.Do(func() error { return s.pio.EraseRange(p, 0, p.Size) }); err != nil {
				return fmt.Errorf("erase %s: %w", p.Label, err)
			}
			s.logger.Info("partition erased", "label", p.Label, "size", p.Size)
		}
	}

	if err := s.img.Sync(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "flash image %s ready (%d partitions)\n", s.cfg.Image, s.reg.Len())
	return nil
}

var errImageExists = errors.New("flash image already exists")

func checkImageAbsent(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return fmt.Errorf("%w: %s (use --force to erase it)", errImageExists, path)
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
