package cmd

import (
	"io"
	"sync"

	"github.com/ostafen/flashpart/internal/fuse"
	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/partition"
	"github.com/spf13/cobra"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Expose the partitions as read-only files",
		Long: `The 'mount' command serves every partition of the flash image as a
read-only file named after its label, until SIGINT or SIGTERM is received.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunMount,
	}
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var mu sync.Mutex

	var entries []fuse.Entry
	for p := range s.reg.All(partition.TypeData, partition.SubtypeAny, "") {
		entries = append(entries, fuse.Entry{
			Name: p.Label,
			R:    &lockedReaderAt{mu: &mu, r: s.pio.NewSectionReader(p)},
			Size: uint64(p.Size),
		})
	}
	return fuse.Mount(args[0], entries, s.logger)
}

// lockedReaderAt serializes reads coming from concurrent FUSE requests
// before entering the flash critical section, which must not be nested.
type lockedReaderAt struct {
	mu *sync.Mutex
	r  io.ReaderAt
}

func (l *lockedReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	err = lock.Do(func() error {
		n, err = l.r.ReadAt(p, off)
		return err
	})
	return n, err
}
