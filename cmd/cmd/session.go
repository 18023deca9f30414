// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/ostafen/flashpart/internal/config"
	"github.com/ostafen/flashpart/internal/logger"
	"github.com/ostafen/flashpart/pkg/flash"
	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/partition"
	"github.com/ostafen/flashpart/pkg/util/format"
	"github.com/spf13/cobra"
)

// session bundles what every command needs to touch the flash image.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *partition.Registry
	pio    *partition.IO
	img    *flash.Image

	logFile *os.File
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(cmd.Flags(), configFile)
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newSession(cfg)
}

func newSession(cfg *config.Config) (*session, error) {
	log, logFile, err := logger.Open(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	if cfg.StrictLock {
		lock.SetMode(lock.Strict)
	}

	img, err := flash.OpenImage(cfg.Image, flash.AddressSpace)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("open image %s: %w", cfg.Image, err)
	}

	log.Debug("image opened", "path", cfg.Image, "size", img.Size(), "lock", lock.CurrentMode())

	return &session{
		cfg:     cfg,
		logger:  log,
		reg:     partition.Default().WithLogger(log),
		pio:     partition.NewIO(img, log),
		img:     img,
		logFile: logFile,
	}, nil
}

func (s *session) Close() error {
	err := s.img.Close()
	if s.logFile != nil {
		err = errors.Join(err, s.logFile.Close())
	}
	return err
}

// lookup resolves a data partition by label.
func (s *session) lookup(label string) (*partition.Descriptor, error) {
	p, err := s.reg.FindFirst(partition.TypeData, partition.SubtypeDataNVS, label)
	if err != nil {
		return nil, fmt.Errorf("partition %q: %w", label, err)
	}
	return p, nil
}

// getBytes parses a byte size flag. An empty value yields def.
func getBytes(cmd *cobra.Command, name string, def uint32) (uint32, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return def, nil
	}

	n, err := format.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("invalid --%s: %s exceeds the flash address space", name, s)
	}
	return uint32(n), nil
}

// getRange returns the --offset and --size flags, size defaulting to the rest
// of the partition.
func getRange(cmd *cobra.Command, p *partition.Descriptor) (offset, size uint32, err error) {
	offset, err = getBytes(cmd, "offset", 0)
	if err != nil {
		return 0, 0, err
	}

	var rest uint32
	if offset < p.Size {
		rest = p.Size - offset
	}

	size, err = getBytes(cmd, "size", rest)
	if err != nil {
		return 0, 0, err
	}
	return offset, size, nil
}
