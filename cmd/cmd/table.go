package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ostafen/flashpart/internal/env"
	"github.com/ostafen/flashpart/pkg/dfxml"
	"github.com/ostafen/flashpart/pkg/flash"
	"github.com/ostafen/flashpart/pkg/partition"
	"github.com/ostafen/flashpart/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineTableCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "table [label]",
		Short:        "List the partitions of the flash image",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         RunTable,
	}

	cmd.Flags().String("format", "text", "output format (text, dfxml)")
	return cmd
}

func RunTable(cmd *cobra.Command, args []string) error {
	outFormat, _ := cmd.Flags().GetString("format")
	if outFormat != "text" && outFormat != "dfxml" {
		return fmt.Errorf("unknown output format %q", outFormat)
	}

	var label string
	if len(args) > 0 {
		label = args[0]
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	parts, err := collectPartitions(s.reg, label)
	if err != nil {
		return err
	}

	if outFormat == "dfxml" {
		return writeDFXMLTable(cmd.OutOrStdout(), s.cfg.Image, parts)
	}
	return writeTextTable(cmd.OutOrStdout(), parts)
}

// collectPartitions walks the registry with an iterator, in table order.
func collectPartitions(reg *partition.Registry, label string) ([]*partition.Descriptor, error) {
	it, err := reg.Find(partition.TypeData, partition.SubtypeAny, label)
	if err != nil {
		return nil, fmt.Errorf("no partition matches %q: %w", label, err)
	}
	defer it.Release()

	var parts []*partition.Descriptor
	for {
		p, err := it.Get()
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)

		if err := it.Next(); errors.Is(err, partition.ErrNotFound) {
			return parts, nil
		} else if err != nil {
			return nil, err
		}
	}
}

func writeTextTable(w io.Writer, parts []*partition.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tTYPE\tSUBTYPE\tADDRESS\tSIZE\tENCRYPTED")
	for _, p := range parts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t0x%06x\t%s\t%t\n",
			p.Label, p.Type, p.Subtype, p.Address, format.FormatBytes(int64(p.Size)), p.Encrypted)
	}
	return tw.Flush()
}

func writeDFXMLTable(w io.Writer, image string, parts []*partition.Descriptor) error {
	xw := dfxml.NewDFXMLWriter(w)

	err := xw.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: image,
			SectorSize:    flash.SectorSize,
			ImageSize:     flash.AddressSpace,
		},
	})
	if err != nil {
		return err
	}

	for _, p := range parts {
		err := xw.WriteFileObject(dfxml.FileObject{
			Filename: p.Label,
			FileSize: uint64(p.Size),
			Type:     p.Type.String(),
			Subtype:  p.Subtype.String(),
			ByteRuns: dfxml.ByteRuns{
				Runs: []dfxml.ByteRun{{ImgOffset: uint64(p.Address), Length: uint64(p.Size)}},
			},
		})
		if err != nil {
			return err
		}
	}
	return xw.Close()
}
