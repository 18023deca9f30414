package dfxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotDFXML      = errors.New("dfxml: missing <dfxml> root element")
	ErrNotContiguous = errors.New("dfxml: file object is not a single byte run")
)

// WalkFileObjects decodes the <fileobject> elements of a DFXML document one
// at a time, in document order, stopping at the first error fn returns.
func WalkFileObjects(r io.Reader, fn func(FileObject) error) error {
	dec := xml.NewDecoder(r)

	root := false
	for n := 0; ; {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("dfxml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "dfxml":
			root = true
		case "fileobject":
			var fo FileObject
			if err := dec.DecodeElement(&fo, &start); err != nil {
				return fmt.Errorf("dfxml: fileobject #%d: %w", n, err)
			}
			n++

			if err := fn(fo); err != nil {
				return err
			}
		}
	}

	if !root {
		return ErrNotDFXML
	}
	return nil
}

// ReadFileObjects returns every <fileobject> of a DFXML document.
func ReadFileObjects(r io.Reader) ([]FileObject, error) {
	var objs []FileObject
	err := WalkFileObjects(r, func(fo FileObject) error {
		objs = append(objs, fo)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objs, nil
}

// Extent returns the image range of an object stored in one byte run, the
// way partitions are exported.
func (fo *FileObject) Extent() (offset, length uint64, err error) {
	if len(fo.ByteRuns.Runs) != 1 {
		return 0, 0, fmt.Errorf("%w: %q has %d runs", ErrNotContiguous, fo.Filename, len(fo.ByteRuns.Runs))
	}

	run := fo.ByteRuns.Runs[0]
	if run.Offset != 0 || run.Length != fo.FileSize {
		return 0, 0, fmt.Errorf("%w: %q run covers [%d, %d) of %d bytes", ErrNotContiguous, fo.Filename, run.Offset, run.Offset+run.Length, fo.FileSize)
	}
	return run.ImgOffset, run.Length, nil
}
