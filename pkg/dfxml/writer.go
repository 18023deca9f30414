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
package dfxml

import (
	"encoding/xml"
	"io"
)

// DFXMLWriter streams a DFXML document.
type DFXMLWriter struct {
	w   io.Writer
	enc *xml.Encoder
}

func NewDFXMLWriter(w io.Writer) *DFXMLWriter {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	return &DFXMLWriter{
		w:   w,
		enc: enc,
	}
}

// WriteHeader writes the XML declaration, opens the root <dfxml> tag and
// writes the document metadata. Close must be called to end the document.
func (w *DFXMLWriter) WriteHeader(hdr DFXMLHeader) error {
	if _, err := io.WriteString(w.w, xml.Header); err != nil {
		return err
	}

	start := xml.StartElement{
		Name: xml.Name{Local: "dfxml"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmloutputversion"}, Value: hdr.XmlOutput},
		},
	}

	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}

	if err := w.encodeElement("metadata", hdr.Metadata); err != nil {
		return err
	}
	if err := w.encodeElement("creator", hdr.Creator); err != nil {
		return err
	}
	return w.encodeElement("source", hdr.Source)
}

func (w *DFXMLWriter) encodeElement(name string, v any) error {
	return w.enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}})
}

// WriteFileObject appends a <fileobject> element.
func (w *DFXMLWriter) WriteFileObject(obj FileObject) error {
	return w.enc.Encode(obj)
}

// Close ends the document and flushes the encoder.
func (w *DFXMLWriter) Close() error {
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "dfxml"}}); err != nil {
		return err
	}
	return w.enc.Flush()
}
