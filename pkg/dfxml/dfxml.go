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
	"os"
	"os/user"
	"runtime"
	"strconv"
	"time"
)

const XmlOutputVersion = "1.0"

var DefaultMetadata = Metadata{
	Xmlns:    "http://www.forensicswiki.org/wiki/Category:Digital_Forensics_XML",
	XmlnsXsi: "http://www.w3.org/2001/XMLSchema-instance",
	XmlnsDC:  "http://purl.org/dc/elements/1.1/",
	Type:     "Partition Table",
}

// DFXMLHeader represents the root element of a DFXML document.
type DFXMLHeader struct {
	XMLName   xml.Name `xml:"dfxml"`
	XmlOutput string   `xml:"xmloutputversion,attr,omitempty"` // omitted once written as an attribute of the root tag
	Metadata  Metadata `xml:"metadata"`
	Creator   Creator  `xml:"creator"`
	Source    Source   `xml:"source"`
}

// Metadata contains various metadata attributes for the DFXML document.
type Metadata struct {
	Xmlns    string `xml:"xmlns,attr"`
	XmlnsXsi string `xml:"xmlns:xsi,attr"`
	XmlnsDC  string `xml:"xmlns:dc,attr"`
	Type     string `xml:"dc:type"`
}

// Creator describes the software and environment used to generate the DFXML.
type Creator struct {
	Package              string  `xml:"package"`
	Version              string  `xml:"version"`
	ExecutionEnvironment ExecEnv `xml:"execution_environment"`
}

type ExecEnv struct {
	OS    string `xml:"os_sysname"`
	Host  string `xml:"host"`
	Arch  string `xml:"arch"`
	UID   int    `xml:"uid"`
	Start string `xml:"start_time"`
}

// Source describes the flash image the partitions live in.
type Source struct {
	ImageFilename string `xml:"image_filename"`
	SectorSize    int    `xml:"sectorsize"`
	ImageSize     uint64 `xml:"image_size"`
}

// FileObject describes one partition. Its single byte run locates the
// partition inside the image.
type FileObject struct {
	XMLName  xml.Name `xml:"fileobject"`
	Filename string   `xml:"filename"`
	FileSize uint64   `xml:"filesize"`
	Type     string   `xml:"partition_type,omitempty"`
	Subtype  string   `xml:"partition_subtype,omitempty"`
	ByteRuns ByteRuns `xml:"byte_runs"`
}

type ByteRuns struct {
	Runs []ByteRun `xml:"byte_run"`
}

// ByteRun describes a contiguous extent of the image.
type ByteRun struct {
	Offset    uint64 `xml:"offset,attr"`     // offset within the object
	ImgOffset uint64 `xml:"img_offset,attr"` // offset within the image
	Length    uint64 `xml:"len,attr"`
}

// GetExecEnv describes the process producing the document.
func GetExecEnv() ExecEnv {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown_host"
	}

	uid := 0
	if u, err := user.Current(); err == nil {
		if v, err := strconv.Atoi(u.Uid); err == nil {
			uid = v
		}
	}

	return ExecEnv{
		OS:    runtime.GOOS,
		Host:  host,
		Arch:  runtime.GOARCH,
		UID:   uid,
		Start: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
