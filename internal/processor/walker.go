package processor

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// SRA metadata dumps lay out one directory per study, directly containing
// that study's XML documents. A directory entry therefore marks a group
// boundary: the previous group's bundle is emitted before the new group
// opens, and the final group is flushed at end of stream.

const opWalk errors.Op = "processor.walk"

// GroupReader streams study-group bundles out of a gzip-compressed tar
// archive, in archive order. It is a forward-only reader: Next returns
// io.EOF after the last bundle, and any structural error is sticky.
// Stopping early is always safe; nothing is buffered beyond the group
// currently being assembled.
type GroupReader struct {
	gz      *gzip.Reader
	tr      *tar.Reader
	groupID string
	docs    map[DocType][]byte
	skips   *errors.SkipCounter
	err     error
}

// NewGroupReader wraps r, which must carry a gzip-compressed tar stream.
func NewGroupReader(r io.Reader) (*GroupReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return &GroupReader{
		gz:    gz,
		tr:    tar.NewReader(gz),
		docs:  make(map[DocType][]byte),
		skips: errors.NewSkipCounter("classifying archive members"),
	}, nil
}

var errUnknownDocType = errors.New("unknown document type suffix")

// Next returns the next non-empty study-group bundle, or io.EOF at end of
// stream. A file member whose parent directory does not match the open
// group violates the archive layout and fails the walk.
func (g *GroupReader) Next() (*GroupBundle, error) {
	if g.err != nil {
		return nil, g.err
	}
	for {
		hdr, err := g.tr.Next()
		if err == io.EOF {
			g.err = io.EOF
			if len(g.docs) > 0 {
				return g.flush(), nil
			}
			return nil, io.EOF
		}
		if err != nil {
			g.err = fmt.Errorf("reading archive entry: %w", err)
			return nil, g.err
		}

		name := strings.TrimSuffix(hdr.Name, "/")
		switch hdr.Typeflag {
		case tar.TypeDir:
			var done *GroupBundle
			if len(g.docs) > 0 {
				done = g.flush()
			}
			g.groupID = path.Base(name)
			if done != nil {
				return done, nil
			}
		case tar.TypeReg:
			if !strings.HasSuffix(name, ".xml") {
				continue
			}
			if g.groupID == "" || path.Base(path.Dir(name)) != g.groupID {
				g.err = errors.E(opWalk, errors.KindArchive,
					fmt.Sprintf("file %q outside open group %q", hdr.Name, g.groupID))
				return nil, g.err
			}
			docType, ok := DocTypeForFile(name)
			if !ok {
				g.skips.Skip(errUnknownDocType, name)
				continue
			}
			data, err := io.ReadAll(g.tr)
			if err != nil {
				g.err = fmt.Errorf("reading %s: %w", hdr.Name, err)
				return nil, g.err
			}
			g.docs[docType] = data
		}
	}
}

func (g *GroupReader) flush() *GroupBundle {
	bundle := &GroupBundle{ID: g.groupID, Docs: g.docs}
	g.docs = make(map[DocType][]byte)
	return bundle
}

// Skipped returns how many XML members were skipped for carrying an
// unrecognized type suffix.
func (g *GroupReader) Skipped() int {
	return g.skips.Count
}

// ReportSkips logs a summary of skipped members, if there were any.
func (g *GroupReader) ReportSkips() {
	g.skips.Report()
}

// Close releases the decompressor. It does not close the underlying
// reader.
func (g *GroupReader) Close() error {
	return g.gz.Close()
}
