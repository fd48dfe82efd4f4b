package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// ProgressFunc receives cumulative transfer progress. total is zero when
// neither the listing nor the response reported a size.
type ProgressFunc func(downloaded, total int64)

const opDownload errors.Op = "downloader.Download"

// Download fetches file into destDir and returns the final path. A complete
// copy already on disk short-circuits the transfer. Partial data never lands
// on the final path: the body streams into a temp file that is renamed only
// after a clean finish, so an interrupted download restarts from scratch on
// the next run.
func (m *Manager) Download(ctx context.Context, file *MetadataFile, destDir string, progress ProgressFunc) (string, error) {
	dest := filepath.Join(destDir, file.Name)
	if info, err := os.Stat(dest); err == nil {
		if file.Size == 0 || info.Size() == file.Size {
			return dest, nil
		}
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", errors.E(opDownload, errors.KindIO, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return "", errors.E(opDownload, errors.KindNetwork, err)
	}
	resp, err := m.transfer.Do(req)
	if err != nil {
		return "", errors.E(opDownload, errors.KindNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.E(opDownload, errors.KindNetwork, fmt.Sprintf("GET %s: %s", file.URL, resp.Status))
	}

	total := file.Size
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", errors.E(opDownload, errors.KindIO, err)
	}

	_, err = io.Copy(out, &progressReader{reader: resp.Body, total: total, report: progress})
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return "", errors.E(opDownload, errors.KindNetwork, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", errors.E(opDownload, errors.KindIO, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", errors.E(opDownload, errors.KindIO, err)
	}
	return dest, nil
}

// progressReader reports cumulative bytes as the body streams through it.
type progressReader struct {
	reader     io.Reader
	downloaded int64
	total      int64
	report     ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		if r.report != nil {
			r.report(r.downloaded, r.total)
		}
	}
	return n, err
}
