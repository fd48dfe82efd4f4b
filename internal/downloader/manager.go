// Package downloader discovers and fetches the NCBI SRA metadata dumps that
// feed the preprocessing pipeline. NCBI publishes two kinds of tarball on its
// Metadata mirror: monthly full dumps (NCBI_SRA_Metadata_Full_YYYYMMDD.tar.gz)
// and daily incremental ones (NCBI_SRA_Metadata_YYYYMMDD.tar.gz). The Manager
// scrapes the Apache directory listing to find them and streams the chosen
// dump to local disk.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Puumanamana/RAG-SRA/internal/errors"
)

// DefaultBaseURL is the NCBI metadata mirror, served over HTTPS.
const DefaultBaseURL = "https://ftp.ncbi.nlm.nih.gov/sra/reports/Metadata/"

// FileType classifies a dump by its naming scheme.
type FileType string

const (
	FileTypeDaily   FileType = "daily"
	FileTypeMonthly FileType = "monthly"
)

// MetadataFile is one dump found in the mirror listing.
type MetadataFile struct {
	Name string    `json:"name"`
	URL  string    `json:"url"`
	Size int64     `json:"size"`
	Date time.Time `json:"date"`
	Type FileType  `json:"type"`
}

var (
	monthlyRe = regexp.MustCompile(`NCBI_SRA_Metadata_Full_(\d{8})\.tar\.gz`)
	dailyRe   = regexp.MustCompile(`NCBI_SRA_Metadata_(\d{8})\.tar\.gz`)

	// Apache directory listings put the modification time and a size column
	// after each link. The size may carry a K/M/G suffix. Older mirrors use
	// DD-Mon-YYYY timestamps, newer ones ISO dates.
	rowRe  = regexp.MustCompile(`<a href="([^"]+\.tar\.gz)"[^>]*>[^<]*</a>\s+(?:\d{2}-\w{3}-\d{4} \d{2}:\d{2}|\d{4}-\d{2}-\d{2} \d{2}:\d{2})\s+([\d.]+[KMG]?)`)
	hrefRe = regexp.MustCompile(`<a href="([^"]+\.tar\.gz)"`)

	dateRe = regexp.MustCompile(`^\d{8}$`)
)

// Manager lists and downloads metadata dumps from an NCBI-style mirror.
type Manager struct {
	client   *http.Client // listing fetches, bounded timeout
	transfer *http.Client // dump transfers run for minutes; ctx carries cancellation
	baseURL  string
}

// NewManager returns a Manager for the given mirror. An empty baseURL selects
// the NCBI mirror.
func NewManager(baseURL string) *Manager {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Manager{
		client:   &http.Client{Timeout: 30 * time.Second},
		transfer: &http.Client{},
		baseURL:  baseURL,
	}
}

const opList errors.Op = "downloader.ListAvailable"

// ListAvailable fetches the mirror listing and returns every recognized dump,
// newest first.
func (m *Manager) ListAvailable(ctx context.Context) ([]MetadataFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL, nil)
	if err != nil {
		return nil, errors.E(opList, errors.KindNetwork, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.E(opList, errors.KindNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(opList, errors.KindNetwork, fmt.Sprintf("listing %s: %s", m.baseURL, resp.Status))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.E(opList, errors.KindNetwork, err)
	}

	files := parseListing(string(body), m.baseURL)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Date.After(files[j].Date)
	})
	return files, nil
}

// Latest returns the newest listed dump. An empty fileType accepts either
// kind; otherwise only dumps of that kind are considered.
func (m *Manager) Latest(ctx context.Context, fileType FileType) (*MetadataFile, error) {
	files, err := m.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if fileType == "" || files[i].Type == fileType {
			return &files[i], nil
		}
	}
	if fileType == "" {
		return nil, fmt.Errorf("no metadata dumps listed at %s", m.baseURL)
	}
	return nil, fmt.Errorf("no %s metadata dumps listed at %s", fileType, m.baseURL)
}

// ByDate returns the dump stamped with the given YYYYMMDD date. When a
// monthly and a daily dump share the stamp, the monthly one wins.
func (m *Manager) ByDate(ctx context.Context, date string) (*MetadataFile, error) {
	if !dateRe.MatchString(date) {
		return nil, fmt.Errorf("date must be YYYYMMDD, got %q", date)
	}
	files, err := m.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	var daily *MetadataFile
	for i := range files {
		if files[i].Date.Format("20060102") != date {
			continue
		}
		if files[i].Type == FileTypeMonthly {
			return &files[i], nil
		}
		if daily == nil {
			daily = &files[i]
		}
	}
	if daily != nil {
		return daily, nil
	}
	return nil, fmt.Errorf("no dump dated %s listed at %s", date, m.baseURL)
}

// ByName returns the listed dump with the exact file name.
func (m *Manager) ByName(ctx context.Context, name string) (*MetadataFile, error) {
	files, err := m.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	for i := range files {
		if files[i].Name == name {
			return &files[i], nil
		}
	}
	return nil, fmt.Errorf("%s not listed at %s", name, m.baseURL)
}

func parseListing(html, baseURL string) []MetadataFile {
	var files []MetadataFile
	seen := make(map[string]bool)

	add := func(href string, size int64) {
		name := path.Base(href)
		if seen[name] {
			return
		}
		fileType, date, ok := classify(name)
		if !ok {
			return
		}
		seen[name] = true
		files = append(files, MetadataFile{
			Name: name,
			URL:  baseURL + name,
			Size: size,
			Date: date,
			Type: fileType,
		})
	}

	for _, m := range rowRe.FindAllStringSubmatch(html, -1) {
		add(m[1], parseSize(m[2]))
	}
	if len(files) == 0 {
		// Listing without the usual columns: fall back to bare links. The
		// date still comes from the file name; the size stays unknown.
		for _, m := range hrefRe.FindAllStringSubmatch(html, -1) {
			add(m[1], 0)
		}
	}
	return files
}

func classify(name string) (FileType, time.Time, bool) {
	if m := monthlyRe.FindStringSubmatch(name); m != nil {
		return FileTypeMonthly, parseStamp(m[1]), true
	}
	if m := dailyRe.FindStringSubmatch(name); m != nil {
		return FileTypeDaily, parseStamp(m[1]), true
	}
	return "", time.Time{}, false
}

func parseStamp(yyyymmdd string) time.Time {
	t, err := time.Parse("20060102", yyyymmdd)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseSize converts an Apache listing size column ("345", "2.1G") to bytes.
func parseSize(s string) int64 {
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1024, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1024*1024, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = 1024*1024*1024, strings.TrimSuffix(s, "G")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(v * float64(mult))
}

// FormatSize renders a byte count for listings. Zero means the mirror did not
// report a size.
func FormatSize(n int64) string {
	if n <= 0 {
		return "?"
	}
	return humanize.Bytes(uint64(n))
}
