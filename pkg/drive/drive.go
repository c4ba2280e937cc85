// pkg/drive/drive.go
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// monthsByAbbrev maps lowercase three-letter month abbreviations, the
// format the export folders are named with.
var monthsByAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Fetcher locates and downloads the current day's catalog export from a
// shared Drive folder. The folder holds one subfolder per day, named
// like "12 aug", each containing that day's CSV.
type Fetcher struct {
	svc      *drive.Service
	folderID string
	now      func() time.Time
	logger   *zap.Logger
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(ctx context.Context, folderID, credentialsFile string) (*Fetcher, error) {
	if folderID == "" {
		return nil, fmt.Errorf("drive folder ID is required")
	}

	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive service: %w", err)
	}

	return &Fetcher{
		svc:      svc,
		folderID: folderID,
		now:      time.Now,
		logger:   zap.L().Named("drive"),
	}, nil
}

// FetchToday downloads today's export CSV into the working directory and
// returns its path. A missing day folder is not an error; it returns an
// empty path so the caller can skip the run.
func (f *Fetcher) FetchToday(ctx context.Context) (string, error) {
	entries, err := f.listChildren(ctx, f.folderID)
	if err != nil {
		return "", fmt.Errorf("failed to list export folders: %w", err)
	}

	today := f.now()
	var todayFolderID string
	for _, entry := range entries {
		date, err := parseDayTitle(entry.Name, today.Year())
		if err != nil {
			f.logger.Warn("Skipping folder with unrecognized name",
				zap.String("name", entry.Name),
				zap.Error(err))
			continue
		}
		if sameDay(date, today) {
			todayFolderID = entry.Id
			break
		}
	}

	if todayFolderID == "" {
		f.logger.Warn("No export folder found for today",
			zap.String("date", today.Format("2006-01-02")),
			zap.Int("foldersSeen", len(entries)))
		return "", nil
	}

	files, err := f.listChildren(ctx, todayFolderID)
	if err != nil {
		return "", fmt.Errorf("failed to list today's export folder: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("today's export folder %s is empty", todayFolderID)
	}

	outName := fmt.Sprintf("product_data_%s.csv", today.Format("2006-01-02"))
	if err := f.download(ctx, files[0].Id, outName); err != nil {
		return "", err
	}

	f.logger.Info("Downloaded today's export",
		zap.String("file", outName),
		zap.String("sourceID", files[0].Id))

	return outName, nil
}

// listChildren returns the non-trashed children of a folder.
func (f *Fetcher) listChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)

	var out []*drive.File
	call := f.svc.Files.List().Q(query).Fields("nextPageToken, files(id, name)").PageSize(1000)
	err := call.Pages(ctx, func(page *drive.FileList) error {
		out = append(out, page.Files...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// download streams a Drive file to a local path.
func (f *Fetcher) download(ctx context.Context, fileID, path string) error {
	resp, err := f.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// parseDayTitle parses a day-folder name like "12 aug" or "3 June" into
// a date in the given year. The uploaders sometimes spell out june and
// july, so those are shortened before matching.
func parseDayTitle(title string, year int) (time.Time, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(title)))
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("folder name %q is not a day title", title)
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("folder name %q has no valid day", title)
	}

	abbrev := fixMonthAbbrev(fields[1])
	month, ok := monthsByAbbrev[abbrev]
	if !ok {
		return time.Time{}, fmt.Errorf("folder name %q has no valid month", title)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

func fixMonthAbbrev(s string) string {
	s = strings.ReplaceAll(s, "june", "jun")
	s = strings.ReplaceAll(s, "july", "jul")
	return s
}

func sameDay(a, b time.Time) bool {
	return a.Day() == b.Day() && a.Month() == b.Month() && a.Year() == b.Year()
}
