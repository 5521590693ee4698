package storage

import (
	"fmt"

	"github.com/manav03panchal/medtrack/internal/errors"
)

// DiskSpaceInfo contains information about available disk space.
type DiskSpaceInfo struct {
	Path       string
	TotalBytes uint64
	FreeBytes  uint64
	UsedBytes  uint64
}

// FreePercent returns the percentage of free space.
func (d *DiskSpaceInfo) FreePercent() float64 {
	if d.TotalBytes == 0 {
		return 0
	}
	return float64(d.FreeBytes) / float64(d.TotalBytes) * 100
}

// CheckDiskSpace checks if there's at least minFree bytes available at path.
// A zero minFree, or a filesystem that cannot be queried, passes.
func CheckDiskSpace(path string, minFree uint64) error {
	if minFree == 0 {
		return nil
	}
	info, err := GetDiskSpace(path)
	if err != nil {
		return nil
	}

	if info.FreeBytes < minFree {
		return errors.NewPersistenceError("open",
			fmt.Sprintf("insufficient disk space: %d MB free, need at least %d MB",
				info.FreeBytes/(1024*1024),
				minFree/(1024*1024)),
			errors.ErrDiskFull,
		)
	}

	return nil
}

// CheckDiskSpaceWarning returns a warning message if free space is below threshold.
// Returns empty string if disk space is adequate.
func CheckDiskSpaceWarning(path string, threshold uint64) string {
	info, err := GetDiskSpace(path)
	if err != nil {
		return ""
	}

	if info.FreeBytes < threshold {
		return fmt.Sprintf("Warning: Low disk space (%d MB free)", info.FreeBytes/(1024*1024))
	}

	return ""
}
