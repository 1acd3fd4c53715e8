package storage

import (
	"os"
	"regexp"
	"sort"
	"strconv"
)

// partitionName is the naming convention for year partitions. The filenames
// are the sole source of truth for which years exist; there is no manifest.
var partitionName = regexp.MustCompile(`^ledger-(\d{4})\.sqlite$`)

// partitionFile returns the filename of the partition for a year.
func partitionFile(year int) string {
	return "ledger-" + strconv.Itoa(year) + ".sqlite"
}

// ListYears scans the data directory for year partitions and returns the
// years in descending order. A missing directory yields an empty list. The
// directory is re-read on every call so partitions created by concurrent
// writers become visible immediately.
func ListYears(dataDir string) ([]int, error) {
	files, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var years []int
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := partitionName.FindStringSubmatch(f.Name())
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		years = append(years, year)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}
