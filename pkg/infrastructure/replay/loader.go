// Package replay drives the coordinator from a recorded list of
// navigations instead of a live browser.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

// Navigation is one recorded top-level navigation
type Navigation struct {
	Destination entity.DestinationID
	URL         string
}

// LoadNavigations parses navigations from r. Each line is either a URL,
// which gets a destination of its own, or a destination id followed by a
// URL. Blank lines and lines starting with # are skipped.
func LoadNavigations(r io.Reader) ([]Navigation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var navigations []Navigation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			navigations = append(navigations, Navigation{
				Destination: entity.DestinationID(strconv.Itoa(len(navigations) + 1)),
				URL:         fields[0],
			})
		case 2:
			navigations = append(navigations, Navigation{
				Destination: entity.DestinationID(fields[0]),
				URL:         fields[1],
			})
		default:
			return nil, fmt.Errorf("line %d: expected \"URL\" or \"TAB URL\", got %d fields", lineNo, len(fields))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return navigations, nil
}

// LoadFile loads navigations from a file, or from stdin when path is "-"
func LoadFile(path string) ([]Navigation, error) {
	if path == "-" {
		return LoadNavigations(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadNavigations(file)
}
