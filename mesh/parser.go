package mesh

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseReportFile reads and parses a scanner report file
func ParseReportFile(path string) ([]ScannerReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return ParseReport(f)
}

// ParseReport parses blank-line separated scanner groups. The first line of
// each group is a header whose text is kept as the scanner name; every other
// line is an "x,y,z" beacon position.
func ParseReport(r io.Reader) ([]ScannerReport, error) {
	var (
		reports []ScannerReport
		current *ScannerReport
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			current = nil
			continue
		}
		if current == nil {
			reports = append(reports, ScannerReport{Name: headerName(line), Beacons: PointCloud{}})
			current = &reports[len(reports)-1]
			continue
		}
		p, err := ParseVec3(line)
		if err != nil {
			return nil, &MalformedInputError{Line: lineNo, Text: line, cause: err}
		}
		current.Beacons = append(current.Beacons, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	if len(reports) == 0 {
		return nil, &MalformedInputError{cause: fmt.Errorf("no scanner groups")}
	}
	return reports, nil
}

// headerName strips the decoration from "--- scanner 3 ---"
func headerName(line string) string {
	return strings.TrimSpace(strings.Trim(line, "-"))
}

// Clouds extracts the point clouds from reports, indexed like the reports
func Clouds(reports []ScannerReport) []PointCloud {
	clouds := make([]PointCloud, len(reports))
	for i, r := range reports {
		clouds[i] = r.Beacons
	}
	return clouds
}

// reportPayload is the JSON form of a single scanner report
type reportPayload struct {
	Beacons [][]int64 `json:"beacons"`
}

// DecodeReportPayload decodes a single scanner's beacons from an MQTT or HTTP
// payload. JSON ({"beacons": [[x,y,z], ...]}) and the text format (with or
// without a header line) are both accepted.
func DecodeReportPayload(data []byte) (PointCloud, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &MalformedInputError{cause: fmt.Errorf("empty payload")}
	}

	if trimmed[0] == '{' {
		var payload reportPayload
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, &MalformedInputError{cause: fmt.Errorf("parsing JSON: %w", err)}
		}
		cloud := make(PointCloud, 0, len(payload.Beacons))
		for i, b := range payload.Beacons {
			if len(b) != 3 {
				return nil, &MalformedInputError{cause: fmt.Errorf("beacon %d has %d coordinates, want 3", i, len(b))}
			}
			cloud = append(cloud, V3(b[0], b[1], b[2]))
		}
		return cloud, nil
	}

	text := trimmed
	if !bytes.HasPrefix(text, []byte("---")) {
		text = append([]byte("--- payload ---\n"), text...)
	}
	reports, err := ParseReport(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}
	if len(reports) != 1 {
		return nil, &MalformedInputError{cause: fmt.Errorf("payload holds %d scanner groups, want 1", len(reports))}
	}
	return reports[0].Beacons, nil
}
