package mesh

import (
	"slices"
	"sync"
	"time"
)

// defaultPalette colours scanners that have no configured colour
var defaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// ScannerReading is the latest report received from one scanner
type ScannerReading struct {
	ScannerID string     `json:"scannerId"`
	Beacons   PointCloud `json:"beacons"`
	Received  time.Time  `json:"received"`
}

// StateTracker holds the live scanner reports and the latest alignment
type StateTracker struct {
	mu        sync.RWMutex
	readings  map[string]*ScannerReading
	colors    map[string]string // scanner ID -> hex color
	alignment *Alignment
	names     []string // scanner IDs in index order for the current alignment
}

// NewStateTracker creates a new state tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		readings: make(map[string]*ScannerReading),
		colors:   make(map[string]string),
	}
}

// SetColor sets the color for a scanner
func (st *StateTracker) SetColor(scannerID, hexColor string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.colors[scannerID] = hexColor
}

// Color returns the configured colour, or a palette colour chosen by index
func (st *StateTracker) Color(scannerID string, index int) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if c := st.colors[scannerID]; c != "" {
		return c
	}
	return PaletteColor(index)
}

// PaletteColor returns the default colour for scanner index
func PaletteColor(index int) string {
	if index < 0 {
		index = -index
	}
	return defaultPalette[index%len(defaultPalette)]
}

// UpdateReport stores the latest beacons reported by a scanner
func (st *StateTracker) UpdateReport(scannerID string, cloud PointCloud) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.readings[scannerID] = &ScannerReading{
		ScannerID: scannerID,
		Beacons:   slices.Clone(cloud),
		Received:  time.Now(),
	}
}

// GetReading returns a copy of a scanner's latest report
func (st *StateTracker) GetReading(scannerID string) (ScannerReading, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	r, ok := st.readings[scannerID]
	if !ok {
		return ScannerReading{}, false
	}
	out := *r
	out.Beacons = slices.Clone(r.Beacons)
	return out, true
}

// HasReports returns true if at least one scanner has reported
func (st *StateTracker) HasReports() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.readings) > 0
}

// Ready reports whether every listed scanner has reported at least once
func (st *StateTracker) Ready(scannerIDs []string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if len(scannerIDs) == 0 {
		return false
	}
	for _, id := range scannerIDs {
		if _, ok := st.readings[id]; !ok {
			return false
		}
	}
	return true
}

// Clouds returns the latest clouds ordered like scannerIDs.
// ok is false when any scanner has not reported yet.
func (st *StateTracker) Clouds(scannerIDs []string) (clouds []PointCloud, ok bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	clouds = make([]PointCloud, len(scannerIDs))
	for i, id := range scannerIDs {
		r, found := st.readings[id]
		if !found {
			return nil, false
		}
		clouds[i] = slices.Clone(r.Beacons)
	}
	return clouds, true
}

// SetAlignment records the latest alignment together with the scanner IDs
// its indices refer to
func (st *StateTracker) SetAlignment(a *Alignment, scannerIDs []string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.alignment = a
	st.names = slices.Clone(scannerIDs)
}

// GetAlignment returns the latest alignment and the scanner IDs it was built
// from; nil when none has been computed
func (st *StateTracker) GetAlignment() (*Alignment, []string) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.alignment, slices.Clone(st.names)
}
