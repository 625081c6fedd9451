package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/ledgerlens/internal/database"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log     zerolog.Logger
	dataDir string
	db      *database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:     log.With().Str("component", "system_handlers").Logger(),
		dataDir: dataDir,
		db:      db,
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	UptimeHours   float64 `json:"uptime_hours"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemPercent    float64 `json:"mem_percent"`
	Goroutines    int     `json:"goroutines"`
	DatabaseMB    float64 `json:"database_mb"`
	DataDirMB     float64 `json:"data_dir_mb"`
	SnapshotCount int     `json:"snapshot_count"`
	DumpCount     int     `json:"dump_count"`
	LastChecked   string  `json:"last_checked"`
}

// HandleSystemStatus returns host and storage status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Goroutines:  runtime.NumGoroutine(),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}

	if uptime, err := host.Uptime(); err == nil {
		response.UptimeHours = float64(uptime) / 3600
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response.MemPercent = vm.UsedPercent
	}

	if info, err := os.Stat(h.db.Path()); err == nil {
		response.DatabaseMB = float64(info.Size()) / 1024 / 1024
	}
	response.DataDirMB = h.getDirSize(h.dataDir)
	response.SnapshotCount = countFiles(filepath.Join(h.dataDir, "raw"), ".msgpack")
	response.DumpCount = countFiles(filepath.Join(h.dataDir, "dumps"), ".sql")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func countFiles(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ext {
			n++
		}
	}
	return n
}
