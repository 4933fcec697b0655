package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func (s *CanvasServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := s.readJSON(w, r, &body); err != nil {
			writeAPIError(w, err)
			return
		}
		if body.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		snap := s.TakeSnapshot(body.Name)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"name":      snap.Name,
			"count":     len(snap.Elements),
			"createdAt": snap.CreatedAt,
		})

	case http.MethodGet:
		snapshots := s.store.SnapshotList()
		listing := make([]map[string]interface{}, 0, len(snapshots))
		for _, snap := range snapshots {
			listing = append(listing, map[string]interface{}{
				"name":      snap.Name,
				"count":     len(snap.Elements),
				"createdAt": snap.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"snapshots": listing,
			"count":     len(listing),
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *CanvasServer) handleSnapshotByName(w http.ResponseWriter, r *http.Request) {
	name := pathSuffix(r.URL.Path, "/api/snapshots")
	if name == "" {
		s.handleSnapshots(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	snap, err := s.store.SnapshotGet(name)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"snapshot": snap,
	})
}

// handleSyncStatus reports liveness counters for the editor's status bar.
func (s *CanvasServer) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	memory := map[string]interface{}{
		"heapAllocBytes": ms.HeapAlloc,
		"heapSysBytes":   ms.HeapSys,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		memory["systemTotalBytes"] = vm.Total
		memory["systemAvailableBytes"] = vm.Available
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"clients":   s.PeerCount(),
		"elements":  s.store.Count(),
		"snapshots": len(s.store.SnapshotList()),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"memory":    memory,
	})
}
