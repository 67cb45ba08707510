package server

import (
	"os"
	"time"

	"mixdown/internal/catalog"
	"mixdown/internal/media"
	"mixdown/internal/module"
	"mixdown/internal/preflight"
)

// SessionView is the JSON shape of a session record.
type SessionView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	FileCount    int       `json:"file_count"`
	UsageBytes   int64     `json:"usage_bytes"`
	Dispatching  bool      `json:"dispatching"`
}

// FileView is the JSON shape of a file entry.
type FileView struct {
	ID                string      `json:"id"`
	DisplayName       string      `json:"display_name"`
	OrderIndex        int         `json:"order_index"`
	Origin            string      `json:"origin"`
	SourceID          string      `json:"source_id,omitempty"`
	ProducingModuleID string      `json:"producing_module_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	SizeBytes         int64       `json:"size_bytes"`
	Media             *media.Info `json:"media,omitempty"`
}

// ModuleView is the JSON shape of a registry listing row.
type ModuleView struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Description  string   `json:"description"`
	Icon         string   `json:"icon,omitempty"`
	Accepts      []string `json:"accepts,omitempty"`
	Multiplicity string   `json:"multiplicity"`
	Combines     bool     `json:"combines,omitempty"`
}

// SelectionView is the JSON shape of one panel's selection.
type SelectionView struct {
	Panel string   `json:"panel"`
	IDs   []string `json:"ids"`
}

// StatusView reports daemon state for the status endpoint.
type StatusView struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	DatabasePath  string             `json:"database_path"`
	LibraryDir    string             `json:"library_dir"`
	Sessions      int                `json:"sessions"`
	Entries       int                `json:"entries"`
	Derived       int                `json:"derived"`
	Modules       int                `json:"modules"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Preflight     []preflight.Result `json:"preflight"`
}

type createSessionRequest struct {
	Name string `json:"name"`
}

type renameRequest struct {
	DisplayName string `json:"display_name"`
}

type positionRequest struct {
	Index *int `json:"index"`
}

type selectionRequest struct {
	IDs      []string `json:"ids"`
	ModuleID string   `json:"module_id"`
}

type dispatchRequest struct {
	ModuleID  string        `json:"module_id"`
	TargetIDs []string      `json:"target_ids"`
	Params    module.Params `json:"params"`
}

func fileView(entry *catalog.FileEntry) FileView {
	view := FileView{
		ID:                entry.ID,
		DisplayName:       entry.DisplayName,
		OrderIndex:        entry.OrderIndex,
		Origin:            string(entry.Origin),
		SourceID:          entry.SourceID,
		ProducingModuleID: entry.ProducingModuleID,
		CreatedAt:         entry.CreatedAt,
	}
	if info, err := os.Stat(entry.StoragePath); err == nil {
		view.SizeBytes = info.Size()
	}
	return view
}

func fileViews(entries []*catalog.FileEntry) []FileView {
	views := make([]FileView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, fileView(entry))
	}
	return views
}

func moduleView(mod *module.Module) ModuleView {
	return ModuleView{
		ID:           mod.ID,
		DisplayName:  mod.DisplayName,
		Description:  mod.Description,
		Icon:         mod.Icon,
		Accepts:      mod.Accepts,
		Multiplicity: string(mod.Multiplicity),
		Combines:     mod.Combines,
	}
}
