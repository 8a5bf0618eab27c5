package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Settings struct {
	General       GeneralSettings      `json:"general" yaml:"general"`
	Theme         ThemeSettings        `json:"theme" yaml:"theme"`
	Island        IslandSettings       `json:"island" yaml:"island"`
	Shortcuts     ShortcutSettings     `json:"shortcuts" yaml:"shortcuts"`
	Data          DataSettings         `json:"data" yaml:"data"`
	Notifications NotificationSettings `json:"notifications" yaml:"notifications"`
	Developer     DeveloperSettings    `json:"developer" yaml:"developer"`
}

type GeneralSettings struct {
	Language        string `json:"language" yaml:"language"`
	LaunchAtStartup bool   `json:"launch_at_startup" yaml:"launch_at_startup"`
	MinimizeToTray  bool   `json:"minimize_to_tray" yaml:"minimize_to_tray"`
}

type ThemeSettings struct {
	Mode        string `json:"mode" yaml:"mode"`
	AccentColor string `json:"accent_color" yaml:"accent_color"`
}

type IslandSettings struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Position string `json:"position" yaml:"position"`
	AutoHide bool   `json:"auto_hide" yaml:"auto_hide"`
}

type ShortcutSettings struct {
	QuickCapture string `json:"quick_capture" yaml:"quick_capture"`
	ToggleIsland string `json:"toggle_island" yaml:"toggle_island"`
	Spotlight    string `json:"spotlight" yaml:"spotlight"`
}

type DataSettings struct {
	AutoBackup         bool   `json:"auto_backup" yaml:"auto_backup"`
	BackupDir          string `json:"backup_dir" yaml:"backup_dir"`
	TrashRetentionDays int    `json:"trash_retention_days" yaml:"trash_retention_days"`
}

type NotificationSettings struct {
	Enabled             bool `json:"enabled" yaml:"enabled"`
	TaskReminders       bool `json:"task_reminders" yaml:"task_reminders"`
	ReminderLeadMinutes int  `json:"reminder_lead_minutes" yaml:"reminder_lead_minutes"`
}

type DeveloperSettings struct {
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging"`
	ShowIDs      bool `json:"show_ids" yaml:"show_ids"`
}

const DefaultTrashRetentionDays = 7

func DefaultSettings() Settings {
	return Settings{
		General:       GeneralSettings{Language: "zh-CN", MinimizeToTray: true},
		Theme:         ThemeSettings{Mode: "system", AccentColor: "#3b82f6"},
		Island:        IslandSettings{Enabled: true, Position: "top-center", AutoHide: false},
		Shortcuts:     ShortcutSettings{QuickCapture: "Alt+Space", ToggleIsland: "Alt+I", Spotlight: "Alt+K"},
		Data:          DataSettings{TrashRetentionDays: DefaultTrashRetentionDays},
		Notifications: NotificationSettings{Enabled: true, TaskReminders: true, ReminderLeadMinutes: 10},
	}
}

// MergeSettings deep-merges patch into cur. Nested maps merge key by key;
// any other value replaces the existing one. Unknown keys are rejected.
func MergeSettings(cur Settings, patch map[string]any) (Settings, error) {
	base, err := settingsToMap(cur)
	if err != nil {
		return cur, err
	}
	if err := mergeInto(base, patch, ""); err != nil {
		return cur, err
	}
	data, err := json.Marshal(base)
	if err != nil {
		return cur, fmt.Errorf("settings marshal: %w", err)
	}
	var out Settings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return cur, ValidationError{Field: "settings", Reason: err.Error()}
	}
	return out, nil
}

// PathPatch turns "theme.mode" = v into {"theme": {"mode": v}}.
func PathPatch(path string, value any) (map[string]any, error) {
	parts := strings.Split(strings.TrimSpace(path), ".")
	for _, p := range parts {
		if p == "" {
			return nil, ValidationError{Field: "settings path", Reason: fmt.Sprintf("%q", path)}
		}
	}
	var v any = value
	for i := len(parts) - 1; i >= 0; i-- {
		v = map[string]any{parts[i]: v}
	}
	return v.(map[string]any), nil
}

// LookupSetting reads a dotted path out of s.
func LookupSetting(s Settings, path string) (any, error) {
	m, err := settingsToMap(s)
	if err != nil {
		return nil, err
	}
	var cur any = m
	for _, p := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, ValidationError{Field: "settings path", Reason: fmt.Sprintf("%q", path)}
		}
		cur, ok = node[p]
		if !ok {
			return nil, ValidationError{Field: "settings path", Reason: fmt.Sprintf("%q", path)}
		}
	}
	return cur, nil
}

func settingsToMap(s Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("settings marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("settings unmarshal: %w", err)
	}
	return m, nil
}

func mergeInto(dst, patch map[string]any, prefix string) error {
	for k, pv := range patch {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		dv, ok := dst[k]
		if !ok {
			return ValidationError{Field: "settings path", Reason: fmt.Sprintf("unknown key %q", key)}
		}
		dm, dIsMap := dv.(map[string]any)
		pm, pIsMap := pv.(map[string]any)
		switch {
		case dIsMap && pIsMap:
			if err := mergeInto(dm, pm, key); err != nil {
				return err
			}
		case dIsMap:
			return ValidationError{Field: key, Reason: "cannot replace a settings group with a value"}
		default:
			dst[k] = pv
		}
	}
	return nil
}
