package descriptor

// AISettings returns the 1.0.0 release of the built-in AI settings
// plugin. The descriptor is static release data; callers must treat the
// returned value as read-only.
func AISettings() *Plugin {
	return &Plugin{
		Slug:             "ai-settings",
		Name:             "AI Settings",
		Description:      "Manage AI provider credentials and model preferences",
		Version:          "1.0.0",
		Type:             "frontend",
		Icon:             "Settings",
		Category:         "settings",
		Official:         true,
		Author:           "Driftwood Labs",
		Compatibility:    "1.0.0",
		Scope:            "AISettings",
		BundleMethod:     "webpack",
		BundleLocation:   "dist/remoteEntry.js",
		IsLocal:          false,
		LongDescription:  "Configure AI provider API credentials, select default models, and test connectivity. Supports organization accounts and advanced generation options.",
		SourceType:       "github",
		SourceURL:        "https://github.com/driftwoodlabs/ai-settings.git",
		UpdateCheckURL:   "https://api.github.com/repos/driftwoodlabs/ai-settings/releases/latest",
		InstallationType: "remote",
		Permissions: []string{
			"storage.read", "storage.write",
			"api.access", "network.external",
			"settings.read", "settings.write",
		},
		ManifestFile: "package.json",
		SourceEntry:  "src/AISettings.tsx",
		Stylesheet:   "src/AISettings.css",
		Modules: []Module{
			{
				Name:        "AISettings",
				DisplayName: "AI Settings",
				Description: "Configure and manage AI provider credentials and model preferences",
				Icon:        "Settings",
				Category:    "settings",
				Priority:    1,
				Props: map[string]any{
					"apiKey":         "",
					"organizationId": "",
					"model":          "gpt-4o",
					"maxTokens":      4096,
					"temperature":    0.7,
				},
				ConfigFields: map[string]any{
					"api_key": map[string]any{
						"type":        "password",
						"description": "Provider API key",
						"required":    true,
						"placeholder": "sk-...",
					},
					"organization_id": map[string]any{
						"type":        "text",
						"description": "Organization ID (optional)",
						"required":    false,
						"placeholder": "org-...",
					},
					"model": map[string]any{
						"type":        "select",
						"description": "Default model",
						"required":    true,
						"default":     "gpt-4o",
						"options": []any{
							map[string]any{"value": "gpt-4o", "label": "GPT-4o"},
							map[string]any{"value": "gpt-4", "label": "GPT-4"},
							map[string]any{"value": "gpt-4-turbo", "label": "GPT-4 Turbo"},
							map[string]any{"value": "gpt-3.5-turbo", "label": "GPT-3.5 Turbo"},
						},
					},
					"max_tokens": map[string]any{
						"type":        "number",
						"description": "Maximum tokens per response",
						"default":     4096,
						"min":         1,
						"max":         8192,
					},
					"temperature": map[string]any{
						"type":        "number",
						"description": "Response creativity (0-2)",
						"default":     0.7,
						"min":         0,
						"max":         2,
						"step":        0.1,
					},
				},
				Messages: map[string]any{
					"connection_success":   "Provider connection successful",
					"connection_failed":    "Provider connection failed",
					"settings_saved":       "Settings saved successfully",
					"settings_load_failed": "Failed to load settings",
					"validation_error":     "Please fix validation errors",
				},
				RequiredServices: map[string]any{
					"api":      map[string]any{"methods": []any{"get", "post", "put", "delete"}, "version": "1.0.0"},
					"event":    map[string]any{"methods": []any{"sendMessage", "subscribeToMessages", "unsubscribeFromMessages"}, "version": "1.0.0"},
					"theme":    map[string]any{"methods": []any{"getCurrentTheme", "addThemeChangeListener", "removeThemeChangeListener"}, "version": "1.0.0"},
					"settings": map[string]any{"methods": []any{"getSetting", "setSetting", "getSettingDefinitions"}, "version": "1.0.0"},
				},
				Dependencies: []string{},
				Layout: map[string]any{
					"minWidth":      6,
					"minHeight":     8,
					"defaultWidth":  8,
					"defaultHeight": 10,
				},
				Tags:       []string{"ai", "settings", "api", "configuration", "credentials"},
				SourceFile: "src/AISettings.tsx",
			},
		},
	}
}

// AISettingsNext returns the 1.1.0 release. It keeps the AISettings
// module (so per-user configuration migrates across an update) and adds
// a usage meter module that has no counterpart in 1.0.0.
func AISettingsNext() *Plugin {
	next := AISettings()
	next.Version = "1.1.0"
	next.Description = "Manage AI provider credentials, model preferences, and usage"
	next.Modules = append(next.Modules, Module{
		Name:        "UsageMeter",
		DisplayName: "Usage Meter",
		Description: "Track token usage per provider account",
		Icon:        "BarChart",
		Category:    "settings",
		Priority:    2,
		Props: map[string]any{
			"window": "30d",
		},
		ConfigFields: map[string]any{
			"window": map[string]any{
				"type":        "select",
				"description": "Reporting window",
				"default":     "30d",
				"options": []any{
					map[string]any{"value": "7d", "label": "7 days"},
					map[string]any{"value": "30d", "label": "30 days"},
				},
			},
		},
		Messages: map[string]any{
			"usage_load_failed": "Failed to load usage data",
		},
		RequiredServices: map[string]any{
			"api": map[string]any{"methods": []any{"get"}, "version": "1.0.0"},
		},
		Dependencies: []string{"AISettings"},
		Layout: map[string]any{
			"minWidth":      4,
			"minHeight":     4,
			"defaultWidth":  6,
			"defaultHeight": 6,
		},
		Tags:       []string{"ai", "usage", "metrics"},
		SourceFile: "src/UsageMeter.tsx",
	})
	return next
}
