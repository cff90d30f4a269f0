// Package main prints the static descriptor data for the built-in
// plugin releases. It is a developer smoke test: no database or file
// staging is touched.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/driftwoodlabs/pluginhost/internal/descriptor"
	platformcmd "github.com/driftwoodlabs/pluginhost/internal/platform/cmd"
	"github.com/driftwoodlabs/pluginhost/internal/platform/config"
)

type appConfig struct {
	BaseDir string `env:"PLUGINHOST_BASE_DIR" envDefault:"plugins"`
}

func main() {
	var cfg appConfig
	var release string

	fs := flag.NewFlagSet(platformcmd.ServicePluginInfo, flag.ExitOnError)
	fs.StringVar(&release, "release", "current", "descriptor release to print (current or next)")
	fs.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "plugins base directory")

	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, os.Args[1:]); err != nil {
		config.Exitf("parse config: %v", err)
	}

	plugin := descriptor.AISettings()
	if release == "next" {
		plugin = descriptor.AISettingsNext()
	}

	err := platformcmd.RunWithTelemetry(context.Background(), platformcmd.ServicePluginInfo, func(context.Context) error {
		printPlugin(plugin, cfg.BaseDir)
		return nil
	})
	if err != nil {
		config.Exitf("plugininfo: %v", err)
	}
}

func printPlugin(plugin *descriptor.Plugin, baseDir string) {
	fmt.Printf("Plugin: %s\n", plugin.Name)
	fmt.Printf("Version: %s\n", plugin.Version)
	fmt.Printf("Slug: %s\n", plugin.Slug)
	fmt.Printf("Shared dir: %s\n", plugin.SharedDir(baseDir))
	fmt.Printf("Modules: %d\n", len(plugin.Modules))

	for _, module := range plugin.Modules {
		fmt.Printf("  - %s (%s)\n", module.DisplayName, module.Name)
	}

	for _, module := range plugin.Modules {
		fmt.Printf("\nRequired services for %s:\n", module.Name)
		for _, name := range sortedKeys(module.RequiredServices) {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Printf("Config fields for %s:\n", module.Name)
		for _, name := range sortedKeys(module.ConfigFields) {
			fmt.Printf("  - %s\n", name)
		}
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
