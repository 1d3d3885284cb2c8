package main

import (
	"embed"
	"log"
	"os"
	"path/filepath"

	"github.com/chazu/pointyard/pkg/config"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := NewApp(cfg)
	err = wails.Run(&options.App{
		Title:  "Pointyard",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Printf("Error: %v", err)
	}
}

// loadConfig reads $POINTYARD_CONFIG, or pointyard/config.toml in the user
// config directory. A missing file means defaults.
func loadConfig() (config.Config, error) {
	path := os.Getenv("POINTYARD_CONFIG")
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return config.Default(), nil
		}
		path = filepath.Join(dir, "pointyard", "config.toml")
	}
	return config.Load(path)
}
