package app

import (
	"os"
	"path/filepath"

	fyneapp "fyne.io/fyne/v2/app"

	"yashubustudio/simmatch/simmatch"
)

const fyneAppID = "com.yashubustudio.simmatch"

// configPath is the settings file stored under the user config directory.
func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "simmatch.json"
	}
	return filepath.Join(dir, "simmatch", "config.json")
}

// Run loads the saved settings and starts the desktop UI.
func Run() error {
	path := configPath()
	cfg, err := simmatch.LoadConfig(path)
	if err != nil {
		return err
	}

	sink := &logSink{}
	svc, err := NewService(cfg, path, newLogger(sink, cfg.Verbose))
	if err != nil {
		return err
	}
	defer svc.Close()

	a := fyneapp.NewWithID(fyneAppID)
	u := buildUI(a, svc)
	sink.attach(u.appendLog)
	u.w.ShowAndRun()
	return nil
}
