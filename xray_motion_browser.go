package main

import (
	"flag"
	"log"
	"os"

	"github.com/mogaika/xray_motion_browser/config"
	"github.com/mogaika/xray_motion_browser/pack/xray/motion"
	"github.com/mogaika/xray_motion_browser/status"
	"github.com/mogaika/xray_motion_browser/utils"
	"github.com/mogaika/xray_motion_browser/web"
)

func main() {
	var addr, dir, settingsPath, encoding, webPath string
	var verbose bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to directory with .skl/.skls files")
	flag.StringVar(&settingsPath, "settings", "", "Path to yaml settings file")
	flag.StringVar(&encoding, "encoding", "", "Names encoding override (default from settings, Windows 1251)")
	flag.StringVar(&webPath, "web", "", "Path to folder with static web data (data subfolder is served)")
	flag.BoolVar(&verbose, "v", false, "Trace every envelope key")
	flag.Parse()

	if dir == "" {
		flag.PrintDefaults()
		return
	}

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		log.Fatal(err)
	}
	if encoding != "" {
		settings.Encoding = encoding
	}
	if err := settings.Apply(); err != nil {
		log.Printf("[config] %v, known encodings: %v", err, config.ListEncodings())
		os.Exit(1)
	}

	var logger *utils.Logger
	if verbose {
		logger = utils.NewLogger(os.Stdout)
	}

	l := web.NewLibrary(dir, motion.OptionsFromSettings(settings, logger))
	l.Status = status.NewHub()
	if err := web.StartServer(addr, l, webPath); err != nil {
		log.Fatal(err)
	}
}
