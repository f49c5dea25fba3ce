package main

import (
	"errors"
	"flag"
	"log"
	"os"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%v\n", err)
	}
	if err := InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("%v\n", err)
	}
	app := CreateApp(cfg)
	if err := WithGL(app.title(), cfg.Width, cfg.Height, app); err != nil {
		log.Fatalf("%v\n", err)
	}
}
