package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"taskflow/internal/api"
	"taskflow/internal/config"
	"taskflow/internal/session"
	"taskflow/internal/store"
	"taskflow/internal/tui"
)

func main() {
	// .env is optional; environment overrides land during config.Load.
	_ = godotenv.Load()

	configPathFlag := flag.String("config", "", "config file path")
	apiFlag := flag.String("api", "", "backend base URL")
	viewsPathFlag := flag.String("views-db", "", "saved views sqlite path")
	flag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if *apiFlag != "" {
		cfg.APIBaseURL = *apiFlag
	}
	if *viewsPathFlag != "" {
		cfg.ViewsDBPath = *viewsPathFlag
	}
	if cfg.SessionPath == "" {
		cfg.SessionPath = filepath.Join(filepath.Dir(cfgPath), "session.json")
	}
	if cfg.ViewsDBPath == "" {
		cfg.ViewsDBPath = filepath.Join(filepath.Dir(cfgPath), "views.db")
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		log.Fatal(err)
	}

	sess, err := session.Load(cfg.SessionPath)
	if err != nil {
		log.Fatal(err)
	}
	// a token known to be expired would only produce a 401 on the first
	// request; drop it up front and start at the sign-in screen
	if exp, err := sess.ExpiresAt(); err == nil && time.Now().After(exp) {
		if err := sess.Clear(); err != nil {
			log.Fatal(err)
		}
	}

	views, err := openViews(cfg.ViewsDBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer views.Close()

	client := api.NewClient(cfg.APIBaseURL, sess)

	if err := tui.Run(client, views); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openViews(path string) (*store.Store, error) {
	if err := config.EnsureDir(path); err != nil {
		return nil, err
	}
	return store.Open(path)
}
