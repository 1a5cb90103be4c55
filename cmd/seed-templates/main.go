// Command seed-templates publishes starter templates to the marketplace of
// the configured storage backend.
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	app "github.com/R3E-Network/framestore/internal/app"
	"github.com/R3E-Network/framestore/internal/app/runtime"
	"github.com/R3E-Network/framestore/internal/app/services/templates"
	"github.com/R3E-Network/framestore/internal/config"
	"github.com/R3E-Network/framestore/manifest"
	"github.com/R3E-Network/framestore/pkg/logger"
)

//go:embed templates/*.yaml
var builtin embed.FS

// seedFile is the on-disk template format.
type seedFile struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Category     string         `yaml:"category"`
	Tags         []string       `yaml:"tags"`
	PreviewImage string         `yaml:"preview_image"`
	IsPublic     *bool          `yaml:"is_public"`
	PriceCents   int            `yaml:"price_cents"`
	TemplateData map[string]any `yaml:"template_data"`
}

func main() {
	envFile := flag.String("env", "", "Optional .env file to load before reading configuration")
	dir := flag.String("dir", "", "Directory of template YAML files (defaults to the built-in set)")
	wallet := flag.String("creator", "", "Wallet address recorded as the templates' creator")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	}
	if *wallet == "" {
		flag.Usage()
		os.Exit(1)
	}

	var source fs.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	} else {
		sub, err := fs.Sub(builtin, "templates")
		if err != nil {
			log.Fatalf("open built-in templates: %v", err)
		}
		source = sub
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Scheduler.Enabled = false

	ctx := context.Background()
	rt, err := runtime.NewApplication(ctx, cfg, logger.NewDefault("seed-templates"))
	if err != nil {
		log.Fatalf("build application: %v", err)
	}
	defer rt.Shutdown(ctx)

	n, err := seed(ctx, rt.App(), *wallet, source)
	if err != nil {
		log.Fatalf("seed templates: %v", err)
	}
	fmt.Printf("Seeded %d templates for %s\n", n, *wallet)
}

// seed creates one template per YAML file in source and returns how many were
// created.
func seed(ctx context.Context, application *app.Application, wallet string, source fs.FS) (int, error) {
	session, err := application.Accounts.SignIn(ctx, wallet)
	if err != nil {
		return 0, fmt.Errorf("resolve creator: %w", err)
	}

	paths, err := templateFiles(source)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, path := range paths {
		in, err := loadSeed(source, path)
		if err != nil {
			return created, err
		}
		t, err := application.Templates.Create(ctx, session.User.ID, in)
		if err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
		log.Printf("created template %s (%s)", t.Name, t.ID)
		created++
	}
	return created, nil
}

func templateFiles(source fs.FS) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(source, pattern)
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

func loadSeed(source fs.FS, path string) (templates.CreateInput, error) {
	data, err := fs.ReadFile(source, path)
	if err != nil {
		return templates.CreateInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return templates.CreateInput{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if sf.TemplateData == nil {
		return templates.CreateInput{}, fmt.Errorf("%s: template_data is required", path)
	}
	m, err := manifest.Parse(sf.TemplateData)
	if err != nil {
		return templates.CreateInput{}, fmt.Errorf("%s: %w", path, err)
	}
	name := sf.Name
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return templates.CreateInput{
		Name:         name,
		Description:  sf.Description,
		Category:     sf.Category,
		Tags:         sf.Tags,
		PreviewImage: sf.PreviewImage,
		Manifest:     m,
		IsPublic:     sf.IsPublic,
		PriceCents:   sf.PriceCents,
	}, nil
}
