package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"conference-abstracts-api/config"
	"conference-abstracts-api/models"
	"conference-abstracts-api/services"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type reviewerSeed struct {
	UserID                   int      `yaml:"user_id"`
	Expertise                []string `yaml:"expertise"`
	MaxConcurrentAssignments int      `yaml:"max_concurrent_assignments"`
	Role                     string   `yaml:"role"`
}

// seedFile is the document read from -file.
type seedFile struct {
	Settings  *models.AbstractsSettings `yaml:"settings"`
	Rules     []models.AssignmentRule   `yaml:"rules"`
	Reviewers []reviewerSeed            `yaml:"reviewers"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		path      string
		updatedBy int
	)
	flag.StringVar(&path, "file", "seed.yaml", "YAML file with settings, rules and reviewers")
	flag.IntVar(&updatedBy, "updated-by", 0, "user id recorded as the updater (optional)")
	flag.Parse()

	seed, err := loadSeed(path)
	if err != nil {
		log.Fatalf("failed to read seed file: %v", err)
	}

	config.InitDB()

	svc := services.NewDefaultServices(config.DB).Settings
	actor := services.Actor{UserID: updatedBy, RoleID: models.RoleAdmin}
	ctx := context.Background()

	if seed.Settings != nil {
		saved, err := svc.ReplaceSettings(ctx, actor, *seed.Settings)
		if err != nil {
			log.Fatalf("failed to seed settings: %v", err)
		}
		fmt.Printf("Settings saved: %d tracks, policy %s\n", len(saved.Tracks), saved.AssignmentPolicy)
	}

	if seed.Rules != nil {
		rules, err := svc.ReplaceRules(ctx, actor, seed.Rules)
		if err != nil {
			log.Fatalf("failed to seed assignment rules: %v", err)
		}
		fmt.Printf("Assignment rules saved: %d\n", len(rules))
	}

	for _, r := range seed.Reviewers {
		if _, err := svc.UpsertReviewer(ctx, actor, models.ReviewerProfile{
			UserID:                   r.UserID,
			Expertise:                r.Expertise,
			MaxConcurrentAssignments: r.MaxConcurrentAssignments,
			Role:                     r.Role,
		}); err != nil {
			log.Fatalf("failed to seed reviewer %d: %v", r.UserID, err)
		}
	}
	if len(seed.Reviewers) > 0 {
		fmt.Printf("Reviewer profiles saved: %d\n", len(seed.Reviewers))
	}
}

func loadSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, err
	}
	return &seed, nil
}
