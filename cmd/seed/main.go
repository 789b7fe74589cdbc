package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/ruleforge/ruleforge/internal/database"
	"github.com/ruleforge/ruleforge/internal/models"
)

// taxonomy is the on-disk shape of the ATT&CK snapshot. Sub-techniques nest
// under their parent so the file stays readable and parent links never dangle.
type taxonomy struct {
	Tactics []struct {
		TacticID    string `yaml:"tactic_id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"tactics"`
	Techniques []techniqueEntry `yaml:"techniques"`
}

type techniqueEntry struct {
	TechniqueID   string           `yaml:"technique_id"`
	Name          string           `yaml:"name"`
	Description   string           `yaml:"description"`
	TacticID      string           `yaml:"tactic_id"`
	Platforms     []string         `yaml:"platforms"`
	Subtechniques []techniqueEntry `yaml:"subtechniques"`
}

func main() {
	dbPath := os.Getenv("RF_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/ruleforge.db"
	}
	taxonomyPath := "./data/attack_taxonomy.yaml"
	if len(os.Args) > 1 {
		taxonomyPath = os.Args[1]
	}

	db, err := database.Connect(dbPath)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	fmt.Println("✓ Database migrated successfully")

	raw, err := os.ReadFile(taxonomyPath)
	if err != nil {
		log.Fatal("Failed to read taxonomy file:", err)
	}

	var tax taxonomy
	if err := yaml.Unmarshal(raw, &tax); err != nil {
		log.Fatal("Failed to parse taxonomy file:", err)
	}

	// Seed tactics first so techniques can point at them.
	tacticIDs := make(map[string]uint)
	for _, entry := range tax.Tactics {
		tactic := models.MitreTactic{
			TacticID:    entry.TacticID,
			Name:        entry.Name,
			Description: entry.Description,
		}
		result := db.Where("tactic_id = ?", tactic.TacticID).FirstOrCreate(&tactic)
		if result.Error != nil {
			log.Printf("Failed to seed tactic %s: %v", entry.TacticID, result.Error)
			continue
		}
		tacticIDs[tactic.TacticID] = tactic.ID
		if result.RowsAffected > 0 {
			fmt.Printf("✓ Created tactic: %s (%s)\n", tactic.Name, tactic.TacticID)
		} else {
			fmt.Printf("  Tactic already exists: %s\n", tactic.TacticID)
		}
	}

	for _, entry := range tax.Techniques {
		parent, err := seedTechnique(db, entry, tacticIDs, nil)
		if err != nil {
			continue
		}
		for _, sub := range entry.Subtechniques {
			if sub.TacticID == "" {
				sub.TacticID = entry.TacticID
			}
			if len(sub.Platforms) == 0 {
				sub.Platforms = entry.Platforms
			}
			seedTechnique(db, sub, tacticIDs, &parent.ID)
		}
	}

	fmt.Println("\n✓ Taxonomy seeding completed successfully!")
}

func seedTechnique(db *gorm.DB, entry techniqueEntry, tacticIDs map[string]uint, parentID *uint) (*models.MitreTechnique, error) {
	technique := models.MitreTechnique{
		TechniqueID: entry.TechniqueID,
		Name:        entry.Name,
		Description: entry.Description,
		Platforms:   models.StringList(entry.Platforms),
		ParentID:    parentID,
	}
	if id, ok := tacticIDs[entry.TacticID]; ok {
		technique.TacticID = &id
	}

	result := db.Where("technique_id = ?", technique.TechniqueID).FirstOrCreate(&technique)
	if result.Error != nil {
		log.Printf("Failed to seed technique %s: %v", entry.TechniqueID, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		fmt.Printf("✓ Created technique: %s (%s)\n", technique.Name, technique.TechniqueID)
	} else {
		fmt.Printf("  Technique already exists: %s\n", technique.TechniqueID)
	}
	return &technique, nil
}
